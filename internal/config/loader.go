// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `.env` file — `<root>/conf/.env`.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `CITYSYNC_`, where `__` maps to “.”
     (e.g., `CITYSYNC_HTTP__LISTEN_ADDR → http.listen_addr`).

After merging, `vault:` references are resolved, the tree is unmarshalled
into strongly-typed structs, validated, and enriched with the runtime root
path.  The DSN's `%s` verb is then filled with the database password, so
the secret can arrive via env or Vault while the template stays in YAML.
The returned Config is immutable; cmd/web loads once at boot and threads
it through constructors.

Instrumentation
---------------
  • DEBUG spans — root discovery, YAML read, env overlay.
  • ERROR spans — YAML parse, env overlay, unmarshal, validation failures.
  • INFO  span  — final “config loaded” with key highlights.
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed (bootstrap console).

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/global.yaml`;
    this lets `go run ./cmd/web` work from any sub-directory.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/stationhouse/citysync/internal/vault"
)

// vaultTTL caches resolved secrets for five minutes so repeated loads do
// not hammer the Vault server.
const vaultTTL = 5 * time.Minute

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves CITYSYNC_ROOT or climbs directories until
// conf/global.yaml is found.  Falls back to executable heuristic for
// production layout.
func rootDir() string {
	if r := os.Getenv("CITYSYNC_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, and env overrides, validates, and caches Config.
// Vault references are left untouched; use LoadWithVault when secrets are
// stored remotely.
func Load() (*Config, error) { return LoadWithVault(context.Background(), nil) }

// LoadWithVault behaves like Load but resolves `vault:path#key` values
// through the supplied client first.  A nil client skips resolution.
func LoadWithVault(ctx context.Context, cli *vault.Client) (*Config, error) {
	root := rootDir()
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	// Env overrides: CITYSYNC_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider("CITYSYNC_", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	if cli != nil {
		if err := resolveSecrets(ctx, k, cli); err != nil {
			zap.S().Errorw("config vault resolve failed", "err", err)
			return nil, err
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	applySyncDefaults(&cfg.Sync)
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	// The YAML DSN is a template with a %s verb where the password goes; the
	// password itself arrives via env or Vault.  A verb-less DSN is taken
	// as-is for local setups that embed credentials directly.
	if strings.Contains(cfg.Database.DSN, "%s") {
		cfg.Database.DSN = fmt.Sprintf(cfg.Database.DSN, cfg.Database.Password)
	}

	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"force_https", cfg.HTTP.ForceHTTPS,
		"sync_batch", cfg.Sync.BatchSize,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// resolveSecrets replaces every `vault:mount/path#key` string leaf with the
// secret it names.  Only string leaves are inspected.
func resolveSecrets(ctx context.Context, k *koanf.Koanf, cli *vault.Client) error {
	for _, key := range k.Keys() {
		raw, ok := k.Get(key).(string)
		if !ok || !strings.HasPrefix(raw, "vault:") {
			continue
		}
		ref := strings.TrimPrefix(raw, "vault:")
		path, field, found := strings.Cut(ref, "#")
		if !found {
			continue // malformed reference; validation will catch the gap
		}
		val, err := cli.GetKV(ctx, path, field, vaultTTL)
		if err != nil {
			return err
		}
		if err := k.Set(key, val); err != nil {
			return err
		}
	}
	return nil
}

// applySyncDefaults fills zero values so a minimal YAML still validates.
func applySyncDefaults(s *Sync) {
	if s.BatchSize == 0 {
		s.BatchSize = 10
	}
	if s.BatchWeight == 0 {
		s.BatchWeight = 4
	}
	if s.FetchTimeout == 0 {
		s.FetchTimeout = 30 * time.Second
	}
	if s.RunTimeout == 0 {
		s.RunTimeout = 5 * time.Minute
	}
	if s.DefaultInterval == 0 {
		s.DefaultInterval = 15 * time.Minute
	}
}
