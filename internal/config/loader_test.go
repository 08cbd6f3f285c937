// internal/config/loader_test.go
//
// Loader behaviour against a throwaway config root: YAML parse, env
// overlay precedence, sync defaults, and DSN password interpolation.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
http:
  listen_addr: "127.0.0.1:8080"

database:
  dsn: "citysync:%s@tcp(127.0.0.1:3306)/citysync?parseTime=true"
  password: "hunter2"

sync:
  batch_size: 10
`

// writeRoot lays out <tmp>/conf/global.yaml and points CITYSYNC_ROOT at it.
func writeRoot(t *testing.T, yaml string) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "conf"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(root, "conf", "global.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	t.Setenv("CITYSYNC_ROOT", root)
	return root
}

func TestLoad_InterpolatesPassword(t *testing.T) {
	writeRoot(t, sampleYAML)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := "citysync:hunter2@tcp(127.0.0.1:3306)/citysync?parseTime=true"
	if cfg.Database.DSN != want {
		t.Fatalf("DSN = %q, want %q", cfg.Database.DSN, want)
	}
}

func TestLoad_VerbLessDSNKeptAsIs(t *testing.T) {
	// Local setups may embed the credential directly; no verb, no rewrite.
	writeRoot(t, `
http:
  listen_addr: "127.0.0.1:8080"

database:
  dsn: "root:root@tcp(127.0.0.1:3306)/dev?parseTime=true"
  password: "unused"
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.DSN != "root:root@tcp(127.0.0.1:3306)/dev?parseTime=true" {
		t.Fatalf("DSN rewritten: %q", cfg.Database.DSN)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	writeRoot(t, sampleYAML)
	t.Setenv("CITYSYNC_HTTP__LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("CITYSYNC_DATABASE__PASSWORD", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.ListenAddr != "0.0.0.0:9090" {
		t.Fatalf("listen_addr = %q", cfg.HTTP.ListenAddr)
	}
	if want := "citysync:from-env@tcp(127.0.0.1:3306)/citysync?parseTime=true"; cfg.Database.DSN != want {
		t.Fatalf("DSN = %q, want %q", cfg.Database.DSN, want)
	}
}

func TestLoad_SyncDefaults(t *testing.T) {
	writeRoot(t, sampleYAML)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	s := cfg.Sync
	if s.BatchSize != 10 || s.BatchWeight != 4 {
		t.Fatalf("batch defaults: %+v", s)
	}
	if s.FetchTimeout != 30*time.Second || s.RunTimeout != 5*time.Minute {
		t.Fatalf("timeout defaults: %+v", s)
	}
	if s.DefaultInterval != 15*time.Minute {
		t.Fatalf("default interval: %v", s.DefaultInterval)
	}
}

func TestLoad_MissingListenAddr(t *testing.T) {
	writeRoot(t, `
database:
  dsn: "citysync:%s@tcp(127.0.0.1:3306)/citysync"
  password: "x"
`)

	if _, err := Load(); err == nil {
		t.Fatal("want validation error for missing http.listen_addr")
	}
}
