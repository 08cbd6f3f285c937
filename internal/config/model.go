// internal/config/model.go
//
// Typed configuration model for Citysync.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                            – dotenv values,
//   • `conf/global.yaml`                         – primary static file,
//   • `CITYSYNC_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* unmarshalling, so the model never
// stores Vault URIs—only plain strings.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`—Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
}

//
// Database section
//

// Database holds the DSN template and its secret.
//
// The *template* (`DSN`) is kept in YAML so operators can tweak host, port,
// or flags without touching Vault.  Its single `%s` verb marks where the
// loader substitutes `Password` (env- or Vault-sourced), keeping the
// credential out of flat files and git history.  A verb-less DSN is used
// verbatim.
type Database struct {
	DSN      string `koanf:"dsn"      validate:"required"`
	Password string `koanf:"password" validate:"required"`
}

//
// Sync section
//

// Sync holds the defaults for the external-data synchronization engine.
// Per-organization settings (base URL, system, interval) live in the
// `organization` table; these values bound every run.
type Sync struct {
	BatchSize       int           `koanf:"batch_size"        validate:"min=1"`
	BatchWeight     int64         `koanf:"batch_weight"      validate:"min=1"`
	FetchTimeout    time.Duration `koanf:"fetch_timeout"     validate:"min=1s"`
	RunTimeout      time.Duration `koanf:"run_timeout"       validate:"min=1s"`
	DefaultInterval time.Duration `koanf:"default_interval"  validate:"min=1m"`
}

//
// GeoIP section
//

// GeoIP points at the MaxMind database used to enrich the audit trail.
// Empty path disables geolocation; lookups then return bare IPs.
type GeoIP struct {
	DBPath string `koanf:"db_path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime—never set in YAML or env.  The loader
// discovers `Root` (repo root or CITYSYNC_ROOT override) so later code can
// build absolute file paths.
type Paths struct {
	Root string // CITYSYNC_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load().  cmd/web loads it
// once at boot and threads it through constructors.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Sync     Sync     `koanf:"sync"`
	GeoIP    GeoIP    `koanf:"geoip"`
	Paths    Paths    `koanf:"-"` // not loaded from config files
}
