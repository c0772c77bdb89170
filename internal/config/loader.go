// internal/config/loader.go
//
// Configuration loader and hot-reloader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `.env` file at `<root>/conf/.env`.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `FOLIO_`, where `__` maps to “.”
     (e.g., `FOLIO_HTTP__LISTEN_ADDR → http.listen_addr`).

Before unmarshalling, every string value that starts with `vault:` is
swapped for the secret it names (`vault:secret/folio#emailjs_token`).
After merging, the tree is unmarshalled into strongly-typed structs,
defaulted, validated, enriched with the runtime root path, and cached in
an `atomic.Pointer` for lock-free reads.  `Reload()` simply calls `Load()`
again and swaps the pointer.

Instrumentation
---------------
  • DEBUG spans: root discovery, YAML read, env overlay.
  • ERROR spans: YAML parse, env overlay, secrets, unmarshal, validation.
  • INFO  span : final “config loaded” with key highlights.
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed.
*/
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

const (
	envPrefix    = "FOLIO_"
	secretPrefix = "vault:"
)

// ErrNoResolver is returned when the tree holds a `vault:` reference but
// Load was given no SecretResolver.
var ErrNoResolver = errors.New("config: secret reference without resolver")

// SecretResolver turns a reference such as "secret/folio#token" into the
// plain value.  internal/vault.Client satisfies it.
type SecretResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

var (
	current  atomic.Pointer[Config]
	resolver SecretResolver
)

/*──────────────────────────── root discovery ───────────────────────────────*/

// RootDir resolves FOLIO_ROOT or climbs directories until conf/global.yaml
// is found.  Falls back to executable heuristic for production layout.
func RootDir() string {
	if r := os.Getenv("FOLIO_ROOT"); r != "" {
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

// Load reads .env, YAML, env overrides, resolves secrets, validates, and
// caches Config.  sr may be nil when no value uses a `vault:` reference.
func Load(ctx context.Context, sr SecretResolver) (*Config, error) {
	root := RootDir()
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	resolver = sr
	return LoadFrom(ctx, root, sr)
}

// LoadFrom is Load without root discovery or dotenv.  Tests call it with a
// temporary root.
func LoadFrom(ctx context.Context, root string, sr SecretResolver) (*Config, error) {
	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	// Env overrides: FOLIO_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, envPrefix), "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	if err := resolveSecrets(ctx, k, sr); err != nil {
		zap.S().Errorw("config secret resolution failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	applyDefaults(&cfg)
	cfg.Paths.Root = root
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"force_https", cfg.HTTP.ForceHTTPS,
		"drivers", cfg.Delivery.Drivers,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// resolveSecrets replaces every `vault:` string in k with its secret.
func resolveSecrets(ctx context.Context, k *koanf.Koanf, sr SecretResolver) error {
	for key, val := range k.All() {
		s, ok := val.(string)
		if !ok || !strings.HasPrefix(s, secretPrefix) {
			continue
		}
		if sr == nil {
			return fmt.Errorf("%w: %s", ErrNoResolver, key)
		}
		plain, err := sr.Resolve(ctx, strings.TrimPrefix(s, secretPrefix))
		if err != nil {
			return fmt.Errorf("config %s: %w", key, err)
		}
		if err := k.Set(key, plain); err != nil {
			return fmt.Errorf("config %s: %w", key, err)
		}
		zap.S().Debugw("config secret resolved", "key", key)
	}
	return nil
}

func applyDefaults(c *Config) {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Contact.AlertTTL == 0 {
		c.Contact.AlertTTL = 3 * time.Second
	}
	if c.Contact.SendTimeout == 0 {
		c.Contact.SendTimeout = 15 * time.Second
	}
	if c.Delivery.EmailJS.Endpoint == "" {
		c.Delivery.EmailJS.Endpoint = "https://api.emailjs.com/api/v1.0/email/send"
	}
	if c.Delivery.EmailJS.Timeout == 0 {
		c.Delivery.EmailJS.Timeout = 10 * time.Second
	}
	if c.Delivery.Archive.Table == "" {
		c.Delivery.Archive.Table = "contact_submission"
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "folio_contact"
	}
	if c.Session.IdleTTL == 0 {
		c.Session.IdleTTL = 30 * time.Minute
	}
	if c.Session.MaxEntries == 0 {
		c.Session.MaxEntries = 10000
	}
	if c.Session.EvictInterval == 0 {
		c.Session.EvictInterval = time.Minute
	}
	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = 0.2
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 3
	}
}

func Get() *Config { return current.Load() }

// Reload re-reads every layer with the resolver given to the last Load.
func Reload(ctx context.Context) error { _, err := Load(ctx, resolver); return err }
