// internal/config/loader_test.go
//
// Loader tests against a throw-away root directory.
//
// Run: go test ./internal/config -v

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const baseYAML = `
http:
  listen_addr: ":8080"
contact:
  recipient:
    name: Vlad
    email: owner@example.com
delivery:
  drivers: [log]
session:
  secret: "0123456789abcdef0123456789abcdef"
`

type fakeResolver map[string]string

func (f fakeResolver) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := f[ref]
	if !ok {
		return "", errors.New("no such secret")
	}
	return v, nil
}

func writeRoot(t *testing.T, yaml string) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "conf"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "conf", "global.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestLoadFromDefaults(t *testing.T) {
	root := writeRoot(t, baseYAML)

	cfg, err := LoadFrom(context.Background(), root, nil)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Contact.AlertTTL != 3*time.Second {
		t.Errorf("alert_ttl = %v, want 3s", cfg.Contact.AlertTTL)
	}
	if cfg.Session.CookieName != "folio_contact" {
		t.Errorf("cookie_name = %q", cfg.Session.CookieName)
	}
	if cfg.Delivery.Archive.Table != "contact_submission" {
		t.Errorf("archive table = %q", cfg.Delivery.Archive.Table)
	}
	if cfg.Paths.Root != root {
		t.Errorf("root = %q, want %q", cfg.Paths.Root, root)
	}
	if Get() != cfg {
		t.Error("Get() does not return the cached config")
	}
}

func TestLoadFromEnvOverride(t *testing.T) {
	root := writeRoot(t, baseYAML)
	t.Setenv("FOLIO_HTTP__LISTEN_ADDR", ":9999")
	t.Setenv("FOLIO_CONTACT__ALERT_TTL", "1500ms")

	cfg, err := LoadFrom(context.Background(), root, nil)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.HTTP.ListenAddr != ":9999" {
		t.Errorf("listen_addr = %q, want :9999", cfg.HTTP.ListenAddr)
	}
	if cfg.Contact.AlertTTL != 1500*time.Millisecond {
		t.Errorf("alert_ttl = %v, want 1.5s", cfg.Contact.AlertTTL)
	}
}

func TestLoadFromResolvesSecrets(t *testing.T) {
	yaml := strings.Replace(baseYAML,
		`secret: "0123456789abcdef0123456789abcdef"`,
		`secret: "vault:secret/folio#session"`, 1)
	root := writeRoot(t, yaml)

	sr := fakeResolver{"secret/folio#session": strings.Repeat("s", 40)}
	cfg, err := LoadFrom(context.Background(), root, sr)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Session.Secret != strings.Repeat("s", 40) {
		t.Errorf("secret not resolved: %q", cfg.Session.Secret)
	}

	if _, err := LoadFrom(context.Background(), root, nil); !errors.Is(err, ErrNoResolver) {
		t.Errorf("err = %v, want ErrNoResolver", err)
	}
}

func TestLoadFromValidation(t *testing.T) {
	cases := map[string]string{
		"short secret": strings.Replace(baseYAML, "0123456789abcdef0123456789abcdef", "short", 1),
		"bad driver":   strings.Replace(baseYAML, "drivers: [log]", "drivers: [pigeon]", 1),
		"bad email":    strings.Replace(baseYAML, "owner@example.com", "owner", 1),
		// emailjs named but its section is empty
		"emailjs missing ids": strings.Replace(baseYAML, "drivers: [log]", "drivers: [emailjs]", 1),
	}
	for name, yaml := range cases {
		root := writeRoot(t, yaml)
		if _, err := LoadFrom(context.Background(), root, nil); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestUnusedDriverSectionIsNotValidated(t *testing.T) {
	// archive has no DSN, but only log is configured.
	yaml := strings.Replace(baseYAML, "drivers: [log]", "drivers: [log]\n  archive:\n    table: x", 1)
	root := writeRoot(t, yaml)
	if _, err := LoadFrom(context.Background(), root, nil); err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
}

func TestRootDirEnv(t *testing.T) {
	t.Setenv("FOLIO_ROOT", "/srv/folio")
	if got := RootDir(); got != "/srv/folio" {
		t.Fatalf("RootDir() = %q", got)
	}
}
