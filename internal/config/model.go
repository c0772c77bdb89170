// internal/config/model.go
//
// Typed configuration model for Folio.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                         – dotenv values,
//   • `conf/global.yaml`                      – primary static file,
//   • `FOLIO_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the SecretResolver *before* unmarshalling, so the model never
// stores Vault URIs, only plain strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • Durations accept Go syntax ("3s", "1500ms").
//   • The `Paths` block is filled at runtime; YAML must not try to set it.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.  TrustProxy makes the client address
// come from X-Forwarded-For / X-Real-IP; enable it only behind a proxy
// that overwrites those headers.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
	TrustProxy bool   `koanf:"trust_proxy"`
}

//
// Log section
//

type Log struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
}

//
// Contact section
//

// Recipient is the site owner.  Both values reach the email template as
// to_name and to_email.
type Recipient struct {
	Name  string `koanf:"name"  validate:"required"`
	Email string `koanf:"email" validate:"required,email"`
}

// Contact tunes the submission controller.
type Contact struct {
	AlertTTL    time.Duration `koanf:"alert_ttl"    validate:"gte=0"`
	SendTimeout time.Duration `koanf:"send_timeout" validate:"gte=0"`
	Recipient   Recipient     `koanf:"recipient"`
}

//
// Delivery section
//

// EmailJS holds the identifiers of the hosted email template.  AccessToken
// is optional and usually a `vault:` reference.
type EmailJS struct {
	Endpoint    string        `koanf:"endpoint"     validate:"omitempty,url"`
	ServiceID   string        `koanf:"service_id"   validate:"required"`
	TemplateID  string        `koanf:"template_id"  validate:"required"`
	PublicKey   string        `koanf:"public_key"   validate:"required"`
	AccessToken string        `koanf:"access_token"`
	Timeout     time.Duration `koanf:"timeout"      validate:"gte=0"`
}

// Archive stores every delivered submission in MySQL.
type Archive struct {
	DSN   string `koanf:"dsn"   validate:"required"`
	Table string `koanf:"table"`
}

// Delivery lists the drivers run, in order, for each submission.
type Delivery struct {
	Drivers []string `koanf:"drivers" validate:"required,min=1,dive,oneof=emailjs archive log"`
	EmailJS EmailJS  `koanf:"emailjs" validate:"-"` // checked in validator.go when used
	Archive Archive  `koanf:"archive" validate:"-"`
}

// Uses reports whether driver appears in Drivers.
func (d Delivery) Uses(driver string) bool {
	for _, v := range d.Drivers {
		if v == driver {
			return true
		}
	}
	return false
}

//
// Session section
//

// Session controls visitor cookies and the in-memory controller cache.
type Session struct {
	Secret        string        `koanf:"secret"         validate:"required,min=32"`
	CookieName    string        `koanf:"cookie_name"`
	IdleTTL       time.Duration `koanf:"idle_ttl"       validate:"gte=0"`
	MaxEntries    int           `koanf:"max_entries"    validate:"gte=0"`
	EvictInterval time.Duration `koanf:"evict_interval" validate:"gte=0"`
}

//
// Rate limit section
//

// RateLimit applies to submit requests per client IP.
type RateLimit struct {
	RPS   float64 `koanf:"rps"   validate:"gte=0"`
	Burst int     `koanf:"burst" validate:"gte=0"`
}

//
// Request info section
//

// RequestInfo enables optional GeoIP lookups and bot screening.
type RequestInfo struct {
	GeoIPDB   string `koanf:"geoip_db"`
	BlockBots bool   `koanf:"block_bots"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // FOLIO_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP        HTTP        `koanf:"http"`
	Log         Log         `koanf:"log"`
	Contact     Contact     `koanf:"contact"`
	Delivery    Delivery    `koanf:"delivery"`
	Session     Session     `koanf:"session"`
	RateLimit   RateLimit   `koanf:"ratelimit"`
	RequestInfo RequestInfo `koanf:"requestinfo"`
	Paths       Paths       `koanf:"-"`
}
