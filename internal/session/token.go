// internal/session/token.go
//
// Folio – Session subsystem: signed visitor ids.
//
// Context
//   Each browser gets one random visitor id that keys its form controller.
//   The id travels in a cookie as:
//
//      <uuid> "." base64url( HMAC_SHA256(secret, uuid) )
//
//   •  uuid – random v4, so ids are unguessable and unique per visitor.
//   •  HMAC – keyed with `session.secret`.  Stops a client from picking
//      someone else's id or flooding the store with made-up ones.
//
//   Verification is constant-time.  No server-side lookup is needed to
//   reject a forged cookie.
//
// Workflow
//   •  NewID()          → fresh uuid string.
//   •  Signer.Sign(id)   → cookie value.
//   •  Signer.Verify(v)  → id, ok.
//
//------------------------------------------------------------------------------

package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/google/uuid"
)

// Signer signs and verifies visitor ids.  Safe for concurrent use.
type Signer struct{ key []byte }

// NewSigner keys a Signer with secret.
func NewSigner(secret string) *Signer { return &Signer{key: []byte(secret)} }

// NewID returns a fresh random visitor id.
func NewID() string { return uuid.NewString() }

// Sign returns the cookie value for id.
func (s *Signer) Sign(id string) string {
	return id + "." + base64.RawURLEncoding.EncodeToString(s.mac(id))
}

// Verify returns the id inside v when the signature matches and the id is a
// well-formed uuid.
func (s *Signer) Verify(v string) (string, bool) {
	i := strings.LastIndexByte(v, '.')
	if i <= 0 {
		return "", false
	}
	id, sig64 := v[:i], v[i+1:]

	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	sig, err := base64.RawURLEncoding.DecodeString(sig64)
	if err != nil {
		return "", false
	}
	if !hmac.Equal(sig, s.mac(id)) {
		return "", false
	}
	return id, true
}

func (s *Signer) mac(id string) []byte {
	m := hmac.New(sha256.New, s.key)
	m.Write([]byte(id))
	return m.Sum(nil)
}
