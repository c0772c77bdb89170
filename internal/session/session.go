// internal/session/session.go
//
// Folio – Session subsystem: visitor cookie.
//
// Context
//   The contact API identifies a visitor only by the signed cookie from
//   token.go.  Visitor() returns the id for a request, issuing a new cookie
//   when the current one is missing or fails verification.
//
//------------------------------------------------------------------------------

package session

import (
	"net/http"
	"time"
)

// cookieMaxAge matches a long-lived but not permanent visitor id.
const cookieMaxAge = 30 * 24 * time.Hour

// Cookies reads and writes the visitor cookie.
type Cookies struct {
	Name   string
	Signer *Signer
}

// ID returns the verified visitor id carried by r, if any.
func (c Cookies) ID(r *http.Request) (string, bool) {
	ck, err := r.Cookie(c.Name)
	if err != nil || ck.Value == "" {
		return "", false
	}
	return c.Signer.Verify(ck.Value)
}

// Visitor returns the request's visitor id, setting a fresh cookie on w when
// r carries none.
func (c Cookies) Visitor(w http.ResponseWriter, r *http.Request) string {
	if id, ok := c.ID(r); ok {
		return id
	}
	id := NewID()
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    c.Signer.Sign(id),
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(cookieMaxAge / time.Second),
	})
	return id
}
