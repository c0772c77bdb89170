// internal/requestinfo/middleware.go
//
// HTTP middleware that enriches each request with *RequestInfo.
//
/*
Context
--------
This handler sits right after the security filters.  For every request it:

  1. Parses the User-Agent header and Accept-Language list.
  2. Takes the client IP from `r.RemoteAddr` (already rewritten by
     chi's RealIP when the proxy is trusted).
  3. Performs a GeoLite2 lookup when a database is loaded.
  4. Stores a `*RequestInfo` in the request context, so the contact
     handlers and rate limiter can read it without reparsing.

Instrumentation
---------------
At debug level each invocation logs client IP, country, browser, device,
bot flag, and path.
*/
package requestinfo

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/folio/internal/ua"
)

/*──────────────────────────── middleware ───────────────────────────────────*/

// Enrich wraps an http.Handler, attaches *RequestInfo, and forwards.
func Enrich(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)
		info := &RequestInfo{
			IP:        ip,
			UA:        ua.Parse(r.UserAgent()),
			Geo:       lookupGeo(ip),
			Lang:      primaryLang(r.Header.Get("Accept-Language")),
			Timestamp: time.Now().UTC(),
		}

		zap.S().Debugw("request info",
			"ip", info.IP,
			"country", info.Geo.CountryISO,
			"browser", info.UA.Browser,
			"device", info.UA.Device,
			"bot", info.UA.IsBot,
			"path", r.URL.Path,
		)

		next.ServeHTTP(w, r.WithContext(WithInfo(r.Context(), info)))
	})
}
