// internal/server/timeouts.go
//
// HTTP server helper with robust timeouts.
//
//   • ReadHeaderTimeout – abort slow-loris headers (5 s)
//   • ReadTimeout       – whole request, body included (10 s)
//   • WriteTimeout      – must outlast the slowest submit, since a submit
//                         holds its response until delivery resolves
//   • IdleTimeout       – close keep-alives on idle clients (60 s)
//

package server

import (
	"net/http"
	"time"
)

// writeSlack is added on top of the longest handler wait.
const writeSlack = 5 * time.Second

// New constructs an *http.Server whose WriteTimeout covers a handler that
// blocks for up to maxWait.
func New(addr string, handler http.Handler, maxWait time.Duration) *http.Server {
	write := 15 * time.Second
	if maxWait+writeSlack > write {
		write = maxWait + writeSlack
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      write,
		IdleTimeout:       60 * time.Second,
	}
}
