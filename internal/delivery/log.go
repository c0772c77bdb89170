// internal/delivery/log.go
//
// Folio – Delivery subsystem: log-only driver.
//
//------------------------------------------------------------------------------

package delivery

import (
	"context"

	"go.uber.org/zap"

	"github.com/yanizio/folio/internal/contact"
)

// Log writes each submission to the logger and always succeeds.  Handy in
// development, where no mail should leave the box.
type Log struct{ log *zap.SugaredLogger }

// NewLog returns a Log driver.  A nil logger falls back to zap.S().
func NewLog(l *zap.SugaredLogger) *Log {
	if l == nil {
		l = zap.S()
	}
	return &Log{log: l.Named("delivery.log")}
}

// Send logs the sender and the message length, never the body.
func (d *Log) Send(_ context.Context, p contact.Payload) error {
	d.log.Infow("contact submission",
		"from_name", p.FromName,
		"from_email", p.FromEmail,
		"to_email", p.ToEmail,
		"message_len", len(p.Message),
	)
	return nil
}
