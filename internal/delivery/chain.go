// internal/delivery/chain.go
//
// Folio – Delivery subsystem: composition and wiring.
//
// Context
//   `delivery.drivers` lists the drivers that receive each submission, in
//   order.  Build turns that list into one contact.Delivery:
//
//      Chain( Instrument("archive", Archive), Instrument("emailjs", EmailJS) )
//
//   Chain stops at the first error, so listing `archive` before `emailjs`
//   guarantees a stored copy of anything that was mailed.
//
// Notes
//   •  Drivers are not transactional.  If `emailjs` fails after `archive`
//      succeeded, the visitor sees the error alert and keeps their input;
//      resubmitting inserts a second archive row.  Rows are append-only,
//      so duplicates are expected in the archive.
//
//------------------------------------------------------------------------------

package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/folio/internal/config"
	"github.com/yanizio/folio/internal/contact"
	"github.com/yanizio/folio/internal/metrics"
)

// ErrNoDB is returned by Build when `archive` is configured without a pool.
var ErrNoDB = errors.New("delivery: archive driver needs a database")

// ----------------------------------------------------------------------------
// Chain
// ----------------------------------------------------------------------------

type chain []contact.Delivery

// Chain sends through ds in order and returns the first error.
func Chain(ds ...contact.Delivery) contact.Delivery {
	if len(ds) == 1 {
		return ds[0]
	}
	return chain(ds)
}

func (c chain) Send(ctx context.Context, p contact.Payload) error {
	for _, d := range c {
		if err := d.Send(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// Instrument
// ----------------------------------------------------------------------------

type instrumented struct {
	name string
	next contact.Delivery
	log  *zap.SugaredLogger
}

// Instrument records duration and outcome of every call to d under name.
func Instrument(name string, d contact.Delivery, log *zap.SugaredLogger) contact.Delivery {
	if log == nil {
		log = zap.S()
	}
	return &instrumented{name: name, next: d, log: log}
}

func (i *instrumented) Send(ctx context.Context, p contact.Payload) error {
	start := time.Now()
	err := i.next.Send(ctx, p)
	took := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
		i.log.Warnw("delivery failed", "driver", i.name, "took", took, "err", err)
	} else {
		i.log.Debugw("delivery ok", "driver", i.name, "took", took)
	}
	metrics.DeliveryDuration.WithLabelValues(i.name, status).Observe(took.Seconds())
	return err
}

// ----------------------------------------------------------------------------
// Build
// ----------------------------------------------------------------------------

// Build returns the configured delivery.  db may be nil unless `archive` is
// listed.
func Build(cfg config.Delivery, db *sqlx.DB, log *zap.SugaredLogger) (contact.Delivery, error) {
	if len(cfg.Drivers) == 0 {
		return nil, errors.New("delivery: no drivers configured")
	}

	ds := make([]contact.Delivery, 0, len(cfg.Drivers))
	for _, name := range cfg.Drivers {
		var d contact.Delivery
		switch name {
		case "emailjs":
			d = NewEmailJS(cfg.EmailJS)
		case "archive":
			if db == nil {
				return nil, ErrNoDB
			}
			a, err := NewArchive(db, cfg.Archive.Table)
			if err != nil {
				return nil, err
			}
			d = a
		case "log":
			d = NewLog(log)
		default:
			return nil, fmt.Errorf("delivery: unknown driver %q", name)
		}
		ds = append(ds, Instrument(name, d, log))
	}
	return Chain(ds...), nil
}
