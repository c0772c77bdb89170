// internal/contact/controller.go
//
// Folio – Contact subsystem: submission controller.
//
// Context
//   A Controller owns one visitor's form: the field values, the per-field
//   errors, a single transient alert, and the busy flag.  It validates on
//   submit, hands valid input to a Delivery, and expires alerts after a
//   fixed delay.
//
//      idle ──submit, invalid──▶ idle     (alert, auto-clears)
//      idle ──submit, valid────▶ sending
//      sending ──delivered─────▶ idle     (thank-you alert, fields reset)
//      sending ──failed────────▶ idle     (error alert, fields kept)
//      any ──ChangeField───────▶ same     (field error and alert cleared)
//
// Workflow
//   •  All state lives on one event-loop goroutine (run).  Public methods
//      post closures to the loop and wait, so no field is ever touched from
//      two goroutines.
//   •  Delivery.Send runs on its own goroutine and posts its result back.
//      The request context is detached; only SendTimeout bounds the call.
//   •  Every new alert stops the pending clear timer and starts a fresh one.
//      A generation counter turns late firings of stale timers into no-ops.
//
// Notes
//   •  An invalid submit with some input shows the thank-you text without a
//      kind.  This mirrors the form's long-standing behaviour and is kept on
//      purpose; see DESIGN.md before changing it.
//
//------------------------------------------------------------------------------

package contact

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/yanizio/folio/internal/metrics"
)

// DefaultAlertTTL is how long an alert stays up without further input.
const DefaultAlertTTL = 3000 * time.Millisecond

var (
	// ErrSubmissionInFlight is returned by Submit while a delivery is pending.
	ErrSubmissionInFlight = errors.New("contact: submission already in flight")

	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("contact: controller closed")
)

// Status is the controller's busy flag.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSending Status = "sending"
)

// State is a point-in-time copy of everything the display layer renders.
type State struct {
	Fields Fields
	Errors FieldErrors
	Alert  Alert
	Status Status
}

// Sending reports whether a delivery is pending.
func (s State) Sending() bool { return s.Status == StatusSending }

// SubmitLabel is the text for the submit button.
func (s State) SubmitLabel() string {
	if s.Sending() {
		return "Sending..."
	}
	return "Send"
}

// Result names how one submit attempt resolved.
type Result string

const (
	ResultInvalid   Result = "invalid"
	ResultDelivered Result = "delivered"
	ResultFailed    Result = "failed"
)

// Outcome is sent once per accepted Submit when the attempt resolves.
type Outcome struct {
	Result Result
	State  State
	Err    error // delivery error, nil unless Result is failed
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock swaps the timer source, mainly for tests.
func WithClock(clk clock.Clock) Option { return func(c *Controller) { c.clock = clk } }

// WithAlertTTL overrides DefaultAlertTTL.  Non-positive values are ignored.
func WithAlertTTL(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.alertTTL = d
		}
	}
}

// WithSendTimeout bounds each Delivery.Send call.  Zero means no bound.
func WithSendTimeout(d time.Duration) Option { return func(c *Controller) { c.sendTimeout = d } }

// WithRecipient sets the static to_name and to_email.
func WithRecipient(r Recipient) Option { return func(c *Controller) { c.recipient = r } }

// WithLogger sets the logger.  Defaults to zap.S().
func WithLogger(l *zap.SugaredLogger) Option { return func(c *Controller) { c.log = l } }

// Controller is safe for concurrent use.  Create with New, release with
// Close.
type Controller struct {
	delivery    Delivery
	recipient   Recipient
	clock       clock.Clock
	alertTTL    time.Duration
	sendTimeout time.Duration
	log         *zap.SugaredLogger

	events    chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	inflight  sync.WaitGroup // detached deliver goroutines

	// Owned by run.
	state      State
	alertGen   uint64
	alertTimer *clock.Timer
}

// New returns an idle controller with empty fields and starts its loop.
func New(d Delivery, opts ...Option) *Controller {
	c := &Controller{
		delivery: d,
		clock:    clock.New(),
		alertTTL: DefaultAlertTTL,
		log:      zap.S(),
		events:   make(chan func()),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		state:    State{Status: StatusIdle},
	}
	for _, o := range opts {
		o(c)
	}
	go c.run()
	return c
}

// -----------------------------------------------------------------------------
// Public API
// -----------------------------------------------------------------------------

// ChangeField replaces one field, clears its error, and clears the alert.
// It is accepted while a delivery is pending.
func (c *Controller) ChangeField(field Field, value string) error {
	if _, err := ParseField(string(field)); err != nil {
		return err
	}
	return c.do(func() {
		c.state.Fields = c.state.Fields.With(field, value)
		c.state.Errors = c.state.Errors.Without(field)
		c.clearAlert()
	})
}

// Submit runs a validation pass and, when every field is valid, starts a
// delivery.  The returned channel receives exactly one Outcome.
func (c *Controller) Submit(ctx context.Context) (<-chan Outcome, error) {
	out := make(chan Outcome, 1)
	var err error
	if derr := c.do(func() { err = c.submit(ctx, out) }); derr != nil {
		return nil, derr
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Snapshot returns a copy of the current state.  After Close it returns the
// zero State.
func (c *Controller) Snapshot() State {
	var s State
	_ = c.do(func() { s = c.state })
	return s
}

// Busy reports whether a delivery is pending.
func (c *Controller) Busy() bool { return c.Snapshot().Sending() }

// Close stops the loop and any pending alert timer, then waits for a
// running delivery to return.  That delivery's Outcome reports ErrClosed.
func (c *Controller) Close() {
	c.closeOnce.Do(func() { close(c.quit) })
	<-c.done
	c.inflight.Wait()
}

// CloseIfIdle closes the controller unless a delivery is pending.  The
// check and the stop happen in one loop event, so no Submit can slip in
// between.  It reports whether the controller is now closed.
func (c *Controller) CloseIfIdle() bool {
	closed := false
	err := c.do(func() {
		if c.state.Status == StatusSending {
			return
		}
		c.closeOnce.Do(func() { close(c.quit) })
		closed = true
	})
	if errors.Is(err, ErrClosed) {
		closed = true
	}
	if closed {
		<-c.done
	}
	return closed
}

// -----------------------------------------------------------------------------
// Event loop
// -----------------------------------------------------------------------------

func (c *Controller) run() {
	defer close(c.done)
	for {
		// quit wins over queued events once it is closed.
		select {
		case <-c.quit:
			c.stopTimer()
			return
		default:
		}

		select {
		case fn := <-c.events:
			fn()
		case <-c.quit:
			c.stopTimer()
			return
		}
	}
}

// do runs fn on the loop and waits for it to finish.
func (c *Controller) do(fn func()) error {
	ran := make(chan struct{})
	select {
	case c.events <- func() { fn(); close(ran) }:
	case <-c.quit:
		return ErrClosed
	}
	<-ran
	return nil
}

// post queues fn without waiting.  It reports false when the loop is gone.
func (c *Controller) post(fn func()) bool {
	select {
	case c.events <- fn:
		return true
	case <-c.quit:
		return false
	}
}

// -----------------------------------------------------------------------------
// Loop-side handlers
// -----------------------------------------------------------------------------

func (c *Controller) submit(ctx context.Context, out chan<- Outcome) error {
	if c.state.Status == StatusSending {
		metrics.SubmissionsTotal.WithLabelValues("busy").Inc()
		return ErrSubmissionInFlight
	}

	c.clearAlert()
	c.state.Errors = Validate(c.state.Fields)

	if c.state.Errors.Valid() {
		c.state.Status = StatusSending
		c.scheduleClear()
		c.inflight.Add(1)
		go c.deliver(ctx, buildPayload(c.state.Fields, c.recipient), out)
		return nil
	}

	if c.state.Fields.AllEmpty() {
		c.setAlert(Alert{Message: MsgFillAllFields})
	} else {
		c.setAlert(Alert{Message: MsgThankYou})
	}
	metrics.SubmissionsTotal.WithLabelValues(string(ResultInvalid)).Inc()
	c.log.Debugw("contact submit rejected by validation",
		"name_err", c.state.Errors.Name,
		"email_err", c.state.Errors.Email,
		"message_err", c.state.Errors.Message,
	)
	out <- Outcome{Result: ResultInvalid, State: c.state}
	return nil
}

// deliver runs off the loop.
func (c *Controller) deliver(ctx context.Context, p Payload, out chan<- Outcome) {
	defer c.inflight.Done()
	ctx = context.WithoutCancel(ctx)
	if c.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.sendTimeout)
		defer cancel()
	}

	err := c.delivery.Send(ctx, p)

	if !c.post(func() { out <- c.complete(err) }) {
		out <- Outcome{Result: ResultFailed, Err: ErrClosed}
	}
}

func (c *Controller) complete(err error) Outcome {
	c.state.Status = StatusIdle

	res := ResultDelivered
	if err != nil {
		res = ResultFailed
		c.setAlert(Alert{Message: MsgFailed, Kind: KindError})
		c.log.Warnw("contact delivery failed", "error", err)
	} else {
		c.setAlert(Alert{Message: MsgThankYou, Kind: KindSuccess})
		c.state.Fields = Fields{}
		c.log.Infow("contact delivered")
	}

	metrics.SubmissionsTotal.WithLabelValues(string(res)).Inc()
	return Outcome{Result: res, State: c.state, Err: err}
}

// -----------------------------------------------------------------------------
// Alert timer
// -----------------------------------------------------------------------------

func (c *Controller) setAlert(a Alert) {
	c.state.Alert = a
	c.scheduleClear()
}

func (c *Controller) clearAlert() {
	c.state.Alert = Alert{}
	c.stopTimer()
	c.alertGen++
}

// scheduleClear replaces any pending clear with one alertTTL from now.
func (c *Controller) scheduleClear() {
	c.stopTimer()
	c.alertGen++
	gen := c.alertGen
	c.alertTimer = c.clock.AfterFunc(c.alertTTL, func() {
		c.post(func() {
			if c.alertGen != gen {
				return
			}
			c.state.Alert = Alert{}
			c.alertTimer = nil
		})
	})
}

func (c *Controller) stopTimer() {
	if c.alertTimer != nil {
		c.alertTimer.Stop()
		c.alertTimer = nil
	}
}
