// components/contact/contact.go
//
// Folio contact component – JSON API over the submission controller.
//
// Context
//   The browser form is a thin client.  It sends every keystroke-level edit
//   and the submit click here, and renders whatever state comes back:
//
//      GET  /api/contact                  → state
//      PUT  /api/contact/fields/{field}   {"value": "..."} → state
//      POST /api/contact/submit           → {result, state}
//
//   Each visitor is identified by the signed cookie from internal/session,
//   which also selects the visitor's *contact.Controller in the store.
//
// Notes
//   •  Submit waits for the outcome while the request is alive.  A client
//      that disconnects early still gets its delivery; the next GET shows
//      the resulting alert.
//   •  Bots are refused at submit only, and only when block_bots is on.
//
//------------------------------------------------------------------------------

package contact

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/folio/internal/component"
	"github.com/yanizio/folio/internal/contact"
	"github.com/yanizio/folio/internal/metrics"
	"github.com/yanizio/folio/internal/requestinfo"
	"github.com/yanizio/folio/internal/session"
)

// maxBody caps a field update.  Messages are plain text.
const maxBody = 64 << 10

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Deps are the collaborators built in cmd/web.
type Deps struct {
	Store     *session.Store
	Cookies   session.Cookies
	Limiter   func(http.Handler) http.Handler // optional, wraps submit
	BlockBots bool
	Log       *zap.SugaredLogger
}

// Component serves the contact API.
type Component struct{ d Deps }

// New returns a Component.  A nil Log falls back to zap.S().
func New(d Deps) *Component {
	if d.Log == nil {
		d.Log = zap.S()
	}
	d.Log = d.Log.Named("contact")
	return &Component{d: d}
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "contact" }

// Routes builds the router mounted at /api/contact.
func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", c.handleState)
	r.Put("/fields/{field}", c.handleField)

	submit := http.Handler(http.HandlerFunc(c.handleSubmit))
	if c.d.Limiter != nil {
		submit = c.d.Limiter(submit)
	}
	r.Method(http.MethodPost, "/submit", submit)
	return r
}

/*──────────────────────────── Wire types ───────────────────────────────────*/

type stateView struct {
	Fields      contact.Fields      `json:"fields"`
	Errors      contact.FieldErrors `json:"errors"`
	Alert       contact.Alert       `json:"alert"`
	Sending     bool                `json:"sending"`
	SubmitLabel string              `json:"submit_label"`
}

func viewOf(s contact.State) stateView {
	return stateView{
		Fields:      s.Fields,
		Errors:      s.Errors,
		Alert:       s.Alert,
		Sending:     s.Sending(),
		SubmitLabel: s.SubmitLabel(),
	}
}

type fieldRequest struct {
	Value *string `json:"value"`
}

type submitResponse struct {
	Result contact.Result `json:"result"`
	State  stateView      `json:"state"`
}

type errorResponse struct {
	Error string     `json:"error"`
	State *stateView `json:"state,omitempty"`
}

/*──────────────────────────── Handlers ─────────────────────────────────────*/

func (c *Component) handleState(w http.ResponseWriter, r *http.Request) {
	var st contact.State
	err := c.withController(w, r, func(ctrl *contact.Controller) error {
		st = ctrl.Snapshot()
		return nil
	})
	if err != nil {
		c.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(st))
}

func (c *Component) handleField(w http.ResponseWriter, r *http.Request) {
	field, err := contact.ParseField(chi.URLParam(r, "field"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var req fieldRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil || req.Value == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: `body must be {"value": "..."}`})
		return
	}

	var st contact.State
	err = c.withController(w, r, func(ctrl *contact.Controller) error {
		if err := ctrl.ChangeField(field, *req.Value); err != nil {
			return err
		}
		st = ctrl.Snapshot()
		return nil
	})
	if err != nil {
		c.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(st))
}

func (c *Component) handleSubmit(w http.ResponseWriter, r *http.Request) {
	info := requestinfo.FromContext(r.Context())
	if c.d.BlockBots && info != nil && info.UA.IsBot {
		metrics.RejectedTotal.WithLabelValues("bot").Inc()
		c.d.Log.Infow("submit refused for bot", "ip", info.IP, "ua", r.UserAgent())
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "automated submissions are not accepted"})
		return
	}

	var (
		out <-chan contact.Outcome
		st  contact.State
	)
	err := c.withController(w, r, func(ctrl *contact.Controller) (err error) {
		out, err = ctrl.Submit(r.Context())
		if errors.Is(err, contact.ErrSubmissionInFlight) {
			st = ctrl.Snapshot()
		}
		return err
	})
	switch {
	case errors.Is(err, contact.ErrSubmissionInFlight):
		v := viewOf(st)
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), State: &v})
		return
	case err != nil:
		c.fail(w, err)
		return
	}

	if info != nil {
		c.d.Log.Debugw("submit accepted",
			"ip", info.IP,
			"country", info.Geo.CountryISO,
			"browser", info.UA.Browser,
			"device", info.UA.Device,
		)
	}

	select {
	case o := <-out:
		writeJSON(w, http.StatusOK, submitResponse{Result: o.Result, State: viewOf(o.State)})
	case <-r.Context().Done():
		c.d.Log.Debugw("client left before outcome", "err", r.Context().Err())
	}
}

/*──────────────────────────── Helpers ──────────────────────────────────────*/

// withController runs fn against the visitor's pinned controller, issuing
// a cookie if needed.  The store cannot evict it while fn runs.
func (c *Component) withController(w http.ResponseWriter, r *http.Request, fn func(*contact.Controller) error) error {
	return c.d.Store.Use(c.d.Cookies.Visitor(w, r), fn)
}

// fail maps ErrClosed (the store is shutting down) to 503.
func (c *Component) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, contact.ErrClosed) {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "shutting down"})
		return
	}
	c.d.Log.Errorw("contact request failed", "err", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Warnw("write json", "err", err)
	}
}
