// internal/delivery/emailjs.go
//
// Folio – Delivery subsystem: EmailJS REST sender.
//
// Context
//   EmailJS renders a stored template with the submitted values and mails
//   the result to the site owner.  One call is one HTTP POST:
//
//      POST {endpoint}
//      { service_id, template_id, user_id, accessToken?, template_params }
//
//   HTTP 200 means the message was accepted.  Any other status, or a
//   transport error, is a failed delivery.  No retry happens here; the
//   controller treats the attempt as final.
//
//------------------------------------------------------------------------------

package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/yanizio/folio/internal/config"
	"github.com/yanizio/folio/internal/contact"
)

// ErrRejected wraps every non-200 answer from EmailJS.
var ErrRejected = errors.New("emailjs: request rejected")

// maxErrBody caps how much of an error body ends up in the error string.
const maxErrBody = 512

type emailJSRequest struct {
	ServiceID   string            `json:"service_id"`
	TemplateID  string            `json:"template_id"`
	UserID      string            `json:"user_id"`
	AccessToken string            `json:"accessToken,omitempty"`
	Params      map[string]string `json:"template_params"`
}

// EmailJS implements contact.Delivery against the EmailJS REST API.
type EmailJS struct {
	cfg    config.EmailJS
	client *http.Client
}

// NewEmailJS builds a sender with a pooled client bounded by cfg.Timeout.
func NewEmailJS(cfg config.EmailJS) *EmailJS {
	c := cleanhttp.DefaultPooledClient()
	if cfg.Timeout > 0 {
		c.Timeout = cfg.Timeout
	} else {
		c.Timeout = 10 * time.Second
	}
	return &EmailJS{cfg: cfg, client: c}
}

// Send posts one submission.
func (e *EmailJS) Send(ctx context.Context, p contact.Payload) error {
	body, err := json.Marshal(emailJSRequest{
		ServiceID:   e.cfg.ServiceID,
		TemplateID:  e.cfg.TemplateID,
		UserID:      e.cfg.PublicKey,
		AccessToken: e.cfg.AccessToken,
		Params:      p.Params(),
	})
	if err != nil {
		return fmt.Errorf("emailjs: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("emailjs: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("emailjs: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return fmt.Errorf("%w (status %d): %s", ErrRejected, resp.StatusCode, bytes.TrimSpace(msg))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
