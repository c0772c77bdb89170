// internal/contact/delivery.go
//
// Folio – Contact subsystem: outbound delivery contract.
//
// Context
//   The controller hands a validated submission to a Delivery and only cares
//   whether it succeeded.  Service identifiers, tokens, and transport live in
//   the concrete implementation (see internal/delivery), configured at
//   construction.  The recipient is static and injected into the controller.
//
//------------------------------------------------------------------------------

package contact

import "context"

// Payload is what one submission sends.  JSON names match the template
// variables used by the email service.
type Payload struct {
	FromName  string `json:"from_name"`
	ToName    string `json:"to_name"`
	FromEmail string `json:"from_email"`
	ToEmail   string `json:"to_email"`
	Message   string `json:"message"`
}

// Params returns the payload as a template-parameter map.
func (p Payload) Params() map[string]string {
	return map[string]string{
		"from_name":  p.FromName,
		"to_name":    p.ToName,
		"from_email": p.FromEmail,
		"to_email":   p.ToEmail,
		"message":    p.Message,
	}
}

// Recipient identifies the site owner receiving submissions.
type Recipient struct {
	Name  string
	Email string
}

// Delivery sends one submission.  Any non-nil error is a failed attempt;
// the controller does not retry.
type Delivery interface {
	Send(ctx context.Context, p Payload) error
}

// DeliveryFunc adapts a function to Delivery.
type DeliveryFunc func(ctx context.Context, p Payload) error

// Send implements Delivery.
func (f DeliveryFunc) Send(ctx context.Context, p Payload) error { return f(ctx, p) }

func buildPayload(f Fields, r Recipient) Payload {
	return Payload{
		FromName:  f.Name,
		ToName:    r.Name,
		FromEmail: f.Email,
		ToEmail:   r.Email,
		Message:   f.Message,
	}
}
