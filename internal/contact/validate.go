// internal/contact/validate.go
//
// Folio – Contact subsystem: field validation.
//
// Context
//   Three pure rules, one per field.  Each returns "" for a valid value or a
//   user-facing message.  They never fail and hold no state, so the
//   controller may call them as often as it likes.
//
// Notes
//   •  The name rule reports the email message.  That is how the form has
//      always behaved and the display layer depends on the exact text.
//   •  The email rule is syntactic only.  No DNS or mailbox checks.
//
//------------------------------------------------------------------------------

package contact

import (
	"regexp"
	"strings"
)

// emailPattern accepts local@domain.tld with a 2–4 letter final label.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,4}$`)

// requiredMsg builds the "required" text for a field label.
func requiredMsg(label string) string {
	return "The " + label + " field is required."
}

// ValidateName fails when the trimmed value is empty.
func ValidateName(v string) string {
	if strings.TrimSpace(v) == "" {
		return requiredMsg("email")
	}
	return ""
}

// ValidateEmail fails when the trimmed value is empty or the raw value is not
// shaped like local@domain.tld.
func ValidateEmail(v string) string {
	if strings.TrimSpace(v) == "" || !emailPattern.MatchString(v) {
		return requiredMsg("email")
	}
	return ""
}

// ValidateMessage fails when the trimmed value is empty.
func ValidateMessage(v string) string {
	if strings.TrimSpace(v) == "" {
		return requiredMsg("message")
	}
	return ""
}

// Validate runs one validation pass over all three fields.
func Validate(f Fields) FieldErrors {
	return FieldErrors{
		Name:    ValidateName(f.Name),
		Email:   ValidateEmail(f.Email),
		Message: ValidateMessage(f.Message),
	}
}
