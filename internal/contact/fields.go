// internal/contact/fields.go
//
// Folio – Contact subsystem: form field and field-error records.
//
// Context
//   The contact form has exactly three inputs.  Fields is a value type, and
//   every edit produces a new Fields rather than mutating one in place, so
//   two snapshots can be compared with ==.  FieldErrors mirrors Fields; an
//   empty string means the field passed its last validation pass.
//
//------------------------------------------------------------------------------

package contact

import (
	"errors"
	"fmt"
)

// Field names one of the three contact inputs.
type Field string

const (
	FieldName    Field = "name"
	FieldEmail   Field = "email"
	FieldMessage Field = "message"
)

// ErrUnknownField is returned for any field name outside name, email, and
// message.
var ErrUnknownField = errors.New("contact: unknown field")

// ParseField maps a submission key to a Field.
func ParseField(s string) (Field, error) {
	switch f := Field(s); f {
	case FieldName, FieldEmail, FieldMessage:
		return f, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownField, s)
	}
}

// Fields holds the visitor's current input.
type Fields struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// With returns a copy of f with one field replaced.  Unknown fields return f
// unchanged.
func (f Fields) With(field Field, value string) Fields {
	switch field {
	case FieldName:
		f.Name = value
	case FieldEmail:
		f.Email = value
	case FieldMessage:
		f.Message = value
	}
	return f
}

// AllEmpty reports whether every field is the empty string.  Whitespace
// counts as content here; only validation trims.
func (f Fields) AllEmpty() bool {
	return f.Name == "" && f.Email == "" && f.Message == ""
}

// FieldErrors holds one message per field, "" meaning no error.
type FieldErrors struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Without returns a copy of e with the given field's error cleared.
func (e FieldErrors) Without(field Field) FieldErrors {
	switch field {
	case FieldName:
		e.Name = ""
	case FieldEmail:
		e.Email = ""
	case FieldMessage:
		e.Message = ""
	}
	return e
}

// Get returns the error for one field.
func (e FieldErrors) Get(field Field) string {
	switch field {
	case FieldName:
		return e.Name
	case FieldEmail:
		return e.Email
	case FieldMessage:
		return e.Message
	}
	return ""
}

// Valid reports whether no field carries an error.
func (e FieldErrors) Valid() bool {
	return e.Name == "" && e.Email == "" && e.Message == ""
}
