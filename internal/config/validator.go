// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after it
// unmarshals the merged Koanf tree into a `Config` instance.  Any tag
// mismatch or validation error aborts startup, ensuring the binary never
// runs with partial, malformed, or missing configuration.
//
// Driver sub-sections are optional.  `emailjs` and `archive` are only
// checked when `delivery.drivers` names them, via a struct-level rule
// registered on `Delivery`.
//
// Notes
// -----
//   • Section dividers use the simple comment style.

package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

//
// validator instance (package-level singleton)
//

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	val.RegisterStructValidation(validateDelivery, Delivery{})
	return val
}

//
// struct-level rules
//

// validateDelivery checks the sub-section of every configured driver.
func validateDelivery(sl validator.StructLevel) {
	d := sl.Current().Interface().(Delivery)

	if d.Uses("emailjs") {
		if err := sl.Validator().Struct(d.EmailJS); err != nil {
			sl.ReportError(d.EmailJS, "EmailJS", "emailjs", "driver_section", err.Error())
		}
	}
	if d.Uses("archive") {
		if err := sl.Validator().Struct(d.Archive); err != nil {
			sl.ReportError(d.Archive, "Archive", "archive", "driver_section", err.Error())
		}
	}
}

//
// public API
//

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
