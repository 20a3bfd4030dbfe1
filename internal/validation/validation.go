// Package validation normalizes user payloads and collects every field
// violation before anything reaches storage.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/akashipov/userdirectory/internal/storage/user"
	"github.com/go-playground/validator/v10"
)

var phoneRe = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)

var messages = map[string]string{
	"name":            "Name must be between 2 and 50 characters",
	"email":           "Please provide a valid email",
	"phone":           "Please provide a valid phone number",
	"company":         "Company name must be between 2 and 100 characters",
	"address.street":  "Street address is required",
	"address.city":    "City is required",
	"address.zipcode": "Zipcode is required",
	"address.geo.lat": "Latitude must be between -90 and 90",
	"address.geo.lng": "Longitude must be between -180 and 180",
	"confirmation":    "Confirmation must be between 2 and 100 characters",
}

type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error carries all violations found in one payload.
type Error struct {
	Violations []Violation
}

func (e *Error) Error() string {
	fields := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		fields = append(fields, v.Field)
	}
	return "validation failed: " + strings.Join(fields, ", ")
}

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phoneRe.MatchString(fl.Field().String())
	})
	return &Validator{v: v}
}

// Check normalizes in place and returns the violations in field order.
func (val *Validator) Check(in *user.Input) []Violation {
	in.Normalize()
	err := val.v.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Violation{{Field: "body", Message: err.Error()}}
	}
	res := make([]Violation, 0, len(verrs))
	for _, fe := range verrs {
		field := fieldPath(fe.Namespace())
		msg, ok := messages[field]
		if !ok {
			msg = fe.Error()
		}
		res = append(res, Violation{Field: field, Message: msg})
	}
	return res
}

// Validate is Check wrapped into an error; nil means the payload is valid.
func (val *Validator) Validate(in *user.Input) error {
	if vs := val.Check(in); len(vs) > 0 {
		return &Error{Violations: vs}
	}
	return nil
}

// fieldPath drops the root struct name: "Input.address.geo.lat" -> "address.geo.lat".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
