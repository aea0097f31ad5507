package codec

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/go-playground/validator/v10"
)

var structValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	_ = v.RegisterValidation("kind", func(fl validator.FieldLevel) bool {
		return domain.Kind(fl.Field().String()).Valid()
	})

	// Report document field names instead of Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// FieldError describes a single structural problem in a document.
type FieldError struct {
	Field  string // Path of the offending field, e.g. "nodes[2].kind"
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// MalformedError aggregates every problem found in a document.
// It matches domain.ErrMalformedSnapshot with errors.Is.
type MalformedError struct {
	Fields []FieldError
}

func (e *MalformedError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("%s: %s", domain.ErrMalformedSnapshot, strings.Join(parts, "; "))
}

func (e *MalformedError) Unwrap() error {
	return domain.ErrMalformedSnapshot
}

func validate(doc Document) error {
	var fields []FieldError

	if doc.Version < 0 || doc.Version > CurrentVersion {
		fields = append(fields, FieldError{
			Field:  "version",
			Reason: fmt.Sprintf("unsupported version %d (max %d)", doc.Version, CurrentVersion),
		})
	}

	if err := structValidator.Struct(doc); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", domain.ErrMalformedSnapshot, err)
		}
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fieldPath(fe), Reason: reason(fe)})
		}
	}

	if len(fields) > 0 {
		return &MalformedError{Fields: fields}
	}
	return nil
}

// fieldPath strips the root struct name from the validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "kind":
		return fmt.Sprintf("unknown kind %q", fe.Value())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
