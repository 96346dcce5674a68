package incident

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ShanTirmizi/incident-response-system/internal/services"
)

// ISODateTimeHint is the guidance shown when a date-time fails validation.
const ISODateTimeHint = `must be ISO 8601 format (e.g., "2025-01-31T14:30:00")`

// ValidationError lists field problems as "field: message" strings.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return services.ErrValidation.Error()
	}
	return services.ErrValidation.Error() + ": " + strings.Join(e.Fields, "; ")
}

// Unwrap tags every ValidationError with services.ErrValidation.
func (e *ValidationError) Unwrap() error {
	return services.ErrValidation
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator with the incident tags registered
// and JSON field names used in error paths.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return field.Name
			}
			return name
		})
		mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		mustRegister(v, "isodatetime", func(fl validator.FieldLevel) bool {
			_, ok := ParseISODateTime(fl.Field().String())
			return ok
		})
		validate = v
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validator: %v", tag, err))
	}
}

// ValidateStruct runs struct validation and converts failures into a
// *ValidationError.
func ValidateStruct(value any) error {
	err := Validator().Struct(value)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Fields: []string{err.Error()}}
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fieldPath(fe)+": "+fieldMessage(fe))
	}
	return &ValidationError{Fields: fields}
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "notblank":
		return "must not be empty or whitespace only"
	case "isodatetime":
		return ISODateTimeHint
	case "min":
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map {
			return "must contain at least " + fe.Param() + " item(s)"
		}
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return fe.Error()
	}
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
}

// ParseISODateTime accepts ISO 8601 date-times that carry a time component
// (the 'T' separator is mandatory).
func ParseISODateTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if !strings.Contains(value, "T") {
		return time.Time{}, false
	}
	for _, layout := range isoLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// FormatISODateTime renders t in the layout the form expects.
func FormatISODateTime(t time.Time) string {
	return t.Format("2006-01-02T15:04:05")
}

// Validate checks the form's field constraints.
func (f IncidentForm) Validate() error { return ValidateStruct(f) }

// Validate checks recipient and length constraints.
func (d DraftEmail) Validate() error { return ValidateStruct(d) }

// Validate checks every section of the result.
func (r AnalysisResult) Validate() error { return ValidateStruct(r) }
