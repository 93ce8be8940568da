// Package validation runs go-playground struct validation and converts its
// failures into field errors addressed by JSON path ("lines[1].quantity").
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/types"
)

// embeddedMarker names anonymous struct fields so they can be dropped from paths.
const embeddedMarker = "~"

var (
	once     sync.Once
	validate *validator.Validate
)

// Validator returns the shared, fully configured validator instance.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			if fld.Anonymous {
				return embeddedMarker
			}
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			switch name {
			case "-":
				return "-"
			case "":
				return fld.Name
			}
			return name
		})
		if err := v.RegisterValidation("whole", wholeQuantity); err != nil {
			panic(fmt.Sprintf("register whole validator: %v", err))
		}
		if err := v.RegisterValidation("differs", differsFrom); err != nil {
			panic(fmt.Sprintf("register differs validator: %v", err))
		}
		validate = v
	})
	return validate
}

// wholeQuantity accepts quantities without a fractional part.
func wholeQuantity(fl validator.FieldLevel) bool {
	f := fl.Field()
	switch f.Kind() {
	case reflect.Int64:
		return f.Int()%types.QuantityScale == 0
	default:
		return false
	}
}

// differsFrom requires the field to differ from the sibling field named by the
// tag parameter. Unlike nefield it compares values, so fixed-size arrays such
// as uuids are compared byte for byte instead of by length.
func differsFrom(fl validator.FieldLevel) bool {
	parent := reflect.Indirect(fl.Parent())
	if parent.Kind() != reflect.Struct {
		return false
	}
	other := parent.FieldByName(fl.Param())
	field := fl.Field()
	if !other.IsValid() || other.Type() != field.Type() || !field.Type().Comparable() {
		return false
	}
	return field.Interface() != other.Interface()
}

// Struct validates s and returns every failure; the result is empty when s is valid.
func Struct(s any) apperror.FieldErrors {
	var out apperror.FieldErrors

	err := Validator().Struct(s)
	if err == nil {
		return out
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out.Add("", apperror.CodeInvalid, err.Error())
		return out
	}
	for _, fe := range verrs {
		code, msg := describe(fe)
		out.Add(fieldPath(fe.Namespace()), code, msg)
	}
	return out
}

// Check is Struct returning an error, for call sites that do not aggregate.
func Check(s any) error {
	return Struct(s).Err()
}

// fieldPath converts "Inward.~.~.date" to "date" and "Inward.lines[0].quantity"
// to "lines[0].quantity".
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 0 {
		parts = parts[1:]
	}
	kept := parts[:0]
	for _, p := range parts {
		if p == embeddedMarker {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, ".")
}

func describe(fe validator.FieldError) (code, message string) {
	name := fe.Field()
	switch fe.Tag() {
	case "required", "required_if", "required_with":
		return apperror.CodeRequired, fmt.Sprintf("%s is required", name)
	case "min":
		if fe.Kind() == reflect.Slice {
			return apperror.CodeRequired, fmt.Sprintf("%s must contain at least %s entries", name, fe.Param())
		}
		return apperror.CodeInvalid, fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "max":
		return apperror.CodeInvalid, fmt.Sprintf("%s must be at most %s long", name, fe.Param())
	case "gt":
		return apperror.CodeInvalid, fmt.Sprintf("%s must be greater than %s", name, fe.Param())
	case "gte":
		return apperror.CodeInvalid, fmt.Sprintf("%s must not be negative", name)
	case "whole":
		return apperror.CodeInvalid, fmt.Sprintf("%s must be a whole number", name)
	case "oneof":
		return apperror.CodeInvalid, fmt.Sprintf("%s must be one of: %s", name, fe.Param())
	case "differs", "nefield":
		return apperror.CodeInvalid, fmt.Sprintf("%s must differ from %s", name, fe.Param())
	}
	return apperror.CodeInvalid, fmt.Sprintf("%s failed %s validation", name, fe.Tag())
}
