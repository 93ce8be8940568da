package apperror

import (
	"fmt"
	"net/http"
)

// FieldError attributes a failure to one input field, e.g. "lines[2].quantity".
// An empty Field refers to the submission as a whole.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (f FieldError) String() string {
	if f.Field == "" {
		return fmt.Sprintf("%s: %s", f.Code, f.Message)
	}
	return fmt.Sprintf("%s %s: %s", f.Field, f.Code, f.Message)
}

// FieldErrors accumulates failures so a submission reports all of them at once.
type FieldErrors []FieldError

// Add records a failure.
func (fe *FieldErrors) Add(field, code, message string) {
	*fe = append(*fe, FieldError{Field: field, Code: code, Message: message})
}

// Addf records a failure with a formatted message.
func (fe *FieldErrors) Addf(field, code, format string, args ...any) {
	fe.Add(field, code, fmt.Sprintf(format, args...))
}

// Merge absorbs err into the collection when it is a client-side failure
// (400 or 404) and returns nil; any other error is returned unchanged.
func (fe *FieldErrors) Merge(field string, err error) error {
	if err == nil {
		return nil
	}
	appErr, ok := AsAppError(err)
	if !ok {
		return err
	}
	switch appErr.HTTPStatus {
	case http.StatusBadRequest, http.StatusNotFound:
	default:
		return err
	}
	if len(appErr.Fields) > 0 {
		*fe = append(*fe, appErr.Fields...)
		return nil
	}
	fe.Add(field, appErr.Code, appErr.Message)
	return nil
}

// Empty reports whether no failure was recorded.
func (fe FieldErrors) Empty() bool { return len(fe) == 0 }

// Err returns nil when empty. Otherwise it returns a single 400 AppError
// listing every field error. When all entries share one code that code is
// used for the error itself, so an out-of-period-only submission surfaces
// as OUT_OF_PERIOD rather than the generic VALIDATION_ERROR.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	code := fe[0].Code
	for _, f := range fe[1:] {
		if f.Code != code {
			code = CodeValidation
			break
		}
	}
	switch code {
	case CodeOutOfPeriod, CodeOverReturn:
	default:
		code = CodeValidation
	}

	msg := fe[0].Message
	if len(fe) > 1 {
		msg = fmt.Sprintf("%d validation errors", len(fe))
	}
	return &AppError{
		Code:       code,
		Message:    msg,
		Fields:     append([]FieldError(nil), fe...),
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewFieldError is shorthand for a single-field validation failure.
func NewFieldError(field, code, message string) *AppError {
	var fe FieldErrors
	fe.Add(field, code, message)
	return fe.Err().(*AppError)
}
