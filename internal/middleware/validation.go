package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/patrickmlong/Data-Intensive-PML/internal/errors"
)

// DefaultMaxBodySize bounds JSON request bodies
const DefaultMaxBodySize = 1 << 20

// RequestValidator decodes JSON bodies and validates them using struct tags
type RequestValidator struct {
	validator    *validator.Validate
	errorHandler *apperrors.ErrorHandler
	maxBodySize  int64
}

// NewRequestValidator creates a validator reporting failures through errorHandler
func NewRequestValidator(errorHandler *apperrors.ErrorHandler) *RequestValidator {
	v := validator.New()

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &RequestValidator{
		validator:    v,
		errorHandler: errorHandler,
		maxBodySize:  DefaultMaxBodySize,
	}
}

// DecodeJSON reads the body into dst and validates it. An empty body leaves
// dst at its zero value. On failure it writes the problem response and
// returns false.
func (rv *RequestValidator) DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body != nil {
		dec := json.NewDecoder(io.LimitReader(r.Body, rv.maxBodySize))
		dec.DisallowUnknownFields()
		if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
			rv.errorHandler.HandleValidation(w, r, []apperrors.ValidationError{{
				Field:   "body",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			}})
			return false
		}
	}

	if fields := rv.ValidateStruct(dst); len(fields) > 0 {
		rv.errorHandler.HandleValidation(w, r, fields)
		return false
	}
	return true
}

// ValidateStruct returns one entry per invalid field
func (rv *RequestValidator) ValidateStruct(v interface{}) []apperrors.ValidationError {
	err := rv.validator.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []apperrors.ValidationError{{Field: "body", Message: err.Error()}}
	}
	out := make([]apperrors.ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, apperrors.ValidationError{
			Field:   fe.Namespace()[strings.Index(fe.Namespace(), ".")+1:],
			Message: formatValidationError(fe),
		})
	}
	return out
}

// QueryInt parses an integer query parameter within [min, max]. A missing
// parameter gives def. On failure it writes the problem response.
func (rv *RequestValidator) QueryInt(w http.ResponseWriter, r *http.Request, param string, min, max, def int) (int, bool) {
	value := r.URL.Query().Get(param)
	if value == "" {
		return def, true
	}

	n, err := strconv.Atoi(value)
	if err != nil || n < min || n > max {
		rv.errorHandler.HandleValidation(w, r, []apperrors.ValidationError{{
			Field:   param,
			Message: fmt.Sprintf("%s must be an integer between %d and %d", param, min, max),
		}})
		return 0, false
	}
	return n, true
}

// QueryEnum checks a query parameter against allowed values
func (rv *RequestValidator) QueryEnum(w http.ResponseWriter, r *http.Request, param string, allowed []string, def string) (string, bool) {
	value := r.URL.Query().Get(param)
	if value == "" {
		return def, true
	}
	for _, a := range allowed {
		if value == a {
			return value, true
		}
	}
	rv.errorHandler.HandleValidation(w, r, []apperrors.ValidationError{{
		Field:   param,
		Message: fmt.Sprintf("%s must be one of: %s", param, strings.Join(allowed, ", ")),
	}})
	return "", false
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "unique":
		return fmt.Sprintf("%s must not contain duplicates", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}
