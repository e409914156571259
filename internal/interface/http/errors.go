package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/academy-hub/attendance-hub/internal/domain/attendance"
	"github.com/academy-hub/attendance-hub/internal/domain/shared"
	"github.com/academy-hub/attendance-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeError maps a handler error onto the JSON envelope. Only unexpected
// errors are logged; domain rejections are the caller's concern.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var checkedOut *attendance.AlreadyCheckedOutError
	var fieldErrs validator.ValidationErrors

	switch {
	case errors.As(err, &checkedOut):
		writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "already_checked_out", shared.ErrAlreadyCheckedOut.Message,
			map[string]interface{}{"check_out_time": checkedOut.CheckOutTime})
	case errors.Is(err, shared.ErrAlreadyCheckedOut):
		writeJSONError(w, r, http.StatusBadRequest, "already_checked_out", shared.ErrAlreadyCheckedOut.Message)
	case errors.As(err, &fieldErrs):
		writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "validation_failed", "Request validation failed",
			map[string]interface{}{"fields": describeFieldErrors(fieldErrs)})
	case shared.IsNotFound(err):
		writeJSONError(w, r, http.StatusNotFound, "not_found", message(err))
	case shared.IsValidation(err):
		writeJSONError(w, r, http.StatusBadRequest, "invalid_request", message(err))
	case shared.IsStateTransition(err), shared.IsConflict(err):
		writeJSONError(w, r, http.StatusConflict, "state_conflict", message(err))
	case errors.Is(err, shared.ErrForbidden):
		writeJSONError(w, r, http.StatusForbidden, "forbidden", message(err))
	case shared.IsUnauthorized(err):
		writeJSONError(w, r, http.StatusUnauthorized, "unauthorized", message(err))
	default:
		logger.FromContext(r.Context()).Error("request failed",
			logger.String("path", r.URL.Path),
			logger.Err(err),
		)
		writeJSONError(w, r, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
	}
}

// message returns the human part of a domain error, falling back to the
// full error text.
func message(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

func describeFieldErrors(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			out[fe.Field()] = "is required"
		case "oneof":
			out[fe.Field()] = "must be one of: " + fe.Param()
		case "datetime":
			out[fe.Field()] = "must be formatted as " + fe.Param()
		default:
			out[fe.Field()] = "failed " + fe.Tag()
		}
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST DECODING
// ══════════════════════════════════════════════════════════════════════════════

var errMalformedBody = shared.NewDomainError("http", "Decode", shared.ErrInvalidFormat, "request body is not valid JSON")

// decodeJSON reads the body into dst and validates it. An empty body is
// accepted when allowEmpty is set.
func (s *Server) decodeJSON(r *http.Request, dst interface{}, allowEmpty bool) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			return shared.WrapError("http", "Decode", shared.ErrInvalidFormat, errMalformedBody.Message, err)
		}
	}
	return s.validate.Struct(dst)
}

// jsonFieldName reports validation failures by their JSON names.
func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}
