package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "github.com/Palak111111/Scrapify-server/pkg/errors"
	"github.com/Palak111111/Scrapify-server/pkg/logger"
	"github.com/Palak111111/Scrapify-server/pkg/validator"
)

// ErrorEnvelope is the body written for every failed request.
type ErrorEnvelope struct {
	Error *ErrorResponse `json:"error"`
}

// ErrorResponse represents an error in the standard response format.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteMessage writes {"message": msg}.
func WriteMessage(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"message": msg})
}

// WriteError maps err onto one of the fixed error kinds and writes it. Internal
// errors are logged with their cause and reported with a generic message. The
// request-scoped logger from context is preferred over fallback.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}
	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		writeValidation(w, valErr, requestID)
		return
	}

	kind := apperrors.KindOf(err)
	message := "an internal error occurred"

	var appErr *apperrors.AppError
	switch {
	case kind == apperrors.KindInternal:
		l.ErrorContext(r.Context(), "internal error",
			logger.Err(err),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	case errors.As(err, &appErr):
		message = appErr.Message
	case kind == apperrors.KindNotFound:
		message = "resource not found"
	case kind == apperrors.KindConflict:
		message = "resource was modified concurrently"
	case kind == apperrors.KindUnavailable:
		message = "service unavailable"
	default:
		message = err.Error()
	}

	WriteJSON(w, kind.Status(), ErrorEnvelope{
		Error: &ErrorResponse{Code: string(kind), Message: message, RequestID: requestID},
	})
}

// WriteValidationError writes a 400 response. Validator failures are itemized
// per field; any other error (malformed JSON, oversized body) is INVALID_INPUT.
func WriteValidationError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		writeValidation(w, valErr, requestID)
		return
	}

	WriteJSON(w, http.StatusBadRequest, ErrorEnvelope{
		Error: &ErrorResponse{Code: string(apperrors.KindInvalidInput), Message: err.Error(), RequestID: requestID},
	})
}

func writeValidation(w http.ResponseWriter, valErr *validator.ValidationError, requestID string) {
	WriteJSON(w, http.StatusBadRequest, ErrorEnvelope{
		Error: &ErrorResponse{
			Code:      string(apperrors.KindValidation),
			Message:   "request validation failed",
			Fields:    valErr.Fields(),
			RequestID: requestID,
		},
	})
}

// ParseObjectID validates that param is a 24-character hex object id. If it
// is not, a 400 response is written and false is returned so the caller can
// return early.
func ParseObjectID(w http.ResponseWriter, r *http.Request, param string) (string, bool) {
	if !primitive.IsValidObjectID(param) {
		WriteJSON(w, http.StatusBadRequest, ErrorEnvelope{
			Error: &ErrorResponse{
				Code:      string(apperrors.KindInvalidInput),
				Message:   "invalid id: " + param,
				RequestID: logger.CorrelationIDFromContext(r.Context()),
			},
		})
		return "", false
	}
	return param, true
}

// ParseFloat parses a finite numeric path parameter, writing a 400 response
// on failure. NaN and infinities are rejected.
func ParseFloat(w http.ResponseWriter, r *http.Request, name, param string) (float64, bool) {
	v, err := strconv.ParseFloat(param, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		WriteJSON(w, http.StatusBadRequest, ErrorEnvelope{
			Error: &ErrorResponse{
				Code:      string(apperrors.KindInvalidInput),
				Message:   "invalid " + name + ": " + param,
				RequestID: logger.CorrelationIDFromContext(r.Context()),
			},
		})
		return 0, false
	}
	return v, true
}
