// Package shared holds the JSON request/response helpers used by every
// handler package.
package shared

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "tuitionhub/pkg/domain-errors"
	"tuitionhub/pkg/requestcontext"
)

// ErrorResponse is the error body for every non-2xx API response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError maps a domain error to its HTTP status and writes the standard
// error body. Unexpected errors get a generic 500 so internals never leak.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)
	message := dErrors.MessageOf(err)

	if status >= http.StatusInternalServerError {
		if code == dErrors.CodeInternal {
			message = "internal server error"
		}
		logger.ErrorContext(r.Context(), "request failed",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
	}

	WriteJSON(w, status, ErrorResponse{
		Error:            string(code),
		ErrorDescription: message,
	})
}

// DecodeJSON decodes the request body, rejecting trailing garbage.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	if dec.More() {
		return dErrors.New(dErrors.CodeBadRequest, "request body must contain a single JSON object")
	}
	return nil
}
