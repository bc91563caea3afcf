package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string        `json:"error"`
	Code    string        `json:"code,omitempty"`
	Details []FieldDetail `json:"details,omitempty"`
}

// FieldDetail points a validation failure at a single request field
type FieldDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RespondJSON sends a JSON response with the given status code.
// Encoding failures go to the default slog logger, which both binaries
// point at their configured logging.Logger.
func RespondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err.Error(), "status", statusCode)
	}
}

// RespondError sends a JSON error response with the given message and status code.
func RespondError(w http.ResponseWriter, message string, statusCode int) {
	RespondJSON(w, ErrorResponse{Error: message}, statusCode)
}

// RespondErrorWithCode sends a JSON error response with a machine-readable error code.
func RespondErrorWithCode(w http.ResponseWriter, message string, code string, statusCode int) {
	RespondJSON(w, ErrorResponse{Error: message, Code: code}, statusCode)
}

// RespondValidationError sends a 400 response naming the offending fields.
func RespondValidationError(w http.ResponseWriter, message string, details ...FieldDetail) {
	RespondJSON(w, ErrorResponse{Error: message, Code: CodeValidationFailed, Details: details}, http.StatusBadRequest)
}

// DecodeJSON decodes the request body into dst. Unknown fields are ignored.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

const maxBodyBytes = 1 << 20
