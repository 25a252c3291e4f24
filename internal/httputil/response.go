package httputil

import (
	"encoding/json"
	"net/http"

	apperrors "whatsrelay/internal/errors"
	"whatsrelay/internal/tracing"
)

// Response is the envelope every admin API endpoint answers with
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// WriteJSON writes v with the given status code
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData wraps data in a successful envelope
func WriteData(w http.ResponseWriter, status int, data interface{}) {
	WriteJSON(w, status, Response{Success: true, Data: data})
}

// WriteMessage answers with a successful envelope carrying only a message
func WriteMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{Success: true, Message: message})
}

// WriteError maps err to its HTTP status and writes the error envelope.
// Internal causes never reach the caller.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	WriteJSON(w, apperrors.HTTPStatusCode(err), apperrors.ToHTTPResponse(err, tracing.GetRequestID(r.Context())))
}
