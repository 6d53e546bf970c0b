package httpx

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/topdog/backend/internal/apperror"
)

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// errorBody is the uniform error envelope. Every failed request carries a
// taxonomy code and a request id for support lookups.
type errorBody struct {
	Code      apperror.Code `json:"code"`
	Message   string        `json:"message"`
	RequestID string        `json:"request_id"`
}

// writeError maps a service error onto the taxonomy envelope.
func writeError(w http.ResponseWriter, req *http.Request, err error) {
	code := apperror.CodeOf(err)
	writeErrorCode(w, req, code, apperror.MessageOf(err))
}

// writeErrorCode sends an explicit code and message.
func writeErrorCode(w http.ResponseWriter, req *http.Request, code apperror.Code, msg string) {
	writeJSON(w, apperror.HTTPStatus(code), map[string]errorBody{
		"error": {Code: code, Message: msg, RequestID: requestID(req)},
	})
}

// requestID echoes the caller's X-Request-ID or mints one.
func requestID(req *http.Request) string {
	if req != nil {
		if id := strings.TrimSpace(req.Header.Get("X-Request-ID")); id != "" {
			return id
		}
	}
	return uuid.NewString()
}
