package daemon

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Response is the JSON envelope every API endpoint returns. Code 0 means
// success; any other code is an application-level error.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// RespondData writes a success envelope.
func RespondData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Code: 0, Message: "ok", Data: data})
}

// RespondError writes an error envelope with the given HTTP status. The
// envelope code mirrors the status.
func RespondError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Code: status, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
