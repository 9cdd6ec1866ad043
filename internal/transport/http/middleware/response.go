package middleware

import (
	"encoding/json"
	"net/http"
)

// rejection mirrors the handler package's error envelope so clients parse one
// shape whether a request fails in middleware or in a handler.
type rejection struct {
	Error     string `json:"error"`
	ErrorCode int    `json:"error_code"`
}

// reject ends the request with status and a JSON rejection body. Unauthorized
// responses carry a Bearer challenge.
func reject(w http.ResponseWriter, status int, msg string) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	if status == http.StatusUnauthorized {
		h.Set("WWW-Authenticate", `Bearer realm="notifier"`)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(rejection{Error: msg, ErrorCode: status})
}
