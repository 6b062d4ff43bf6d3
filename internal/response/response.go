// Package response provides shared response helpers for HTTP handlers.
package response

import (
	"encoding/json"
	"net/http"
)

// Envelope is the share-handle provider's response shape.
type Envelope struct {
	OK             bool   `json:"ok"`
	ID             string `json:"id,omitempty"`
	ExpirationDate int64  `json:"expiration_date,omitempty"`
	Error          string `json:"error,omitempty"`
}

// JSON writes a JSON-encoded payload with the given HTTP status code.
func JSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Text writes a plain-text body with the given HTTP status code.
func Text(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// Prepared writes a 200 success envelope for a prepared message.
func Prepared(w http.ResponseWriter, id string, expiresAt int64) {
	JSON(w, http.StatusOK, Envelope{OK: true, ID: id, ExpirationDate: expiresAt})
}

// Fail writes a failure envelope with the given status and message.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{OK: false, Error: message})
}

// BadRequest writes a plain-text 400 response.
func BadRequest(w http.ResponseWriter, message string) {
	Text(w, http.StatusBadRequest, message)
}

// TooLarge writes a plain-text 413 response.
func TooLarge(w http.ResponseWriter, message string) {
	Text(w, http.StatusRequestEntityTooLarge, message)
}

// NotFound writes the plain-text 404 used for every unknown route.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	Text(w, http.StatusNotFound, "Not found")
}

// InternalError writes a 500 response with a generic message.
func InternalError(w http.ResponseWriter) {
	Text(w, http.StatusInternalServerError, "internal server error")
}
