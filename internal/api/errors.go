package api

import (
	"encoding/json"
	"net/http"
)

// Error codes returned in error bodies.
const (
	ErrCodeInvalidPath   = "invalid_path"
	ErrCodeInvalidFilter = "invalid_filter"
	ErrCodeInvalidBody   = "invalid_body"
	ErrCodeInvalidPage   = "invalid_page"
	ErrCodeNotFound      = "not_found"
	ErrCodeMalformed     = "malformed_document"
	ErrCodeInternal      = "internal_error"
	ErrCodeNoFile        = "no_file"
	ErrCodeWriteFailed   = "write_failed"
)

// Error is the JSON body of every non-2xx response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewError creates a new Error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func writeError(w http.ResponseWriter, status int, e *Error) {
	writeJSON(w, status, e)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	// The header is already written; a failed encode can only be dropped.
	_ = enc.Encode(v)
}
