// Package httpapi exposes the BookHive backend core over REST JSON
// endpoints under /api, with request middleware and a GET response
// cache in front of the read endpoints.
package httpapi

import (
	"encoding/json"
	"net/http"
)

// Machine-readable error codes returned alongside HTTP status.
const (
	codeValidation   = "VALIDATION_ERROR"
	codeUnauthorized = "AUTH_REQUIRED"
	codeForbidden    = "ADMIN_ONLY"
	codeNotFound     = "NOT_FOUND"
	codeConflict     = "VERSION_EXISTS"
	codeInternal     = "INTERNAL_ERROR"
)

// errorResponse is the error envelope for all non-2xx responses.
type errorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// writeValidationError reports field-level validation failures.
func writeValidationError(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:  "validation failed",
		Code:   codeValidation,
		Fields: fields,
	})
}
