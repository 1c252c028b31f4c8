package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/soobo/sleeptype/internal/i18n"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

const (
	codeValidation       = "validation"
	codeNotFound         = "not_found"
	codeAlreadyCompleted = "already_completed"
	codeStorage          = "storage"
	codeRateLimited      = "rate_limited"
	codeUnauthorized     = "unauthorized"
	codeInternal         = "internal"
)

var errEmptyBody = errors.New("empty request body")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// readJSON decodes at most limit bytes of the body into v. An empty body
// yields errEmptyBody.
func readJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	defer r.Body.Close()
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(v)
	if errors.Is(err, io.EOF) {
		return errEmptyBody
	}
	return err
}

// errorWriter writes localized error bodies.
type errorWriter struct {
	msgs   *i18n.Bundle
	logger *slog.Logger
}

func (e errorWriter) write(w http.ResponseWriter, r *http.Request, status int, code, msgID string) {
	writeJSON(w, status, ErrorResponse{
		Error: e.msgs.T(r.Context(), msgID),
		Code:  code,
	})
}

func (e errorWriter) writeData(w http.ResponseWriter, r *http.Request, status int, code, msgID string, data map[string]any) {
	writeJSON(w, status, ErrorResponse{
		Error: e.msgs.Td(r.Context(), msgID, data),
		Code:  code,
	})
}
