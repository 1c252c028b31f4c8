package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/soobo/sleeptype/internal/session"
	"github.com/soobo/sleeptype/internal/sleeptype"
)

// fromService maps a session service error to a response. failMsg is the
// message used when the store itself failed.
func (e errorWriter) fromService(w http.ResponseWriter, r *http.Request, err error, failMsg string) {
	var verr *sleeptype.ValidationError
	switch {
	case errors.Is(err, session.ErrNotFound):
		e.write(w, r, http.StatusNotFound, codeNotFound, "ErrSessionNotFound")
	case errors.Is(err, session.ErrAlreadyCompleted):
		e.write(w, r, http.StatusBadRequest, codeAlreadyCompleted, "ErrSessionCompleted")
	case errors.As(err, &verr):
		e.writeData(w, r, http.StatusBadRequest, codeValidation, "ErrInvalidAnswer", map[string]any{"Detail": verr.Error()})
	default:
		e.storage(w, r, err, failMsg)
	}
}

func (e errorWriter) storage(w http.ResponseWriter, r *http.Request, err error, failMsg string) {
	e.logger.Error("request failed",
		"path", r.URL.Path,
		"error", err,
		"request_id", middleware.GetReqID(r.Context()),
	)
	e.write(w, r, http.StatusInternalServerError, codeStorage, failMsg)
}

// badBody reports a request body that could not be decoded.
func (e errorWriter) badBody(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		e.write(w, r, http.StatusRequestEntityTooLarge, codeValidation, "ErrInvalidBody")
		return
	}
	e.write(w, r, http.StatusBadRequest, codeValidation, "ErrInvalidBody")
}
