package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/soobo/sleeptype/internal/ratelimit"
	"github.com/soobo/sleeptype/internal/session"
	"github.com/soobo/sleeptype/internal/sleeptype"
)

type StartSessionResponse struct {
	SessionID string `json:"sessionId"`
}

type SubmitAnswersRequest struct {
	Answers *[]sleeptype.Answer `json:"answers" required:"true"`
}

type SubmitAnswersResponse struct {
	SessionID    string `json:"sessionId"`
	TotalAnswers int    `json:"totalAnswers"`
}

// CompleteSessionRequest carries optional late answers. A client-computed
// result is accepted for compatibility but never persisted.
type CompleteSessionRequest struct {
	Answers      []sleeptype.Answer `json:"answers,omitempty"`
	ResultType   string             `json:"resultType,omitempty"`
	ResultScores json.RawMessage    `json:"resultScores,omitempty"`
}

type CompleteSessionResponse struct {
	SessionID    string           `json:"sessionId"`
	ResultType   string           `json:"resultType"`
	ResultScores sleeptype.Scores `json:"resultScores"`
	CompletedAt  time.Time        `json:"completedAt"`
	TotalAnswers int              `json:"totalAnswers"`
	// ResultDetail is the catalogue entry for the scored axis key.
	ResultDetail *sleeptype.ResultType `json:"resultDetail,omitempty"`
}

// SessionView is the public shape of a session. Client info stays private.
type SessionView struct {
	SessionID    string             `json:"sessionId"`
	Answers      []sleeptype.Answer `json:"answers"`
	IsCompleted  bool               `json:"isCompleted"`
	ResultType   *string            `json:"resultType"`
	ResultScores *sleeptype.Scores  `json:"resultScores"`
	TotalAnswers int                `json:"totalAnswers"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
	CompletedAt  *time.Time         `json:"completedAt"`
}

func newSessionView(s session.Session) SessionView {
	return SessionView{
		SessionID:    s.ID,
		Answers:      s.Answers.Answers(),
		IsCompleted:  s.IsCompleted,
		ResultType:   s.ResultType,
		ResultScores: s.ResultScores,
		TotalAnswers: s.Answers.Len(),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		CompletedAt:  s.CompletedAt,
	}
}

func handleStartSession(svc *session.Service, errs errorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := svc.Start(r.Context(), session.ClientInfo{
			UserAgent: r.UserAgent(),
			IPAddress: ratelimit.ClientKey(r),
		})
		if err != nil {
			errs.fromService(w, r, err, "ErrSessionCreate")
			return
		}
		writeJSON(w, http.StatusCreated, StartSessionResponse{SessionID: sess.ID})
	}
}

func handleSubmitAnswers(svc *session.Service, maxBody int64, errs errorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SubmitAnswersRequest
		if err := readJSON(w, r, maxBody, &req); err != nil {
			if errors.Is(err, errEmptyBody) {
				errs.write(w, r, http.StatusBadRequest, codeValidation, "ErrAnswersRequired")
				return
			}
			errs.badBody(w, r, err)
			return
		}
		if req.Answers == nil {
			errs.write(w, r, http.StatusBadRequest, codeValidation, "ErrAnswersRequired")
			return
		}

		sess, err := svc.SubmitAnswers(r.Context(), chi.URLParam(r, "sessionId"), *req.Answers)
		if err != nil {
			errs.fromService(w, r, err, "ErrAnswersSave")
			return
		}
		writeJSON(w, http.StatusOK, SubmitAnswersResponse{
			SessionID:    sess.ID,
			TotalAnswers: sess.Answers.Len(),
		})
	}
}

func handleCompleteSession(svc *session.Service, broker *Broker, maxBody int64, errs errorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CompleteSessionRequest
		if err := readJSON(w, r, maxBody, &req); err != nil && !errors.Is(err, errEmptyBody) {
			errs.badBody(w, r, err)
			return
		}

		creq := session.CompleteRequest{Answers: req.Answers, ResultType: req.ResultType}
		if len(req.ResultScores) > 0 {
			var sc sleeptype.Scores
			if json.Unmarshal(req.ResultScores, &sc) == nil {
				creq.ResultScores = &sc
			}
		}

		sess, err := svc.Complete(r.Context(), chi.URLParam(r, "sessionId"), creq)
		if err != nil {
			errs.fromService(w, r, err, "ErrSessionComplete")
			return
		}

		resp := CompleteSessionResponse{
			SessionID:    sess.ID,
			ResultType:   *sess.ResultType,
			ResultScores: *sess.ResultScores,
			CompletedAt:  *sess.CompletedAt,
			TotalAnswers: sess.Answers.Len(),
		}
		if rt, ok := svc.Table().Lookup(resp.ResultScores.Key()); ok {
			resp.ResultDetail = &rt
		}
		broker.Publish(CompletionEvent{
			Type:        "session_completed",
			SessionID:   resp.SessionID,
			ResultType:  resp.ResultType,
			CompletedAt: resp.CompletedAt,
		})
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleGetSession(svc *session.Service, errs errorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := svc.Get(r.Context(), chi.URLParam(r, "sessionId"))
		if err != nil {
			errs.fromService(w, r, err, "ErrSessionGet")
			return
		}
		writeJSON(w, http.StatusOK, newSessionView(sess))
	}
}

// ResultTypeItem is one entry of the result catalogue.
type ResultTypeItem struct {
	sleeptype.ResultType
	Label string `json:"label"`
}

func handleListTypes(table sleeptype.Table) http.HandlerFunc {
	items := make([]ResultTypeItem, len(table.Types))
	for i, rt := range table.Types {
		items[i] = ResultTypeItem{ResultType: rt, Label: rt.Label()}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, items)
	}
}
