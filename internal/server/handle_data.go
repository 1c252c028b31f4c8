package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/soobo/sleeptype/internal/store"
)

// DataStore serves the read-only analytics projections.
type DataStore interface {
	Stats(ctx context.Context, now time.Time) (store.Stats, error)
	ListSessions(ctx context.Context, f store.SessionFilter) (store.SessionPage, error)
	AnswerAnalysis(ctx context.Context, questionID string) ([]store.QuestionAnalysis, error)
}

type AnswerAnalysisResponse struct {
	QuestionID string                   `json:"questionId,omitempty"`
	Questions  []store.QuestionAnalysis `json:"questions"`
}

const dateLayout = "2006-01-02"

func handleStats(data DataStore, errs errorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := data.Stats(r.Context(), time.Now())
		if err != nil {
			errs.storage(w, r, err, "ErrStats")
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func handleListSessions(data DataStore, errs errorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, bad := parseSessionFilter(r)
		if bad != "" {
			errs.writeData(w, r, http.StatusBadRequest, codeValidation, "ErrInvalidQuery", map[string]any{"Param": bad})
			return
		}

		page, err := data.ListSessions(r.Context(), f)
		if err != nil {
			errs.storage(w, r, err, "ErrSessionList")
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

// parseSessionFilter reads the list query. On failure it returns the name
// of the offending parameter.
func parseSessionFilter(r *http.Request) (store.SessionFilter, string) {
	q := r.URL.Query()
	f := store.SessionFilter{
		Page:       1,
		Limit:      store.DefaultPageSize,
		ResultType: q.Get("resultType"),
	}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, "page"
		}
		f.Page = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, "limit"
		}
		f.Limit = min(n, store.MaxPageSize)
	}
	if v := q.Get("completed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, "completed"
		}
		f.Completed = &b
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{
		{"startDate", &f.Start},
		{"endDate", &f.End},
	} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		t, err := parseDate(v)
		if err != nil {
			return f, p.name
		}
		*p.dst = &t
	}
	return f, ""
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, v); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}

func handleAnswerAnalysis(data DataStore, errs errorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionID := r.URL.Query().Get("questionId")
		questions, err := data.AnswerAnalysis(r.Context(), questionID)
		if err != nil {
			errs.storage(w, r, err, "ErrAnalysis")
			return
		}
		if questions == nil {
			questions = []store.QuestionAnalysis{}
		}
		writeJSON(w, http.StatusOK, AnswerAnalysisResponse{QuestionID: questionID, Questions: questions})
	}
}
