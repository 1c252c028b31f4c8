package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/soobo/sleeptype/internal/session"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	dailyWindowDays = 30
)

type ResultCount struct {
	ResultType string `json:"resultType"`
	Count      int    `json:"count"`
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type Stats struct {
	TotalSessions          int           `json:"totalSessions"`
	CompletedSessions      int           `json:"completedSessions"`
	IncompleteSessions     int           `json:"incompleteSessions"`
	CompletionRate         float64       `json:"completionRate"`
	ResultDistribution     []ResultCount `json:"resultDistribution"`
	DailyCompletions       []DailyCount  `json:"dailyCompletions"`
	AvgResponseTimeMinutes int           `json:"avgResponseTimeMinutes"`
}

// Stats summarizes all sessions. Daily completions cover the 30 days
// before now.
func (s *DocStore) Stats(ctx context.Context, now time.Time) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(is_completed), 0) FROM sessions`,
	).Scan(&st.TotalSessions, &st.CompletedSessions)
	if err != nil {
		return Stats{}, fmt.Errorf("counting sessions: %w", err)
	}
	st.IncompleteSessions = st.TotalSessions - st.CompletedSessions
	if st.TotalSessions > 0 {
		rate := float64(st.CompletedSessions) / float64(st.TotalSessions) * 100
		st.CompletionRate = math.Round(rate*100) / 100
	}

	st.ResultDistribution, err = s.resultDistribution(ctx)
	if err != nil {
		return Stats{}, err
	}

	since := formatTime(now.AddDate(0, 0, -dailyWindowDays))
	st.DailyCompletions, err = s.dailyCompletions(ctx, since)
	if err != nil {
		return Stats{}, err
	}

	var avg sql.NullFloat64
	err = s.db.QueryRowContext(ctx, `
		SELECT AVG((julianday(completed_at) - julianday(created_at)) * 1440)
		FROM sessions
		WHERE is_completed = 1 AND completed_at IS NOT NULL
	`).Scan(&avg)
	if err != nil {
		return Stats{}, fmt.Errorf("averaging response time: %w", err)
	}
	if avg.Valid {
		st.AvgResponseTimeMinutes = int(math.Round(avg.Float64))
	}
	return st, nil
}

func (s *DocStore) resultDistribution(ctx context.Context) ([]ResultCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT result_type, COUNT(*) AS n
		FROM sessions
		WHERE is_completed = 1 AND result_type IS NOT NULL
		GROUP BY result_type
		ORDER BY n DESC, result_type
	`)
	if err != nil {
		return nil, fmt.Errorf("result distribution: %w", err)
	}
	defer rows.Close()

	out := []ResultCount{}
	for rows.Next() {
		var rc ResultCount
		if err := rows.Scan(&rc.ResultType, &rc.Count); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

func (s *DocStore) dailyCompletions(ctx context.Context, since string) ([]DailyCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(completed_at, 1, 10) AS day, COUNT(*)
		FROM sessions
		WHERE is_completed = 1 AND completed_at >= ?
		GROUP BY day
		ORDER BY day
	`, since)
	if err != nil {
		return nil, fmt.Errorf("daily completions: %w", err)
	}
	defer rows.Close()

	out := []DailyCount{}
	for rows.Next() {
		var dc DailyCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, err
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}

// SessionFilter selects sessions for ListSessions. Start and End are
// calendar days in UTC; End is inclusive.
type SessionFilter struct {
	Page       int
	Limit      int
	Completed  *bool
	ResultType string
	Start      *time.Time
	End        *time.Time
}

func (f SessionFilter) normalized() SessionFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	return f
}

type SessionSummary struct {
	session.Session
	TotalAnswers        int  `json:"totalAnswers"`
	ResponseTimeMinutes *int `json:"responseTimeMinutes"`
}

type Pagination struct {
	CurrentPage  int  `json:"currentPage"`
	TotalPages   int  `json:"totalPages"`
	TotalItems   int  `json:"totalItems"`
	ItemsPerPage int  `json:"itemsPerPage"`
	HasNextPage  bool `json:"hasNextPage"`
	HasPrevPage  bool `json:"hasPrevPage"`
}

// PageSummary counts completion within the returned page.
type PageSummary struct {
	TotalSessions      int `json:"totalSessions"`
	CompletedSessions  int `json:"completedSessions"`
	IncompleteSessions int `json:"incompleteSessions"`
}

type SessionPage struct {
	Sessions   []SessionSummary `json:"sessions"`
	Pagination Pagination       `json:"pagination"`
	Summary    PageSummary      `json:"summary"`
}

// ListSessions returns one page of sessions, newest first.
func (s *DocStore) ListSessions(ctx context.Context, f SessionFilter) (SessionPage, error) {
	f = f.normalized()

	var (
		conds []string
		args  []any
	)
	if f.Completed != nil {
		conds = append(conds, "is_completed = ?")
		args = append(args, boolInt(*f.Completed))
	}
	if f.ResultType != "" {
		conds = append(conds, "result_type = ?")
		args = append(args, f.ResultType)
	}
	if f.Start != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, formatTime(startOfDay(*f.Start)))
	}
	if f.End != nil {
		conds = append(conds, "created_at < ?")
		args = append(args, formatTime(startOfDay(*f.End).AddDate(0, 0, 1)))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions `+where, args...).Scan(&total); err != nil {
		return SessionPage{}, fmt.Errorf("counting sessions: %w", err)
	}

	pageArgs := append(append([]any{}, args...), f.Limit, (f.Page-1)*f.Limit)
	rows, err := s.db.QueryContext(ctx,
		`SELECT json(data) FROM sessions `+where+` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		pageArgs...,
	)
	if err != nil {
		return SessionPage{}, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	page := SessionPage{Sessions: []SessionSummary{}}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return SessionPage{}, err
		}
		sess, err := decode(data)
		if err != nil {
			return SessionPage{}, err
		}
		page.Sessions = append(page.Sessions, summarize(sess))
		if sess.IsCompleted {
			page.Summary.CompletedSessions++
		} else {
			page.Summary.IncompleteSessions++
		}
	}
	if err := rows.Err(); err != nil {
		return SessionPage{}, err
	}

	totalPages := (total + f.Limit - 1) / f.Limit
	page.Summary.TotalSessions = total
	page.Pagination = Pagination{
		CurrentPage:  f.Page,
		TotalPages:   totalPages,
		TotalItems:   total,
		ItemsPerPage: f.Limit,
		HasNextPage:  f.Page < totalPages,
		HasPrevPage:  f.Page > 1,
	}
	return page, nil
}

func summarize(sess session.Session) SessionSummary {
	sum := SessionSummary{Session: sess, TotalAnswers: sess.Answers.Len()}
	if sess.CompletedAt != nil {
		m := int(math.Round(sess.CompletedAt.Sub(sess.CreatedAt).Minutes()))
		sum.ResponseTimeMinutes = &m
	}
	return sum
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type ChoiceCount struct {
	ChoiceID string   `json:"choiceId"`
	Count    int      `json:"count"`
	AvgValue *float64 `json:"avgValue"`
}

type QuestionAnalysis struct {
	QuestionID string        `json:"questionId"`
	Choices    []ChoiceCount `json:"choices"`
}

// AnswerAnalysis counts choices per question over completed sessions.
// A non-empty questionID restricts the result to that question.
func (s *DocStore) AnswerAnalysis(ctx context.Context, questionID string) ([]QuestionAnalysis, error) {
	query := `
		SELECT json_extract(a.value, '$.questionId') AS q,
		       COALESCE(json_extract(a.value, '$.choiceId'), '') AS c,
		       COUNT(*),
		       AVG(json_extract(a.value, '$.value'))
		FROM sessions s, json_each(s.data, '$.answers') a
		WHERE s.is_completed = 1`
	var args []any
	if questionID != "" {
		query += ` AND json_extract(a.value, '$.questionId') = ?`
		args = append(args, questionID)
	}
	query += ` GROUP BY q, c ORDER BY q, c`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("analysing answers: %w", err)
	}
	defer rows.Close()

	out := []QuestionAnalysis{}
	for rows.Next() {
		var (
			q   string
			cc  ChoiceCount
			avg sql.NullFloat64
		)
		if err := rows.Scan(&q, &cc.ChoiceID, &cc.Count, &avg); err != nil {
			return nil, err
		}
		if avg.Valid {
			v := avg.Float64
			cc.AvgValue = &v
		}
		if n := len(out); n == 0 || out[n-1].QuestionID != q {
			out = append(out, QuestionAnalysis{QuestionID: q})
		}
		last := &out[len(out)-1]
		last.Choices = append(last.Choices, cc)
	}
	return out, rows.Err()
}
