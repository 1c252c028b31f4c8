package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/soobo/sleeptype/internal/database"
	"github.com/soobo/sleeptype/internal/migrations"
	"github.com/soobo/sleeptype/internal/session"
	"github.com/soobo/sleeptype/internal/sleeptype"
)

var base = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func setupStore(t *testing.T) *DocStore {
	t.Helper()
	return openStore(t, ":memory:")
}

// setupFileStore uses a WAL database file so writers contend across pooled
// connections the way they do in production.
func setupFileStore(t *testing.T) *DocStore {
	t.Helper()
	return openStore(t, filepath.Join(t.TempDir(), "sessions.db"))
}

func openStore(t *testing.T, path string) *DocStore {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(db)
}

func newSession(id string, created time.Time) session.Session {
	return session.Session{ID: id, CreatedAt: created, UpdatedAt: created}
}

func complete(t *testing.T, s *DocStore, id string, at time.Time, answers ...sleeptype.Answer) {
	t.Helper()
	_, err := s.Update(context.Background(), id, func(sess *session.Session) error {
		merged, err := sleeptype.Merge(sess.Answers, answers, at)
		if err != nil {
			return err
		}
		res := sleeptype.DefaultTable.Score(merged)
		sess.Answers = merged
		sess.ResultType = &res.Type
		sess.ResultScores = &res.Scores
		sess.IsCompleted = true
		sess.CompletedAt = &at
		sess.UpdatedAt = at
		return nil
	})
	if err != nil {
		t.Fatalf("complete %s: %v", id, err)
	}
}

func TestCreateFind(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	want := newSession("a", base)
	want.UserAgent = "test"
	if err := s.Create(ctx, want); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.Find(ctx, "a")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != "a" || !got.CreatedAt.Equal(base) || got.UserAgent != "test" {
		t.Errorf("got %+v", got)
	}

	if _, err := s.Find(ctx, "b"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("find missing: err = %v, want ErrNotFound", err)
	}
	if err := s.Create(ctx, want); err == nil {
		t.Error("duplicate create succeeded")
	}
}

func TestUpdateAbortLeavesDocument(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	s.Create(ctx, newSession("a", base))

	boom := errors.New("boom")
	_, err := s.Update(ctx, "a", func(sess *session.Session) error {
		sess.IsCompleted = true
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	got, _ := s.Find(ctx, "a")
	if got.IsCompleted {
		t.Error("aborted update was written")
	}

	if _, err := s.Update(ctx, "zzz", func(*session.Session) error { return nil }); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("update missing: err = %v, want ErrNotFound", err)
	}
}

func TestConcurrentUpdatesKeepAllAnswers(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	s.Create(ctx, newSession("a", base))

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Update(ctx, "a", func(sess *session.Session) error {
				merged, err := sleeptype.Merge(sess.Answers, []sleeptype.Answer{{QuestionID: fmt.Sprint(i), ChoiceID: "a"}}, base)
				sess.Answers = merged
				return err
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	got, _ := s.Find(ctx, "a")
	if got.Answers.Len() != n {
		t.Errorf("answers = %d, want %d", got.Answers.Len(), n)
	}
}

func addAnswer(ctx context.Context, s *DocStore, id, questionID string) error {
	_, err := s.Update(ctx, id, func(sess *session.Session) error {
		merged, err := sleeptype.Merge(sess.Answers, []sleeptype.Answer{{QuestionID: questionID, ChoiceID: "a"}}, base)
		sess.Answers = merged
		return err
	})
	return err
}

func TestFileStoreConcurrentUpdates(t *testing.T) {
	const n = 16
	ctx := context.Background()

	t.Run("same session", func(t *testing.T) {
		s := setupFileStore(t)
		if err := s.Create(ctx, newSession("shared", base)); err != nil {
			t.Fatalf("create: %v", err)
		}

		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- addAnswer(ctx, s, "shared", fmt.Sprint(i))
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Errorf("update: %v", err)
			}
		}

		got, err := s.Find(ctx, "shared")
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got.Answers.Len() != n {
			t.Errorf("answers = %d, want %d", got.Answers.Len(), n)
		}
	})

	t.Run("different sessions", func(t *testing.T) {
		s := setupFileStore(t)

		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				id := fmt.Sprintf("s%d", i)
				if err := s.Create(ctx, newSession(id, base)); err != nil {
					errs <- err
					return
				}
				errs <- addAnswer(ctx, s, id, "0")
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Errorf("create or update: %v", err)
			}
		}

		for i := range n {
			got, err := s.Find(ctx, fmt.Sprintf("s%d", i))
			if err != nil {
				t.Fatalf("find s%d: %v", i, err)
			}
			if got.Answers.Len() != 1 {
				t.Errorf("s%d answers = %d, want 1", i, got.Answers.Len())
			}
		}
	})
}

func TestIsBusy(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("SQLite failure: `database is locked`"), true},
		{fmt.Errorf("exec: %w", errors.New("SQLITE_BUSY")), true},
		{errors.New("no such table: sessions"), false},
	}
	for _, tt := range tests {
		if got := isBusy(tt.err); got != tt.want {
			t.Errorf("isBusy(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestStats(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c", "d"} {
		s.Create(ctx, newSession(id, base.Add(time.Duration(i)*time.Hour)))
	}
	complete(t, s, "a", base.Add(10*time.Minute))
	complete(t, s, "b", base.Add(time.Hour+20*time.Minute))
	complete(t, s, "c", base.Add(2*time.Hour+30*time.Minute), sleeptype.Answer{QuestionID: "3", ChoiceID: "0"})

	st, err := s.Stats(ctx, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalSessions != 4 || st.CompletedSessions != 3 || st.IncompleteSessions != 1 {
		t.Errorf("counts = %d/%d/%d", st.TotalSessions, st.CompletedSessions, st.IncompleteSessions)
	}
	if st.CompletionRate != 75 {
		t.Errorf("completion rate = %v, want 75", st.CompletionRate)
	}
	if st.AvgResponseTimeMinutes != 20 {
		t.Errorf("avg minutes = %d, want 20", st.AvgResponseTimeMinutes)
	}
	if len(st.ResultDistribution) != 1 || st.ResultDistribution[0].Count != 3 {
		t.Errorf("distribution = %+v", st.ResultDistribution)
	}
	if len(st.DailyCompletions) != 1 || st.DailyCompletions[0] != (DailyCount{Date: "2025-03-10", Count: 3}) {
		t.Errorf("daily = %+v", st.DailyCompletions)
	}
}

func TestListSessions(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		s.Create(ctx, newSession(fmt.Sprintf("s%d", i), base.AddDate(0, 0, i)))
	}
	complete(t, s, "s1", base.AddDate(0, 0, 1).Add(5*time.Minute))

	done := true
	tests := []struct {
		name      string
		filter    SessionFilter
		wantIDs   []string
		wantPages int
	}{
		{name: "first page", filter: SessionFilter{Limit: 2}, wantIDs: []string{"s4", "s3"}, wantPages: 3},
		{name: "last page", filter: SessionFilter{Page: 3, Limit: 2}, wantIDs: []string{"s0"}, wantPages: 3},
		{name: "completed only", filter: SessionFilter{Completed: &done}, wantIDs: []string{"s1"}, wantPages: 1},
		{
			name:      "date range inclusive",
			filter:    SessionFilter{Start: ptr(base.AddDate(0, 0, 1)), End: ptr(base.AddDate(0, 0, 2))},
			wantIDs:   []string{"s2", "s1"},
			wantPages: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := s.ListSessions(ctx, tt.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(page.Sessions) != len(tt.wantIDs) {
				t.Fatalf("got %d sessions, want %d", len(page.Sessions), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if page.Sessions[i].ID != id {
					t.Errorf("sessions[%d] = %s, want %s", i, page.Sessions[i].ID, id)
				}
			}
			if page.Pagination.TotalPages != tt.wantPages {
				t.Errorf("pages = %d, want %d", page.Pagination.TotalPages, tt.wantPages)
			}
		})
	}

	page, _ := s.ListSessions(ctx, SessionFilter{Completed: &done})
	if rt := page.Sessions[0].ResponseTimeMinutes; rt == nil || *rt != 5 {
		t.Errorf("response time = %v, want 5", rt)
	}
}

func TestAnswerAnalysis(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	two := 2.0
	four := 4.0
	for _, id := range []string{"a", "b", "c"} {
		s.Create(ctx, newSession(id, base))
	}
	complete(t, s, "a", base, sleeptype.Answer{QuestionID: "0", ChoiceID: "a", Value: &two}, sleeptype.Answer{QuestionID: "1", ChoiceID: "b"})
	complete(t, s, "b", base, sleeptype.Answer{QuestionID: "0", ChoiceID: "a", Value: &four})
	// Incomplete sessions are not counted.
	s.Update(ctx, "c", func(sess *session.Session) error {
		sess.Answers = sleeptype.NewAnswerSet(sleeptype.Answer{QuestionID: "0", ChoiceID: "z"})
		return nil
	})

	all, err := s.AnswerAnalysis(ctx, "")
	if err != nil {
		t.Fatalf("analysis: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("questions = %+v", all)
	}
	q0 := all[0]
	if q0.QuestionID != "0" || len(q0.Choices) != 1 || q0.Choices[0].Count != 2 {
		t.Fatalf("q0 = %+v", q0)
	}
	if avg := q0.Choices[0].AvgValue; avg == nil || *avg != 3 {
		t.Errorf("avg = %v, want 3", avg)
	}
	if all[1].Choices[0].AvgValue != nil {
		t.Errorf("q1 avg = %v, want nil", *all[1].Choices[0].AvgValue)
	}

	one, err := s.AnswerAnalysis(ctx, "1")
	if err != nil {
		t.Fatalf("analysis q1: %v", err)
	}
	if len(one) != 1 || one[0].QuestionID != "1" {
		t.Errorf("filtered = %+v", one)
	}
}

func ptr[T any](v T) *T { return &v }
