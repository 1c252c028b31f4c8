// Package store persists survey sessions as JSONB documents in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/soobo/sleeptype/internal/session"
)

// timeLayout is fixed-width so stored timestamps sort as strings.
const timeLayout = "2006-01-02T15:04:05.000Z"

const (
	maxUpdateAttempts = 100
	maxBackoff        = 50 * time.Millisecond
)

var errConflict = errors.New("concurrent update")

// DocStore implements session.Store. Indexed columns mirror the fields the
// analytics queries filter on; the document itself lives in data.
type DocStore struct {
	db *sql.DB
}

func New(db *sql.DB) *DocStore {
	return &DocStore{db: db}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *DocStore) Create(ctx context.Context, sess session.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, backoff(attempt)); err != nil {
				return err
			}
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO sessions (id, is_completed, result_type, created_at, updated_at, completed_at, data)
			VALUES (?, ?, ?, ?, ?, ?, jsonb(?))
		`, sess.ID, boolInt(sess.IsCompleted), nullString(sess.ResultType),
			formatTime(sess.CreatedAt), formatTime(sess.UpdatedAt), nullTime(sess.CompletedAt), string(data))
		if !isBusy(err) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (s *DocStore) Find(ctx context.Context, id string) (session.Session, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT json(data) FROM sessions WHERE id = ?`, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Session{}, session.ErrNotFound
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("loading session: %w", err)
	}
	return decode(data)
}

func decode(data string) (session.Session, error) {
	var sess session.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return session.Session{}, fmt.Errorf("decoding session: %w", err)
	}
	return sess, nil
}

// Update loads a session, applies fn and writes the result with a single
// statement that only succeeds if the version read is still current. A
// concurrent writer or a busy database makes the attempt fail, and fn is
// re-run against fresh state after a short backoff.
func (s *DocStore) Update(ctx context.Context, id string, fn func(*session.Session) error) (session.Session, error) {
	var err error
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, backoff(attempt)); err != nil {
				return session.Session{}, err
			}
		}
		var sess session.Session
		sess, err = s.tryUpdate(ctx, id, fn)
		if errors.Is(err, errConflict) || isBusy(err) {
			continue
		}
		return sess, err
	}
	return session.Session{}, fmt.Errorf("updating session %s: %w", id, err)
}

func (s *DocStore) tryUpdate(ctx context.Context, id string, fn func(*session.Session) error) (session.Session, error) {
	var (
		version int64
		data    string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT version, json(data) FROM sessions WHERE id = ?`, id,
	).Scan(&version, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Session{}, session.ErrNotFound
	}
	if err != nil {
		return session.Session{}, err
	}

	sess, err := decode(data)
	if err != nil {
		return session.Session{}, err
	}
	if err := fn(&sess); err != nil {
		return session.Session{}, err
	}

	jsonData, err := json.Marshal(sess)
	if err != nil {
		return session.Session{}, fmt.Errorf("encoding session: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET is_completed = ?, result_type = ?, updated_at = ?, completed_at = ?,
		    data = jsonb(?), version = version + 1
		WHERE id = ? AND version = ?
	`, boolInt(sess.IsCompleted), nullString(sess.ResultType), formatTime(sess.UpdatedAt),
		nullTime(sess.CompletedAt), string(jsonData), id, version)
	if err != nil {
		return session.Session{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return session.Session{}, err
	}
	if n == 0 {
		return session.Session{}, errConflict
	}
	return sess, nil
}

// isBusy reports whether err is SQLite refusing a write because another
// connection holds the lock. busy_timeout is per connection, so pooled
// connections can still see it.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy")
}

// backoff grows linearly up to maxBackoff with full jitter.
func backoff(attempt int) time.Duration {
	d := min(time.Duration(attempt)*2*time.Millisecond, maxBackoff)
	return d/2 + rand.N(d/2+1)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Ping reports whether the database is reachable.
func (s *DocStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
