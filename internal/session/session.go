// Package session implements the survey session lifecycle: sessions are
// started empty, collect answers while open and are completed exactly once
// with a server-computed sleep type.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/soobo/sleeptype/internal/sleeptype"
)

var (
	ErrNotFound         = errors.New("session not found")
	ErrAlreadyCompleted = errors.New("session already completed")
)

// StorageError wraps a failure of the underlying store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

// Session is the aggregate root persisted by a Store.
type Session struct {
	ID           string              `json:"sessionId"`
	Answers      sleeptype.AnswerSet `json:"answers"`
	IsCompleted  bool                `json:"isCompleted"`
	ResultType   *string             `json:"resultType"`
	ResultScores *sleeptype.Scores   `json:"resultScores"`
	UserAgent    string              `json:"userAgent,omitempty"`
	IPAddress    string              `json:"ipAddress,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
	CompletedAt  *time.Time          `json:"completedAt"`
}

// ClientInfo describes who started a session.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

// Store persists sessions. Update must apply fn to the current stored
// state and write the result atomically; when fn returns an error nothing
// is written and that error is returned unchanged. Both Find and Update
// return ErrNotFound for unknown IDs.
type Store interface {
	Create(ctx context.Context, s Session) error
	Find(ctx context.Context, id string) (Session, error)
	Update(ctx context.Context, id string, fn func(*Session) error) (Session, error)
}
