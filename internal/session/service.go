package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soobo/sleeptype/internal/sleeptype"
)

// CompleteRequest carries the optional inputs of Complete. ResultType and
// ResultScores are what the client computed; they are only compared with
// the server's result, never stored.
type CompleteRequest struct {
	Answers      []sleeptype.Answer
	ResultType   string
	ResultScores *sleeptype.Scores
}

type Service struct {
	store  Store
	table  sleeptype.Table
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTable scores with t instead of the default table.
func WithTable(t sleeptype.Table) Option {
	return func(s *Service) { s.table = t }
}

// WithIDGenerator overrides session ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

func NewService(store Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		table:  sleeptype.DefaultTable,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Table returns the scoring table in use.
func (s *Service) Table() sleeptype.Table { return s.table }

func (s *Service) Start(ctx context.Context, info ClientInfo) (Session, error) {
	now := s.now()
	sess := Session{
		ID:        s.newID(),
		UserAgent: info.UserAgent,
		IPAddress: info.IPAddress,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return Session{}, storageErr("create", err)
	}
	return sess, nil
}

func (s *Service) Get(ctx context.Context, id string) (Session, error) {
	sess, err := s.store.Find(ctx, id)
	if err != nil {
		return Session{}, storageErr("find", err)
	}
	return sess, nil
}

// SubmitAnswers merges answers into an open session.
func (s *Service) SubmitAnswers(ctx context.Context, id string, answers []sleeptype.Answer) (Session, error) {
	if err := sleeptype.Validate(answers); err != nil {
		return Session{}, err
	}

	sess, err := s.store.Update(ctx, id, func(sess *Session) error {
		if sess.IsCompleted {
			return ErrAlreadyCompleted
		}
		now := s.now()
		merged, err := sleeptype.Merge(sess.Answers, answers, now)
		if err != nil {
			return err
		}
		sess.Answers = merged
		sess.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Session{}, storageErr("update", err)
	}
	return sess, nil
}

// Complete merges any late answers, scores the session and closes it.
func (s *Service) Complete(ctx context.Context, id string, req CompleteRequest) (Session, error) {
	if err := sleeptype.Validate(req.Answers); err != nil {
		return Session{}, err
	}

	var result sleeptype.Result
	sess, err := s.store.Update(ctx, id, func(sess *Session) error {
		if sess.IsCompleted {
			return ErrAlreadyCompleted
		}
		now := s.now()
		merged, err := sleeptype.Merge(sess.Answers, req.Answers, now)
		if err != nil {
			return err
		}

		result = s.table.Score(merged)
		resultType, scores := result.Type, result.Scores

		sess.Answers = merged
		sess.ResultType = &resultType
		sess.ResultScores = &scores
		sess.IsCompleted = true
		sess.CompletedAt = &now
		sess.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Session{}, storageErr("update", err)
	}

	s.checkClientResult(id, req, result)
	return sess, nil
}

func (s *Service) checkClientResult(id string, req CompleteRequest, result sleeptype.Result) {
	clientType := strings.TrimSpace(req.ResultType)
	typeDiffers := clientType != "" && clientType != result.Type
	scoresDiffer := req.ResultScores != nil && *req.ResultScores != result.Scores
	if typeDiffers || scoresDiffer {
		s.logger.Warn("client result differs from server result",
			"session_id", id,
			"client_type", clientType,
			"server_type", result.Type,
			"server_key", result.Key(),
		)
	}
}

// storageErr leaves domain errors alone and wraps everything else.
func storageErr(op string, err error) error {
	var verr *sleeptype.ValidationError
	var serr *StorageError
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAlreadyCompleted),
		errors.As(err, &verr), errors.As(err, &serr),
		errors.Is(err, context.Canceled):
		return err
	}
	return &StorageError{Op: op, Err: err}
}
