// Package sleeptype holds the survey's answer model, the merge rules for
// incrementally submitted answers and the sleep-type scoring tables.
// It has no external dependencies.
package sleeptype

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Answer is a single response to one question.
type Answer struct {
	QuestionID string    `json:"questionId"`
	ChoiceID   string    `json:"choiceId,omitempty"`
	Value      *float64  `json:"value,omitempty"`
	Text       string    `json:"text,omitempty"`
	AnsweredAt time.Time `json:"answeredAt"`
}

// ValidationError reports malformed input. Index is the position of the
// offending answer in its batch, or -1 when the error is not tied to one.
type ValidationError struct {
	Field  string
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("answers[%d].%s: %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// AnswerSet maps question IDs to answers, remembering insertion order.
// The zero value is an empty set.
type AnswerSet struct {
	order []string
	byID  map[string]Answer
}

// NewAnswerSet builds a set from answers; later duplicates replace earlier ones.
func NewAnswerSet(answers ...Answer) AnswerSet {
	var s AnswerSet
	for _, a := range answers {
		s.put(a)
	}
	return s
}

func (s *AnswerSet) put(a Answer) {
	if s.byID == nil {
		s.byID = make(map[string]Answer)
	}
	if _, ok := s.byID[a.QuestionID]; !ok {
		s.order = append(s.order, a.QuestionID)
	}
	s.byID[a.QuestionID] = a
}

func (s AnswerSet) clone() AnswerSet {
	c := AnswerSet{
		order: make([]string, len(s.order)),
		byID:  make(map[string]Answer, len(s.byID)),
	}
	copy(c.order, s.order)
	for k, v := range s.byID {
		c.byID[k] = v
	}
	return c
}

// Len returns the number of answered questions.
func (s AnswerSet) Len() int { return len(s.order) }

// Get returns the answer recorded for questionID.
func (s AnswerSet) Get(questionID string) (Answer, bool) {
	a, ok := s.byID[questionID]
	return a, ok
}

// Answers returns the answers in insertion order.
func (s AnswerSet) Answers() []Answer {
	out := make([]Answer, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Equal reports whether both sets hold the same answers in the same order.
func (s AnswerSet) Equal(o AnswerSet) bool {
	if len(s.order) != len(o.order) {
		return false
	}
	for i, id := range s.order {
		if o.order[i] != id {
			return false
		}
		if !answersEqual(s.byID[id], o.byID[id]) {
			return false
		}
	}
	return true
}

func answersEqual(a, b Answer) bool {
	if a.QuestionID != b.QuestionID || a.ChoiceID != b.ChoiceID || a.Text != b.Text {
		return false
	}
	if !a.AnsweredAt.Equal(b.AnsweredAt) {
		return false
	}
	switch {
	case a.Value == nil && b.Value == nil:
		return true
	case a.Value == nil || b.Value == nil:
		return false
	default:
		return *a.Value == *b.Value
	}
}

func (s AnswerSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Answers())
}

func (s *AnswerSet) UnmarshalJSON(data []byte) error {
	var answers []Answer
	if err := json.Unmarshal(data, &answers); err != nil {
		return err
	}
	*s = NewAnswerSet(answers...)
	return nil
}

// Validate checks a batch of incoming answers without applying it.
func Validate(incoming []Answer) error {
	for i, a := range incoming {
		if strings.TrimSpace(a.QuestionID) == "" {
			return &ValidationError{Field: "questionId", Index: i, Reason: "is required"}
		}
	}
	return nil
}

// Merge applies incoming on top of existing, last write wins per question.
// An incoming answer replaces the stored one entirely; answers without a
// timestamp are stamped with now. existing is never modified, and nothing
// is applied when any incoming answer is invalid.
func Merge(existing AnswerSet, incoming []Answer, now time.Time) (AnswerSet, error) {
	if err := Validate(incoming); err != nil {
		return AnswerSet{}, err
	}

	merged := existing.clone()
	for _, a := range incoming {
		if a.AnsweredAt.IsZero() {
			a.AnsweredAt = now
		}
		merged.put(a)
	}
	return merged, nil
}
