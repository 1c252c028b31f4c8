package sleeptype

import (
	"math"
	"strconv"
	"strings"
)

// SlotCount is the size of the fixed question bank.
const SlotCount = 14

// Comparison selects how a slot rule compares the chosen option index.
type Comparison int

const (
	AtMost Comparison = iota
	AtLeast
	Exactly
)

// SlotRule awards a sub-score of 1 when the option chosen for Slot
// satisfies the comparison against Option, and 0 otherwise.
type SlotRule struct {
	Slot   int
	Cmp    Comparison
	Option int
}

func (r SlotRule) score(chosen int) float64 {
	var ok bool
	switch r.Cmp {
	case AtMost:
		ok = chosen <= r.Option
	case AtLeast:
		ok = chosen >= r.Option
	case Exactly:
		ok = chosen == r.Option
	}
	if ok {
		return 1
	}
	return 0
}

// Axis is one binary classification averaged over its slot rules.
type Axis struct {
	Name     string
	Positive string
	Negative string
	Rules    []SlotRule
}

// ResultType is one entry of the result catalogue.
type ResultType struct {
	Key       string `json:"key"`
	Emoji     string `json:"emoji"`
	Name      string `json:"name"`
	Archetype string `json:"archetype"`
}

// Label is the human-readable form persisted as a session's result type.
func (t ResultType) Label() string {
	return t.Emoji + " " + t.Name + " (" + t.Archetype + ")"
}

// Table is the complete scoring configuration.
type Table struct {
	Axes     []Axis
	Types    []ResultType
	Fallback string
	// Threshold is the axis mean at or above which the positive label wins.
	Threshold float64
}

// Scores is the per-axis classification persisted with a completed session.
type Scores struct {
	Morning  string `json:"morning"`
	Control  string `json:"control"`
	Rhythm   string `json:"rhythm"`
	Recovery string `json:"recovery"`
}

// Key joins the four labels in axis order.
func (s Scores) Key() string {
	return strings.Join([]string{s.Morning, s.Control, s.Rhythm, s.Recovery}, "-")
}

// Result is the outcome of scoring an answer set.
type Result struct {
	Scores
	Type string `json:"type"`
}

// Score classifies answers on every axis of the table and resolves the
// result type. It is total: unanswered slots score 0.
func (t Table) Score(answers AnswerSet) Result {
	chosen := ChosenOptions(answers)

	labels := make([]string, len(t.Axes))
	for i, ax := range t.Axes {
		labels[i] = t.classify(ax, chosen)
	}

	var sc Scores
	fields := []*string{&sc.Morning, &sc.Control, &sc.Rhythm, &sc.Recovery}
	for i := range fields {
		if i < len(labels) {
			*fields[i] = labels[i]
		}
	}

	return Result{Scores: sc, Type: t.Resolve(strings.Join(labels, "-"))}
}

func (t Table) classify(ax Axis, chosen map[int]int) string {
	if len(ax.Rules) == 0 {
		return ax.Negative
	}
	var sum float64
	for _, r := range ax.Rules {
		if idx, ok := chosen[r.Slot]; ok {
			sum += r.score(idx)
		}
	}
	if sum/float64(len(ax.Rules)) >= t.Threshold {
		return ax.Positive
	}
	return ax.Negative
}

// Resolve maps an axis key to its result label, or the fallback.
func (t Table) Resolve(key string) string {
	for _, rt := range t.Types {
		if rt.Key == key {
			return rt.Label()
		}
	}
	return t.Fallback
}

// Lookup returns the catalogue entry for key.
func (t Table) Lookup(key string) (ResultType, bool) {
	for _, rt := range t.Types {
		if rt.Key == key {
			return rt, true
		}
	}
	return ResultType{}, false
}

// ChosenOptions maps each answered slot to the chosen option index.
// Answers whose question or option cannot be resolved are skipped; when
// two answers land on the same slot the later one wins.
func ChosenOptions(answers AnswerSet) map[int]int {
	chosen := make(map[int]int)
	for _, a := range answers.Answers() {
		slot, ok := SlotOf(a.QuestionID)
		if !ok {
			continue
		}
		idx, ok := OptionIndex(a)
		if !ok {
			continue
		}
		chosen[slot] = idx
	}
	return chosen
}

// SlotOf maps a question ID to its slot: "N" is slot N, "qN" is slot N-1.
func SlotOf(questionID string) (int, bool) {
	id := strings.TrimSpace(questionID)
	offset := 0
	if rest, ok := strings.CutPrefix(strings.ToLower(id), "q"); ok {
		id, offset = rest, 1
	}
	n, err := strconv.Atoi(id)
	if err != nil {
		return 0, false
	}
	n -= offset
	if n < 0 || n >= SlotCount {
		return 0, false
	}
	return n, true
}

// maxOptionValue keeps the float to int conversion in range.
const maxOptionValue = math.MaxInt32

// OptionIndex resolves the ordinal of the chosen option. choiceId may be a
// non-negative integer or a single letter ("a" is 0); otherwise a
// non-negative value below maxOptionValue is truncated to an index.
func OptionIndex(a Answer) (int, bool) {
	c := strings.TrimSpace(a.ChoiceID)
	if c != "" {
		if n, err := strconv.Atoi(c); err == nil && n >= 0 {
			return n, true
		}
		if len(c) == 1 {
			ch := c[0] | 0x20
			if ch >= 'a' && ch <= 'z' {
				return int(ch - 'a'), true
			}
		}
	}
	if a.Value != nil && *a.Value >= 0 && *a.Value < maxOptionValue {
		return int(*a.Value), true
	}
	return 0, false
}
