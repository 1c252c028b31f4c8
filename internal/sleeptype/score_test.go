package sleeptype

import (
	"math"
	"strconv"
	"testing"
)

// pick answers the given slots with the given option index.
func pick(option int, slots ...int) []Answer {
	out := make([]Answer, len(slots))
	for i, s := range slots {
		out[i] = Answer{QuestionID: strconv.Itoa(s), ChoiceID: strconv.Itoa(option), AnsweredAt: t0}
	}
	return out
}

func TestScoreEmpty(t *testing.T) {
	got := DefaultTable.Score(AnswerSet{})

	if key := got.Key(); key != "night-free-jetlag-deprived" {
		t.Errorf("key = %q, want night-free-jetlag-deprived", key)
	}
	if got.Type != "🔥 새벽 방황러 (ENFP)" {
		t.Errorf("type = %q", got.Type)
	}
}

func TestScoreAxes(t *testing.T) {
	tests := []struct {
		name    string
		answers []Answer
		want    string
	}{
		{
			name:    "all morning slots positive",
			answers: pick(0, 3, 4, 8, 9, 10),
			want:    "morning-free-jetlag-deprived",
		},
		{
			name:    "morning slots negative",
			answers: pick(2, 3, 4, 8, 9, 10),
			want:    "night-free-jetlag-deprived",
		},
		{
			name:    "three of five morning slots",
			answers: pick(1, 3, 4, 8),
			want:    "morning-free-jetlag-deprived",
		},
		{
			name:    "two of five morning slots",
			answers: pick(1, 3, 4),
			want:    "night-free-jetlag-deprived",
		},
		{
			name:    "control needs two of three",
			answers: append(pick(0, 0), pick(3, 2)...),
			want:    "night-controlled-jetlag-deprived",
		},
		{
			name:    "control slot 2 rewards later options",
			answers: pick(0, 2),
			want:    "night-free-jetlag-deprived",
		},
		{
			name:    "rhythm half is enough",
			answers: pick(0, 5),
			want:    "night-free-rhythmic-deprived",
		},
		{
			name:    "recovery slot 7 needs option 2 or above",
			answers: append(pick(2, 7), pick(1, 12)...),
			want:    "night-free-jetlag-well-rested",
		},
		{
			name:    "recovery low slot 7",
			answers: append(pick(1, 7), pick(1, 12)...),
			want:    "night-free-jetlag-deprived",
		},
		{
			name: "everything positive",
			answers: append(append(pick(0, 3, 4, 8, 9, 10, 0, 1, 5, 11, 12, 13),
				pick(1, 2)...), pick(2, 7)...),
			want: "morning-controlled-rhythmic-well-rested",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DefaultTable.Score(NewAnswerSet(tt.answers...))
			if key := got.Key(); key != tt.want {
				t.Errorf("key = %q, want %q", key, tt.want)
			}
			if got.Type == DefaultTable.Fallback {
				t.Errorf("type fell back for %q", got.Key())
			}
		})
	}
}

func TestScoreDeterministic(t *testing.T) {
	set := NewAnswerSet(append(pick(0, 0, 1, 3, 5), pick(2, 7, 9)...)...)

	first := DefaultTable.Score(set)
	for i := 0; i < 20; i++ {
		if got := DefaultTable.Score(set); got != first {
			t.Fatalf("run %d: %+v != %+v", i, got, first)
		}
	}
}

func TestScoreCustomTable(t *testing.T) {
	table := Table{
		Threshold: 1,
		Axes: []Axis{
			{Positive: "up", Negative: "down", Rules: []SlotRule{{Slot: 0, Cmp: Exactly, Option: 4}}},
		},
		Types:    []ResultType{{Key: "up", Emoji: "⬆", Name: "Up", Archetype: "U"}},
		Fallback: "none",
	}

	if got := table.Score(NewAnswerSet(pick(4, 0)...)); got.Type != "⬆ Up (U)" || got.Morning != "up" {
		t.Errorf("got %+v", got)
	}
	if got := table.Score(AnswerSet{}); got.Type != "none" {
		t.Errorf("type = %q, want fallback", got.Type)
	}
}

func TestDefaultTableCoversAllKeys(t *testing.T) {
	if len(DefaultTable.Types) != 16 {
		t.Fatalf("types = %d, want 16", len(DefaultTable.Types))
	}
	for _, m := range []string{"morning", "night"} {
		for _, c := range []string{"controlled", "free"} {
			for _, r := range []string{"rhythmic", "jetlag"} {
				for _, w := range []string{"well-rested", "deprived"} {
					key := m + "-" + c + "-" + r + "-" + w
					if _, ok := DefaultTable.Lookup(key); !ok {
						t.Errorf("missing %q", key)
					}
				}
			}
		}
	}
}

func TestSlotOf(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"0", 0, true},
		{"13", 13, true},
		{"14", 0, false},
		{"q1", 0, true},
		{"Q14", 13, true},
		{"q0", 0, false},
		{"sleep-1", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := SlotOf(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("SlotOf(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestHugeValuesDoNotScore(t *testing.T) {
	var answers []Answer
	for _, slot := range []int{3, 4, 8, 9, 10} {
		answers = append(answers, Answer{QuestionID: strconv.Itoa(slot), Value: num(1e20)})
	}
	got := DefaultTable.Score(NewAnswerSet(answers...))
	if got.Morning != "night" {
		t.Errorf("morning = %q, want night", got.Morning)
	}
}

func TestOptionIndex(t *testing.T) {
	tests := []struct {
		name string
		in   Answer
		want int
		ok   bool
	}{
		{"numeric choice", Answer{ChoiceID: "3"}, 3, true},
		{"letter choice", Answer{ChoiceID: "b"}, 1, true},
		{"upper letter", Answer{ChoiceID: "C"}, 2, true},
		{"value fallback", Answer{ChoiceID: "late", Value: num(2.7)}, 2, true},
		{"negative value", Answer{Value: num(-1)}, 0, false},
		{"nothing", Answer{}, 0, false},
		{"huge value", Answer{Value: num(1e20)}, 0, false},
		{"value at bound", Answer{Value: num(math.MaxInt32)}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := OptionIndex(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("got %d, %v; want %d, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}
