package quiz

import (
	"errors"
	"testing"

	"github.com/ashureev/scripture-companion/internal/domain"
)

func sampleQuestions(n int) []domain.QuizQuestion {
	qs := make([]domain.QuizQuestion, n)
	for i := range qs {
		qs[i] = domain.QuizQuestion{
			Question:           "Q",
			Options:            []string{"a", "b", "c", "d"},
			CorrectAnswerIndex: i % 4,
			Explanation:        "because",
		}
	}
	return qs
}

func startedMachine(t *testing.T, n int) *Machine {
	t.Helper()
	m := New()
	if err := m.Begin(); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := m.Complete(sampleQuestions(n)); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	return m
}

func TestCompleteActivatesWithUnansweredSlots(t *testing.T) {
	t.Parallel()

	m := New()
	if err := m.Begin(); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if m.State() != StateLoading {
		t.Fatalf("expected loading, got %s", m.State())
	}
	if err := m.Complete(sampleQuestions(5)); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if m.State() != StateActive {
		t.Fatalf("expected active, got %s", m.State())
	}
	if len(m.answers) != 5 {
		t.Fatalf("expected 5 answer slots, got %d", len(m.answers))
	}
	for i, a := range m.answers {
		if a != Unanswered {
			t.Fatalf("answer %d should be unanswered, got %d", i, a)
		}
	}
}

func TestCompleteWithoutQuestionsReturnsToIdle(t *testing.T) {
	t.Parallel()

	m := New()
	if err := m.Begin(); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := m.Complete(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.State() != StateIdle {
		t.Fatalf("expected idle, got %s", m.State())
	}
}

func TestBeginAndCompleteGuardStates(t *testing.T) {
	t.Parallel()

	m := startedMachine(t, 2)
	if err := m.Begin(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition from Begin, got %v", err)
	}
	if err := New().Complete(sampleQuestions(1)); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition from Complete, got %v", err)
	}
}

func TestNextRequiresAnswer(t *testing.T) {
	t.Parallel()

	m := startedMachine(t, 2)
	if err := m.Next(); !errors.Is(err, ErrUnanswered) {
		t.Fatalf("expected ErrUnanswered, got %v", err)
	}
	if err := m.SelectOption(7); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("expected ErrInvalidOption, got %v", err)
	}
}

func TestSelectOptionDoesNotAdvance(t *testing.T) {
	t.Parallel()

	m := startedMachine(t, 3)
	if err := m.SelectOption(2); err != nil {
		t.Fatalf("SelectOption failed: %v", err)
	}
	if err := m.SelectOption(1); err != nil {
		t.Fatalf("SelectOption failed: %v", err)
	}
	if m.current != 0 {
		t.Fatalf("expected to stay on question 0, got %d", m.current)
	}
	if m.answers[0] != 1 || m.answers[1] != Unanswered {
		t.Fatalf("unexpected answers %v", m.answers)
	}
}

func TestScoreAndFinish(t *testing.T) {
	t.Parallel()

	m := startedMachine(t, 4)
	// Correct indices are 0,1,2,3; answer the first two correctly.
	choices := []int{0, 1, 0, 0}
	for i, c := range choices {
		if err := m.SelectOption(c); err != nil {
			t.Fatalf("SelectOption(%d) failed: %v", i, err)
		}
		if err := m.Next(); err != nil {
			t.Fatalf("Next(%d) failed: %v", i, err)
		}
	}

	if m.State() != StateFinished {
		t.Fatalf("expected finished, got %s", m.State())
	}
	if got := m.Score(); got != 2 {
		t.Fatalf("expected score 2, got %d", got)
	}
	if got := m.Percentage(); got != 50 {
		t.Fatalf("expected 50%%, got %d", got)
	}

	review := m.Review()
	if len(review) != 4 || !review[0].Correct || review[2].Correct {
		t.Fatalf("unexpected review %+v", review)
	}
	if review[2].YourAnswer != "a" || review[2].CorrectAnswer != "c" {
		t.Fatalf("unexpected answer texts %+v", review[2])
	}
}

func TestScoreBounds(t *testing.T) {
	t.Parallel()

	for n := 1; n <= 5; n++ {
		m := startedMachine(t, n)
		for i := 0; i < n; i++ {
			_ = m.SelectOption(3)
			_ = m.Next()
		}
		if s := m.Score(); s < 0 || s > n {
			t.Fatalf("score %d out of [0,%d]", s, n)
		}
	}
}

func TestRetakeClears(t *testing.T) {
	t.Parallel()

	m := startedMachine(t, 1)
	if err := m.Retake(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected retake to be refused while active, got %v", err)
	}
	_ = m.SelectOption(0)
	_ = m.Next()

	if err := m.Retake(); err != nil {
		t.Fatalf("Retake failed: %v", err)
	}
	if m.State() != StateIdle || len(m.Questions()) != 0 || len(m.answers) != 0 {
		t.Fatalf("expected cleared idle quiz, got %+v", m.Snapshot())
	}
}

func TestResetFromAnyState(t *testing.T) {
	t.Parallel()

	m := New()
	if err := m.Begin(); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	m.Reset()
	if m.State() != StateIdle {
		t.Fatalf("expected idle, got %s", m.State())
	}
	// A late result for the abandoned load is refused.
	if err := m.Complete(sampleQuestions(2)); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected late completion to be refused, got %v", err)
	}
}

func TestSnapshotHidesAnswerKey(t *testing.T) {
	t.Parallel()

	m := startedMachine(t, 2)
	v := m.Snapshot()
	if v.Current == nil || v.Score != nil || v.Review != nil {
		t.Fatalf("unexpected active snapshot %+v", v)
	}
	if v.Current.Selected != Unanswered || v.Current.IsLast {
		t.Fatalf("unexpected prompt %+v", v.Current)
	}
}
