// Package quiz implements the story quiz state machine.
//
// A quiz moves idle → loading → active → finished and back to idle on retake.
// Reset returns to idle from any state. Machine is not safe for concurrent
// use; callers serialise access.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/ashureev/scripture-companion/internal/domain"
)

// State is the quiz lifecycle position.
type State string

const (
	StateIdle     State = "idle"
	StateLoading  State = "loading"
	StateActive   State = "active"
	StateFinished State = "finished"
)

// Unanswered marks a question with no selected option.
const Unanswered = -1

var (
	// ErrInvalidTransition is returned when an operation is not allowed in the current state.
	ErrInvalidTransition = errors.New("quiz: invalid transition")
	// ErrInvalidOption is returned when an option index is out of range.
	ErrInvalidOption = errors.New("quiz: option out of range")
	// ErrUnanswered is returned by Next while the current question has no answer.
	ErrUnanswered = errors.New("quiz: current question unanswered")
)

// Generator produces questions for a story context.
type Generator interface {
	GenerateStoryQuiz(ctx context.Context, storyContext string) ([]domain.QuizQuestion, error)
}

// Machine holds one quiz run.
type Machine struct {
	state     State
	questions []domain.QuizQuestion
	answers   []int
	current   int
}

// New returns an idle quiz.
func New() *Machine {
	return &Machine{state: StateIdle}
}

// State returns the current lifecycle state.
func (m *Machine) State() State {
	return m.state
}

// Begin moves an idle quiz to loading.
func (m *Machine) Begin() error {
	if m.state != StateIdle {
		return fmt.Errorf("%w: begin from %s", ErrInvalidTransition, m.state)
	}
	m.state = StateLoading
	return nil
}

// Complete applies a generation result to a loading quiz. At least one
// question activates the quiz; anything else returns it to idle.
func (m *Machine) Complete(questions []domain.QuizQuestion) error {
	if m.state != StateLoading {
		return fmt.Errorf("%w: complete from %s", ErrInvalidTransition, m.state)
	}
	if len(questions) == 0 {
		m.clear()
		return nil
	}

	m.questions = append([]domain.QuizQuestion(nil), questions...)
	m.answers = make([]int, len(questions))
	for i := range m.answers {
		m.answers[i] = Unanswered
	}
	m.current = 0
	m.state = StateActive
	return nil
}

// SelectOption records the answer for the current question. It never advances.
func (m *Machine) SelectOption(option int) error {
	if m.state != StateActive {
		return fmt.Errorf("%w: select from %s", ErrInvalidTransition, m.state)
	}
	if !m.questions[m.current].ValidOption(option) {
		return fmt.Errorf("%w: %d", ErrInvalidOption, option)
	}
	m.answers[m.current] = option
	return nil
}

// Next advances to the following question, finishing after the last one.
func (m *Machine) Next() error {
	if m.state != StateActive {
		return fmt.Errorf("%w: next from %s", ErrInvalidTransition, m.state)
	}
	if m.answers[m.current] == Unanswered {
		return ErrUnanswered
	}
	if m.current < len(m.questions)-1 {
		m.current++
		return nil
	}
	m.state = StateFinished
	return nil
}

// Score counts answers matching the correct index.
func (m *Machine) Score() int {
	score := 0
	for i, q := range m.questions {
		if m.answers[i] == q.CorrectAnswerIndex {
			score++
		}
	}
	return score
}

// Percentage returns the rounded score share, or 0 with no questions.
func (m *Machine) Percentage() int {
	if len(m.questions) == 0 {
		return 0
	}
	return int(math.Round(float64(m.Score()) / float64(len(m.questions)) * 100))
}

// Retake returns a finished quiz to idle.
func (m *Machine) Retake() error {
	if m.state != StateFinished {
		return fmt.Errorf("%w: retake from %s", ErrInvalidTransition, m.state)
	}
	m.clear()
	return nil
}

// Reset returns the quiz to idle from any state.
func (m *Machine) Reset() {
	m.clear()
}

func (m *Machine) clear() {
	m.state = StateIdle
	m.questions = nil
	m.answers = nil
	m.current = 0
}
