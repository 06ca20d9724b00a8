package quiz

import "github.com/ashureev/scripture-companion/internal/domain"

// Prompt is the active question without its answer key.
type Prompt struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Selected int      `json:"selected"`
	IsLast   bool     `json:"is_last"`
}

// Result is the finished review of one question.
type Result struct {
	Question      string `json:"question"`
	YourAnswer    string `json:"your_answer"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation"`
	Correct       bool   `json:"correct"`
}

// View is the client-facing snapshot of a quiz.
type View struct {
	State      State    `json:"state"`
	Index      int      `json:"index"`
	Total      int      `json:"total"`
	Current    *Prompt  `json:"current,omitempty"`
	Score      *int     `json:"score,omitempty"`
	Percentage *int     `json:"percentage,omitempty"`
	Review     []Result `json:"review,omitempty"`
}

// Review lists per-question results. It is empty until the quiz finishes.
func (m *Machine) Review() []Result {
	if m.state != StateFinished {
		return nil
	}
	out := make([]Result, len(m.questions))
	for i, q := range m.questions {
		out[i] = Result{
			Question:      q.Question,
			YourAnswer:    q.OptionText(m.answers[i]),
			CorrectAnswer: q.OptionText(q.CorrectAnswerIndex),
			Explanation:   q.Explanation,
			Correct:       m.answers[i] == q.CorrectAnswerIndex,
		}
	}
	return out
}

// Snapshot renders the quiz for the client.
func (m *Machine) Snapshot() View {
	v := View{State: m.state, Index: m.current, Total: len(m.questions)}
	switch m.state {
	case StateActive:
		q := m.questions[m.current]
		v.Current = &Prompt{
			Question: q.Question,
			Options:  append([]string(nil), q.Options...),
			Selected: m.answers[m.current],
			IsLast:   m.current == len(m.questions)-1,
		}
	case StateFinished:
		score, pct := m.Score(), m.Percentage()
		v.Score = &score
		v.Percentage = &pct
		v.Review = m.Review()
	}
	return v
}

// Questions returns a copy of the loaded questions.
func (m *Machine) Questions() []domain.QuizQuestion {
	return append([]domain.QuizQuestion(nil), m.questions...)
}
