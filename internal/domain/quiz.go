package domain

// QuizQuestion is one generated multiple-choice question.
type QuizQuestion struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
	Explanation        string   `json:"explanation"`
}

// ValidOption reports whether idx addresses one of the question's options.
func (q QuizQuestion) ValidOption(idx int) bool {
	return idx >= 0 && idx < len(q.Options)
}

// OptionText returns the option text at idx, or "" when idx is out of range.
func (q QuizQuestion) OptionText(idx int) string {
	if !q.ValidOption(idx) {
		return ""
	}
	return q.Options[idx]
}
