package chat

import (
	"fmt"

	"github.com/ashureev/scripture-companion/internal/domain"
)

// QuickPrompt names a canned question.
type QuickPrompt string

const (
	PromptExplain     QuickPrompt = "explain"
	PromptContext     QuickPrompt = "context"
	PromptDevotional  QuickPrompt = "devotional"
	PromptApplication QuickPrompt = "application"
)

// QuickPrompts lists the canned prompts in display order.
var QuickPrompts = []QuickPrompt{PromptExplain, PromptContext, PromptDevotional, PromptApplication}

// Label is the button text for the prompt.
func (q QuickPrompt) Label() string {
	switch q {
	case PromptExplain:
		return "Explain Meaning"
	case PromptContext:
		return "Historical Context"
	case PromptDevotional:
		return "Daily Devotional"
	case PromptApplication:
		return "Life Application"
	}
	return ""
}

// Text renders the prompt for story.
func (q QuickPrompt) Text(story domain.Story) (string, error) {
	switch q {
	case PromptExplain:
		return fmt.Sprintf("Explain the theological significance of %s.", story.Reference), nil
	case PromptContext:
		return "What is the historical and cultural context of this passage?", nil
	case PromptDevotional:
		return "Write a short, encouraging devotional based on this passage.", nil
	case PromptApplication:
		return "How can I apply the lessons from this story to my modern life?", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownQuickPrompt, string(q))
}
