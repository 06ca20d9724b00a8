package domain

import "fmt"

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	// RoleUser marks a message typed by the visitor.
	RoleUser ChatRole = "user"
	// RoleModel marks a generated reply.
	RoleModel ChatRole = "model"
)

// ChatMessage is a single turn of a companion conversation.
type ChatMessage struct {
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}

// Greeting returns the opening model message for a story.
func Greeting(s Story) ChatMessage {
	return ChatMessage{
		Role: RoleModel,
		Text: fmt.Sprintf("I am here to help you reflect on this sacred moment in %s. What would you like to explore about %s?",
			s.ChapterRef, s.Title()),
	}
}
