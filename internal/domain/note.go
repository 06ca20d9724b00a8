package domain

import "time"

// Note is a persisted reflection snippet, written by the visitor or saved
// from a companion reply.
type Note struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
