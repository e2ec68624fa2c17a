package state

import "github.com/google/uuid"

// NewQuestionID returns a fresh stable identifier for an open question.
// IDs are generated once and never reused, even after a question resolves.
func NewQuestionID() string {
	return "q-" + uuid.NewString()
}
