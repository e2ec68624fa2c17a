package state

import "time"

// Message is one entry in a session's conversation transcript.
type Message struct {
	ID        string        `json:"id"`
	SessionID string        `json:"session_id"`
	AuthorID  string        `json:"author_id"`
	Role      string        `json:"role"` // "human" or "agent"
	Text      string        `json:"text"`
	Citations []MsgCitation `json:"citations,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// MsgCitation is a source reference attached to a message.
type MsgCitation struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// RecentWindow returns the last n messages in order, or all of them when
// fewer exist.
func RecentWindow(msgs []Message, n int) []Message {
	if n <= 0 || len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}
