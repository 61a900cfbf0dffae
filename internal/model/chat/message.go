package chat

import "time"

// Roles a message can carry. History order is append order and messages are
// immutable once appended.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation turn. AudioRef points at the synthesized
// audio for assistant turns when synthesis ran; it is empty for text-only
// turns.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	AudioRef  string    `json:"audioRef,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
