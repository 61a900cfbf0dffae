package chat

import "time"

// Session captures a transient anonymous conversation. History lives in the
// session store; the struct itself only carries per-conversation state.
type Session struct {
	ID             string    `json:"id"`
	Language       string    `json:"language"`
	CrisisDetected bool      `json:"crisisDetected"`
	LastMood       string    `json:"lastMood,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
