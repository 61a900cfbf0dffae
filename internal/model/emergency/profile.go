package emergency

import "time"

// Bounds on how many trusted contacts a profile may hold.
const (
	MinContacts = 1
	MaxContacts = 3
)

// Profile holds the registered contacts for one session. Saving again fully
// replaces the contact set; profiles are never auto-deleted while the process
// lives.
type Profile struct {
	SessionID          string    `json:"sessionId"`
	Contacts           []Contact `json:"contacts"`
	LocationPermission bool      `json:"locationPermission"`
	SetupCompleted     bool      `json:"setupCompleted"`
	UpdatedAt          time.Time `json:"updatedAt"`
}
