package speech

import "time"

// Transcription is the recognizer's result for one utterance.
type Transcription struct {
	SessionID string    `json:"sessionId"`
	Text      string    `json:"text"`
	Language  string    `json:"language,omitempty"` // detected by the recognizer
	Duration  int64     `json:"duration"`           // milliseconds of source audio
	RequestID string    `json:"requestId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Synthesis is the synthesized audio for one reply.
type Synthesis struct {
	SessionID string    `json:"sessionId"`
	AudioData []byte    `json:"-"`
	Format    string    `json:"format"`
	Voice     string    `json:"voice"`
	RequestID string    `json:"requestId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
