package speech

import "io"

// TranscribeRequest carries one utterance for speech-to-text.
type TranscribeRequest struct {
	SessionID string    `json:"sessionId"`
	AudioData io.Reader `json:"-"`
	Format    string    `json:"format"`   // mp3, wav, webm, etc.
	Language  string    `json:"language"` // hint for the recognizer, may be empty
}

// Prosody tunes the synthesized voice. Values use the SSML prosody syntax
// ("+0%", "-10%", "-2Hz"); empty fields mean provider defaults.
type Prosody struct {
	Rate   string `json:"rate,omitempty"`
	Pitch  string `json:"pitch,omitempty"`
	Volume string `json:"volume,omitempty"`
}

// SynthesizeRequest carries one reply for text-to-speech.
type SynthesizeRequest struct {
	SessionID string  `json:"sessionId"`
	Text      string  `json:"text"`
	Voice     string  `json:"voice,omitempty"` // resolved from language when empty
	Language  string  `json:"language"`
	Prosody   Prosody `json:"prosody"`
}
