package speech

// Config holds the speech provider settings.
type Config struct {
	// STT (Whisper-compatible HTTP endpoint)
	STTBaseURL string `json:"sttBaseUrl"`
	STTAPIKey  string `json:"sttApiKey,omitempty"`
	STTModel   string `json:"sttModel"`

	// TTS (Edge neural voices over WebSocket)
	TTSEndpoint   string `json:"ttsEndpoint"`
	TTSToken      string `json:"ttsToken,omitempty"`
	VoiceOverride string `json:"voiceOverride,omitempty"` // forces one voice for every language

	// Shared
	MaxAudioBytes int64 `json:"maxAudioBytes"`
	Timeout       int   `json:"timeout"` // seconds
}

// STTConfigured reports whether transcription calls can be made.
func (c *Config) STTConfigured() bool {
	return c != nil && c.STTAPIKey != ""
}
