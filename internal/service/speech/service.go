package speech

import (
	"bytes"
	"context"
	"errors"

	"github.com/sahara-labs/sahara/backend/internal/model/speech"
)

var (
	ErrSTTNotConfigured = errors.New("speech-to-text is not configured")
	ErrEmptyAudio       = errors.New("audio data is empty")
	ErrAudioTooLarge    = errors.New("audio exceeds the size limit")
	ErrEmptyText        = errors.New("text is empty")
)

// Service bundles speech recognition and synthesis behind one facade.
type Service struct {
	config    *speech.Config
	sttClient *WhisperClient
	ttsClient *EdgeTTSClient
}

// NewService creates a speech service from the provider settings.
func NewService(config *speech.Config) *Service {
	return &Service{
		config:    config,
		sttClient: NewWhisperClient(config),
		ttsClient: NewEdgeTTSClient(config),
	}
}

// TranscribeAudio runs speech-to-text on one utterance.
func (s *Service) TranscribeAudio(ctx context.Context, req *speech.TranscribeRequest) (*speech.Transcription, error) {
	return s.sttClient.Transcribe(ctx, req)
}

// SynthesizeSpeech runs text-to-speech on one reply.
func (s *Service) SynthesizeSpeech(ctx context.Context, req *speech.SynthesizeRequest) (*speech.Synthesis, error) {
	return s.ttsClient.Synthesize(ctx, req)
}

// TranscribeBuffer transcribes an in-memory audio clip, enforcing the
// configured size cap before anything goes over the wire.
func (s *Service) TranscribeBuffer(ctx context.Context, sessionID string, audioData []byte, format, language string) (*speech.Transcription, error) {
	if len(audioData) == 0 {
		return nil, ErrEmptyAudio
	}
	if s.config.MaxAudioBytes > 0 && int64(len(audioData)) > s.config.MaxAudioBytes {
		return nil, ErrAudioTooLarge
	}

	req := &speech.TranscribeRequest{
		SessionID: sessionID,
		AudioData: bytes.NewReader(audioData),
		Format:    format,
		Language:  language,
	}

	return s.TranscribeAudio(ctx, req)
}

// SynthesizeToBuffer synthesizes one reply using the directory voice for the
// given language and mood-derived prosody.
func (s *Service) SynthesizeToBuffer(ctx context.Context, sessionID, text, language string, prosody speech.Prosody) (*speech.Synthesis, error) {
	req := &speech.SynthesizeRequest{
		SessionID: sessionID,
		Text:      text,
		Language:  language,
		Prosody:   prosody,
	}

	return s.SynthesizeSpeech(ctx, req)
}
