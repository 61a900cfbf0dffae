package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sahara-labs/sahara/backend/internal/logging"
	"github.com/sahara-labs/sahara/backend/internal/model/language"
	"github.com/sahara-labs/sahara/backend/internal/model/speech"
)

// WhisperClient transcribes audio through a Whisper-compatible HTTP API.
type WhisperClient struct {
	config *speech.Config
	client *http.Client
	logger zerolog.Logger
}

// NewWhisperClient creates a speech-to-text client for the configured
// endpoint.
func NewWhisperClient(config *speech.Config) *WhisperClient {
	timeout := time.Duration(config.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &WhisperClient{
		config: config,
		client: &http.Client{Timeout: timeout},
		logger: logging.Component("stt"),
	}
}

// Transcribe uploads one utterance and returns the recognized text. The
// recognizer auto-detects the spoken language; the request language is a
// hint only and is never forced, which keeps mid-conversation language
// switches working.
func (c *WhisperClient) Transcribe(ctx context.Context, req *speech.TranscribeRequest) (*speech.Transcription, error) {
	if !c.config.STTConfigured() {
		return nil, ErrSTTNotConfigured
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio."+fileExtension(req.Format))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, req.AudioData); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := writer.WriteField("model", c.config.STTModel); err != nil {
		return nil, fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.WriteField("response_format", "verbose_json"); err != nil {
		return nil, fmt.Errorf("failed to write response_format field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	endpoint := strings.TrimRight(c.config.STTBaseURL, "/") + "/audio/transcriptions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create transcription request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.STTAPIKey)
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	c.logger.Debug().
		Str("sessionId", req.SessionID).
		Str("model", c.config.STTModel).
		Msg("uploading audio for transcription")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcription response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("body", string(respBody)).
			Msg("transcription API error")
		return nil, fmt.Errorf("transcription API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result struct {
		Text     string  `json:"text"`
		Language string  `json:"language"`
		Duration float64 `json:"duration"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode transcription response: %w", err)
	}

	return &speech.Transcription{
		SessionID: req.SessionID,
		Text:      strings.TrimSpace(result.Text),
		Language:  detectedLanguageCode(result.Language, req.Language),
		Duration:  int64(result.Duration * 1000),
		RequestID: uuid.NewString(),
		CreatedAt: time.Now(),
	}, nil
}

// detectedLanguageCode maps the recognizer's language field, which may be a
// name ("english") or a tag ("en-US"), onto a supported code. Unrecognized
// values fall back to the caller's hint, then empty.
func detectedLanguageCode(detected, hint string) string {
	if code := language.Base(detected); code != "" {
		if _, ok := language.ByCode(code); ok {
			return code
		}
	}
	if code, ok := language.CodeForName(detected); ok {
		return code
	}
	if code := language.Base(hint); code != "" {
		if _, ok := language.ByCode(code); ok {
			return code
		}
	}
	return ""
}

func fileExtension(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		return "webm"
	}
	return format
}
