package speech

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/sahara-labs/sahara/backend/internal/model/speech"
	speechservice "github.com/sahara-labs/sahara/backend/internal/service/speech"
)

// SpeechService abstracts speech recognition so tests can fake it.
type SpeechService interface {
	TranscribeBuffer(ctx context.Context, sessionID string, audioData []byte, format, lang string) (*speech.Transcription, error)
}

// Handler serves the standalone speech endpoints.
type Handler struct {
	speechSvc SpeechService
}

// New creates the speech handler.
func New(speechSvc SpeechService) *Handler {
	return &Handler{speechSvc: speechSvc}
}

// RegisterRoutes registers the speech routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/transcribe", h.handleTranscribe)
}

func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if h.speechSvc == nil {
		respondError(w, http.StatusServiceUnavailable, "speech recognition is not configured")
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	sessionID := r.FormValue("sessionId")
	if sessionID == "" {
		sessionID = "standalone"
	}

	audio, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read audio")
		return
	}

	transcription, err := h.speechSvc.TranscribeBuffer(r.Context(), sessionID, audio, inferAudioFormat(header.Filename), r.FormValue("language"))
	if err != nil {
		switch {
		case errors.Is(err, speechservice.ErrEmptyAudio):
			respondError(w, http.StatusBadRequest, "audio is empty")
		case errors.Is(err, speechservice.ErrAudioTooLarge):
			respondError(w, http.StatusRequestEntityTooLarge, "audio exceeds the size limit")
		case errors.Is(err, speechservice.ErrSTTNotConfigured):
			respondError(w, http.StatusServiceUnavailable, "speech recognition is not configured")
		default:
			log.Error().Err(err).Str("session_id", sessionID).Msg("transcription failed")
			respondError(w, http.StatusInternalServerError, "speech recognition failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"text":     transcription.Text,
		"language": transcription.Language,
		"duration": transcription.Duration,
	})
}

// inferAudioFormat maps an uploaded filename onto a recognizer format.
func inferAudioFormat(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp3":
		return "mp3"
	case ".wav":
		return "wav"
	case ".m4a":
		return "m4a"
	case ".ogg":
		return "ogg"
	default:
		return "webm"
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
