package chat

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/sahara-labs/sahara/backend/internal/service/session"
	speechservice "github.com/sahara-labs/sahara/backend/internal/service/speech"
	"github.com/sahara-labs/sahara/backend/internal/service/therapy"
)

// maxUploadBytes bounds multipart parsing; the speech service enforces the
// tighter configured audio cap afterwards.
const maxUploadBytes = 32 << 20

// Handler serves the conversation endpoints.
type Handler struct {
	sessions     *session.Service
	orchestrator *therapy.Orchestrator
}

// New creates the conversation handler.
func New(sessions *session.Service, orchestrator *therapy.Orchestrator) *Handler {
	return &Handler{
		sessions:     sessions,
		orchestrator: orchestrator,
	}
}

// RegisterRoutes registers the conversation routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Get("/sessions/{sessionID}/history", h.handleHistory)
	r.Delete("/sessions/{sessionID}", h.handleClearSession)
	r.Post("/chat", h.handleChat)
	r.Post("/voice-chat", h.handleVoiceChat)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Language string `json:"language"`
	}

	// An empty body is fine; the session falls back to the default language.
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := h.sessions.CreateSession(r.Context(), payload.Language)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	respondJSON(w, http.StatusCreated, sess)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
		Message   string `json:"message"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.SessionID) == "" {
		respondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	result, err := h.orchestrator.ProcessTextTurn(r.Context(), payload.SessionID, payload.Message)
	if err != nil {
		h.respondTurnError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// turnResponse extends a turn result with the reply audio for transports
// that carry audio inline.
type turnResponse struct {
	*therapy.TurnResult
	AudioBase64 string `json:"audioBase64,omitempty"`
}

func (h *Handler) handleVoiceChat(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
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

	sessionID := strings.TrimSpace(r.FormValue("sessionId"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	audio, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read audio upload")
		return
	}

	result, err := h.orchestrator.ProcessVoiceTurn(r.Context(), sessionID, audio, inferAudioFormat(header.Filename), r.FormValue("language"))
	if err != nil {
		h.respondTurnError(w, err)
		return
	}

	resp := turnResponse{TurnResult: result}
	if len(result.ReplyAudio) > 0 {
		resp.AudioBase64 = base64.StdEncoding.EncodeToString(result.ReplyAudio)
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	messages, err := h.sessions.History(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "session not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"sessionId": sessionID,
		"history":   messages,
	})
}

func (h *Handler) handleClearSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.orchestrator.ClearSession(r.Context(), sessionID); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "session not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to clear session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *Handler) respondTurnError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, therapy.ErrEmptyUtterance):
		respondError(w, http.StatusBadRequest, "message is required")
	case errors.Is(err, session.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, speechservice.ErrAudioTooLarge):
		respondError(w, http.StatusRequestEntityTooLarge, "audio file too large")
	case errors.Is(err, therapy.ErrSpeechNotConfigured):
		respondError(w, http.StatusServiceUnavailable, "voice processing unavailable")
	default:
		log.Error().Err(err).Msg("turn processing failed")
		respondError(w, http.StatusInternalServerError, "failed to process message")
	}
}

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
