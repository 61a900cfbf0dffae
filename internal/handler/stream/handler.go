package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/sahara-labs/sahara/backend/internal/logging"
	"github.com/sahara-labs/sahara/backend/internal/service/session"
	"github.com/sahara-labs/sahara/backend/internal/service/therapy"
	"github.com/sahara-labs/sahara/backend/pkg/utils"
)

// Handler streams turn replies over Server-Sent Events.
type Handler struct {
	orchestrator *therapy.Orchestrator
	logger       zerolog.Logger
}

// New creates the stream handler.
func New(orchestrator *therapy.Orchestrator) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		logger:       logging.Component("stream"),
	}
}

// HandleStreamRequest runs one conversation turn and streams the reply. The
// first write commits the response to SSE, so later failures surface as
// error events rather than status codes.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID, message string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	utils.SendSSEEvent(w, flusher, "start", map[string]string{"sessionId": sessionID})

	result, err := h.orchestrator.ProcessStreamTurn(ctx, sessionID, message, func(chunk string) {
		utils.SendSSEEvent(w, flusher, "delta", map[string]string{"content": chunk})
	})
	if err != nil {
		utils.SendSSEEvent(w, flusher, "error", map[string]string{"message": streamErrorMessage(err)})
		return err
	}

	utils.SendSSEEvent(w, flusher, "message", map[string]any{
		"sessionId": sessionID,
		"content":   result.Reply,
	})

	utils.SendSSEEvent(w, flusher, "done", map[string]any{
		"sessionId":   sessionID,
		"isCrisis":    result.IsCrisis,
		"crisisLevel": result.CrisisLevel,
		"mood":        result.Mood,
		"language":    result.Language,
	})

	h.logger.Debug().Str("session", sessionID).Bool("crisis", result.IsCrisis).Msg("stream turn completed")
	return nil
}

func streamErrorMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return "session not found"
	case errors.Is(err, therapy.ErrEmptyUtterance):
		return "message is required"
	default:
		return "failed to generate reply"
	}
}
