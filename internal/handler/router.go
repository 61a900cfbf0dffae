package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/sahara-labs/sahara/backend/internal/handler/chat"
	emergencyHandler "github.com/sahara-labs/sahara/backend/internal/handler/emergency"
	languageHandler "github.com/sahara-labs/sahara/backend/internal/handler/language"
	speechHandler "github.com/sahara-labs/sahara/backend/internal/handler/speech"
	"github.com/sahara-labs/sahara/backend/internal/handler/stream"
	middlewarePkg "github.com/sahara-labs/sahara/backend/internal/middleware"
	"github.com/sahara-labs/sahara/backend/internal/service/dispatch"
	emergencyService "github.com/sahara-labs/sahara/backend/internal/service/emergency"
	"github.com/sahara-labs/sahara/backend/internal/service/session"
	speechService "github.com/sahara-labs/sahara/backend/internal/service/speech"
	"github.com/sahara-labs/sahara/backend/internal/service/therapy"
	"github.com/sahara-labs/sahara/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services. speechSvc may be nil; the
// transcribe endpoint then answers 503 while everything else keeps working.
func NewRouter(
	sessions *session.Service,
	orchestrator *therapy.Orchestrator,
	contacts *emergencyService.Store,
	composer *emergencyService.Composer,
	dispatcher *dispatch.Dispatcher,
	speechSvc *speechService.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chatHandler := chat.New(sessions, orchestrator)
	contactsHandler := emergencyHandler.New(contacts, composer, dispatcher)
	languagesHandler := languageHandler.New()
	streamHandler := stream.New(orchestrator)

	// A nil *Service must stay a nil interface, otherwise the handler would
	// call through the typed nil.
	var transcriber speechHandler.SpeechService
	if speechSvc != nil {
		transcriber = speechSvc
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", handleHealth)

		chatHandler.RegisterRoutes(api)
		contactsHandler.RegisterRoutes(api)
		languagesHandler.RegisterRoutes(api)
		speechHandler.New(transcriber).RegisterRoutes(api)

		api.Post("/chat/stream", func(w http.ResponseWriter, r *http.Request) {
			var payload struct {
				SessionID string `json:"sessionId"`
				Message   string `json:"message"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				utils.RespondError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			if payload.SessionID == "" {
				utils.RespondError(w, http.StatusBadRequest, "sessionId is required")
				return
			}
			if strings.TrimSpace(payload.Message) == "" {
				utils.RespondError(w, http.StatusBadRequest, "message is required")
				return
			}

			// The stream is committed after the first write; errors past
			// that point were already sent as SSE error events.
			if err := streamHandler.HandleStreamRequest(r.Context(), w, payload.SessionID, payload.Message); err != nil {
				log.Error().Err(err).Str("session_id", payload.SessionID).Msg("stream request failed")
			}
		})
	})

	speechHandler.NewWebSocketHandler(sessions, orchestrator).RegisterWebSocketRoutes(r)

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "Sahara voice support API is running",
	})
}
