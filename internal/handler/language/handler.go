package language

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sahara-labs/sahara/backend/internal/model/language"
)

// Handler serves the supported language directory.
type Handler struct{}

// New creates the language handler.
func New() *Handler {
	return &Handler{}
}

// RegisterRoutes registers the language routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/languages", h.handleListLanguages)
}

func (h *Handler) handleListLanguages(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"languages": language.Supported(),
		"default":   language.DefaultCode,
	})
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
