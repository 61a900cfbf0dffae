package emergency

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/sahara-labs/sahara/backend/internal/model/emergency"
	"github.com/sahara-labs/sahara/backend/internal/service/dispatch"
	emergencyservice "github.com/sahara-labs/sahara/backend/internal/service/emergency"
)

// Handler serves emergency contact setup and alert escalation.
type Handler struct {
	store      *emergencyservice.Store
	composer   *emergencyservice.Composer
	dispatcher *dispatch.Dispatcher
}

// New creates the emergency handler.
func New(store *emergencyservice.Store, composer *emergencyservice.Composer, dispatcher *dispatch.Dispatcher) *Handler {
	return &Handler{
		store:      store,
		composer:   composer,
		dispatcher: dispatcher,
	}
}

// RegisterRoutes registers the emergency routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/emergency", func(r chi.Router) {
		r.Post("/contacts", h.handleSaveContacts)
		r.Get("/contacts/{sessionID}", h.handleGetContacts)
		r.Delete("/contacts/{sessionID}", h.handleDeleteContacts)
		r.Get("/check/{sessionID}", h.handleCheckSetup)
		r.Post("/alert", h.handleSendAlert)
		r.Post("/test", h.handleSendTest)
		r.Get("/health", h.handleHealth)
	})
}

func (h *Handler) handleSaveContacts(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID          string              `json:"sessionId"`
		Contacts           []emergency.Contact `json:"contacts"`
		LocationPermission bool                `json:"locationPermission"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.SessionID == "" {
		respondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	profile, err := h.store.SaveContacts(r.Context(), payload.SessionID, payload.Contacts, payload.LocationPermission)
	if err != nil {
		var verr *emergency.ValidationError
		if errors.As(err, &verr) {
			respondError(w, http.StatusBadRequest, verr.Error())
			return
		}
		log.Error().Err(err).Str("session_id", payload.SessionID).Msg("failed to save emergency contacts")
		respondError(w, http.StatusInternalServerError, "failed to save contacts")
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleGetContacts(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	profile, err := h.store.Profile(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, emergency.ErrProfileNotFound) {
			respondError(w, http.StatusNotFound, "no emergency contacts for this session")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load contacts")
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleDeleteContacts(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.store.Delete(r.Context(), sessionID); err != nil {
		if errors.Is(err, emergency.ErrProfileNotFound) {
			respondError(w, http.StatusNotFound, "no emergency contacts for this session")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete contacts")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) handleCheckSetup(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	contactCount := 0
	if profile, err := h.store.Profile(r.Context(), sessionID); err == nil {
		contactCount = len(profile.Contacts)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessionId":      sessionID,
		"setupCompleted": h.store.HasProfile(r.Context(), sessionID),
		"contactCount":   contactCount,
	})
}

// alertResponse wraps the delivery report with the overall verdict. Success
// means at least one contact was reached; partial delivery still counts.
type alertResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	emergency.AlertReport
}

func (h *Handler) handleSendAlert(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID     string              `json:"sessionId"`
		UserName      string              `json:"userName"`
		CrisisContext string              `json:"crisisContext"`
		Location      *emergency.Location `json:"location"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.SessionID == "" {
		respondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	alert, err := h.composer.Compose(r.Context(), payload.SessionID, emergencyservice.ComposeRequest{
		Location:      payload.Location,
		CrisisContext: payload.CrisisContext,
		UserName:      payload.UserName,
	})
	if err != nil {
		if errors.Is(err, emergency.ErrNoContacts) {
			respondError(w, http.StatusPreconditionFailed, "no emergency contacts registered for this session")
			return
		}
		log.Error().Err(err).Str("session_id", payload.SessionID).Msg("failed to compose alert")
		respondError(w, http.StatusInternalServerError, "failed to compose alert")
		return
	}

	profile, err := h.store.Profile(r.Context(), payload.SessionID)
	if err != nil {
		respondError(w, http.StatusPreconditionFailed, "no emergency contacts registered for this session")
		return
	}

	// Delivery failures are reported per contact, never as an HTTP error.
	report, err := h.dispatcher.Dispatch(r.Context(), alert, profile)
	if err != nil {
		if errors.Is(err, emergency.ErrNoContacts) {
			respondError(w, http.StatusPreconditionFailed, "no emergency contacts registered for this session")
			return
		}
		log.Error().Err(err).Str("session_id", payload.SessionID).Msg("alert dispatch failed")
		respondError(w, http.StatusInternalServerError, "failed to send alerts")
		return
	}

	resp := alertResponse{
		Success:     report.AlertsSent > 0,
		AlertReport: report,
	}
	if resp.Success {
		resp.Message = fmt.Sprintf("Emergency alerts sent to %d/%d contacts", report.AlertsSent, report.TotalContacts)
	} else {
		resp.Message = "Failed to send emergency alerts to any contacts"
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSendTest(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID    string `json:"sessionId"`
		ContactIndex int    `json:"contactIndex"`
		UserName     string `json:"userName"`
		Channel      string `json:"channel"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.SessionID == "" {
		respondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	profile, err := h.store.Profile(r.Context(), payload.SessionID)
	if err != nil {
		if errors.Is(err, emergency.ErrProfileNotFound) {
			respondError(w, http.StatusNotFound, "no emergency contacts for this session")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load contacts")
		return
	}

	if payload.ContactIndex < 0 || payload.ContactIndex >= len(profile.Contacts) {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("contactIndex must be 0-%d", len(profile.Contacts)-1))
		return
	}

	contact := profile.Contacts[payload.ContactIndex]
	body := emergencyservice.TestMessageBody(payload.UserName)
	outcome := h.dispatcher.SendTest(r.Context(), contact, body, payload.Channel)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": outcome.Delivered(),
		"contact": contact.Name,
		"outcome": outcome,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	messaging := "operational"
	if h.dispatcher.Simulated() {
		messaging = "simulated"
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "healthy",
		"messaging":        messaging,
		"twilioConfigured": !h.dispatcher.Simulated(),
		"simulationMode":   h.dispatcher.Simulated(),
	})
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
