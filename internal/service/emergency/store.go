package emergency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sahara-labs/sahara/backend/internal/logging"
	"github.com/sahara-labs/sahara/backend/internal/model/emergency"
)

// Store keeps each session's emergency profile in memory for the process
// lifetime. Profile operations are constant-time value copies, so one lock
// over the map never stalls other sessions.
type Store struct {
	mu       sync.RWMutex
	profiles map[string]emergency.Profile
	logger   zerolog.Logger
}

// NewStore bootstraps the in-memory profile store.
func NewStore() *Store {
	return &Store{
		profiles: make(map[string]emergency.Profile),
		logger:   logging.Component("emergency"),
	}
}

// SaveContacts validates and stores the full contact set for a session,
// replacing whatever was saved before. Nothing is stored when validation
// fails, so a rejected save leaves the previous profile intact.
func (s *Store) SaveContacts(_ context.Context, sessionID string, contacts []emergency.Contact, locationPermission bool) (emergency.Profile, error) {
	if sessionID == "" {
		return emergency.Profile{}, &emergency.ValidationError{Field: "sessionId", Reason: "must not be empty"}
	}
	if len(contacts) < emergency.MinContacts || len(contacts) > emergency.MaxContacts {
		return emergency.Profile{}, &emergency.ValidationError{
			Field:  "contacts",
			Reason: fmt.Sprintf("must contain between %d and %d entries", emergency.MinContacts, emergency.MaxContacts),
		}
	}

	validated := make([]emergency.Contact, 0, len(contacts))
	for _, c := range contacts {
		valid, err := c.Validate()
		if err != nil {
			return emergency.Profile{}, err
		}
		validated = append(validated, valid)
	}

	profile := emergency.Profile{
		SessionID:          sessionID,
		Contacts:           validated,
		LocationPermission: locationPermission,
		SetupCompleted:     true,
		UpdatedAt:          time.Now().UTC(),
	}

	s.mu.Lock()
	s.profiles[sessionID] = profile
	s.mu.Unlock()

	s.logger.Info().Str("session", sessionID).Int("contacts", len(validated)).Msg("emergency contacts saved")
	return profile, nil
}

// Profile returns the stored profile with a copied contact slice.
func (s *Store) Profile(_ context.Context, sessionID string) (emergency.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[sessionID]
	if !ok {
		return emergency.Profile{}, emergency.ErrProfileNotFound
	}
	profile.Contacts = append([]emergency.Contact(nil), profile.Contacts...)
	return profile, nil
}

// HasProfile reports whether escalation can be offered for the session.
func (s *Store) HasProfile(_ context.Context, sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.profiles[sessionID]
	return ok
}

// Delete removes a profile at the user's explicit request.
func (s *Store) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[sessionID]; !ok {
		return emergency.ErrProfileNotFound
	}
	delete(s.profiles, sessionID)

	s.logger.Info().Str("session", sessionID).Msg("emergency profile deleted")
	return nil
}
