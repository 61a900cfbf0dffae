package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sahara-labs/sahara/backend/internal/logging"
	"github.com/sahara-labs/sahara/backend/internal/model/chat"
	"github.com/sahara-labs/sahara/backend/internal/model/language"
)

var ErrSessionNotFound = errors.New("session not found")

// entry owns one session and its history. Each entry carries its own lock so
// independent sessions never contend; the store lock only guards the map.
type entry struct {
	mu       sync.Mutex
	session  chat.Session
	messages []chat.Message
}

// Service is the in-memory session store. State lives for the process
// lifetime at most; clearing a session discards it entirely.
type Service struct {
	mu      sync.RWMutex
	entries map[string]*entry
	logger  zerolog.Logger
}

// NewService bootstraps the in-memory session store.
func NewService() *Service {
	return &Service{
		entries: make(map[string]*entry),
		logger:  logging.Component("session"),
	}
}

// CreateSession provisions an anonymous conversation in the given language.
func (s *Service) CreateSession(_ context.Context, lang string) (chat.Session, error) {
	now := time.Now().UTC()
	session := chat.Session{
		ID:        uuid.NewString(),
		Language:  language.Normalize(lang),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.entries[session.ID] = &entry{
		session:  session,
		messages: make([]chat.Message, 0, 16),
	}
	s.mu.Unlock()

	s.logger.Debug().Str("session", session.ID).Str("language", session.Language).Msg("session created")
	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	e, ok := s.lookup(sessionID)
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session, nil
}

// AppendMessage adds one immutable turn to the session history. History order
// is append order; the therapy service serializes turns per session, the
// store itself only guarantees atomic appends.
func (s *Service) AppendMessage(_ context.Context, sessionID, role, content, audioRef string) (chat.Message, error) {
	e, ok := s.lookup(sessionID)
	if !ok {
		return chat.Message{}, ErrSessionNotFound
	}

	message := chat.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		AudioRef:  audioRef,
		CreatedAt: time.Now().UTC(),
	}

	e.mu.Lock()
	e.messages = append(e.messages, message)
	e.session.UpdatedAt = message.CreatedAt
	e.mu.Unlock()

	return message, nil
}

// History returns a copy of the session transcript in append order.
func (s *Service) History(_ context.Context, sessionID string) ([]chat.Message, error) {
	e, ok := s.lookup(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	copied := make([]chat.Message, len(e.messages))
	copy(copied, e.messages)
	return copied, nil
}

// SetCrisisFlag marks or unmarks the session's crisis state.
func (s *Service) SetCrisisFlag(_ context.Context, sessionID string, flagged bool) error {
	e, ok := s.lookup(sessionID)
	if !ok {
		return ErrSessionNotFound
	}

	e.mu.Lock()
	e.session.CrisisDetected = flagged
	e.session.UpdatedAt = time.Now().UTC()
	e.mu.Unlock()

	if flagged {
		s.logger.Warn().Str("session", sessionID).Msg("crisis flag set")
	}
	return nil
}

// SetLanguage switches the session's reply language.
func (s *Service) SetLanguage(_ context.Context, sessionID, lang string) error {
	e, ok := s.lookup(sessionID)
	if !ok {
		return ErrSessionNotFound
	}

	e.mu.Lock()
	e.session.Language = language.Normalize(lang)
	e.session.UpdatedAt = time.Now().UTC()
	e.mu.Unlock()
	return nil
}

// SetMood records the last detected emotional label for the session.
func (s *Service) SetMood(_ context.Context, sessionID, mood string) error {
	e, ok := s.lookup(sessionID)
	if !ok {
		return ErrSessionNotFound
	}

	e.mu.Lock()
	e.session.LastMood = mood
	e.session.UpdatedAt = time.Now().UTC()
	e.mu.Unlock()
	return nil
}

// Clear discards the session and its history.
func (s *Service) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[sessionID]; !ok {
		return ErrSessionNotFound
	}
	delete(s.entries, sessionID)

	s.logger.Debug().Str("session", sessionID).Msg("session cleared")
	return nil
}

func (s *Service) lookup(sessionID string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[sessionID]
	return e, ok
}
