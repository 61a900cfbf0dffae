package emergency

import (
	"errors"
	"fmt"
)

var (
	// ErrProfileNotFound signals a lookup for a session that never saved contacts.
	ErrProfileNotFound = errors.New("emergency profile not found")
	// ErrNoContacts signals an escalation attempted before any contact was
	// registered. It is a precondition failure, not a partial success.
	ErrNoContacts = errors.New("no emergency contacts registered")
)

// ValidationError reports a rejected contact payload. Nothing is stored when
// one is returned; the caller can retry with corrected input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
