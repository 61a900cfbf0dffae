package dispatch

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Channel delivers one message to one destination and reports the provider's
// message id. Implementations must honor the ctx deadline.
type Channel interface {
	Name() string
	Send(ctx context.Context, to, body string) (string, error)
}

// simulatedChannel logs instead of sending. Outcomes built on top of it are
// labeled simulated so nobody mistakes a dry run for a reached contact.
type simulatedChannel struct {
	name   string
	logger zerolog.Logger
}

func (c simulatedChannel) Name() string { return c.name }

func (c simulatedChannel) Send(_ context.Context, to, body string) (string, error) {
	c.logger.Info().
		Str("channel", c.name).
		Str("to", to).
		Int("bodyLen", len(body)).
		Msg("simulated delivery")
	return "sim-" + uuid.NewString(), nil
}
