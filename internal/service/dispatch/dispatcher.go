package dispatch

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sahara-labs/sahara/backend/internal/logging"
	"github.com/sahara-labs/sahara/backend/internal/model/emergency"
)

// state tags one contact's position in the delivery machine. Every contact
// walks PENDING -> WHATSAPP_ATTEMPTED -> {SENT | FAILED_WHATSAPP}, falls back
// to SMS_ATTEMPTED when allowed, and ends in SENT or FAILED.
type state string

const (
	statePending           state = "PENDING"
	stateWhatsAppAttempted state = "WHATSAPP_ATTEMPTED"
	stateFailedWhatsApp    state = "FAILED_WHATSAPP"
	stateSMSAttempted      state = "SMS_ATTEMPTED"
	stateSent              state = "SENT"
	stateFailed            state = "FAILED"
)

// DefaultTimeout bounds each channel attempt.
const DefaultTimeout = 10 * time.Second

// Hard preconditions. Delivery failures never surface as errors; these two
// mean the caller skipped the composer or the profile check. ErrNoContacts
// shares the model sentinel so callers match one identity at either layer.
var (
	ErrEmptyPayload = errors.New("alert payload has no body")
	ErrNoContacts   = emergency.ErrNoContacts
)

// Config carries provider credentials and tuning for the dispatcher.
type Config struct {
	AccountSID   string
	AuthToken    string
	WhatsAppFrom string
	SMSFrom      string
	Timeout      time.Duration
}

// Configured reports whether real sends are possible.
func (c Config) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != ""
}

// attemptOptions restrict which channels one send may use.
type attemptOptions struct {
	whatsappOnly bool
	forceSMS     bool
}

// Dispatcher fans an alert out to every contact of a profile across the
// available channels. It is safe for concurrent use.
type Dispatcher struct {
	whatsapp  Channel
	sms       Channel
	simulated bool
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewDispatcher builds the production dispatcher. Without provider
// credentials every attempt short-circuits to a simulated outcome, labeled
// distinctly so a dry run is never mistaken for a reached contact.
func NewDispatcher(cfg Config) *Dispatcher {
	logger := logging.Component("dispatch")
	d := &Dispatcher{timeout: cfg.Timeout, logger: logger}
	if d.timeout <= 0 {
		d.timeout = DefaultTimeout
	}

	if !cfg.Configured() {
		d.simulated = true
		d.whatsapp = simulatedChannel{name: emergency.ChannelWhatsApp, logger: logger}
		d.sms = simulatedChannel{name: emergency.ChannelSMS, logger: logger}
		logger.Warn().Msg("delivery provider not configured, running in simulation mode")
		return d
	}

	client := newTwilioClient(cfg)
	if cfg.WhatsAppFrom != "" {
		d.whatsapp = newTwilioWhatsApp(client, cfg.WhatsAppFrom)
	}
	if cfg.SMSFrom != "" {
		d.sms = newTwilioSMS(client, cfg.SMSFrom)
	}
	return d
}

// NewChannelsDispatcher wires explicit channels. Tests use it to drive the
// state machine with fakes; nil disables a channel.
func NewChannelsDispatcher(whatsapp, sms Channel, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		whatsapp: whatsapp,
		sms:      sms,
		timeout:  timeout,
		logger:   logging.Component("dispatch"),
	}
}

// Simulated exposes the provider mode switch so callers and tests can force
// or verify simulation deterministically.
func (d *Dispatcher) Simulated() bool {
	return d.simulated
}

// Dispatch sends the payload to every contact, one outcome per contact in
// profile order. Individual delivery failures never abort the batch; the only
// errors are hard precondition violations.
func (d *Dispatcher) Dispatch(ctx context.Context, payload emergency.AlertPayload, profile emergency.Profile) (emergency.AlertReport, error) {
	if strings.TrimSpace(payload.Body) == "" {
		return emergency.AlertReport{}, ErrEmptyPayload
	}
	if len(profile.Contacts) == 0 {
		return emergency.AlertReport{}, ErrNoContacts
	}

	contacts := profile.Contacts
	outcomes := make([]emergency.DeliveryOutcome, len(contacts))

	// One goroutine per contact; attempts are independent network calls and a
	// slow contact must not delay the others. The group is joined before the
	// report is assembled.
	var eg errgroup.Group
	for i, contact := range contacts {
		i, contact := i, contact // per-iteration copies; go directive predates the 1.22 loopvar change
		eg.Go(func() error {
			outcomes[i] = d.sendToContact(ctx, contact, payload.PersonalizedFor(contact), attemptOptions{})
			return nil
		})
	}
	// Closures never return errors; failures live in the outcomes.
	_ = eg.Wait()

	report := emergency.AlertReport{
		SessionID:     payload.SessionID,
		TotalContacts: len(contacts),
		Outcomes:      outcomes,
		CreatedAt:     time.Now().UTC(),
	}
	for _, o := range outcomes {
		if o.Delivered() {
			report.AlertsSent++
		}
	}

	d.logger.Info().
		Str("session", payload.SessionID).
		Int("sent", report.AlertsSent).
		Int("total", report.TotalContacts).
		Bool("simulated", d.simulated).
		Msg("alert dispatched")
	return report, nil
}

// SendTest verifies one contact's setup with a harmless message. An explicit
// channel restricts the attempt: "whatsapp" suppresses the SMS fallback,
// "sms" goes straight there; empty means the normal policy.
func (d *Dispatcher) SendTest(ctx context.Context, contact emergency.Contact, body, channel string) emergency.DeliveryOutcome {
	opts := attemptOptions{}
	switch strings.ToLower(strings.TrimSpace(channel)) {
	case emergency.ChannelWhatsApp:
		opts.whatsappOnly = true
	case emergency.ChannelSMS:
		opts.forceSMS = true
	}
	return d.sendToContact(ctx, contact, body, opts)
}

// sendToContact walks one contact through the delivery machine. WhatsApp and
// SMS are each tried at most once; retrying a whole escalation is the
// caller's decision.
func (d *Dispatcher) sendToContact(ctx context.Context, contact emergency.Contact, body string, opts attemptOptions) emergency.DeliveryOutcome {
	st := statePending
	d.transition(contact.Name, st)

	tryWhatsApp := contact.WhatsAppEnabled && !opts.forceSMS && d.whatsapp != nil
	var whatsappDetail string

	if tryWhatsApp {
		st = stateWhatsAppAttempted
		d.transition(contact.Name, st)

		if err := d.attempt(ctx, d.whatsapp, contact.Phone, body); err != nil {
			st = stateFailedWhatsApp
			d.transition(contact.Name, st)
			whatsappDetail = errDetail(err)
			d.logger.Warn().Str("contact", contact.Name).Str("detail", whatsappDetail).Msg("whatsapp delivery failed")
		} else {
			d.transition(contact.Name, stateSent)
			return emergency.DeliveryOutcome{
				ContactName: contact.Name,
				Channel:     emergency.ChannelWhatsApp,
				Status:      d.successStatus(),
			}
		}
	}

	if opts.whatsappOnly {
		detail := whatsappDetail
		if detail == "" {
			detail = "no deliverable channel"
		}
		d.transition(contact.Name, stateFailed)
		return emergency.DeliveryOutcome{
			ContactName: contact.Name,
			Channel:     channelOrEmpty(tryWhatsApp, emergency.ChannelWhatsApp),
			Status:      emergency.StatusFailed,
			ErrorDetail: detail,
		}
	}

	if d.sms == nil {
		detail := "no deliverable channel"
		channel := ""
		if st == stateFailedWhatsApp {
			detail = whatsappDetail
			channel = emergency.ChannelWhatsApp
		}
		d.transition(contact.Name, stateFailed)
		return emergency.DeliveryOutcome{
			ContactName: contact.Name,
			Channel:     channel,
			Status:      emergency.StatusFailed,
			ErrorDetail: detail,
		}
	}

	st = stateSMSAttempted
	d.transition(contact.Name, st)

	if err := d.attempt(ctx, d.sms, contact.Phone, body); err != nil {
		detail := errDetail(err)
		if whatsappDetail != "" {
			detail = "whatsapp: " + whatsappDetail + "; sms: " + detail
		}
		d.transition(contact.Name, stateFailed)
		d.logger.Warn().Str("contact", contact.Name).Str("detail", detail).Msg("sms delivery failed")
		return emergency.DeliveryOutcome{
			ContactName: contact.Name,
			Channel:     emergency.ChannelSMS,
			Status:      emergency.StatusFailed,
			ErrorDetail: detail,
		}
	}

	d.transition(contact.Name, stateSent)
	return emergency.DeliveryOutcome{
		ContactName: contact.Name,
		Channel:     emergency.ChannelSMS,
		Status:      d.successStatus(),
	}
}

// attempt runs one channel call under the per-attempt timeout. A timed-out
// attempt is recorded as failed by the caller; it does not cancel siblings
// because each contact owns its own derived context.
func (d *Dispatcher) attempt(ctx context.Context, ch Channel, to, body string) error {
	attemptCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	_, err := ch.Send(attemptCtx, to, body)
	return err
}

func (d *Dispatcher) successStatus() string {
	if d.simulated {
		return emergency.StatusSimulated
	}
	return emergency.StatusSent
}

func (d *Dispatcher) transition(contact string, st state) {
	d.logger.Debug().Str("contact", contact).Str("state", string(st)).Msg("delivery state")
}

func errDetail(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return err.Error()
}

func channelOrEmpty(attempted bool, channel string) string {
	if attempted {
		return channel
	}
	return ""
}
