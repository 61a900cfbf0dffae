package emergency

import (
	"fmt"
	"time"
)

// Delivery channels an alert can go out on.
const (
	ChannelWhatsApp = "whatsapp"
	ChannelSMS      = "sms"
)

// Terminal delivery statuses. Simulated stays distinct from Sent so a
// response never claims a contact was actually reached when the provider was
// not configured.
const (
	StatusSent      = "sent"
	StatusSimulated = "simulated"
	StatusFailed    = "failed"
)

// Location is an optional client-supplied position fix. Accuracy is meters;
// zero means unknown.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy,omitempty"`
}

// MapLink renders the position as a shareable maps URL.
func (l Location) MapLink() string {
	return fmt.Sprintf("https://maps.google.com/?q=%.6f,%.6f", l.Latitude, l.Longitude)
}

// AlertPayload is a composed outbound alert, ready for per-contact dispatch.
type AlertPayload struct {
	SessionID  string    `json:"sessionId"`
	UserName   string    `json:"userName"`
	Body       string    `json:"body"`
	ComposedAt time.Time `json:"composedAt"`
}

// PersonalizedFor prefixes the body with a greeting for one contact.
func (p AlertPayload) PersonalizedFor(c Contact) string {
	return fmt.Sprintf("Hi %s,\n\n%s", c.Name, p.Body)
}

// DeliveryOutcome is the terminal result for one contact. Channel names the
// last channel attempted; it is empty when no channel was deliverable.
type DeliveryOutcome struct {
	ContactName string `json:"contactName"`
	Channel     string `json:"channel,omitempty"`
	Status      string `json:"status"`
	ErrorDetail string `json:"errorDetail,omitempty"`
}

// Delivered reports whether the outcome counts toward alertsSent. Simulated
// counts so development totals match a configured deployment.
func (o DeliveryOutcome) Delivered() bool {
	return o.Status == StatusSent || o.Status == StatusSimulated
}

// AlertReport aggregates per-contact outcomes for one escalation attempt.
// Write-once; it exists only to build the caller's response and is not
// retained.
type AlertReport struct {
	SessionID     string            `json:"sessionId"`
	AlertsSent    int               `json:"alertsSent"`
	TotalContacts int               `json:"totalContacts"`
	Outcomes      []DeliveryOutcome `json:"deliveryStatus"`
	CreatedAt     time.Time         `json:"createdAt"`
}
