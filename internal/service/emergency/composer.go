package emergency

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sahara-labs/sahara/backend/internal/logging"
	"github.com/sahara-labs/sahara/backend/internal/model/chat"
	"github.com/sahara-labs/sahara/backend/internal/model/emergency"
	"github.com/sahara-labs/sahara/backend/internal/service/session"
)

// Helpline is one crisis support line appended to every alert.
type Helpline struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

// Helplines returns the static crisis support block. National India
// services; 112 is the countrywide emergency number.
func Helplines() []Helpline {
	return []Helpline{
		{Name: "AASRA", Number: "91-9820466726"},
		{Name: "Vandrevala Foundation", Number: "1860-2662-345"},
		{Name: "Kiran (Govt. of India)", Number: "1800-599-0019"},
		{Name: "Emergency Services", Number: "112"},
	}
}

const (
	// recentConcernWindow bounds how many user messages feed the summary.
	recentConcernWindow = 5
	summaryLimit        = 120
	bodyConcernLimit    = 100

	defaultUserName = "Someone you know"
)

// ComposeRequest carries the caller-supplied alert inputs. Everything is
// optional; missing pieces degrade to markers or session-derived values.
type ComposeRequest struct {
	Location      *emergency.Location
	CrisisContext string
	UserName      string
}

// Composer builds outbound alert payloads from the session state, the
// caller's context and the static helpline block.
type Composer struct {
	store    *Store
	sessions *session.Service
	logger   zerolog.Logger
}

// NewComposer wires the composer against the profile and session stores.
func NewComposer(store *Store, sessions *session.Service) *Composer {
	return &Composer{
		store:    store,
		sessions: sessions,
		logger:   logging.Component("composer"),
	}
}

// Compose builds the alert body for a session. The profile must exist; that
// precondition is checked here, before any dispatcher work happens.
func (c *Composer) Compose(ctx context.Context, sessionID string, req ComposeRequest) (emergency.AlertPayload, error) {
	if !c.store.HasProfile(ctx, sessionID) {
		return emergency.AlertPayload{}, emergency.ErrNoContacts
	}

	userName := strings.TrimSpace(req.UserName)
	if userName == "" {
		userName = defaultUserName
	}

	concerns := strings.TrimSpace(req.CrisisContext)
	if concerns == "" {
		concerns = c.recentConcerns(ctx, sessionID)
	}

	var mood string
	if sess, err := c.sessions.GetSession(ctx, sessionID); err == nil {
		mood = sess.LastMood
	}

	payload := emergency.AlertPayload{
		SessionID:  sessionID,
		UserName:   userName,
		Body:       buildBody(userName, mood, concerns, req.Location),
		ComposedAt: time.Now().UTC(),
	}

	c.logger.Debug().Str("session", sessionID).Bool("hasLocation", req.Location != nil).Msg("alert composed")
	return payload, nil
}

// recentConcerns joins the latest user messages into a short summary. A
// missing session yields an empty summary, not an error: the alert still
// goes out.
func (c *Composer) recentConcerns(ctx context.Context, sessionID string) string {
	history, err := c.sessions.History(ctx, sessionID)
	if err != nil {
		return ""
	}

	var picked []string
	for i := len(history) - 1; i >= 0 && len(picked) < recentConcernWindow; i-- {
		if history[i].Role != chat.RoleUser {
			continue
		}
		if text := strings.TrimSpace(history[i].Content); text != "" {
			picked = append(picked, text)
		}
	}
	for i, j := 0, len(picked)-1; i < j; i, j = i+1, j-1 {
		picked[i], picked[j] = picked[j], picked[i]
	}
	return truncate(strings.Join(picked, " | "), summaryLimit)
}

func buildBody(userName, mood, concerns string, location *emergency.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 URGENT: %s needs help!\n\n", userName)
	if mood != "" {
		fmt.Fprintf(&b, "Mental state: %s\n", mood)
	}
	if concerns != "" {
		fmt.Fprintf(&b, "Recent concerns: %s\n", truncate(concerns, bodyConcernLimit))
	}
	b.WriteString("\n")

	if location != nil {
		fmt.Fprintf(&b, "📍 Location: %s", location.MapLink())
		if location.Accuracy > 0 {
			fmt.Fprintf(&b, " (±%.0fm)", location.Accuracy)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("📍 Location not available\n")
	}

	b.WriteString("\n🆘 Immediate help:\n")
	for _, line := range Helplines() {
		fmt.Fprintf(&b, "• %s: %s\n", line.Name, line.Number)
	}

	fmt.Fprintf(&b, "\nThis is an automated alert from Sahara. Please reach out to %s immediately.", userName)
	return b.String()
}

// TestMessageBody builds the short body used to verify a contact's setup
// without alarming them.
func TestMessageBody(userName string) string {
	name := strings.TrimSpace(userName)
	if name == "" {
		name = "someone you know"
	}
	return fmt.Sprintf("🧪 TEST MESSAGE from Sahara\n\n%s added you as an emergency contact. This is only a setup check, no action is needed.", name)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
