package dispatch

import (
	"context"
	"strings"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/sahara-labs/sahara/backend/internal/model/emergency"
)

// whatsappPrefix addresses the WhatsApp transport on Twilio's messaging API.
const whatsappPrefix = "whatsapp:"

// twilioChannel sends through one Twilio messaging transport. The same type
// serves WhatsApp and SMS; only the from address and number prefix differ.
type twilioChannel struct {
	name   string
	client *twilio.RestClient
	from   string
	prefix string
}

func newTwilioClient(cfg Config) *twilio.RestClient {
	return twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
}

func newTwilioWhatsApp(client *twilio.RestClient, from string) *twilioChannel {
	if !strings.HasPrefix(from, whatsappPrefix) {
		from = whatsappPrefix + from
	}
	return &twilioChannel{name: emergency.ChannelWhatsApp, client: client, from: from, prefix: whatsappPrefix}
}

func newTwilioSMS(client *twilio.RestClient, from string) *twilioChannel {
	return &twilioChannel{name: emergency.ChannelSMS, client: client, from: from}
}

func (c *twilioChannel) Name() string { return c.name }

func (c *twilioChannel) Send(ctx context.Context, to, body string) (string, error) {
	if c.prefix != "" && !strings.HasPrefix(to, c.prefix) {
		to = c.prefix + to
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(c.from)
	params.SetBody(body)

	msg, err := c.client.Api.CreateMessage(params)
	if err != nil {
		return "", err
	}
	if msg.Sid != nil {
		return *msg.Sid, nil
	}
	return "", nil
}
