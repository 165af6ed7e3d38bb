package notify

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/mikey/email-onebox/internal/core"
)

// WebhookPayload is the JSON document posted to the generic webhook
type WebhookPayload struct {
	EventID  string `json:"event_id"`
	From     string `json:"from"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Category string `json:"category"`
}

// WebhookNotifier posts message details to an arbitrary URL
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook sink. An empty url disables it.
func NewWebhookNotifier(url string, client *http.Client) *WebhookNotifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookNotifier{url: url, client: client}
}

func (n *WebhookNotifier) Name() string { return "webhook" }

func (n *WebhookNotifier) Enabled() bool { return n.url != "" }

// eventNamespace scopes event ids derived from message keys
var eventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:email-onebox:event"))

// EventID is stable for a message so receivers can spot duplicates
func EventID(msg core.Message) string {
	return uuid.NewSHA1(eventNamespace, []byte(msg.Key())).String()
}

// Notify posts the payload
func (n *WebhookNotifier) Notify(ctx context.Context, msg core.Message) error {
	return postJSON(ctx, n.client, n.url, WebhookPayload{
		EventID:  EventID(msg),
		From:     msg.From,
		Subject:  msg.Subject,
		Body:     msg.Body,
		Category: string(msg.Label),
	})
}
