package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mikey/email-onebox/internal/core"
)

// SlackNotifier posts a short alert to a Slack incoming webhook
type SlackNotifier struct {
	url    string
	client *http.Client
}

// NewSlackNotifier creates a Slack sink. An empty url disables it.
func NewSlackNotifier(url string, client *http.Client) *SlackNotifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &SlackNotifier{url: url, client: client}
}

func (n *SlackNotifier) Name() string { return "slack" }

func (n *SlackNotifier) Enabled() bool { return n.url != "" }

// Notify posts the alert
func (n *SlackNotifier) Notify(ctx context.Context, msg core.Message) error {
	return postJSON(ctx, n.client, n.url, map[string]string{"text": slackText(msg)})
}

func slackText(msg core.Message) string {
	label := msg.Label
	if label == "" {
		label = core.LabelInterested
	}
	return fmt.Sprintf("*%s Email Received*\n*From:* %s\n*Subject:* %s", label, msg.From, msg.Subject)
}
