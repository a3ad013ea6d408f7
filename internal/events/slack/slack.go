// Package slack posts escalation alerts to a Slack volunteer channel.
package slack

import (
	"log"

	slackapi "github.com/slack-go/slack"

	"github.com/foryou-care/foryou/internal/events"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Notifier sends escalation alerts to a single Slack channel. Delivery is
// best-effort: failures are logged, never returned to the triage core.
type Notifier struct {
	client  slackClient
	channel string
}

// Opts holds parameters for creating a Notifier.
type Opts struct {
	Token   string // xoxb-... bot token
	Channel string // channel to post alerts to
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// New creates a Slack Notifier.
func New(opts Opts) *Notifier {
	client := opts.Client
	if client == nil {
		client = slackapi.New(opts.Token)
	}
	return &Notifier{client: client, channel: opts.Channel}
}

// Handle is an events.Handler posting alert-worthy events to the channel.
func (n *Notifier) Handle(ev events.Event) {
	alert, ok := events.FormatAlert(ev)
	if !ok {
		return
	}
	att := slackapi.Attachment{
		Title: alert.Title,
		Text:  alert.Body,
		Color: alert.Color,
	}
	for _, f := range alert.Fields {
		att.Fields = append(att.Fields, slackapi.AttachmentField{
			Title: f.Name,
			Value: f.Value,
			Short: true,
		})
	}
	if _, _, err := n.client.PostMessage(n.channel, slackapi.MsgOptionAttachments(att)); err != nil {
		log.Printf("slack: post alert %q: %v", alert.Title, err)
	}
}
