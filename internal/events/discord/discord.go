// Package discord posts escalation alerts to a Discord volunteer channel.
package discord

import (
	"fmt"
	"log"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/foryou-care/foryou/internal/events"
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Notifier sends escalation alerts to a single Discord channel. Delivery is
// best-effort: failures are logged, never returned to the triage core.
type Notifier struct {
	sess      session
	channelID string
}

// Opts holds parameters for creating a Notifier.
type Opts struct {
	Token     string // bot token
	ChannelID string // channel to post alerts to
	// For testing: inject a mock session instead of the real Discord API.
	Session session
}

// New creates a Discord Notifier. The underlying session connects lazily;
// outbound REST calls need no gateway connection.
func New(opts Opts) (*Notifier, error) {
	sess := opts.Session
	if sess == nil {
		dg, err := discordgo.New("Bot " + opts.Token)
		if err != nil {
			return nil, fmt.Errorf("discord: create session: %w", err)
		}
		sess = dg
	}
	return &Notifier{sess: sess, channelID: opts.ChannelID}, nil
}

// Handle is an events.Handler posting alert-worthy events to the channel.
func (n *Notifier) Handle(ev events.Event) {
	alert, ok := events.FormatAlert(ev)
	if !ok {
		return
	}
	embed := &discordgo.MessageEmbed{
		Title:       alert.Title,
		Description: alert.Body,
		Color:       hexColor(alert.Color),
	}
	for _, f := range alert.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: true,
		})
	}
	if _, err := n.sess.ChannelMessageSendEmbed(n.channelID, embed); err != nil {
		log.Printf("discord: post alert %q: %v", alert.Title, err)
	}
}

// hexColor converts a "#rrggbb" hint to the int Discord embeds expect.
func hexColor(s string) int {
	if len(s) != 7 || s[0] != '#' {
		return 0
	}
	v, err := strconv.ParseInt(s[1:], 16, 32)
	if err != nil {
		return 0
	}
	return int(v)
}
