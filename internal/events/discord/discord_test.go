package discord

import (
	"errors"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/foryou-care/foryou/internal/events"
	"github.com/foryou-care/foryou/internal/models"
)

type mockSession struct {
	mu      sync.Mutex
	sent    []sentEmbed
	sendErr error
}

type sentEmbed struct {
	channelID string
	embed     *discordgo.MessageEmbed
}

func (m *mockSession) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.sent = append(m.sent, sentEmbed{channelID: channelID, embed: embed})
	return &discordgo.Message{}, nil
}

func TestHandle_SendsEscalationWaiting(t *testing.T) {
	mock := &mockSession{}
	n, err := New(Opts{ChannelID: "9001", Session: mock})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	n.Handle(events.Event{
		Type:        events.EscalationWaiting,
		SessionUUID: "abc-123",
		RiskLevel:   "high",
		Priority:    models.PriorityHigh,
		Emergency:   true,
	})

	if len(mock.sent) != 1 {
		t.Fatalf("sent %d embeds, want 1", len(mock.sent))
	}
	got := mock.sent[0]
	if got.channelID != "9001" {
		t.Errorf("channel = %q, want 9001", got.channelID)
	}
	if got.embed.Title != "EMERGENCY escalation waiting" {
		t.Errorf("title = %q, want emergency override", got.embed.Title)
	}
	if len(got.embed.Fields) == 0 {
		t.Error("expected embed fields")
	}
}

func TestHandle_IgnoresNonAlertEvents(t *testing.T) {
	mock := &mockSession{}
	n, err := New(Opts{ChannelID: "9001", Session: mock})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	n.Handle(events.Event{Type: events.TriageAccepted})

	if len(mock.sent) != 0 {
		t.Errorf("sent %d embeds, want 0 for non-alert events", len(mock.sent))
	}
}

func TestHandle_SendFailureIsSwallowed(t *testing.T) {
	mock := &mockSession{sendErr: errors.New("missing access")}
	n, err := New(Opts{ChannelID: "9001", Session: mock})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Must not panic; delivery is best-effort.
	n.Handle(events.Event{Type: events.EscalationReleased, Priority: models.PriorityNormal})
}

func TestHexColor(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"#e01e5a", 0xe01e5a},
		{"#36a64f", 0x36a64f},
		{"", 0},
		{"e01e5a", 0},
		{"#xyzxyz", 0},
	}
	for _, tt := range tests {
		if got := hexColor(tt.in); got != tt.want {
			t.Errorf("hexColor(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
