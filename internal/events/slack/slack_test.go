package slack

import (
	"errors"
	"sync"
	"testing"

	slackapi "github.com/slack-go/slack"

	"github.com/foryou-care/foryou/internal/events"
	"github.com/foryou-care/foryou/internal/models"
)

type mockSlackClient struct {
	mu      sync.Mutex
	posted  []postedMessage
	postErr error
}

type postedMessage struct {
	channelID string
	options   []slackapi.MsgOption
}

func (m *mockSlackClient) PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.postErr != nil {
		return "", "", m.postErr
	}
	m.posted = append(m.posted, postedMessage{channelID: channelID, options: options})
	return channelID, "1234567890.123456", nil
}

func TestHandle_PostsEscalationWaiting(t *testing.T) {
	mock := &mockSlackClient{}
	n := New(Opts{Channel: "C123", Client: mock})

	n.Handle(events.Event{
		Type:        events.EscalationWaiting,
		SessionUUID: "abc-123",
		RiskLevel:   "critical",
		Priority:    models.PriorityCritical,
	})

	if len(mock.posted) != 1 {
		t.Fatalf("posted %d messages, want 1", len(mock.posted))
	}
	if mock.posted[0].channelID != "C123" {
		t.Errorf("channel = %q, want C123", mock.posted[0].channelID)
	}
}

func TestHandle_IgnoresNonAlertEvents(t *testing.T) {
	mock := &mockSlackClient{}
	n := New(Opts{Channel: "C123", Client: mock})

	n.Handle(events.Event{Type: events.TriageOffered})
	n.Handle(events.Event{Type: events.SessionClosed})

	if len(mock.posted) != 0 {
		t.Errorf("posted %d messages, want 0 for non-alert events", len(mock.posted))
	}
}

func TestHandle_PostFailureIsSwallowed(t *testing.T) {
	mock := &mockSlackClient{postErr: errors.New("channel_not_found")}
	n := New(Opts{Channel: "C123", Client: mock})

	// Must not panic; delivery is best-effort.
	n.Handle(events.Event{
		Type:     events.EscalationClaimed,
		Priority: models.PriorityHigh,
	})
}

func TestNew_DefaultClient(t *testing.T) {
	n := New(Opts{Token: "xoxb-test", Channel: "C123"})
	if n.client == nil {
		t.Fatal("expected a real client to be constructed")
	}
	if n.channel != "C123" {
		t.Errorf("channel = %q, want C123", n.channel)
	}
}
