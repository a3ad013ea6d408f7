package events

import (
	"fmt"

	"github.com/foryou-care/foryou/internal/models"
)

// Alert is an event rendered for a chat-platform notifier.
type Alert struct {
	Title  string
	Body   string
	Color  string // sidebar color hint
	Fields []Field
}

// Field is a key-value pair displayed alongside an alert.
type Field struct {
	Name  string
	Value string
}

// Color hints per priority, matching the volunteer dashboard palette.
const (
	colorCritical = "#e01e5a"
	colorHigh     = "#ff9f1c"
	colorInfo     = "#36a64f"
)

// FormatAlert renders an event as a notifier alert. The second return value
// is false for event types that do not warrant a volunteer-channel alert.
func FormatAlert(ev Event) (Alert, bool) {
	switch ev.Type {
	case EscalationWaiting:
		a := Alert{
			Title: fmt.Sprintf("New escalation waiting (%s priority)", ev.Priority),
			Body:  "A client accepted a hand-off and is waiting for a volunteer.",
			Color: priorityColor(ev.Priority),
			Fields: []Field{
				{Name: "Session", Value: ev.SessionUUID},
				{Name: "Risk level", Value: string(ev.RiskLevel)},
				{Name: "Priority", Value: string(ev.Priority)},
			},
		}
		if ev.Emergency {
			a.Title = "EMERGENCY escalation waiting"
		}
		return a, true
	case EscalationClaimed:
		return Alert{
			Title: "Escalation claimed",
			Body:  fmt.Sprintf("Request #%d was taken by volunteer %d.", ev.EscalationID, ev.VolunteerID),
			Color: colorInfo,
		}, true
	case EscalationReleased:
		return Alert{
			Title: "Escalation back in queue",
			Body:  fmt.Sprintf("Request #%d returned to waiting after a volunteer disconnect.", ev.EscalationID),
			Color: priorityColor(ev.Priority),
			Fields: []Field{
				{Name: "Session", Value: ev.SessionUUID},
				{Name: "Priority", Value: string(ev.Priority)},
			},
		}, true
	default:
		return Alert{}, false
	}
}

func priorityColor(p models.Priority) string {
	switch p {
	case models.PriorityCritical:
		return colorCritical
	case models.PriorityHigh:
		return colorHigh
	default:
		return colorInfo
	}
}
