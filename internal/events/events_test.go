package events

import (
	"testing"

	"github.com/foryou-care/foryou/internal/models"
	"github.com/foryou-care/foryou/internal/risk"
)

func TestEmitter_FanOut(t *testing.T) {
	em := NewEmitter()
	var got []Type
	em.Subscribe(func(ev Event) { got = append(got, ev.Type) })
	em.Subscribe(func(ev Event) { got = append(got, ev.Type) })

	em.Emit(Event{Type: TriageOffered, SessionID: 1})

	if len(got) != 2 {
		t.Fatalf("handlers fired = %d, want 2", len(got))
	}
	if got[0] != TriageOffered || got[1] != TriageOffered {
		t.Errorf("types = %v", got)
	}
}

func TestEmitter_FillsTimestamp(t *testing.T) {
	em := NewEmitter()
	var gotAt bool
	em.Subscribe(func(ev Event) { gotAt = !ev.At.IsZero() })
	em.Emit(Event{Type: SessionClosed})
	if !gotAt {
		t.Error("expected At to be filled in")
	}
}

func TestEmitter_NilSafe(t *testing.T) {
	var em *Emitter
	em.Subscribe(func(Event) {})
	em.Emit(Event{Type: TriageOffered}) // must not panic
}

func TestFormatAlert_EscalationWaiting(t *testing.T) {
	a, ok := FormatAlert(Event{
		Type:        EscalationWaiting,
		SessionUUID: "abc-123",
		RiskLevel:   risk.LevelCritical,
		Priority:    models.PriorityCritical,
	})
	if !ok {
		t.Fatal("expected an alert")
	}
	if a.Color != colorCritical {
		t.Errorf("Color = %q, want %q", a.Color, colorCritical)
	}
	if len(a.Fields) != 3 {
		t.Errorf("Fields = %d, want 3", len(a.Fields))
	}
}

func TestFormatAlert_EmergencyTitle(t *testing.T) {
	a, ok := FormatAlert(Event{Type: EscalationWaiting, Priority: models.PriorityCritical, Emergency: true})
	if !ok {
		t.Fatal("expected an alert")
	}
	if a.Title != "EMERGENCY escalation waiting" {
		t.Errorf("Title = %q", a.Title)
	}
}

func TestFormatAlert_QuietTypes(t *testing.T) {
	for _, typ := range []Type{TriageOffered, TriageAccepted, TriageDeclined, SessionClosed} {
		if _, ok := FormatAlert(Event{Type: typ}); ok {
			t.Errorf("FormatAlert(%q) produced an alert, want none", typ)
		}
	}
}
