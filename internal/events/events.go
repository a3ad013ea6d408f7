// Package events carries state-change notifications from the triage core
// out to presentation and alerting layers.
package events

import (
	"sync"
	"time"

	"github.com/foryou-care/foryou/internal/models"
	"github.com/foryou-care/foryou/internal/risk"
)

// Type identifies a state change in the triage core.
type Type string

const (
	TriageOffered       Type = "triage_offered"
	TriageAccepted      Type = "triage_accepted"
	TriageDeclined      Type = "triage_declined"
	EscalationWaiting   Type = "escalation_waiting"
	EscalationClaimed   Type = "escalation_claimed"
	EscalationReleased  Type = "escalation_released"
	EscalationCompleted Type = "escalation_completed"
	SessionClosed       Type = "session_closed"
)

// Event is one state change. Zero-valued fields are not meaningful for
// every type; e.g. EscalationID is only set on escalation events.
type Event struct {
	Type         Type
	SessionID    uint
	SessionUUID  string
	TriageID     uint
	EscalationID uint
	VolunteerID  uint
	RiskLevel    risk.Level
	Priority     models.Priority
	Emergency    bool
	At           time.Time
}

// Handler receives emitted events. Handlers run synchronously on the
// emitting goroutine and must not block.
type Handler func(Event)

// Emitter fans events out to subscribed handlers. A nil *Emitter is valid
// and drops all events, so core packages can take it as an optional
// dependency.
type Emitter struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewEmitter returns an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{}
}

// Subscribe registers a handler for all subsequent events.
func (e *Emitter) Subscribe(h Handler) {
	if e == nil || h == nil {
		return
	}
	e.mu.Lock()
	e.handlers = append(e.handlers, h)
	e.mu.Unlock()
}

// Emit delivers the event to every subscriber. The timestamp is filled in
// when unset.
func (e *Emitter) Emit(ev Event) {
	if e == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	e.mu.RLock()
	handlers := make([]Handler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()
	for _, h := range handlers {
		h(ev)
	}
}
