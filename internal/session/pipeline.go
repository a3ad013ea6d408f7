package session

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/foryou-care/foryou/internal/events"
	"github.com/foryou-care/foryou/internal/models"
	"github.com/foryou-care/foryou/internal/risk"
	"github.com/foryou-care/foryou/internal/triage"
)

// Pipeline runs the inbound-message sequence: append → classify → aggregate
// risk → evaluate triage. A per-session mutex serializes the sequence so
// concurrent messages for one session cannot interleave their risk updates;
// different sessions proceed independently.
type Pipeline struct {
	DB         *gorm.DB
	Classifier risk.Classifier
	Events     *events.Emitter

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

// NewPipeline creates a Pipeline. The emitter may be nil.
func NewPipeline(db *gorm.DB, classifier risk.Classifier, em *events.Emitter) *Pipeline {
	return &Pipeline{
		DB:         db,
		Classifier: classifier,
		Events:     em,
		locks:      make(map[uint]*sync.Mutex),
	}
}

// Result is the outcome of processing one inbound user message.
type Result struct {
	Message *models.ChatMessage
	Level   risk.Level
	// Warning is set when classification failed and the tag defaulted to
	// low; triage evaluation was skipped for this message.
	Warning bool
	// Offer is the triage record created by this message, if any. When the
	// user explicitly asked for a human, it is already accepted and
	// Escalation is set.
	Offer      *models.TriageRecord
	Escalation *models.EscalationRequest
}

// sessionLock returns the mutex serializing one session's pipeline runs.
// Entries live until Forget is called for the session; ProcessMessage also
// evicts when it finds the session closed, so a stale entry costs one mutex
// until the next message or an explicit Forget.
func (p *Pipeline) sessionLock(id uint) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[id]
	if !ok {
		l = &sync.Mutex{}
		p.locks[id] = l
	}
	return l
}

// Forget drops the serialization mutex for a session that will receive no
// more messages. Callers invoke it after closing the session.
func (p *Pipeline) Forget(id uint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.locks, id)
}

// ProcessMessage handles one inbound user message on an open session.
//
// Classifier failure is recovered locally: the message is stored with a
// low tag and a warning marker, the aggregator still runs, and the triage
// state machine does not transition (an explicit textual ask for a human is
// still honored — it is a manual trigger, not a classifier verdict).
func (p *Pipeline) ProcessMessage(ctx context.Context, sessionUUID string, senderID uint, content string) (*Result, error) {
	s, err := Get(p.DB, sessionUUID)
	if err != nil {
		return nil, err
	}
	if !s.IsOpen() {
		p.Forget(s.ID)
		return nil, fmt.Errorf("session: %s is %s: %w", sessionUUID, s.Status, ErrSessionUnavailable)
	}

	lock := p.sessionLock(s.ID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock; a concurrent message may have moved the
	// session's risk state.
	if s, err = Get(p.DB, sessionUUID); err != nil {
		return nil, err
	}
	if !s.IsOpen() {
		p.Forget(s.ID)
		return nil, fmt.Errorf("session: %s is %s: %w", sessionUUID, s.Status, ErrSessionUnavailable)
	}

	msg, err := AppendMessage(p.DB, s, models.RoleUser, &senderID, content)
	if err != nil {
		return nil, err
	}

	assessment, clfErr := p.Classifier.Classify(ctx, content)
	if clfErr != nil {
		assessment = risk.Assessment{Tag: risk.LevelLow, Confidence: 0}
	}

	level, warn := risk.Apply(s.CurrentRiskLevel, assessment.Tag)
	warn = warn || clfErr != nil

	if err := p.persistRisk(s, msg, assessment, level, warn); err != nil {
		return nil, err
	}

	res := &Result{Message: msg, Level: level, Warning: warn}

	switch {
	case risk.WantsHuman(content):
		record, req, err := triage.RequestEscalation(p.DB, p.Events, s, msg, level, risk.IsEmergency(content))
		if err != nil {
			return nil, err
		}
		res.Offer = record
		res.Escalation = req
	case clfErr == nil:
		record, err := triage.Evaluate(p.DB, p.Events, s, msg, level)
		if err != nil {
			return nil, err
		}
		res.Offer = record
	}
	// On classifier failure with no explicit ask, the state machine does
	// not transition; the warning marker on the message is the audit trail.

	return res, nil
}

// persistRisk writes the classification outcome to the message and the
// aggregated level to the session. InitialRiskLevel is set exactly once.
func (p *Pipeline) persistRisk(s *models.ChatSession, msg *models.ChatMessage, a risk.Assessment, level risk.Level, warn bool) error {
	err := p.DB.Transaction(func(tx *gorm.DB) error {
		msgUpdates := map[string]interface{}{
			"risk_tag":      a.Tag,
			"risk_warning":  warn,
			"ai_confidence": a.Confidence,
		}
		if !a.Tag.Valid() {
			msgUpdates["risk_tag"] = risk.LevelLow
		}
		if err := tx.Model(&models.ChatMessage{}).
			Where("id = ?", msg.ID).
			Updates(msgUpdates).Error; err != nil {
			return fmt.Errorf("update message risk: %w", err)
		}

		sessUpdates := map[string]interface{}{
			"current_risk_level": level,
		}
		if s.InitialRiskLevel == "" {
			sessUpdates["initial_risk_level"] = level
		}
		if err := tx.Model(&models.ChatSession{}).
			Where("id = ?", s.ID).
			Updates(sessUpdates).Error; err != nil {
			return fmt.Errorf("update session risk: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("session: persist risk for message %d: %w", msg.ID, err)
	}

	if s.InitialRiskLevel == "" {
		s.InitialRiskLevel = level
	}
	s.CurrentRiskLevel = level
	msg.RiskTag = a.Tag
	if !a.Tag.Valid() {
		msg.RiskTag = risk.LevelLow
	}
	msg.RiskWarning = warn
	return nil
}
