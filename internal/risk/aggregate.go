package risk

// Apply folds one incoming per-message tag into a session's current level
// and returns the new level.
//
// Escalation is always immediate. De-escalation from critical is clamped to
// high: a single calmer message never pulls a session from critical straight
// to low or moderate. Below critical, a lower tag is adopted as-is.
//
// An unknown incoming tag is treated as low; the returned warning flag marks
// the message for a classification-warning record. Aggregation itself never
// fails.
func Apply(current, incoming Level) (next Level, warning bool) {
	if !incoming.Valid() {
		incoming = LevelLow
		warning = true
	}

	if current == "" {
		return incoming, warning
	}

	if incoming.MoreSevere(current) {
		return incoming, warning
	}

	if current == LevelCritical && incoming != LevelCritical {
		return LevelHigh, warning
	}

	return incoming, warning
}
