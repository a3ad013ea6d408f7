// Package risk provides risk level classification and aggregation for
// support chat sessions.
package risk

// Level is a coarse ordinal severity tag for emotional-risk signals.
type Level string

const (
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// severities maps each known level to its ordinal rank.
var severities = map[Level]int{
	LevelLow:      0,
	LevelModerate: 1,
	LevelHigh:     2,
	LevelCritical: 3,
}

// ParseLevel converts a raw string to a Level. The second return value is
// false for unknown values.
func ParseLevel(s string) (Level, bool) {
	l := Level(s)
	_, ok := severities[l]
	return l, ok
}

// Valid reports whether the level is one of the four known values.
func (l Level) Valid() bool {
	_, ok := severities[l]
	return ok
}

// Severity returns the ordinal rank of the level (low=0 .. critical=3),
// or -1 for unknown values.
func (l Level) Severity() int {
	s, ok := severities[l]
	if !ok {
		return -1
	}
	return s
}

// MoreSevere reports whether l ranks strictly above other.
func (l Level) MoreSevere(other Level) bool {
	return l.Severity() > other.Severity()
}

// String returns the level's wire value.
func (l Level) String() string {
	return string(l)
}
