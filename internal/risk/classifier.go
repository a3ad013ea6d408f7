package risk

import "context"

// Assessment is the result of classifying one message text.
type Assessment struct {
	Tag        Level
	Confidence float64  // 0..1
	Indicators []string // pattern-group names that fired
}

// Classifier assigns a coarse risk tag to a message text.
//
// Implementations may call out to external services; callers must impose
// their own timeout via ctx and treat a non-nil error as classifier failure
// (the pipeline falls back to a low tag with a recorded warning).
type Classifier interface {
	Classify(ctx context.Context, text string) (Assessment, error)
}
