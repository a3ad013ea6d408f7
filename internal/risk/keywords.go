package risk

import (
	"context"
	"regexp"
	"strings"
)

// patternGroup is one category of risk signal.
type patternGroup struct {
	name     string
	level    Level
	weight   float64
	patterns []*regexp.Regexp
}

func compile(exprs ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		res[i] = regexp.MustCompile(e)
	}
	return res
}

// riskGroups holds the heuristic keyword table. The four-tag output is the
// stable contract; the table itself is an implementation detail of this
// classifier and can be swapped without touching callers.
var riskGroups = []patternGroup{
	{
		name:   "suicidal_ideation",
		level:  LevelCritical,
		weight: 0.9,
		patterns: compile(
			`(want|going|plan|planning|thinking about|tried|trying) to (die|kill myself)`,
			`end it all`,
			`end my life`,
			`suicid(e|al)`,
			`jump off (a|the)`,
			`overdose`,
			`(can't|cannot) go on living`,
			`better off dead`,
			`world would be better without me`,
		),
	},
	{
		name:   "self_harm",
		level:  LevelHigh,
		weight: 0.7,
		patterns: compile(
			`cut(ting)? myself`,
			`hurt(ing)? myself`,
			`self.?harm`,
			`burn(ing)? myself`,
			`scratch until (i|it) bleed`,
			`cuts on my (arm|leg)`,
		),
	},
	{
		name:   "hopelessness",
		level:  LevelHigh,
		weight: 0.6,
		patterns: compile(
			`no hope`,
			`hopeless`,
			`never get(s)? better`,
			`no way out`,
			`(i'?m|i am) (a )?(total )?failure`,
			`useless`,
			`worthless`,
			`no future`,
		),
	},
	{
		name:   "severe_depression",
		level:  LevelModerate,
		weight: 0.5,
		patterns: compile(
			`deep(ly)? depress`,
			`completely empty`,
			`feel nothing`,
			`dead inside`,
			`no energy for anything`,
			`can'?t get out of bed`,
			`lost all meaning`,
		),
	},
	{
		name:   "isolation",
		level:  LevelModerate,
		weight: 0.4,
		patterns: compile(
			`completely alone`,
			`nobody understands`,
			`everyone (left|abandoned) me`,
			`(i have|there'?s) no one`,
			`nobody cares`,
		),
	},
	{
		name:   "anxiety_panic",
		level:  LevelModerate,
		weight: 0.3,
		patterns: compile(
			`panic attack`,
			`can'?t breathe`,
			`heart (is )?racing`,
			`constant (fear|terror)`,
			`paralyzing anxiety`,
		),
	},
}

// protectivePatterns match resilience signals that soften the assessment.
var protectivePatterns = compile(
	`my (family|friends|therapist)`,
	`people who love me`,
	`(don'?t|do not) want to hurt (them|anyone)`,
	`getting help`,
	`seeing a (therapist|psychologist|psychiatrist|counsell?or)`,
	`taking (my )?medication`,
	`(won'?t|will not) give up`,
	`one day at a time`,
)

// humanRequestPatterns match an explicit ask to be connected to a person.
var humanRequestPatterns = compile(
	`talk (to|with) a (real )?(person|human|volunteer)`,
	`speak (to|with) (a (person|human|volunteer)|someone real)`,
	`connect me (to|with)`,
	`(want|need) a (human|person|volunteer)`,
	`can i talk to someone`,
	`forward me`,
	`not a bot`,
)

// emergencyPatterns match phrasing indicating acute, immediate danger.
var emergencyPatterns = compile(
	`right now`,
	`tonight`,
	`about to`,
	`this is an emergency`,
	`i have (the )?(pills|a plan|a knife|a gun)`,
)

// KeywordClassifier is a local regex heuristic implementing Classifier.
// It never fails; unmatched text classifies as low with zero confidence.
type KeywordClassifier struct{}

// NewKeywordClassifier returns a classifier backed by the built-in
// keyword table.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Classify scans the text against each pattern group and returns the most
// severe matching level. Confidence starts at the top group's weight and
// grows slightly with each additional matching group. Two or more
// protective-factor matches soften a non-critical result by one step.
func (c *KeywordClassifier) Classify(_ context.Context, text string) (Assessment, error) {
	lower := strings.ToLower(text)

	var (
		top        Level
		confidence float64
		indicators []string
	)

	for _, g := range riskGroups {
		if matchAny(g.patterns, lower) {
			indicators = append(indicators, g.name)
			if g.level.MoreSevere(top) || top == "" {
				top = g.level
			}
			if g.weight > confidence {
				confidence = g.weight
			} else {
				confidence += 0.05
			}
		}
	}

	if top == "" {
		return Assessment{Tag: LevelLow, Confidence: 0}, nil
	}

	if n := countMatches(protectivePatterns, lower); n >= 2 && top != LevelCritical {
		top = stepDown(top)
		confidence -= 0.1
	}

	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}

	return Assessment{Tag: top, Confidence: confidence, Indicators: indicators}, nil
}

// WantsHuman reports whether the text explicitly asks for a human volunteer.
func WantsHuman(text string) bool {
	return matchAny(humanRequestPatterns, strings.ToLower(text))
}

// IsEmergency reports whether the text signals acute immediate danger.
func IsEmergency(text string) bool {
	return matchAny(emergencyPatterns, strings.ToLower(text))
}

func matchAny(res []*regexp.Regexp, text string) bool {
	for _, re := range res {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func countMatches(res []*regexp.Regexp, text string) int {
	n := 0
	for _, re := range res {
		if re.MatchString(text) {
			n++
		}
	}
	return n
}

func stepDown(l Level) Level {
	switch l {
	case LevelCritical:
		return LevelHigh
	case LevelHigh:
		return LevelModerate
	default:
		return LevelLow
	}
}
