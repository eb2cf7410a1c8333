// Package classifier maps a proposed decision to a severity tier using
// heuristic keyword matching. Classification is deterministic and does no
// I/O.
package classifier

import (
	"fmt"
	"strings"

	"github.com/steadylabs/steward/pkg/models"
)

// majorPatterns indicate decisions that must block for human input.
var majorPatterns = []string{
	"architecture",
	"architectural",
	"security",
	"auth",
	"authentication",
	"migration",
	"database schema",
	"schema change",
	"delete data",
	"drop table",
	"api contract",
	"public api",
	"framework",
	"infrastructure",
}

// mediumPatterns indicate decisions worth analyzing before acting.
var mediumPatterns = []string{
	"refactor",
	"algorithm",
	"library",
	"dependency",
	"data structure",
	"design pattern",
	"approach",
	"performance",
	"caching",
	"concurrency",
}

// minorPatterns indicate low-stakes decisions recorded for async review.
var minorPatterns = []string{
	"naming",
	"rename",
	"variable name",
	"file organization",
	"error message",
	"log message",
	"ordering",
	"default value",
}

// trivialPatterns indicate decisions not worth recording.
var trivialPatterns = []string{
	"formatting",
	"whitespace",
	"indentation",
	"typo",
	"import order",
	"comment wording",
	"spacing",
}

// severityKeywords each bump the tier up one step, capped at major.
var severityKeywords = []string{
	"breaking",
	"production",
	"security",
	"irreversible",
	"migration",
	"data loss",
}

// simplicityKeywords each bump the tier down one step, floored at trivial.
var simplicityKeywords = []string{
	"cosmetic",
	"style",
	"minor",
}

// baseConfidence maps each pattern family to its match confidence.
var baseConfidence = map[models.DecisionTier]float64{
	models.TierTrivial: 0.9,
	models.TierMinor:   0.8,
	models.TierMedium:  0.7,
	models.TierMajor:   0.85,
}

// defaultConfidence applies when no pattern family matches.
const defaultConfidence = 0.6

// Input is a proposed decision to classify.
type Input struct {
	// Question is the decision being asked.
	Question string
	// Options are the candidate answers.
	Options []string
	// Context is optional surrounding context.
	Context string
	// AffectedAreas lists components or paths the decision touches.
	AffectedAreas []string
}

// Classification is the result of classifying a decision.
type Classification struct {
	// Tier is the final severity tier.
	Tier models.DecisionTier
	// Confidence is the classifier's confidence in the tier.
	Confidence float64
	// Reasoning names the matched family and applied adjustments.
	Reasoning string
	// Suggestion is a human-readable handling hint keyed off the tier.
	Suggestion string
}

// Classify maps a decision to a severity tier. Pattern families are tested
// in order major > medium > minor > trivial; the first family with any
// match sets the base tier. Severity and simplicity keywords then move the
// tier by the sign of their count difference, more than 3 options bump
// non-major tiers up one step, and more than 5 affected areas bump up one
// step regardless of the current tier.
func Classify(in Input) Classification {
	text := combinedText(in)
	var notes []string

	tier, conf, family := baseTier(text)
	if family == "" {
		notes = append(notes, "no pattern family matched, defaulting to minor")
	} else {
		notes = append(notes, fmt.Sprintf("matched %s pattern family", family))
	}

	severity := countMatches(text, severityKeywords)
	simplicity := countMatches(text, simplicityKeywords)
	switch {
	case severity > simplicity:
		tier = tier.Bump()
		notes = append(notes, fmt.Sprintf("severity keywords (%d) outweigh simplicity (%d), bumped up", severity, simplicity))
	case simplicity > severity:
		tier = tier.Lower()
		notes = append(notes, fmt.Sprintf("simplicity keywords (%d) outweigh severity (%d), bumped down", simplicity, severity))
	}

	if len(in.Options) > 3 && tier != models.TierMajor {
		tier = tier.Bump()
		notes = append(notes, fmt.Sprintf("%d options, bumped up", len(in.Options)))
	}

	if len(in.AffectedAreas) > 5 {
		tier = tier.Bump()
		notes = append(notes, fmt.Sprintf("%d affected areas, bumped up", len(in.AffectedAreas)))
	}

	return Classification{
		Tier:       tier,
		Confidence: conf,
		Reasoning:  strings.Join(notes, "; "),
		Suggestion: suggestion(tier),
	}
}

// combinedText lower-cases and joins every text field of the input.
func combinedText(in Input) string {
	parts := []string{in.Question}
	parts = append(parts, in.Options...)
	parts = append(parts, in.Context)
	parts = append(parts, in.AffectedAreas...)
	return strings.ToLower(strings.Join(parts, " "))
}

// baseTier returns the first pattern family matched, ordered by severity.
func baseTier(text string) (models.DecisionTier, float64, string) {
	families := []struct {
		tier     models.DecisionTier
		patterns []string
	}{
		{models.TierMajor, majorPatterns},
		{models.TierMedium, mediumPatterns},
		{models.TierMinor, minorPatterns},
		{models.TierTrivial, trivialPatterns},
	}

	for _, f := range families {
		for _, p := range f.patterns {
			if strings.Contains(text, p) {
				return f.tier, baseConfidence[f.tier], string(f.tier)
			}
		}
	}
	return models.TierMinor, defaultConfidence, ""
}

// countMatches counts how many keywords appear in the text.
func countMatches(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

// suggestion returns the fixed handling hint for a tier. The mapping is
// keyed purely off the final tier, independent of confidence.
func suggestion(tier models.DecisionTier) string {
	switch tier {
	case models.TierTrivial:
		return "proceed without recording"
	case models.TierMinor:
		return "proceed and record for async review"
	case models.TierMedium:
		return "analyze options before proceeding"
	case models.TierMajor:
		return "block for human decision"
	default:
		return "analyze options before proceeding"
	}
}
