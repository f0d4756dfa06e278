package pii

import (
	"regexp"

	"github.com/ppiankov/deskbridge/internal/model"
)

// Pattern is one compiled detection pattern with a stable identifier.
type Pattern struct {
	ID    string
	Regex *regexp.Regexp
}

// Match is a single occurrence of sensitive text.
type Match struct {
	Text      string
	PatternID string
}

// Default patterns. These are heuristic filters, not guarantees: a
// string the regexes miss will not be redacted. That residual risk is a
// documented boundary of the system, not a bug.
var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRe = regexp.MustCompile(`\+?\d[\d\s().\-]{7,}\d`)
	cardRe  = regexp.MustCompile(`\b(?:\d[ \-]*?){13,19}\b`)
)

// DefaultPatterns returns the built-in email/phone/card pattern set.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{ID: "email", Regex: emailRe},
		{ID: "phone", Regex: phoneRe},
		{ID: "card", Regex: cardRe},
	}
}

// Detector finds PII in OCR text. Patterns are injected at construction
// so tests can vary them without cross-test leakage; there is no
// process-wide mutable pattern set.
type Detector struct {
	patterns []Pattern
}

// NewDetector creates a detector with the default patterns plus any
// caller-supplied custom patterns, applied in order.
func NewDetector(custom ...Pattern) *Detector {
	return &Detector{patterns: append(DefaultPatterns(), custom...)}
}

// NewDetectorWithPatterns creates a detector with exactly the given
// patterns, no defaults.
func NewDetectorWithPatterns(patterns []Pattern) *Detector {
	return &Detector{patterns: patterns}
}

// Detect returns every match found by every pattern, not just the
// first. An empty result means no pattern matched.
func (d *Detector) Detect(text string) []Match {
	var matches []Match
	for _, p := range d.patterns {
		for _, m := range p.Regex.FindAllString(text, -1) {
			matches = append(matches, Match{Text: m, PatternID: p.ID})
		}
	}
	return matches
}

// FindPIIBoxes returns the subset of boxes whose text contains at least
// one match.
func (d *Detector) FindPIIBoxes(boxes []model.TextBox) []model.TextBox {
	var hits []model.TextBox
	for _, box := range boxes {
		if len(d.Detect(box.Text)) > 0 {
			hits = append(hits, box)
		}
	}
	return hits
}
