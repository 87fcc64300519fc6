package transcript

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// Bracketed non-speech markers like [Music], [Applause], [inaudible].
	bracketMarkerRe = regexp.MustCompile(`\[[^\]]{0,60}\]`)

	// Parenthesized markers use a known vocabulary so real parenthetical
	// speech is left alone.
	parenMarkerRe = regexp.MustCompile(`(?i)\((?:music|applause|laughter|inaudible|crosstalk|silence|noise|coughing)\)`)

	whitespaceRe = regexp.MustCompile(`\s+`)
)

// piiPattern pairs a detector with its typed placeholder. Order matters:
// card numbers must be scrubbed before phone numbers so a card is never
// partially eaten by the looser phone pattern.
type piiPattern struct {
	re          *regexp.Regexp
	placeholder string
}

var piiPatterns = []piiPattern{
	{regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`), "[REDACTED_EMAIL]"},
	{regexp.MustCompile(`\b(?:\d[ \-]?){13,16}\b`), "[REDACTED_CARD]"},
	{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "[REDACTED_SSN]"},
	{regexp.MustCompile(`\b(?:\+?\d{1,2}[ .\-]?)?(?:\(\d{3}\)|\d{3})[ .\-]?\d{3}[ .\-]?\d{4}\b`), "[REDACTED_PHONE]"},
	{regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`), "[REDACTED_IP]"},
}

// NormalizeResult carries the cleaned segments plus what happened to them.
// Redaction is reported, never silent.
type NormalizeResult struct {
	Segments []Segment
	Warnings []string
	Redacted bool
}

// Normalize cleans raw transcript segments before chunking: strips non-speech
// markers, collapses whitespace, drops segments with an invalid time range
// (warning, not failure), drops segments left empty after cleaning, and
// redacts PII. Redaction runs here, before chunking, so cited excerpts
// downstream never carry raw PII even under fuzzy matching.
func Normalize(segments []Segment) NormalizeResult {
	result := NormalizeResult{Segments: make([]Segment, 0, len(segments))}

	for i, seg := range segments {
		if seg.Start >= seg.End {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"segment %d dropped: invalid time range [%.2f, %.2f]", i, seg.Start, seg.End))
			continue
		}

		text := CleanText(seg.Text)
		if text == "" {
			continue
		}

		redacted, didRedact := RedactPII(text)
		if didRedact {
			result.Redacted = true
		}

		seg.Text = redacted
		result.Segments = append(result.Segments, seg)
	}

	return result
}

// CleanText strips non-speech markers and collapses whitespace.
func CleanText(text string) string {
	text = bracketMarkerRe.ReplaceAllString(text, " ")
	text = parenMarkerRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// RedactPII replaces email, card, SSN, phone and IPv4 shaped strings with
// typed placeholder tokens. The boolean reports whether anything matched.
func RedactPII(text string) (string, bool) {
	redacted := false
	for _, p := range piiPatterns {
		if p.re.MatchString(text) {
			text = p.re.ReplaceAllString(text, p.placeholder)
			redacted = true
		}
	}
	return text, redacted
}
