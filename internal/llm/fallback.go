package llm

import (
	"regexp"
	"strings"

	"github.com/daniel-osaze/newsletter-mentions/constants"
)

// namePattern matches a capitalized company-name run: "Stripe", "Andreessen
// Horowitz", "OpenAI Inc."
const namePattern = `([A-Z][A-Za-z0-9&.']*(?:[ -][A-Z][A-Za-z0-9&.']*){0,3})`

type fallbackRule struct {
	re          *regexp.Regexp
	description string
}

// FallbackExtractor recovers plausible company names with regex heuristics
// when the primary extractor cannot run at all. It is opt-in only; output is
// tagged with low confidence so downstream consumers can discount it.
type FallbackExtractor struct {
	rules []fallbackRule
}

func NewFallbackExtractor() *FallbackExtractor {
	return &FallbackExtractor{
		rules: []fallbackRule{
			{regexp.MustCompile(namePattern + `\s+(?:raised|raises|has raised)\s+\$`), "mentioned in a fundraising announcement"},
			{regexp.MustCompile(namePattern + `\s+(?:launched|launches|unveiled|is launching)\b`), "mentioned launching a product"},
			{regexp.MustCompile(`(?:CEO|CTO|CFO|founder) of\s+` + namePattern), "mentioned via an executive reference"},
			{regexp.MustCompile(namePattern + `\s+(?:acquired|acquires|is acquiring)\b`), "mentioned in an acquisition"},
			{regexp.MustCompile(namePattern + `\s+announced\b`), "mentioned in an announcement"},
		},
	}
}

// Extract scans content for heuristic company mentions. Every mention comes
// back with neutral sentiment and confidence at or below the fallback cap.
func (f *FallbackExtractor) Extract(content string) []CompanyMention {
	seen := make(map[string]struct{})
	var mentions []CompanyMention

	for _, rule := range f.rules {
		for _, m := range rule.re.FindAllStringSubmatchIndex(content, -1) {
			name := strings.TrimSpace(content[m[2]:m[3]])
			if name == "" || isStopName(name) {
				continue
			}
			key := strings.ToLower(name)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			mentions = append(mentions, CompanyMention{
				Name:        name,
				Description: rule.description,
				Context:     snippetAround(content, m[0], m[1]),
				Sentiment:   constants.SentimentNeutral,
				Confidence:  0.4,
			})
		}
	}
	return mentions
}

// isStopName filters sentence-initial words and common non-company
// capitalized tokens the name pattern over-matches.
func isStopName(name string) bool {
	stop := map[string]struct{}{
		"The": {}, "This": {}, "That": {}, "It": {}, "They": {}, "We": {},
		"He": {}, "She": {}, "Today": {}, "Yesterday": {}, "Last": {},
		"In": {}, "On": {}, "A": {}, "An": {},
	}
	_, ok := stop[name]
	return ok
}

// snippetAround returns the match plus a little surrounding text, clamped to
// word-ish boundaries.
func snippetAround(content string, start, end int) string {
	const pad = 60
	s := start - pad
	if s < 0 {
		s = 0
	}
	e := end + pad
	if e > len(content) {
		e = len(content)
	}
	return strings.TrimSpace(content[s:e])
}
