package llm

import (
	"strings"

	"github.com/daniel-osaze/newsletter-mentions/constants"
)

// BuildSystemPrompt encodes the extraction contract the validator enforces.
// Pure function: identical inputs always render identical text, which matters
// because the prompt is not part of the cache key (only content is).
func BuildSystemPrompt() string {
	parts := []string{
		"You are a newsletter analyst. Return ONLY JSON that matches the provided JSON Schema.",
		"Identify every company mentioned in the newsletter content.",
		"For each company emit: 'name' (the company name as written), " +
			"'description' (one short sentence on what the company does), " +
			"'context' (the sentence or clause where the mention appears), " +
			"'sentiment' (exactly one of: " + strings.Join(constants.SentimentsAsStringSlice(), ", ") + "), " +
			"and 'confidence' (a number between 0 and 1).",
		"Sentiment reflects how the newsletter frames the company, not general opinion.",
		"Do not invent companies that are not in the text. Generic product names and people are not companies.",
		"If no companies are mentioned, return {\"companies\": []}.",

		// formatting hygiene:
		"Never output null. Never wrap the JSON in prose or markdown.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt embeds the source label and a length-capped content excerpt.
func BuildUserPrompt(content, sourceLabel string) string {
	var b strings.Builder
	b.WriteString("Source: ")
	b.WriteString(strings.TrimSpace(sourceLabel))
	b.WriteString("\n\nNewsletter content:\n")
	if len(content) > constants.ContentExcerptCap {
		b.WriteString(content[:constants.ContentExcerptCap])
		b.WriteString(constants.TruncationMarker)
	} else {
		b.WriteString(content)
	}
	return b.String()
}

// BuildMentionsJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. We send it to the model as the output contract and use it
// locally to validate the response.
func BuildMentionsJSONSchema() map[string]any {
	mention := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"name":        map[string]any{"type": "string", "minLength": 1},
			"description": map[string]any{"type": "string"},
			"context":     map[string]any{"type": "string"},
			"sentiment":   map[string]any{"type": "string", "enum": constants.SentimentsAsStringSlice()},
			"confidence":  map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
		},
		"required": []string{"name", "description", "context", "sentiment", "confidence"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"companies": map[string]any{
				"type":  "array",
				"items": mention,
			},
		},
		"required": []string{"companies"},
	}
}
