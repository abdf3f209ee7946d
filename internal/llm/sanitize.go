package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/daniel-osaze/newsletter-mentions/constants"
)

// NormalizeMentionsJSON repairs string hygiene on a parsed-but-invalid
// document so it can re-validate:
//   - trims name/description/context, drops mentions with an empty name
//   - canonicalizes sentiment casing and known synonyms onto the enum
//   - coerces a string confidence ("0.8") to a number
//   - fills missing description/context with ""
//   - removes unknown keys (schema is additionalProperties=false)
//
// It never repairs numeric range: an out-of-range confidence stays invalid.
func NormalizeMentionsJSON(raw []byte) ([]byte, []string, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var dropped []string

	items, ok := doc["companies"].([]any)
	if !ok {
		// some models emit a bare array under a different key or at top level;
		// only the canonical key is recoverable here
		return nil, nil, fmt.Errorf("sanitize: 'companies' is not an array")
	}

	cleaned := make([]any, 0, len(items))
	for i, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			dropped = append(dropped, fmt.Sprintf("companies[%d](not object)", i))
			continue
		}

		name := trimString(m, "name")
		if name == "" {
			dropped = append(dropped, fmt.Sprintf("companies[%d](empty name)", i))
			continue
		}

		for _, k := range []string{"description", "context"} {
			if _, present := m[k]; !present {
				m[k] = ""
			} else {
				trimString(m, k)
			}
		}

		if v, ok := m["sentiment"].(string); ok {
			if s, matched := constants.CanonicalizeSentiment(v); matched {
				m["sentiment"] = string(s)
			}
		}

		if v, ok := m["confidence"].(string); ok {
			var f float64
			if _, err := fmt.Sscanf(strings.TrimSpace(v), "%g", &f); err == nil {
				m["confidence"] = f
			}
		}

		allowed := map[string]struct{}{
			"name": {}, "description": {}, "context": {}, "sentiment": {}, "confidence": {},
		}
		for k := range m {
			if _, ok := allowed[k]; !ok {
				delete(m, k)
				dropped = append(dropped, fmt.Sprintf("companies[%d].%s(unknown)", i, k))
			}
		}

		cleaned = append(cleaned, m)
	}
	doc["companies"] = cleaned

	for k := range doc {
		if k != "companies" {
			delete(doc, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	return out, dropped, nil
}

func trimString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		s := strings.TrimSpace(v)
		m[key] = s
		return s
	}
	return ""
}
