package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// fencedBlock matches ```json ... ``` and bare ``` ... ``` fences.
var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// RecoverJSONObject pulls a JSON object out of raw model output. Direct parse
// first; if the model wrapped the payload in a markdown fence, parse the fence
// interior; otherwise ParseError.
func RecoverJSONObject(text string) ([]byte, error) {
	trimmed := strings.TrimSpace(text)

	if isJSONObject(trimmed) {
		return []byte(trimmed), nil
	}

	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		inner := strings.TrimSpace(m[1])
		if isJSONObject(inner) {
			return []byte(inner), nil
		}
	}

	detail := trimmed
	if len(detail) > 120 {
		detail = detail[:120] + "…"
	}
	return nil, &ParseError{Detail: "no JSON object in response: " + detail}
}

func isJSONObject(s string) bool {
	if !strings.HasPrefix(s, "{") {
		return false
	}
	var m map[string]any
	return json.Unmarshal([]byte(s), &m) == nil
}
