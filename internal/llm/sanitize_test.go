package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normalized(t *testing.T, raw string) map[string]any {
	t.Helper()
	out, _, err := NormalizeMentionsJSON([]byte(raw))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))
	return doc
}

func firstMention(t *testing.T, doc map[string]any) map[string]any {
	t.Helper()
	items, ok := doc["companies"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, items)
	m, ok := items[0].(map[string]any)
	require.True(t, ok)
	return m
}

func TestNormalizeTrimsStrings(t *testing.T) {
	doc := normalized(t, `{"companies":[{"name":"  Acme  ","description":" d ","context":" c ","sentiment":"neutral","confidence":0.5}]}`)
	m := firstMention(t, doc)
	assert.Equal(t, "Acme", m["name"])
	assert.Equal(t, "d", m["description"])
	assert.Equal(t, "c", m["context"])
}

func TestNormalizeDropsEmptyNames(t *testing.T) {
	out, dropped, err := NormalizeMentionsJSON([]byte(`{"companies":[{"name":"   "},{"name":"Acme","sentiment":"neutral","confidence":0.5}]}`))
	require.NoError(t, err)
	assert.NotEmpty(t, dropped)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))
	items := doc["companies"].([]any)
	assert.Len(t, items, 1)
}

func TestNormalizeCanonicalizesSentiment(t *testing.T) {
	doc := normalized(t, `{"companies":[{"name":"Acme","sentiment":"Bullish","confidence":0.5}]}`)
	m := firstMention(t, doc)
	assert.Equal(t, "positive", m["sentiment"])
}

func TestNormalizeCoercesStringConfidence(t *testing.T) {
	doc := normalized(t, `{"companies":[{"name":"Acme","sentiment":"neutral","confidence":"0.75"}]}`)
	m := firstMention(t, doc)
	assert.InDelta(t, 0.75, m["confidence"], 1e-9)
}

func TestNormalizeFillsMissingOptionalStrings(t *testing.T) {
	doc := normalized(t, `{"companies":[{"name":"Acme","sentiment":"neutral","confidence":0.5}]}`)
	m := firstMention(t, doc)
	assert.Equal(t, "", m["description"])
	assert.Equal(t, "", m["context"])
}

func TestNormalizeRemovesUnknownKeys(t *testing.T) {
	out, dropped, err := NormalizeMentionsJSON([]byte(`{"companies":[{"name":"Acme","sentiment":"neutral","confidence":0.5,"ticker":"ACME"}],"notes":"hi"}`))
	require.NoError(t, err)
	assert.Len(t, dropped, 2)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.NotContains(t, doc, "notes")
	m := firstMention(t, doc)
	assert.NotContains(t, m, "ticker")
}

func TestNormalizeNeverRepairsNumericRange(t *testing.T) {
	doc := normalized(t, `{"companies":[{"name":"Acme","sentiment":"neutral","confidence":1.5}]}`)
	m := firstMention(t, doc)
	assert.InDelta(t, 1.5, m["confidence"], 1e-9, "out-of-range confidence must survive normalization")
	assert.Error(t, ValidateJSONAgainstSchema(BuildMentionsJSONSchema(), mustMarshal(t, doc)))
}

func TestNormalizeRejectsNonArrayCompanies(t *testing.T) {
	_, _, err := NormalizeMentionsJSON([]byte(`{"companies":"none"}`))
	assert.Error(t, err)
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
