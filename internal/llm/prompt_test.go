package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daniel-osaze/newsletter-mentions/constants"
)

func TestBuildSystemPromptDeterministic(t *testing.T) {
	a := BuildSystemPrompt()
	b := BuildSystemPrompt()
	assert.Equal(t, a, b)
	assert.Contains(t, a, "ONLY JSON")
	for _, s := range constants.SentimentsAsStringSlice() {
		assert.Contains(t, a, s)
	}
}

func TestBuildUserPromptIncludesSourceAndContent(t *testing.T) {
	p := BuildUserPrompt("Acme raised a round.", "TechWeekly")
	assert.Contains(t, p, "Source: TechWeekly")
	assert.Contains(t, p, "Acme raised a round.")
}

func TestBuildUserPromptTruncatesLongContent(t *testing.T) {
	content := strings.Repeat("a", constants.ContentExcerptCap+100)
	p := BuildUserPrompt(content, "src")
	assert.True(t, strings.HasSuffix(p, constants.TruncationMarker))
	assert.NotContains(t, p, strings.Repeat("a", constants.ContentExcerptCap+1))
}

func TestBuildUserPromptShortContentUntouched(t *testing.T) {
	p := BuildUserPrompt("short", "src")
	assert.NotContains(t, p, constants.TruncationMarker)
}

func TestMentionsSchemaAcceptsValidPayload(t *testing.T) {
	schema := BuildMentionsJSONSchema()
	doc := []byte(`{"companies":[{"name":"Acme","description":"widgets","context":"Acme shipped","sentiment":"positive","confidence":0.7}]}`)
	require.NoError(t, ValidateJSONAgainstSchema(schema, doc))
}

func TestMentionsSchemaAcceptsEmptyList(t *testing.T) {
	require.NoError(t, ValidateJSONAgainstSchema(BuildMentionsJSONSchema(), []byte(`{"companies":[]}`)))
}

func TestMentionsSchemaRejectsBadPayloads(t *testing.T) {
	schema := BuildMentionsJSONSchema()
	cases := map[string]string{
		"confidence above 1":  `{"companies":[{"name":"A","description":"","context":"","sentiment":"neutral","confidence":1.5}]}`,
		"confidence below 0":  `{"companies":[{"name":"A","description":"","context":"","sentiment":"neutral","confidence":-0.1}]}`,
		"empty name":          `{"companies":[{"name":"","description":"","context":"","sentiment":"neutral","confidence":0.5}]}`,
		"bad sentiment":       `{"companies":[{"name":"A","description":"","context":"","sentiment":"great","confidence":0.5}]}`,
		"missing companies":   `{}`,
		"unknown top key":     `{"companies":[],"notes":"hi"}`,
		"unknown mention key": `{"companies":[{"name":"A","description":"","context":"","sentiment":"neutral","confidence":0.5,"extra":1}]}`,
		"missing sentiment":   `{"companies":[{"name":"A","description":"","context":"","confidence":0.5}]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(doc)))
		})
	}
}
