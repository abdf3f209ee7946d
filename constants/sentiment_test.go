package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalizeSentiment(t *testing.T) {
	cases := []struct {
		in      string
		want    Sentiment
		matched bool
	}{
		{"positive", SentimentPositive, true},
		{"Positive", SentimentPositive, true},
		{"  NEGATIVE  ", SentimentNegative, true},
		{"bullish", SentimentPositive, true},
		{"Bearish", SentimentNegative, true},
		{"mixed", SentimentNeutral, true},
		{"", SentimentNeutral, false},
		{"ecstatic", SentimentNeutral, false},
	}

	for _, tc := range cases {
		got, matched := CanonicalizeSentiment(tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
		assert.Equal(t, tc.matched, matched, "input %q", tc.in)
	}
}

func TestSentimentsAsStringSlice(t *testing.T) {
	assert.Equal(t, []string{"positive", "negative", "neutral"}, SentimentsAsStringSlice())
}
