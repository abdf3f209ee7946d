package constants

import (
	"strings"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

var allSentiments = []Sentiment{
	SentimentPositive,
	SentimentNegative,
	SentimentNeutral,
}

func SentimentsAsStringSlice() []string {
	result := make([]string, len(allSentiments))
	for i, s := range allSentiments {
		result[i] = string(s)
	}
	return result
}

// CanonicalizeSentiment maps loose model output ("Positive", "bullish") onto the enum.
func CanonicalizeSentiment(input string) (Sentiment, bool) {
	if input == "" {
		return SentimentNeutral, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	// synonyms map
	synonyms := map[string]Sentiment{
		"bullish":     SentimentPositive,
		"favorable":   SentimentPositive,
		"optimistic":  SentimentPositive,
		"bearish":     SentimentNegative,
		"unfavorable": SentimentNegative,
		"critical":    SentimentNegative,
		"mixed":       SentimentNeutral,
		"balanced":    SentimentNeutral,
	}

	if s, ok := synonyms[normalized]; ok {
		return s, true
	}

	for _, s := range allSentiments {
		if normalized == string(s) {
			return s, true
		}
	}

	return SentimentNeutral, false
}
