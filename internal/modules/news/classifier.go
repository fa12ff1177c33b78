// Package news generates, classifies, stores and serves market headlines.
package news

import (
	"strings"
	"unicode"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
)

var (
	bullishTerms = []string{"surge", "beat", "upgrade", "record", "strong", "rall", "jump", "soar", "gain", "outperform"}
	bearishTerms = []string{"fall", "miss", "downgrade", "weak", "probe", "slow", "decline", "lawsuit", "plunge", "cut"}
)

// Classify labels text by counting bullish and bearish terms in the title
// and summary. A term matches any word it prefixes, so "surges" counts as
// "surge". Ties are neutral.
func Classify(title, summary string) domain.Sentiment {
	score := 0
	for _, word := range words(title + " " + summary) {
		if hasPrefix(word, bullishTerms) {
			score++
		}
		if hasPrefix(word, bearishTerms) {
			score--
		}
	}
	switch {
	case score > 0:
		return domain.SentimentBullish
	case score < 0:
		return domain.SentimentBearish
	default:
		return domain.SentimentNeutral
	}
}

func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	})
}

func hasPrefix(word string, terms []string) bool {
	for _, t := range terms {
		if strings.HasPrefix(word, t) {
			return true
		}
	}
	return false
}
