package app

import (
	"strings"

	"review_pulse/internal/domain"
)

// Bilingual (EN/FR) keyword lists for reviews that carry no usable rating.
var (
	positiveKeywords = []string{
		"excellent", "amazing", "great", "awesome", "recommend", "perfect", "love", "good", "nice",
		"pleasure", "smooth", "timely", "wonderful", "guest", "super",
		"bien", "bon", "merci", "recommande", "plaisir", "exceptionnel", "sympa", "respect", "adored", "adoré",
	}
	negativeKeywords = []string{
		"bad", "terrible", "horrible", "dirty", "poor", "worst", "waste", "rude", "issues", "disappointed",
		"déçu", "sale", "mauvais", "horreur", "bruit", "fuir", "jamais", "remboursement", "poubelle",
	}
)

// ClassifySentiment picks the sentiment for one review.
// An explicit known label wins; a zero rating means "no rating" and falls back
// to keywords (positive checked first); otherwise rating thresholds apply.
func ClassifySentiment(rating float64, text, explicit string) domain.Sentiment {
	if s, ok := domain.ParseSentiment(explicit); ok {
		return s
	}
	if rating == 0 {
		lower := strings.ToLower(text)
		switch {
		case containsAny(lower, positiveKeywords):
			return domain.Positive
		case containsAny(lower, negativeKeywords):
			return domain.Negative
		default:
			return domain.Neutral
		}
	}
	switch {
	case rating >= 4:
		return domain.Positive
	case rating == 3:
		return domain.Neutral
	case rating <= 2:
		return domain.Negative
	}
	return domain.Neutral
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
