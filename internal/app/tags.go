package app

import (
	"strings"

	"review_pulse/internal/domain"
)

// ClassifyTags returns explicit tags when present, otherwise every category
// whose keywords occur in the text, in category declaration order.
func ClassifyTags(text string, explicit domain.TagInput, s domain.Sentiment) []string {
	if explicit.Present() {
		return explicitTags(explicit)
	}

	lower := strings.ToLower(text)
	tags := make([]string, 0, 2)
	for _, c := range domain.Categories {
		if containsAny(lower, c.Keywords) {
			tags = append(tags, c.Name)
		}
	}
	if len(tags) == 0 && s == domain.Negative {
		tags = append(tags, domain.GeneralComplaint)
	}
	return tags
}

func explicitTags(in domain.TagInput) []string {
	if in.IsSequence() {
		out := make([]string, len(in.Sequence))
		copy(out, in.Sequence)
		return out
	}
	parts := strings.Split(in.Scalar, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// matchesCategory: a tag naming the category, a free-form tag containing one
// of its keywords, or the text containing one. Tags naming another category
// are not keyword-scanned: "Accuracy" must not count as Comfort via "ac".
func matchesCategory(r domain.Review, c domain.Category) bool {
	for _, tag := range r.Tags {
		if strings.EqualFold(strings.TrimSpace(tag), c.Name) {
			return true
		}
	}
	for _, tag := range r.Tags {
		if domain.IsCategoryTag(tag) {
			continue
		}
		if containsAny(strings.ToLower(tag), c.Keywords) {
			return true
		}
	}
	return containsAny(strings.ToLower(r.Text), c.Keywords)
}
