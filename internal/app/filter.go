package app

import (
	"strings"
	"time"

	"review_pulse/internal/domain"
)

// Filter returns the reviews satisfying every predicate, in input order.
func Filter(reviews []domain.Review, p domain.Predicates) []domain.Review {
	match := compile(p)
	out := make([]domain.Review, 0, len(reviews))
	for _, r := range reviews {
		if match(r) {
			out = append(out, r)
		}
	}
	return out
}

func compile(p domain.Predicates) func(domain.Review) bool {
	var preds []func(domain.Review) bool

	if q := strings.ToLower(p.Search); q != "" {
		preds = append(preds, func(r domain.Review) bool {
			return strings.Contains(strings.ToLower(r.Text), q) ||
				strings.Contains(strings.ToLower(r.Author), q) ||
				strings.Contains(strings.ToLower(r.Source), q)
		})
	}
	if !isAll(p.Sentiment) {
		want := domain.Sentiment(strings.ToLower(p.Sentiment))
		preds = append(preds, func(r domain.Review) bool { return r.Sentiment == want })
	}
	if !isAll(p.Listing) {
		preds = append(preds, func(r domain.Review) bool { return r.Listing() == p.Listing })
	}
	if !isAll(p.Channel) {
		preds = append(preds, func(r domain.Review) bool { return r.Source == p.Channel })
	}
	if from, ok := parseDay(p.From); ok {
		preds = append(preds, func(r domain.Review) bool { return !parseISO(r.Date).Before(from) })
	}
	if to, ok := parseDay(p.To); ok {
		end := to.Add(day)
		preds = append(preds, func(r domain.Review) bool { return parseISO(r.Date).Before(end) })
	}
	if !isAll(p.Category) {
		c, ok := domain.CategoryByName(p.Category)
		preds = append(preds, func(r domain.Review) bool { return ok && matchesCategory(r, c) })
	}

	return func(r domain.Review) bool {
		for _, pred := range preds {
			if !pred(r) {
				return false
			}
		}
		return true
	}
}

func parseDay(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
