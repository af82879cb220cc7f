package app

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"review_pulse/internal/domain"
)

const (
	AllListings = "All Listings"

	persistentSpan = 30 * 24 * time.Hour
	day            = 24 * time.Hour
)

// ScaledRating maps 10-point ratings onto the 5-point scale. Stored ratings stay raw.
func ScaledRating(r float64) float64 {
	if r > 5 {
		return r / 2
	}
	return r
}

func isAll(v string) bool {
	return v == "" || strings.EqualFold(v, "all") || v == AllListings
}

// ForListing narrows to one listing; "", "all" and AllListings keep everything.
func ForListing(reviews []domain.Review, listing string) []domain.Review {
	if isAll(listing) {
		return reviews
	}
	out := make([]domain.Review, 0, len(reviews))
	for _, r := range reviews {
		if r.Listing() == listing {
			out = append(out, r)
		}
	}
	return out
}

func SentimentDistribution(reviews []domain.Review) domain.SentimentStats {
	st := domain.SentimentStats{Total: len(reviews)}
	for _, r := range reviews {
		switch r.Sentiment {
		case domain.Positive:
			st.Positive++
		case domain.Neutral:
			st.Neutral++
		case domain.Negative:
			st.Negative++
		}
	}
	return st
}

func negatives(reviews []domain.Review) []domain.Review {
	out := make([]domain.Review, 0, len(reviews))
	for _, r := range reviews {
		if r.Sentiment == domain.Negative {
			out = append(out, r)
		}
	}
	return out
}

// TopIssues ranks tags of negative reviews by frequency; ties keep first-seen order.
func TopIssues(reviews []domain.Review, n int) []domain.TagCount {
	return topTags(negatives(reviews), n)
}

func topTags(reviews []domain.Review, n int) []domain.TagCount {
	idx := map[string]int{}
	counts := make([]domain.TagCount, 0, 8)
	for _, r := range reviews {
		for _, t := range r.Tags {
			if i, ok := idx[t]; ok {
				counts[i].Count++
				continue
			}
			idx[t] = len(counts)
			counts = append(counts, domain.TagCount{Name: t, Count: 1})
		}
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	if n >= 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// CategoryScores gives every category a 1-5 health score from the share of
// negative reviews that mention it.
func CategoryScores(reviews []domain.Review) []domain.CategoryScore {
	total := len(reviews)
	out := make([]domain.CategoryScore, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		issues := 0
		for _, r := range reviews {
			if r.Sentiment == domain.Negative && matchesCategory(r, c) {
				issues++
			}
		}
		out = append(out, domain.CategoryScore{
			Name:        c.Name,
			Score:       categoryScore(issues, total),
			IssuesCount: issues,
		})
	}
	return out
}

func categoryScore(issues, total int) float64 {
	if issues == 0 || total == 0 {
		return 5
	}
	// (issues/total) * 10 * 0.5, kept in integers until the last step
	deduction := math.Min(4, math.Floor(float64(issues*5)/float64(total)))
	if deduction == 0 {
		return 4.5
	}
	return math.Max(1, 5-deduction)
}

type issueKey struct{ listing, tag string }

type issueSpan struct {
	first, last time.Time
	count       int
}

// PersistentIssues finds (listing, tag) pairs among negative reviews seen more
// than once over more than 30 days, longest-running first.
func PersistentIssues(reviews []domain.Review) []domain.PersistentIssue {
	order := make([]issueKey, 0)
	spans := map[issueKey]*issueSpan{}
	for _, r := range reviews {
		if r.Sentiment != domain.Negative || r.Listing() == "" {
			continue
		}
		at := parseISO(r.Date)
		for _, tag := range r.Tags {
			k := issueKey{r.Listing(), tag}
			sp, ok := spans[k]
			if !ok {
				spans[k] = &issueSpan{first: at, last: at, count: 1}
				order = append(order, k)
				continue
			}
			sp.count++
			if at.Before(sp.first) {
				sp.first = at
			}
			if at.After(sp.last) {
				sp.last = at
			}
		}
	}

	out := make([]domain.PersistentIssue, 0)
	for _, k := range order {
		sp := spans[k]
		span := sp.last.Sub(sp.first)
		if sp.count <= 1 || span <= persistentSpan {
			continue
		}
		out = append(out, domain.PersistentIssue{
			Listing:         k.listing,
			Issue:           k.tag,
			FirstOccurrence: sp.first,
			LastOccurrence:  sp.last,
			Count:           sp.count,
			DurationDays:    int(math.Ceil(float64(span) / float64(day))),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastOccurrence.Sub(out[i].FirstOccurrence) > out[j].LastOccurrence.Sub(out[j].FirstOccurrence)
	})
	return out
}

func averageScaled(reviews []domain.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range reviews {
		sum += ScaledRating(r.Rating)
	}
	return sum / float64(len(reviews))
}

// newestFirst returns a sorted copy of the reviews with the given sentiment.
func newestFirst(reviews []domain.Review, s domain.Sentiment) []domain.Review {
	out := make([]domain.Review, 0)
	for _, r := range reviews {
		if r.Sentiment == s {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return parseISO(out[i].Date).After(parseISO(out[j].Date)) })
	return out
}

func ReportStats(reviews []domain.Review) domain.ReportStats {
	recentPositive := newestFirst(reviews, domain.Positive)
	if len(recentPositive) > 3 {
		recentPositive = recentPositive[:3]
	}
	return domain.ReportStats{
		Total:           len(reviews),
		AvgRating:       averageScaled(reviews),
		Sentiment:       SentimentDistribution(reviews),
		TopTags:         TopIssues(reviews, 5),
		RecentPositive:  recentPositive,
		RecentNegative:  newestFirst(reviews, domain.Negative),
		CategoryRatings: CategoryScores(reviews),
	}
}

// Analyze is the listing health summary behind the category panel.
func Analyze(reviews []domain.Review, listing string) domain.ListingAnalysis {
	if isAll(listing) {
		listing = AllListings
	}
	avg := averageScaled(reviews)
	scores := CategoryScores(reviews)
	for i := range scores {
		if c, ok := domain.CategoryByName(scores[i].Name); ok {
			scores[i].Keywords = c.Keywords
		}
	}
	return domain.ListingAnalysis{
		Listing:       listing,
		OverallRating: math.Round(avg*10) / 10,
		Assessment:    fmt.Sprintf("%s has an average rating of %.1f from %d reviews.", listing, avg, len(reviews)),
		Categories:    scores,
	}
}

// Drilldown lists the non-positive reviews behind one category, optionally
// narrowed by a query over text, listing and tags.
func Drilldown(reviews []domain.Review, category, query string) (domain.Drilldown, bool) {
	c, ok := domain.CategoryByName(category)
	if !ok {
		return domain.Drilldown{}, false
	}
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.Review, 0)
	for _, r := range reviews {
		if r.Sentiment == domain.Positive || !matchesCategory(r, c) {
			continue
		}
		if q != "" && !matchesDrilldownQuery(r, q) {
			continue
		}
		out = append(out, r)
	}
	return domain.Drilldown{Category: c.Name, Reviews: out}, true
}

func matchesDrilldownQuery(r domain.Review, q string) bool {
	if strings.Contains(strings.ToLower(r.Text), q) || strings.Contains(strings.ToLower(r.Listing()), q) {
		return true
	}
	for _, t := range r.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

// TopListingsForCategory ranks listings by non-positive reviews touching the category.
func TopListingsForCategory(reviews []domain.Review, category string, n int) []domain.ListingCount {
	c, ok := domain.CategoryByName(category)
	if !ok {
		return nil
	}
	idx := map[string]int{}
	out := make([]domain.ListingCount, 0)
	for _, r := range reviews {
		if r.Sentiment == domain.Positive || r.Listing() == "" || !matchesCategory(r, c) {
			continue
		}
		if i, ok := idx[r.Listing()]; ok {
			out[i].Count++
			continue
		}
		idx[r.Listing()] = len(out)
		out = append(out, domain.ListingCount{Name: r.Listing(), Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func AuditReport(reviews []domain.Review, listing string, at time.Time) domain.AuditReport {
	return domain.AuditReport{
		Target:      targetLabel(listing),
		GeneratedAt: at.UTC(),
		Stats:       ReportStats(ForListing(reviews, listing)),
	}
}

func OwnerSummary(reviews []domain.Review, listing string, at time.Time) domain.OwnerSummary {
	st := ReportStats(ForListing(reviews, listing))
	top := st.TopTags
	if len(top) > 3 {
		top = top[:3]
	}
	neg := st.RecentNegative
	if len(neg) > 5 {
		neg = neg[:5]
	}
	return domain.OwnerSummary{
		Target:         targetLabel(listing),
		GeneratedAt:    at.UTC(),
		Total:          st.Total,
		AvgRating:      st.AvgRating,
		TopTags:        top,
		RecentNegative: neg,
	}
}

func targetLabel(listing string) string {
	if isAll(listing) {
		return AllListings
	}
	return listing
}

// Listings returns distinct listing names in first-seen order.
func Listings(reviews []domain.Review) []string {
	return distinct(reviews, domain.Review.Listing)
}

// Channels returns distinct sources in first-seen order.
func Channels(reviews []domain.Review) []string {
	return distinct(reviews, func(r domain.Review) string { return r.Source })
}

func distinct(reviews []domain.Review, key func(domain.Review) string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, r := range reviews {
		k := key(r)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// DateBounds is the default filter window after a load: earliest and latest review day.
func DateBounds(reviews []domain.Review) (from, to string, ok bool) {
	var lo, hi time.Time
	for _, r := range reviews {
		t := parseISO(r.Date)
		if t.IsZero() {
			continue
		}
		if lo.IsZero() || t.Before(lo) {
			lo = t
		}
		if hi.IsZero() || t.After(hi) {
			hi = t
		}
	}
	if lo.IsZero() {
		return "", "", false
	}
	return lo.UTC().Format(time.DateOnly), hi.UTC().Format(time.DateOnly), true
}
