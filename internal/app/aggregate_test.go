package app_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review_pulse/internal/app"
	"review_pulse/internal/domain"
)

func listing(s string) *string { return &s }

func rv(id, list, date string, rating float64, s domain.Sentiment, tags ...string) domain.Review {
	r := domain.Review{ID: id, Source: "Google", Date: date, Rating: rating, Author: "a", Text: "", Sentiment: s, Tags: tags}
	if list != "" {
		r.ListingName = listing(list)
	}
	return r
}

func scoreOf(t *testing.T, scores []domain.CategoryScore, name string) domain.CategoryScore {
	t.Helper()
	for _, s := range scores {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("category %s missing", name)
	return domain.CategoryScore{}
}

func cleanlinessSet(total, negatives int) []domain.Review {
	out := make([]domain.Review, 0, total)
	for i := 0; i < total; i++ {
		if i < negatives {
			out = append(out, rv("n", "", "2026-01-01", 1, domain.Negative, "cleanliness"))
			continue
		}
		out = append(out, rv("p", "", "2026-01-01", 5, domain.Positive))
	}
	return out
}

func TestCategoryScores(t *testing.T) {
	cases := []struct {
		total, negatives int
		want             float64
	}{
		{10, 2, 4},
		{10, 1, 4.5},
		{10, 10, 1},
		{10, 0, 5},
		{4, 3, 2},
	}
	for _, tc := range cases {
		got := scoreOf(t, app.CategoryScores(cleanlinessSet(tc.total, tc.negatives)), "Cleanliness")
		assert.Equal(t, tc.want, got.Score, "%d/%d", tc.negatives, tc.total)
		assert.Equal(t, tc.negatives, got.IssuesCount)
	}

	for _, s := range app.CategoryScores(nil) {
		assert.Equal(t, 5.0, s.Score, s.Name)
	}
}

func TestSentimentDistribution_Total(t *testing.T) {
	st := app.SentimentDistribution([]domain.Review{
		rv("1", "", "", 5, domain.Positive),
		rv("2", "", "", 3, domain.Neutral),
		rv("3", "", "", 1, domain.Negative),
		rv("4", "", "", 1, domain.Negative),
	})
	assert.Equal(t, domain.SentimentStats{Positive: 1, Neutral: 1, Negative: 2, Total: 4}, st)
}

func TestTopIssues_TiesKeepFirstSeen(t *testing.T) {
	got := app.TopIssues([]domain.Review{
		rv("1", "", "", 1, domain.Negative, "noise", "wifi"),
		rv("2", "", "", 1, domain.Negative, "wifi", "bed"),
		rv("3", "", "", 5, domain.Positive, "bed", "bed"),
		rv("4", "", "", 1, domain.Negative, "noise"),
	}, 5)
	assert.Equal(t, []domain.TagCount{{Name: "noise", Count: 2}, {Name: "wifi", Count: 2}, {Name: "bed", Count: 1}}, got)
	assert.Len(t, app.TopIssues(nil, 5), 0)
}

func TestPersistentIssues(t *testing.T) {
	reviews := []domain.Review{
		rv("1", "Loft", "2026-01-01T00:00:00.000Z", 1, domain.Negative, "noise"),
		rv("2", "Loft", "2026-02-10T00:00:00.000Z", 2, domain.Negative, "noise"),
		rv("3", "Cabin", "2026-01-01T00:00:00.000Z", 1, domain.Negative, "noise"),
		rv("4", "Cabin", "2026-01-11T00:00:00.000Z", 1, domain.Negative, "noise"),
		rv("5", "Villa", "2025-10-01T00:00:00.000Z", 1, domain.Negative, "wifi"),
		rv("6", "Villa", "2026-01-30T12:00:00.000Z", 1, domain.Negative, "wifi"),
		rv("7", "Villa", "2025-01-01T00:00:00.000Z", 5, domain.Positive, "wifi"),
		rv("8", "", "2025-01-01T00:00:00.000Z", 1, domain.Negative, "wifi"),
	}
	got := app.PersistentIssues(reviews)
	require.Len(t, got, 2)

	assert.Equal(t, "Villa", got[0].Listing)
	assert.Equal(t, "wifi", got[0].Issue)
	assert.Equal(t, 122, got[0].DurationDays) // 121.5 days, rounded up

	assert.Equal(t, "Loft", got[1].Listing)
	assert.Equal(t, 2, got[1].Count)
	assert.Equal(t, 40, got[1].DurationDays)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), got[1].FirstOccurrence.UTC())
}

func TestAnalyze(t *testing.T) {
	got := app.Analyze([]domain.Review{
		rv("1", "Loft", "", 4, domain.Positive),
		rv("2", "Loft", "", 10, domain.Positive),
	}, "Loft")
	assert.Equal(t, "Loft", got.Listing)
	assert.Equal(t, 4.5, got.OverallRating)
	assert.Equal(t, "Loft has an average rating of 4.5 from 2 reviews.", got.Assessment)
	require.Len(t, got.Categories, len(domain.Categories))
	assert.NotEmpty(t, got.Categories[0].Keywords)

	assert.Equal(t, "All Listings has an average rating of 0.0 from 0 reviews.", app.Analyze(nil, "all").Assessment)
}

func TestReportStats(t *testing.T) {
	reviews := []domain.Review{
		rv("1", "", "2026-01-01T00:00:00.000Z", 5, domain.Positive),
		rv("2", "", "2026-01-05T00:00:00.000Z", 5, domain.Positive),
		rv("3", "", "2026-01-03T00:00:00.000Z", 5, domain.Positive),
		rv("4", "", "2026-01-09T00:00:00.000Z", 5, domain.Positive),
		rv("5", "", "2026-01-02T00:00:00.000Z", 1, domain.Negative, "noise"),
		rv("6", "", "2026-01-08T00:00:00.000Z", 2, domain.Negative, "noise"),
	}
	st := app.ReportStats(reviews)
	assert.Equal(t, 6, st.Total)
	assert.InDelta(t, 23.0/6, st.AvgRating, 1e-9)

	require.Len(t, st.RecentPositive, 3)
	assert.Equal(t, []string{"4", "2", "3"}, []string{st.RecentPositive[0].ID, st.RecentPositive[1].ID, st.RecentPositive[2].ID})
	require.Len(t, st.RecentNegative, 2)
	assert.Equal(t, "6", st.RecentNegative[0].ID)
	assert.Equal(t, []domain.TagCount{{Name: "noise", Count: 2}}, st.TopTags)

	empty := app.ReportStats(nil)
	assert.Zero(t, empty.Total)
	assert.Zero(t, empty.AvgRating)
}

func TestDrilldownAndTopListings(t *testing.T) {
	reviews := []domain.Review{
		{ID: "1", ListingName: listing("Loft"), Text: "Dusty shelves", Sentiment: domain.Negative},
		{ID: "2", ListingName: listing("Loft"), Text: "So clean!", Sentiment: domain.Positive},
		{ID: "3", ListingName: listing("Cabin"), Text: "Smell in the hall", Sentiment: domain.Neutral},
		{ID: "4", ListingName: listing("Loft"), Text: "Found hair", Sentiment: domain.Negative},
		{ID: "5", ListingName: listing("Cabin"), Text: "Great wifi", Sentiment: domain.Negative},
	}

	d, ok := app.Drilldown(reviews, "Cleanliness", "")
	require.True(t, ok)
	ids := []string{}
	for _, r := range d.Reviews {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"1", "3", "4"}, ids)

	d, ok = app.Drilldown(reviews, "Cleanliness", "cabin")
	require.True(t, ok)
	require.Len(t, d.Reviews, 1)
	assert.Equal(t, "3", d.Reviews[0].ID)

	_, ok = app.Drilldown(reviews, "Parking", "")
	assert.False(t, ok)

	top := app.TopListingsForCategory(reviews, "Cleanliness", 5)
	assert.Equal(t, []domain.ListingCount{{Name: "Loft", Count: 2}, {Name: "Cabin", Count: 1}}, top)
}

func TestOwnerSummaryCaps(t *testing.T) {
	var reviews []domain.Review
	for i := 0; i < 8; i++ {
		reviews = append(reviews, rv("n", "Loft", "2026-01-01", 1, domain.Negative, "a", "b", "c", "d"))
	}
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.FixedZone("CET", 3600))
	got := app.OwnerSummary(reviews, "Loft", at)
	assert.Equal(t, "Loft", got.Target)
	assert.Len(t, got.TopTags, 3)
	assert.Len(t, got.RecentNegative, 5)
	assert.Equal(t, time.UTC, got.GeneratedAt.Location())

	rep := app.AuditReport(reviews, "", at)
	assert.Equal(t, "All Listings", rep.Target)
	assert.Len(t, rep.Stats.RecentNegative, 8)
}

func TestFacetsAndBounds(t *testing.T) {
	reviews := []domain.Review{
		rv("1", "Loft", "2026-01-05T10:00:00.000Z", 5, domain.Positive),
		rv("2", "Cabin", "2025-12-24T00:00:00.000Z", 5, domain.Positive),
		rv("3", "Loft", "2026-01-30T23:00:00.000Z", 5, domain.Positive),
		rv("4", "", "garbage", 5, domain.Positive),
	}
	assert.Equal(t, []string{"Loft", "Cabin"}, app.Listings(reviews))
	assert.Equal(t, []string{"Google"}, app.Channels(reviews))

	from, to, ok := app.DateBounds(reviews)
	require.True(t, ok)
	assert.Equal(t, "2025-12-24", from)
	assert.Equal(t, "2026-01-30", to)

	_, _, ok = app.DateBounds(nil)
	assert.False(t, ok)
}

func TestPersistentIssues_Threshold(t *testing.T) {
	pair := func(second string) []domain.Review {
		return []domain.Review{
			rv("1", "Villa A", "2026-01-01T00:00:00.000Z", 1, domain.Negative, "Cleanliness"),
			rv("2", "Villa A", second, 1, domain.Negative, "Cleanliness"),
		}
	}
	got := app.PersistentIssues(pair("2026-02-10T00:00:00.000Z"))
	require.Len(t, got, 1)
	assert.Equal(t, 40, got[0].DurationDays)
	assert.Equal(t, "Cleanliness", got[0].Issue)

	assert.Empty(t, app.PersistentIssues(pair("2026-01-11T00:00:00.000Z")))
}

func TestCategoryScores_CategoryTagsDoNotCrossMatch(t *testing.T) {
	reviews := app.NewNormalizer(app.WithClock(fixedClock)).Normalize([]domain.RawRow{
		rawRow("rating", "1", "text", "The photos were misleading"),
		rawRow("rating", "1", "text", "No wifi at all"),
	})
	require.Len(t, reviews, 2)
	require.Equal(t, []string{"Accuracy"}, reviews[0].Tags)
	require.Equal(t, []string{"Facilities"}, reviews[1].Tags)

	scores := app.CategoryScores(reviews)
	assert.Equal(t, 1, scoreOf(t, scores, "Accuracy").IssuesCount)
	assert.Equal(t, 1, scoreOf(t, scores, "Facilities").IssuesCount)
	assert.Equal(t, 0, scoreOf(t, scores, "Comfort").IssuesCount)
	assert.Equal(t, 5.0, scoreOf(t, scores, "Comfort").Score)
}

func TestCategoryScores_FreeFormTagKeyword(t *testing.T) {
	// explicit tags that are not category names still match by keyword
	scores := app.CategoryScores([]domain.Review{rv("1", "", "2026-01-01", 1, domain.Negative, "street noise")})
	assert.Equal(t, 1, scoreOf(t, scores, "Location").IssuesCount)
}

func TestTopListingsForCategory_NegativeLimit(t *testing.T) {
	reviews := []domain.Review{
		rv("1", "Villa", "2026-01-01", 1, domain.Negative, "Cleanliness"),
		rv("2", "Loft", "2026-01-02", 2, domain.Negative, "Cleanliness"),
	}
	assert.NotPanics(t, func() {
		got := app.TopListingsForCategory(reviews, "Cleanliness", -1)
		assert.Len(t, got, 2)
	})
	assert.Len(t, app.TopListingsForCategory(reviews, "Cleanliness", 1), 1)
}
