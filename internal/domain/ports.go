package domain

import (
	"context"
	"time"
)

type DatasetStore interface {
	Replace(ctx context.Context, d Dataset) error
	Current(ctx context.Context) (Dataset, error)
}

// IngestObserver receives per-batch counts (metrics).
type IngestObserver interface {
	ObserveIngest(source string, rawRows, dropped int, reviews []Review)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	// DelPrefix removes every key starting with prefix.
	DelPrefix(ctx context.Context, prefix string) error
}

// Dataset is one ingestion batch. A new upload replaces it wholesale.
type Dataset struct {
	ID       string
	Source   string // file name, URL or "demo"
	LoadedAt time.Time
	RawRows  int
	Reviews  []Review
}

// Predicates is the working-view filter. Empty strings and "all" match everything.
type Predicates struct {
	Search    string
	Sentiment string
	Listing   string
	Channel   string
	From      string // yyyy-mm-dd, inclusive
	To        string // yyyy-mm-dd, inclusive
	Category  string
}

// Read models

type SentimentStats struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
	Total    int `json:"total"`
}

type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type CategoryScore struct {
	Name        string   `json:"name"`
	Score       float64  `json:"score"`
	IssuesCount int      `json:"issuesCount"`
	Keywords    []string `json:"keywords,omitempty"`
}

type PersistentIssue struct {
	Listing         string    `json:"listing"`
	Issue           string    `json:"issue"`
	FirstOccurrence time.Time `json:"firstOccurrence"`
	LastOccurrence  time.Time `json:"lastOccurrence"`
	Count           int       `json:"count"`
	DurationDays    int       `json:"duration"`
}

type ReportStats struct {
	Total           int             `json:"total"`
	AvgRating       float64         `json:"avgRating"`
	Sentiment       SentimentStats  `json:"sentimentCounts"`
	TopTags         []TagCount      `json:"topTags"`
	RecentPositive  []Review        `json:"recentPositive"`
	RecentNegative  []Review        `json:"recentNegative"`
	CategoryRatings []CategoryScore `json:"categoryRatings"`
}

type ListingAnalysis struct {
	Listing       string          `json:"listing"`
	OverallRating float64         `json:"overallRating"`
	Assessment    string          `json:"overallAssessment"`
	Categories    []CategoryScore `json:"categories"`
}

type ListingCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Drilldown struct {
	Category    string         `json:"category"`
	Reviews     []Review       `json:"reviews"`
	TopListings []ListingCount `json:"topListings,omitempty"`
}

type AuditReport struct {
	Target      string      `json:"target"`
	GeneratedAt time.Time   `json:"generatedAt"`
	Stats       ReportStats `json:"stats"`
}

type OwnerSummary struct {
	Target         string     `json:"target"`
	GeneratedAt    time.Time  `json:"generatedAt"`
	Total          int        `json:"total"`
	AvgRating      float64    `json:"avgRating"`
	TopTags        []TagCount `json:"topTags"`
	RecentNegative []Review   `json:"recentNegative"`
}
