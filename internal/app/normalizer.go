package app

import (
	"fmt"
	"strings"
	"time"

	"review_pulse/internal/domain"
)

const (
	defaultSource = "CSV Upload"
	defaultAuthor = "Anonymous"

	// only the first few skipped rows are echoed into the batch log
	maxSkipLog = 5
)

// Batch is the outcome of one normalization pass.
type Batch struct {
	Reviews []domain.Review
	RawRows int
	Dropped []int    // zero-based input positions without usable text
	Log     []string // upload diagnostics, shown when nothing could be mapped
}

type Normalizer struct {
	now func() time.Time
}

type Option func(*Normalizer)

// WithClock fixes the ingestion timestamp used for missing or unparseable dates.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{now: time.Now}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Normalize maps raw rows to canonical reviews, dropping rows without text.
func (n *Normalizer) Normalize(rows []domain.RawRow) []domain.Review {
	return n.Run(rows).Reviews
}

func (n *Normalizer) Run(rows []domain.RawRow) Batch {
	// one timestamp per batch keeps every defaulted date identical
	ingestedAt := n.now()

	b := Batch{RawRows: len(rows), Reviews: make([]domain.Review, 0, len(rows))}
	b.Log = append(b.Log, fmt.Sprintf("Loaded %d raw rows", len(rows)))
	if len(rows) > 0 {
		b.Log = append(b.Log, "Keys row 0: "+strings.Join(rows[0].Keys, ", "))
	}

	for i, row := range rows {
		rv, ok := normalizeRow(row, i, ingestedAt)
		if !ok {
			b.Dropped = append(b.Dropped, i)
			if i < maxSkipLog {
				b.Log = append(b.Log, fmt.Sprintf("Skipped row %d: No text found. Data: %s", i, describeRow(row)))
			}
			continue
		}
		b.Reviews = append(b.Reviews, rv)
	}

	b.Log = append(b.Log, fmt.Sprintf("Mapped %d valid reviews.", len(b.Reviews)))
	return b
}

func normalizeRow(row domain.RawRow, idx int, ingestedAt time.Time) (domain.Review, bool) {
	rawRating, _ := resolveField(row, fieldRating)
	rating := parseRating(rawRating)

	text, _ := resolveField(row, fieldText)
	if text == "" {
		return domain.Review{}, false
	}

	rawDate, _ := resolveField(row, fieldDate)

	var listing *string
	if l, ok := resolveField(row, fieldListing); ok {
		listing = &l
	}

	explicitSentiment, _ := resolveField(row, fieldSentiment)
	sentiment := ClassifySentiment(rating, text, explicitSentiment)

	rawTags, _ := resolveField(row, fieldTags)

	id := row.Values["id"]
	if id == "" {
		id = fmt.Sprintf("csv-%d", idx)
	}

	return domain.Review{
		ID:          id,
		Source:      resolveOr(row, fieldSource, defaultSource),
		Date:        NormalizeDate(rawDate, ingestedAt),
		Rating:      rating,
		Author:      resolveOr(row, fieldAuthor, defaultAuthor),
		Text:        text,
		ListingName: listing,
		Sentiment:   sentiment,
		Tags:        ClassifyTags(text, domain.TagScalar(rawTags), sentiment),
	}, true
}

func describeRow(row domain.RawRow) string {
	parts := make([]string, 0, len(row.Keys))
	for _, k := range row.Keys {
		parts = append(parts, fmt.Sprintf("%q:%q", k, row.Values[k]))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
