package domain

import "strings"

type Sentiment string

const (
	Positive Sentiment = "positive"
	Neutral  Sentiment = "neutral"
	Negative Sentiment = "negative"
)

// ParseSentiment accepts only the three known labels (case/space-insensitive).
func ParseSentiment(s string) (Sentiment, bool) {
	switch Sentiment(strings.ToLower(strings.TrimSpace(s))) {
	case Positive:
		return Positive, true
	case Neutral:
		return Neutral, true
	case Negative:
		return Negative, true
	}
	return "", false
}

// Review is the canonical record produced by the normalizer. Never mutated after construction.
type Review struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Date        string    `json:"date"` // ISO 8601, UTC
	Rating      float64   `json:"rating"`
	Author      string    `json:"author"`
	Text        string    `json:"text"`
	ListingName *string   `json:"listingName,omitempty"`
	Sentiment   Sentiment `json:"sentiment"`
	Tags        []string  `json:"tags"`
}

func (r Review) Listing() string {
	if r.ListingName == nil {
		return ""
	}
	return *r.ListingName
}

// RawRow is one tokenized CSV row. Keys keeps header order so lookups are deterministic.
type RawRow struct {
	Keys   []string
	Values map[string]string
}

func NewRawRow(keys []string, values []string) RawRow {
	row := RawRow{Keys: make([]string, 0, len(keys)), Values: make(map[string]string, len(keys))}
	for i, k := range keys {
		if _, dup := row.Values[k]; dup {
			continue
		}
		v := ""
		if i < len(values) {
			v = values[i]
		}
		row.Keys = append(row.Keys, k)
		row.Values[k] = v
	}
	return row
}

// TagInput is the explicit tags column: either a single comma-separated scalar or a ready sequence.
type TagInput struct {
	Scalar   string
	Sequence []string
}

func TagScalar(s string) TagInput { return TagInput{Scalar: s} }

func TagSequence(s []string) TagInput { return TagInput{Sequence: s} }

// Present reports whether an explicit value was supplied at all.
func (t TagInput) Present() bool { return t.Sequence != nil || t.Scalar != "" }

func (t TagInput) IsSequence() bool { return t.Sequence != nil }
