package app

import (
	"math"
	"strconv"
	"strings"

	"review_pulse/internal/domain"
)

/********** alias registries (single source of truth) **********/

const (
	fieldRating    = "rating"
	fieldText      = "text"
	fieldDate      = "date"
	fieldSource    = "source"
	fieldAuthor    = "author"
	fieldListing   = "listingName"
	fieldSentiment = "sentiment"
	fieldTags      = "tags"
)

var fieldAliases = map[string][]string{
	fieldRating:    {"rating", "Review power", "Review score", "Score", "Stars", "Note globale", "évaluation"},
	fieldText:      {"text", "review", "Overall review", "content", "comment", "feedback", "body", "commentaire", "texte"},
	fieldDate:      {"date", "Date", "Check-out", "Check-in", "Timestamp", "created_at", "Date de départ", "Date d'arrivée"},
	fieldSource:    {"source", "Source", "Channel", "Platform", "Origin", "canal", "plateforme"},
	fieldAuthor:    {"author", "Author", "Reviewer Name", "Guest name", "User", "Name", "auteur", "Nom du voyageur", "voyageur"},
	fieldListing:   {"listingName", "Listing Name", "External Listing Name", "Listing ID", "Property", "logement", "annonce", "propriété"},
	fieldSentiment: {"sentiment", "Sentiment", "sentiment_label"},
	fieldTags:      {"tags", "Tags", "Labels", "Keywords", "étiquettes", "mots-clés"},
}

/********** resolver **********/

// Resolve finds the first non-empty value for any candidate, trying every
// candidate at one match tier before falling back to a looser tier:
// exact key, case-insensitive key, key containing the candidate, key equal
// once quotes and padding are stripped.
func Resolve(row domain.RawRow, candidates []string) (string, bool) {
	for _, c := range candidates {
		if v, ok := row.Values[c]; ok && v != "" {
			return v, true
		}
	}
	tiers := []func(key, cand string) bool{
		func(key, cand string) bool { return strings.ToLower(key) == cand },
		func(key, cand string) bool { return strings.Contains(strings.ToLower(key), cand) },
		func(key, cand string) bool { return strings.ToLower(stripQuotes(key)) == cand },
	}
	for _, match := range tiers {
		for _, c := range candidates {
			lc := strings.ToLower(c)
			for _, k := range row.Keys {
				if !match(k, lc) {
					continue
				}
				if v := row.Values[k]; v != "" {
					return v, true
				}
			}
		}
	}
	return "", false
}

func stripQuotes(s string) string {
	s = strings.NewReplacer(`"`, "", `'`, "").Replace(s)
	return strings.TrimSpace(s)
}

// resolveField: Resolve against a named alias set.
func resolveField(row domain.RawRow, field string) (string, bool) {
	return Resolve(row, fieldAliases[field])
}

// resolveOr returns the resolved value or def.
func resolveOr(row domain.RawRow, field, def string) string {
	if v, ok := resolveField(row, field); ok {
		return v
	}
	return def
}

// parseRating: number from strings like "9", " 4.5 " or "8,5". Anything else is 0.
func parseRating(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
