package app

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ISOLayout is the canonical review timestamp (UTC, millisecond precision).
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

// genericLayouts are tried in order before the day-first fallback.
var genericLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	time.RFC1123Z,
	time.RFC1123,
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
}

var dayFirstRe = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{4})`)

// NormalizeDate maps any date-ish string to ISOLayout. Unparseable or empty
// input resolves to now, so the result is always a valid timestamp.
func NormalizeDate(raw string, now time.Time) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.UTC().Format(ISOLayout)
	}
	if t, ok := parseGeneric(raw); ok {
		return t.UTC().Format(ISOLayout)
	}
	if t, ok := parseDayFirst(raw); ok {
		return t.Format(ISOLayout)
	}
	return now.UTC().Format(ISOLayout)
}

func parseGeneric(s string) (time.Time, bool) {
	for _, layout := range genericLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseDayFirst reads D/M/YYYY or D-M-YYYY anywhere in s (Excel exports on European locales).
func parseDayFirst(s string) (time.Time, bool) {
	m := dayFirstRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 31/02 into March; reject instead.
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// parseISO reads a canonical review date back. Zero time on failure.
func parseISO(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, ok := parseGeneric(s); ok {
		return t
	}
	return time.Time{}
}
