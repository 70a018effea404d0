package timecalc

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DefaultDateFormat is the moment-style format used for cache keys and
// daily note names unless configured otherwise.
const DefaultDateFormat = "YYYY-MM-DD"

// DateParseError reports a date string that matched none of the accepted
// layouts.
type DateParseError struct {
	Input string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("%q is not a valid date", e.Input)
}

// momentTokens maps moment.js format tokens to Go layout fragments. Longer
// tokens come first so "MMMM" wins over "MM".
var momentTokens = []struct {
	token  string
	layout string
}{
	{"YYYY", "2006"},
	{"YY", "06"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"MM", "01"},
	{"M", "1"},
	{"DD", "02"},
	{"D", "2"},
	{"dddd", "Monday"},
	{"ddd", "Mon"},
	{"HH", "15"},
	{"hh", "03"},
	{"h", "3"},
	{"mm", "04"},
	{"ss", "05"},
	{"A", "PM"},
	{"a", "pm"},
	{"ZZ", "-0700"},
	{"Z", "-07:00"},
}

// Layout converts a moment-style date format such as "YYYY-MM-DD" into the
// equivalent Go time layout. Text inside square brackets is copied literally.
func Layout(format string) string {
	if format == "" {
		format = DefaultDateFormat
	}
	var b strings.Builder
	for i := 0; i < len(format); {
		if format[i] == '[' {
			if end := strings.IndexByte(format[i:], ']'); end > 0 {
				b.WriteString(format[i+1 : i+end])
				i += end + 1
				continue
			}
		}
		matched := false
		for _, t := range momentTokens {
			if strings.HasPrefix(format[i:], t.token) {
				b.WriteString(t.layout)
				i += len(t.token)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(format[i])
			i++
		}
	}
	return b.String()
}

// DateKey formats t with the moment-style format.
func DateKey(t time.Time, format string) string {
	return t.Format(Layout(format))
}

// fallbackLayouts are tried when the configured format does not match, in
// the spirit of moment's lenient parser.
var fallbackLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"20060102",
	"02.01.2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"Monday, January 2, 2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseDate parses a date typed by the user or taken from a note title.
// The configured format is tried first, then a fixed set of common layouts.
// The result is midnight in loc.
func ParseDate(s, format string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.Local
	}
	if s == "" {
		return time.Time{}, &DateParseError{Input: s}
	}
	layouts := append([]string{Layout(format)}, fallbackLayouts...)
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return StartOfDay(t.In(loc)), nil
		}
	}
	return time.Time{}, &DateParseError{Input: s}
}

// FormatHoursMinutes formats fractional seconds as "Xh Ym", truncating.
func FormatHoursMinutes(seconds float64) string {
	total := int64(math.Floor(seconds))
	return fmt.Sprintf("%dh %dm", total/3600, (total%3600)/60)
}

// StartOfDay returns 00:00:00 of the same day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Yesterday returns the start of the day before t.
func Yesterday(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, -1)
}
