// Package normalize provides the pure conversion helpers shared by all
// extractor tiers. Every tier must parse durations, servings and nutrition
// values with identical semantics so confidence scores stay comparable.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	isoDurationRe = regexp.MustCompile(`(?i)PT(?:(\d+)H)?(?:(\d+)M)?`)
	digitsRe      = regexp.MustCompile(`\d+`)
	numberRe      = regexp.MustCompile(`\d+(?:\.\d+)?`)

	// Free-text duration patterns, tried in order. First match wins.
	hoursMinutesRe = regexp.MustCompile(`(?i)(\d+)\s*(?:hours?|hrs?|h)\s*(?:and\s*)?(\d+)\s*(?:minutes?|mins?|m)\b`)
	minutesOnlyRe  = regexp.MustCompile(`(?i)(\d+)\s*(?:minutes?|mins?|m)\b`)
	hoursOnlyRe    = regexp.MustCompile(`(?i)(\d+)\s*(?:hours?|hrs?|h)\b`)
	bareIntRe      = regexp.MustCompile(`^\s*(\d+)\s*$`)
)

// ISO8601ToMinutes converts an ISO-8601 duration ("PT1H30M") to minutes.
// Missing groups default to zero. Input that is not ISO-8601 falls back to
// a bare digit parse treated as minutes; nil if that fails too.
func ISO8601ToMinutes(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if m := isoDurationRe.FindStringSubmatch(s); m != nil && (m[1] != "" || m[2] != "") {
		hours, _ := strconv.Atoi(m[1])
		minutes, _ := strconv.Atoi(m[2])
		total := hours*60 + minutes
		return &total
	}
	if d := digitsRe.FindString(s); d != "" {
		if n, err := strconv.Atoi(d); err == nil {
			return &n
		}
	}
	return nil
}

// MinutesToISO8601 renders minutes as an ISO-8601 duration. The inverse of
// ISO8601ToMinutes for any non-negative minute count.
func MinutesToISO8601(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	h := minutes / 60
	m := minutes % 60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("PT%dH%dM", h, m)
	case h > 0:
		return fmt.Sprintf("PT%dH", h)
	default:
		return fmt.Sprintf("PT%dM", m)
	}
}

// ParseDuration converts a free-text duration ("1 hour 30 min", "45 min",
// "2 hrs", "30") to minutes. Unmatched input yields nil, never an error.
func ParseDuration(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if m := hoursMinutesRe.FindStringSubmatch(s); m != nil {
		hours, _ := strconv.Atoi(m[1])
		minutes, _ := strconv.Atoi(m[2])
		total := hours*60 + minutes
		return &total
	}
	if m := minutesOnlyRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return &n
	}
	if m := hoursOnlyRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		total := n * 60
		return &total
	}
	if m := bareIntRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return &n
	}
	return nil
}

// ParseServings extracts a serving count from text like "serves 4" or
// "4-6 servings". The first run of digits wins, so a range yields its lower
// bound rather than the concatenation naive digit-stripping would produce.
// Nil unless the result is a positive integer.
func ParseServings(s string) *int {
	d := digitsRe.FindString(s)
	if d == "" {
		return nil
	}
	n, err := strconv.Atoi(d)
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// ParseNutritionValue extracts the numeric part of a nutrition string such
// as "12.5g" or "240 kcal". Nil when no number is present.
func ParseNutritionValue(s string) *float64 {
	m := numberRe.FindString(s)
	if m == "" {
		return nil
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return &f
}
