package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate accepts a calendar day (YYYY-MM-DD) or an RFC3339 instant.
func ParseDate(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, layout == "2006-01-02", nil
		}
	}
	return time.Time{}, false, fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC3339", s)
}

// ParseDateRange parses an inclusive range. A bare end day covers the whole
// day. Missing bounds default to the seven days ending now.
func ParseDateRange(startParam, endParam string) (time.Time, time.Time, error) {
	var start, end time.Time
	if startParam != "" {
		t, _, err := ParseDate(startParam)
		if err != nil {
			return start, end, fmt.Errorf("startDate: %w", err)
		}
		start = t
	}
	if endParam != "" {
		t, dayOnly, err := ParseDate(endParam)
		if err != nil {
			return start, end, fmt.Errorf("endDate: %w", err)
		}
		if dayOnly {
			t = t.Add(24*time.Hour - time.Millisecond)
		}
		end = t
	}
	if end.IsZero() {
		end = time.Now().UTC()
	}
	if start.IsZero() {
		start = end.Add(-7 * 24 * time.Hour)
	}
	if end.Before(start) {
		return start, end, fmt.Errorf("endDate %s is before startDate %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return start, end, nil
}

// OptionalRange is ParseDateRange for filters where an absent bound means
// unbounded; a nil pointer is sent to SQL as NULL.
func OptionalRange(startParam, endParam string) (*time.Time, *time.Time, error) {
	var start, end *time.Time
	if startParam != "" {
		t, _, err := ParseDate(startParam)
		if err != nil {
			return nil, nil, fmt.Errorf("startDate: %w", err)
		}
		start = &t
	}
	if endParam != "" {
		t, dayOnly, err := ParseDate(endParam)
		if err != nil {
			return nil, nil, fmt.Errorf("endDate: %w", err)
		}
		if dayOnly {
			t = t.Add(24*time.Hour - time.Millisecond)
		}
		end = &t
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, nil, fmt.Errorf("endDate is before startDate")
	}
	return start, end, nil
}

// NormalizeDays turns a list of dates into distinct YYYY-MM-DD days.
func NormalizeDays(values []string) ([]string, error) {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		t, _, err := ParseDate(v)
		if err != nil {
			return nil, err
		}
		d := t.Format("2006-01-02")
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out, nil
}

var weekPattern = regexp.MustCompile(`^(\d{4})-W?(\d{1,2})$`)

// ParseWeek accepts "2025-W03", "2025-3" or "2025-03" and returns the ISO
// week id "2025-03".
func ParseWeek(s string) (string, error) {
	m := weekPattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(s)))
	if m == nil {
		return "", fmt.Errorf("invalid week %q: use YYYY-Www or YYYY-WW", s)
	}
	year, _ := strconv.Atoi(m[1])
	week, _ := strconv.Atoi(m[2])
	if week < 1 || week > 53 {
		return "", fmt.Errorf("invalid week %q: week must be 1..53", s)
	}
	return fmt.Sprintf("%d-%02d", year, week), nil
}

// CleanList trims entries and drops empties and duplicates, keeping order.
func CleanList(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
