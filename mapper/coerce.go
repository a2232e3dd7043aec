package mapper

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// Raw is an untyped row as decoded from a reporting endpoint.
type Raw map[string]any

// DateLayout is the canonical calendar-day format for every date field.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999-07",
	"1/2/2006",
	"01/02/2006",
	"1/2/2006 15:04:05",
	"1/2/2006, 3:04:05 PM",
}

// lookup returns the first non-nil value among keys.
func lookup(raw Raw, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// Float reads the first present key as a number using parseFloat rules:
// a numeric prefix is accepted ("12.5kg" -> 12.5) and anything else is 0.
func Float(raw Raw, keys ...string) float64 {
	v, ok := lookup(raw, keys...)
	if !ok {
		return 0
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// NullableFloat is Float but keeps absence (or an unparseable value) as nil.
func NullableFloat(raw Raw, keys ...string) *float64 {
	v, ok := lookup(raw, keys...)
	if !ok {
		return nil
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Int reads the first present key using parseInt rules (truncating).
func Int(raw Raw, keys ...string) int {
	v, ok := lookup(raw, keys...)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case string:
		i, _ := leadingInt(n)
		return i
	case json.Number:
		i, _ := leadingInt(n.String())
		return i
	}
	f, ok := toFloat(v)
	switch {
	case !ok || math.IsNaN(f) || math.IsInf(f, 0):
		return 0
	case f >= math.MaxInt:
		return math.MaxInt
	case f <= math.MinInt:
		return math.MinInt
	}
	return int(f)
}

// Count is Int clamped at zero.
func Count(raw Raw, keys ...string) int {
	if n := Int(raw, keys...); n > 0 {
		return n
	}
	return 0
}

// Rate reads a yield or failure rate into [0,1]. Values in (1,100] are taken
// to be percentages.
func Rate(raw Raw, keys ...string) float64 {
	return NormalizeRate(Float(raw, keys...))
}

func NormalizeRate(f float64) float64 {
	if f > 1 && f <= 100 {
		f /= 100
	}
	if f < 0 || math.IsNaN(f) {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func String(raw Raw, keys ...string) string {
	v, ok := lookup(raw, keys...)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}

// Bool understands the pass/fail spellings used by the station logs.
func Bool(raw Raw, keys ...string) bool {
	v, ok := lookup(raw, keys...)
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "1", "true", "t", "y", "yes", "pass", "passed", "p", "ok":
			return true
		}
		return false
	}
	f, ok := toFloat(v)
	return ok && f != 0
}

// Date normalizes the first present key to YYYY-MM-DD, or "" when the value
// is not a recognizable date. Timestamps keep the calendar day they were
// written in; no zone conversion happens.
func Date(raw Raw, keys ...string) string {
	t, ok := parseTime(String(raw, keys...))
	if !ok {
		return ""
	}
	return t.Format(DateLayout)
}

func Timestamp(raw Raw, keys ...string) time.Time {
	t, _ := parseTime(String(raw, keys...))
	return t
}

// NormalizeDate applies Date to a bare string.
func NormalizeDate(s string) string {
	t, ok := parseTime(s)
	if !ok {
		return ""
	}
	return t.Format(DateLayout)
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		return leadingFloat(n.String())
	case string:
		return leadingFloat(n)
	}
	return 0, false
}

// leadingFloat parses the longest numeric prefix of s.
func leadingFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	digits := false
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	for end < len(s) && isDigit(s[end]) {
		end++
		digits = true
	}
	if end < len(s) && s[end] == '.' {
		end++
		for end < len(s) && isDigit(s[end]) {
			end++
			digits = true
		}
	}
	if !digits {
		return 0, false
	}
	if end < len(s) && (s[end] == 'e' || s[end] == 'E') {
		exp := end + 1
		if exp < len(s) && (s[exp] == '+' || s[exp] == '-') {
			exp++
		}
		if exp < len(s) && isDigit(s[exp]) {
			for exp < len(s) && isDigit(s[exp]) {
				exp++
			}
			end = exp
		}
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	start := end
	for end < len(s) && isDigit(s[end]) {
		end++
	}
	if end == start {
		return 0, false
	}
	// Atoi saturates on overflow.
	i, err := strconv.Atoi(s[:end])
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return i, true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
