package aggregate

import (
	"fmt"
	"time"

	"yieldboard/mapper"
)

// DayKeys lists every calendar day in [start, end] as YYYY-MM-DD, ascending.
// The calendar day of each bound is taken in that bound's own location.
func DayKeys(start, end time.Time) []string {
	from := calendarDay(start)
	to := calendarDay(end)
	if from.After(to) {
		return nil
	}
	days := make([]string, 0, int(to.Sub(from).Hours()/24)+1)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(mapper.DateLayout))
	}
	return days
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WeekKey returns the ISO-8601 week key "{isoYear}-{isoWeek:02d}" for a
// YYYY-MM-DD day, or "" if the day does not parse.
func WeekKey(day string) string {
	t, err := time.Parse(mapper.DateLayout, day)
	if err != nil {
		return ""
	}
	y, w := t.ISOWeek()
	return fmt.Sprintf("%d-%02d", y, w)
}

// ParseDay parses a YYYY-MM-DD day in UTC.
func ParseDay(day string) (time.Time, error) {
	return time.Parse(mapper.DateLayout, day)
}
