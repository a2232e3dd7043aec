package aggregate

import (
	"time"

	"yieldboard/mapper"
)

// StationSummary totals one station's throughput.
type StationSummary struct {
	Station     string  `json:"station"`
	Total       int     `json:"total"`
	Passed      int     `json:"passed"`
	Failed      int     `json:"failed"`
	Yield       float64 `json:"yield"`
	FailureRate float64 `json:"failureRate"`
}

func (s *StationSummary) finish() {
	if s.Total > 0 {
		s.Yield = float64(s.Passed) / float64(s.Total)
		s.FailureRate = float64(s.Failed) / float64(s.Total)
	}
}

// ModelStations is one model's station summaries in first-seen order.
type ModelStations struct {
	Model    string           `json:"model"`
	Stations []StationSummary `json:"stations"`
}

// StationThroughput sums daily TPY rows per station, first-seen order.
func StationThroughput(records []mapper.TPYRecord) []StationSummary {
	index := make(map[string]int)
	var out []StationSummary
	for _, r := range records {
		i, ok := index[r.Station]
		if !ok {
			i = len(out)
			index[r.Station] = i
			out = append(out, StationSummary{Station: r.Station})
		}
		out[i].Total += r.Total
		out[i].Passed += r.Passed
		out[i].Failed += r.Failed
	}
	for i := range out {
		out[i].finish()
	}
	return out
}

// ByModelStation groups daily TPY rows by model, then station.
func ByModelStation(records []mapper.TPYRecord, resolver *Resolver) []ModelStations {
	index := make(map[string]int)
	var grouped [][]mapper.TPYRecord
	var names []string
	for _, r := range records {
		name, ok := resolver.Resolve(r.Model)
		if !ok {
			continue
		}
		i, seen := index[name]
		if !seen {
			i = len(grouped)
			index[name] = i
			grouped = append(grouped, nil)
			names = append(names, name)
		}
		grouped[i] = append(grouped[i], r)
	}
	out := make([]ModelStations, len(grouped))
	for i, rows := range grouped {
		out[i] = ModelStations{Model: names[i], Stations: StationThroughput(rows)}
	}
	return out
}

// DayYield is the all-station throughput of one calendar day.
type DayYield struct {
	Date   string  `json:"date"`
	Total  int     `json:"total"`
	Passed int     `json:"passed"`
	Failed int     `json:"failed"`
	Yield  float64 `json:"yield"`
}

// TPYByDay totals TPY rows per day over [start, end]. Every day is present.
func TPYByDay(records []mapper.TPYRecord, start, end time.Time) []DayYield {
	days := DayKeys(start, end)
	index := make(map[string]int, len(days))
	out := make([]DayYield, len(days))
	for i, d := range days {
		index[d] = i
		out[i].Date = d
	}
	for _, r := range records {
		i, ok := index[r.Date]
		if !ok {
			continue
		}
		out[i].Total += r.Total
		out[i].Passed += r.Passed
		out[i].Failed += r.Failed
	}
	for i := range out {
		if out[i].Total > 0 {
			out[i].Yield = float64(out[i].Passed) / float64(out[i].Total)
		}
	}
	return out
}

// JoinWeekly attaches per-model TPY rows to their weekly row by week id.
// Weekly rows keep their order; model rows keep theirs within a week.
func JoinWeekly(weekly []mapper.WeeklyTPYRecord, models []mapper.ModelTPYRecord) []mapper.WeeklyTPYRecord {
	byWeek := make(map[string][]mapper.ModelTPYRecord)
	for _, m := range models {
		byWeek[m.WeekID] = append(byWeek[m.WeekID], m)
	}
	out := make([]mapper.WeeklyTPYRecord, len(weekly))
	for i, w := range weekly {
		w.Models = byWeek[w.WeekID]
		out[i] = w
	}
	return out
}
