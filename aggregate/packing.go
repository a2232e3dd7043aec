package aggregate

import (
	"time"

	"yieldboard/mapper"
)

// Point is one entry of an ordered series.
type Point struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// PartRollup holds one part number's per-day values. Every day of the range
// is present, zero when nothing was packed.
type PartRollup struct {
	PartNumber string             `json:"partNumber"`
	Values     map[string]float64 `json:"values"`
	Total      float64            `json:"total"`
}

// ModelRollup groups the part numbers packed for one model.
type ModelRollup struct {
	Model string        `json:"model"`
	Parts []*PartRollup `json:"parts"`
	Total float64       `json:"total"`

	index map[string]*PartRollup
}

func (m *ModelRollup) part(pn string, days []string) *PartRollup {
	if p, ok := m.index[pn]; ok {
		return p
	}
	p := &PartRollup{PartNumber: pn, Values: make(map[string]float64, len(days))}
	for _, d := range days {
		p.Values[d] = 0
	}
	m.index[pn] = p
	m.Parts = append(m.Parts, p)
	return p
}

// PackingResult is the model -> part number -> day rollup for a date range.
type PackingResult struct {
	Days   []string           `json:"days"`
	Models []*ModelRollup     `json:"models"`
	Totals map[string]float64 `json:"totals"`
	// Unmatched lists raw model names the resolver could not map, first-seen.
	Unmatched []string `json:"unmatched,omitempty"`
	// OutOfRange counts records dated outside the range or undated.
	OutOfRange int `json:"outOfRange"`
}

// Total is the sum of every leaf.
func (r PackingResult) Total() float64 {
	var t float64
	for _, m := range r.Models {
		t += m.Total
	}
	return t
}

// Model returns the rollup for a canonical model name.
func (r PackingResult) Model(name string) (*ModelRollup, bool) {
	for _, m := range r.Models {
		if m.Model == name {
			return m, true
		}
	}
	return nil, false
}

// PackingRollup accumulates packing records into per-model, per-part,
// per-day leaves over [start, end]. Records whose model the resolver cannot
// map are dropped and reported in Unmatched.
func PackingRollup(records []mapper.PackingRecord, start, end time.Time, resolver *Resolver) PackingResult {
	days := DayKeys(start, end)
	res := PackingResult{
		Days:   days,
		Totals: make(map[string]float64, len(days)),
	}
	for _, d := range days {
		res.Totals[d] = 0
	}

	models := make(map[string]*ModelRollup)
	unmatched := make(map[string]bool)
	for _, rec := range records {
		if _, inRange := res.Totals[rec.Date]; !inRange {
			res.OutOfRange++
			continue
		}
		name, ok := resolver.Resolve(rec.Model)
		if !ok {
			if !unmatched[rec.Model] {
				unmatched[rec.Model] = true
				res.Unmatched = append(res.Unmatched, rec.Model)
			}
			continue
		}
		m, ok := models[name]
		if !ok {
			m = &ModelRollup{Model: name, index: make(map[string]*PartRollup)}
			models[name] = m
			res.Models = append(res.Models, m)
		}
		p := m.part(rec.PartNumber, days)
		p.Values[rec.Date] += rec.Value
		p.Total += rec.Value
		m.Total += rec.Value
		res.Totals[rec.Date] += rec.Value
	}
	return res
}

// DailySeries is the per-day total over the result's range, ascending.
func (r PackingResult) DailySeries() []Point {
	out := make([]Point, 0, len(r.Days))
	for _, d := range r.Days {
		out = append(out, Point{Key: d, Value: r.Totals[d]})
	}
	return out
}

// ModelSeries is the per-day total for one model.
func (r PackingResult) ModelSeries(model string) []Point {
	m, ok := r.Model(model)
	out := make([]Point, 0, len(r.Days))
	for _, d := range r.Days {
		var v float64
		if ok {
			for _, p := range m.Parts {
				v += p.Values[d]
			}
		}
		out = append(out, Point{Key: d, Value: v})
	}
	return out
}

// WeeklyRollup sums a daily series into ISO weeks keyed "YYYY-WW". Weeks
// appear in the order their first day appears. Points whose key is not a
// day are skipped.
func WeeklyRollup(daily []Point) []Point {
	index := make(map[string]int)
	var out []Point
	for _, p := range daily {
		wk := WeekKey(p.Key)
		if wk == "" {
			continue
		}
		i, ok := index[wk]
		if !ok {
			i = len(out)
			index[wk] = i
			out = append(out, Point{Key: wk})
		}
		out[i].Value += p.Value
	}
	return out
}

// Values projects a series onto its values.
func Values(points []Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}
