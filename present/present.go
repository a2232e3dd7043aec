// Package present turns aggregation output into chart-ready series.
package present

import (
	"math"
	"sort"

	"yieldboard/aggregate"
)

// ParetoPoint is one bar of a pareto chart with its cumulative line value.
type ParetoPoint struct {
	Label      string  `json:"label"`
	Count      int     `json:"count"`
	Cumulative float64 `json:"cumulative"`
}

// ParetoSeries expects codes already sorted by count. Only the first limit
// codes are emitted, but the cumulative fraction is taken over all of them.
func ParetoSeries(codes []aggregate.CodeCount, limit int) []ParetoPoint {
	counts := make([]float64, len(codes))
	for i, c := range codes {
		counts[i] = float64(c.Count)
	}
	cum := aggregate.Pareto(counts, limit)
	out := make([]ParetoPoint, len(cum))
	for i := range cum {
		out[i] = ParetoPoint{Label: codes[i].Code, Count: codes[i].Count, Cumulative: cum[i]}
	}
	return out
}

// ThroughputYield is the product of every station's first-pass yield.
// Stations with no parts are skipped; no stations at all yields 0.
func ThroughputYield(stations []aggregate.StationSummary) float64 {
	tpy := 1.0
	counted := 0
	for _, s := range stations {
		if s.Total == 0 {
			continue
		}
		tpy *= float64(s.Passed) / float64(s.Total)
		counted++
	}
	if counted == 0 {
		return 0
	}
	return tpy
}

// YieldPercent renders a [0,1] rate as a percentage rounded to two places.
func YieldPercent(rate float64) float64 {
	return math.Round(rate*10000) / 100
}

// ModelTPY is a chart row of throughput yield per model.
type ModelTPY struct {
	Model    string  `json:"model"`
	TPY      float64 `json:"tpy"`
	Percent  float64 `json:"percent"`
	Stations int     `json:"stations"`
}

func ModelTPYSeries(models []aggregate.ModelStations) []ModelTPY {
	out := make([]ModelTPY, 0, len(models))
	for _, m := range models {
		tpy := ThroughputYield(m.Stations)
		out = append(out, ModelTPY{Model: m.Model, TPY: tpy, Percent: YieldPercent(tpy), Stations: len(m.Stations)})
	}
	return out
}

// Quantile interpolates linearly between closest ranks of sorted values.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// BoxPlot summarizes a sample for a box or violin chart. Whiskers reach the
// furthest points within 1.5 IQR of the box.
type BoxPlot struct {
	N           int       `json:"n"`
	Min         float64   `json:"min"`
	Q1          float64   `json:"q1"`
	Median      float64   `json:"median"`
	Q3          float64   `json:"q3"`
	Max         float64   `json:"max"`
	Mean        float64   `json:"mean"`
	WhiskerLow  float64   `json:"whiskerLow"`
	WhiskerHigh float64   `json:"whiskerHigh"`
	Outliers    []float64 `json:"outliers,omitempty"`
}

func BoxStats(values []float64) BoxPlot {
	if len(values) == 0 {
		return BoxPlot{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	b := BoxPlot{
		N:      len(sorted),
		Min:    sorted[0],
		Q1:     Quantile(sorted, 0.25),
		Median: Quantile(sorted, 0.5),
		Q3:     Quantile(sorted, 0.75),
		Max:    sorted[len(sorted)-1],
		Mean:   sum / float64(len(sorted)),
	}
	iqr := b.Q3 - b.Q1
	lowFence, highFence := b.Q1-1.5*iqr, b.Q3+1.5*iqr
	b.WhiskerLow, b.WhiskerHigh = b.Max, b.Min
	for _, v := range sorted {
		if v < lowFence || v > highFence {
			b.Outliers = append(b.Outliers, v)
			continue
		}
		if v < b.WhiskerLow {
			b.WhiskerLow = v
		}
		if v > b.WhiskerHigh {
			b.WhiskerHigh = v
		}
	}
	return b
}

// Bin is one histogram bucket [Low, High).
type Bin struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// Density bins values into equal-width buckets for a violin outline. The
// last bucket is closed on the right.
func Density(values []float64, bins int) []Bin {
	if len(values) == 0 || bins <= 0 {
		return nil
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return []Bin{{Low: lo, High: hi, Count: len(values)}}
	}
	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Low = lo + float64(i)*width
		out[i].High = lo + float64(i+1)*width
	}
	for _, v := range values {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out
}
