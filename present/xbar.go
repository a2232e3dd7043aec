package present

import "fmt"

// control chart constants by subgroup size
var (
	a2 = map[int]float64{2: 1.880, 3: 1.023, 4: 0.729, 5: 0.577, 6: 0.483, 7: 0.419, 8: 0.373, 9: 0.337, 10: 0.308}
	d3 = map[int]float64{2: 0, 3: 0, 4: 0, 5: 0, 6: 0, 7: 0.076, 8: 0.136, 9: 0.184, 10: 0.223}
	d4 = map[int]float64{2: 3.267, 3: 2.574, 4: 2.282, 5: 2.114, 6: 2.004, 7: 1.924, 8: 1.864, 9: 1.816, 10: 1.777}
)

type Subgroup struct {
	Mean  float64 `json:"mean"`
	Range float64 `json:"range"`
}

// XBarRChart holds subgroup statistics and control limits.
type XBarRChart struct {
	SubgroupSize int        `json:"subgroupSize"`
	Subgroups    []Subgroup `json:"subgroups"`
	GrandMean    float64    `json:"grandMean"`
	MeanRange    float64    `json:"meanRange"`
	XBarUCL      float64    `json:"xbarUcl"`
	XBarLCL      float64    `json:"xbarLcl"`
	RangeUCL     float64    `json:"rangeUcl"`
	RangeLCL     float64    `json:"rangeLcl"`
}

// XBarR splits values into consecutive subgroups of size n (a trailing
// partial subgroup is ignored) and computes X-bar and R control limits.
func XBarR(values []float64, n int) (XBarRChart, error) {
	if _, ok := a2[n]; !ok {
		return XBarRChart{}, fmt.Errorf("subgroup size %d not supported (2..10)", n)
	}
	chart := XBarRChart{SubgroupSize: n}
	for i := 0; i+n <= len(values); i += n {
		group := values[i : i+n]
		lo, hi, sum := group[0], group[0], 0.0
		for _, v := range group {
			sum += v
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		chart.Subgroups = append(chart.Subgroups, Subgroup{Mean: sum / float64(n), Range: hi - lo})
	}
	if len(chart.Subgroups) == 0 {
		return chart, fmt.Errorf("need at least %d values, got %d", n, len(values))
	}
	for _, g := range chart.Subgroups {
		chart.GrandMean += g.Mean
		chart.MeanRange += g.Range
	}
	k := float64(len(chart.Subgroups))
	chart.GrandMean /= k
	chart.MeanRange /= k
	chart.XBarUCL = chart.GrandMean + a2[n]*chart.MeanRange
	chart.XBarLCL = chart.GrandMean - a2[n]*chart.MeanRange
	chart.RangeUCL = d4[n] * chart.MeanRange
	chart.RangeLCL = d3[n] * chart.MeanRange
	return chart, nil
}
