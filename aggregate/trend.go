package aggregate

// Fit computes the least-squares line through values with x = 0..n-1.
// ok is false when the fit is degenerate (fewer than two points).
func Fit(values []float64) (slope, intercept float64, ok bool) {
	n := len(values)
	if n < 2 {
		return 0, 0, false
	}
	var sx, sy, sxx, sxy float64
	for i, y := range values {
		x := float64(i)
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
	}
	nf := float64(n)
	den := nf*sxx - sx*sx
	if den == 0 {
		return 0, 0, false
	}
	slope = (nf*sxy - sx*sy) / den
	intercept = (sy - slope*sx) / nf
	return slope, intercept, true
}

// Trend evaluates the least-squares line at every index. A degenerate fit
// returns the raw values unchanged.
func Trend(values []float64) []float64 {
	out := make([]float64, len(values))
	slope, intercept, ok := Fit(values)
	if !ok {
		copy(out, values)
		return out
	}
	for i := range out {
		out[i] = intercept + slope*float64(i)
	}
	return out
}

// TrendSeries attaches a trend value to each point of a series.
func TrendSeries(points []Point) []Point {
	trend := Trend(Values(points))
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = Point{Key: p.Key, Value: trend[i]}
	}
	return out
}
