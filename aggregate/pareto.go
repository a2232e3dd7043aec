package aggregate

// Pareto returns the cumulative fraction of the grand total for the first
// limit counts (all of them when limit <= 0). The total covers every count,
// so a truncated series may end below 1.
func Pareto(counts []float64, limit int) []float64 {
	var total float64
	for _, c := range counts {
		total += c
	}
	n := len(counts)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]float64, n)
	if total == 0 {
		return out
	}
	var running float64
	for i := 0; i < n; i++ {
		running += counts[i]
		out[i] = running / total
	}
	return out
}
