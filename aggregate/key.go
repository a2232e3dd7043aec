package aggregate

import "strings"

// Key is an ordered tuple of grouping dimensions, e.g. {date, model}.
type Key []string

var keyEscaper = strings.NewReplacer(`\`, `\\`, "|", `\|`)

// String is the bucket identity. It is stable for equal tuples and
// unambiguous even when a dimension value contains the separator.
func (k Key) String() string {
	parts := make([]string, len(k))
	for i, p := range k {
		parts[i] = keyEscaper.Replace(p)
	}
	return strings.Join(parts, "|")
}

// Bucket accumulates the records that share a Key.
type Bucket struct {
	Key   Key
	Sum   float64
	Count int
}

// GroupSum buckets records by key and sums value per bucket. Buckets come
// back in first-seen order, so the result is a pure function of the input
// order.
func GroupSum[T any](records []T, key func(T) Key, value func(T) float64) []*Bucket {
	index := make(map[string]*Bucket)
	var order []*Bucket
	for _, r := range records {
		k := key(r)
		id := k.String()
		b, ok := index[id]
		if !ok {
			b = &Bucket{Key: k}
			index[id] = b
			order = append(order, b)
		}
		if value != nil {
			b.Sum += value(r)
		}
		b.Count++
	}
	return order
}
