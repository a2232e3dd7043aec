package aggregate

import (
	"sort"
	"strings"

	"yieldboard/mapper"
)

// SNFNOptions controls filtering, grouping and ordering of error-code data.
// Empty filter slices place no restriction on that field.
type SNFNOptions struct {
	Stations   []string `json:"stations,omitempty"`
	Models     []string `json:"models,omitempty"`
	ErrorCodes []string `json:"errorCodes,omitempty"`

	// GroupByFixture groups on the fixture instead of the workstation.
	GroupByFixture bool `json:"groupByFixture"`
	// SortByCount orders groups by total occurrences instead of by key.
	SortByCount bool `json:"sortByCount"`
	Ascending   bool `json:"ascending"`
	// MaxErrorCodes keeps the top N codes per group; <= 0 keeps all.
	MaxErrorCodes int `json:"maxErrorCodes"`
}

type CodeCount struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}

// SNFNGroup is one station (or fixture) with its error-code tally.
type SNFNGroup struct {
	Key string `json:"key"`
	// Total counts every occurrence in the group, including codes dropped
	// by MaxErrorCodes.
	Total  int         `json:"total"`
	Codes  []CodeCount `json:"codes"`
	Models []string    `json:"models"`
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

// FilterErrorRecords keeps records matching every non-empty filter. Values
// within one filter are alternatives. Records are returned unchanged and in
// input order.
func FilterErrorRecords(records []mapper.ErrorCodeRecord, opts SNFNOptions) []mapper.ErrorCodeRecord {
	stations := toSet(opts.Stations)
	models := toSet(opts.Models)
	codes := toSet(opts.ErrorCodes)

	out := make([]mapper.ErrorCodeRecord, 0, len(records))
	for _, r := range records {
		if stations != nil && !stations[r.Station] {
			continue
		}
		if models != nil && !models[r.Model] {
			continue
		}
		if codes != nil && !codes[r.ErrorCode] {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (o SNFNOptions) groupKey(r mapper.ErrorCodeRecord) string {
	if o.GroupByFixture {
		return r.Fixture
	}
	return r.Station
}

// GroupSNFN filters, groups, tallies, sorts and truncates error-code records.
func GroupSNFN(records []mapper.ErrorCodeRecord, opts SNFNOptions) []SNFNGroup {
	filtered := FilterErrorRecords(records, opts)

	type tally struct {
		group     *SNFNGroup
		codeIndex map[string]int
		models    map[string]bool
	}
	index := make(map[string]*tally)
	var order []*tally
	for _, r := range filtered {
		key := opts.groupKey(r)
		t, ok := index[key]
		if !ok {
			t = &tally{group: &SNFNGroup{Key: key}, codeIndex: make(map[string]int), models: make(map[string]bool)}
			index[key] = t
			order = append(order, t)
		}
		i, ok := t.codeIndex[r.ErrorCode]
		if !ok {
			i = len(t.group.Codes)
			t.codeIndex[r.ErrorCode] = i
			t.group.Codes = append(t.group.Codes, CodeCount{Code: r.ErrorCode})
		}
		t.group.Codes[i].Count++
		t.group.Total++
		if !t.models[r.Model] {
			t.models[r.Model] = true
			t.group.Models = append(t.group.Models, r.Model)
		}
	}

	groups := make([]SNFNGroup, 0, len(order))
	for _, t := range order {
		g := *t.group
		sort.SliceStable(g.Codes, func(i, j int) bool { return g.Codes[i].Count > g.Codes[j].Count })
		if opts.MaxErrorCodes > 0 && len(g.Codes) > opts.MaxErrorCodes {
			g.Codes = g.Codes[:opts.MaxErrorCodes]
		}
		groups = append(groups, g)
	}
	SortSNFNGroups(groups, opts.SortByCount, opts.Ascending)
	return groups
}

// SortSNFNGroups orders groups by key or by total. Ties keep their
// first-seen order in both directions.
func SortSNFNGroups(groups []SNFNGroup, byCount, ascending bool) {
	sort.SliceStable(groups, func(i, j int) bool {
		if byCount {
			if ascending {
				return groups[i].Total < groups[j].Total
			}
			return groups[i].Total > groups[j].Total
		}
		c := strings.Compare(groups[i].Key, groups[j].Key)
		if ascending {
			return c < 0
		}
		return c > 0
	})
}

// ModelStationRow is one line of the model / station / error-code table.
type ModelStationRow struct {
	Model     string `json:"model"`
	Station   string `json:"station"`
	ErrorCode string `json:"errorCode"`
	Count     int    `json:"count"`
}

// ModelStationTable tallies filtered records by model, group key and code,
// in first-seen order.
func ModelStationTable(records []mapper.ErrorCodeRecord, opts SNFNOptions) []ModelStationRow {
	filtered := FilterErrorRecords(records, opts)
	buckets := GroupSum(filtered, func(r mapper.ErrorCodeRecord) Key {
		return Key{r.Model, opts.groupKey(r), r.ErrorCode}
	}, nil)
	rows := make([]ModelStationRow, 0, len(buckets))
	for _, b := range buckets {
		rows = append(rows, ModelStationRow{Model: b.Key[0], Station: b.Key[1], ErrorCode: b.Key[2], Count: b.Count})
	}
	return rows
}

// TopErrorCodes tallies codes across all filtered records, most frequent
// first, ties in first-seen order.
func TopErrorCodes(records []mapper.ErrorCodeRecord, opts SNFNOptions) []CodeCount {
	filtered := FilterErrorRecords(records, opts)
	buckets := GroupSum(filtered, func(r mapper.ErrorCodeRecord) Key { return Key{r.ErrorCode} }, nil)
	out := make([]CodeCount, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, CodeCount{Code: b.Key[0], Count: b.Count})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
