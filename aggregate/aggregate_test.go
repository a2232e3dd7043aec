package aggregate

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yieldboard/mapper"
)

func day(s string) time.Time {
	t, err := time.Parse(mapper.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDayKeysInclusiveAndContiguous(t *testing.T) {
	ranges := [][2]string{
		{"2025-01-15", "2025-01-15"},
		{"2024-02-27", "2024-03-02"},
		{"2024-12-30", "2025-01-05"},
		{"2025-03-08", "2025-03-11"},
	}
	for _, r := range ranges {
		start, end := day(r[0]), day(r[1])
		keys := DayKeys(start, end)
		want := int(end.Sub(start).Hours()/24) + 1
		require.Len(t, keys, want, r)
		assert.Equal(t, r[0], keys[0])
		assert.Equal(t, r[1], keys[len(keys)-1])
		for i := 1; i < len(keys); i++ {
			prev, cur := day(keys[i-1]), day(keys[i])
			assert.Equal(t, prev.AddDate(0, 0, 1), cur, "gap between %s and %s", keys[i-1], keys[i])
		}
	}
	assert.Empty(t, DayKeys(day("2025-01-02"), day("2025-01-01")))
}

func TestDayKeysUsesCalendarDayOfBounds(t *testing.T) {
	start := time.Date(2025, 1, 15, 23, 30, 0, 0, time.UTC)
	end := time.Date(2025, 1, 16, 0, 10, 0, 0, time.UTC)
	assert.Equal(t, []string{"2025-01-15", "2025-01-16"}, DayKeys(start, end))
}

func TestWeekKey(t *testing.T) {
	assert.Equal(t, "2025-01", WeekKey("2024-12-30"))
	assert.Equal(t, "2020-53", WeekKey("2021-01-03"))
	assert.Equal(t, "2025-03", WeekKey("2025-01-15"))
	assert.Equal(t, "", WeekKey("nope"))
}

func TestKeyStringIsUnambiguous(t *testing.T) {
	assert.NotEqual(t, Key{"a|b", "c"}.String(), Key{"a", "b|c"}.String())
	assert.Equal(t, Key{"2025-01-15", "SXM4"}.String(), Key{"2025-01-15", "SXM4"}.String())
}

func TestGroupSumFirstSeenOrder(t *testing.T) {
	recs := []mapper.PackingRecord{
		{Model: "B", Value: 1}, {Model: "A", Value: 2}, {Model: "B", Value: 3},
	}
	buckets := GroupSum(recs, func(r mapper.PackingRecord) Key { return Key{r.Model} },
		func(r mapper.PackingRecord) float64 { return r.Value })
	require.Len(t, buckets, 2)
	assert.Equal(t, Key{"B"}, buckets[0].Key)
	assert.Equal(t, 4.0, buckets[0].Sum)
	assert.Equal(t, 2, buckets[0].Count)
	assert.Equal(t, 2.0, buckets[1].Sum)
}

func TestPackingRollupSingleDay(t *testing.T) {
	raw := []mapper.Raw{
		{"model": "Tesla SXM4", "part": "A1", "date": "1/15/2025", "count": "10"},
		{"model": "Tesla SXM4", "part": "A2", "date": "1/15/2025", "count": "5"},
	}
	recs := mapper.MapAll(raw, mapper.MapPacking)

	res := PackingRollup(recs, day("2025-01-15"), day("2025-01-15"), nil)
	assert.Equal(t, []Point{{Key: "2025-01-15", Value: 15}}, res.DailySeries())

	m, ok := res.Model("Tesla SXM4")
	require.True(t, ok)
	want := []*PartRollup{
		{PartNumber: "A1", Values: map[string]float64{"2025-01-15": 10}, Total: 10},
		{PartNumber: "A2", Values: map[string]float64{"2025-01-15": 5}, Total: 5},
	}
	if diff := cmp.Diff(want, m.Parts); diff != "" {
		t.Errorf("parts mismatch (-want +got):\n%s", diff)
	}
}

func TestPackingRollupConservesTotals(t *testing.T) {
	recs := []mapper.PackingRecord{
		{Date: "2025-01-14", Model: "SXM4", PartNumber: "A1", Value: 100},
		{Date: "2025-01-15", Model: "SXM4", PartNumber: "A1", Value: 10},
		{Date: "2025-01-16", Model: "SXM5", PartNumber: "B1", Value: 7},
		{Date: "2025-01-17", Model: "SXM4", PartNumber: "A2", Value: 3},
		{Date: "", Model: "SXM4", PartNumber: "A2", Value: 50},
		{Date: "2025-01-20", Model: "SXM5", PartNumber: "B1", Value: 9},
	}
	res := PackingRollup(recs, day("2025-01-15"), day("2025-01-17"), nil)

	var inRange float64
	for _, r := range recs {
		if r.Date >= "2025-01-15" && r.Date <= "2025-01-17" {
			inRange += r.Value
		}
	}
	var leaves float64
	for _, m := range res.Models {
		for _, p := range m.Parts {
			for _, v := range p.Values {
				leaves += v
			}
		}
	}
	assert.Equal(t, inRange, leaves)
	assert.Equal(t, inRange, res.Total())
	assert.Equal(t, 3, res.OutOfRange)

	// untouched days still carry a zero leaf
	m, _ := res.Model("SXM5")
	assert.Equal(t, map[string]float64{"2025-01-15": 0, "2025-01-16": 7, "2025-01-17": 0}, m.Parts[0].Values)
}

func TestPackingRollupAliasResolution(t *testing.T) {
	resolver, err := NewResolver(Aliases{"Tesla SXM4": {"SXM4", "sxm-4"}})
	require.NoError(t, err)

	recs := []mapper.PackingRecord{
		{Date: "2025-01-15", Model: "SXM4", PartNumber: "A1", Value: 1},
		{Date: "2025-01-15", Model: "  sxm-4 ", PartNumber: "A1", Value: 2},
		{Date: "2025-01-15", Model: "SXM40", PartNumber: "C1", Value: 4},
		{Date: "2025-01-15", Model: "SXM40", PartNumber: "C1", Value: 4},
	}
	res := PackingRollup(recs, day("2025-01-15"), day("2025-01-15"), resolver)
	require.Len(t, res.Models, 1)
	assert.Equal(t, "Tesla SXM4", res.Models[0].Model)
	assert.Equal(t, 3.0, res.Models[0].Total)
	assert.Equal(t, []string{"SXM40"}, res.Unmatched)
}

func TestResolverRejectsConflicts(t *testing.T) {
	_, err := NewResolver(Aliases{"A": {"x"}, "B": {"X"}})
	assert.Error(t, err)

	var nilResolver *Resolver
	name, ok := nilResolver.Resolve("anything")
	assert.True(t, ok)
	assert.Equal(t, "anything", name)
}

func TestWeeklyRollup(t *testing.T) {
	daily := []Point{
		{Key: "2024-12-29", Value: 1},
		{Key: "2024-12-30", Value: 2},
		{Key: "2025-01-05", Value: 3},
		{Key: "2025-01-06", Value: 4},
	}
	assert.Equal(t, []Point{
		{Key: "2024-52", Value: 1},
		{Key: "2025-01", Value: 5},
		{Key: "2025-02", Value: 4},
	}, WeeklyRollup(daily))
}

func TestTrendPerfectLine(t *testing.T) {
	in := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, in, Trend(in))

	slope, intercept, ok := Fit(in)
	require.True(t, ok)
	assert.Equal(t, 1.0, slope)
	assert.Equal(t, 1.0, intercept)
}

func TestTrendDegenerate(t *testing.T) {
	assert.Equal(t, []float64{7}, Trend([]float64{7}))
	assert.Equal(t, []float64{}, Trend(nil))
	_, _, ok := Fit([]float64{3})
	assert.False(t, ok)
}

func TestTrendSeriesKeepsKeys(t *testing.T) {
	out := TrendSeries([]Point{{Key: "a", Value: 2}, {Key: "b", Value: 4}, {Key: "c", Value: 6}})
	assert.Equal(t, []Point{{Key: "a", Value: 2}, {Key: "b", Value: 4}, {Key: "c", Value: 6}}, out)
}

func TestPareto(t *testing.T) {
	assert.Equal(t, []float64{0.5, 0.8, 1.0}, Pareto([]float64{50, 30, 20}, 0))
	// truncated display keeps the full-dataset denominator
	assert.Equal(t, []float64{0.5, 0.8}, Pareto([]float64{50, 30, 20}, 2))
	assert.Equal(t, []float64{0, 0}, Pareto([]float64{0, 0}, 0))
}

func snfnFixture() []mapper.ErrorCodeRecord {
	return []mapper.ErrorCodeRecord{
		{SN: "1", Model: "SXM4", Station: "BAT", Fixture: "F1", ErrorCode: "E1"},
		{SN: "2", Model: "SXM4", Station: "FCT", Fixture: "F2", ErrorCode: "E2"},
		{SN: "3", Model: "SXM5", Station: "BAT", Fixture: "F1", ErrorCode: "E2"},
		{SN: "4", Model: "SXM5", Station: "FLA", Fixture: "F3", ErrorCode: "E3"},
		{SN: "5", Model: "SXM4", Station: "BAT", Fixture: "F2", ErrorCode: "E1"},
	}
}

func TestFilterByStationOnly(t *testing.T) {
	recs := snfnFixture()
	got := FilterErrorRecords(recs, SNFNOptions{Stations: []string{"BAT"}, ErrorCodes: []string{}})
	assert.Equal(t, []mapper.ErrorCodeRecord{recs[0], recs[2], recs[4]}, got)
}

func TestFilterAndAcrossFields(t *testing.T) {
	got := FilterErrorRecords(snfnFixture(), SNFNOptions{
		Stations:   []string{"BAT", "FCT"},
		Models:     []string{"SXM4"},
		ErrorCodes: []string{"E2"},
	})
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].SN)
}

func TestGroupSNFN(t *testing.T) {
	groups := GroupSNFN(snfnFixture(), SNFNOptions{Ascending: true})
	want := []SNFNGroup{
		{Key: "BAT", Total: 3, Codes: []CodeCount{{"E1", 2}, {"E2", 1}}, Models: []string{"SXM4", "SXM5"}},
		{Key: "FCT", Total: 1, Codes: []CodeCount{{"E2", 1}}, Models: []string{"SXM4"}},
		{Key: "FLA", Total: 1, Codes: []CodeCount{{"E3", 1}}, Models: []string{"SXM5"}},
	}
	if diff := cmp.Diff(want, groups); diff != "" {
		t.Errorf("groups mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupSNFNByFixtureTruncates(t *testing.T) {
	groups := GroupSNFN(snfnFixture(), SNFNOptions{GroupByFixture: true, SortByCount: true, MaxErrorCodes: 1})
	require.Len(t, groups, 3)
	assert.Equal(t, "F1", groups[0].Key)
	assert.Equal(t, 2, groups[0].Total)
	assert.Equal(t, []CodeCount{{"E1", 1}}, groups[0].Codes)
	assert.Equal(t, "F2", groups[1].Key)
	assert.Equal(t, []CodeCount{{"E2", 1}}, groups[1].Codes)
}

func TestSortByCountIsStable(t *testing.T) {
	groups := []SNFNGroup{{Key: "z", Total: 2}, {Key: "a", Total: 5}, {Key: "m", Total: 2}}
	SortSNFNGroups(groups, true, false)
	assert.Equal(t, []string{"a", "z", "m"}, keys(groups))

	groups = []SNFNGroup{{Key: "z", Total: 2}, {Key: "a", Total: 5}, {Key: "m", Total: 2}}
	SortSNFNGroups(groups, true, true)
	assert.Equal(t, []string{"z", "m", "a"}, keys(groups))

	SortSNFNGroups(groups, false, false)
	assert.Equal(t, []string{"z", "m", "a"}, keys(groups))
}

func keys(groups []SNFNGroup) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Key
	}
	return out
}

func TestModelStationTableAndTopCodes(t *testing.T) {
	rows := ModelStationTable(snfnFixture(), SNFNOptions{})
	assert.Equal(t, ModelStationRow{Model: "SXM4", Station: "BAT", ErrorCode: "E1", Count: 2}, rows[0])
	assert.Len(t, rows, 4)

	top := TopErrorCodes(snfnFixture(), SNFNOptions{})
	assert.Equal(t, []CodeCount{{"E1", 2}, {"E2", 2}, {"E3", 1}}, top)
}

func TestStationThroughputAndByDay(t *testing.T) {
	recs := []mapper.TPYRecord{
		{Date: "2025-01-15", Model: "SXM4", Station: "FLA", Total: 100, Passed: 95, Failed: 5},
		{Date: "2025-01-15", Model: "SXM4", Station: "FCT", Total: 95, Passed: 90, Failed: 5},
		{Date: "2025-01-16", Model: "SXM4", Station: "FLA", Total: 100, Passed: 99, Failed: 1},
	}
	st := StationThroughput(recs)
	require.Len(t, st, 2)
	assert.Equal(t, "FLA", st[0].Station)
	assert.Equal(t, 200, st[0].Total)
	assert.InDelta(t, 0.97, st[0].Yield, 1e-9)
	assert.InDelta(t, 0.03, st[0].FailureRate, 1e-9)

	days := TPYByDay(recs, day("2025-01-15"), day("2025-01-17"))
	require.Len(t, days, 3)
	assert.Equal(t, 195, days[0].Total)
	assert.Equal(t, 0, days[2].Total)
	assert.Equal(t, 0.0, days[2].Yield)

	byModel := ByModelStation(recs, nil)
	require.Len(t, byModel, 1)
	assert.Len(t, byModel[0].Stations, 2)
}

func TestJoinWeekly(t *testing.T) {
	weekly := []mapper.WeeklyTPYRecord{{WeekID: "2025-02"}, {WeekID: "2025-03"}}
	models := []mapper.ModelTPYRecord{
		{WeekID: "2025-03", Model: "SXM4", TPY: 0.9},
		{WeekID: "2025-02", Model: "SXM4", TPY: 0.8},
		{WeekID: "2025-03", Model: "SXM5", TPY: 0.7},
	}
	got := JoinWeekly(weekly, models)
	assert.Len(t, got[0].Models, 1)
	assert.Equal(t, []string{"SXM4", "SXM5"}, []string{got[1].Models[0].Model, got[1].Models[1].Model})
	assert.Nil(t, weekly[0].Models)
}
