package mapper

import "fmt"

type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "string"
	}
}

// Field is one expected column of an endpoint's rows. Alt lists accepted
// alternative spellings.
type Field struct {
	Name string
	Kind Kind
	Alt  []string
}

// Schema describes the row shape an endpoint is expected to return.
type Schema struct {
	Name   string
	Fields []Field
}

// Check reports every field that is absent or not coercible to its kind.
// Mapping still proceeds with defaults; Check only feeds diagnostics.
func (s Schema) Check(raw Raw) []string {
	var problems []string
	for _, f := range s.Fields {
		keys := append([]string{f.Name}, f.Alt...)
		v, ok := lookup(raw, keys...)
		if !ok {
			problems = append(problems, fmt.Sprintf("%s: missing", f.Name))
			continue
		}
		switch f.Kind {
		case KindNumber:
			if _, ok := toFloat(v); !ok {
				problems = append(problems, fmt.Sprintf("%s: want number, got %T", f.Name, v))
			}
		case KindDate:
			if Date(raw, keys...) == "" {
				problems = append(problems, fmt.Sprintf("%s: want date, got %v", f.Name, v))
			}
		}
	}
	return problems
}

var (
	PackingSchema = Schema{Name: "packing", Fields: []Field{
		{Name: "model", Kind: KindString},
		{Name: "part", Kind: KindString, Alt: []string{"pn", "part_number"}},
		{Name: "date", Kind: KindDate},
		{Name: "count", Kind: KindNumber, Alt: []string{"value", "qty"}},
	}}

	TPYDailySchema = Schema{Name: "tpy-daily", Fields: []Field{
		{Name: "date_id", Kind: KindDate},
		{Name: "model", Kind: KindString},
		{Name: "workstation_name", Kind: KindString},
		{Name: "total_parts", Kind: KindNumber},
		{Name: "passed_parts", Kind: KindNumber},
		{Name: "failed_parts", Kind: KindNumber},
		{Name: "throughput_yield", Kind: KindNumber},
	}}

	WeeklySchema = Schema{Name: "tpy-weekly", Fields: []Field{
		{Name: "week_id", Kind: KindString},
		{Name: "total_parts", Kind: KindNumber},
		{Name: "passed_parts", Kind: KindNumber},
		{Name: "failed_parts", Kind: KindNumber},
		{Name: "throughput_yield", Kind: KindNumber},
	}}

	ModelTPYSchema = Schema{Name: "tpy-weekly-model", Fields: []Field{
		{Name: "week_id", Kind: KindString},
		{Name: "model", Kind: KindString},
		{Name: "tpy", Kind: KindNumber},
	}}

	TestYieldSchema = Schema{Name: "test-yields", Fields: []Field{
		{Name: "model", Kind: KindString},
		{Name: "assy2_total", Kind: KindNumber},
		{Name: "fla_total", Kind: KindNumber},
		{Name: "fct_total", Kind: KindNumber},
		{Name: "test_yield_fla", Kind: KindNumber},
		{Name: "test_yield_fct", Kind: KindNumber},
	}}

	StationTimeSchema = Schema{Name: "station-times", Fields: []Field{
		{Name: "sn", Kind: KindString},
		{Name: "workstation_name", Kind: KindString},
		{Name: "total_time", Kind: KindNumber},
	}}

	FilteredYieldSchema = Schema{Name: "filtered-yields", Fields: []Field{
		{Name: "model", Kind: KindString},
		{Name: "total", Kind: KindNumber},
		{Name: "passed", Kind: KindNumber},
		{Name: "failed", Kind: KindNumber},
		{Name: "yield", Kind: KindNumber},
	}}

	TestboardSchema = Schema{Name: "testboard", Fields: []Field{
		{Name: "sn", Kind: KindString},
		{Name: "model", Kind: KindString},
		{Name: "workstation_name", Kind: KindString},
		{Name: "history_station_start_time", Kind: KindDate},
		{Name: "history_station_passing_status", Kind: KindString},
	}}
)
