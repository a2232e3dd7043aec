package mapper

import (
	"strings"
	"time"
)

// NoErrorCode marks a failing station record that carried no failure reason.
const NoErrorCode = "NO_CODE"

// PackingRecord is one packing-output row: how many units of a part number
// were packed for a model on a day.
type PackingRecord struct {
	Date       string  `json:"date"`
	Model      string  `json:"model"`
	PartNumber string  `json:"partNumber"`
	Station    string  `json:"station,omitempty"`
	Value      float64 `json:"value"`
}

func MapPacking(raw Raw) PackingRecord {
	return PackingRecord{
		Date:       Date(raw, "date", "date_id", "pack_date"),
		Model:      String(raw, "model"),
		PartNumber: String(raw, "part", "pn", "part_number"),
		Station:    String(raw, "station", "workstation_name"),
		Value:      float64(Count(raw, "count", "value", "qty")),
	}
}

// TPYRecord is a daily per-model, per-station throughput row.
type TPYRecord struct {
	Date            string  `json:"date"`
	Model           string  `json:"model"`
	Station         string  `json:"station"`
	Total           int     `json:"total"`
	Passed          int     `json:"passed"`
	Failed          int     `json:"failed"`
	ThroughputYield float64 `json:"throughputYield"`
}

func MapTPYDaily(raw Raw) TPYRecord {
	return TPYRecord{
		Date:            Date(raw, "date_id", "date"),
		Model:           String(raw, "model"),
		Station:         String(raw, "workstation_name", "station"),
		Total:           Count(raw, "total_parts"),
		Passed:          Count(raw, "passed_parts"),
		Failed:          Count(raw, "failed_parts"),
		ThroughputYield: Rate(raw, "throughput_yield"),
	}
}

// WeeklyTPYRecord is a weekly aggregate with its per-model TPY rows attached.
type WeeklyTPYRecord struct {
	WeekID          string           `json:"weekId"`
	WeekStart       string           `json:"weekStart"`
	WeekEnd         string           `json:"weekEnd"`
	Total           int              `json:"total"`
	Passed          int              `json:"passed"`
	Failed          int              `json:"failed"`
	ThroughputYield float64          `json:"throughputYield"`
	Models          []ModelTPYRecord `json:"models,omitempty"`
}

func MapWeekly(raw Raw) WeeklyTPYRecord {
	return WeeklyTPYRecord{
		WeekID:          String(raw, "week_id"),
		WeekStart:       Date(raw, "week_start"),
		WeekEnd:         Date(raw, "week_end"),
		Total:           Count(raw, "total_parts"),
		Passed:          Count(raw, "passed_parts"),
		Failed:          Count(raw, "failed_parts"),
		ThroughputYield: Rate(raw, "throughput_yield"),
	}
}

type ModelTPYRecord struct {
	WeekID string  `json:"weekId"`
	Model  string  `json:"model"`
	TPY    float64 `json:"tpy"`
}

func MapModelTPY(raw Raw) ModelTPYRecord {
	return ModelTPYRecord{
		WeekID: String(raw, "week_id"),
		Model:  String(raw, "model"),
		TPY:    Rate(raw, "tpy"),
	}
}

type TestYieldRecord struct {
	Model      string  `json:"model"`
	Assy2Total int     `json:"assy2Total"`
	FLATotal   int     `json:"flaTotal"`
	FCTTotal   int     `json:"fctTotal"`
	YieldFLA   float64 `json:"yieldFla"`
	YieldFCT   float64 `json:"yieldFct"`
}

func MapTestYield(raw Raw) TestYieldRecord {
	return TestYieldRecord{
		Model:      String(raw, "model"),
		Assy2Total: Count(raw, "assy2_total"),
		FLATotal:   Count(raw, "fla_total"),
		FCTTotal:   Count(raw, "fct_total"),
		YieldFLA:   Rate(raw, "test_yield_fla"),
		YieldFCT:   Rate(raw, "test_yield_fct"),
	}
}

type StationTimeRecord struct {
	SN        string  `json:"sn"`
	Station   string  `json:"station"`
	TotalTime float64 `json:"totalTime"`
}

func MapStationTime(raw Raw) StationTimeRecord {
	t := Float(raw, "total_time")
	if t < 0 {
		t = 0
	}
	return StationTimeRecord{
		SN:        String(raw, "sn"),
		Station:   String(raw, "workstation_name", "station"),
		TotalTime: t,
	}
}

type FilteredYieldRecord struct {
	Model  string  `json:"model"`
	Total  int     `json:"total"`
	Passed int     `json:"passed"`
	Failed int     `json:"failed"`
	Yield  float64 `json:"yield"`
}

func MapFilteredYield(raw Raw) FilteredYieldRecord {
	return FilteredYieldRecord{
		Model:  String(raw, "model"),
		Total:  Count(raw, "total"),
		Passed: Count(raw, "passed"),
		Failed: Count(raw, "failed"),
		Yield:  Rate(raw, "yield"),
	}
}

// TestboardRecord is a single pass through a test station.
type TestboardRecord struct {
	SN             string    `json:"sn"`
	PN             string    `json:"pn"`
	Model          string    `json:"model"`
	Station        string    `json:"station"`
	Fixture        string    `json:"fixture"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Passed         bool      `json:"passed"`
	FailureReasons string    `json:"failureReasons"`

	// DurationSeconds is set by queries that compute the dwell time
	// server-side (x-bar-r).
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
}

func MapTestboard(raw Raw) TestboardRecord {
	return TestboardRecord{
		SN:              String(raw, "sn"),
		PN:              String(raw, "pn"),
		Model:           String(raw, "model"),
		Station:         String(raw, "workstation_name", "station"),
		Fixture:         String(raw, "fixture_no", "fixture"),
		Start:           Timestamp(raw, "history_station_start_time"),
		End:             Timestamp(raw, "history_station_end_time"),
		Passed:          Bool(raw, "history_station_passing_status"),
		FailureReasons:  String(raw, "failure_reasons", "error_code"),
		DurationSeconds: Float(raw, "duration_seconds"),
	}
}

// Duration is the station dwell time in seconds: DurationSeconds when the
// server supplied it, else End minus Start, 0 when either end is unknown.
func (r TestboardRecord) Duration() float64 {
	if r.DurationSeconds > 0 {
		return r.DurationSeconds
	}
	if r.Start.IsZero() || r.End.IsZero() || r.End.Before(r.Start) {
		return 0
	}
	return r.End.Sub(r.Start).Seconds()
}

// ErrorCodes splits the failure reasons into individual codes.
func (r TestboardRecord) ErrorCodes() []string {
	fields := strings.FieldsFunc(r.FailureReasons, func(c rune) bool {
		return c == ',' || c == ';' || c == '|'
	})
	codes := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			codes = append(codes, f)
		}
	}
	return codes
}

// ErrorCodeRecord is one occurrence of one error code at one station.
type ErrorCodeRecord struct {
	SN        string `json:"sn"`
	Model     string `json:"model"`
	Station   string `json:"station"`
	Fixture   string `json:"fixture"`
	ErrorCode string `json:"errorCode"`
	Date      string `json:"date"`
}

// ErrorCodeRecords expands a failing station record into one record per
// error code. Passing records produce none.
func ErrorCodeRecords(r TestboardRecord) []ErrorCodeRecord {
	if r.Passed {
		return nil
	}
	codes := r.ErrorCodes()
	if len(codes) == 0 {
		codes = []string{NoErrorCode}
	}
	date := ""
	if !r.Start.IsZero() {
		date = r.Start.Format(DateLayout)
	}
	out := make([]ErrorCodeRecord, 0, len(codes))
	for _, c := range codes {
		out = append(out, ErrorCodeRecord{
			SN:        r.SN,
			Model:     r.Model,
			Station:   r.Station,
			Fixture:   r.Fixture,
			ErrorCode: c,
			Date:      date,
		})
	}
	return out
}

// MapAll applies fn to every row, preserving order.
func MapAll[T any](rows []Raw, fn func(Raw) T) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, fn(r))
	}
	return out
}
