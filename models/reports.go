package models

import "time"

// Wire shapes of the reporting API. Field names follow the database columns
// the dashboards were built against.

type DailyTPYRow struct {
	DateID          string  `json:"date_id"`
	Model           string  `json:"model"`
	WorkstationName string  `json:"workstation_name"`
	TotalParts      int64   `json:"total_parts"`
	PassedParts     int64   `json:"passed_parts"`
	FailedParts     int64   `json:"failed_parts"`
	ThroughputYield float64 `json:"throughput_yield"`
}

type WeeklyTPYRow struct {
	WeekID          string  `json:"week_id"`
	WeekStart       string  `json:"week_start"`
	WeekEnd         string  `json:"week_end"`
	TotalParts      int64   `json:"total_parts"`
	PassedParts     int64   `json:"passed_parts"`
	FailedParts     int64   `json:"failed_parts"`
	ThroughputYield float64 `json:"throughput_yield"`
}

type ModelTPYRow struct {
	WeekID string  `json:"week_id"`
	Model  string  `json:"model"`
	TPY    float64 `json:"tpy"`
}

type WeeklyTPYResponse struct {
	Weekly []WeeklyTPYRow `json:"weekly"`
	Models []ModelTPYRow  `json:"models"`
}

type TestYieldsRequest struct {
	Dates []string `json:"dates" binding:"required,min=1"`
}

type TestYieldRow struct {
	Model        string  `json:"model"`
	Assy2Total   int64   `json:"assy2_total"`
	FLATotal     int64   `json:"fla_total"`
	FCTTotal     int64   `json:"fct_total"`
	TestYieldFLA float64 `json:"test_yield_fla"`
	TestYieldFCT float64 `json:"test_yield_fct"`
}

type StationTimesRequest struct {
	SNs []string `json:"sns" binding:"required,min=1"`
}

type StationTimeRow struct {
	SN              string  `json:"sn"`
	WorkstationName string  `json:"workstation_name"`
	TotalTime       float64 `json:"total_time"`
}

type FilteredYieldsRequest struct {
	Dates []string `json:"dates"`
	SNs   []string `json:"sns" binding:"required,min=1"`
}

type FilteredYieldRow struct {
	Model  string  `json:"model"`
	Total  int64   `json:"total"`
	Passed int64   `json:"passed"`
	Failed int64   `json:"failed"`
	Yield  float64 `json:"yield"`
}

// SNCheckRequest is the body of the serial-number testboard checks.
type SNCheckRequest struct {
	SNs       []string `json:"sns" binding:"required,min=1"`
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate"`
}

type ByErrorRequest struct {
	CheckArray []string `json:"checkArray" binding:"required,min=1"`
	StartDate  string   `json:"startDate" binding:"required"`
	EndDate    string   `json:"endDate" binding:"required"`
}

type XBarRRequest struct {
	StartDate   string `json:"startDate" binding:"required"`
	EndDate     string `json:"endDate" binding:"required"`
	Model       string `json:"model"`
	Workstation string `json:"workstation"`
}

type TestboardRow struct {
	SN                          string     `json:"sn"`
	PN                          string     `json:"pn"`
	Model                       string     `json:"model"`
	WorkstationName             string     `json:"workstation_name"`
	FixtureNo                   string     `json:"fixture_no"`
	HistoryStationStartTime     *time.Time `json:"history_station_start_time"`
	HistoryStationEndTime       *time.Time `json:"history_station_end_time"`
	HistoryStationPassingStatus string     `json:"history_station_passing_status"`
	FailureReasons              string     `json:"failure_reasons"`
}

type XBarRRow struct {
	SN                      string    `json:"sn"`
	Model                   string    `json:"model"`
	WorkstationName         string    `json:"workstation_name"`
	HistoryStationStartTime time.Time `json:"history_station_start_time"`
	DurationSeconds         float64   `json:"duration_seconds"`
}

type PackingRow struct {
	Model string `json:"model"`
	Part  string `json:"part"`
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type PortalRequest struct {
	SQL string `json:"sql"`
}

type PortalResponse struct {
	Success       bool             `json:"success"`
	RowCount      int              `json:"rowCount"`
	Rows          []map[string]any `json:"rows"`
	Fields        []string         `json:"fields"`
	ExecutionTime string           `json:"executionTime"`
	Truncated     bool             `json:"truncated,omitempty"`
}

// PortalAuditEntry records one SQL portal execution.
type PortalAuditEntry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	UserEmail  string    `json:"userEmail"`
	ClientIP   string    `json:"clientIp"`
	Statement  string    `json:"statement"`
	Success    bool      `json:"success"`
	ErrorCode  string    `json:"errorCode,omitempty"`
	RowCount   uint64    `json:"rowCount"`
	DurationMs int64     `json:"durationMs"`
}

type UploadResponse struct {
	Message   string `json:"message"`
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	SavedTo   string `json:"savedTo"`
	Timestamp string `json:"timestamp"`
}
