package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"yieldboard/aggregate"
	"yieldboard/cache"
	"yieldboard/mapper"
)

const (
	RouteDailyTPY       = "/tpy/daily"
	RouteWeeklyTPY      = "/tpy/weekly"
	RouteTestYields     = "/tpy/test-yields"
	RouteStationTimes   = "/workstation-routes/station-times"
	RouteFilteredYields = "/workstation-routes/filtered-yields"
	RouteTestboard      = "/testboard-records/"
	RoutePacking        = "/packing/records"
	RoutePortal         = "/sql-portal/query"
	RouteUpload         = "/upload/catch-file"
)

// Check names one of the testboard record queries.
type Check string

const (
	SNCheck        Check = "sn-check"
	PassCheck      Check = "pass-check"
	MostRecentFail Check = "most-recent-fail"
	ByError        Check = "by-error"
	FailCheck      Check = "fail-check"
	XBarR          Check = "x-bar-r"
)

func (c Check) Valid() bool {
	switch c {
	case SNCheck, PassCheck, MostRecentFail, ByError, FailCheck, XBarR:
		return true
	}
	return false
}

func (c *Client) DailyTPY(ctx context.Context, start, end time.Time, model string) ([]mapper.TPYRecord, error) {
	params := BuildParams([]Param{{ID: "model", Value: model}}, start, end)
	return fetchMapped(ctx, c, RouteDailyTPY, params, "", mapper.TPYDailySchema, mapper.MapTPYDaily)
}

func (c *Client) PackingRecords(ctx context.Context, start, end time.Time) ([]mapper.PackingRecord, error) {
	params := BuildParams(nil, start, end)
	return fetchMapped(ctx, c, RoutePacking, params, "", mapper.PackingSchema, mapper.MapPacking)
}

// WeeklyTPY fetches weekly aggregates for an ISO week range ("2025-03" or
// "2025-W03") and attaches the per-model rows by week id.
func (c *Client) WeeklyTPY(ctx context.Context, startWeek, endWeek string) ([]mapper.WeeklyTPYRecord, error) {
	params := BuildParams([]Param{{ID: "startWeek", Value: startWeek}, {ID: "endWeek", Value: endWeek}}, time.Time{}, time.Time{})
	return cached(c, cache.Key(RouteWeeklyTPY, params), func() ([]mapper.WeeklyTPYRecord, error) {
		var body struct {
			Weekly []mapper.Raw `json:"weekly"`
			Models []mapper.Raw `json:"models"`
		}
		if err := c.do(ctx, http.MethodGet, RouteWeeklyTPY, params, nil, &body); err != nil {
			return nil, err
		}
		weekly := mapRows(c, mapper.WeeklySchema, body.Weekly, mapper.MapWeekly)
		models := mapRows(c, mapper.ModelTPYSchema, body.Models, mapper.MapModelTPY)
		return aggregate.JoinWeekly(weekly, models), nil
	})
}

func (c *Client) TestYields(ctx context.Context, dates []string) ([]mapper.TestYieldRecord, error) {
	key := cache.Key(RouteTestYields, url.Values{"dates": {strings.Join(dates, ",")}})
	return cached(c, key, func() ([]mapper.TestYieldRecord, error) {
		rows, err := c.ImportQuery(ctx, RouteTestYields, nil, http.MethodPost, map[string]any{"dates": dates})
		if err != nil {
			return nil, err
		}
		return mapRows(c, mapper.TestYieldSchema, rows, mapper.MapTestYield), nil
	})
}

// StationTimes looks up per-station dwell time for serial numbers in chunks.
// Results are not cached.
func (c *Client) StationTimes(ctx context.Context, sns []string) ([]mapper.StationTimeRecord, error) {
	rows, err := c.ImportChunked(ctx, RouteStationTimes, "sns", sns, nil)
	if err != nil {
		return nil, err
	}
	return mapRows(c, mapper.StationTimeSchema, rows, mapper.MapStationTime), nil
}

func (c *Client) FilteredYields(ctx context.Context, dates, sns []string) ([]mapper.FilteredYieldRecord, error) {
	rows, err := c.ImportQuery(ctx, RouteFilteredYields, nil, http.MethodPost, map[string]any{"dates": dates, "sns": sns})
	if err != nil {
		return nil, err
	}
	return mapRows(c, mapper.FilteredYieldSchema, rows, mapper.MapFilteredYield), nil
}

// TestboardQuery carries the optional filters of the testboard checks.
// SNs drive the serial-number checks; ErrorCodes drive by-error.
type TestboardQuery struct {
	SNs        []string
	ErrorCodes []string
	Start      time.Time
	End        time.Time
	Model      string
	Station    string
}

func (q TestboardQuery) extra() map[string]any {
	m := map[string]any{}
	if !q.Start.IsZero() {
		m["startDate"] = StartOfDay(q.Start)
	}
	if !q.End.IsZero() {
		m["endDate"] = EndOfDay(q.End)
	}
	if q.Model != "" {
		m["model"] = q.Model
	}
	if q.Station != "" {
		m["workstation"] = q.Station
	}
	return m
}

// Testboard runs one of the testboard checks. Serial-number checks are sent
// in chunks; by-error and x-bar-r are single requests.
func (c *Client) Testboard(ctx context.Context, check Check, q TestboardQuery) ([]mapper.TestboardRecord, error) {
	if !check.Valid() {
		return nil, fmt.Errorf("unknown testboard check %q", check)
	}
	route := RouteTestboard + string(check)
	var (
		rows []mapper.Raw
		err  error
	)
	switch check {
	case ByError:
		body := q.extra()
		body["checkArray"] = q.ErrorCodes
		rows, err = c.ImportQuery(ctx, route, nil, http.MethodPost, body)
	case XBarR:
		rows, err = c.ImportQuery(ctx, route, nil, http.MethodPost, q.extra())
	default:
		rows, err = c.ImportChunked(ctx, route, "sns", q.SNs, q.extra())
	}
	if err != nil {
		return nil, err
	}
	return mapRows(c, mapper.TestboardSchema, rows, mapper.MapTestboard), nil
}

// PortalResult is the SQL portal response.
type PortalResult struct {
	Success       bool         `json:"success"`
	RowCount      int          `json:"rowCount"`
	Rows          []mapper.Raw `json:"rows"`
	Fields        []string     `json:"fields"`
	ExecutionTime string       `json:"executionTime"`
	Truncated     bool         `json:"truncated,omitempty"`
}

// Portal runs a read-only statement. Rejected statements surface as a
// *FetchError whose Message is the server's explanation.
func (c *Client) Portal(ctx context.Context, sql string) (PortalResult, error) {
	var res PortalResult
	err := c.do(ctx, http.MethodPost, RoutePortal, nil, map[string]string{"sql": sql}, &res)
	return res, err
}

type UploadResult struct {
	Message   string `json:"message"`
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	SavedTo   string `json:"savedTo"`
	Timestamp string `json:"timestamp"`
}

// Upload sends r as the multipart field "file".
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (UploadResult, error) {
	var res UploadResult
	target := c.url(RouteUpload, nil)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(name))
	if err != nil {
		return res, &FetchError{Method: http.MethodPost, URL: target, Err: err}
	}
	if _, err := io.Copy(part, r); err != nil {
		return res, &FetchError{Method: http.MethodPost, URL: target, Err: fmt.Errorf("read upload: %w", err)}
	}
	if err := w.Close(); err != nil {
		return res, &FetchError{Method: http.MethodPost, URL: target, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &buf)
	if err != nil {
		return res, &FetchError{Method: http.MethodPost, URL: target, Err: err}
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	err = c.send(req, &res)
	return res, err
}
