package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yieldboard/mapper"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestBuildParams(t *testing.T) {
	v := BuildParams([]Param{
		{ID: "model", Value: "SXM4"},
		{ID: "empty", Value: ""},
		{ID: "zero", Value: 0},
		{ID: "off", Value: false},
		{ID: "nil", Value: nil},
		{ID: "none", Value: []string{}},
		{ID: "stations", Value: []string{"FLA", "FCT"}},
		{ID: "limit", Value: 10},
	}, day("2025-01-15"), day("2025-01-20"))

	assert.Equal(t, "SXM4", v.Get("model"))
	assert.Equal(t, "FLA,FCT", v.Get("stations"))
	assert.Equal(t, "10", v.Get("limit"))
	for _, k := range []string{"empty", "zero", "off", "nil", "none"} {
		assert.False(t, v.Has(k), k)
	}
	assert.Equal(t, "2025-01-15T00:00:00.000Z", v.Get("startDate"))
	assert.Equal(t, "2025-01-20T23:59:59.999Z", v.Get("endDate"))

	bare := BuildParams(nil, time.Time{}, time.Time{})
	assert.Empty(t, bare)
}

func TestFetchWithCacheMakesOneNetworkCall(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/api/v1/tpy/daily", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"date_id":"2025-01-15","model":"SXM4","workstation_name":"FLA","total_parts":"10","passed_parts":9,"failed_parts":1,"throughput_yield":"90"}]`)
	}))
	defer srv.Close()

	c := New(srv.URL)
	ctx := context.Background()
	first, err := c.DailyTPY(ctx, day("2025-01-15"), day("2025-01-15"), "")
	require.NoError(t, err)
	second, err := c.DailyTPY(ctx, day("2025-01-15"), day("2025-01-15"), "")
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, first, second)
	require.Len(t, first, 1)
	assert.Equal(t, mapper.TPYRecord{Date: "2025-01-15", Model: "SXM4", Station: "FLA", Total: 10, Passed: 9, Failed: 1, ThroughputYield: 0.9}, first[0])

	assert.Equal(t, 1, c.Invalidate("/tpy/"))
	_, err = c.DailyTPY(ctx, day("2025-01-15"), day("2025-01-15"), "")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchWithCacheGeneric(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		io.WriteString(w, `[{"sn":"A1"},{"sn":"A2"}]`)
	}))
	defer srv.Close()

	c := New(srv.URL)
	sn := func(r mapper.Raw) string { return mapper.String(r, "sn") }
	got, err := FetchWithCache(context.Background(), c, "/anything", nil, "sns", sn)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, got)

	got, err = FetchWithCache(context.Background(), c, "/anything", nil, "sns", sn)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, got)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	c.ClearCache()
	assert.Equal(t, 0, c.Cache().Len())
}

func TestFetchErrorCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, `{"error":"upstream down"}`)
	}))
	defer srv.Close()

	c := New(srv.URL)
	rows, err := c.ImportQuery(context.Background(), "/tpy/daily", nil, "", nil)
	assert.Nil(t, rows)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusBadGateway, fe.Status)
	assert.Equal(t, "Bad Gateway", fe.StatusText)
	assert.Equal(t, "upstream down", fe.Message)
	assert.Equal(t, 0, c.Cache().Len())
}

func TestFetchErrorOnNonArrayBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"not":"an array"}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL).PackingRecords(context.Background(), day("2025-01-01"), day("2025-01-02"))
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusOK, fe.Status)
	assert.Error(t, fe.Unwrap())
}

func TestImportChunkedBatches(t *testing.T) {
	var (
		mu    sync.Mutex
		sizes []int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			SNs       []string `json:"sns"`
			StartDate string   `json:"startDate"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2025-01-01T00:00:00.000Z", body.StartDate)
		mu.Lock()
		sizes = append(sizes, len(body.SNs))
		mu.Unlock()
		rows := make([]map[string]any, len(body.SNs))
		for i, sn := range body.SNs {
			rows[i] = map[string]any{"sn": sn, "workstation_name": "FLA", "history_station_passing_status": "Pass"}
		}
		json.NewEncoder(w).Encode(rows)
	}))
	defer srv.Close()

	sns := make([]string, 4500)
	for i := range sns {
		sns[i] = fmt.Sprintf("SN%05d", i)
	}
	c := New(srv.URL)
	recs, err := c.Testboard(context.Background(), SNCheck, TestboardQuery{SNs: sns, Start: day("2025-01-01")})
	require.NoError(t, err)
	mu.Lock()
	assert.Equal(t, []int{2000, 2000, 500}, sizes)
	mu.Unlock()
	assert.Len(t, recs, 4500)
	assert.True(t, recs[0].Passed)
}

func TestImportChunkedFailureDiscardsRows(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 2 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		io.WriteString(w, `[{"sn":"x"}]`)
	}))
	defer srv.Close()

	c := New(srv.URL, WithChunkSize(2))
	rows, err := c.ImportChunked(context.Background(), RouteStationTimes, "sns", []string{"a", "b", "c", "d", "e"}, nil)
	assert.Nil(t, rows)
	var be *BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 1, be.Batch)
	assert.Equal(t, 3, be.Batches)
	var fe *FetchError
	assert.ErrorAs(t, err, &fe)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestImportChunkedCancellationStopsBetweenBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		cancel()
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewBufferString(`[{"sn":"a"},{"sn":"b"}]`)),
			Header:     http.Header{},
			Request:    r,
		}, nil
	})
	c := New("http://reports.test", WithHTTPClient(&http.Client{Transport: transport}), WithChunkSize(2))

	rows, err := c.ImportChunked(ctx, RouteStationTimes, "sns", []string{"a", "b", "c", "d"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, rows, 2)
	assert.Equal(t, 1, calls)

	rows, err = c.ImportChunked(ctx, RouteStationTimes, "sns", []string{"a"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rows)
	assert.Equal(t, 1, calls)
}

func TestWeeklyTPYJoinsModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2025-01", r.URL.Query().Get("startWeek"))
		io.WriteString(w, `{"weekly":[{"week_id":"2025-01","total_parts":100,"passed_parts":95,"failed_parts":5,"throughput_yield":0.95},{"week_id":"2025-02","total_parts":50}],
			"models":[{"week_id":"2025-01","model":"SXM4","tpy":0.9},{"week_id":"2025-01","model":"SXM5","tpy":0.99}]}`)
	}))
	defer srv.Close()

	weeks, err := New(srv.URL).WeeklyTPY(context.Background(), "2025-01", "2025-02")
	require.NoError(t, err)
	require.Len(t, weeks, 2)
	assert.Len(t, weeks[0].Models, 2)
	assert.Empty(t, weeks[1].Models)
	assert.Equal(t, 0.95, weeks[0].ThroughputYield)
}

func TestPortalRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-API-KEY"))
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"success":false,"error":"FORBIDDEN_KEYWORD","message":"DROP is not allowed"}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL, WithAPIKey("secret")).Portal(context.Background(), "DROP TABLE x")
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusForbidden, fe.Status)
	assert.Equal(t, "DROP is not allowed", fe.Message)
}

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		json.NewEncoder(w).Encode(map[string]any{
			"message": "File uploaded", "filename": hdr.Filename, "size": len(data),
		})
	}))
	defer srv.Close()

	res, err := New(srv.URL).Upload(context.Background(), "/tmp/serials.csv", strings.NewReader("sn\nA1\n"))
	require.NoError(t, err)
	assert.Equal(t, "serials.csv", res.Filename)
	assert.Equal(t, int64(6), res.Size)
}

func TestTransportErrorIsFetchError(t *testing.T) {
	transport := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	c := New("http://reports.test", WithHTTPClient(&http.Client{Transport: transport}))
	_, err := c.DailyTPY(context.Background(), day("2025-01-01"), day("2025-01-01"), "SXM4")
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Zero(t, fe.Status)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestTestboardRejectsUnknownCheck(t *testing.T) {
	_, err := New("http://reports.test").Testboard(context.Background(), Check("drop"), TestboardQuery{})
	assert.Error(t, err)
}

func TestReadSerialNumbers(t *testing.T) {
	got, err := ReadSerialNumbers(strings.NewReader("model,SN\nSXM4, A1 \nSXM4,A2\nSXM5,A1\n,\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, got)

	got, err = ReadSerialNumbers(strings.NewReader("B1\nB2\nB1\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"B1", "B2"}, got)

	got, err = ReadSerialNumbers(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}
