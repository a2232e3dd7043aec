package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"

	"yieldboard/models"
)

// TestboardStore serves the station-history checks.
type TestboardStore struct {
	db *sql.DB
}

func NewTestboardStore(db *sql.DB) *TestboardStore {
	return &TestboardStore{db: db}
}

const testboardColumns = `
	sn, COALESCE(pn, ''), COALESCE(model, ''), COALESCE(workstation_name, ''), COALESCE(fixture_no, ''),
	history_station_start_time, history_station_end_time,
	COALESCE(history_station_passing_status, ''), COALESCE(failure_reasons, '')`

// Date bounds are optional; nil arguments reach SQL as NULL.
const snRangeFilter = `
	sn = ANY($1)
	AND ($2::timestamptz IS NULL OR history_station_start_time >= $2)
	AND ($3::timestamptz IS NULL OR history_station_start_time <= $3)`

// SNCheck returns every station record of the serial numbers.
func (s *TestboardStore) SNCheck(ctx context.Context, sns []string, start, end *time.Time) ([]models.TestboardRow, error) {
	query := `SELECT ` + testboardColumns + `
		FROM testboard_records
		WHERE ` + snRangeFilter + `
		ORDER BY sn, history_station_start_time`
	return s.query(ctx, "sn check", query, pq.Array(sns), start, end)
}

// PassCheck returns the passing station records.
func (s *TestboardStore) PassCheck(ctx context.Context, sns []string, start, end *time.Time) ([]models.TestboardRow, error) {
	query := `SELECT ` + testboardColumns + `
		FROM testboard_records
		WHERE ` + snRangeFilter + `
		  AND history_station_passing_status = 'Pass'
		ORDER BY sn, history_station_start_time`
	return s.query(ctx, "pass check", query, pq.Array(sns), start, end)
}

// FailCheck returns the failing station records.
func (s *TestboardStore) FailCheck(ctx context.Context, sns []string, start, end *time.Time) ([]models.TestboardRow, error) {
	query := `SELECT ` + testboardColumns + `
		FROM testboard_records
		WHERE ` + snRangeFilter + `
		  AND history_station_passing_status <> 'Pass'
		ORDER BY sn, history_station_start_time`
	return s.query(ctx, "fail check", query, pq.Array(sns), start, end)
}

// MostRecentFail returns the latest failing record of each serial number.
func (s *TestboardStore) MostRecentFail(ctx context.Context, sns []string, start, end *time.Time) ([]models.TestboardRow, error) {
	query := `SELECT DISTINCT ON (sn) ` + testboardColumns + `
		FROM testboard_records
		WHERE ` + snRangeFilter + `
		  AND history_station_passing_status <> 'Pass'
		ORDER BY sn, history_station_start_time DESC`
	return s.query(ctx, "most recent fail", query, pq.Array(sns), start, end)
}

// ByError returns failing records whose failure reasons mention any of the
// codes, case-insensitively.
func (s *TestboardStore) ByError(ctx context.Context, codes []string, start, end time.Time) ([]models.TestboardRow, error) {
	patterns := make([]string, 0, len(codes))
	for _, c := range codes {
		escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(c)
		patterns = append(patterns, "%"+escaped+"%")
	}
	query := `SELECT ` + testboardColumns + `
		FROM testboard_records
		WHERE failure_reasons ILIKE ANY($1)
		  AND history_station_start_time >= $2
		  AND history_station_start_time <= $3
		ORDER BY history_station_start_time`
	return s.query(ctx, "by error", query, pq.Array(patterns), start, end)
}

func (s *TestboardStore) query(ctx context.Context, name, query string, args ...any) ([]models.TestboardRow, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", name, err)
	}
	defer rows.Close()

	results := []models.TestboardRow{}
	for rows.Next() {
		var (
			r          models.TestboardRow
			start, end sql.NullTime
		)
		if err := rows.Scan(&r.SN, &r.PN, &r.Model, &r.WorkstationName, &r.FixtureNo,
			&start, &end, &r.HistoryStationPassingStatus, &r.FailureReasons); err != nil {
			log.Warnf("Error scanning %s row: %v", name, err)
			continue
		}
		if start.Valid {
			r.HistoryStationStartTime = &start.Time
		}
		if end.Valid {
			r.HistoryStationEndTime = &end.Time
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during %s query: %w", name, err)
	}
	return results, nil
}

// XBarR returns station dwell times for control charting, oldest first.
func (s *TestboardStore) XBarR(ctx context.Context, start, end time.Time, model, workstation string) ([]models.XBarRRow, error) {
	query := `
		SELECT sn,
		       COALESCE(model, ''),
		       COALESCE(workstation_name, ''),
		       history_station_start_time,
		       EXTRACT(EPOCH FROM (history_station_end_time - history_station_start_time)) AS duration_seconds
		FROM testboard_records
		WHERE history_station_start_time >= $1
		  AND history_station_start_time <= $2
		  AND history_station_end_time IS NOT NULL
		  AND ($3 = '' OR model = $3)
		  AND ($4 = '' OR workstation_name = $4)
		ORDER BY history_station_start_time
	`
	rows, err := s.db.QueryContext(ctx, query, start, end, model, workstation)
	if err != nil {
		return nil, fmt.Errorf("failed to query x-bar-r: %w", err)
	}
	defer rows.Close()

	results := []models.XBarRRow{}
	for rows.Next() {
		var r models.XBarRRow
		if err := rows.Scan(&r.SN, &r.Model, &r.WorkstationName, &r.HistoryStationStartTime, &r.DurationSeconds); err != nil {
			log.Warnf("Error scanning x-bar-r row: %v", err)
			continue
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during x-bar-r query: %w", err)
	}
	return results, nil
}
