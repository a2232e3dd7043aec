package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"

	"yieldboard/models"
)

// WorkstationStore answers route questions for explicit serial-number lists.
type WorkstationStore struct {
	db *sql.DB
}

func NewWorkstationStore(db *sql.DB) *WorkstationStore {
	return &WorkstationStore{db: db}
}

// StationTimes sums the time each serial number spent at each station, in
// seconds.
func (s *WorkstationStore) StationTimes(ctx context.Context, sns []string) ([]models.StationTimeRow, error) {
	query := `
		SELECT sn,
		       workstation_name,
		       COALESCE(SUM(EXTRACT(EPOCH FROM (history_station_end_time - history_station_start_time))), 0) AS total_time
		FROM testboard_records
		WHERE sn = ANY($1)
		GROUP BY sn, workstation_name
		ORDER BY sn, workstation_name
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(sns))
	if err != nil {
		return nil, fmt.Errorf("failed to query station times: %w", err)
	}
	defer rows.Close()

	results := []models.StationTimeRow{}
	for rows.Next() {
		var r models.StationTimeRow
		if err := rows.Scan(&r.SN, &r.WorkstationName, &r.TotalTime); err != nil {
			log.Warnf("Error scanning station time row: %v", err)
			continue
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during station times query: %w", err)
	}
	return results, nil
}

// FilteredYields reports per-model yields restricted to sns and, when days
// is non-empty, to those days.
func (s *WorkstationStore) FilteredYields(ctx context.Context, days, sns []string) ([]models.FilteredYieldRow, error) {
	query := `
		SELECT model,
		       COUNT(DISTINCT sn) AS total,
		       COUNT(DISTINCT sn) FILTER (WHERE history_station_passing_status = 'Pass') AS passed
		FROM testboard_records
		WHERE sn = ANY($1)
		  AND (cardinality($2::text[]) = 0 OR to_char(history_station_start_time, 'YYYY-MM-DD') = ANY($2))
		GROUP BY model
		ORDER BY model
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(sns), pq.Array(days))
	if err != nil {
		return nil, fmt.Errorf("failed to query filtered yields: %w", err)
	}
	defer rows.Close()

	results := []models.FilteredYieldRow{}
	for rows.Next() {
		var r models.FilteredYieldRow
		if err := rows.Scan(&r.Model, &r.Total, &r.Passed); err != nil {
			log.Warnf("Error scanning filtered yield row: %v", err)
			continue
		}
		r.Failed = r.Total - r.Passed
		r.Yield = ratio(r.Passed, r.Total)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during filtered yields query: %w", err)
	}
	return results, nil
}
