package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"yieldboard/models"
)

// TPYStore computes throughput yield from the testboard history.
type TPYStore struct {
	db *sql.DB
}

func NewTPYStore(db *sql.DB) *TPYStore {
	return &TPYStore{db: db}
}

func ratio(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// DailyTPY returns per day, model and station pass counts. An empty model
// means every model.
func (s *TPYStore) DailyTPY(ctx context.Context, start, end time.Time, model string) ([]models.DailyTPYRow, error) {
	query := `
		SELECT to_char(history_station_start_time, 'YYYY-MM-DD') AS date_id,
		       model,
		       workstation_name,
		       COUNT(*) AS total_parts,
		       COUNT(*) FILTER (WHERE history_station_passing_status = 'Pass') AS passed_parts,
		       COUNT(*) FILTER (WHERE history_station_passing_status <> 'Pass') AS failed_parts
		FROM testboard_records
		WHERE history_station_start_time >= $1
		  AND history_station_start_time <= $2
		  AND ($3 = '' OR model = $3)
		GROUP BY 1, 2, 3
		ORDER BY 1, 2, 3
	`
	rows, err := s.db.QueryContext(ctx, query, start, end, model)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily tpy: %w", err)
	}
	defer rows.Close()

	results := []models.DailyTPYRow{}
	for rows.Next() {
		var r models.DailyTPYRow
		if err := rows.Scan(&r.DateID, &r.Model, &r.WorkstationName, &r.TotalParts, &r.PassedParts, &r.FailedParts); err != nil {
			log.Warnf("Error scanning daily tpy row: %v", err)
			continue
		}
		r.ThroughputYield = ratio(r.PassedParts, r.TotalParts)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during daily tpy query: %w", err)
	}
	return results, nil
}

// WeeklyTPY runs the weekly aggregate and the per-model TPY queries
// concurrently for ISO week ids in [startWeek, endWeek].
func (s *TPYStore) WeeklyTPY(ctx context.Context, startWeek, endWeek string) (models.WeeklyTPYResponse, error) {
	resp := models.WeeklyTPYResponse{Weekly: []models.WeeklyTPYRow{}, Models: []models.ModelTPYRow{}}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		weekly, err := s.weeklyAggregates(gctx, startWeek, endWeek)
		resp.Weekly = weekly
		return err
	})
	g.Go(func() error {
		perModel, err := s.weeklyModelTPY(gctx, startWeek, endWeek)
		resp.Models = perModel
		return err
	})
	if err := g.Wait(); err != nil {
		return models.WeeklyTPYResponse{}, err
	}
	return resp, nil
}

func (s *TPYStore) weeklyAggregates(ctx context.Context, startWeek, endWeek string) ([]models.WeeklyTPYRow, error) {
	query := `
		SELECT to_char(history_station_start_time, 'IYYY-IW') AS week_id,
		       to_char(MIN(date_trunc('week', history_station_start_time)), 'YYYY-MM-DD') AS week_start,
		       to_char(MIN(date_trunc('week', history_station_start_time)) + INTERVAL '6 days', 'YYYY-MM-DD') AS week_end,
		       COUNT(*) AS total_parts,
		       COUNT(*) FILTER (WHERE history_station_passing_status = 'Pass') AS passed_parts,
		       COUNT(*) FILTER (WHERE history_station_passing_status <> 'Pass') AS failed_parts
		FROM testboard_records
		WHERE to_char(history_station_start_time, 'IYYY-IW') BETWEEN $1 AND $2
		GROUP BY 1
		ORDER BY 1
	`
	rows, err := s.db.QueryContext(ctx, query, startWeek, endWeek)
	if err != nil {
		return nil, fmt.Errorf("failed to query weekly tpy: %w", err)
	}
	defer rows.Close()

	results := []models.WeeklyTPYRow{}
	for rows.Next() {
		var r models.WeeklyTPYRow
		if err := rows.Scan(&r.WeekID, &r.WeekStart, &r.WeekEnd, &r.TotalParts, &r.PassedParts, &r.FailedParts); err != nil {
			log.Warnf("Error scanning weekly tpy row: %v", err)
			continue
		}
		r.ThroughputYield = ratio(r.PassedParts, r.TotalParts)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during weekly tpy query: %w", err)
	}
	return results, nil
}

// weeklyModelTPY multiplies the station first-pass yields of each model.
func (s *TPYStore) weeklyModelTPY(ctx context.Context, startWeek, endWeek string) ([]models.ModelTPYRow, error) {
	query := `
		WITH station_yield AS (
			SELECT to_char(history_station_start_time, 'IYYY-IW') AS week_id,
			       model,
			       workstation_name,
			       COUNT(*) FILTER (WHERE history_station_passing_status = 'Pass')::float8 / COUNT(*) AS yield
			FROM testboard_records
			WHERE to_char(history_station_start_time, 'IYYY-IW') BETWEEN $1 AND $2
			GROUP BY 1, 2, 3
		)
		SELECT week_id,
		       model,
		       CASE WHEN MIN(yield) = 0 THEN 0 ELSE EXP(SUM(LN(yield))) END AS tpy
		FROM station_yield
		GROUP BY 1, 2
		ORDER BY 1, 2
	`
	rows, err := s.db.QueryContext(ctx, query, startWeek, endWeek)
	if err != nil {
		return nil, fmt.Errorf("failed to query weekly model tpy: %w", err)
	}
	defer rows.Close()

	results := []models.ModelTPYRow{}
	for rows.Next() {
		var r models.ModelTPYRow
		if err := rows.Scan(&r.WeekID, &r.Model, &r.TPY); err != nil {
			log.Warnf("Error scanning weekly model tpy row: %v", err)
			continue
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during weekly model tpy query: %w", err)
	}
	return results, nil
}

// TestYields reports FLA and FCT first-pass yields per model over the given
// days, counting distinct serial numbers.
func (s *TPYStore) TestYields(ctx context.Context, days []string) ([]models.TestYieldRow, error) {
	query := `
		SELECT model,
		       COUNT(DISTINCT sn) FILTER (WHERE workstation_name = 'ASSY2') AS assy2_total,
		       COUNT(DISTINCT sn) FILTER (WHERE workstation_name = 'FLA') AS fla_total,
		       COUNT(DISTINCT sn) FILTER (WHERE workstation_name = 'FCT') AS fct_total,
		       COUNT(DISTINCT sn) FILTER (WHERE workstation_name = 'FLA' AND history_station_passing_status = 'Pass') AS fla_passed,
		       COUNT(DISTINCT sn) FILTER (WHERE workstation_name = 'FCT' AND history_station_passing_status = 'Pass') AS fct_passed
		FROM testboard_records
		WHERE to_char(history_station_start_time, 'YYYY-MM-DD') = ANY($1)
		GROUP BY model
		ORDER BY model
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(days))
	if err != nil {
		return nil, fmt.Errorf("failed to query test yields: %w", err)
	}
	defer rows.Close()

	results := []models.TestYieldRow{}
	for rows.Next() {
		var r models.TestYieldRow
		var flaPassed, fctPassed int64
		if err := rows.Scan(&r.Model, &r.Assy2Total, &r.FLATotal, &r.FCTTotal, &flaPassed, &fctPassed); err != nil {
			log.Warnf("Error scanning test yield row: %v", err)
			continue
		}
		r.TestYieldFLA = ratio(flaPassed, r.FLATotal)
		r.TestYieldFCT = ratio(fctPassed, r.FCTTotal)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during test yields query: %w", err)
	}
	return results, nil
}
