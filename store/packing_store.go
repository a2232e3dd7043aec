package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"yieldboard/models"
)

type PackingStore struct {
	db *sql.DB
}

func NewPackingStore(db *sql.DB) *PackingStore {
	return &PackingStore{db: db}
}

// Records returns packed quantities per model, part number and day.
func (s *PackingStore) Records(ctx context.Context, start, end time.Time) ([]models.PackingRow, error) {
	query := `
		SELECT COALESCE(model, ''),
		       COALESCE(part_number, ''),
		       to_char(pack_date, 'YYYY-MM-DD') AS date,
		       COALESCE(SUM(quantity), 0) AS count
		FROM packing_records
		WHERE pack_date >= $1
		  AND pack_date <= $2
		GROUP BY 1, 2, 3
		ORDER BY 3, 1, 2
	`
	rows, err := s.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query packing records: %w", err)
	}
	defer rows.Close()

	results := []models.PackingRow{}
	for rows.Next() {
		var r models.PackingRow
		if err := rows.Scan(&r.Model, &r.Part, &r.Date, &r.Count); err != nil {
			log.Warnf("Error scanning packing row: %v", err)
			continue
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during packing records query: %w", err)
	}
	return results, nil
}
