package store

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"yieldboard/database"
	"yieldboard/models"
)

// AuditStore keeps the SQL portal audit trail in ClickHouse.
type AuditStore struct {
	DB *database.ClickHouseClient
}

func NewAuditStore(chClient *database.ClickHouseClient) *AuditStore {
	return &AuditStore{DB: chClient}
}

// EnsureTable creates the audit table when it does not exist yet.
func (s *AuditStore) EnsureTable(ctx context.Context) error {
	err := s.DB.Conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS portal_audit (
			id          UUID,
			timestamp   DateTime64(3),
			user_email  String,
			client_ip   String,
			statement   String,
			success     Bool,
			error_code  String,
			row_count   UInt64,
			duration_ms Int64
		) ENGINE = MergeTree
		ORDER BY timestamp
	`)
	if err != nil {
		return fmt.Errorf("failed to create portal_audit table: %w", err)
	}
	return nil
}

// InsertPortalAudits appends entries in one batch.
func (s *AuditStore) InsertPortalAudits(ctx context.Context, entries []models.PortalAuditEntry) error {
	if len(entries) == 0 {
		return nil
	}

	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO portal_audit (
			id, timestamp, user_email, client_ip, statement, success, error_code, row_count, duration_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, e := range entries {
		err := batch.Append(
			e.ID,
			e.Timestamp,
			e.UserEmail,
			e.ClientIP,
			e.Statement,
			e.Success,
			e.ErrorCode,
			e.RowCount,
			e.DurationMs,
		)
		if err != nil {
			log.Warnf("Error appending audit entry %s to batch: %v", e.ID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	log.Debugf("Inserted %d portal audit entries", len(entries))
	return nil
}

// SlowestQueries lists the longest-running audited statements in [start, end].
func (s *AuditStore) SlowestQueries(ctx context.Context, start, end time.Time, limit uint64) ([]models.PortalAuditEntry, error) {
	if limit == 0 {
		limit = 10
	}

	query := `
		SELECT toString(id), timestamp, user_email, client_ip, statement, success, error_code, row_count, duration_ms
		FROM portal_audit
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY duration_ms DESC
		LIMIT ?
	`
	rows, err := s.DB.Conn.Query(ctx, query, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query slowest portal statements: %w", err)
	}
	defer rows.Close()

	results := []models.PortalAuditEntry{}
	for rows.Next() {
		var e models.PortalAuditEntry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.UserEmail, &e.ClientIP, &e.Statement,
			&e.Success, &e.ErrorCode, &e.RowCount, &e.DurationMs); err != nil {
			log.Warnf("Error scanning portal audit row: %v", err)
			continue
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portal audit rows: %w", err)
	}
	return results, nil
}
