package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PortalResult is the outcome of one ad-hoc SELECT.
type PortalResult struct {
	Rows      []map[string]any
	Fields    []string
	Truncated bool
	Elapsed   time.Duration
}

// PortalStore runs validated statements from the SQL portal.
type PortalStore struct {
	db      *sql.DB
	limit   int
	timeout time.Duration
}

// NewPortalStore caps every execution at limit rows and timeout. Non-positive
// values disable the respective cap.
func NewPortalStore(db *sql.DB, limit int, timeout time.Duration) *PortalStore {
	return &PortalStore{db: db, limit: limit, timeout: timeout}
}

// Execute runs stmt inside a read-only transaction that is always rolled
// back. stmt must already have passed utils.ValidateSelect.
func (s *PortalStore) Execute(ctx context.Context, stmt string) (*PortalResult, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	began := time.Now()
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin read-only transaction: %w", err)
	}
	defer tx.Rollback()

	// Preparing goes through the extended protocol, which refuses more than
	// one statement.
	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare portal query: %w", err)
	}
	defer prepared.Close()

	rows, err := prepared.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to execute portal query: %w", err)
	}
	defer rows.Close()

	fields, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read portal columns: %w", err)
	}

	res := &PortalResult{Rows: []map[string]any{}, Fields: fields}
	for rows.Next() {
		if s.limit > 0 && len(res.Rows) >= s.limit {
			res.Truncated = true
			break
		}
		values := make([]any, len(fields))
		ptrs := make([]any, len(fields))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan portal row: %w", err)
		}
		row := make(map[string]any, len(fields))
		for i, name := range fields {
			row[name] = jsonValue(values[i])
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during portal query: %w", err)
	}
	res.Elapsed = time.Since(began)
	return res, nil
}

// jsonValue turns driver byte slices (text, numeric) into strings.
func jsonValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
