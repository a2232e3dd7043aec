package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const settingsTable = `
CREATE TABLE IF NOT EXISTS settings (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	state TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
`

// SQLitePersister stores the state as one JSON document in a single-row
// table.
type SQLitePersister struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the settings database at path.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func NewSQLitePersister(ctx context.Context, db *sql.DB) (*SQLitePersister, error) {
	if _, err := db.ExecContext(ctx, settingsTable); err != nil {
		return nil, fmt.Errorf("create settings table: %w", err)
	}
	return &SQLitePersister{db: db}, nil
}

func (p *SQLitePersister) Load(ctx context.Context) (State, error) {
	var raw string
	err := p.db.QueryRowContext(ctx, `SELECT state FROM settings WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, ErrNoState
	}
	if err != nil {
		return State{}, fmt.Errorf("query settings: %w", err)
	}
	var s State
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return State{}, fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}

func (p *SQLitePersister) Save(ctx context.Context, s State) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO settings (id, state, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
