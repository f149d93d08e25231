package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/systemstart/many-dataflow/pkg/api"
)

const schema = `CREATE TABLE IF NOT EXISTS pipelines (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	definition TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLite is a Repository backed by a SQLite file.
type SQLite struct {
	conn *sql.DB
	now  func() time.Time
}

// OpenSQLite opens (or creates) the database at dbPath and creates the
// pipelines table if needed.
func OpenSQLite(ctx context.Context, dbPath string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// one writer at a time
	conn.SetMaxOpenConns(1)

	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLite{conn: conn, now: time.Now}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

func (s *SQLite) Save(ctx context.Context, p *api.Pipeline) (string, error) {
	id, definition, err := encode(p)
	if err != nil {
		return "", err
	}

	now := s.now().UTC().Format(time.RFC3339Nano)
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO pipelines (id, name, definition, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			definition = excluded.definition,
			updated_at = excluded.updated_at`,
		id, p.Name, string(definition), now, now)
	if err != nil {
		return "", fmt.Errorf("saving %q: %w", id, err)
	}
	return id, nil
}

func (s *SQLite) Load(ctx context.Context, id string) (*api.Pipeline, error) {
	var definition string
	err := s.conn.QueryRowContext(ctx,
		`SELECT definition FROM pipelines WHERE id = ?`, id).Scan(&definition)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("loading %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", id, err)
	}
	return decode(id, []byte(definition))
}

func (s *SQLite) List(ctx context.Context) ([]*api.Pipeline, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, definition FROM pipelines ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("listing pipelines: %w", err)
	}
	defer rows.Close()

	var out []*api.Pipeline
	for rows.Next() {
		var id, definition string
		if err := rows.Scan(&id, &definition); err != nil {
			return nil, fmt.Errorf("listing pipelines: %w", err)
		}
		p, err := decode(id, []byte(definition))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM pipelines WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting %q: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("deleting %q: %w", id, ErrNotFound)
	}
	return nil
}

