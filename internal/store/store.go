// Package store persists dashboards in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/KaramelBytes/insightloom/internal/dashboard"
)

// SchemaVersion is the schema this package reads and writes.
const SchemaVersion = 1

// ErrNotFound is returned when no dashboard matches a name or ID.
var ErrNotFound = errors.New("dashboard not found")

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS dashboards (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	source     TEXT NOT NULL DEFAULT '',
	rows       INTEGER NOT NULL DEFAULT 0,
	charts     INTEGER NOT NULL DEFAULT 0,
	payload    BLOB NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_dashboards_updated ON dashboards(updated_at);
`

// Store is a dashboard repository. Payloads are zstd-compressed JSON.
type Store struct {
	db   *sql.DB
	log  *zap.Logger
	path string
	enc  *zstd.Encoder
	dec  *zstd.Decoder
}

// Entry is the listing view of a stored dashboard.
type Entry struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Source      string    `json:"source"`
	Rows        int       `json:"rows"`
	Charts      int       `json:"charts"`
	PayloadSize int       `json:"payloadBytes"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Open opens or creates the database at path. log may be nil.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// pragmas are per connection
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, log: log, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	if s.enc, err = zstd.NewWriter(nil); err != nil {
		db.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	if s.dec, err = zstd.NewReader(nil); err != nil {
		s.enc.Close()
		db.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.Exec("INSERT INTO schema_version (version) VALUES (?)", SchemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		s.log.Info("created dashboard database", zap.String("path", s.path), zap.Int("schema", SchemaVersion))
		return nil
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version > SchemaVersion:
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, SchemaVersion)
	}
	s.log.Debug("opened dashboard database", zap.String("path", s.path), zap.Int("schema", version))
	return nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close releases the database and codecs.
func (s *Store) Close() error {
	s.dec.Close()
	encErr := s.enc.Close()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return encErr
}

// Save inserts d or replaces the stored dashboard with the same name.
func (s *Store) Save(ctx context.Context, d *dashboard.Dashboard) error {
	if d.Name == "" {
		return errors.New("dashboard name cannot be empty")
	}
	if d.ID == "" {
		return errors.New("dashboard id cannot be empty")
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal dashboard: %w", err)
	}
	payload := s.enc.EncodeAll(raw, nil)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dashboards (id, name, source, rows, charts, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			id = excluded.id,
			source = excluded.source,
			rows = excluded.rows,
			charts = excluded.charts,
			payload = excluded.payload,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`,
		d.ID, d.Name, d.Source, d.Rows, len(d.Charts), payload,
		formatTime(d.CreatedAt), formatTime(d.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save dashboard %q: %w", d.Name, err)
	}
	s.log.Debug("saved dashboard",
		zap.String("name", d.Name),
		zap.Int("json_bytes", len(raw)),
		zap.Int("stored_bytes", len(payload)))
	return nil
}

// Load returns the dashboard whose name or ID equals key.
func (s *Store) Load(ctx context.Context, key string) (*dashboard.Dashboard, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM dashboards WHERE name = ? OR id = ? LIMIT 1", key, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("load dashboard %q: %w", key, err)
	}
	raw, err := s.dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress dashboard %q: %w", key, err)
	}
	var d dashboard.Dashboard
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode dashboard %q: %w", key, err)
	}
	return &d, nil
}

// List returns stored dashboards, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, source, rows, charts, length(payload), created_at, updated_at
		FROM dashboards ORDER BY updated_at DESC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list dashboards: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var created, updated string
		if err := rows.Scan(&e.ID, &e.Name, &e.Source, &e.Rows, &e.Charts, &e.PayloadSize, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan dashboard row: %w", err)
		}
		e.CreatedAt = parseTime(created)
		e.UpdatedAt = parseTime(updated)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list dashboards: %w", err)
	}
	return out, nil
}

// Delete removes the dashboard whose name or ID equals key.
func (s *Store) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM dashboards WHERE name = ? OR id = ?", key, key)
	if err != nil {
		return fmt.Errorf("delete dashboard %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete dashboard %q: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	s.log.Debug("deleted dashboard", zap.String("key", key))
	return nil
}

// timeLayout is fixed width so updated_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
