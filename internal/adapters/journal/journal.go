// Package journal persists emitted arena events in SQLite so observers can
// replay what happened after the fact.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/okian/arena/internal/adapters/journal/migrations"
	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/internal/domain/types"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

var (
	ErrPathRequired = errors.New("journal path is required")
	ErrClosed       = errors.New("journal is closed")
	ErrDisabled     = errors.New("event journal is disabled")
)

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Kind        model.Kind
	ChallengeID uint64
	Account     types.Account
	// Limit caps the result; values outside 1..1000 use 100.
	Limit int
}

// Store is the SQLite-backed event journal.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the journal at path and applies the embedded schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrPathRequired
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applySchema(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

func applySchema(db *sql.DB) error {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	for _, f := range files {
		content, err := fs.ReadFile(migrations.FS, f)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("exec migration %s: %w", f, err)
		}
	}
	return nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	err := s.sqlDB.Close()
	s.sqlDB = nil
	return err
}

// Append stores e. Appending an event id twice keeps the first copy.
func (s *Store) Append(ctx context.Context, e model.Event) error { //nolint:gocritic // hugeParam
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return ErrClosed
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", e.ID, err)
	}
	account := e.Account
	if account.IsZero() {
		account = e.Winner
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT OR IGNORE INTO events (id, kind, at, account, challenge_id, payload)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Kind), e.At.UTC().UnixMilli(), string(account), int64(e.ChallengeID), string(payload),
	)
	if err != nil {
		return fmt.Errorf("append event %s: %w", e.ID, err)
	}
	return nil
}

// Handle implements the worker handler contract.
func (s *Store) Handle(ctx context.Context, e model.Event) error { //nolint:gocritic // hugeParam
	return s.Append(ctx, e)
}

// List returns matching events oldest first.
func (s *Store) List(ctx context.Context, f Filter) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, ErrClosed
	}

	var (
		where []string
		args  []any
	)
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.ChallengeID != 0 {
		where = append(where, "challenge_id = ?")
		args = append(args, int64(f.ChallengeID))
	}
	if !f.Account.IsZero() {
		where = append(where, "account = ?")
		args = append(args, string(f.Account))
	}
	limit := f.Limit
	if limit < 1 || limit > maxLimit {
		limit = defaultLimit
	}

	query := "SELECT payload FROM events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC LIMIT ?"
	args = append(args, limit)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := make([]model.Event, 0, limit)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var e model.Event
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// Count returns the number of stored events.
func (s *Store) Count(ctx context.Context) (int64, error) {
	if s == nil || s.sqlDB == nil {
		return 0, ErrClosed
	}
	var n int64
	if err := s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Since returns the time of the newest event, or zero when empty.
func (s *Store) Since(ctx context.Context) (time.Time, error) {
	if s == nil || s.sqlDB == nil {
		return time.Time{}, ErrClosed
	}
	var ms sql.NullInt64
	if err := s.sqlDB.QueryRowContext(ctx, "SELECT MAX(at) FROM events").Scan(&ms); err != nil {
		return time.Time{}, fmt.Errorf("latest event: %w", err)
	}
	if !ms.Valid {
		return time.Time{}, nil
	}
	return time.UnixMilli(ms.Int64).UTC(), nil
}
