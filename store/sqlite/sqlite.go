/*
Package sqlite provides a SQLite-backed implementation of generic.RosterStore.

PURPOSE:
  Persists the uploaded roster documents and each crew member's settings.
  Nothing derived (segments, allowances, summaries) is ever written; the
  engine recomputes those from the stored documents on every request.

KEY TABLES:
  rosters:       One row per (crew member, year, month, kind), document as JSON
  crew_settings: One settings document per crew member

MIGRATIONS:
  Schema is versioned under migrations/ and applied with goose on New().
  Re-opening an existing database only applies pending migrations.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. ":memory:" databases are pinned to a
  single connection since each connection would otherwise see its own
  empty database.

WAL MODE:
  File databases are opened with WAL so readers don't block the writer.

USAGE:
  store, err := sqlite.New(ctx, "./data/crewtax.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - generic/store.go: Interface definition
  - generic/store/memory.go: In-memory implementation for testing
  - migrations/: goose SQL files
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/warp/crewtax/generic"
	"github.com/warp/crewtax/store/sqlite/migrations"
)

// Store implements generic.RosterStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Compile-time check
var _ generic.RosterStore = (*Store)(nil)

// New opens the database at dbPath and applies pending migrations.
// Use ":memory:" for an in-memory database.
func New(ctx context.Context, dbPath string) (*Store, error) {
	dsn := dbPath + "?_foreign_keys=on&_journal_mode=WAL"
	if dbPath == ":memory:" {
		dsn = dbPath + "?_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func migrate(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// =============================================================================
// ROSTERS
// =============================================================================

func (s *Store) SaveRoster(ctx context.Context, rec generic.RosterRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	uploaded := rec.UploadedAt
	if uploaded.IsZero() {
		uploaded = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rosters (id, crew_id, kind, year, month, source, document, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.CrewID,
		rec.Kind,
		rec.Year,
		int(rec.Month),
		rec.Source,
		rec.Document,
		uploaded.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateRoster
		}
		return fmt.Errorf("failed to save roster: %w", err)
	}
	return nil
}

// ReplaceRoster deletes the document of the same kind and month and inserts
// rec in one transaction.
func (s *Store) ReplaceRoster(ctx context.Context, rec generic.RosterRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	uploaded := rec.UploadedAt
	if uploaded.IsZero() {
		uploaded = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM rosters
		WHERE crew_id = ? AND kind = ? AND year = ? AND month = ?`,
		rec.CrewID, rec.Kind, rec.Year, int(rec.Month),
	); err != nil {
		return fmt.Errorf("failed to remove previous roster: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO rosters (id, crew_id, kind, year, month, source, document, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.CrewID,
		rec.Kind,
		rec.Year,
		int(rec.Month),
		rec.Source,
		rec.Document,
		uploaded.UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("failed to save roster: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit roster: %w", err)
	}
	return nil
}

func (s *Store) ListRosters(ctx context.Context, crewID generic.CrewID) ([]generic.RosterRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, crew_id, kind, year, month, source, document, uploaded_at
		FROM rosters
		WHERE crew_id = ?
		ORDER BY year, month, kind`, crewID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rosters: %w", err)
	}
	defer rows.Close()

	out := []generic.RosterRecord{}
	for rows.Next() {
		rec, err := scanRoster(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) GetRoster(ctx context.Context, crewID generic.CrewID, id generic.RosterID) (generic.RosterRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, crew_id, kind, year, month, source, document, uploaded_at
		FROM rosters
		WHERE crew_id = ? AND id = ?`, crewID, id)
	rec, err := scanRoster(row)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.RosterRecord{}, generic.ErrRosterNotFound
	}
	return rec, err
}

func (s *Store) DeleteRoster(ctx context.Context, crewID generic.CrewID, id generic.RosterID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM rosters WHERE crew_id = ? AND id = ?`, crewID, id)
	if err != nil {
		return fmt.Errorf("failed to delete roster: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete roster: %w", err)
	}
	if n == 0 {
		return generic.ErrRosterNotFound
	}
	return nil
}

// =============================================================================
// SETTINGS
// =============================================================================

func (s *Store) SaveSettings(ctx context.Context, crewID generic.CrewID, settingsJSON string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crew_settings (crew_id, settings, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (crew_id) DO UPDATE SET
			settings = excluded.settings,
			updated_at = excluded.updated_at`,
		crewID, settingsJSON, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func (s *Store) LoadSettings(ctx context.Context, crewID generic.CrewID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var settings string
	err := s.db.QueryRowContext(ctx, `SELECT settings FROM crew_settings WHERE crew_id = ?`, crewID).Scan(&settings)
	if errors.Is(err, sql.ErrNoRows) {
		return "", generic.ErrCrewNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load settings: %w", err)
	}
	return settings, nil
}

// =============================================================================
// HELPERS
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanRoster(row scanner) (generic.RosterRecord, error) {
	var (
		rec      generic.RosterRecord
		month    int
		uploaded string
	)
	if err := row.Scan(&rec.ID, &rec.CrewID, &rec.Kind, &rec.Year, &month, &rec.Source, &rec.Document, &uploaded); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("failed to scan roster: %w", err)
	}
	rec.Month = time.Month(month)
	t, err := time.Parse(time.RFC3339, uploaded)
	if err != nil {
		return rec, fmt.Errorf("failed to parse uploaded_at %q: %w", uploaded, err)
	}
	rec.UploadedAt = t
	return rec, nil
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}
