// Package mirror is the client's local SQLite copy of the user's owned
// products. Entries carry their sync state so the client can work offline.
package mirror

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
)

//go:embed migrations/*.sql
var embedded embed.FS

// timeLayout is fixed-width so text order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const columns = `local_id, remote_id, status, deleted, capture, patch, resolved,
	attempts, last_error, created_at, updated_at`

// Store persists mirror entries.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New wraps an open database handle. The schema is not touched; call Migrate.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Open opens (creating if needed) the SQLite mirror at path and migrates it.
// Use ":memory:" for a throwaway mirror.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open mirror: %w", err)
	}
	// One connection: SQLite serializes writers, and ":memory:" is per connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mirror: %w", err)
	}

	s := New(db)
	if err := s.Migrate(ctx, logger); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies pending mirror schema migrations.
func (s *Store) Migrate(ctx context.Context, logger *slog.Logger) error {
	fsys, err := fs.Sub(embedded, "migrations")
	if err != nil {
		return fmt.Errorf("mirror migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	for _, r := range results {
		logger.DebugContext(ctx, "mirror migration applied",
			slog.Int64("version", r.Source.Version),
			slog.Duration("duration", r.Duration),
		)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert adds a new entry. CreatedAt and UpdatedAt are set when zero.
func (s *Store) Insert(ctx context.Context, e *Entry) error {
	now := s.now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = now
	}

	args, err := entryArgs(e)
	if err != nil {
		return err
	}
	query := `INSERT INTO mirror_entries (` + columns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert mirror entry: %w", err)
	}
	return nil
}

// Get returns the entry with the given local id.
func (s *Store) Get(ctx context.Context, localID uuid.UUID) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+columns+` FROM mirror_entries WHERE local_id = ?`, localID.String())
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("mirror entry %s: %w", localID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get mirror entry: %w", err)
	}
	return e, nil
}

// Save writes every mutable column of e and bumps UpdatedAt.
func (s *Store) Save(ctx context.Context, e *Entry) error {
	e.UpdatedAt = s.now().UTC()

	args, err := entryArgs(e)
	if err != nil {
		return err
	}
	// entryArgs starts with local_id; move it to the WHERE clause.
	args = append(args[1:], args[0])

	query := `UPDATE mirror_entries SET remote_id = ?, status = ?, deleted = ?, capture = ?,
		patch = ?, resolved = ?, attempts = ?, last_error = ?, created_at = ?, updated_at = ?
		WHERE local_id = ?`
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("save mirror entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save mirror entry: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mirror entry %s: %w", e.LocalID, domain.ErrNotFound)
	}
	return nil
}

// Delete removes an entry for good.
func (s *Store) Delete(ctx context.Context, localID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM mirror_entries WHERE local_id = ?`, localID.String())
	if err != nil {
		return fmt.Errorf("delete mirror entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete mirror entry: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mirror entry %s: %w", localID, domain.ErrNotFound)
	}
	return nil
}

// List returns entries in creation order. With statuses given, only entries
// in one of them are returned.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]Entry, error) {
	query := `SELECT ` + columns + ` FROM mirror_entries`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		marks := make([]string, len(statuses))
		for i, st := range statuses {
			marks[i] = "?"
			args = append(args, string(st))
		}
		query += ` WHERE status IN (` + strings.Join(marks, ", ") + `)`
	}
	query += ` ORDER BY created_at, local_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list mirror entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mirror entry: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list mirror entries: %w", err)
	}
	return out, nil
}

// ResetInFlight returns entries left in StatusSyncing by an interrupted run
// to the state they were pushed from. It returns how many were reset.
func (s *Store) ResetInFlight(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE mirror_entries
		SET status = CASE WHEN deleted = 1 THEN ? ELSE ? END, updated_at = ?
		WHERE status = ?`,
		string(StatusPendingDelete), string(StatusPending),
		formatTime(s.now().UTC()), string(StatusSyncing))
	if err != nil {
		return 0, fmt.Errorf("reset in-flight entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset in-flight entries: rows affected: %w", err)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Row mapping
// ---------------------------------------------------------------------------

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var (
		e                   Entry
		localID, status     string
		remoteID, lastError sql.NullString
		capture             string
		patch, resolved     sql.NullString
		createdAt, updated  string
	)
	if err := row.Scan(&localID, &remoteID, &status, &e.Deleted, &capture, &patch, &resolved,
		&e.Attempts, &lastError, &createdAt, &updated); err != nil {
		return nil, err
	}

	var err error
	if e.LocalID, err = uuid.Parse(localID); err != nil {
		return nil, fmt.Errorf("local_id: %w", err)
	}
	if remoteID.Valid {
		id, err := uuid.Parse(remoteID.String)
		if err != nil {
			return nil, fmt.Errorf("remote_id: %w", err)
		}
		e.RemoteID = &id
	}
	e.Status = Status(status)
	if !e.Status.Valid() {
		return nil, fmt.Errorf("unknown status %q", status)
	}
	if err := json.Unmarshal([]byte(capture), &e.Capture); err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	if patch.Valid {
		e.Patch = &Patch{}
		if err := json.Unmarshal([]byte(patch.String), e.Patch); err != nil {
			return nil, fmt.Errorf("patch: %w", err)
		}
	}
	if resolved.Valid {
		e.Resolved = &Resolved{}
		if err := json.Unmarshal([]byte(resolved.String), e.Resolved); err != nil {
			return nil, fmt.Errorf("resolved: %w", err)
		}
	}
	if lastError.Valid {
		e.LastError = &lastError.String
	}
	if e.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	if e.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return nil, fmt.Errorf("updated_at: %w", err)
	}
	return &e, nil
}

// entryArgs renders e in column order.
func entryArgs(e *Entry) ([]any, error) {
	capture, err := json.Marshal(e.Capture)
	if err != nil {
		return nil, fmt.Errorf("encode capture: %w", err)
	}

	var remoteID, patch, resolved, lastError sql.NullString
	if e.RemoteID != nil {
		remoteID = sql.NullString{String: e.RemoteID.String(), Valid: true}
	}
	if !e.Patch.IsEmpty() {
		b, err := json.Marshal(e.Patch)
		if err != nil {
			return nil, fmt.Errorf("encode patch: %w", err)
		}
		patch = sql.NullString{String: string(b), Valid: true}
	}
	if e.Resolved != nil {
		b, err := json.Marshal(e.Resolved)
		if err != nil {
			return nil, fmt.Errorf("encode resolved: %w", err)
		}
		resolved = sql.NullString{String: string(b), Valid: true}
	}
	if e.LastError != nil {
		lastError = sql.NullString{String: *e.LastError, Valid: true}
	}

	return []any{
		e.LocalID.String(), remoteID, string(e.Status), e.Deleted, string(capture),
		patch, resolved, e.Attempts, lastError,
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
	}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
