// Package history records which magnet was selected for which video code,
// so batch runs can skip codes that were already handled. It is backed by a
// SQLite file with embedded goose migrations.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/litescript/ls-magnet/internal/ranking"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Entry is one recorded selection
type Entry struct {
	Code       string
	Locator    string
	Label      string
	SizeGiB    float64
	Source     string
	SelectedAt time.Time
}

// FromCandidate builds the entry recorded when c is selected for code
func FromCandidate(code string, c ranking.Candidate) Entry {
	return Entry{
		Code:    code,
		Locator: c.Locator,
		Label:   c.Label,
		SizeGiB: c.SizeGiB,
		Source:  c.Source,
	}
}

// Store wraps the history database
type Store struct {
	conn *sql.DB
	path string
	now  func() time.Time
}

// Open creates or opens the history database at path and applies pending
// migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("history path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	// SQLite only supports one writer
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping history: %w", err)
	}

	s := &Store{conn: conn, path: path, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// migrate runs the embedded migrations through a goose provider. The
// provider does not log, which keeps stdout free for results.
func (s *Store) migrate(ctx context.Context) error {
	migrations, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, s.conn, migrations)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Path returns the database file
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Record stores e. Recording the same code and locator again refreshes the
// timestamp and metadata instead of adding a row.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.Code == "" || e.Locator == "" {
		return errors.New("history entry needs a code and locator")
	}
	at := e.SelectedAt
	if at.IsZero() {
		at = s.now()
	}

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO selections (code, locator, label, size_gib, source, selected_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (code, locator) DO UPDATE SET
			label = excluded.label,
			size_gib = excluded.size_gib,
			source = excluded.source,
			selected_at = excluded.selected_at`,
		normalizeCode(e.Code), e.Locator, e.Label, e.SizeGiB, e.Source, at.UnixMilli())
	if err != nil {
		return fmt.Errorf("record %s: %w", e.Code, err)
	}
	return nil
}

// Seen reports whether any selection was recorded for code
func (s *Store) Seen(ctx context.Context, code string) (bool, error) {
	var n int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM selections WHERE code = ?`, normalizeCode(code)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup %s: %w", code, err)
	}
	return n > 0, nil
}

// Recent returns up to limit selections, newest first. A non-positive limit
// returns everything.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT code, locator, label, size_gib, source, selected_at
		FROM selections ORDER BY selected_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e  Entry
			ms int64
		)
		if err := rows.Scan(&e.Code, &e.Locator, &e.Label, &e.SizeGiB, &e.Source, &ms); err != nil {
			return nil, err
		}
		e.SelectedAt = time.UnixMilli(ms)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Forget deletes every selection recorded for code and returns how many
// rows were removed
func (s *Store) Forget(ctx context.Context, code string) (int64, error) {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM selections WHERE code = ?`, normalizeCode(code))
	if err != nil {
		return 0, fmt.Errorf("forget %s: %w", code, err)
	}
	return res.RowsAffected()
}

// codes are compared case-insensitively: listings print "SSIS-177" while
// users type "ssis-177"
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
