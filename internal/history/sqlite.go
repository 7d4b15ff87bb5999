package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/clipkeep/clipkeep/internal/content"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	kind        TEXT    NOT NULL,
	data        BLOB,
	file_name   TEXT    NOT NULL DEFAULT '',
	fingerprint TEXT    NOT NULL,
	created_at  INTEGER NOT NULL,
	pinned      INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_entries_created ON entries(created_at);
CREATE INDEX IF NOT EXISTS idx_entries_pinned  ON entries(pinned, created_at);
`

// SQLiteStore persists history in a local SQLite database so pinned and
// recent entries survive daemon restarts.
type SQLiteStore struct {
	db  *sql.DB
	max int
	now func() time.Time
}

// OpenSQLite opens (creating if necessary) the database at path and applies
// the schema. maxUnpinned <= 0 selects DefaultMaxUnpinned.
func OpenSQLite(path string, maxUnpinned int) (*SQLiteStore, error) {
	if maxUnpinned <= 0 {
		maxUnpinned = DefaultMaxUnpinned
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serialises
	// the append+evict transaction; history traffic is human-paced.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("history db pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history db schema: %w", err)
	}
	return &SQLiteStore{db: db, max: maxUnpinned, now: time.Now}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, item content.Item) (Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("append: %w", err)
	}
	defer tx.Rollback()

	var unpinned int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM entries WHERE pinned = 0`).Scan(&unpinned); err != nil {
		return Entry{}, fmt.Errorf("append: %w", err)
	}
	if unpinned >= s.max {
		// Evict enough of the oldest unpinned entries that the insert below
		// lands exactly at the cap. More than one only after unpinning
		// overshot it.
		_, err := tx.ExecContext(ctx, `
			DELETE FROM entries WHERE id IN (
				SELECT id FROM entries WHERE pinned = 0
				ORDER BY created_at ASC, id ASC LIMIT ?
			)`, unpinned-s.max+1)
		if err != nil {
			return Entry{}, fmt.Errorf("evict: %w", err)
		}
	}

	createdAt := s.now()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO entries (kind, data, file_name, fingerprint, created_at, pinned)
		VALUES (?, ?, ?, ?, ?, 0)`,
		string(item.Kind), item.Data, item.FileName, item.Fingerprint,
		createdAt.UnixMilli())
	if err != nil {
		return Entry{}, fmt.Errorf("append: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Entry{}, fmt.Errorf("append: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("append: %w", err)
	}
	return Entry{
		ID:        uint64(id),
		Item:      item,
		CreatedAt: time.UnixMilli(createdAt.UnixMilli()),
	}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id uint64) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, data, file_name, fingerprint, created_at, pinned
		FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get: %w", err)
	}
	return e, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id uint64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

func (s *SQLiteStore) TogglePin(ctx context.Context, id uint64) (Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("toggle pin: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id, kind, data, file_name, fingerprint, created_at, pinned
		FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("toggle pin: %w", err)
	}

	e.Pinned = !e.Pinned
	if _, err := tx.ExecContext(ctx,
		`UPDATE entries SET pinned = ? WHERE id = ?`, boolToInt(e.Pinned), id); err != nil {
		return Entry{}, fmt.Errorf("toggle pin: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("toggle pin: %w", err)
	}
	return e, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1 // no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, data, file_name, fingerprint, created_at, pinned
		FROM entries
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	return entries, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (total, unpinned int, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(1), COALESCE(SUM(1 - pinned), 0) FROM entries`).
		Scan(&total, &unpinned)
	if err != nil {
		return 0, 0, fmt.Errorf("count: %w", err)
	}
	return total, unpinned, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e         Entry
		kind      string
		createdMs int64
		pinned    int
	)
	err := row.Scan(&e.ID, &kind, &e.Item.Data, &e.Item.FileName,
		&e.Item.Fingerprint, &createdMs, &pinned)
	if err != nil {
		return Entry{}, err
	}
	e.Item.Kind = content.Kind(kind)
	e.CreatedAt = time.UnixMilli(createdMs)
	e.Pinned = pinned != 0
	return e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
