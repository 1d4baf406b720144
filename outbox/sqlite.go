package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS outbox_items (
	id         TEXT PRIMARY KEY,
	tag        TEXT NOT NULL,
	method     TEXT NOT NULL,
	url        TEXT NOT NULL,
	header     TEXT NOT NULL DEFAULT '{}',
	body       BLOB,
	created_at INTEGER NOT NULL,
	attempts   INTEGER NOT NULL DEFAULT 0,
	last_error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS outbox_items_tag ON outbox_items (tag, created_at);
`

// SQLiteStore persists items in a local SQLite database so the queue
// survives restarts.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema. The connection uses WAL so replays can read while the host
// enqueues.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("outbox: database path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("outbox: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("outbox: ping database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("outbox: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// Enqueue inserts the item.
func (s *SQLiteStore) Enqueue(ctx context.Context, item Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := item.validate(); err != nil {
		return err
	}
	header, err := encodeHeader(item.Header)
	if err != nil {
		return fmt.Errorf("outbox: encode header: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO outbox_items (id, tag, method, url, header, body, created_at, attempts, last_error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID.String(),
		item.Tag,
		item.Method,
		item.URL,
		header,
		item.Body,
		toNanos(item.CreatedAt),
		item.Attempts,
		item.LastError,
	)
	if err != nil {
		return fmt.Errorf("outbox: enqueue item: %w", err)
	}
	return nil
}

// Pending returns queued items for tag in enqueue order.
func (s *SQLiteStore) Pending(ctx context.Context, tag string) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := `SELECT id, tag, method, url, header, body, created_at, attempts, last_error
		  FROM outbox_items`
	args := []any{}
	if tag != "" {
		query += ` WHERE tag = ?`
		args = append(args, tag)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("outbox: list pending: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		item, err := scanItem(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("outbox: scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("outbox: list pending: %w", err)
	}
	return items, nil
}

// Ack deletes the item with the given ID.
func (s *SQLiteStore) Ack(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM outbox_items WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("outbox: ack item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("outbox: ack rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Fail bumps the attempt count and records the cause.
func (s *SQLiteStore) Fail(ctx context.Context, id uuid.UUID, cause error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lastError := ""
	if cause != nil {
		lastError = cause.Error()
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE outbox_items SET attempts = attempts + 1, last_error = ? WHERE id = ?`,
		lastError, id.String(),
	)
	if err != nil {
		return fmt.Errorf("outbox: fail item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("outbox: fail rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Depth counts queued items for tag.
func (s *SQLiteStore) Depth(ctx context.Context, tag string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var row *sql.Row
	if tag == "" {
		row = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox_items`)
	} else {
		row = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox_items WHERE tag = ?`, tag)
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("outbox: count items: %w", err)
	}
	return n, nil
}

func encodeHeader(h http.Header) (string, error) {
	if h == nil {
		return "{}", nil
	}
	data, err := json.Marshal(h)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeHeader(raw string) (http.Header, error) {
	if raw == "" || raw == "{}" {
		return nil, nil
	}
	var h http.Header
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		return nil, err
	}
	return h, nil
}

func scanItem(scan func(dest ...any) error) (Item, error) {
	var (
		item      Item
		id        string
		header    string
		createdAt int64
	)
	if err := scan(&id, &item.Tag, &item.Method, &item.URL, &header, &item.Body, &createdAt, &item.Attempts, &item.LastError); err != nil {
		return Item{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Item{}, fmt.Errorf("parse id %q: %w", id, err)
	}
	item.ID = parsed
	item.CreatedAt = fromNanos(createdAt)
	item.Header, err = decodeHeader(header)
	if err != nil {
		return Item{}, fmt.Errorf("decode header: %w", err)
	}
	return item, nil
}

var _ Store = (*SQLiteStore)(nil)
