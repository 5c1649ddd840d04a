// ABOUTME: SQLite implementation of the subscription Store using modernc.org/sqlite
// ABOUTME: One table keyed by id, the value kept as a JSON document

package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	apperrors "github.com/2389/rail-scout/internal/errors"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is created if it doesn't exist. ":memory:" opens a private
// in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "subscription", "driver", "sqlite")

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A second connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}
	}

	s := &SQLiteStore{db: db, logger: logger, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS subscriptions (
			id TEXT PRIMARY KEY,
			chat_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			body TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_subscriptions_chat
			ON subscriptions(chat_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Put writes sub under key, replacing any previous value.
func (s *SQLiteStore) Put(ctx context.Context, key string, sub Subscription) (string, error) {
	sub, err := prepare(key, sub, s.now())
	if err != nil {
		return "", err
	}
	data, err := encode(sub)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (id, chat_id, kind, body, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			chat_id = excluded.chat_id,
			kind = excluded.kind,
			body = excluded.body
	`, sub.ID, sub.ChatID, string(sub.Kind), string(data), sub.CreatedAt)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindStorage, "put", "writing subscription", err)
	}
	return sub.ID, nil
}

// Get returns the subscription stored under key.
func (s *SQLiteStore) Get(ctx context.Context, key string) (Subscription, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM subscriptions WHERE id = ?`, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return Subscription{}, notFound(key)
	}
	if err != nil {
		return Subscription{}, apperrors.Wrap(apperrors.KindStorage, "get", "querying subscription", err)
	}
	return decode([]byte(body))
}

// Delete removes key.
func (s *SQLiteStore) Delete(ctx context.Context, key string) (string, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = ?`, key)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindStorage, "delete", "removing subscription", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindStorage, "delete", "checking rows affected", err)
	}
	if rows == 0 {
		return "", notFound(key)
	}
	return key, nil
}

// List returns all subscriptions.
func (s *SQLiteStore) List(ctx context.Context) (map[string]Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, body FROM subscriptions`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "list", "querying subscriptions", err)
	}
	defer rows.Close()

	out := make(map[string]Subscription)
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, apperrors.Wrap(apperrors.KindStorage, "list", "scanning subscription", err)
		}
		sub, err := decode([]byte(body))
		if err != nil {
			s.logger.Warn("skipping unreadable subscription", "id", id, "error", err)
			continue
		}
		out[id] = sub
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "list", "iterating subscriptions", err)
	}
	return out, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
