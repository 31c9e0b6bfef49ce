package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Rahul-s27/Pace/internal/domain"
	"github.com/Rahul-s27/Pace/internal/shared"
	_ "modernc.org/sqlite"
)

const (
	writeAttempts  = 3
	writeBaseDelay = 100 * time.Millisecond
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		email TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		picture TEXT NOT NULL DEFAULT '',
		anonymous INTEGER NOT NULL DEFAULT 0,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS client_state (
		user_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, key)
	);

	CREATE TABLE IF NOT EXISTS session_records (
		session_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		profile_json TEXT NOT NULL,
		summary TEXT NOT NULL,
		reason TEXT NOT NULL,
		turns INTEGER NOT NULL,
		messages_json TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		ended_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_session_records_user ON session_records(user_id, ended_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, email, name, picture, anonymous,
		       last_seen_at, created_at, updated_at
		FROM users WHERE user_id = ?`

	var user domain.User
	var lastSeen, createdAt, updatedAt int64

	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&user.UserID, &user.Email, &user.Name, &user.Picture, &user.Anonymous,
		&lastSeen, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.LastSeenAt = time.Unix(lastSeen, 0)
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)

	return &user, nil
}

// UpsertUser creates or updates a user record. The creation time of an
// existing user is preserved.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, email, name, picture, anonymous, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		email = excluded.email,
		name = excluded.name,
		picture = excluded.picture,
		anonymous = excluded.anonymous,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	return shared.RetryOnConflict(ctx, "upsert user", writeAttempts, writeBaseDelay, func() error {
		_, err := s.db.ExecContext(ctx, query,
			user.UserID, user.Email, user.Name, user.Picture, user.Anonymous,
			user.LastSeenAt.Unix(), user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("upsert user: %w", err)
		}
		return nil
	})
}

// Get reads one client state value.
func (s *SQLiteStore) Get(ctx context.Context, userID, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM client_state WHERE user_id = ? AND key = ?`, userID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get state %s: %w", key, err)
	}
	return value, true, nil
}

// Set writes one client state value.
func (s *SQLiteStore) Set(ctx context.Context, userID, key, value string) error {
	query := `
	INSERT INTO client_state (user_id, key, value, updated_at) VALUES (?, ?, ?, ?)
	ON CONFLICT(user_id, key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at`

	return shared.RetryOnConflict(ctx, "set state", writeAttempts, writeBaseDelay, func() error {
		if _, err := s.db.ExecContext(ctx, query, userID, key, value, time.Now().Unix()); err != nil {
			return fmt.Errorf("set state %s: %w", key, err)
		}
		return nil
	})
}

// Remove deletes one client state value.
func (s *SQLiteStore) Remove(ctx context.Context, userID, key string) error {
	return shared.RetryOnConflict(ctx, "remove state", writeAttempts, writeBaseDelay, func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM client_state WHERE user_id = ? AND key = ?`, userID, key)
		if err != nil {
			return fmt.Errorf("remove state %s: %w", key, err)
		}
		return nil
	})
}

// SaveSessionRecord stores the outcome of an ended session.
func (s *SQLiteStore) SaveSessionRecord(ctx context.Context, record *domain.SessionRecord) error {
	profileJSON, err := json.Marshal(record.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	messagesJSON, err := json.Marshal(record.Messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}

	query := `
	INSERT INTO session_records (
		session_id, user_id, profile_json, summary, reason, turns,
		messages_json, started_at, ended_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(session_id) DO UPDATE SET
		summary = excluded.summary,
		reason = excluded.reason,
		turns = excluded.turns,
		messages_json = excluded.messages_json,
		ended_at = excluded.ended_at`

	return shared.RetryOnConflict(ctx, "save session record", writeAttempts, writeBaseDelay, func() error {
		_, err := s.db.ExecContext(ctx, query,
			record.SessionID, record.UserID, string(profileJSON), record.Summary, record.Reason,
			record.Turns, string(messagesJSON), record.StartedAt.UnixMilli(), record.EndedAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("save session record: %w", err)
		}
		return nil
	})
}

// ListSessionRecords returns a user's ended sessions, most recent first.
func (s *SQLiteStore) ListSessionRecords(ctx context.Context, userID string, limit int) ([]*domain.SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT session_id, user_id, profile_json, summary, reason, turns,
		       messages_json, started_at, ended_at
		FROM session_records WHERE user_id = ?
		ORDER BY ended_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query session records: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close session record rows", "error", closeErr)
		}
	}()

	var records []*domain.SessionRecord
	for rows.Next() {
		var r domain.SessionRecord
		var profileJSON, messagesJSON string
		var startedAt, endedAt int64

		if err := rows.Scan(
			&r.SessionID, &r.UserID, &profileJSON, &r.Summary, &r.Reason, &r.Turns,
			&messagesJSON, &startedAt, &endedAt,
		); err != nil {
			return nil, fmt.Errorf("scan session record: %w", err)
		}
		if err := json.Unmarshal([]byte(profileJSON), &r.Profile); err != nil {
			slog.Warn("Malformed profile in session record", "session_id", r.SessionID, "error", err)
		}
		if err := json.Unmarshal([]byte(messagesJSON), &r.Messages); err != nil {
			slog.Warn("Malformed messages in session record", "session_id", r.SessionID, "error", err)
		}
		r.StartedAt = time.UnixMilli(startedAt)
		r.EndedAt = time.UnixMilli(endedAt)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session records: %w", err)
	}
	return records, nil
}

// CleanupExpiredState removes session records that ended before now minus ttl.
func (s *SQLiteStore) CleanupExpiredState(ctx context.Context, ttl time.Duration) (int64, error) {
	threshold := time.Now().Add(-ttl).UnixMilli()
	result, err := s.db.ExecContext(ctx, `DELETE FROM session_records WHERE ended_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("cleanup expired session records: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
