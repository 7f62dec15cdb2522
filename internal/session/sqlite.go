package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SQLiteStore persists pending confirmations so an in-flight dialogue
// survives a bot restart.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore prepares the sessions table on the shared connection.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	schemaSQL := `
	CREATE TABLE IF NOT EXISTS confirmation_sessions (
		user_key      TEXT PRIMARY KEY,
		state         TEXT NOT NULL,
		plan_json     TEXT NOT NULL,
		original_text TEXT NOT NULL,
		created_at    INTEGER NOT NULL,
		expires_at    INTEGER NOT NULL
	);`
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, userKey string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT state, plan_json, original_text, created_at, expires_at
		 FROM confirmation_sessions WHERE user_key = ?`, userKey)

	var (
		state     string
		planJSON  string
		original  string
		createdAt int64
		expiresAt int64
	)
	if err := row.Scan(&state, &planJSON, &original, &createdAt, &expiresAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	sess := &Session{
		UserKey:      userKey,
		State:        State(state),
		OriginalText: original,
		CreatedAt:    time.Unix(createdAt, 0),
		ExpiresAt:    time.Unix(expiresAt, 0),
	}
	if err := json.Unmarshal([]byte(planJSON), &sess.PendingPlan); err != nil {
		return nil, fmt.Errorf("failed to decode stored plan: %w", err)
	}

	if sess.Expired(time.Now()) {
		if err := s.Delete(ctx, userKey); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return sess, nil
}

func (s *SQLiteStore) Put(ctx context.Context, sess *Session) error {
	planJSON, err := json.Marshal(sess.PendingPlan)
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO confirmation_sessions (user_key, state, plan_json, original_text, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_key) DO UPDATE SET
		   state = excluded.state,
		   plan_json = excluded.plan_json,
		   original_text = excluded.original_text,
		   created_at = excluded.created_at,
		   expires_at = excluded.expires_at`,
		sess.UserKey, string(sess.State), string(planJSON), sess.OriginalText,
		sess.CreatedAt.Unix(), sess.ExpiresAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, userKey string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM confirmation_sessions WHERE user_key = ?`, userKey); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// CleanupExpired removes sessions past their TTL and reports how many were
// deleted.
func (s *SQLiteStore) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM confirmation_sessions WHERE expires_at < ?`, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up sessions: %w", err)
	}
	return res.RowsAffected()
}
