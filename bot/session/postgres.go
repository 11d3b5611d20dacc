package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/concert-mate/bot/bot/states"
	"github.com/concert-mate/bot/core/logger"
	"log/slog"
)

// PostgresStore persists sessions in the user_sessions table, one row per
// user, with an optimistic version column backing Put's compare-and-set.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an already-connected pool.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type sessionRow struct {
	State   string `db:"state"`
	Data    []byte `db:"data"`
	Version int64  `db:"version"`
}

// Get loads the full session record for a user.
func (s *PostgresStore) Get(ctx context.Context, userID int64) (*Session, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row,
		`SELECT state, data, version FROM user_sessions WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	sess := &Session{State: states.State(row.State), Version: row.Version}
	if len(row.Data) > 0 {
		if err := json.Unmarshal(row.Data, &sess.Data); err != nil {
			return nil, fmt.Errorf("session get: decode data: %w", err)
		}
	}
	return sess, nil
}

// Put stores the session, inserting when the version is zero and otherwise
// updating only if the stored version still matches.
func (s *PostgresStore) Put(ctx context.Context, userID int64, sess *Session) error {
	data, err := json.Marshal(sess.Data)
	if err != nil {
		return fmt.Errorf("session put: encode data: %w", err)
	}

	start := time.Now()
	var res sql.Result
	if sess.Version == 0 {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO user_sessions (user_id, state, data, version, updated_at)
			 VALUES ($1, $2, $3, 1, now())
			 ON CONFLICT (user_id) DO NOTHING`,
			userID, string(sess.State), data)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE user_sessions
			 SET state = $2, data = $3, version = version + 1, updated_at = now()
			 WHERE user_id = $1 AND version = $4`,
			userID, string(sess.State), data, sess.Version)
	}
	if err != nil {
		return fmt.Errorf("session put: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("session put: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}

	sess.Version++
	logger.DB.Debug("session stored",
		slog.String("event", "session.put"),
		slog.Int64("user_id", userID),
		slog.String("state", string(sess.State)),
		slog.Int64("version", sess.Version),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// SetField patches one key of the data document without rewriting the row.
func (s *PostgresStore) SetField(ctx context.Context, userID int64, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("session set field %q: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE user_sessions
		 SET data = jsonb_set(data, ARRAY[$2], $3::jsonb, true),
		     version = version + 1, updated_at = now()
		 WHERE user_id = $1`,
		userID, key, string(encoded))
	if err != nil {
		return fmt.Errorf("session set field %q: %w", key, err)
	}
	return nil
}

// DeleteField removes one key of the data document.
func (s *PostgresStore) DeleteField(ctx context.Context, userID int64, key string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE user_sessions
		 SET data = data - $2, version = version + 1, updated_at = now()
		 WHERE user_id = $1`,
		userID, key)
	if err != nil {
		return fmt.Errorf("session delete field %q: %w", key, err)
	}
	return nil
}

// Clear drops the record; the next contact starts registration afresh.
func (s *PostgresStore) Clear(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM user_sessions WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("session clear: %w", err)
	}
	return nil
}
