package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/josh-kwaku/chatledger/internal/domain"
)

// Postgres SQLSTATE for lock_timeout expiry.
const lockNotAvailable = "55P03"

// PostgresGroupStore keeps one JSONB snapshot row per chat. A
// read-modify-write holds the row lock for the whole transaction.
type PostgresGroupStore struct {
	db          *sql.DB
	lockTimeout time.Duration
}

func NewPostgresGroupStore(db *sql.DB, lockTimeout time.Duration) *PostgresGroupStore {
	return &PostgresGroupStore{db: db, lockTimeout: lockTimeout}
}

func (s *PostgresGroupStore) Load(ctx context.Context, chatID int64) (*domain.GroupState, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM group_ledgers WHERE chat_id = $1`, chatID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewGroupState(chatID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}

	state, err := decodeState(chatID, data)
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	return state, nil
}

func (s *PostgresGroupStore) Update(ctx context.Context, chatID int64, fn func(*domain.GroupState) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Update: begin tx: %w", err)
	}
	defer tx.Rollback()

	// SET cannot take bind parameters.
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`SET LOCAL lock_timeout = '%dms'`, lockTimeoutMillis(s.lockTimeout)),
	); err != nil {
		return fmt.Errorf("Update: set lock timeout: %w", err)
	}

	fresh, err := encodeState(domain.NewGroupState(chatID))
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO group_ledgers (chat_id, state) VALUES ($1, $2)
		ON CONFLICT (chat_id) DO NOTHING`,
		chatID, fresh,
	); err != nil {
		return fmt.Errorf("Update: ensure row: %w", mapLockError(err))
	}

	var data []byte
	if err := tx.QueryRowContext(ctx,
		`SELECT state FROM group_ledgers WHERE chat_id = $1 FOR UPDATE`, chatID,
	).Scan(&data); err != nil {
		return fmt.Errorf("Update: lock row: %w", mapLockError(err))
	}

	state := stateForUpdate(ctx, chatID, data, true)
	if err := fn(state); err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	state.UpdatedAt = time.Now().UTC()
	encoded, err := encodeState(state)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE group_ledgers SET state = $2, updated_at = $3 WHERE chat_id = $1`,
		chatID, encoded, state.UpdatedAt,
	); err != nil {
		return fmt.Errorf("Update: write: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Update: commit: %w", err)
	}
	return nil
}

func (s *PostgresGroupStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// lockTimeoutMillis rounds up to whole milliseconds. Postgres reads 0 as
// "wait forever", so the result is never below 1.
func lockTimeoutMillis(d time.Duration) int64 {
	ms := d.Milliseconds()
	if d%time.Millisecond != 0 {
		ms++
	}
	return max(ms, 1)
}

func mapLockError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == lockNotAvailable {
		return fmt.Errorf("%s: %w", pqErr.Message, domain.ErrLockTimeout)
	}
	return err
}
