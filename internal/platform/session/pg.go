package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is the subset of *pgxpool.Pool the storage uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStorage keeps records in the akin_sessions table (migrations/001).
// Expired rows are invisible to Load and removed by Sweep.
type PGStorage struct {
	db  querier
	ttl time.Duration
	now func() time.Time
}

func NewPGStorage(db querier, ttl time.Duration) *PGStorage {
	return &PGStorage{db: db, ttl: ttl, now: time.Now}
}

func (s *PGStorage) Load(ctx context.Context, key string) (Record, error) {
	var payload []byte
	err := s.db.QueryRow(ctx,
		`SELECT payload FROM akin_sessions WHERE session_key = $1 AND expires_at > $2`,
		key, s.now(),
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("load session: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return Record{}, fmt.Errorf("decode session: %w", err)
	}
	return rec, nil
}

func (s *PGStorage) Save(ctx context.Context, key string, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	now := s.now()
	_, err = s.db.Exec(ctx,
		`INSERT INTO akin_sessions (session_key, payload, expires_at, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_key) DO UPDATE
		 SET payload = EXCLUDED.payload, expires_at = EXCLUDED.expires_at, updated_at = EXCLUDED.updated_at`,
		key, payload, now.Add(s.ttl), now,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *PGStorage) Delete(ctx context.Context, key string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM akin_sessions WHERE session_key = $1`, key); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Sweep removes expired rows and returns how many were deleted.
func (s *PGStorage) Sweep(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM akin_sessions WHERE expires_at <= $1`, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
