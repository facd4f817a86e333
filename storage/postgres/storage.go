// storage/postgres/storage.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/ludopad/ludopad/storage"
)

// DefaultPollInterval is how often watchers check for foreign writes.
// Postgres has no push channel wired here; the watcher polls the row stamp.
const DefaultPollInterval = time.Second

// Storage is a Postgres-backed durable store. Values live in a single
// key-value table; every mutation stamps the writing instance so watchers can
// filter out their own changes. Deletes are tombstones for the same reason.
type Storage struct {
	pool         *pgxpool.Pool
	origin       uuid.UUID
	log          *logrus.Logger
	PollInterval time.Duration
}

var _ storage.WatchableStore = (*Storage)(nil)

// New connects a pool, pings it, and ensures the schema exists.
func New(ctx context.Context, dsn string, log *logrus.Logger) (*Storage, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	s := NewWithPool(pool, log)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewWithPool wraps an existing pool (used by tests).
func NewWithPool(pool *pgxpool.Pool, log *logrus.Logger) *Storage {
	if log == nil {
		log = logrus.New()
	}
	return &Storage{
		pool:         pool,
		origin:       uuid.New(),
		log:          log,
		PollInterval: DefaultPollInterval,
	}
}

// Close releases the pool.
func (s *Storage) Close() {
	s.pool.Close()
}

// EnsureSchema creates the key-value table if it does not exist.
func (s *Storage) EnsureSchema(ctx context.Context) error {
	q := `
	CREATE TABLE IF NOT EXISTS ludopad_kv (
		key        text PRIMARY KEY,
		value      bytea,
		deleted    boolean NOT NULL DEFAULT false,
		origin     uuid NOT NULL,
		updated_at timestamptz NOT NULL DEFAULT now()
	)`
	if _, err := s.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("failed to create kv table: %w", err)
	}
	return nil
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	q := `SELECT value FROM ludopad_kv WHERE key=$1 AND NOT deleted`
	err := s.pool.QueryRow(ctx, q, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	q := `
	INSERT INTO ludopad_kv (key, value, deleted, origin, updated_at)
	VALUES ($1, $2, false, $3, now())
	ON CONFLICT (key) DO UPDATE
	SET value=EXCLUDED.value, deleted=false, origin=EXCLUDED.origin, updated_at=now()`
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, key, value, s.origin)
		return err
	})
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	q := `
	UPDATE ludopad_kv
	SET value=NULL, deleted=true, origin=$2, updated_at=now()
	WHERE key=$1 AND NOT deleted`
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, key, s.origin)
		return err
	})
}

// Watch polls the row stamp for key and invokes fn when another instance has
// mutated it since the last poll.
func (s *Storage) Watch(ctx context.Context, key string, fn func(storage.Change)) (func(), error) {
	watchCtx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(s.PollInterval)
		defer ticker.Stop()

		lastSeen, _ := s.rowStamp(watchCtx, key)

		for {
			select {
			case <-watchCtx.Done():
				return
			case <-ticker.C:
				stamp, foreign := s.rowStamp(watchCtx, key)
				if stamp.After(lastSeen) {
					lastSeen = stamp
					if foreign {
						fn(storage.Change{Key: key})
					}
				}
			}
		}
	}()

	return cancel, nil
}

// rowStamp returns the last mutation time for key and whether that mutation
// came from another instance. A missing row reports the zero time.
func (s *Storage) rowStamp(ctx context.Context, key string) (time.Time, bool) {
	var stamp time.Time
	var origin uuid.UUID
	q := `SELECT updated_at, origin FROM ludopad_kv WHERE key=$1`
	err := s.pool.QueryRow(ctx, q, key).Scan(&stamp, &origin)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) && ctx.Err() == nil {
			s.log.Warnf("postgres store: poll for %q failed: %v", key, err)
		}
		return time.Time{}, false
	}
	return stamp, origin != s.origin
}
