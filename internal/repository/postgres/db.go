package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/andresuchdata/stockcast/internal/config"
)

const (
	defaultMaxOpenConns = 25
	defaultMaxIdleConns = 5
	defaultWriteSlots   = 10
)

// DB is the shared connection pool. Transactions additionally pass through
// writeSlots so a batch save cannot starve result reads of connections.
type DB struct {
	*sqlx.DB
	writeSlots *semaphore.Weighted
}

var (
	dbInstance *DB
	once       sync.Once
)

// NewDB opens the shared pool on first call; later calls return the same
// instance.
func NewDB(cfg *config.DatabaseConfig) (*DB, error) {
	var err error
	once.Do(func() {
		var pool *sqlx.DB
		pool, err = sqlx.Connect("postgres", cfg.DSN())
		if err != nil {
			return
		}

		pool.SetMaxOpenConns(orDefault(cfg.MaxOpenConns, defaultMaxOpenConns))
		pool.SetMaxIdleConns(orDefault(cfg.MaxIdleConns, defaultMaxIdleConns))
		pool.SetConnMaxLifetime(5 * time.Minute)

		slots := cfg.WriteSlots
		if slots <= 0 {
			slots = defaultWriteSlots
		}
		dbInstance = &DB{
			DB:         pool,
			writeSlots: semaphore.NewWeighted(slots),
		}
	})

	return dbInstance, err
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

// WithTx runs fn inside a transaction, holding one write slot for its
// duration. Rollback on error, commit otherwise.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if err := db.writeSlots.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquiring write slot: %w", err)
	}
	defer db.writeSlots.Release(1)

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(tx.Tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("transaction rollback failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
