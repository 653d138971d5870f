// Package postgres provides the Postgres-backed listing store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/jumpit-harvester/internal/crawler"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for listing rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type txBeginner interface {
	Begin(context.Context) (pgx.Tx, error)
	Close()
}

// ListingStore writes listing rows into Postgres, skipping (platform, job_id)
// pairs that already exist.
type ListingStore struct {
	pool   txBeginner
	table  string
	insert string
}

// New connects a pool and verifies it with a ping.
func New(ctx context.Context, cfg Config) (*ListingStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	store, err := NewWithPool(pool, cfg.Table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool txBeginner, table string) (*ListingStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &ListingStore{
		pool:  pool,
		table: table,
		insert: fmt.Sprintf(`
INSERT INTO %s (platform, job_id, company, title, body, url, inserted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (platform, job_id) DO NOTHING`, table),
	}, nil
}

// InsertListings inserts records in one transaction. A row whose key already
// exists is counted as skipped and left untouched.
func (s *ListingStore) InsertListings(
	ctx context.Context,
	records []crawler.Record,
	insertedAt time.Time,
) (result crawler.InsertResult, err error) {
	if s == nil || s.pool == nil {
		return result, fmt.Errorf("listing store is not configured")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
	}()

	day := insertedAt.Format(time.DateOnly)
	for _, rec := range records {
		tag, execErr := tx.Exec(ctx, s.insert,
			rec.Platform,
			int64(rec.JobID),
			rec.Company,
			rec.Title,
			rec.Body,
			rec.URL,
			day,
		)
		if execErr != nil {
			return crawler.InsertResult{}, fmt.Errorf("insert listing %d: %w", rec.JobID, execErr)
		}
		if tag.RowsAffected() > 0 {
			result.Inserted++
		} else {
			result.Skipped++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return crawler.InsertResult{}, fmt.Errorf("commit listings: %w", err)
	}
	committed = true
	return result, nil
}

// Close releases the underlying pool resources.
func (s *ListingStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}
