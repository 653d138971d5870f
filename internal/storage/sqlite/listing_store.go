// Package sqlite provides a SQLite-backed listing store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver

	"github.com/JakeFAU/jumpit-harvester/internal/crawler"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config locates the database file and target table.
type Config struct {
	Path  string
	Table string
}

// ListingStore writes listing rows with INSERT OR IGNORE.
type ListingStore struct {
	db     *sql.DB
	insert string
}

// New opens the database at cfg.Path and verifies the connection.
func New(ctx context.Context, cfg Config) (*ListingStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps :memory: databases visible to every call and
	// serializes writers on file databases.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	store, err := NewWithDB(db, cfg.Table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewWithDB wraps an open database handle.
func NewWithDB(db *sql.DB, table string) (*ListingStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &ListingStore{
		db: db,
		insert: fmt.Sprintf(`INSERT OR IGNORE INTO %s (platform, job_id, company, title, body, url, inserted_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`, table),
	}, nil
}

// InsertListings inserts records in one transaction. Existing
// (platform, job_id) pairs are skipped.
func (s *ListingStore) InsertListings(
	ctx context.Context,
	records []crawler.Record,
	insertedAt time.Time,
) (crawler.InsertResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return crawler.InsertResult{}, fmt.Errorf("begin transaction: %w", err)
	}
	result, err := s.insertAll(ctx, tx, records, insertedAt.Format(time.DateOnly))
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return crawler.InsertResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return crawler.InsertResult{}, fmt.Errorf("commit listings: %w", err)
	}
	return result, nil
}

func (s *ListingStore) insertAll(ctx context.Context, tx *sql.Tx, records []crawler.Record, day string) (crawler.InsertResult, error) {
	var result crawler.InsertResult
	stmt, err := tx.PrepareContext(ctx, s.insert)
	if err != nil {
		return result, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()
	for _, rec := range records {
		res, err := stmt.ExecContext(ctx, rec.Platform, int64(rec.JobID), rec.Company, rec.Title, rec.Body, rec.URL, day)
		if err != nil {
			return result, fmt.Errorf("insert listing %d: %w", rec.JobID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return result, fmt.Errorf("rows affected: %w", err)
		}
		if n > 0 {
			result.Inserted++
		} else {
			result.Skipped++
		}
	}
	return result, nil
}

// Close closes the database handle.
func (s *ListingStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}
