package app

import (
	"context"
	"fmt"

	"github.com/JakeFAU/jumpit-harvester/internal/config"
	"github.com/JakeFAU/jumpit-harvester/internal/crawler"
	"github.com/JakeFAU/jumpit-harvester/internal/storage/memory"
	"github.com/JakeFAU/jumpit-harvester/internal/storage/postgres"
	"github.com/JakeFAU/jumpit-harvester/internal/storage/sqlite"
)

// OpenListingStore connects the listing store selected by loader.driver.
func OpenListingStore(ctx context.Context, cfg config.Config) (crawler.ListingStore, error) {
	if err := cfg.ValidateLoader(); err != nil {
		return nil, err
	}
	l := cfg.Loader
	switch l.Driver {
	case config.DriverPostgres:
		store, err := postgres.New(ctx, postgres.Config{
			DSN:      l.PostgresDSN(),
			Table:    l.TableName,
			MaxConns: l.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	case config.DriverSQLite:
		store, err := sqlite.New(ctx, sqlite.Config{Path: l.SQLitePath, Table: l.TableName})
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	case config.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown loader driver: %s", l.Driver)
	}
}
