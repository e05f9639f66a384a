// Package loader upserts validated records into the spatially-indexed
// store and computes derived fields at write time.
package loader

import (
	"context"
	"time"

	"github.com/magicmaxmagic/ScrappingBot/internal/models"
)

// Store is the destination store contract. The pgx implementation is
// the production one; tests substitute a mock.
type Store interface {
	// Ping verifies connectivity. Failure is fatal for a run.
	Ping(ctx context.Context) error
	// EnsureSchema creates the listings and areas tables and indexes.
	EnsureSchema(ctx context.Context) error
	// Areas returns all area polygons for the in-memory spatial cache.
	Areas(ctx context.Context) ([]models.Area, error)
	// UpsertArea inserts or updates an area keyed by (name, city) and
	// returns its ID.
	UpsertArea(ctx context.Context, area *models.Area) (int64, error)
	// UpsertListing inserts or updates a listing keyed by its URL hash.
	// Returns true when a new row was created.
	UpsertListing(ctx context.Context, listing *models.Listing) (bool, error)
	// MarkStale flags active listings not re-scraped within maxAge.
	MarkStale(ctx context.Context, maxAge time.Duration) (int64, error)
	// CleanupInactive deletes inactive listings untouched for maxAge.
	CleanupInactive(ctx context.Context, maxAge time.Duration) (int64, error)
	// Close releases the connection pool.
	Close()
}
