package loader

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/magicmaxmagic/ScrappingBot/internal/logger"
	"github.com/magicmaxmagic/ScrappingBot/internal/models"
	"github.com/magicmaxmagic/ScrappingBot/internal/normalizer"
	"github.com/magicmaxmagic/ScrappingBot/pkg/geo"
)

// WriteFailure records one listing that could not be written.
type WriteFailure struct {
	URL string
	Err error
}

// Result contains the counters for one load pass.
type Result struct {
	Loaded   int
	Created  int
	Updated  int
	Failures []WriteFailure
}

// Loader upserts validated records. Area polygons are cached in memory
// for the lifetime of the loader so spatial lookups never hit the store
// per record.
type Loader struct {
	store     Store
	logger    *logger.Logger
	workers   int
	batchSize int

	index     *geo.Index
	indexOnce sync.Once
	indexErr  error
}

// NewLoader creates a loader writing through the given store.
func NewLoader(store Store, log *logger.Logger, workers, batchSize int) *Loader {
	if workers < 1 {
		workers = 1
	}

	if batchSize < 1 {
		batchSize = 100
	}

	return &Loader{
		store:     store,
		logger:    log,
		workers:   workers,
		batchSize: batchSize,
	}
}

// warmAreaCache loads all polygons once. Failure here means the store
// schema is unreadable, which is fatal for the run.
func (l *Loader) warmAreaCache(ctx context.Context) error {
	l.indexOnce.Do(func() {
		areas, err := l.store.Areas(ctx)
		if err != nil {
			l.indexErr = fmt.Errorf("failed to load area polygons: %w", err)
			return
		}

		index := geo.NewIndex()
		for _, area := range areas {
			index.Add(area.ID, area.Polygon)
		}

		l.index = index
		l.logger.Info("area cache warmed", "polygons", index.Len())
	})

	return l.indexErr
}

// Load upserts every pass record, batch by batch. A single record's
// write failure is collected and the batch continues; only store-level
// faults (connectivity, schema) return an error.
func (l *Loader) Load(ctx context.Context, records []models.ValidatedRecord) (*Result, error) {
	result := &Result{}

	if len(records) == 0 {
		return result, nil
	}

	if err := l.warmAreaCache(ctx); err != nil {
		return nil, err
	}

	for start := 0; start < len(records); start += l.batchSize {
		end := start + l.batchSize
		if end > len(records) {
			end = len(records)
		}

		if err := l.loadBatch(ctx, records[start:end], result); err != nil {
			return result, err
		}

		l.logger.Debug("batch loaded", "from", start, "to", end, "loaded", result.Loaded)
	}

	return result, nil
}

// loadBatch distributes records across workers sharded by identity key,
// so two records with the same key are never upserted concurrently.
func (l *Loader) loadBatch(ctx context.Context, batch []models.ValidatedRecord, result *Result) error {
	shards := make([][]models.ValidatedRecord, l.workers)

	for _, rec := range batch {
		i := shardFor(rec.IdentityKey, l.workers)
		shards[i] = append(shards[i], rec)
	}

	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)

	for _, shard := range shards {
		if len(shard) == 0 {
			continue
		}

		shard := shard

		g.Go(func() error {
			for _, rec := range shard {
				listing := l.buildListing(&rec.NormalizedRecord)

				created, err := l.store.UpsertListing(gctx, listing)

				mu.Lock()
				if err != nil {
					l.logger.Error("listing write failed", "url", rec.URL, "error", err)
					result.Failures = append(result.Failures, WriteFailure{URL: rec.URL, Err: err})
				} else {
					result.Loaded++
					if created {
						result.Created++
					} else {
						result.Updated++
					}
				}
				mu.Unlock()

				if gctx.Err() != nil {
					return gctx.Err()
				}
			}

			return nil
		})
	}

	return g.Wait()
}

// buildListing maps a normalized record onto a store row and computes
// the derived fields that must be visible atomically with the write.
func (l *Loader) buildListing(rec *models.NormalizedRecord) *models.Listing {
	listing := &models.Listing{
		URLHash:     rec.IdentityKey,
		URL:         rec.URL,
		Title:       rec.Title,
		Description: rec.Description,
		Price:       rec.Price,
		Currency:    rec.Currency,
		AreaSqm:     rec.AreaSqm,
		Address:     rec.Address,
		City:        rec.City,
		Latitude:    rec.Latitude,
		Longitude:   rec.Longitude,
		Bedrooms:    rec.Bedrooms,
		Bathrooms:   rec.Bathrooms,
		ListingType: rec.ListingType,
		MonthlyRent: rec.MonthlyRent,
		Source:      rec.Source,
		IsActive:    true,
		ScrapedAt:   rec.ScrapedAt,
	}

	if rec.HasCoordinates() {
		pt := geo.Point{Lon: *rec.Longitude, Lat: *rec.Latitude}
		if id, ok := l.index.Locate(pt); ok {
			listing.AreaID = &id
		}
	}

	listing.PricePerSqm = PricePerSqm(rec.Price, rec.AreaSqm)
	listing.YearlyYield = YearlyYield(rec.ListingType, rec.MonthlyRent, rec.Price)

	return listing
}

// MarkStale deactivates listings whose last scrape is older than maxAge.
func (l *Loader) MarkStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	return l.store.MarkStale(ctx, maxAge)
}

// CleanupInactive deletes inactive listings untouched for maxAge.
func (l *Loader) CleanupInactive(ctx context.Context, maxAge time.Duration) (int64, error) {
	return l.store.CleanupInactive(ctx, maxAge)
}

// PricePerSqm returns price divided by area, only when both are
// positive.
func PricePerSqm(price, areaSqm *float64) *float64 {
	if price == nil || areaSqm == nil || *price <= 0 || *areaSqm <= 0 {
		return nil
	}

	v := round2(*price / *areaSqm)

	return &v
}

// YearlyYield returns the annualized gross yield percentage for rental
// listings with a known monthly rent and positive price.
func YearlyYield(listingType string, monthlyRent, price *float64) *float64 {
	if listingType != normalizer.ListingTypeRent {
		return nil
	}

	if monthlyRent == nil || price == nil || *monthlyRent <= 0 || *price <= 0 {
		return nil
	}

	v := round2(*monthlyRent * 12 / *price * 100)

	return &v
}

func shardFor(key string, workers int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))

	return int(h.Sum32() % uint32(workers))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
