package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/magicmaxmagic/ScrappingBot/internal/models"
	"github.com/magicmaxmagic/ScrappingBot/pkg/geo"
)

const connectTimeout = 10 * time.Second

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the destination store and verifies the
// connection before returning.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Ping verifies connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the listings and areas tables and their indexes.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	sql := `
	CREATE TABLE IF NOT EXISTS areas (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		city TEXT NOT NULL,
		polygon JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (name, city)
	);

	CREATE TABLE IF NOT EXISTS listings (
		id BIGSERIAL PRIMARY KEY,
		url_hash VARCHAR(64) NOT NULL UNIQUE,
		url TEXT NOT NULL,
		title TEXT,
		description TEXT,
		price NUMERIC(12,2),
		currency CHAR(3),
		area_sqm NUMERIC(10,2),
		address TEXT,
		city TEXT,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		bedrooms INTEGER,
		bathrooms NUMERIC(4,1),
		listing_type TEXT NOT NULL DEFAULT 'sale',
		monthly_rent NUMERIC(12,2),
		source TEXT,
		area_id BIGINT REFERENCES areas(id),
		price_per_sqm NUMERIC(12,2),
		yearly_yield NUMERIC(6,2),
		is_active BOOLEAN NOT NULL DEFAULT true,
		scraped_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_listings_price ON listings(price) WHERE price IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_listings_area_id ON listings(area_id) WHERE area_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_listings_listing_type ON listings(listing_type);
	CREATE INDEX IF NOT EXISTS idx_listings_active ON listings(is_active) WHERE is_active = true;
	CREATE INDEX IF NOT EXISTS idx_listings_scraped_at ON listings(scraped_at);
	CREATE INDEX IF NOT EXISTS idx_listings_coords ON listings(latitude, longitude)
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL;
	`

	if _, err := s.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	return nil
}

// Areas returns every stored area with its polygon, ordered by ID.
func (s *PostgresStore) Areas(ctx context.Context) ([]models.Area, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, city, polygon FROM areas ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query areas: %w", err)
	}
	defer rows.Close()

	var areas []models.Area

	for rows.Next() {
		var (
			area        models.Area
			polygonJSON []byte
		)

		if err := rows.Scan(&area.ID, &area.Name, &area.City, &polygonJSON); err != nil {
			return nil, fmt.Errorf("failed to scan area row: %w", err)
		}

		var polygon geo.Polygon
		if err := json.Unmarshal(polygonJSON, &polygon); err != nil {
			return nil, fmt.Errorf("failed to decode polygon for area %d: %w", area.ID, err)
		}

		area.Polygon = polygon
		areas = append(areas, area)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read area rows: %w", err)
	}

	return areas, nil
}

// UpsertArea inserts or updates an area keyed by (name, city).
func (s *PostgresStore) UpsertArea(ctx context.Context, area *models.Area) (int64, error) {
	polygonJSON, err := json.Marshal(area.Polygon)
	if err != nil {
		return 0, fmt.Errorf("failed to encode polygon: %w", err)
	}

	sql := `
	INSERT INTO areas (name, city, polygon)
	VALUES ($1, $2, $3)
	ON CONFLICT (name, city)
	DO UPDATE SET polygon = EXCLUDED.polygon
	RETURNING id;
	`

	var id int64
	if err := s.pool.QueryRow(ctx, sql, area.Name, area.City, polygonJSON).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to upsert area %s/%s: %w", area.City, area.Name, err)
	}

	return id, nil
}

// UpsertListing writes one listing keyed by url_hash. The row and its
// derived fields land in a single statement so both are atomic. An
// existing area assignment is preserved; everything else converges on
// the incoming values.
func (s *PostgresStore) UpsertListing(ctx context.Context, l *models.Listing) (bool, error) {
	sql := `
	INSERT INTO listings (
		url_hash, url, title, description, price, currency, area_sqm,
		address, city, latitude, longitude, bedrooms, bathrooms,
		listing_type, monthly_rent, source, area_id, price_per_sqm,
		yearly_yield, scraped_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		$11, $12, $13, $14, $15, $16, $17, $18, $19, $20
	)
	ON CONFLICT (url_hash) DO UPDATE SET
		url = EXCLUDED.url,
		title = EXCLUDED.title,
		description = EXCLUDED.description,
		price = EXCLUDED.price,
		currency = EXCLUDED.currency,
		area_sqm = EXCLUDED.area_sqm,
		address = EXCLUDED.address,
		city = EXCLUDED.city,
		latitude = EXCLUDED.latitude,
		longitude = EXCLUDED.longitude,
		bedrooms = EXCLUDED.bedrooms,
		bathrooms = EXCLUDED.bathrooms,
		listing_type = EXCLUDED.listing_type,
		monthly_rent = EXCLUDED.monthly_rent,
		source = EXCLUDED.source,
		area_id = COALESCE(listings.area_id, EXCLUDED.area_id),
		price_per_sqm = EXCLUDED.price_per_sqm,
		yearly_yield = EXCLUDED.yearly_yield,
		scraped_at = EXCLUDED.scraped_at,
		is_active = true,
		updated_at = NOW()
	RETURNING (xmax = 0) AS inserted;
	`

	var inserted bool

	err := s.pool.QueryRow(ctx, sql,
		l.URLHash, l.URL, l.Title, l.Description, l.Price, l.Currency,
		l.AreaSqm, l.Address, l.City, l.Latitude, l.Longitude,
		l.Bedrooms, l.Bathrooms, l.ListingType, l.MonthlyRent, l.Source,
		l.AreaID, l.PricePerSqm, l.YearlyYield, l.ScrapedAt,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert listing %s: %w", l.URL, err)
	}

	return inserted, nil
}

// MarkStale deactivates listings whose last scrape is older than maxAge.
func (s *PostgresStore) MarkStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	sql := `
	UPDATE listings
	SET is_active = false, updated_at = NOW()
	WHERE is_active = true AND scraped_at < NOW() - make_interval(secs => $1);
	`

	tag, err := s.pool.Exec(ctx, sql, maxAge.Seconds())
	if err != nil {
		return 0, fmt.Errorf("failed to mark stale listings: %w", err)
	}

	return tag.RowsAffected(), nil
}

// CleanupInactive deletes inactive listings untouched for maxAge.
func (s *PostgresStore) CleanupInactive(ctx context.Context, maxAge time.Duration) (int64, error) {
	sql := `
	DELETE FROM listings
	WHERE is_active = false AND updated_at < NOW() - make_interval(secs => $1);
	`

	tag, err := s.pool.Exec(ctx, sql, maxAge.Seconds())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup inactive listings: %w", err)
	}

	return tag.RowsAffected(), nil
}
