// Package integration exercises the full pipeline end to end against an
// in-memory store.
package integration

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/magicmaxmagic/ScrappingBot/internal/config"
	"github.com/magicmaxmagic/ScrappingBot/internal/etl"
	"github.com/magicmaxmagic/ScrappingBot/internal/extractor"
	"github.com/magicmaxmagic/ScrappingBot/internal/loader"
	"github.com/magicmaxmagic/ScrappingBot/internal/logger"
	"github.com/magicmaxmagic/ScrappingBot/internal/models"
	"github.com/magicmaxmagic/ScrappingBot/pkg/geo"
)

type memStore struct {
	mu    sync.Mutex
	rows  map[string]*models.Listing
	areas []models.Area
}

func newMemStore(areas []models.Area) *memStore {
	return &memStore{rows: make(map[string]*models.Listing), areas: areas}
}

func (m *memStore) Ping(ctx context.Context) error { return nil }

func (m *memStore) EnsureSchema(ctx context.Context) error { return nil }

func (m *memStore) Close() {}

func (m *memStore) Areas(ctx context.Context) ([]models.Area, error) { return m.areas, nil }

func (m *memStore) UpsertArea(ctx context.Context, area *models.Area) (int64, error) {
	return int64(len(m.areas) + 1), nil
}

func (m *memStore) UpsertListing(ctx context.Context, listing *models.Listing) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, exists := m.rows[listing.URLHash]
	m.rows[listing.URLHash] = listing

	return !exists, nil
}

func (m *memStore) MarkStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	return 0, nil
}

func (m *memStore) CleanupInactive(ctx context.Context, maxAge time.Duration) (int64, error) {
	return 0, nil
}

// plateau is a polygon around downtown Montreal.
func plateau() models.Area {
	return models.Area{
		ID:   7,
		Name: "Plateau",
		City: "Montreal",
		Polygon: geo.Polygon{Outer: geo.Ring{
			{Lon: -73.7, Lat: 45.4},
			{Lon: -73.4, Lat: 45.4},
			{Lon: -73.4, Lat: 45.6},
			{Lon: -73.7, Lat: 45.6},
		}},
	}
}

const rawBatch = `[
	{
		"url": "https://example.com/a",
		"title": "Bright Condo",
		"price": "$450,000",
		"currency": "$",
		"area": "900 sq ft",
		"listing_type": "sale",
		"latitude": 45.52,
		"longitude": -73.57,
		"scraped_at": "2025-06-01T10:00:00Z"
	},
	{
		"url": "https://example.com/a",
		"title": "Bright Condo",
		"price": "$450,000",
		"currency": "$",
		"scraped_at": "2025-05-01T10:00:00Z"
	},
	{
		"url": "https://example.com/rent-1",
		"title": "Rental Flat",
		"price": "300000",
		"currency": "EUR",
		"area": "80 m²",
		"listing_type": "rent",
		"monthly_rent": "1500",
		"scraped_at": "2025-06-01T11:00:00Z"
	},
	{
		"url": "https://example.com/broken",
		"title": "No Price Here"
	}
]`

func runPipeline(t *testing.T, store *memStore, dataDir string) *models.RunReport {
	t.Helper()

	cfg := config.Default()
	cfg.Pipeline.DataDir = dataDir

	log := logger.NewLogger("error", "text")
	ldr := loader.NewLoader(store, log, 2, 100)
	orch := etl.NewOrchestrator(cfg, log, ldr)

	sel, err := etl.ParseSelection("full")
	if err != nil {
		t.Fatalf("ParseSelection failed: %v", err)
	}

	src := extractor.Source{Name: "batch", Reader: strings.NewReader(rawBatch)}

	report, err := orch.Run(context.Background(), sel, []extractor.Source{src})
	if err != nil {
		t.Fatalf("pipeline run failed: %v", err)
	}

	return report
}

func TestPipeline_FullRun(t *testing.T) {
	store := newMemStore([]models.Area{plateau()})

	report := runPipeline(t, store, t.TempDir())

	if !report.Success {
		t.Fatalf("run not successful, errors: %v", report.Errors)
	}

	if report.Stats.Extracted != 4 {
		t.Errorf("Extracted = %d, want 4", report.Stats.Extracted)
	}

	if report.Stats.Deduplicated != 1 {
		t.Errorf("Deduplicated = %d, want 1", report.Stats.Deduplicated)
	}

	if report.Stats.Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", report.Stats.Rejected)
	}

	if report.Stats.Loaded != 2 {
		t.Errorf("Loaded = %d, want 2", report.Stats.Loaded)
	}

	if len(store.rows) != 2 {
		t.Fatalf("store holds %d rows, want 2", len(store.rows))
	}
}

func TestPipeline_NormalizedListingValues(t *testing.T) {
	store := newMemStore([]models.Area{plateau()})

	runPipeline(t, store, t.TempDir())

	var condo *models.Listing

	for _, row := range store.rows {
		if row.URL == "https://example.com/a" {
			condo = row
		}
	}

	if condo == nil {
		t.Fatal("condo listing not loaded")
	}

	if condo.Price == nil || *condo.Price != 450000 {
		t.Errorf("Price = %v, want 450000", condo.Price)
	}

	if condo.Currency != "USD" {
		t.Errorf("Currency = %q, want USD", condo.Currency)
	}

	if condo.AreaSqm == nil || *condo.AreaSqm != 83.61 {
		t.Errorf("AreaSqm = %v, want 83.61", condo.AreaSqm)
	}

	if condo.PricePerSqm == nil || *condo.PricePerSqm != 5382.13 {
		t.Errorf("PricePerSqm = %v, want 5382.13", condo.PricePerSqm)
	}

	// The deduplicated winner carries coordinates inside the polygon.
	if condo.AreaID == nil || *condo.AreaID != 7 {
		t.Errorf("AreaID = %v, want 7", condo.AreaID)
	}
}

func TestPipeline_RentalYield(t *testing.T) {
	store := newMemStore(nil)

	runPipeline(t, store, t.TempDir())

	var rental *models.Listing

	for _, row := range store.rows {
		if row.URL == "https://example.com/rent-1" {
			rental = row
		}
	}

	if rental == nil {
		t.Fatal("rental listing not loaded")
	}

	// 1500 * 12 / 300000 * 100
	if rental.YearlyYield == nil || *rental.YearlyYield != 6 {
		t.Errorf("YearlyYield = %v, want 6", rental.YearlyYield)
	}
}

// Running the same batch twice converges: same row count, second run
// counts updates instead of creates.
func TestPipeline_Rerun_Idempotent(t *testing.T) {
	store := newMemStore(nil)
	dataDir := t.TempDir()

	first := runPipeline(t, store, dataDir)
	second := runPipeline(t, store, dataDir)

	if len(store.rows) != 2 {
		t.Errorf("store holds %d rows after rerun, want 2", len(store.rows))
	}

	if first.Stats.Loaded != second.Stats.Loaded {
		t.Errorf("loaded counts differ: %d then %d", first.Stats.Loaded, second.Stats.Loaded)
	}
}

func TestPipeline_ReportArtifact(t *testing.T) {
	store := newMemStore(nil)
	dataDir := t.TempDir()

	report := runPipeline(t, store, dataDir)

	data, err := os.ReadFile(filepath.Join(dataDir, "etl_report.json"))
	if err != nil {
		t.Fatalf("report artifact missing: %v", err)
	}

	var persisted models.RunReport
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatalf("report artifact not valid JSON: %v", err)
	}

	if persisted.Stats.Loaded != report.Stats.Loaded {
		t.Errorf("persisted Loaded = %d, want %d", persisted.Stats.Loaded, report.Stats.Loaded)
	}

	if persisted.Phase != "full" {
		t.Errorf("persisted Phase = %q, want full", persisted.Phase)
	}
}
