package etl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/magicmaxmagic/ScrappingBot/internal/config"
	"github.com/magicmaxmagic/ScrappingBot/internal/extractor"
	"github.com/magicmaxmagic/ScrappingBot/internal/loader"
	"github.com/magicmaxmagic/ScrappingBot/internal/logger"
	"github.com/magicmaxmagic/ScrappingBot/internal/models"
)

// memStore is an in-memory loader.Store for orchestrator tests.
type memStore struct {
	mu   sync.Mutex
	rows map[string]*models.Listing

	upsertErr error
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]*models.Listing)}
}

func (m *memStore) Ping(ctx context.Context) error { return nil }

func (m *memStore) EnsureSchema(ctx context.Context) error { return nil }

func (m *memStore) Areas(ctx context.Context) ([]models.Area, error) { return nil, nil }

func (m *memStore) Close() {}

func (m *memStore) UpsertArea(ctx context.Context, area *models.Area) (int64, error) {
	return 1, nil
}

func (m *memStore) UpsertListing(ctx context.Context, listing *models.Listing) (bool, error) {
	if m.upsertErr != nil {
		return false, m.upsertErr
	}

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

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Pipeline.DataDir = t.TempDir()

	return cfg
}

func testOrchestrator(t *testing.T, cfg *config.Config, store loader.Store) *Orchestrator {
	t.Helper()

	log := logger.NewLogger("error", "text")

	var ldr *loader.Loader
	if store != nil {
		ldr = loader.NewLoader(store, log, 2, 100)
	}

	return NewOrchestrator(cfg, log, ldr)
}

// Three raw records: a valid one, a sparser duplicate of it, and one
// that fails validation.
const sampleBatch = `[
	{"url": "https://example.com/a", "title": "Condo A", "price": "$450,000", "currency": "$", "area": "900 sq ft"},
	{"url": "https://example.com/a", "title": "Condo A", "price": "$450,000", "currency": "$"},
	{"url": "https://example.com/b", "title": "No Price"}
]`

func sampleSource() extractor.Source {
	return extractor.Source{Name: "sample", Reader: strings.NewReader(sampleBatch)}
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		input string
		want  Selection
	}{
		{"", Selection{Name: "full", Extract: true, Transform: true, Load: true}},
		{"full", Selection{Name: "full", Extract: true, Transform: true, Load: true}},
		{"extract", Selection{Name: "extract-only", Extract: true}},
		{"transform-only", Selection{Name: "transform-only", Transform: true}},
		{"load", Selection{Name: "load-only", Load: true}},
		{"extract-transform", Selection{Name: "extract-transform", Extract: true, Transform: true}},
		{"transform-load", Selection{Name: "transform-load", Transform: true, Load: true}},
	}

	for _, tt := range tests {
		got, err := ParseSelection(tt.input)
		if err != nil {
			t.Errorf("ParseSelection(%q) failed: %v", tt.input, err)
			continue
		}

		if got != tt.want {
			t.Errorf("ParseSelection(%q) = %+v, want %+v", tt.input, got, tt.want)
		}
	}
}

func TestParseSelection_Unknown(t *testing.T) {
	_, err := ParseSelection("validate")
	if !errors.Is(err, ErrUnknownPhase) {
		t.Errorf("error = %v, want ErrUnknownPhase", err)
	}
}

func TestOrchestrator_Run_Full(t *testing.T) {
	cfg := testConfig(t)
	store := newMemStore()
	o := testOrchestrator(t, cfg, store)

	sel, _ := ParseSelection("full")

	report, err := o.Run(context.Background(), sel, []extractor.Source{sampleSource()})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if o.State() != StateDone {
		t.Errorf("state = %s, want done", o.State())
	}

	if report.Stats.Extracted != 3 {
		t.Errorf("Extracted = %d, want 3", report.Stats.Extracted)
	}

	if report.Stats.Deduplicated != 1 {
		t.Errorf("Deduplicated = %d, want 1", report.Stats.Deduplicated)
	}

	if report.Stats.Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", report.Stats.Rejected)
	}

	if report.Stats.Loaded != 1 {
		t.Errorf("Loaded = %d, want 1", report.Stats.Loaded)
	}

	// One rejection out of three extracted stays under the default
	// threshold of 0.5.
	if !report.Success {
		t.Errorf("Success = false, errors: %v", report.Errors)
	}

	if len(store.rows) != 1 {
		t.Errorf("store holds %d rows, want 1", len(store.rows))
	}
}

func TestOrchestrator_Run_WritesReportFile(t *testing.T) {
	cfg := testConfig(t)
	o := testOrchestrator(t, cfg, newMemStore())

	sel, _ := ParseSelection("full")

	if _, err := o.Run(context.Background(), sel, []extractor.Source{sampleSource()}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if _, err := os.Stat(o.ReportPath()); err != nil {
		t.Errorf("report file missing: %v", err)
	}
}

// A run over zero records is a success and still produces a report.
func TestOrchestrator_Run_EmptyInput(t *testing.T) {
	cfg := testConfig(t)
	o := testOrchestrator(t, cfg, newMemStore())

	sel, _ := ParseSelection("full")

	empty := extractor.Source{Name: "empty", Reader: strings.NewReader("[]")}

	report, err := o.Run(context.Background(), sel, []extractor.Source{empty})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !report.Success {
		t.Error("an empty run should succeed")
	}

	if report.Stats.QualityScore != 100 {
		t.Errorf("QualityScore = %v, want 100", report.Stats.QualityScore)
	}

	if _, err := os.Stat(o.ReportPath()); err != nil {
		t.Errorf("report file missing: %v", err)
	}
}

func TestOrchestrator_Run_PartialPhases(t *testing.T) {
	cfg := testConfig(t)

	// Extract only: raw records land in the handoff artifact.
	extractRun := testOrchestrator(t, cfg, nil)
	sel, _ := ParseSelection("extract")

	report, err := extractRun.Run(context.Background(), sel, []extractor.Source{sampleSource()})
	if err != nil {
		t.Fatalf("extract run failed: %v", err)
	}

	if report.Stats.Extracted != 3 {
		t.Errorf("Extracted = %d, want 3", report.Stats.Extracted)
	}

	if _, err := os.Stat(filepath.Join(cfg.Pipeline.DataDir, rawArtifact)); err != nil {
		t.Fatalf("raw artifact missing: %v", err)
	}

	// Transform only: picks up the artifact from the previous run.
	transformRun := testOrchestrator(t, cfg, nil)
	sel, _ = ParseSelection("transform")

	report, err = transformRun.Run(context.Background(), sel, nil)
	if err != nil {
		t.Fatalf("transform run failed: %v", err)
	}

	if report.Stats.Transformed != 3 || report.Stats.Rejected != 1 {
		t.Errorf("stats = %+v", report.Stats)
	}

	if _, err := os.Stat(filepath.Join(cfg.Pipeline.DataDir, cleanArtifact)); err != nil {
		t.Fatalf("clean artifact missing: %v", err)
	}

	// Load only: picks up the validated records.
	store := newMemStore()
	loadRun := testOrchestrator(t, cfg, store)
	sel, _ = ParseSelection("load")

	report, err = loadRun.Run(context.Background(), sel, nil)
	if err != nil {
		t.Fatalf("load run failed: %v", err)
	}

	if report.Stats.Loaded != 1 {
		t.Errorf("Loaded = %d, want 1", report.Stats.Loaded)
	}

	if len(store.rows) != 1 {
		t.Errorf("store holds %d rows, want 1", len(store.rows))
	}
}

func TestOrchestrator_Run_TransformWithoutArtifact(t *testing.T) {
	cfg := testConfig(t)
	o := testOrchestrator(t, cfg, nil)

	sel, _ := ParseSelection("transform")

	report, err := o.Run(context.Background(), sel, nil)
	if err == nil {
		t.Fatal("expected error when the raw artifact is missing")
	}

	if !report.HasFatal() {
		t.Error("missing artifact should be recorded as fatal")
	}

	if o.State() != StateError {
		t.Errorf("state = %s, want error", o.State())
	}
}

func TestOrchestrator_Run_LoadWithoutStore(t *testing.T) {
	cfg := testConfig(t)
	o := testOrchestrator(t, cfg, nil)
	o.SetStoreError(errors.New("connection refused"))

	sel, _ := ParseSelection("full")

	report, err := o.Run(context.Background(), sel, []extractor.Source{sampleSource()})
	if err == nil {
		t.Fatal("expected a fatal error without a store")
	}

	if report.Success {
		t.Error("Success should be false")
	}

	if !report.HasFatal() {
		t.Error("report should carry the fatal entry")
	}
}

func TestOrchestrator_Run_FatalStoreError(t *testing.T) {
	cfg := testConfig(t)
	store := newMemStore()
	store.upsertErr = errors.New("write: connection reset")

	o := testOrchestrator(t, cfg, store)

	sel, _ := ParseSelection("full")

	report, err := o.Run(context.Background(), sel, []extractor.Source{sampleSource()})
	if err != nil {
		t.Fatalf("per-record write failures must not abort the run: %v", err)
	}

	if report.Stats.WriteFailures != 1 {
		t.Errorf("WriteFailures = %d, want 1", report.Stats.WriteFailures)
	}
}

// Rejections above the quality threshold fail the run without a fatal
// error.
func TestOrchestrator_Run_QualityThresholdExceeded(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pipeline.QualityThreshold = 0

	o := testOrchestrator(t, cfg, newMemStore())

	sel, _ := ParseSelection("full")

	report, err := o.Run(context.Background(), sel, []extractor.Source{sampleSource()})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Success {
		t.Error("Success should be false above the threshold")
	}

	if report.HasFatal() {
		t.Error("threshold failure is not a fatal error")
	}
}

func TestOrchestrator_Run_Cancelled(t *testing.T) {
	cfg := testConfig(t)
	o := testOrchestrator(t, cfg, newMemStore())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sel, _ := ParseSelection("full")

	report, err := o.Run(ctx, sel, []extractor.Source{sampleSource()})
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}

	if !report.HasFatal() {
		t.Error("cancellation should be recorded as fatal")
	}
}
