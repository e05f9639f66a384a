package etl

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/magicmaxmagic/ScrappingBot/internal/models"
)

// Intermediate artifact and report file names under the data directory.
// Partial runs hand records to the next invocation through these files.
const (
	rawArtifact   = "raw_records.json"
	cleanArtifact = "cleaned_listings.json"
	reportFile    = "etl_report.json"
)

func (o *Orchestrator) artifactPath(name string) string {
	return filepath.Join(o.cfg.Pipeline.DataDir, name)
}

func (o *Orchestrator) writeRawArtifact(records []models.RawRecord) error {
	return o.writeJSON(rawArtifact, records)
}

func (o *Orchestrator) readRawArtifact() ([]models.RawRecord, error) {
	var records []models.RawRecord
	if err := o.readJSON(rawArtifact, &records); err != nil {
		return nil, err
	}

	return records, nil
}

func (o *Orchestrator) writeCleanArtifact(records []models.ValidatedRecord) error {
	return o.writeJSON(cleanArtifact, records)
}

func (o *Orchestrator) readCleanArtifact() ([]models.ValidatedRecord, error) {
	var records []models.ValidatedRecord
	if err := o.readJSON(cleanArtifact, &records); err != nil {
		return nil, err
	}

	return records, nil
}

// persistReport writes the run report exactly once, at run end.
func (o *Orchestrator) persistReport(report *models.RunReport) error {
	return o.writeJSON(reportFile, report)
}

// ReportPath returns where the run report is persisted.
func (o *Orchestrator) ReportPath() string {
	return o.artifactPath(reportFile)
}

func (o *Orchestrator) writeJSON(name string, v any) error {
	path := o.artifactPath(name)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	o.logger.Debug("artifact written", "path", path)

	return nil
}

func (o *Orchestrator) readJSON(name string, v any) error {
	path := o.artifactPath(name)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s (run the preceding phase first): %w", name, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}

	return nil
}
