// Package etl sequences the pipeline phases and owns the run report.
package etl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/magicmaxmagic/ScrappingBot/internal/config"
	"github.com/magicmaxmagic/ScrappingBot/internal/dedup"
	"github.com/magicmaxmagic/ScrappingBot/internal/extractor"
	"github.com/magicmaxmagic/ScrappingBot/internal/loader"
	"github.com/magicmaxmagic/ScrappingBot/internal/logger"
	"github.com/magicmaxmagic/ScrappingBot/internal/models"
	"github.com/magicmaxmagic/ScrappingBot/internal/normalizer"
	"github.com/magicmaxmagic/ScrappingBot/internal/validator"
	"github.com/magicmaxmagic/ScrappingBot/pkg/metadata"
)

// State is the orchestrator's position in the phase list.
type State string

// Pipeline states. Error is terminal and reachable from any state.
const (
	StateIdle         State = "idle"
	StateExtracting   State = "extracting"
	StateTransforming State = "transforming"
	StateValidating   State = "validating"
	StateLoading      State = "loading"
	StateDone         State = "done"
	StateError        State = "error"
)

// ErrUnknownPhase is returned for an unrecognized phase selection.
var ErrUnknownPhase = errors.New("unknown phase selection")

// Selection is the contiguous subset of phases to run. Validation is
// bound to the transform phase: whatever was normalized in this run is
// validated in this run.
type Selection struct {
	Name      string
	Extract   bool
	Transform bool
	Load      bool
}

// ParseSelection maps a phase flag value to a Selection.
func ParseSelection(s string) (Selection, error) {
	switch s {
	case "", "full":
		return Selection{Name: "full", Extract: true, Transform: true, Load: true}, nil
	case "extract", "extract-only":
		return Selection{Name: "extract-only", Extract: true}, nil
	case "transform", "transform-only":
		return Selection{Name: "transform-only", Transform: true}, nil
	case "load", "load-only":
		return Selection{Name: "load-only", Load: true}, nil
	case "extract-transform":
		return Selection{Name: "extract-transform", Extract: true, Transform: true}, nil
	case "transform-load":
		return Selection{Name: "transform-load", Transform: true, Load: true}, nil
	default:
		return Selection{}, fmt.Errorf("%w: %q", ErrUnknownPhase, s)
	}
}

// Orchestrator runs the pipeline phases in order and is the only
// component that accumulates cross-phase state or persists the report.
type Orchestrator struct {
	cfg         *config.Config
	logger      *logger.Logger
	extractor   *extractor.Extractor
	transformer *normalizer.Transformer
	validator   *validator.Validator
	loader      *loader.Loader
	storeErr    error

	state State
}

// NewOrchestrator wires the pipeline components. The loader may be nil
// when the selection will not include the load phase.
func NewOrchestrator(cfg *config.Config, log *logger.Logger, ldr *loader.Loader) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		logger:      log,
		extractor:   extractor.NewExtractor(log),
		transformer: normalizer.NewTransformer(cfg.Pipeline.FallbackCurrency),
		validator:   validator.NewValidator(cfg.Pipeline.StrictValidation),
		loader:      ldr,
		state:       StateIdle,
	}
}

// SetStoreError records why no destination store is available, so a
// load phase requested against a dead store reports the actual cause.
func (o *Orchestrator) SetStoreError(err error) {
	o.storeErr = err
}

// State returns the current pipeline state.
func (o *Orchestrator) State() State {
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.logger.Debug("state transition", "from", string(o.state), "to", string(s))
	o.state = s
}

// Run executes the selected phases. Exactly one report is produced in
// every terminal state; the returned error is non-nil only for fatal
// faults (category e) or cancellation.
func (o *Orchestrator) Run(ctx context.Context, sel Selection, sources []extractor.Source) (*models.RunReport, error) {
	report := models.NewRunReport(sel.Name)
	report.PipelineVersion = metadata.Version

	start := time.Now()
	o.logger.Info("starting pipeline run", "phase", sel.Name, "sources", len(sources))

	err := o.run(ctx, sel, sources, report)

	report.ComputeQualityScore()

	success := err == nil && !report.HasFatal() &&
		report.FailureRate() <= o.cfg.Pipeline.QualityThreshold
	report.Finish(success)

	if err != nil {
		o.setState(StateError)
	} else {
		o.setState(StateDone)
		report.LastPhase = lastPhaseName(sel)
	}

	if persistErr := o.persistReport(report); persistErr != nil {
		o.logger.Error("failed to persist run report", "error", persistErr)

		if err == nil {
			err = persistErr
		}
	}

	o.logger.Info("pipeline run finished",
		"success", report.Success,
		"duration", time.Since(start).Round(time.Millisecond),
		"extracted", report.Stats.Extracted,
		"loaded", report.Stats.Loaded,
		"errors", len(report.Errors),
	)

	return report, err
}

func (o *Orchestrator) run(ctx context.Context, sel Selection, sources []extractor.Source, report *models.RunReport) error {
	var (
		raws   []models.RawRecord
		passed []models.ValidatedRecord
		err    error
	)

	// Extract
	if sel.Extract {
		if err := o.checkpoint(ctx, report); err != nil {
			return err
		}

		o.setState(StateExtracting)

		raws = o.runExtract(sources, report)
		report.LastPhase = string(StateExtracting)

		if !sel.Transform {
			return o.writeRawArtifact(raws)
		}
	}

	// Transform (normalize + dedup) and validate
	if sel.Transform {
		if err := o.checkpoint(ctx, report); err != nil {
			return err
		}

		if !sel.Extract {
			raws, err = o.readRawArtifact()
			if err != nil {
				report.AddError(models.CategoryFatal, rawArtifact, err.Error())
				return err
			}

			report.Stats.Extracted = len(raws)
		}

		o.setState(StateTransforming)
		deduped := o.runTransform(raws, report)

		o.setState(StateValidating)
		passed = o.runValidate(deduped, report)
		report.LastPhase = string(StateValidating)

		if !sel.Load {
			return o.writeCleanArtifact(passed)
		}
	}

	// Load
	if sel.Load {
		if err := o.checkpoint(ctx, report); err != nil {
			return err
		}

		if !sel.Transform {
			passed, err = o.readCleanArtifact()
			if err != nil {
				report.AddError(models.CategoryFatal, cleanArtifact, err.Error())
				return err
			}

			report.Stats.Extracted = len(passed)
			report.Stats.Transformed = len(passed)
		}

		o.setState(StateLoading)

		if err := o.runLoad(ctx, passed, report); err != nil {
			return err
		}

		report.LastPhase = string(StateLoading)
	}

	return nil
}

// checkpoint honors cooperative cancellation between phases.
func (o *Orchestrator) checkpoint(ctx context.Context, report *models.RunReport) error {
	if err := ctx.Err(); err != nil {
		o.logger.Warn("run aborted", "last_phase", report.LastPhase)
		report.AddError(models.CategoryFatal, "orchestrator", fmt.Sprintf("run aborted: %v", err))

		return err
	}

	return nil
}

func (o *Orchestrator) runExtract(sources []extractor.Source, report *models.RunReport) []models.RawRecord {
	result := o.extractor.Extract(sources...)

	for _, srcErr := range result.SourceErrors {
		report.AddError(models.CategorySource, srcErr.Source, srcErr.Err.Error())
	}

	report.Stats.Extracted = len(result.Records)
	o.logger.Info("extract phase complete",
		"records", len(result.Records), "skipped_sources", len(result.SourceErrors))

	return result.Records
}

func (o *Orchestrator) runTransform(raws []models.RawRecord, report *models.RunReport) []models.NormalizedRecord {
	normalized := make([]models.NormalizedRecord, 0, len(raws))

	for _, raw := range raws {
		rec, notes := o.transformer.Transform(raw)

		for _, note := range notes {
			report.AddError(models.CategoryParse, rec.URL, note)
		}

		normalized = append(normalized, rec)
	}

	report.Stats.Transformed = len(normalized)

	deduped := dedup.Dedup(normalized)
	report.Stats.Deduplicated = len(normalized) - len(deduped)

	o.logger.Info("transform phase complete",
		"transformed", len(normalized), "deduplicated", report.Stats.Deduplicated)

	return deduped
}

func (o *Orchestrator) runValidate(records []models.NormalizedRecord, report *models.RunReport) []models.ValidatedRecord {
	passed, failed := o.validator.ValidateBatch(records)

	for _, rec := range failed {
		for _, reason := range rec.Reasons {
			report.AddError(models.CategoryValidation, rec.URL, reason)
		}
	}

	report.Stats.Rejected = len(failed)
	o.logger.Info("validate phase complete", "passed", len(passed), "rejected", len(failed))

	return passed
}

func (o *Orchestrator) runLoad(ctx context.Context, records []models.ValidatedRecord, report *models.RunReport) error {
	if o.loader == nil {
		err := o.storeErr
		if err == nil {
			err = errors.New("load phase requested without a destination store")
		}

		report.AddError(models.CategoryFatal, "loader", err.Error())

		return err
	}

	result, err := o.loader.Load(ctx, records)
	if err != nil {
		report.AddError(models.CategoryFatal, "loader", err.Error())
		return err
	}

	for _, failure := range result.Failures {
		report.AddError(models.CategoryWrite, failure.URL, failure.Err.Error())
	}

	report.Stats.Loaded = result.Loaded
	report.Stats.WriteFailures = len(result.Failures)

	o.logger.Info("load phase complete",
		"loaded", result.Loaded, "created", result.Created,
		"updated", result.Updated, "failed", len(result.Failures))

	o.runMaintenance(ctx, report)

	return nil
}

// runMaintenance marks stale rows and prunes old inactive ones after a
// successful load. Failures here are recorded but never abort the run.
func (o *Orchestrator) runMaintenance(ctx context.Context, report *models.RunReport) {
	if hours := o.cfg.Pipeline.MarkStaleHours; hours > 0 {
		count, err := o.loader.MarkStale(ctx, time.Duration(hours)*time.Hour)
		if err != nil {
			report.AddError(models.CategoryWrite, "maintenance", err.Error())
			o.logger.Error("failed to mark stale listings", "error", err)
		} else if count > 0 {
			o.logger.Info("marked stale listings", "count", count)
		}
	}

	if days := o.cfg.Pipeline.CleanupDays; days > 0 {
		count, err := o.loader.CleanupInactive(ctx, time.Duration(days)*24*time.Hour)
		if err != nil {
			report.AddError(models.CategoryWrite, "maintenance", err.Error())
			o.logger.Error("failed to cleanup inactive listings", "error", err)
		} else if count > 0 {
			o.logger.Info("cleaned up inactive listings", "count", count)
		}
	}
}

func lastPhaseName(sel Selection) string {
	switch {
	case sel.Load:
		return string(StateLoading)
	case sel.Transform:
		return string(StateValidating)
	case sel.Extract:
		return string(StateExtracting)
	default:
		return string(StateIdle)
	}
}
