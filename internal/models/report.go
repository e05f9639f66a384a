package models

import "time"

// ErrorCategory classifies a recovered pipeline error.
type ErrorCategory string

// Error categories, in increasing severity. Only Fatal aborts a run.
const (
	CategorySource     ErrorCategory = "source_error"
	CategoryParse      ErrorCategory = "parse_error"
	CategoryValidation ErrorCategory = "validation_failure"
	CategoryWrite      ErrorCategory = "write_failure"
	CategoryFatal      ErrorCategory = "fatal_error"
)

// ErrorDescriptor is one recovered error recorded in the run report.
type ErrorDescriptor struct {
	Category ErrorCategory `json:"category"`
	Source   string        `json:"source,omitempty"`
	Message  string        `json:"message"`
	Time     time.Time     `json:"time"`
}

// RunStats holds the per-run record counters.
type RunStats struct {
	Extracted     int     `json:"extracted_records"`
	Transformed   int     `json:"transformed_records"`
	Deduplicated  int     `json:"deduplicated"`
	Rejected      int     `json:"rejected"`
	Loaded        int     `json:"loaded_records"`
	WriteFailures int     `json:"write_failures"`
	QualityScore  float64 `json:"quality_score"`
}

// RunReport is the structured summary produced once per pipeline
// invocation. It is appended to during the run and persisted at run end,
// never mutated afterwards.
type RunReport struct {
	Phase           string            `json:"phase"`
	PipelineVersion string            `json:"pipeline_version,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
	FinishedAt      time.Time         `json:"finished_at,omitempty"`
	DurationSeconds float64           `json:"duration_seconds"`
	Success         bool              `json:"success"`
	LastPhase       string            `json:"last_completed_phase,omitempty"`
	Stats           RunStats          `json:"stats"`
	Errors          []ErrorDescriptor `json:"errors"`
}

// NewRunReport creates a report for the requested phase selection.
func NewRunReport(phase string) *RunReport {
	return &RunReport{
		Phase:     phase,
		Timestamp: time.Now().UTC(),
		Errors:    []ErrorDescriptor{},
	}
}

// AddError appends an error descriptor to the report.
func (r *RunReport) AddError(category ErrorCategory, source, message string) {
	r.Errors = append(r.Errors, ErrorDescriptor{
		Category: category,
		Source:   source,
		Message:  message,
		Time:     time.Now().UTC(),
	})
}

// HasFatal reports whether any fatal error was recorded.
func (r *RunReport) HasFatal() bool {
	for _, e := range r.Errors {
		if e.Category == CategoryFatal {
			return true
		}
	}

	return false
}

// FailureRate returns the fraction of extracted records that were
// rejected or failed to write. Zero extracted records rate as 0.
func (r *RunReport) FailureRate() float64 {
	if r.Stats.Extracted == 0 {
		return 0
	}

	failed := r.Stats.Rejected + r.Stats.WriteFailures

	return float64(failed) / float64(r.Stats.Extracted)
}

// ComputeQualityScore sets the 0-100 ratio of loaded to extracted
// records. Runs that extracted nothing score 100.
func (r *RunReport) ComputeQualityScore() {
	if r.Stats.Extracted == 0 {
		r.Stats.QualityScore = 100
		return
	}

	score := float64(r.Stats.Loaded) / float64(r.Stats.Extracted) * 100
	if score < 0 {
		score = 0
	}

	r.Stats.QualityScore = score
}

// Finish stamps the end time, duration, and success flag.
func (r *RunReport) Finish(success bool) {
	r.FinishedAt = time.Now().UTC()
	r.DurationSeconds = r.FinishedAt.Sub(r.Timestamp).Seconds()
	r.Success = success
}
