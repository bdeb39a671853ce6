package reconcile

import (
	"errors"
	"time"
)

// PipelineReport is the outcome of one pipeline run.
type PipelineReport struct {
	EntityType EntityType `json:"entity_type"`
	PlanSummary

	// Executed is the number of writes performed.
	Executed int `json:"executed"`

	// Err is the error that stopped the pipeline, if any.
	Err error `json:"-"`
	// Error is Err rendered for archived reports.
	Error string `json:"error,omitempty"`

	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`

	// Plan is the computed plan, nil when the pipeline failed before planning.
	Plan *ReconcilePlan `json:"-"`
}

// FetchFailed reports whether the pipeline stopped on a fetch failure.
func (r PipelineReport) FetchFailed() bool {
	var fe *FetchError
	return errors.As(r.Err, &fe)
}

// Report aggregates the pipelines of one run for operator visibility.
type Report struct {
	RunID      string           `json:"run_id"`
	Command    string           `json:"command"`
	DryRun     bool             `json:"dry_run"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Pipelines  []PipelineReport `json:"pipelines"`
}

// FetchFailed reports whether any pipeline failed to fetch a snapshot.
// It drives the process exit status.
func (r *Report) FetchFailed() bool {
	for _, p := range r.Pipelines {
		if p.FetchFailed() {
			return true
		}
	}
	return false
}

// Failed reports whether any pipeline failed, whatever the cause.
func (r *Report) Failed() bool {
	for _, p := range r.Pipelines {
		if p.Err != nil {
			return true
		}
	}
	return false
}

// Err joins the pipeline errors, nil when every pipeline succeeded.
func (r *Report) Err() error {
	var errs []error
	for _, p := range r.Pipelines {
		if p.Err != nil {
			errs = append(errs, p.Err)
		}
	}
	return errors.Join(errs...)
}

// Totals sums the counts of every pipeline.
func (r *Report) Totals() PlanSummary {
	var t PlanSummary
	for _, p := range r.Pipelines {
		t.Added += p.Added
		t.Updated += p.Updated
		t.Obsoleted += p.Obsoleted
		t.Conflicted += p.Conflicted
		t.Unchanged += p.Unchanged
		t.Pending += p.Pending
	}
	return t
}

// Pipeline returns the report of an entity type.
func (r *Report) Pipeline(t EntityType) (PipelineReport, bool) {
	for _, p := range r.Pipelines {
		if p.EntityType == t {
			return p, true
		}
	}
	return PipelineReport{}, false
}
