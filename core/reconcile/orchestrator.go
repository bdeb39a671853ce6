package reconcile

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Observer receives every pipeline report, typically to update metrics.
type Observer interface {
	ObservePipeline(r PipelineReport)
}

// Orchestrator drives pipelines one after another against a mapping store.
type Orchestrator struct {
	store    Store
	refs     []Invalidator
	observer Observer
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithRefs registers the reference caches invalidated after reference-changing pipelines.
func WithRefs(refs ...Invalidator) Option {
	return func(o *Orchestrator) { o.refs = append(o.refs, refs...) }
}

// WithObserver registers a pipeline observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithClock overrides the clock used for timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator creates an Orchestrator writing to store.
func NewOrchestrator(store Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{store: store, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the pipelines sequentially. A failing pipeline is reported and
// the run moves on to the next one. Run itself never fails.
func (o *Orchestrator) Run(ctx context.Context, pipelines []*Pipeline, opts ReconcileOptions) *Report {
	report := &Report{DryRun: opts.DryRun, StartedAt: o.now().UTC()}

	for _, p := range pipelines {
		var pr PipelineReport
		if err := ctx.Err(); err != nil {
			pr = PipelineReport{EntityType: p.Type, Err: err, Error: err.Error()}
		} else {
			pr = o.RunPipeline(ctx, p, opts)
		}
		report.Pipelines = append(report.Pipelines, pr)

		if o.observer != nil {
			o.observer.ObservePipeline(pr)
		}
	}

	report.FinishedAt = o.now().UTC()
	return report
}

// RunPipeline walks one entity type through fetch, link, diff, resolve and persist.
func (o *Orchestrator) RunPipeline(ctx context.Context, p *Pipeline, opts ReconcileOptions) PipelineReport {
	start := o.now()
	l := o.logger.With(zap.String("entity_type", string(p.Type)))

	pr := PipelineReport{EntityType: p.Type}
	plan, err := o.plan(ctx, p, l)
	if err == nil {
		pr.Plan = plan
		pr.PlanSummary = plan.Summary
		pr.Executed, err = ApplyPlan(ctx, o.store, plan, opts)
	}

	if err == nil && p.InvalidatesRefs && !opts.DryRun {
		for _, ref := range o.refs {
			ref.Invalidate()
		}
	}

	pr.Duration = o.now().Sub(start)
	pr.DurationMS = pr.Duration.Milliseconds()
	if err != nil {
		pr.Err = err
		pr.Error = err.Error()
		l.Error("Pipeline failed", zap.Error(err), zap.Duration("duration", pr.Duration))
		return pr
	}

	l.Info("Pipeline finished",
		zap.Int("added", pr.Added),
		zap.Int("updated", pr.Updated),
		zap.Int("obsoleted", pr.Obsoleted),
		zap.Int("conflicted", pr.Conflicted),
		zap.Int("pending", pr.Pending),
		zap.Int("unchanged", pr.Unchanged),
		zap.Int("executed", pr.Executed),
		zap.Bool("dry_run", opts.DryRun),
		zap.Duration("duration", pr.Duration),
	)
	return pr
}

func (o *Orchestrator) plan(ctx context.Context, p *Pipeline, l *zap.Logger) (*ReconcilePlan, error) {
	a, err := o.fetch(ctx, p, p.SourceA, SourceVCOM)
	if err != nil {
		return nil, err
	}
	b, err := o.fetch(ctx, p, p.SourceB, SourceYuman)
	if err != nil {
		return nil, err
	}
	l.Debug("Fetched snapshots", zap.Int("vcom", len(a)), zap.Int("yuman", len(b)))

	linked, err := Link(a, b, p.Key)
	if err != nil {
		return nil, err
	}

	existing, err := o.store.Fetch(ctx, p.Type)
	if err != nil {
		return nil, &PersistenceError{EntityType: p.Type, Op: "fetch", Err: err}
	}
	if existing, err = enrichAll(ctx, p, existing); err != nil {
		return nil, &PersistenceError{EntityType: p.Type, Op: "enrich", Err: err}
	}

	var resolved []Conflict
	if ledger, ok := o.store.(ConflictLedger); ok {
		if resolved, err = ledger.ResolvedConflicts(ctx, p.Type); err != nil {
			return nil, &PersistenceError{EntityType: p.Type, Op: "list resolved conflicts", Err: err}
		}
	}

	incoming := linked.Entities
	if p.Scope != nil {
		existing, incoming = inScope(existing, p.Scope), inScope(incoming, p.Scope)
	}

	return BuildPlan(p, PlanInput{
		Existing: existing,
		Incoming: incoming,
		Resolved: resolved,
		Pending:  linked.Pending,
		Now:      o.now,
	})
}

func (o *Orchestrator) fetch(ctx context.Context, p *Pipeline, snap Snapshotter, source Source) ([]Entity, error) {
	if snap == nil {
		return nil, nil
	}
	records, err := snap.Snapshot(ctx)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, err
		}
		return nil, &FetchError{EntityType: p.Type, Source: source, Err: err}
	}
	for i := range records {
		records[i].Type = p.Type
		if records[i].Source == "" {
			records[i].Source = source
		}
	}
	records, err = enrichAll(ctx, p, records)
	if err != nil {
		return nil, &FetchError{EntityType: p.Type, Source: source, Err: err}
	}
	return records, nil
}

func inScope(records []Entity, scope func(Entity) bool) []Entity {
	out := records[:0:0]
	for _, e := range records {
		if scope(e) {
			out = append(out, e)
		}
	}
	return out
}

func enrichAll(ctx context.Context, p *Pipeline, records []Entity) ([]Entity, error) {
	if p.Enrich == nil {
		return records, nil
	}
	out := make([]Entity, 0, len(records))
	for _, e := range records {
		enriched, err := p.Enrich(ctx, e)
		if err != nil {
			return nil, err
		}
		out = append(out, enriched)
	}
	return out, nil
}
