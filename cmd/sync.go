package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Centroplan-france/vcom-yuman-sync/core/logger"
	"github.com/Centroplan-france/vcom-yuman-sync/core/reconcile"
	"github.com/Centroplan-france/vcom-yuman-sync/core/storage"
	"github.com/Centroplan-france/vcom-yuman-sync/feature/push"
	"github.com/Centroplan-france/vcom-yuman-sync/feature/ticket"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the sync commands
	dryRunSync bool
	onlyType   string
	skipRules  bool
	skipPush   bool
	siteKey    string
)

// syncCmd is the parent command for all reconciliation runs.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile VCOM and Yuman through the mapping database",
	Long: `Reconcile entity state between VCOM and Yuman.

Each entity type runs as an isolated pipeline: a failing pipeline is reported
and the run continues with the next one. The command exits non-zero when any
snapshot could not be fetched.`,
}

// syncSitesCmd reconciles sites then equipment, then pushes VCOM-only sites to Yuman.
var syncSitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "Reconcile sites and equipment, then create missing Yuman sites",
	Long: `Reconcile VCOM systems with Yuman sites, then modules, inverters and PV
strings with Yuman materials.

Active VCOM sites still unknown to Yuman are then created there, with their
plant, module and inverter materials, and linked in the mapping database.
Sites without a client mapping are skipped. --dry-run lists them instead.

Examples:
  # Plan only
  vysync sync sites --dry-run

  # Equipment only
  vysync sync sites --only equipment

  # One plant
  vysync sync sites --site-key TS9A8`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		if err := rt.cfg.Validate(); err != nil {
			return err
		}
		defer rt.logger.Sync()
		return runSync(cmd.Context(), rt, "sync sites", rt.sitePipelines(siteKey), applyPush)
	},
}

// syncTicketsCmd reconciles tickets, work orders and the ticket rules.
var syncTicketsCmd = &cobra.Command{
	Use:   "tickets",
	Short: "Reconcile tickets and work orders, then apply the ticket rules",
	Long: `Mirror VCOM tickets and Yuman work orders into the mapping database,
merge work order status history, then assign open tickets to active work orders
and close tickets whose work order is closed.

The ticket rules write to VCOM and Yuman; they are skipped with --dry-run or
--skip-rules.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		if err := rt.cfg.Validate(); err != nil {
			return err
		}
		defer rt.logger.Sync()
		return runSync(cmd.Context(), rt, "sync tickets", rt.ticketPipelines(), applyRules)
	},
}

func init() {
	syncCmd.PersistentFlags().BoolVar(&dryRunSync, "dry-run", false, "Plan everything, persist nothing")
	syncCmd.PersistentFlags().StringVar(&onlyType, "only", "", "Run a single entity type (site, equipment, ticket, workorder)")
	syncTicketsCmd.Flags().BoolVar(&skipRules, "skip-rules", false, "Do not apply the ticket/work order rules")
	syncSitesCmd.Flags().StringVar(&siteKey, "site-key", "", "Reconcile and push a single VCOM system")
	syncSitesCmd.Flags().BoolVar(&skipPush, "skip-push", false, "Do not create missing sites in Yuman")

	syncCmd.AddCommand(syncSitesCmd)
	syncCmd.AddCommand(syncTicketsCmd)
	RootCmd.AddCommand(syncCmd)
}

// runReport is the archived outcome of one command run.
type runReport struct {
	*reconcile.Report
	Rules      *ticket.RuleReport `json:"rules,omitempty"`
	RulesError string             `json:"rules_error,omitempty"`
	Push       *push.Report       `json:"push,omitempty"`
	PushError  string             `json:"push_error,omitempty"`
}

// followUp acts on the sources once the pipelines of a run are done.
type followUp func(ctx context.Context, rt *runtime, l *zap.Logger, run *runReport)

func runSync(parent context.Context, rt *runtime, command string, pipelines []*reconcile.Pipeline, after followUp) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipelines, err := selectPipelines(pipelines, onlyType)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	l := logger.WithRun(rt.logger, runID, command)
	l.Info("Starting reconciliation", zap.Bool("dry_run", dryRunSync), zap.Int("pipelines", len(pipelines)), zap.String("site_key", siteKey))

	orch := reconcile.NewOrchestrator(rt.store,
		reconcile.WithLogger(l),
		reconcile.WithRefs(rt.sites, rt.categories),
		reconcile.WithObserver(rt.metrics),
	)
	report := orch.Run(ctx, pipelines, reconcile.ReconcileOptions{DryRun: dryRunSync})
	report.RunID = runID
	report.Command = command

	run := &runReport{Report: report}
	if after != nil {
		after(ctx, rt, l, run)
	}

	printRunReport(l, run)
	archiveReport(ctx, rt, l, run)

	grouping := map[string]string{"command": strings.ReplaceAll(command, " ", "_")}
	if err := rt.metrics.Push(ctx, rt.cfg.Metrics, grouping); err != nil {
		l.Warn("Failed to push metrics", zap.Error(err))
	}

	if report.FetchFailed() {
		return fmt.Errorf("run %s: %w", runID, report.Err())
	}
	return nil
}

// selectPipelines keeps the pipeline of one entity type when only is set.
func selectPipelines(pipelines []*reconcile.Pipeline, only string) ([]*reconcile.Pipeline, error) {
	if only == "" {
		return pipelines, nil
	}
	names := make([]string, 0, len(pipelines))
	for _, p := range pipelines {
		if string(p.Type) == only {
			return []*reconcile.Pipeline{p}, nil
		}
		names = append(names, string(p.Type))
	}
	return nil, fmt.Errorf("unknown entity type %q, expected one of %s", only, strings.Join(names, ", "))
}

// applyRules runs the ticket rules when the run wrote to the store and every
// pipeline succeeded.
func applyRules(ctx context.Context, rt *runtime, l *zap.Logger, run *runReport) {
	switch {
	case dryRunSync:
		l.Info("Dry-run mode: ticket rules skipped")
		return
	case skipRules:
		l.Info("Ticket rules skipped")
		return
	case run.Failed():
		l.Warn("Ticket rules skipped after a failed pipeline")
		return
	}

	rr, err := rt.rules().Run(ctx)
	run.Rules = &rr
	if err != nil {
		run.RulesError = err.Error()
		l.Error("Ticket rules failed", zap.Error(err))
	}
}

// applyPush creates the VCOM-only sites in Yuman once sites and equipment are
// reconciled. Under dry-run it only reports what it would create.
func applyPush(ctx context.Context, rt *runtime, l *zap.Logger, run *runReport) {
	switch {
	case skipPush:
		l.Info("Yuman push skipped")
		return
	case run.Failed():
		l.Warn("Yuman push skipped after a failed pipeline")
		return
	}

	pr, err := rt.pusher().Run(ctx, push.Options{DryRun: dryRunSync, SiteKey: siteKey})
	run.Push = &pr
	if err != nil {
		run.PushError = err.Error()
		l.Error("Yuman push failed", zap.Error(err))
	}
	if pr.Sites > 0 {
		rt.sites.Invalidate()
	}
}

// printRunReport prints a formatted run report using logger.
func printRunReport(l *zap.Logger, run *runReport) {
	t := run.Totals()
	l.Info("Reconciliation report",
		zap.Bool("dry_run", run.DryRun),
		zap.Int("added", t.Added),
		zap.Int("updated", t.Updated),
		zap.Int("obsoleted", t.Obsoleted),
		zap.Int("conflicted", t.Conflicted),
		zap.Int("pending", t.Pending),
		zap.Int("unchanged", t.Unchanged),
		zap.Duration("duration", run.FinishedAt.Sub(run.StartedAt)),
	)

	for _, p := range run.Pipelines {
		if p.Err != nil {
			l.Error("Pipeline failed", zap.String("entity_type", string(p.EntityType)), zap.Error(p.Err))
			continue
		}
		if p.Plan == nil {
			continue
		}

		// Show sample of conflicts (max 5 for logger)
		conflicts := p.Plan.Conflicts()
		maxShow := min(len(conflicts), 5)
		for _, c := range conflicts[:maxShow] {
			l.Info("Sample conflict",
				zap.String("entity_type", string(c.EntityType)),
				zap.String("local_key", c.LocalKey),
				zap.String("field", c.FieldName),
				zap.Any("stored", c.ValueA),
				zap.Any("incoming", c.ValueB),
			)
		}
		if len(conflicts) > maxShow {
			l.Info("Additional conflicts not shown", zap.Int("count", len(conflicts)-maxShow))
		}
	}

	if run.Push != nil {
		l.Info("Yuman push report",
			zap.Int("sites", run.Push.Sites),
			zap.Int("materials", run.Push.Materials),
			zap.Int("planned", run.Push.Planned),
			zap.Int("skipped", run.Push.Skipped),
			zap.Int("failed", run.Push.Failed),
		)
	}

	if run.Rules != nil {
		l.Info("Ticket rules report",
			zap.Int("assigned", run.Rules.Assigned),
			zap.Int("closed", run.Rules.Closed),
			zap.Int("failed", run.Rules.Failed),
		)
	}
}

// archiveReport uploads the run report and prunes expired ones. Archive
// failures are logged and never change the exit status.
func archiveReport(ctx context.Context, rt *runtime, l *zap.Logger, run *runReport) {
	cfg := rt.cfg.Storage
	if !cfg.Enabled {
		return
	}

	client, err := storage.NewClient(cfg)
	if err != nil {
		l.Warn("Failed to create storage client", zap.Error(err))
		return
	}
	archiver := storage.NewArchiver(client, cfg)
	if err := archiver.EnsureBucket(ctx); err != nil {
		l.Warn("Report archive unavailable", zap.Error(err))
		return
	}

	key := archiver.ReportKey(run.StartedAt, run.Command, run.RunID)
	if err := archiver.Save(ctx, key, run); err != nil {
		l.Warn("Failed to archive report", zap.Error(err))
		return
	}
	l.Info("Report archived", zap.String("bucket", archiver.Bucket()), zap.String("key", key))

	if cfg.RetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -cfg.RetentionDays)
		removed, err := archiver.Prune(ctx, cutoff)
		if err != nil {
			l.Warn("Failed to prune archived reports", zap.Error(err))
			return
		}
		if removed > 0 {
			l.Info("Pruned archived reports", zap.Int("count", removed))
		}
	}
}
