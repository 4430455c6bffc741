package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"commentarycollection/internal/catalog"
	"commentarycollection/internal/classify"
	"commentarycollection/internal/config"
	"commentarycollection/internal/discovery"
	"commentarycollection/internal/history"
	"commentarycollection/internal/ignorelist"
	"commentarycollection/internal/logging"
	"commentarycollection/internal/notifications"
	"commentarycollection/internal/reconcile"
	"commentarycollection/internal/services"
	"commentarycollection/internal/services/plex"
)

// Recorder persists a finished run.
type Recorder interface {
	Record(ctx context.Context, run history.Run, items []history.AddedItem) error
}

// Options tune a single run.
type Options struct {
	DryRun bool
	// Discover overrides discovery.enabled when non-nil.
	Discover *bool
	// Decider answers discovery prompts. Nil reports candidates only.
	Decider discovery.Decider
	// Recorder receives the finished run when set.
	Recorder Recorder
	// Notifier announces the finished run when set.
	Notifier notifications.Service
	// ProgressInterval throttles progress logs (default 2s).
	ProgressInterval time.Duration
	// Now overrides the clock.
	Now func() time.Time
}

// Runner executes scans against one Plex server.
type Runner struct {
	cfg    *config.Config
	client *plex.Client
	logger *slog.Logger
	opts   Options
}

// NewRunner constructs a Runner.
func NewRunner(cfg *config.Config, client *plex.Client, logger *slog.Logger, opts Options) *Runner {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{
		cfg:    cfg,
		client: client,
		logger: logging.NewComponentLogger(logger, "workflow"),
		opts:   opts,
	}
}

func (r *Runner) discoveryEnabled() bool {
	if r.opts.Discover != nil {
		return *r.opts.Discover
	}
	return r.cfg.Discovery.Enabled
}

// Run performs one scan. The returned Summary is always populated; the error
// is non-nil when the run ended early.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	summary := Summary{
		RunID:      uuid.NewString(),
		Collection: r.cfg.Collection.Name,
		DryRun:     r.opts.DryRun,
		StartedAt:  r.opts.Now(),
	}
	ctx = services.WithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, r.logger)

	err := r.run(ctx, logger, &summary)
	summary.Err = err
	summary.FinishedAt = r.opts.Now()
	r.record(ctx, logger, summary)
	r.notify(ctx, logger, summary)

	logger.Info("scan finished",
		logging.Int("processed", summary.Processed),
		logging.Int("added", summary.Added()),
		logging.Int("failed", summary.Failed()),
		logging.Duration("duration", summary.Duration()),
	)
	return summary, err
}

func (r *Runner) run(ctx context.Context, logger *slog.Logger, summary *Summary) error {
	section, err := r.client.FindSection(services.WithPhase(ctx, "connect"), r.cfg.Plex.Section)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", r.client.BaseURL(), err)
	}
	if !section.Supported() {
		return services.Wrap(services.ErrConfiguration, "connect", "resolve section",
			fmt.Sprintf("section %s (%s) has type %q; only movie and show sections are supported", section.Key, section.Title, section.Type), nil)
	}
	summary.Section = section
	logger = logger.With(logging.String("section", section.Title))
	logger.Info("connected to plex", logging.String("server", r.client.BaseURL()), logging.String("section_type", section.Type))

	state, err := r.inventory(ctx, logger, section, summary)
	if err != nil {
		return err
	}
	summary.Commentary = state.ItemsWithCommentary()
	logger.Info("classification complete",
		logging.Int("items", state.Len()),
		logging.Int("with_commentary", len(summary.Commentary)),
	)

	reconciler := reconcile.New(r.client.Writer(section),
		reconcile.WithDryRun(r.opts.DryRun),
		reconcile.WithLogger(logging.NewComponentLogger(logger, "reconcile")),
	)
	summary.Reconcile = reconciler.Reconcile(ctx, state, summary.Collection)
	if err := ctx.Err(); err != nil {
		return err
	}

	if !r.discoveryEnabled() {
		return nil
	}
	return r.discover(ctx, logger, state, reconciler, summary)
}

// inventory lists the section and classifies every item, one batch at a time.
func (r *Runner) inventory(ctx context.Context, logger *slog.Logger, section plex.Section, summary *Summary) (*catalog.State, error) {
	stubs, err := r.client.ListItems(services.WithPhase(ctx, "list"), section.Key, section.ItemType())
	if err != nil {
		return nil, fmt.Errorf("list section %s: %w", section.Key, err)
	}
	keys := make([]string, 0, len(stubs))
	for _, stub := range stubs {
		if stub.RatingKey != "" {
			keys = append(keys, stub.RatingKey)
		}
	}
	summary.Listed = len(keys)
	logger.Info("found items to scan", logging.Int("items", len(keys)))

	classifier := classify.New(classify.NewMatcher(r.cfg.Collection.Keywords), logging.NewComponentLogger(logger, "classify"))
	state := catalog.NewState()
	sampler := logging.NewProgressSampler(r.opts.ProgressInterval)
	sampler.Start()

	for idx, batch := range plex.Batch(keys, plex.MaxBatchSize) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batchCtx := services.WithBatch(services.WithPhase(ctx, "fetch"), idx+1)
		records, err := r.client.FetchMetadataBatch(batchCtx, batch)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			summary.FailedBatches++
			summary.FetchFailed += len(batch)
			logging.WarnWithContext(logging.WithContext(batchCtx, logger), "metadata batch skipped", "batch_skipped",
				logging.String("first_item_id", batch[0]),
				logging.String("last_item_id", batch[len(batch)-1]),
				logging.Int("items", len(batch)),
				logging.String(logging.FieldErrorKind, services.Kind(err)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "items in this batch are not classified this run"),
			)
			continue
		}
		for _, record := range records {
			state.Add(classifier.Classify(record))
		}
		summary.Processed = state.Len()
		if sampler.ShouldLog(summary.Processed, len(keys)) {
			logger.Info("scan progress",
				logging.Int("processed", summary.Processed),
				logging.Int("total", len(keys)),
				logging.String("percent", percent(summary.Processed, len(keys))),
				logging.Duration("elapsed", sampler.Elapsed().Round(100*time.Millisecond)),
			)
		}
	}
	return state, nil
}

func (r *Runner) discover(ctx context.Context, logger *slog.Logger, state *catalog.State, reconciler *reconcile.Reconciler, summary *Summary) error {
	ctx = services.WithPhase(ctx, "discovery")
	logger = logging.NewComponentLogger(logger, "discovery")

	var ignore *ignorelist.Set
	if r.cfg.Discovery.IgnoreList {
		summary.IgnoreListPath = r.cfg.Discovery.IgnorePath
		loaded, err := ignorelist.Load(ctx, r.cfg.Discovery.IgnorePath)
		if err != nil {
			return fmt.Errorf("load ignore list: %w", err)
		}
		ignore = loaded
		logger.Debug("ignore list loaded", logging.String("path", loaded.Path()), logging.Int("entries", loaded.Len()))
	}

	engine := discovery.NewEngine(r.opts.Decider, ignore,
		discovery.Criteria{ChannelFilter: r.cfg.Discovery.ChannelFilter}, summary.Collection, logger)
	outcome, err := engine.Run(ctx, state.ItemsWithoutCommentary())
	summary.Discovery = &outcome
	if err != nil {
		// Decisions made before the interruption are dropped with the run.
		return err
	}
	logger.Info("discovery complete",
		logging.Int("surfaced", len(outcome.Surfaced)),
		logging.Int("queued", len(outcome.Queued)),
		logging.Int("ignored", len(outcome.Ignored)),
	)

	if len(outcome.Queued) > 0 {
		summary.DiscoveryAdds = reconciler.AddItems(ctx, outcome.Queued, summary.Collection)
	}
	if ignore == nil {
		return nil
	}
	flushed, err := ignore.Flush(ctx)
	if err != nil {
		return fmt.Errorf("save ignore list: %w", err)
	}
	summary.IgnoreFlushed = flushed
	if flushed {
		logger.Info("ignore list saved", logging.String("path", ignore.Path()), logging.Int("entries", ignore.Len()))
	}
	return nil
}

func (r *Runner) record(ctx context.Context, logger *slog.Logger, summary Summary) {
	if r.opts.Recorder == nil {
		return
	}
	run := history.Run{
		ID:             summary.RunID,
		StartedAt:      summary.StartedAt,
		FinishedAt:     summary.FinishedAt,
		Section:        summary.Section.Key,
		Collection:     summary.Collection,
		DryRun:         summary.DryRun,
		Processed:      summary.Processed,
		WithCommentary: len(summary.Commentary),
		AlreadyMember:  len(summary.Reconcile.AlreadyMember),
		Added:          summary.Added(),
		Failed:         summary.Failed(),
	}
	if run.Section == "" {
		run.Section = r.cfg.Plex.Section
	}
	if summary.Discovery != nil {
		run.Surfaced = len(summary.Discovery.Surfaced)
		run.Ignored = len(summary.Discovery.Ignored)
	}
	if summary.Err != nil {
		run.Error = summary.Err.Error()
	}
	var items []history.AddedItem
	for _, item := range summary.Reconcile.Added {
		items = append(items, history.AddedItem{ItemID: item.ID, Title: item.DisplayName, Source: history.SourceKeyword})
	}
	for _, item := range summary.DiscoveryAdds.Added {
		items = append(items, history.AddedItem{ItemID: item.ID, Title: item.DisplayName, Source: history.SourceDiscovery})
	}

	// Cancelled runs are recorded too.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.opts.Recorder.Record(recordCtx, run, items); err != nil {
		logging.WarnWithContext(logger, "run history not recorded", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run is missing from the history command"),
		)
	}
}

func (r *Runner) notify(ctx context.Context, logger *slog.Logger, summary Summary) {
	if r.opts.Notifier == nil || errors.Is(summary.Err, context.Canceled) {
		return
	}
	section := summary.Section.Title
	if section == "" {
		section = r.cfg.Plex.Section
	}
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()

	var err error
	if summary.Err != nil {
		err = r.opts.Notifier.NotifyScanFailed(notifyCtx, section, summary.Err)
	} else {
		result := notifications.ScanResult{
			Section:    section,
			Collection: summary.Collection,
			DryRun:     summary.DryRun,
			Processed:  summary.Processed,
			Added:      summary.Added(),
			WouldAdd:   summary.WouldAdd(),
			Failed:     summary.Failed(),
			Duration:   summary.Duration(),
		}
		if summary.Discovery != nil {
			result.Surfaced = len(summary.Discovery.Surfaced)
		}
		err = r.opts.Notifier.NotifyScanCompleted(notifyCtx, result)
	}
	if err != nil {
		logging.WarnWithContext(logger, "scan notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "no ntfy message for this run"),
		)
	}
}

func percent(done, total int) string {
	if total == 0 {
		return "100.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(done)/float64(total)*100)
}

// IsAbort reports whether err ended a run before item work (connectivity,
// auth or configuration) rather than through cancellation.
func IsAbort(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled) && services.IsFatal(err)
}
