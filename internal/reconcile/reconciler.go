package reconcile

import (
	"context"
	"log/slog"

	"commentarycollection/internal/catalog"
	"commentarycollection/internal/logging"
	"commentarycollection/internal/services"
)

// Mutator replaces the collection tag set of one item.
type Mutator interface {
	MutateCollections(ctx context.Context, itemID string, names []string) error
}

// Result partitions the items a pass looked at.
type Result struct {
	AlreadyMember []*catalog.Item
	Added         []*catalog.Item
	Failed        []*catalog.Item
	// WouldAdd lists items a dry run left untouched.
	WouldAdd []*catalog.Item
}

// Merge appends other's partitions to r.
func (r *Result) Merge(other Result) {
	r.AlreadyMember = append(r.AlreadyMember, other.AlreadyMember...)
	r.Added = append(r.Added, other.Added...)
	r.Failed = append(r.Failed, other.Failed...)
	r.WouldAdd = append(r.WouldAdd, other.WouldAdd...)
}

// Option customizes a Reconciler.
type Option func(*Reconciler)

// WithDryRun reports pending additions without calling the server.
func WithDryRun(dryRun bool) Option {
	return func(r *Reconciler) {
		r.dryRun = dryRun
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Reconciler issues at most one mutation per item for its lifetime. Use one
// Reconciler per run.
type Reconciler struct {
	mutator   Mutator
	dryRun    bool
	logger    *slog.Logger
	attempted map[string]struct{}
}

// New constructs a Reconciler.
func New(mutator Mutator, opts ...Option) *Reconciler {
	r := &Reconciler{
		mutator:   mutator,
		logger:    logging.NewNop(),
		attempted: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile adds every commentary item in state to collection.
func (r *Reconciler) Reconcile(ctx context.Context, state *catalog.State, collection string) Result {
	return r.AddItems(ctx, state.ItemsWithCommentary(), collection)
}

// AddItems adds items to collection. Members are left alone; items already
// attempted by this Reconciler are neither retried nor reported again.
func (r *Reconciler) AddItems(ctx context.Context, items []*catalog.Item, collection string) Result {
	var result Result
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		logger := r.logger.With(logging.String(logging.FieldItemID, item.ID), logging.String("title", item.DisplayName))
		if item.InCollection(collection) {
			logger.Debug("item already in collection",
				logging.Args(logging.DecisionAttrs("collection_add", "skip", "already a member")...)...)
			result.AlreadyMember = append(result.AlreadyMember, item)
			continue
		}
		if _, done := r.attempted[item.ID]; done {
			continue
		}
		r.attempted[item.ID] = struct{}{}

		if r.dryRun {
			logger.Info("dry run: would add item to collection", logging.String("collection", collection))
			result.WouldAdd = append(result.WouldAdd, item)
			continue
		}

		desired := item.CollectionsWith(collection)
		itemCtx := services.WithItemID(services.WithPhase(ctx, "reconcile"), item.ID)
		if err := r.mutator.MutateCollections(itemCtx, item.ID, desired); err != nil {
			logging.WarnWithContext(logging.WithContext(itemCtx, r.logger), "collection update failed", "collection_add_failed",
				logging.String("title", item.DisplayName),
				logging.String("collection", collection),
				logging.String(logging.FieldErrorKind, services.Kind(err)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "item left out of the collection for this run"),
			)
			result.Failed = append(result.Failed, item)
			continue
		}
		item.MarkCollection(collection)
		logger.Info("added item to collection",
			logging.String("collection", collection),
			logging.Int("commentary_tracks", len(item.CommentaryTracks)),
		)
		result.Added = append(result.Added, item)
	}
	return result
}
