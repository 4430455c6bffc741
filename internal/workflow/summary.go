package workflow

import (
	"time"

	"commentarycollection/internal/catalog"
	"commentarycollection/internal/discovery"
	"commentarycollection/internal/reconcile"
	"commentarycollection/internal/services/plex"
)

// Summary reports what one run did.
type Summary struct {
	RunID      string
	Section    plex.Section
	Collection string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time

	// Listed is the number of items in the section listing.
	Listed int
	// Processed is the number of items classified.
	Processed int
	// FailedBatches counts metadata batches skipped after retries.
	FailedBatches int
	// FetchFailed counts items lost with those batches.
	FetchFailed int

	// Commentary holds the items with commentary tracks in listing order.
	Commentary []*catalog.Item
	Reconcile  reconcile.Result

	// Discovery is nil when the discovery pass did not run.
	Discovery      *discovery.Outcome
	DiscoveryAdds  reconcile.Result
	IgnoreFlushed  bool
	IgnoreListPath string

	// Err is the error that ended the run early, if any.
	Err error
}

// Added returns the number of items added to the collection.
func (s Summary) Added() int {
	return len(s.Reconcile.Added) + len(s.DiscoveryAdds.Added)
}

// WouldAdd returns the number of items a dry run would have added.
func (s Summary) WouldAdd() int {
	return len(s.Reconcile.WouldAdd) + len(s.DiscoveryAdds.WouldAdd)
}

// Failed returns the number of failed units: items lost with failed batches
// plus failed collection updates.
func (s Summary) Failed() int {
	return s.FetchFailed + len(s.Reconcile.Failed) + len(s.DiscoveryAdds.Failed)
}

// Duration returns the wall time of the run.
func (s Summary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
