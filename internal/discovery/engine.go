package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"commentarycollection/internal/catalog"
	"commentarycollection/internal/ignorelist"
	"commentarycollection/internal/logging"
)

// State tracks an item through the discovery pass.
type State int

const (
	StateUnvisited State = iota
	StateSurfaced
	StateQueued
	StateIgnored
	StateSkipped
)

func (s State) String() string {
	switch s {
	case StateSurfaced:
		return "surfaced"
	case StateQueued:
		return "queued"
	case StateIgnored:
		return "ignored"
	case StateSkipped:
		return "skipped"
	default:
		return "unvisited"
	}
}

// Outcome summarizes one discovery pass.
type Outcome struct {
	Surfaced []Candidate
	Queued   []*catalog.Item
	Ignored  []*catalog.Item
	Skipped  []*catalog.Item
	// Members counts items skipped because they are already in the collection.
	Members int
	// PreviouslyIgnored counts items suppressed by the loaded ignore list.
	PreviouslyIgnored int
	// NotEligible counts items with no eligible version.
	NotEligible int
	states      map[string]State
}

// StateOf returns the final state of item id.
func (o *Outcome) StateOf(id string) State {
	return o.states[id]
}

func (o *Outcome) set(id string, s State) {
	if o.states == nil {
		o.states = make(map[string]State)
	}
	o.states[id] = s
}

// Engine runs the discovery pass.
type Engine struct {
	decider    Decider
	ignore     *ignorelist.Set
	criteria   Criteria
	collection string
	logger     *slog.Logger
}

// NewEngine builds an engine. ignore may be nil when the ignore list is off.
func NewEngine(decider Decider, ignore *ignorelist.Set, criteria Criteria, collection string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	if decider == nil {
		decider = ReportOnlyDecider{}
	}
	return &Engine{
		decider:    decider,
		ignore:     ignore,
		criteria:   criteria,
		collection: collection,
		logger:     logger,
	}
}

// Run evaluates items without commentary and asks the decider about each
// eligible one. Ignored ids are added to the in-memory ignore list only;
// persisting it is the caller's job once the loop has finished. When input
// runs out the remaining candidates are surfaced and skipped. Context
// cancellation stops the pass and returns the partial outcome with the error.
func (e *Engine) Run(ctx context.Context, items []*catalog.Item) (Outcome, error) {
	var out Outcome
	decider := e.decider
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if item.HasCommentary() {
			continue
		}
		logger := e.logger.With(logging.String(logging.FieldItemID, item.ID), logging.String("title", item.DisplayName))
		if item.InCollection(e.collection) {
			out.Members++
			continue
		}
		if e.ignore != nil && e.ignore.Contains(item.ID) {
			out.PreviouslyIgnored++
			logger.Debug("discovery candidate suppressed",
				logging.Args(logging.DecisionAttrs("discovery", "skip", "in ignore list")...)...)
			continue
		}
		eligible := EligibleVersions(Evaluate(item, e.criteria))
		if len(eligible) == 0 {
			out.NotEligible++
			continue
		}

		candidate := Candidate{Item: item, Versions: eligible, Collection: e.collection, CanIgnore: e.ignore != nil}
		out.Surfaced = append(out.Surfaced, candidate)
		out.set(item.ID, StateSurfaced)
		logger.Info("discovery candidate surfaced", logging.Int("eligible_versions", len(eligible)))

		decision, err := decider.Decide(ctx, candidate)
		if errors.Is(err, io.EOF) {
			logging.WarnWithContext(logger, "discovery input closed", "discovery_input_closed",
				logging.String(logging.FieldImpact, "remaining candidates are reported without a decision"))
			decider = ReportOnlyDecider{}
			decision, err = DecisionSkip, nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, ctxErr
			}
			return out, fmt.Errorf("discovery decision for %s: %w", item.ID, err)
		}

		switch {
		case decision == DecisionAccept:
			out.Queued = append(out.Queued, item)
			out.set(item.ID, StateQueued)
		case decision == DecisionIgnore && e.ignore != nil:
			e.ignore.Add(item.ID)
			out.Ignored = append(out.Ignored, item)
			out.set(item.ID, StateIgnored)
		default:
			out.Skipped = append(out.Skipped, item)
			out.set(item.ID, StateSkipped)
		}
		logger.Debug("discovery decision",
			logging.Args(logging.DecisionAttrs("discovery", decision.String(), out.StateOf(item.ID).String())...)...)
	}
	return out, nil
}
