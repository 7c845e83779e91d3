package reconciler

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/logcraftio/logcraft-cli/internal/domain"
	"github.com/logcraftio/logcraft-cli/internal/sandbox"
	"github.com/logcraftio/logcraft-cli/internal/state"
	"golang.org/x/sync/errgroup"
)

// ApplyOptions configures the Applying/Confirming states.
type ApplyOptions struct {
	AutoApprove bool
	// Confirm is called once with the rendered plan when AutoApprove is
	// false; it returns whether to proceed. Left out-of-scope terminal
	// styling is the CLI layer's concern, not the reconciler's.
	Confirm func(plan *Plan) (bool, error)
	Who      string // lock holder identity, e.g. "user@host"
}

// OperationResult records one operation's outcome.
type OperationResult struct {
	Operation domain.Operation
	Err       error
}

// ApplyResult is the outcome of the Applying/Committing states.
type ApplyResult struct {
	Results   []OperationResult
	Cancelled bool
	Declined  bool
}

// Failed reports whether any operation failed.
func (r ApplyResult) Failed() bool {
	for _, res := range r.Results {
		if res.Err != nil {
			return true
		}
	}
	return false
}

// Apply drives Locking → Confirming → Applying → Committing → Unlocking for
// the given plan (spec.md §4.7). destroy is Apply called with a plan built
// via PlanOptions{Destroy: true}; the state machine itself does not
// distinguish them.
func (r *Reconciler) Apply(ctx context.Context, plan *Plan, opts ApplyOptions) (*ApplyResult, error) {
	who := opts.Who
	if who == "" {
		who = defaultWho()
	}

	lockID, err := r.Store.Lock(ctx, who)
	if err != nil {
		return nil, err
	}
	defer unlockBestEffort(r.Store, lockID)

	if !opts.AutoApprove {
		if opts.Confirm == nil {
			return nil, &domain.ConfigError{Path: "apply", Reason: "confirmation required but no Confirm callback supplied"}
		}
		proceed, err := opts.Confirm(plan)
		if err != nil {
			return nil, err
		}
		if !proceed {
			return &ApplyResult{Declined: true}, nil
		}
	}

	doc, err := r.Store.Read(ctx)
	if err != nil {
		return nil, err
	}
	working, err := doc.ToState()
	if err != nil {
		return nil, err
	}

	results, cancelled := r.dispatch(ctx, plan, working)

	if err := r.commitWithRetry(ctx, working, doc); err != nil {
		return nil, err
	}

	return &ApplyResult{Results: results, Cancelled: cancelled}, nil
}

// dispatch fans out per-service, sequential within a service, parallel
// across services with a concurrency cap equal to the number of services by
// default (spec.md §4.7 Applying). Each operation mutates working
// immediately on success; failures are recorded but do not abort siblings
// (spec.md §4.7, Scenario F).
func (r *Reconciler) dispatch(ctx context.Context, plan *Plan, working *domain.State) ([]OperationResult, bool) {
	var mu resultCollector
	var cancelled atomicBool

	// A background context carries each plugin call so an operation already
	// in flight runs to completion and its result is recorded (spec.md §4.7:
	// "failures are recorded but do not abort sibling operations"); the
	// outer ctx is polled between operations to stop dispatching new ones
	// once cancelled, and the caller unlocks on any exit path regardless.
	callCtx := context.Background()

	g := new(errgroup.Group)
	if r.Concurrency > 0 {
		g.SetLimit(r.Concurrency)
	} else if len(plan.Services) > 0 {
		g.SetLimit(len(plan.Services))
	}

	for _, sp := range plan.Services {
		sp := sp
		g.Go(func() error {
			proxy, err := r.NewProxy(callCtx, sp.Service)
			if err != nil {
				for _, op := range sp.Operations {
					mu.add(OperationResult{Operation: op, Err: err})
				}
				return nil
			}
			for _, op := range sp.Operations {
				if ctx.Err() != nil {
					cancelled.set()
					mu.add(OperationResult{Operation: op, Err: &domain.CancelledError{}})
					continue
				}
				opErr := runOperation(callCtx, proxy, op)
				mu.add(OperationResult{Operation: op, Err: opErr})
				if opErr == nil {
					applyToWorkingState(working, op)
				} else {
					slog.WarnContext(callCtx, "operation failed", "service", op.Service, "detection", op.Detection, "op", op.Kind.String(), "error", opErr)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	return mu.results, cancelled.get()
}

func runOperation(ctx context.Context, proxy *sandbox.PluginProxy, op domain.Operation) error {
	switch op.Kind {
	case domain.Create, domain.Update:
		if err := proxy.ValidateDetection(ctx, op.NewBytes); err != nil {
			return err
		}
		if op.Kind == domain.Create {
			return proxy.Create(ctx, op.NewBytes)
		}
		return proxy.Update(ctx, op.NewBytes)
	case domain.Delete:
		return proxy.Delete(ctx, op.PriorBytes)
	default:
		return nil
	}
}

func applyToWorkingState(working *domain.State, op domain.Operation) {
	switch op.Kind {
	case domain.Create, domain.Update:
		working.Set(op.Service, op.Detection, op.NewBytes)
	case domain.Delete:
		working.Delete(op.Service, op.Detection)
	}
}

// commitWithRetry writes the working state, retrying once on failure (spec.md
// §4.7 Committing).
func (r *Reconciler) commitWithRetry(ctx context.Context, working *domain.State, base *state.Document) error {
	doc := state.FromState(working, base)
	err := r.Store.Write(ctx, doc)
	if err == nil {
		return nil
	}
	slog.WarnContext(ctx, "state commit failed, retrying once", "error", err)
	if err := r.Store.Write(ctx, doc); err != nil {
		return &domain.StateCommitFailedError{Reason: err.Error()}
	}
	return nil
}

// unlockBestEffort always fires, independent of how Apply returns, per
// spec.md §4.7 Unlocking: "best-effort, always attempted". Failures are
// logged, not escalated — the caller is already unwinding.
func unlockBestEffort(store state.Store, lockID string) {
	ctx := context.Background()
	if err := store.Unlock(ctx, lockID); err != nil {
		slog.WarnContext(ctx, "failed to release state lock", "lock_id", lockID, "error", err)
	}
}

func defaultWho() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return os.Getenv("USER") + "@" + host
}

// resultCollector serializes appends from concurrent per-service goroutines.
type resultCollector struct {
	mu      sync.Mutex
	results []OperationResult
}

func (c *resultCollector) add(r OperationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

// atomicBool is a minimal concurrency-safe flag shared across the
// per-service goroutines in dispatch.
type atomicBool struct {
	mu  sync.Mutex
	val bool
}

func (b *atomicBool) set() {
	b.mu.Lock()
	b.val = true
	b.mu.Unlock()
}

func (b *atomicBool) get() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.val
}
