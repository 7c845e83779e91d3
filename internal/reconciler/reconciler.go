// Package reconciler drives the plan/apply/destroy state machine of
// spec.md §4.7: Idle → Planning → Locking → Confirming → Applying →
// Committing → Unlocking, dispatching plugin calls across services
// concurrently via a bounded worker pool.
package reconciler

import (
	"context"

	"github.com/logcraftio/logcraft-cli/internal/differ"
	"github.com/logcraftio/logcraft-cli/internal/domain"
	"github.com/logcraftio/logcraft-cli/internal/registry"
	"github.com/logcraftio/logcraft-cli/internal/sandbox"
	"github.com/logcraftio/logcraft-cli/internal/state"
	"github.com/logcraftio/logcraft-cli/internal/workspace"
)

// ProxyFactory builds a proxy for one service, loading and caching the
// backing plugin as needed. Implemented by the CLI wiring layer so the
// reconciler itself stays independent of where plugin bytes come from.
type ProxyFactory func(ctx context.Context, svc domain.Service) (*sandbox.PluginProxy, error)

// Reconciler coordinates the state machine for one invocation (plan, apply,
// or destroy).
type Reconciler struct {
	Store      state.Store
	Registry   *registry.Registry
	NewProxy   ProxyFactory
	Workspace  []workspace.Entry
	Concurrency int // 0 = default to len(services)
}

// Plan is the result of the Planning state: per-service operations and drift
// warnings. The D/S/O views they were computed from are not kept.
type Plan struct {
	Services []ServicePlan
}

// ServicePlan is one service's operations and warnings.
type ServicePlan struct {
	Service    domain.Service
	Operations []domain.Operation
	Warnings   []differ.DriftWarning
}

// HasChanges reports whether any service has at least one operation.
func (p Plan) HasChanges() bool {
	for _, sp := range p.Services {
		if len(sp.Operations) > 0 {
			return true
		}
	}
	return false
}

// PlanOptions configures the Planning state.
type PlanOptions struct {
	// Destroy sets D := ∅ for every service in scope (spec.md §4.7:
	// "destroy is apply with D := ∅ for the selected scope").
	Destroy bool
	// StateOnly sets O := S, skipping plugin.read calls (spec.md §4.6).
	StateOnly bool
}

// Plan builds the Planning-state result for the given services, without
// acquiring any lock (spec.md §4.7: "plan and validate do not" require the
// lock).
func (r *Reconciler) Plan(ctx context.Context, services []domain.Service, opts PlanOptions) (*Plan, error) {
	plan := &Plan{Services: make([]ServicePlan, 0, len(services))}

	for _, svc := range services {
		desired := workspace.ByService(r.Workspace, svc.Plugin)
		if opts.Destroy {
			desired = map[string][]byte{}
		}

		doc, err := r.Store.Read(ctx)
		if err != nil {
			return nil, err
		}
		st, err := doc.ToState()
		if err != nil {
			return nil, err
		}
		stateView := st.Names(svc.ID)
		if stateView == nil {
			stateView = map[string][]byte{}
		}

		var observed map[string][]byte
		if opts.StateOnly {
			observed = stateView
		} else {
			proxy, err := r.NewProxy(ctx, svc)
			if err != nil {
				return nil, err
			}
			observed, err = observeAll(ctx, proxy, desired, stateView)
			if err != nil {
				return nil, err
			}
		}

		ops, warnings := differ.Diff(differ.Views{
			Service:  svc.ID,
			Desired:  desired,
			State:    stateView,
			Observed: observed,
			Destroy:  opts.Destroy,
		})

		plan.Services = append(plan.Services, ServicePlan{Service: svc, Operations: ops, Warnings: warnings})
	}

	return plan, nil
}

// observeAll calls plugin.read for every name in D ∪ S.
func observeAll(ctx context.Context, proxy *sandbox.PluginProxy, desired, stateView map[string][]byte) (map[string][]byte, error) {
	names := make(map[string]bool, len(desired)+len(stateView))
	for n := range desired {
		names[n] = true
	}
	for n := range stateView {
		names[n] = true
	}

	observed := make(map[string][]byte, len(names))
	for name := range names {
		present, bytes, err := proxy.Read(ctx, name)
		if err != nil {
			return nil, err
		}
		if present {
			observed[name] = bytes
		}
	}
	return observed, nil
}
