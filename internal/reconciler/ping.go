package reconciler

import (
	"context"

	"github.com/logcraftio/logcraft-cli/internal/domain"
)

// PingResult is one service's connectivity check outcome.
type PingResult struct {
	Service domain.Service
	Err     error
}

// Ping checks connectivity for every service, with no state or lock
// interaction (spec.md §4.7: "ping does not touch state").
func (r *Reconciler) Ping(ctx context.Context, services []domain.Service) []PingResult {
	results := make([]PingResult, len(services))
	for i, svc := range services {
		proxy, err := r.NewProxy(ctx, svc)
		if err != nil {
			results[i] = PingResult{Service: svc, Err: err}
			continue
		}
		results[i] = PingResult{Service: svc, Err: proxy.Ping(ctx)}
	}
	return results
}
