package enrich

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/resilience"
)

// Guard runs calls to external services with retries inside a per-service
// circuit breaker.
type Guard struct {
	retry    resilience.RetryConfig
	breakers *resilience.ServiceBreakers
	log      *zap.Logger
}

// NewGuard creates a Guard.
func NewGuard(retry resilience.RetryConfig, breakers *resilience.ServiceBreakers, log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{retry: retry, breakers: breakers, log: log}
}

// guarded calls fn through g. A nil Guard calls fn directly.
func guarded[T any](ctx context.Context, g *Guard, service, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	if g == nil {
		return fn(ctx)
	}
	cfg := g.retry
	cfg.OnRetry = resilience.RetryLogger(g.log, service, operation)
	return resilience.ExecuteVal(ctx, g.breakers.Get(service), func(ctx context.Context) (T, error) {
		return resilience.DoVal(ctx, cfg, fn)
	})
}
