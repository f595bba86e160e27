// Package waterfall resolves single lead fields by trying an ordered chain
// of sources until one returns a value.
package waterfall

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadgen-cli/internal/waterfall/provider"
)

// Cache stores lookup outcomes keyed by source, field and lead identity.
// A cached empty value is a remembered miss.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithCache enables lookup caching.
func WithCache(c Cache) ExecutorOption {
	return func(e *Executor) { e.cache = c }
}

// WithLimiter paces outbound provider calls.
func WithLimiter(l *rate.Limiter) ExecutorOption {
	return func(e *Executor) { e.limiter = l }
}

// WithLogger sets the executor logger.
func WithLogger(log *zap.Logger) ExecutorOption {
	return func(e *Executor) { e.log = log }
}

// Executor runs field waterfalls against a provider registry.
type Executor struct {
	cfg      *Config
	registry *provider.Registry
	cache    Cache
	limiter  *rate.Limiter
	log      *zap.Logger
}

// NewExecutor creates a waterfall executor.
func NewExecutor(cfg *Config, registry *provider.Registry, opts ...ExecutorOption) *Executor {
	e := &Executor{cfg: cfg, registry: registry}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = zap.L()
	}
	return e
}

// Resolve walks the configured sources for fieldKey. The first non-empty
// value wins. Source failures are logged and the chain moves on; they never
// fail the lead. Only context cancellation stops the walk early.
func (e *Executor) Resolve(ctx context.Context, lead provider.LeadIdentifier, fieldKey string) Resolution {
	res := Resolution{FieldKey: fieldKey}

	for _, name := range e.cfg.SourceNames(fieldKey) {
		if ctx.Err() != nil {
			break
		}

		p := e.registry.Get(name)
		if p == nil || !provider.CanProvide(p, fieldKey) {
			e.log.Debug("waterfall: source skipped",
				zap.String("source", name),
				zap.String("field", fieldKey),
			)
			continue
		}

		attempt := e.attempt(ctx, p, lead, fieldKey)
		res.Attempts = append(res.Attempts, attempt)
		if attempt.Value != "" {
			res.Value = attempt.Value
			res.Source = name
			break
		}
	}

	return res
}

func (e *Executor) attempt(ctx context.Context, p provider.Provider, lead provider.LeadIdentifier, fieldKey string) Attempt {
	a := Attempt{Source: p.Name()}
	key := cacheKey(p.Name(), fieldKey, lead)

	if e.cache != nil {
		v, ok, err := e.cache.Get(ctx, key)
		if err != nil {
			e.log.Warn("waterfall: cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			a.Value = v
			a.Cached = true
			return a
		}
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			a.Error = err.Error()
			return a
		}
	}

	v, err := p.Lookup(ctx, lead, fieldKey)
	if err != nil {
		a.Error = err.Error()
		e.log.Warn("waterfall: lookup failed",
			zap.String("source", p.Name()),
			zap.String("field", fieldKey),
			zap.String("lead", lead.FullName()),
			zap.Error(err),
		)
		return a
	}
	a.Value = strings.TrimSpace(v)

	if e.cache != nil {
		if err := e.cache.Set(ctx, key, a.Value); err != nil {
			e.log.Warn("waterfall: cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return a
}

func cacheKey(source, fieldKey string, lead provider.LeadIdentifier) string {
	return source + ":" + fieldKey + ":" + lead.Key()
}
