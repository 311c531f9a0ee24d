package providers

import (
	"context"
	"sync"
	"time"

	"github.com/openveritas/veritas/pkg/config"
	"github.com/openveritas/veritas/pkg/orchestrator"
	"github.com/openveritas/veritas/pkg/scheduler"
	"github.com/openveritas/veritas/pkg/verrors"
)

// Registry holds the configured providers in priority order and structurally
// satisfies orchestrator.QueryProvider — the orchestrator depends on this
// interface without importing this package, so the registry does the
// conversion from providers.Hit to orchestrator.SearchHit at this one
// boundary.
type Registry struct {
	order    []Provider
	cache    *ResponseCache
	cacheTTL time.Duration

	mu       sync.Mutex
	breakers map[string]*scheduler.Breaker
}

// NewRegistry builds a registry over cfg.Enabled, in the order given,
// constructing only the providers named there.
func NewRegistry(cfg *config.ProvidersConfig) *Registry {
	catalog := map[string]Provider{
		"web":              NewWebProvider(cfg.WebSearchEndpoint, cfg.UserAgent),
		"semantic_scholar": NewSemanticScholarProvider(cfg.UserAgent),
		"openalex":         NewOpenAlexProvider(cfg.UserAgent),
		"arxiv":            NewArxivProvider(cfg.UserAgent),
	}

	r := &Registry{
		cache:    NewResponseCache(cfg.CacheTTL),
		cacheTTL: cfg.CacheTTL,
		breakers: make(map[string]*scheduler.Breaker, len(cfg.Enabled)),
	}
	for _, name := range cfg.Enabled {
		p, ok := catalog[name]
		if !ok {
			continue
		}
		r.order = append(r.order, p)
		r.breakers[name] = scheduler.NewBreaker(scheduler.BreakerConfig{})
	}
	return r
}

// Search implements orchestrator.QueryProvider: it tries each enabled
// provider in priority order, skipping any whose circuit breaker is open,
// and returns the first one that answers successfully.
func (r *Registry) Search(ctx context.Context, query string) (string, []orchestrator.SearchHit, error) {
	var lastErr error
	for _, p := range r.order {
		breaker := r.breakerFor(p.Name())
		if !breaker.Allow() {
			continue
		}

		cacheKey := p.Name() + ":search:" + query
		if cached, ok := r.cache.Get(cacheKey); ok {
			return p.Name(), hitsToSearchHits(cached), nil
		}

		hits, err := p.Search(ctx, query)
		if err != nil {
			breaker.RecordFailure()
			lastErr = err
			continue
		}
		breaker.RecordSuccess()
		r.cache.Set(cacheKey, hits)
		return p.Name(), hitsToSearchHits(hits), nil
	}

	if lastErr != nil {
		return "", nil, verrors.Wrap(verrors.Transient, "providers: all providers failed or unavailable", lastErr)
	}
	return "", nil, verrors.New(verrors.Transient, "providers: no enabled provider available")
}

// References walks a work's cited references, scoped to the named provider
// only; no other provider is tried when its breaker is open or it fails.
func (r *Registry) References(ctx context.Context, providerName, workExternalID string) ([]Hit, error) {
	return r.graphWalk(ctx, providerName, workExternalID, Provider.References)
}

// Citations walks works that cite workExternalID, scoped to the provider
// that originally resolved it (citation ids are provider-specific).
func (r *Registry) Citations(ctx context.Context, providerName, workExternalID string) ([]Hit, error) {
	return r.graphWalk(ctx, providerName, workExternalID, Provider.Citations)
}

func (r *Registry) graphWalk(ctx context.Context, providerName, workExternalID string, call func(Provider, context.Context, string) ([]Hit, error)) ([]Hit, error) {
	p := r.byName(providerName)
	if p == nil {
		return nil, verrors.Newf(verrors.InvalidInput, "providers: unknown provider %q", providerName)
	}
	breaker := r.breakerFor(p.Name())
	if !breaker.Allow() {
		return nil, verrors.Newf(verrors.Transient, "providers: %s circuit breaker open", p.Name())
	}
	hits, err := call(p, ctx, workExternalID)
	if err != nil {
		breaker.RecordFailure()
		return nil, err
	}
	breaker.RecordSuccess()
	return hits, nil
}

func (r *Registry) byName(name string) Provider {
	for _, p := range r.order {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

func (r *Registry) breakerFor(name string) *scheduler.Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[name]
	if !ok {
		b = scheduler.NewBreaker(scheduler.BreakerConfig{})
		r.breakers[name] = b
	}
	return b
}

func hitsToSearchHits(hits []Hit) []orchestrator.SearchHit {
	out := make([]orchestrator.SearchHit, len(hits))
	for i, h := range hits {
		out[i] = orchestrator.SearchHit{URL: h.URL, Title: h.Title, Snippet: h.Snippet}
	}
	return out
}

// providerNames returns the configured enabled-provider names, for
// diagnostics/health reporting.
func (r *Registry) providerNames() []string {
	names := make([]string, len(r.order))
	for i, p := range r.order {
		names[i] = p.Name()
	}
	return names
}
