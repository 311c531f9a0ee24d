package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openveritas/veritas/pkg/scheduler"
)

type fakeProvider struct {
	name string
	hits []Hit
	err  error
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) Search(ctx context.Context, query string) ([]Hit, error) {
	return f.hits, f.err
}
func (f *fakeProvider) References(ctx context.Context, workExternalID string) ([]Hit, error) {
	return nil, nil
}
func (f *fakeProvider) Citations(ctx context.Context, workExternalID string) ([]Hit, error) {
	return nil, nil
}

func newTestRegistry(providers ...Provider) *Registry {
	r := &Registry{
		cache:    NewResponseCache(0),
		breakers: make(map[string]*scheduler.Breaker, len(providers)),
	}
	for _, p := range providers {
		r.order = append(r.order, p)
		r.breakers[p.Name()] = scheduler.NewBreaker(scheduler.BreakerConfig{})
	}
	return r
}

func TestRegistrySearchFallsThroughOnFailure(t *testing.T) {
	failing := &fakeProvider{name: "web", err: errors.New("boom")}
	working := &fakeProvider{name: "arxiv", hits: []Hit{{URL: "https://arxiv.org/abs/1", Title: "paper"}}}
	r := newTestRegistry(failing, working)

	name, hits, err := r.Search(context.Background(), "gravitational waves")
	require.NoError(t, err)
	assert.Equal(t, "arxiv", name)
	require.Len(t, hits, 1)
	assert.Equal(t, "paper", hits[0].Title)
}

func TestRegistrySearchSkipsOpenBreaker(t *testing.T) {
	blocked := &fakeProvider{name: "web", hits: []Hit{{URL: "https://example.com", Title: "should not be used"}}}
	working := &fakeProvider{name: "arxiv", hits: []Hit{{URL: "https://arxiv.org/abs/2", Title: "paper"}}}
	r := newTestRegistry(blocked, working)
	r.breakers["web"] = scheduler.NewBreaker(scheduler.BreakerConfig{FailureThreshold: 1})
	r.breakers["web"].RecordFailure()

	name, hits, err := r.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "arxiv", name)
	require.Len(t, hits, 1)
}

func TestRegistrySearchAllProvidersFail(t *testing.T) {
	r := newTestRegistry(&fakeProvider{name: "web", err: errors.New("down")})
	_, _, err := r.Search(context.Background(), "q")
	assert.Error(t, err)
}
