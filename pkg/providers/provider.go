// Package providers is the plugin-style search/academic provider registry:
// a closed set of {web, semantic_scholar, openalex, arxiv} clients behind a
// shared capability interface, filtered at runtime by per-provider circuit
// breaker state. Adapts the teacher's pkg/runbook.GitHubClient HTTP-client
// idiom and its URL/cache helpers from fetching one runbook file to
// searching and walking citation graphs across several APIs.
package providers

import "context"

// Hit is one search result or citation-graph neighbor, prior to being
// resolved into a store.Work/store.Page pair.
type Hit struct {
	URL         string
	Title       string
	Snippet     string
	DOI         string
	Year        int
	Authors     []string
	ExternalID  string
}

// Provider is the shared capability trait every registry member implements.
// Not every provider can do all three meaningfully: the web provider's
// References/Citations are no-ops (it has no citation graph), and the
// academic providers' Search covers title/abstract search over their API.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) ([]Hit, error)
	References(ctx context.Context, workExternalID string) ([]Hit, error)
	Citations(ctx context.Context, workExternalID string) ([]Hit, error)
}
