package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/openveritas/veritas/pkg/verrors"
)

// WebProvider queries a SearXNG-compatible JSON search endpoint. It has no
// citation graph: References/Citations both return an empty result rather
// than an error, since a caller iterating all providers for graph expansion
// should not have to special-case "web" out of the list.
type WebProvider struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
}

// NewWebProvider builds a web search provider against endpoint (a
// SearXNG-style /search?format=json URL).
func NewWebProvider(endpoint, userAgent string) *WebProvider {
	return &WebProvider{
		endpoint: endpoint, userAgent: userAgent,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *WebProvider) Name() string { return "web" }

type searxResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type searxResponse struct {
	Results []searxResult `json:"results"`
}

func (p *WebProvider) Search(ctx context.Context, query string) ([]Hit, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, verrors.Wrap(verrors.Fatal, "providers: parse web search endpoint", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, verrors.Wrap(verrors.Fatal, "providers: build web search request", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, verrors.Wrap(verrors.Transient, "providers: web search request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, verrors.New(verrors.RateLimited, "providers: web search rate limited")
	}
	if resp.StatusCode >= 500 {
		return nil, verrors.Newf(verrors.Transient, "providers: web search returned HTTP %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, verrors.Newf(verrors.Fatal, "providers: web search returned HTTP %d", resp.StatusCode)
	}

	var parsed searxResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, verrors.Wrap(verrors.ExtractionError, "providers: decode web search response", err)
	}

	hits := make([]Hit, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		hits = append(hits, Hit{URL: Canonicalize(r.URL), Title: r.Title, Snippet: r.Content})
	}
	return hits, nil
}

func (p *WebProvider) References(ctx context.Context, workExternalID string) ([]Hit, error) {
	return nil, nil
}

func (p *WebProvider) Citations(ctx context.Context, workExternalID string) ([]Hit, error) {
	return nil, nil
}
