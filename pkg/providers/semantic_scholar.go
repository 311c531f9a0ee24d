package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/openveritas/veritas/pkg/verrors"
)

// SemanticScholarProvider queries the Semantic Scholar Graph API
// (api.semanticscholar.org), a free public academic search/citation graph.
type SemanticScholarProvider struct {
	userAgent  string
	httpClient *http.Client
}

func NewSemanticScholarProvider(userAgent string) *SemanticScholarProvider {
	return &SemanticScholarProvider{userAgent: userAgent, httpClient: &http.Client{Timeout: 30 * time.Second}}
}

func (p *SemanticScholarProvider) Name() string { return "semantic_scholar" }

type s2Paper struct {
	PaperID   string   `json:"paperId"`
	Title     string   `json:"title"`
	Abstract  string   `json:"abstract"`
	Year      int      `json:"year"`
	ExternalURL string `json:"url"`
	Authors   []struct {
		Name string `json:"name"`
	} `json:"authors"`
	ExternalIDs struct {
		DOI string `json:"DOI"`
	} `json:"externalIds"`
}

type s2SearchResponse struct {
	Data []s2Paper `json:"data"`
}

func (p *SemanticScholarProvider) Search(ctx context.Context, query string) ([]Hit, error) {
	u := "https://api.semanticscholar.org/graph/v1/paper/search?" + url.Values{
		"query":  {query},
		"fields": {"title,abstract,year,url,authors,externalIds"},
		"limit":  {"20"},
	}.Encode()
	return p.doSearch(ctx, u)
}

func (p *SemanticScholarProvider) References(ctx context.Context, workExternalID string) ([]Hit, error) {
	u := fmt.Sprintf("https://api.semanticscholar.org/graph/v1/paper/%s/references?fields=title,abstract,year,url,authors,externalIds",
		url.PathEscape(workExternalID))
	return p.doGraphWalk(ctx, u, "citedPaper")
}

func (p *SemanticScholarProvider) Citations(ctx context.Context, workExternalID string) ([]Hit, error) {
	u := fmt.Sprintf("https://api.semanticscholar.org/graph/v1/paper/%s/citations?fields=title,abstract,year,url,authors,externalIds",
		url.PathEscape(workExternalID))
	return p.doGraphWalk(ctx, u, "citingPaper")
}

func (p *SemanticScholarProvider) doSearch(ctx context.Context, reqURL string) ([]Hit, error) {
	var parsed s2SearchResponse
	if err := p.getJSON(ctx, reqURL, &parsed); err != nil {
		return nil, err
	}
	return papersToHits(parsed.Data), nil
}

func (p *SemanticScholarProvider) doGraphWalk(ctx context.Context, reqURL, key string) ([]Hit, error) {
	var raw struct {
		Data []map[string]json.RawMessage `json:"data"`
	}
	if err := p.getJSON(ctx, reqURL, &raw); err != nil {
		return nil, err
	}
	papers := make([]s2Paper, 0, len(raw.Data))
	for _, row := range raw.Data {
		body, ok := row[key]
		if !ok {
			continue
		}
		var paper s2Paper
		if err := json.Unmarshal(body, &paper); err != nil {
			continue
		}
		papers = append(papers, paper)
	}
	return papersToHits(papers), nil
}

func (p *SemanticScholarProvider) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return verrors.Wrap(verrors.Fatal, "providers: build semantic scholar request", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return verrors.Wrap(verrors.Transient, "providers: semantic scholar request", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return verrors.New(verrors.RateLimited, "providers: semantic scholar rate limited")
	case resp.StatusCode >= 500:
		return verrors.Newf(verrors.Transient, "providers: semantic scholar returned HTTP %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return verrors.Newf(verrors.Fatal, "providers: semantic scholar returned HTTP %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return verrors.Wrap(verrors.ExtractionError, "providers: decode semantic scholar response", err)
	}
	return nil
}

func papersToHits(papers []s2Paper) []Hit {
	hits := make([]Hit, 0, len(papers))
	for _, paper := range papers {
		if paper.Title == "" {
			continue
		}
		authors := make([]string, 0, len(paper.Authors))
		for _, a := range paper.Authors {
			authors = append(authors, a.Name)
		}
		hitURL := paper.ExternalURL
		if hitURL == "" && paper.ExternalIDs.DOI != "" {
			hitURL = "https://doi.org/" + paper.ExternalIDs.DOI
		}
		hits = append(hits, Hit{
			URL: hitURL, Title: paper.Title, Snippet: paper.Abstract,
			DOI: paper.ExternalIDs.DOI, Year: paper.Year, Authors: authors,
			ExternalID: paper.PaperID,
		})
	}
	return hits
}
