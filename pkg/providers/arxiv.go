package providers

import (
	"context"
	"encoding/xml"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openveritas/veritas/pkg/verrors"
)

// ArxivProvider queries the arXiv export API (export.arxiv.org), which
// returns Atom feeds rather than JSON. It has no citation graph of its own:
// References/Citations both return an empty result.
type ArxivProvider struct {
	userAgent  string
	httpClient *http.Client
}

func NewArxivProvider(userAgent string) *ArxivProvider {
	return &ArxivProvider{userAgent: userAgent, httpClient: &http.Client{Timeout: 30 * time.Second}}
}

func (p *ArxivProvider) Name() string { return "arxiv" }

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string   `xml:"id"`
	Title     string   `xml:"title"`
	Summary   string   `xml:"summary"`
	Published string   `xml:"published"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
}

func (p *ArxivProvider) Search(ctx context.Context, query string) ([]Hit, error) {
	u := "http://export.arxiv.org/api/query?" + url.Values{
		"search_query": {"all:" + query},
		"max_results":  {"20"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, verrors.Wrap(verrors.Fatal, "providers: build arxiv request", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, verrors.Wrap(verrors.Transient, "providers: arxiv request", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, verrors.New(verrors.RateLimited, "providers: arxiv rate limited")
	case resp.StatusCode >= 500:
		return nil, verrors.Newf(verrors.Transient, "providers: arxiv returned HTTP %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, verrors.Newf(verrors.Fatal, "providers: arxiv returned HTTP %d", resp.StatusCode)
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, verrors.Wrap(verrors.ExtractionError, "providers: decode arxiv atom feed", err)
	}

	hits := make([]Hit, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		authors := make([]string, 0, len(e.Authors))
		for _, a := range e.Authors {
			authors = append(authors, a.Name)
		}
		hits = append(hits, Hit{
			URL: e.ID, Title: strings.TrimSpace(e.Title), Snippet: strings.TrimSpace(e.Summary),
			Authors: authors, ExternalID: arxivIDFromURL(e.ID),
		})
	}
	return hits, nil
}

func (p *ArxivProvider) References(ctx context.Context, workExternalID string) ([]Hit, error) {
	return nil, nil
}

func (p *ArxivProvider) Citations(ctx context.Context, workExternalID string) ([]Hit, error) {
	return nil, nil
}

// arxivIDFromURL extracts the bare arXiv id ("2401.12345") from an entry's
// abs-page URL.
func arxivIDFromURL(absURL string) string {
	i := strings.LastIndex(absURL, "/abs/")
	if i == -1 {
		return absURL
	}
	return absURL[i+len("/abs/"):]
}
