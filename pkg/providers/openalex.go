package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openveritas/veritas/pkg/verrors"
)

// OpenAlexProvider queries the OpenAlex API (api.openalex.org), a free,
// fully-open index of scholarly works with citation graph data.
type OpenAlexProvider struct {
	userAgent  string
	httpClient *http.Client
}

func NewOpenAlexProvider(userAgent string) *OpenAlexProvider {
	return &OpenAlexProvider{userAgent: userAgent, httpClient: &http.Client{Timeout: 30 * time.Second}}
}

func (p *OpenAlexProvider) Name() string { return "openalex" }

type openAlexWork struct {
	ID               string `json:"id"`
	DisplayName      string `json:"display_name"`
	PublicationYear  int    `json:"publication_year"`
	DOI              string `json:"doi"`
	ReferencedWorks  []string `json:"referenced_works"`
	Authorships      []struct {
		Author struct {
			DisplayName string `json:"display_name"`
		} `json:"author"`
	} `json:"authorships"`
	PrimaryLocation struct {
		LandingPageURL string `json:"landing_page_url"`
	} `json:"primary_location"`
}

type openAlexSearchResponse struct {
	Results []openAlexWork `json:"results"`
}

func (p *OpenAlexProvider) Search(ctx context.Context, query string) ([]Hit, error) {
	u := "https://api.openalex.org/works?" + url.Values{
		"search":    {query},
		"per-page":  {"20"},
	}.Encode()
	var parsed openAlexSearchResponse
	if err := p.getJSON(ctx, u, &parsed); err != nil {
		return nil, err
	}
	return worksToHits(parsed.Results), nil
}

// References follows a work's referenced_works ids — OpenAlex embeds these
// directly on the work, so References re-fetches the work and resolves each
// reference id as its own lookup would be too expensive; instead it returns
// the ids as external-id-only hits for the caller to resolve lazily.
func (p *OpenAlexProvider) References(ctx context.Context, workExternalID string) ([]Hit, error) {
	u := fmt.Sprintf("https://api.openalex.org/works/%s", url.PathEscape(normalizeOpenAlexID(workExternalID)))
	var work openAlexWork
	if err := p.getJSON(ctx, u, &work); err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(work.ReferencedWorks))
	for _, ref := range work.ReferencedWorks {
		hits = append(hits, Hit{ExternalID: normalizeOpenAlexID(ref)})
	}
	return hits, nil
}

// Citations lists works that cite workExternalID, via OpenAlex's
// cites filter.
func (p *OpenAlexProvider) Citations(ctx context.Context, workExternalID string) ([]Hit, error) {
	id := normalizeOpenAlexID(workExternalID)
	u := "https://api.openalex.org/works?" + url.Values{
		"filter":   {"cites:" + id},
		"per-page": {"20"},
	}.Encode()
	var parsed openAlexSearchResponse
	if err := p.getJSON(ctx, u, &parsed); err != nil {
		return nil, err
	}
	return worksToHits(parsed.Results), nil
}

func (p *OpenAlexProvider) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return verrors.Wrap(verrors.Fatal, "providers: build openalex request", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return verrors.Wrap(verrors.Transient, "providers: openalex request", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return verrors.New(verrors.RateLimited, "providers: openalex rate limited")
	case resp.StatusCode >= 500:
		return verrors.Newf(verrors.Transient, "providers: openalex returned HTTP %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return verrors.Newf(verrors.Fatal, "providers: openalex returned HTTP %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return verrors.Wrap(verrors.ExtractionError, "providers: decode openalex response", err)
	}
	return nil
}

func worksToHits(works []openAlexWork) []Hit {
	hits := make([]Hit, 0, len(works))
	for _, w := range works {
		if w.DisplayName == "" {
			continue
		}
		authors := make([]string, 0, len(w.Authorships))
		for _, a := range w.Authorships {
			authors = append(authors, a.Author.DisplayName)
		}
		hitURL := w.PrimaryLocation.LandingPageURL
		if hitURL == "" && w.DOI != "" {
			hitURL = w.DOI
		}
		hits = append(hits, Hit{
			URL: hitURL, Title: w.DisplayName, DOI: strings.TrimPrefix(w.DOI, "https://doi.org/"),
			Year: w.PublicationYear, Authors: authors, ExternalID: normalizeOpenAlexID(w.ID),
		})
	}
	return hits
}

// normalizeOpenAlexID strips the https://openalex.org/ prefix OpenAlex
// returns on work ids, leaving the bare "W..." id used in filter queries.
func normalizeOpenAlexID(id string) string {
	return strings.TrimPrefix(id, "https://openalex.org/")
}
