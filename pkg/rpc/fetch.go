package rpc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openveritas/veritas/pkg/verrors"
)

// FetchClient retrieves page content over plain HTTP, mirroring the
// teacher's GitHubClient idiom (shared *http.Client with a fixed timeout,
// context-scoped requests, classified error returns).
type FetchClient struct {
	httpClient *http.Client
	userAgent  string
}

// NewFetchClient builds a fetch client with the spec's default 30s deadline.
func NewFetchClient(userAgent string) *FetchClient {
	return &FetchClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  userAgent,
	}
}

// FetchResult is a successfully retrieved page body plus its content hash.
type FetchResult struct {
	HTTPStatus  int
	Body        string
	ContentHash string
	Title       string
}

// Fetch retrieves a URL and returns its body along with a SHA-256 content
// hash, per the data model's content-addressed Page.content_hash.
func (c *FetchClient) Fetch(ctx context.Context, url string) (*FetchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, verrors.Wrap(verrors.InvalidInput, "rpc: build fetch request", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, verrors.Wrap(verrors.Transient, fmt.Sprintf("rpc: fetch %s", url), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, verrors.Newf(verrors.RateLimited, "rpc: fetch %s returned 429", url)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, verrors.Newf(verrors.AuthRequired, "rpc: fetch %s returned %d", url, resp.StatusCode)
	}
	if resp.StatusCode >= 500 {
		return nil, verrors.Newf(verrors.Transient, "rpc: fetch %s returned %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, verrors.Wrap(verrors.Transient, "rpc: read fetch response body", err)
	}

	sum := sha256.Sum256(body)
	return &FetchResult{
		HTTPStatus:  resp.StatusCode,
		Body:        string(body),
		ContentHash: hex.EncodeToString(sum[:]),
	}, nil
}
