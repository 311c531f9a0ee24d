package providers

import (
	"net/url"
	"strings"
)

// trackingParams are stripped during canonicalization — the same kind of
// normalization the teacher's ConvertToRawURL does for GitHub blob/raw URL
// equivalence, applied here to strip affiliate/tracking noise so the same
// paper or article surfaced by two providers keys to one page.
var trackingParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"fbclid", "gclid", "ref", "referrer",
}

// Canonicalize normalizes scheme/host case, strips default ports and
// fragments, and removes known tracking query parameters — the data
// model's "Canonical URL" concept.
func Canonicalize(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Host = strings.TrimSuffix(u.Host, ":80")
	u.Host = strings.TrimSuffix(u.Host, ":443")
	u.Fragment = ""

	if u.RawQuery != "" {
		q := u.Query()
		for _, p := range trackingParams {
			q.Del(p)
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// ValidateDomain checks a URL's host against an allowlist; an empty
// allowlist permits any domain.
func ValidateDomain(rawURL string, allowedDomains []string) bool {
	if len(allowedDomains) == 0 {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range allowedDomains {
		if host == d || host == "www."+d {
			return true
		}
	}
	return false
}
