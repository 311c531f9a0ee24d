package providers

import "testing"

func TestCanonicalize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"HTTPS://Example.com:443/path?utm_source=x", "https://example.com/path"},
		{"http://example.com:80/path?q=1&fbclid=abc", "http://example.com/path?q=1"},
		{"https://example.com/path#section", "https://example.com/path"},
	}
	for _, c := range cases {
		if got := Canonicalize(c.in); got != c.want {
			t.Errorf("Canonicalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestValidateDomain(t *testing.T) {
	if !ValidateDomain("https://example.com/x", nil) {
		t.Error("empty allowlist should permit any domain")
	}
	if !ValidateDomain("https://www.example.com/x", []string{"example.com"}) {
		t.Error("www. prefix should match bare allowlist entry")
	}
	if ValidateDomain("https://evil.com/x", []string{"example.com"}) {
		t.Error("domain not in allowlist should be rejected")
	}
}
