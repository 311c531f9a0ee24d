package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeSatisfaction(t *testing.T) {
	assert.Equal(t, 0.0, ComputeSatisfaction(0, false))
	assert.InDelta(t, 0.233, ComputeSatisfaction(1, false), 0.001)
	assert.InDelta(t, 0.7, ComputeSatisfaction(3, false), 0.001)
	assert.InDelta(t, 0.3, ComputeSatisfaction(0, true), 0.001)
	assert.Equal(t, 1.0, ComputeSatisfaction(3, true))
	// independent_sources above 3 must not push the score past 1.
	assert.Equal(t, 1.0, ComputeSatisfaction(10, true))
}

func TestIsSatisfied(t *testing.T) {
	assert.True(t, IsSatisfied(0.8, 0.8))
	assert.True(t, IsSatisfied(0.81, 0.8))
	assert.False(t, IsSatisfied(0.79, 0.8))
}

func TestNoveltyScore(t *testing.T) {
	assert.Equal(t, 0.0, NoveltyScore(0, 0))
	assert.Equal(t, 0.5, NoveltyScore(5, 10))
	assert.Equal(t, 1.0, NoveltyScore(10, 10))
}

func TestIsExhausted(t *testing.T) {
	assert.False(t, IsExhausted(0, 2))
	assert.False(t, IsExhausted(1, 2))
	assert.True(t, IsExhausted(2, 2))
	assert.True(t, IsExhausted(3, 2))
}

func TestCanonicalizeURL(t *testing.T) {
	assert.Equal(t, "https://example.com/path",
		canonicalizeURL("HTTPS://Example.com:443/path?utm_source=x"))
	assert.Equal(t, "http://example.com/path?q=1",
		canonicalizeURL("http://example.com:80/path?q=1&fbclid=abc"))
}

func TestDomainOf(t *testing.T) {
	assert.Equal(t, "example.com", domainOf("https://Example.COM/path"))
	assert.Equal(t, "", domainOf("::not-a-url::"))
}
