package verrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfClassifiesWrappedErrors(t *testing.T) {
	base := errors.New("connection reset")
	wrapped := Wrap(Transient, "fetching page", base)

	assert.Equal(t, Transient, KindOf(wrapped))
	assert.True(t, errors.Is(wrapped, base))
}

func TestKindOfDefaultsToFatalForUnclassifiedErrors(t *testing.T) {
	plain := errors.New("boom")
	assert.Equal(t, Fatal, KindOf(plain))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(New(Transient, "x")))
	assert.True(t, Retryable(New(RateLimited, "x")))
	assert.False(t, Retryable(New(Fatal, "x")))
	assert.False(t, Retryable(New(InvalidInput, "x")))
	assert.False(t, Retryable(errors.New("unclassified")))
}

func TestErrorMessageIncludesKindAndWrapped(t *testing.T) {
	err := Wrapf(AuthRequired, errors.New("401"), "provider %s", "semantic_scholar")
	assert.Contains(t, err.Error(), "auth_required")
	assert.Contains(t, err.Error(), "semantic_scholar")
	assert.Contains(t, err.Error(), "401")
}
