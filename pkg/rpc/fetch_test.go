package rpc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchReturnsBodyAndHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello world"))
	}))
	defer srv.Close()

	c := NewFetchClient("veritas-test/1.0")
	res, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.HTTPStatus)
	assert.Equal(t, "hello world", res.Body)
	assert.NotEmpty(t, res.ContentHash)
}

func TestFetchClassifiesRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewFetchClient("")
	_, err := c.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestFetchClassifiesAuthRequired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewFetchClient("")
	_, err := c.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
}
