package psforever

import (
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/psforever-bot/internal/domain"
)

func TestFetchStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/stats", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"UP","players":[{"name":"Foo"},{"name":"Bar"},{"name":"Foo"}],"empires":{"TR":1,"NC":0,"VS":1}}`))
	}))
	defer srv.Close()

	snap, err := New(srv.URL + "/").FetchStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUp, snap.Status)
	assert.Equal(t, 2, snap.Online())
	assert.Equal(t, domain.Empires{TR: 1, VS: 1}, snap.Empires)
}

func TestFetchStats_Gzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte(`{"status":"DOWN","players":[],"empires":{"TR":0,"NC":0,"VS":0}}`))
		_ = gz.Close()
	}))
	defer srv.Close()

	snap, err := New(srv.URL).FetchStats(context.Background())
	require.NoError(t, err)
	assert.False(t, snap.IsUp())
	assert.Empty(t, snap.Players)
}

func TestFetchStats_Errors(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusInternalServerError)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte("maintenance"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.FetchStats(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "maintenance", apiErr.Body)

	status.Store(http.StatusNotFound)
	_, err = c.FetchStats(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetchStats_BadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).FetchStats(context.Background())
	assert.Error(t, err)
}

func TestFetchStats_TooManyRequestsIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := New(srv.URL).FetchStats(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.Equal(t, int32(1), calls.Load())
}
