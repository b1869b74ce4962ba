package embed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietlake/mnemo/internal/core"
)

func newEmbedServer(t *testing.T, calls *atomic.Int64) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Input, 1)

		resp := map[string]interface{}{
			"data": []map[string]interface{}{
				{"embedding": []float32{0.1, 0.2, 0.3}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestEmbedQueryRejectsEmptyText(t *testing.T) {
	var calls atomic.Int64
	srv := newEmbedServer(t, &calls)
	defer srv.Close()

	client, err := NewClient(srv.URL, "test-key", "test-model", 10)
	require.NoError(t, err)

	_, err = client.EmbedQuery(context.Background(), "")
	assert.Error(t, err)
	assert.Equal(t, int64(0), calls.Load(), "empty text must never reach the upstream service")
}

func TestEmbedQueryCachesIdenticalText(t *testing.T) {
	var calls atomic.Int64
	srv := newEmbedServer(t, &calls)
	defer srv.Close()

	client, err := NewClient(srv.URL, "test-key", "test-model", 10)
	require.NoError(t, err)

	first, err := client.EmbedQuery(context.Background(), "hello world")
	require.NoError(t, err)

	second, err := client.EmbedQuery(context.Background(), "hello world")
	require.NoError(t, err)

	assert.Equal(t, int64(1), calls.Load(), "second call must be served from cache")
	assert.Equal(t, first, second, "cached vector must be identical")

	stats := client.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, 10, stats.Capacity)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
}

func TestEmbedQueryEvictsOldestAtCapacity(t *testing.T) {
	var calls atomic.Int64
	srv := newEmbedServer(t, &calls)
	defer srv.Close()

	client, err := NewClient(srv.URL, "test-key", "test-model", 2)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = client.EmbedQuery(ctx, "one")
	require.NoError(t, err)
	_, err = client.EmbedQuery(ctx, "two")
	require.NoError(t, err)
	_, err = client.EmbedQuery(ctx, "three") // evicts "one"
	require.NoError(t, err)

	assert.Equal(t, 2, client.Stats().Size)

	_, err = client.EmbedQuery(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, int64(4), calls.Load(), "evicted entry must go upstream again")
}

func TestEmbedQueryUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "test-key", "test-model", 10)
	require.NoError(t, err)

	_, err = client.EmbedQuery(context.Background(), "hello")
	require.Error(t, err)

	var upstream *core.UpstreamError
	assert.True(t, errors.As(err, &upstream))
	assert.Equal(t, "embedding", upstream.Service)
}

func TestClearCacheResetsStats(t *testing.T) {
	var calls atomic.Int64
	srv := newEmbedServer(t, &calls)
	defer srv.Close()

	client, err := NewClient(srv.URL, "test-key", "test-model", 10)
	require.NoError(t, err)

	_, err = client.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)

	client.ClearCache()

	stats := client.Stats()
	assert.Equal(t, 0, stats.Size)
	assert.Equal(t, uint64(0), stats.Hits)
	assert.Equal(t, uint64(0), stats.Misses)
}
