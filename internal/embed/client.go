package embed

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/quietlake/mnemo/internal/core"
	"github.com/quietlake/mnemo/internal/logger"
)

// DefaultCacheSize bounds the embedding cache when no size is configured.
const DefaultCacheSize = 1000

// Client calls an OpenAI-compatible embeddings endpoint and caches results.
// The cache is shared across all sessions of the process and evicts
// least-recently-used entries when full.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	capacity   int
	httpClient *http.Client

	cache  *lru.Cache[string, []float32]
	group  singleflight.Group
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewClient creates a new embedding client with a bounded LRU cache.
func NewClient(baseURL, apiKey, model string, cacheSize int) (*Client, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	cache, err := lru.New[string, []float32](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}

	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		model:    model,
		capacity: cacheSize,
		cache:    cache,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// embedRequest matches the OpenAI-compatible API format.
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embedResponse matches the OpenAI-compatible API format.
type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbedQuery returns the embedding for text, serving repeats from the cache.
// Concurrent misses for the same text are collapsed into a single upstream
// call; every caller receives the same vector.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}

	key := c.cacheKey(text)

	if vec, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		logger.Debug("Embedding cache hit (text length %d)", len(text))
		return vec, nil
	}
	c.misses.Add(1)

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A concurrent caller may have filled the entry while we waited.
		if vec, ok := c.cache.Get(key); ok {
			return vec, nil
		}

		vec, err := c.fetch(ctx, text)
		if err != nil {
			return nil, err
		}
		c.cache.Add(key, vec)
		return vec, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]float32), nil
}

// fetch performs the upstream embeddings call.
func (c *Client) fetch(ctx context.Context, text string) ([]float32, error) {
	reqBody := embedRequest{
		Model: c.model,
		Input: []string{text},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/embeddings", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	logger.Debug("Calling embedding API: model=%s, text length=%d", c.model, len(text))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &core.UpstreamError{Service: "embedding", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &core.UpstreamError{
			Service: "embedding",
			Err:     fmt.Errorf("status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, &core.UpstreamError{Service: "embedding", Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if len(embedResp.Data) == 0 {
		return nil, &core.UpstreamError{Service: "embedding", Err: fmt.Errorf("no embeddings returned")}
	}

	vec := embedResp.Data[0].Embedding
	logger.Debug("Embedding generated, dimension %d", len(vec))
	return vec, nil
}

// cacheKey hashes model and text so distinct models never collide.
func (c *Client) cacheKey(text string) string {
	sum := md5.Sum([]byte(c.model + ":" + text))
	return hex.EncodeToString(sum[:])
}

// Stats returns a read-only snapshot of cache effectiveness.
func (c *Client) Stats() core.CacheStats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return core.CacheStats{
		Size:     c.cache.Len(),
		Capacity: c.capacity,
		Hits:     hits,
		Misses:   misses,
		HitRate:  hitRate,
	}
}

// ClearCache empties the cache and resets the counters.
func (c *Client) ClearCache() {
	c.cache.Purge()
	c.hits.Store(0)
	c.misses.Store(0)
	logger.Info("Embedding cache cleared")
}
