// Package retriever ties the embedding client and the vector index together
// into a single memory search operation with optional temporal filtering.
package retriever

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quietlake/mnemo/internal/core"
	"github.com/quietlake/mnemo/internal/datefilter"
	"github.com/quietlake/mnemo/internal/index"
	"github.com/quietlake/mnemo/internal/logger"
)

// minOversample is the floor on how many candidates we pull from the index
// before date filtering and deduplication. Filtering can discard most of the
// raw hits, so we always fetch generously.
const minOversample = 20

// Retriever answers memory search queries: embed, oversample from the index,
// apply the date filter, dedup, and return the closest maxResults chunks.
type Retriever struct {
	embed core.EmbedService
	index *index.FlatIndex
	now   func() time.Time
}

var _ core.MemorySearcher = (*Retriever)(nil)

// New builds a Retriever over an already-loaded index.
func New(embed core.EmbedService, idx *index.FlatIndex) *Retriever {
	return &Retriever{
		embed: embed,
		index: idx,
		now:   time.Now,
	}
}

// Search returns up to maxResults memory chunks relevant to query, ascending
// by distance. When dateFilter resolves to a range, only chunks dated inside
// it are returned; fewer than maxResults matches is not an error, and an
// empty result set is a valid answer.
func (r *Retriever) Search(ctx context.Context, query string, maxResults int, dateFilter string) ([]core.SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if maxResults < 1 {
		return nil, fmt.Errorf("maxResults must be at least 1, got %d", maxResults)
	}

	// Resolve the filter before any I/O so a malformed expression fails fast.
	dateRange, err := datefilter.Parse(dateFilter, r.now())
	if err != nil {
		return nil, err
	}
	if dateRange == nil && dateFilter != "" && !strings.EqualFold(strings.TrimSpace(dateFilter), "none") {
		logger.Warn("Unrecognized date filter %q, searching without temporal constraint", dateFilter)
	}

	vector, err := r.embed.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	// Oversample so that date filtering and dedup still leave enough hits.
	k := maxResults * 4
	if k < minOversample {
		k = minOversample
	}
	if k > r.index.Len() {
		k = r.index.Len()
	}

	hits, err := r.index.Search(vector, k)
	if err != nil {
		return nil, err
	}

	results := make([]core.SearchResult, 0, maxResults)
	seen := make(map[string]struct{}, len(hits))
	for _, hit := range hits {
		chunk := r.index.Chunk(hit.Row)

		if dateRange != nil && !chunkInRange(chunk, dateRange) {
			continue
		}
		if _, dup := seen[chunk.ID]; dup {
			continue
		}
		seen[chunk.ID] = struct{}{}

		results = append(results, core.SearchResult{
			ChunkID:  chunk.ID,
			Source:   chunk.Source,
			Date:     chunk.Date,
			Content:  chunk.Content,
			Distance: hit.Distance,
		})
		if len(results) == maxResults {
			break
		}
	}

	logger.Debug("Search %q (filter=%q): %d/%d hits kept", query, dateFilter, len(results), len(hits))
	return results, nil
}

// chunkInRange reports whether a chunk's date falls inside the range. Chunks
// with no date or an unparseable date never match an active filter.
func chunkInRange(chunk core.Chunk, r *datefilter.Range) bool {
	if chunk.Date == "" {
		return false
	}
	d, err := time.ParseInLocation(datefilter.DateLayout, chunk.Date, r.Start.Location())
	if err != nil {
		logger.Warn("Chunk %s has unparseable date %q, excluded from filtered search", chunk.ID, chunk.Date)
		return false
	}
	return r.Contains(d)
}
