package core

import "context"

// EmbedService turns text into a fixed-length vector.
type EmbedService interface {
	// EmbedQuery generates an embedding for the given text. Empty text is
	// rejected before any upstream call is made.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// MemorySearcher is the retrieval operation exposed to callers and to the
// tool dispatcher. dateFilter is a textual filter expression; empty means no
// temporal constraint.
type MemorySearcher interface {
	Search(ctx context.Context, query string, maxResults int, dateFilter string) ([]SearchResult, error)
}
