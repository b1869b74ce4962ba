package core

// Chunk is one indexed, retrievable unit of content. Chunks are produced by
// the offline indexer and are read-only inside this process: row i of the
// vector file always corresponds to chunk i of the metadata table.
type Chunk struct {
	ID      string `json:"id"`
	Source  string `json:"source,omitempty"`
	Date    string `json:"date,omitempty"` // YYYY-MM-DD, empty when the chunk carries no date
	Content string `json:"content"`
}

// SearchResult pairs a chunk with its distance to the query embedding.
// Lower distance means more similar.
type SearchResult struct {
	ChunkID  string  `json:"chunk_id"`
	Source   string  `json:"source,omitempty"`
	Date     string  `json:"date,omitempty"`
	Content  string  `json:"content"`
	Distance float32 `json:"distance"`
}

// CacheStats reports the effectiveness of the embedding cache.
type CacheStats struct {
	Size     int     `json:"size"`
	Capacity int     `json:"capacity"`
	Hits     uint64  `json:"hits"`
	Misses   uint64  `json:"misses"`
	HitRate  float64 `json:"hit_rate"`
}
