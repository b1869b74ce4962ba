package index

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietlake/mnemo/internal/core"
)

func writeFixture(t *testing.T, vectors [][]float32, chunks []core.Chunk) (string, string) {
	t.Helper()

	dir := t.TempDir()
	vectorsPath := filepath.Join(dir, "memories.vec")
	metadataPath := filepath.Join(dir, "memories.db")
	require.NoError(t, Write(vectorsPath, metadataPath, vectors, chunks))
	return vectorsPath, metadataPath
}

func TestLoadRoundTrip(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	chunks := []core.Chunk{
		{ID: "a", Source: "voice", Date: "2024-06-01", Content: "first"},
		{ID: "b", Source: "voice", Date: "2024-06-02", Content: "second"},
		{ID: "c", Source: "note", Date: "2025-01-01", Content: "third"},
	}

	vectorsPath, metadataPath := writeFixture(t, vectors, chunks)

	idx, err := Load(vectorsPath, metadataPath)
	require.NoError(t, err)

	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, 3, idx.Dim())
	assert.Equal(t, chunks[1], idx.Chunk(1))
}

func TestLoadFailsOnCountMismatch(t *testing.T) {
	vectors := [][]float32{{1, 0}, {0, 1}}
	chunks := []core.Chunk{
		{ID: "a", Content: "first"},
		{ID: "b", Content: "second"},
	}
	vectorsPath, metadataPath := writeFixture(t, vectors, chunks)

	// Shrink the vector file to a single row while leaving two metadata
	// records behind.
	require.NoError(t, Write(vectorsPath, filepath.Join(t.TempDir(), "other.db"), vectors[:1], chunks[:1]))

	_, err := Load(vectorsPath, metadataPath)
	require.Error(t, err)

	var loadErr *core.IndexLoadError
	assert.True(t, errors.As(err, &loadErr))
}

func TestLoadFailsOnCorruptHeader(t *testing.T) {
	vectors := [][]float32{{1, 0}}
	chunks := []core.Chunk{{ID: "a", Content: "first"}}
	vectorsPath, metadataPath := writeFixture(t, vectors, chunks)

	require.NoError(t, os.WriteFile(vectorsPath, []byte("not a vector file"), 0o644))

	_, err := Load(vectorsPath, metadataPath)
	require.Error(t, err)

	var loadErr *core.IndexLoadError
	assert.True(t, errors.As(err, &loadErr))
}

func TestSearchOrdering(t *testing.T) {
	vectors := [][]float32{
		{0, 0},
		{3, 0},
		{1, 0},
	}
	chunks := []core.Chunk{
		{ID: "origin", Content: "zero"},
		{ID: "far", Content: "three"},
		{ID: "near", Content: "one"},
	}
	vectorsPath, metadataPath := writeFixture(t, vectors, chunks)

	idx, err := Load(vectorsPath, metadataPath)
	require.NoError(t, err)

	hits, err := idx.Search([]float32{0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, 0, hits[0].Row)
	assert.Equal(t, 2, hits[1].Row)
	assert.Equal(t, 1, hits[2].Row)

	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i-1].Distance, hits[i].Distance)
	}
}

func TestSearchCapsAtIndexSize(t *testing.T) {
	vectors := [][]float32{{0, 0}, {1, 1}}
	chunks := []core.Chunk{
		{ID: "a", Content: "first"},
		{ID: "b", Content: "second"},
	}
	vectorsPath, metadataPath := writeFixture(t, vectors, chunks)

	idx, err := Load(vectorsPath, metadataPath)
	require.NoError(t, err)

	hits, err := idx.Search([]float32{0, 0}, 50)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestSearchRejectsWrongDimension(t *testing.T) {
	vectors := [][]float32{{0, 0}}
	chunks := []core.Chunk{{ID: "a", Content: "first"}}
	vectorsPath, metadataPath := writeFixture(t, vectors, chunks)

	idx, err := Load(vectorsPath, metadataPath)
	require.NoError(t, err)

	_, err = idx.Search([]float32{0, 0, 0}, 1)
	assert.Error(t, err)
}
