package index

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/quietlake/mnemo/internal/core"
	"github.com/quietlake/mnemo/internal/logger"
)

const (
	vectorSize = 4 // float32 is 4 bytes

	// Vector file header (v1):
	//   0..7   magic "MNEMVEC1"
	//   8..15  dim (uint64)
	//   16..23 count (uint64)
	headerSize = 24
)

var (
	fileMagic    = [8]byte{'M', 'N', 'E', 'M', 'V', 'E', 'C', '1'}
	bucketChunks = []byte("chunks")
)

// Hit is one nearest-neighbor candidate: the row of the matching vector and
// its distance to the query. Lower distance means more similar.
type Hit struct {
	Row      int
	Distance float32
}

// FlatIndex is an exact nearest-neighbor index over the persisted vector
// matrix, with chunk metadata loaded in parallel by row position. It is
// loaded once at startup and immutable afterwards, so concurrent searches
// need no locking.
type FlatIndex struct {
	dim     int
	count   int
	vectors []float32 // row-major, count*dim values
	chunks  []core.Chunk
}

// Load reads the vector file and the metadata database and verifies that the
// two are consistent. Any mismatch fails with core.IndexLoadError: the
// process must not serve queries over a broken index.
func Load(vectorsPath, metadataPath string) (*FlatIndex, error) {
	logger.Info("Loading vector index: %s", vectorsPath)

	dim, count, vectors, err := readVectorFile(vectorsPath)
	if err != nil {
		return nil, err
	}
	logger.Info("Vector file loaded: %d vectors, dimension %d", count, dim)

	logger.Info("Loading chunk metadata: %s", metadataPath)
	chunks, err := readMetadata(metadataPath, count)
	if err != nil {
		return nil, err
	}
	logger.Info("Chunk metadata loaded: %d records", len(chunks))

	return &FlatIndex{
		dim:     dim,
		count:   count,
		vectors: vectors,
		chunks:  chunks,
	}, nil
}

func readVectorFile(path string) (dim, count int, vectors []float32, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, nil, &core.IndexLoadError{Reason: "cannot read vector file", Err: err}
	}

	if len(data) < headerSize {
		return 0, 0, nil, &core.IndexLoadError{
			Reason: fmt.Sprintf("vector file too small for header: %d < %d bytes", len(data), headerSize),
		}
	}

	var magic [8]byte
	copy(magic[:], data[:8])
	if magic != fileMagic {
		return 0, 0, nil, &core.IndexLoadError{Reason: "vector file magic mismatch"}
	}

	dim = int(binary.LittleEndian.Uint64(data[8:16]))
	count = int(binary.LittleEndian.Uint64(data[16:24]))
	if dim <= 0 {
		return 0, 0, nil, &core.IndexLoadError{Reason: "vector file header has dim=0"}
	}

	want := headerSize + count*dim*vectorSize
	if len(data) != want {
		return 0, 0, nil, &core.IndexLoadError{
			Reason: fmt.Sprintf("vector file size mismatch: have %d bytes, header implies %d", len(data), want),
		}
	}

	vectors = make([]float32, count*dim)
	for i := range vectors {
		bits := binary.LittleEndian.Uint32(data[headerSize+i*vectorSize:])
		vectors[i] = math.Float32frombits(bits)
	}
	return dim, count, vectors, nil
}

func readMetadata(path string, count int) ([]core.Chunk, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout:  5 * time.Second,
		ReadOnly: true,
	})
	if err != nil {
		return nil, &core.IndexLoadError{Reason: "cannot open metadata database", Err: err}
	}
	defer db.Close()

	chunks := make([]core.Chunk, 0, count)
	err = db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketChunks)
		if b == nil {
			return &core.IndexLoadError{Reason: "metadata database has no chunks bucket"}
		}

		if n := b.Stats().KeyN; n != count {
			return &core.IndexLoadError{
				Reason: fmt.Sprintf("vector count (%d) does not match metadata count (%d)", count, n),
			}
		}

		for row := 0; row < count; row++ {
			data := b.Get(rowKey(row))
			if data == nil {
				return &core.IndexLoadError{Reason: fmt.Sprintf("metadata missing for row %d", row)}
			}
			var chunk core.Chunk
			if err := json.Unmarshal(data, &chunk); err != nil {
				return &core.IndexLoadError{Reason: fmt.Sprintf("corrupt metadata at row %d", row), Err: err}
			}
			chunks = append(chunks, chunk)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

func rowKey(row int) []byte {
	return []byte(fmt.Sprintf("%d", row))
}

// Search returns up to k nearest neighbors of query, ascending by distance,
// ties broken by row order. Fewer than k hits are returned when the index
// holds fewer than k vectors.
func (idx *FlatIndex) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != idx.dim {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", idx.dim, len(query))
	}
	if k <= 0 || idx.count == 0 {
		return nil, nil
	}
	if k > idx.count {
		k = idx.count
	}

	hits := make([]Hit, idx.count)
	for row := 0; row < idx.count; row++ {
		hits[row] = Hit{
			Row:      row,
			Distance: euclideanDistance(query, idx.vectors[row*idx.dim:(row+1)*idx.dim]),
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Row < hits[j].Row
	})

	return hits[:k], nil
}

// Chunk returns the metadata record for a row.
func (idx *FlatIndex) Chunk(row int) core.Chunk {
	return idx.chunks[row]
}

// Len returns the number of indexed vectors.
func (idx *FlatIndex) Len() int {
	return idx.count
}

// Dim returns the vector dimension fixed at index-build time.
func (idx *FlatIndex) Dim() int {
	return idx.dim
}

func euclideanDistance(a, b []float32) float32 {
	var sum float32
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return float32(math.Sqrt(float64(sum)))
}
