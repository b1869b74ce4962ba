package index

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"go.etcd.io/bbolt"

	"github.com/quietlake/mnemo/internal/core"
)

// Write persists a vector matrix and its parallel metadata table in the
// format Load expects. The offline indexer and the test fixtures share this
// serializer; it is not used on the query path.
func Write(vectorsPath, metadataPath string, vectors [][]float32, chunks []core.Chunk) error {
	if len(vectors) != len(chunks) {
		return fmt.Errorf("vector count (%d) does not match chunk count (%d)", len(vectors), len(chunks))
	}
	if len(vectors) == 0 {
		return fmt.Errorf("cannot write an empty index")
	}

	dim := len(vectors[0])
	if dim == 0 {
		return fmt.Errorf("cannot write zero-dimension vectors")
	}

	data := make([]byte, headerSize+len(vectors)*dim*vectorSize)
	copy(data[:8], fileMagic[:])
	binary.LittleEndian.PutUint64(data[8:16], uint64(dim))
	binary.LittleEndian.PutUint64(data[16:24], uint64(len(vectors)))

	offset := headerSize
	for row, vec := range vectors {
		if len(vec) != dim {
			return fmt.Errorf("vector %d has dimension %d, expected %d", row, len(vec), dim)
		}
		for _, v := range vec {
			binary.LittleEndian.PutUint32(data[offset:], math.Float32bits(v))
			offset += vectorSize
		}
	}

	if err := os.WriteFile(vectorsPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write vector file: %w", err)
	}

	db, err := bbolt.Open(metadataPath, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return fmt.Errorf("failed to open metadata database: %w", err)
	}
	defer db.Close()

	return db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketChunks)
		if err != nil {
			return err
		}
		for row, chunk := range chunks {
			data, err := json.Marshal(chunk)
			if err != nil {
				return err
			}
			if err := b.Put(rowKey(row), data); err != nil {
				return err
			}
		}
		return nil
	})
}
