// Package storage defines the upsert store contract of the ingestion
// pipeline and the writer that drives its two-phase protocol.
//
// The store is deliberately small: entities are upserted on their natural
// key, surrogate ids are read back in a second round-trip, and embeddings
// are upserted against the surrogate ids. Backends (PostgreSQL with
// pgvector, SQLite) implement the same interface.
package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/finscout/finscout/pkg/types"
)

var (
	// ErrNotFound indicates that the requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// EmbeddingRow links one embedding vector to the surrogate id of its entity.
// Each entity has at most one embedding (unique constraint on EntityID);
// upserting replaces any previous vector.
type EmbeddingRow struct {
	EntityID int64
	Vector   []float32
}

// EntityStore is the backend contract for the upsert writer.
//
// UpsertEntities must not assume that the backend returns surrogate ids for
// conflicted rows — ResolveIDs exists precisely because that behavior is
// unreliable across backends.
type EntityStore interface {
	// UpsertEntities inserts or updates entities keyed on natural_key.
	// An update replaces display name and attributes and preserves the
	// surrogate id.
	UpsertEntities(ctx context.Context, entities []types.NormalizedEntity) error

	// ResolveIDs returns the natural_key → surrogate id mapping for the
	// given keys. Keys with no row are simply absent from the result.
	ResolveIDs(ctx context.Context, naturalKeys []string) (map[string]int64, error)

	// UpsertEmbeddings inserts or replaces one embedding per entity.
	UpsertEmbeddings(ctx context.Context, rows []EmbeddingRow) error

	// Close releases any resources held by the store.
	Close() error
}

// SerializeVector converts a float32 vector to its binary representation
// (little-endian, 4 bytes per component) for BLOB/BYTEA storage.
func SerializeVector(vector []float32) []byte {
	buf := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DeserializeVector converts the binary representation back to a float32
// vector, validating the buffer against the expected dimension.
func DeserializeVector(buf []byte, dimension int) ([]float32, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension: %d", dimension)
	}
	if len(buf) != dimension*4 {
		return nil, fmt.Errorf("buffer size mismatch: expected %d bytes, got %d", dimension*4, len(buf))
	}

	vector := make([]float32, dimension)
	for i := 0; i < dimension; i++ {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vector, nil
}
