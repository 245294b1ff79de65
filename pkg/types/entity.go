// Package types defines the core data types shared across the FinScout
// ingestion pipeline.
package types

import "fmt"

// NormalizedEntity is the source-independent representation of one ingested
// record. Both source adapters (company registry, investor roster) produce a
// sequence of these.
type NormalizedEntity struct {
	// NaturalKey is the externally meaningful unique identifier (business ID
	// or investor ID). It is the upsert conflict key: it must be non-empty
	// and stable across runs so that re-running updates rows instead of
	// duplicating them.
	NaturalKey string

	// DisplayName is the human-readable name of the entity.
	DisplayName string

	// Attributes is the structured detail payload (description, address,
	// registration date, industry label, or the verbatim investor object).
	// It is stored as an opaque JSON document and never interpreted by the
	// store.
	Attributes map[string]any
}

// ClassificationEntry is one row of the industry classification table,
// cached for process lifetime once loaded.
type ClassificationEntry struct {
	// Code is the industry classification code (e.g. "0910").
	Code string

	// Label is the resolved description for the code.
	Label string

	// IsSourceLanguage is true when Label is the Finnish variant and still
	// needs translation before being embedded.
	IsSourceLanguage bool
}

// EmbeddingDimension is the fixed length of every embedding vector produced
// by the vectorizer. Vectors of any other length are rejected at the
// pipeline boundary.
const EmbeddingDimension = 1024

// VectorizedEntity pairs an entity with the embedding computed from its
// descriptive text. The pairing is carried in one value, rather than two
// parallel slices, so positional alignment cannot drift between pipeline
// stages.
type VectorizedEntity struct {
	Entity NormalizedEntity
	Vector []float32
}

// Pair zips entities with their vectors. It returns an error unless the two
// sequences have the same length; the i-th vector must have been derived
// from the i-th entity's text.
func Pair(entities []NormalizedEntity, vectors [][]float32) ([]VectorizedEntity, error) {
	if len(entities) != len(vectors) {
		return nil, fmt.Errorf("types: entity/vector count mismatch: %d entities, %d vectors", len(entities), len(vectors))
	}

	paired := make([]VectorizedEntity, len(entities))
	for i := range entities {
		paired[i] = VectorizedEntity{Entity: entities[i], Vector: vectors[i]}
	}
	return paired, nil
}
