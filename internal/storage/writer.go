package storage

import (
	"context"
	"fmt"
	"log"

	"github.com/finscout/finscout/pkg/types"
)

// defaultWriteBatchSize bounds the payload of one embedding upsert request.
const defaultWriteBatchSize = 50

// Writer persists entities and their vectors through an EntityStore using
// the two-phase upsert-then-read-back protocol:
//
//  1. Upsert entity rows keyed on natural_key.
//  2. Read back surrogate ids for all supplied keys.
//  3. Map vectors onto surrogate ids, skipping keys the read-back did not
//     return (should not happen, but must not be fatal).
//  4. Upsert embedding rows in size-bounded batches.
//
// Any store error aborts with a propagated error; batches already committed
// remain — there is no cross-batch transaction.
type Writer struct {
	store     EntityStore
	batchSize int
}

// NewWriter creates a writer over the given store. batchSize bounds the
// embedding upsert batches; zero or negative selects the default of 50.
func NewWriter(store EntityStore, batchSize int) *Writer {
	if batchSize <= 0 {
		batchSize = defaultWriteBatchSize
	}
	return &Writer{store: store, batchSize: batchSize}
}

// StoreEntities upserts entity rows without touching embeddings. Used when
// the embeddings toggle is off.
func (w *Writer) StoreEntities(ctx context.Context, entities []types.NormalizedEntity) error {
	if len(entities) == 0 {
		return nil
	}
	if err := w.store.UpsertEntities(ctx, entities); err != nil {
		return fmt.Errorf("storage: entity upsert failed: %w", err)
	}
	log.Printf("storage: upserted %d entities", len(entities))
	return nil
}

// Store persists the paired entities and vectors. The pairing type already
// guarantees positional alignment; the per-item vectors were validated for
// dimension by the vectorizer.
func (w *Writer) Store(ctx context.Context, items []types.VectorizedEntity) error {
	if len(items) == 0 {
		return nil
	}

	entities := make([]types.NormalizedEntity, len(items))
	keys := make([]string, len(items))
	for i, item := range items {
		entities[i] = item.Entity
		keys[i] = item.Entity.NaturalKey
	}

	if err := w.store.UpsertEntities(ctx, entities); err != nil {
		return fmt.Errorf("storage: entity upsert failed: %w", err)
	}

	ids, err := w.store.ResolveIDs(ctx, keys)
	if err != nil {
		return fmt.Errorf("storage: surrogate id read-back failed: %w", err)
	}

	rows := make([]EmbeddingRow, 0, len(items))
	for _, item := range items {
		id, ok := ids[item.Entity.NaturalKey]
		if !ok {
			// Excluded from the embedding write rather than failing the run.
			log.Printf("storage: no surrogate id for %q after upsert, skipping its embedding", item.Entity.NaturalKey)
			continue
		}
		rows = append(rows, EmbeddingRow{EntityID: id, Vector: item.Vector})
	}

	for start := 0; start < len(rows); start += w.batchSize {
		end := start + w.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := w.store.UpsertEmbeddings(ctx, rows[start:end]); err != nil {
			return fmt.Errorf("storage: embedding upsert failed (rows %d-%d): %w", start, end-1, err)
		}
	}

	log.Printf("storage: upserted %d entities and %d embeddings", len(items), len(rows))
	return nil
}
