package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finscout/finscout/pkg/types"
)

// fakeStore records the calls the writer makes. Surrogate ids are assigned
// in order of first appearance, mirroring a serial column.
type fakeStore struct {
	upsertCalls    [][]types.NormalizedEntity
	resolveCalls   [][]string
	embeddingCalls [][]EmbeddingRow

	ids        map[string]int64
	nextID     int64
	unmapped   map[string]bool // keys to omit from ResolveIDs
	upsertErr  error
	resolveErr error
	embedErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{ids: map[string]int64{}, unmapped: map[string]bool{}}
}

func (f *fakeStore) UpsertEntities(_ context.Context, entities []types.NormalizedEntity) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upsertCalls = append(f.upsertCalls, entities)
	for _, e := range entities {
		if _, ok := f.ids[e.NaturalKey]; !ok {
			f.nextID++
			f.ids[e.NaturalKey] = f.nextID
		}
	}
	return nil
}

func (f *fakeStore) ResolveIDs(_ context.Context, keys []string) (map[string]int64, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	f.resolveCalls = append(f.resolveCalls, keys)
	out := map[string]int64{}
	for _, k := range keys {
		if f.unmapped[k] {
			continue
		}
		if id, ok := f.ids[k]; ok {
			out[k] = id
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertEmbeddings(_ context.Context, rows []EmbeddingRow) error {
	if f.embedErr != nil {
		return f.embedErr
	}
	copied := make([]EmbeddingRow, len(rows))
	copy(copied, rows)
	f.embeddingCalls = append(f.embeddingCalls, copied)
	return nil
}

func (f *fakeStore) Close() error { return nil }

func items(n int) []types.VectorizedEntity {
	out := make([]types.VectorizedEntity, n)
	for i := range out {
		out[i] = types.VectorizedEntity{
			Entity: types.NormalizedEntity{
				NaturalKey:  fmt.Sprintf("key-%d", i),
				DisplayName: fmt.Sprintf("Entity %d", i),
			},
			Vector: []float32{float32(i)},
		}
	}
	return out
}

func TestStore_TwoPhaseProtocol(t *testing.T) {
	store := newFakeStore()
	w := NewWriter(store, 50)

	require.NoError(t, w.Store(context.Background(), items(2)))

	require.Len(t, store.upsertCalls, 1, "one entity upsert call")
	assert.Len(t, store.upsertCalls[0], 2)
	require.Len(t, store.resolveCalls, 1, "one read-back select")
	require.Len(t, store.embeddingCalls, 1, "one embedding batch")
	assert.Len(t, store.embeddingCalls[0], 2)
}

func TestStore_BatchesEmbeddingWrites(t *testing.T) {
	store := newFakeStore()
	w := NewWriter(store, 3)

	require.NoError(t, w.Store(context.Background(), items(8)))

	require.Len(t, store.embeddingCalls, 3)
	assert.Len(t, store.embeddingCalls[0], 3)
	assert.Len(t, store.embeddingCalls[1], 3)
	assert.Len(t, store.embeddingCalls[2], 2)
}

func TestStore_PreservesAlignmentAcrossUnmappedKeys(t *testing.T) {
	store := newFakeStore()
	store.unmapped["key-1"] = true
	w := NewWriter(store, 50)

	require.NoError(t, w.Store(context.Background(), items(3)),
		"an unmapped key must be skipped, not fatal")

	require.Len(t, store.embeddingCalls, 1)
	rows := store.embeddingCalls[0]
	require.Len(t, rows, 2)

	// key-0 and key-2 kept their own vectors despite the filtered row.
	assert.Equal(t, store.ids["key-0"], rows[0].EntityID)
	assert.Equal(t, []float32{0}, rows[0].Vector)
	assert.Equal(t, store.ids["key-2"], rows[1].EntityID)
	assert.Equal(t, []float32{2}, rows[1].Vector)
}

func TestStore_UpsertErrorIsFatal(t *testing.T) {
	store := newFakeStore()
	store.upsertErr = errors.New("connection reset")
	w := NewWriter(store, 50)

	err := w.Store(context.Background(), items(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entity upsert failed")
}

func TestStore_ReadBackErrorIsFatal(t *testing.T) {
	store := newFakeStore()
	store.resolveErr = errors.New("connection reset")
	w := NewWriter(store, 50)

	err := w.Store(context.Background(), items(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-back failed")
}

func TestStore_EmbeddingErrorIsFatal(t *testing.T) {
	store := newFakeStore()
	store.embedErr = errors.New("payload too large")
	w := NewWriter(store, 50)

	err := w.Store(context.Background(), items(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding upsert failed")
}

func TestStoreEntities_NoEmbeddingCalls(t *testing.T) {
	store := newFakeStore()
	w := NewWriter(store, 50)

	e := []types.NormalizedEntity{{NaturalKey: "key-0", DisplayName: "Entity 0"}}
	require.NoError(t, w.StoreEntities(context.Background(), e))

	assert.Len(t, store.upsertCalls, 1)
	assert.Empty(t, store.resolveCalls)
	assert.Empty(t, store.embeddingCalls)
}

func TestSerializeVector_RoundTrip(t *testing.T) {
	vec := []float32{1.5, -2.25, 0, 3.14159}
	buf := SerializeVector(vec)
	assert.Len(t, buf, 16)

	got, err := DeserializeVector(buf, 4)
	require.NoError(t, err)
	assert.Equal(t, vec, got)

	_, err = DeserializeVector(buf, 5)
	require.Error(t, err)
}
