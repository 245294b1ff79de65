package embed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder records batch calls and returns deterministic vectors whose
// first component encodes the global input index, so order violations are
// visible in assertions.
type fakeEmbedder struct {
	dimension int
	batches   [][]string
	failAt    int // 1-based batch number to fail on, 0 = never
	seen      int
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.batches = append(f.batches, texts)
	if f.failAt > 0 && len(f.batches) == f.failAt {
		return nil, errors.New("simulated provider failure")
	}

	vectors := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, f.dimension)
		vec[0] = float32(f.seen)
		f.seen++
		vectors[i] = vec
	}
	return vectors, nil
}

func texts(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("text-%d", i)
	}
	return out
}

func TestVectorize_PreservesLengthAndOrder(t *testing.T) {
	emb := &fakeEmbedder{dimension: 8}
	v := NewVectorizer(emb, VectorizerConfig{ChunkSize: 3, InterBatchDelay: time.Millisecond, Dimension: 8})

	vectors, err := v.Vectorize(context.Background(), texts(8))
	require.NoError(t, err)

	require.Len(t, vectors, 8)
	for i, vec := range vectors {
		assert.Equal(t, float32(i), vec[0], "vector %d must correspond to text %d", i, i)
	}
}

func TestVectorize_ChunksInputAtChunkSize(t *testing.T) {
	emb := &fakeEmbedder{dimension: 4}
	v := NewVectorizer(emb, VectorizerConfig{ChunkSize: 3, InterBatchDelay: time.Millisecond, Dimension: 4})

	_, err := v.Vectorize(context.Background(), texts(7))
	require.NoError(t, err)

	require.Len(t, emb.batches, 3)
	assert.Len(t, emb.batches[0], 3)
	assert.Len(t, emb.batches[1], 3)
	assert.Len(t, emb.batches[2], 1)
}

func TestVectorize_FailureDiscardsEverything(t *testing.T) {
	emb := &fakeEmbedder{dimension: 4, failAt: 2}
	v := NewVectorizer(emb, VectorizerConfig{ChunkSize: 2, InterBatchDelay: time.Millisecond, Dimension: 4})

	vectors, err := v.Vectorize(context.Background(), texts(6))
	require.Error(t, err)
	assert.Nil(t, vectors, "no partial results on failure")
	assert.Contains(t, err.Error(), "batch 2/3")
}

func TestVectorize_RejectsWrongDimension(t *testing.T) {
	emb := &fakeEmbedder{dimension: 7}
	v := NewVectorizer(emb, VectorizerConfig{ChunkSize: 10, InterBatchDelay: time.Millisecond, Dimension: 8})

	_, err := v.Vectorize(context.Background(), texts(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension 7, want 8")
}

func TestVectorize_EmptyInput(t *testing.T) {
	emb := &fakeEmbedder{dimension: 4}
	v := NewVectorizer(emb, VectorizerConfig{ChunkSize: 2, InterBatchDelay: time.Millisecond, Dimension: 4})

	vectors, err := v.Vectorize(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Empty(t, emb.batches, "no request for empty input")
}

func TestVectorize_WaitsBetweenBatches(t *testing.T) {
	emb := &fakeEmbedder{dimension: 4}
	delay := 50 * time.Millisecond
	v := NewVectorizer(emb, VectorizerConfig{ChunkSize: 1, InterBatchDelay: delay, Dimension: 4})

	start := time.Now()
	_, err := v.Vectorize(context.Background(), texts(3))
	require.NoError(t, err)

	// First batch is immediate, the second and third each wait the delay.
	assert.GreaterOrEqual(t, time.Since(start), 2*delay)
}

func TestVectorize_CancelledContextAborts(t *testing.T) {
	emb := &fakeEmbedder{dimension: 4}
	v := NewVectorizer(emb, VectorizerConfig{ChunkSize: 1, InterBatchDelay: time.Hour, Dimension: 4})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := v.Vectorize(ctx, texts(2))
	require.Error(t, err, "second batch must abort on the cancelled inter-batch wait")
}
