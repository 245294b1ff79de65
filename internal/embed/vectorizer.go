package embed

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/finscout/finscout/pkg/types"
)

const (
	// defaultChunkSize is the number of texts per embedding request.
	defaultChunkSize = 100

	// defaultInterBatchDelay keeps one request per minute, matching the
	// provider's requests-per-minute ceiling. Pre-emptive and fixed: no
	// reactive backoff, no rate-limit header adaptation.
	defaultInterBatchDelay = 60 * time.Second
)

// BatchEmbedder is the contract of the external embedding service: one
// request per batch, vectors returned in input order.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorizerConfig holds the scheduling policy of the vectorizer: how many
// texts per request and how long to pause between requests.
type VectorizerConfig struct {
	ChunkSize       int           // default: 100
	InterBatchDelay time.Duration // default: 60s
	Dimension       int           // default: types.EmbeddingDimension
}

// Vectorizer turns a sequence of texts into a sequence of fixed-dimension
// vectors, one chunk-sized request at a time. The output is positionally
// aligned with the input: vector i was computed from text i. Any request
// error aborts the whole call — the pipeline never persists a partial
// vector set.
type Vectorizer struct {
	embedder BatchEmbedder
	cfg      VectorizerConfig
	limiter  *rate.Limiter
}

// NewVectorizer creates a vectorizer over the given embedder.
func NewVectorizer(embedder BatchEmbedder, cfg VectorizerConfig) *Vectorizer {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.InterBatchDelay <= 0 {
		cfg.InterBatchDelay = defaultInterBatchDelay
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = types.EmbeddingDimension
	}
	return &Vectorizer{
		embedder: embedder,
		cfg:      cfg,
		// Burst 1: the initial token covers the first chunk, every later
		// chunk waits out the inter-batch delay.
		limiter: rate.NewLimiter(rate.Every(cfg.InterBatchDelay), 1),
	}
}

// Vectorize embeds all texts and returns one vector per text, same length
// and order. All-or-nothing: a failing chunk discards everything, including
// the already-embedded prefix.
func (v *Vectorizer) Vectorize(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	chunks := (len(texts) + v.cfg.ChunkSize - 1) / v.cfg.ChunkSize

	for start := 0; start < len(texts); start += v.cfg.ChunkSize {
		if err := v.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("embed: inter-batch delay interrupted: %w", err)
		}

		end := start + v.cfg.ChunkSize
		if end > len(texts) {
			end = len(texts)
		}

		chunk := texts[start:end]
		got, err := v.embedder.EmbedBatch(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("embed: batch %d/%d failed: %w", start/v.cfg.ChunkSize+1, chunks, err)
		}

		// The service returns no correlation key, so order is the contract:
		// verify only the shape here.
		if len(got) != len(chunk) {
			return nil, fmt.Errorf("embed: batch %d/%d returned %d vectors for %d texts", start/v.cfg.ChunkSize+1, chunks, len(got), len(chunk))
		}
		for i, vec := range got {
			if len(vec) != v.cfg.Dimension {
				return nil, fmt.Errorf("embed: vector %d has dimension %d, want %d", start+i, len(vec), v.cfg.Dimension)
			}
		}

		vectors = append(vectors, got...)
	}

	log.Printf("embed: vectorized %d texts in %d batches", len(texts), chunks)
	return vectors, nil
}
