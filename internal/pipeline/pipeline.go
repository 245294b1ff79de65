// Package pipeline wires the ingestion stages together: fetch → normalize →
// vectorize → store. The stages run strictly sequentially — fetching
// completes before vectorization starts, vectorization completes before
// storage starts. A run either finishes all stages or returns the first
// fatal error.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/finscout/finscout/internal/embed"
	"github.com/finscout/finscout/internal/source"
	"github.com/finscout/finscout/internal/storage"
	"github.com/finscout/finscout/pkg/types"
)

// Options configures a pipeline run.
type Options struct {
	Registry    *source.Registry
	RosterPath  string
	Vectorizer  *embed.Vectorizer
	Writer      *storage.Writer
	TargetCount int

	// Embeddings toggles the vectorize and embedding-write stages for the
	// company pipeline. When false only entity rows are written.
	Embeddings bool
}

// Pipeline runs the ingestion flows. Each run is stamped with a fresh run id
// so interleaved log output from repeated invocations stays attributable.
type Pipeline struct {
	opts  Options
	runID string
}

// New creates a pipeline with the given options.
func New(opts Options) *Pipeline {
	return &Pipeline{opts: opts, runID: uuid.New().String()[:8]}
}

// IngestCompanies runs the registry flow: paginated fetch, descriptive-text
// normalization, batch vectorization and the two-phase store write. With
// embeddings off, only entity rows are written.
func (p *Pipeline) IngestCompanies(ctx context.Context) error {
	log.Printf("pipeline[%s]: ingesting companies (target %d, embeddings %v)", p.runID, p.opts.TargetCount, p.opts.Embeddings)

	entities, err := p.opts.Registry.Fetch(ctx, p.opts.TargetCount)
	if err != nil {
		return fmt.Errorf("pipeline: registry fetch failed: %w", err)
	}
	if len(entities) == 0 {
		log.Printf("pipeline[%s]: no companies matched the filters, nothing to store", p.runID)
		return nil
	}

	if !p.opts.Embeddings {
		return p.opts.Writer.StoreEntities(ctx, entities)
	}
	return p.vectorizeAndStore(ctx, entities, source.DescribeCompany)
}

// IngestInvestors runs the roster flow: load the static roster, normalize,
// vectorize and store.
func (p *Pipeline) IngestInvestors(ctx context.Context) error {
	log.Printf("pipeline[%s]: ingesting investors from %s", p.runID, p.opts.RosterPath)

	entities, err := source.LoadRoster(p.opts.RosterPath)
	if err != nil {
		return fmt.Errorf("pipeline: roster load failed: %w", err)
	}
	if len(entities) == 0 {
		log.Printf("pipeline[%s]: roster is empty, nothing to store", p.runID)
		return nil
	}

	return p.vectorizeAndStore(ctx, entities, source.DescribeInvestor)
}

// vectorizeAndStore runs the shared tail of both flows. The entity→vector
// alignment is carried by types.Pair, which rejects any length drift before
// the store sees the data.
func (p *Pipeline) vectorizeAndStore(ctx context.Context, entities []types.NormalizedEntity, describe func(types.NormalizedEntity) string) error {
	texts := make([]string, len(entities))
	for i, e := range entities {
		texts[i] = describe(e)
	}

	vectors, err := p.opts.Vectorizer.Vectorize(ctx, texts)
	if err != nil {
		return fmt.Errorf("pipeline: vectorization failed: %w", err)
	}

	paired, err := types.Pair(entities, vectors)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	if err := p.opts.Writer.Store(ctx, paired); err != nil {
		return fmt.Errorf("pipeline: store failed: %w", err)
	}

	log.Printf("pipeline[%s]: stored %d entities with embeddings", p.runID, len(paired))
	return nil
}
