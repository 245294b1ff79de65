// Package sqlite provides the SQLite implementation of the entity store.
// Vectors are stored as little-endian float32 BLOBs — there is no pgvector
// here, similarity search over this backend decodes the blobs.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/finscout/finscout/internal/storage"
	"github.com/finscout/finscout/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS entities (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    natural_key TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    attributes TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_entities_natural_key ON entities(natural_key);

CREATE TABLE IF NOT EXISTS embeddings (
    entity_id INTEGER PRIMARY KEY REFERENCES entities(id) ON DELETE CASCADE,
    embedding BLOB NOT NULL,
    dimension INTEGER NOT NULL,
    model TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Store implements storage.EntityStore using SQLite.
type Store struct {
	db    *sql.DB
	model string
}

// NewStore opens (or creates) the SQLite database at path and applies the
// schema. model is recorded with every embedding row.
func NewStore(path, model string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// SQLite handles one writer at a time; the pipeline is single-threaded
	// anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to apply schema: %w", err)
	}

	return &Store{db: db, model: model}, nil
}

// UpsertEntities inserts or updates the given entities in one multi-row
// statement keyed on natural_key.
func (s *Store) UpsertEntities(ctx context.Context, entities []types.NormalizedEntity) error {
	if len(entities) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(entities))
	args := make([]any, 0, len(entities)*3)
	for i, e := range entities {
		if e.NaturalKey == "" {
			return fmt.Errorf("%w: entity %d has an empty natural key", storage.ErrInvalidInput, i)
		}
		attrs, err := json.Marshal(e.Attributes)
		if err != nil {
			return fmt.Errorf("sqlite: failed to marshal attributes for %q: %w", e.NaturalKey, err)
		}
		placeholders = append(placeholders, "(?, ?, ?)")
		args = append(args, e.NaturalKey, e.DisplayName, string(attrs))
	}

	query := fmt.Sprintf(`
		INSERT INTO entities (natural_key, display_name, attributes)
		VALUES %s
		ON CONFLICT(natural_key) DO UPDATE SET
			display_name = excluded.display_name,
			attributes = excluded.attributes,
			updated_at = CURRENT_TIMESTAMP
	`, strings.Join(placeholders, ", "))

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlite: failed to upsert entities: %w", err)
	}
	return nil
}

// ResolveIDs returns the natural_key → id mapping for the given keys.
func (s *Store) ResolveIDs(ctx context.Context, naturalKeys []string) (map[string]int64, error) {
	if len(naturalKeys) == 0 {
		return map[string]int64{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(naturalKeys)), ", ")
	args := make([]any, len(naturalKeys))
	for i, k := range naturalKeys {
		args[i] = k
	}

	query := fmt.Sprintf(`SELECT id, natural_key FROM entities WHERE natural_key IN (%s)`, placeholders)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to resolve ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := make(map[string]int64, len(naturalKeys))
	for rows.Next() {
		var id int64
		var key string
		if err := rows.Scan(&id, &key); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan id row: %w", err)
		}
		ids[key] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: id read-back failed: %w", err)
	}
	return ids, nil
}

// UpsertEmbeddings inserts or replaces one embedding per entity inside a
// single transaction.
func (s *Store) UpsertEmbeddings(ctx context.Context, batch []storage.EmbeddingRow) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO embeddings (entity_id, embedding, dimension, model, created_at, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(entity_id) DO UPDATE SET
			embedding = excluded.embedding,
			dimension = excluded.dimension,
			model = excluded.model,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("sqlite: failed to prepare embedding upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, row := range batch {
		if len(row.Vector) == 0 {
			return fmt.Errorf("%w: embedding vector for entity %d is empty", storage.ErrInvalidInput, row.EntityID)
		}
		blob := storage.SerializeVector(row.Vector)
		if _, err := stmt.ExecContext(ctx, row.EntityID, blob, len(row.Vector), s.model); err != nil {
			return fmt.Errorf("sqlite: failed to upsert embedding for entity %d: %w", row.EntityID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: failed to commit embedding batch: %w", err)
	}
	return nil
}

// GetEmbedding retrieves the stored embedding for an entity, decoding the
// BLOB back into a vector. Returns storage.ErrNotFound when no embedding
// exists.
func (s *Store) GetEmbedding(ctx context.Context, entityID int64) ([]float32, error) {
	var blob []byte
	var dimension int

	query := `SELECT embedding, dimension FROM embeddings WHERE entity_id = ?`
	err := s.db.QueryRowContext(ctx, query, entityID).Scan(&blob, &dimension)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: failed to get embedding: %w", err)
	}

	vector, err := storage.DeserializeVector(blob, dimension)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to deserialize embedding: %w", err)
	}
	return vector, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Compile-time assertion.
var _ storage.EntityStore = (*Store)(nil)
