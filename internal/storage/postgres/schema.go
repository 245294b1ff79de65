// Package postgres provides the PostgreSQL implementation of the entity
// store, with pgvector-backed embedding storage when the extension is
// available.
package postgres

// Schema contains the SQL statements to create the database schema.
// All statements are idempotent (IF NOT EXISTS) so the schema can be applied
// on every startup.
const Schema = `
-- Entities table: one row per ingested company or investor.
-- natural_key is the upsert conflict key; id is the surrogate key that
-- embeddings reference.
CREATE TABLE IF NOT EXISTS entities (
    id BIGSERIAL PRIMARY KEY,
    natural_key TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    attributes JSONB,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_entities_natural_key ON entities(natural_key);

-- Embeddings table: at most one vector per entity (PRIMARY KEY on the FK).
-- The vector is always stored as BYTEA; embedding_vec is added by the
-- pgvector migration when the extension is available.
CREATE TABLE IF NOT EXISTS embeddings (
    entity_id BIGINT PRIMARY KEY REFERENCES entities(id) ON DELETE CASCADE,
    embedding BYTEA NOT NULL,
    dimension INTEGER NOT NULL,
    model TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// MigrationPgvector adds the native vector column and its cosine-distance
// index. Applied only when the pgvector extension could be enabled.
const MigrationPgvector = `
ALTER TABLE embeddings ADD COLUMN IF NOT EXISTS embedding_vec vector(1024);

CREATE INDEX IF NOT EXISTS idx_embeddings_vec_cosine
    ON embeddings USING ivfflat (embedding_vec vector_cosine_ops) WITH (lists = 100);
`
