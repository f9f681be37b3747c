package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const providerPgvector = "pgvector"

var pgvectorTracer = otel.Tracer("pharmadd.vectorstore.pgvector")

// PgvectorConfig holds configuration for the PostgreSQL + pgvector store.
type PgvectorConfig struct {
	// DSN is the PostgreSQL connection string.
	DSN string

	// MaxConns caps the pool size. Default: 10
	MaxConns int32

	// VectorSize is used for collections created without a dimension.
	// Default: 1536
	VectorSize int
}

// ApplyDefaults sets default values for unset fields.
func (c *PgvectorConfig) ApplyDefaults() {
	if c.MaxConns == 0 {
		c.MaxConns = 10
	}
	if c.VectorSize == 0 {
		c.VectorSize = 1536
	}
}

// Validate validates the configuration.
func (c PgvectorConfig) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("%w: dsn required", ErrInvalidConfig)
	}
	if c.MaxConns < 0 {
		return fmt.Errorf("%w: max conns must not be negative", ErrInvalidConfig)
	}
	return nil
}

// schema is applied on startup. All collections share one table keyed by
// (collection, id); the embedding column is untyped so collections may use
// different dimensions.
const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS pharmadd_collections (
	name       TEXT PRIMARY KEY,
	dimension  INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pharmadd_records (
	collection TEXT NOT NULL REFERENCES pharmadd_collections(name) ON DELETE CASCADE,
	id         TEXT NOT NULL,
	content    TEXT NOT NULL,
	metadata   JSONB NOT NULL DEFAULT '{}',
	embedding  vector NOT NULL,
	PRIMARY KEY (collection, id)
);
`

// PgvectorStore implements Store on PostgreSQL with the pgvector extension.
type PgvectorStore struct {
	pool   *pgxpool.Pool
	config PgvectorConfig
	logger *zap.Logger
}

// NewPgvectorStore connects, pings and applies the schema.
func NewPgvectorStore(ctx context.Context, config PgvectorConfig, logger *zap.Logger) (*PgvectorStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.MaxConns = config.MaxConns
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	logger.Info("PgvectorStore initialized",
		zap.String("host", poolConfig.ConnConfig.Host),
		zap.String("database", poolConfig.ConnConfig.Database),
		zap.Int32("max_conns", config.MaxConns),
	)
	return &PgvectorStore{pool: pool, config: config, logger: logger}, nil
}

// Close closes the connection pool.
func (s *PgvectorStore) Close() error {
	s.pool.Close()
	return nil
}

// dimension returns the collection's dimension or ErrCollectionNotFound.
func (s *PgvectorStore) dimension(ctx context.Context, name string) (int, error) {
	if err := ValidateCollectionName(name); err != nil {
		return 0, err
	}
	var dim int
	err := s.pool.QueryRow(ctx,
		`SELECT dimension FROM pharmadd_collections WHERE name = $1`, name,
	).Scan(&dim)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read collection %s: %w", name, err)
	}
	return dim, nil
}

// EnsureCollection registers the collection if missing.
func (s *PgvectorStore) EnsureCollection(ctx context.Context, name string, dimension int) (err error) {
	ctx, span := pgvectorTracer.Start(ctx, "PgvectorStore.EnsureCollection")
	defer span.End()
	defer track(providerPgvector, "ensure_collection")(&err)
	span.SetAttributes(attribute.String("collection", name))

	if err = ValidateCollectionName(name); err != nil {
		return err
	}
	if dimension <= 0 {
		dimension = s.config.VectorSize
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO pharmadd_collections (name, dimension) VALUES ($1, $2)
		 ON CONFLICT (name) DO NOTHING`,
		name, dimension,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	return nil
}

// CollectionExists reports whether the collection exists.
func (s *PgvectorStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	_, err := s.dimension(ctx, name)
	if errors.Is(err, ErrCollectionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Upsert writes records in one transaction.
func (s *PgvectorStore) Upsert(ctx context.Context, collection string, records []Record) (err error) {
	ctx, span := pgvectorTracer.Start(ctx, "PgvectorStore.Upsert")
	defer span.End()
	defer track(providerPgvector, "upsert")(&err)
	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("record_count", len(records)),
	)

	dim, err := s.dimension(ctx, collection)
	if err != nil {
		return err
	}
	if err = validateRecords(records, dim); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, r := range records {
		meta := r.Metadata
		if meta == nil {
			meta = map[string]string{}
		}
		batch.Queue(
			`INSERT INTO pharmadd_records (collection, id, content, metadata, embedding)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (collection, id) DO UPDATE
			 SET content = EXCLUDED.content, metadata = EXCLUDED.metadata, embedding = EXCLUDED.embedding`,
			collection, r.ID, r.Content, meta, pgvector.NewVector(r.Embedding),
		)
	}
	br := tx.SendBatch(ctx, batch)
	for i := range records {
		if _, err = br.Exec(); err != nil {
			_ = br.Close()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to upsert record %d: %w", i, err)
		}
	}
	if err = br.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}

	RecordsUpserted.WithLabelValues(providerPgvector).Add(float64(len(records)))
	return nil
}

// GetAll returns every record of the collection ordered by ID.
func (s *PgvectorStore) GetAll(ctx context.Context, collection string) (out []Record, err error) {
	ctx, span := pgvectorTracer.Start(ctx, "PgvectorStore.GetAll")
	defer span.End()
	defer track(providerPgvector, "get_all")(&err)
	span.SetAttributes(attribute.String("collection", collection))

	if _, err = s.dimension(ctx, collection); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, content, metadata FROM pharmadd_records
		 WHERE collection = $1
		 ORDER BY id`,
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	defer rows.Close()

	out = []Record{}
	for rows.Next() {
		var r Record
		if err = rows.Scan(&r.ID, &r.Content, &r.Metadata); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Query returns the k nearest records using the cosine distance operator.
func (s *PgvectorStore) Query(ctx context.Context, collection string, vector []float32, k int) (out []Match, err error) {
	ctx, span := pgvectorTracer.Start(ctx, "PgvectorStore.Query")
	defer span.End()
	defer track(providerPgvector, "query")(&err)
	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("k", k),
	)

	dim, err := s.dimension(ctx, collection)
	if err != nil {
		return nil, err
	}
	if len(vector) != dim {
		return nil, fmt.Errorf("%w: query has %d, collection has %d", ErrDimensionMismatch, len(vector), dim)
	}
	if k <= 0 {
		return []Match{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, content, metadata, embedding <=> $2 AS distance
		 FROM pharmadd_records
		 WHERE collection = $1
		 ORDER BY embedding <=> $2
		 LIMIT $3`,
		collection, pgvector.NewVector(vector), k,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to search records: %w", err)
	}
	defer rows.Close()

	out = []Match{}
	for rows.Next() {
		var m Match
		if err = rows.Scan(&m.ID, &m.Content, &m.Metadata, &m.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Count returns the number of records in the collection.
func (s *PgvectorStore) Count(ctx context.Context, collection string) (int, error) {
	if _, err := s.dimension(ctx, collection); err != nil {
		return 0, err
	}
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM pharmadd_records WHERE collection = $1`, collection,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// DeleteCollection drops the collection and, by cascade, its records.
func (s *PgvectorStore) DeleteCollection(ctx context.Context, name string) (err error) {
	defer track(providerPgvector, "delete_collection")(&err)
	if err = ValidateCollectionName(name); err != nil {
		return err
	}
	if _, err = s.pool.Exec(ctx, `DELETE FROM pharmadd_collections WHERE name = $1`, name); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", name, err)
	}
	return nil
}

// ListCollections returns collection names, sorted.
func (s *PgvectorStore) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM pharmadd_collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan collections: %w", err)
	}
	return names, nil
}
