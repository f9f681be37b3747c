// Package vectorstore defines the interface for vector storage operations.
//
// A store holds named collections. Each collection is a namespace of
// records addressed by a caller-chosen string ID, compared by cosine
// distance. Writes are upserts: re-writing an ID replaces the record.
package vectorstore

import (
	"context"
	"errors"
)

// Sentinel errors for vector store operations.
var (
	// ErrCollectionNotFound is returned when a collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyRecords indicates an upsert without records.
	ErrEmptyRecords = errors.New("empty or nil records")

	// ErrConnectionFailed indicates the backing service is unreachable.
	ErrConnectionFailed = errors.New("failed to connect to vector store")

	// ErrInvalidCollectionName indicates collection name validation failure.
	ErrInvalidCollectionName = errors.New("invalid collection name")

	// ErrDimensionMismatch indicates a vector of the wrong size.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Record is one stored entry.
type Record struct {
	// ID is the caller-chosen identifier, unique within a collection.
	ID string `json:"id"`

	// Content is the stored text.
	Content string `json:"content"`

	// Metadata is flat string metadata.
	Metadata map[string]string `json:"metadata"`

	// Embedding is the vector. It is required on upsert and omitted on reads.
	Embedding []float32 `json:"-"`
}

// Match is a record returned by a similarity query.
type Match struct {
	Record

	// Distance is the cosine distance to the query (0 = identical).
	Distance float64 `json:"distance"`
}

// Store is the vector index capability.
type Store interface {
	// EnsureCollection creates the collection if missing. Idempotent.
	EnsureCollection(ctx context.Context, name string, dimension int) error

	// CollectionExists reports whether the collection exists.
	CollectionExists(ctx context.Context, name string) (bool, error)

	// Upsert writes records by ID, replacing existing ones.
	Upsert(ctx context.Context, collection string, records []Record) error

	// GetAll returns every record of the collection, ordered by ID.
	// Returns ErrCollectionNotFound for a missing collection.
	GetAll(ctx context.Context, collection string) ([]Record, error)

	// Query returns the k records nearest to vector, ascending by distance.
	// Returns ErrCollectionNotFound for a missing collection.
	Query(ctx context.Context, collection string, vector []float32, k int) ([]Match, error)

	// Count returns the number of records in the collection.
	Count(ctx context.Context, collection string) (int, error)

	// DeleteCollection removes the collection and its records.
	DeleteCollection(ctx context.Context, name string) error

	// ListCollections returns all collection names.
	ListCollections(ctx context.Context) ([]string, error)

	// Close releases resources held by the store.
	Close() error
}
