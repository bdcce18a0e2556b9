// Package engine defines the search backend contract shared by the
// Elasticsearch and in-memory implementations.
package engine

import (
	"context"
	"errors"

	"github.com/NurulloMahmud/tafakkur/internal/domain"
	"github.com/NurulloMahmud/tafakkur/internal/search/query"
)

// ErrIndexNotFound is returned when searching an index that was never created.
var ErrIndexNotFound = errors.New("index not found")

// Result is one page of ranked hits.
type Result struct {
	Hits   []domain.Hit
	Total  int
	TookMs int64
}

// SearchEngine indexes SearchDocuments and evaluates query.Requests.
type SearchEngine interface {
	// EnsureIndex creates index with text mappings for fields. An existing
	// index is left untouched.
	EnsureIndex(ctx context.Context, index string, fields []string) error

	// Upsert creates or overwrites one document by id.
	Upsert(ctx context.Context, index string, doc domain.SearchDocument) error

	// BulkUpsert writes docs in a single round trip. Any per-document
	// failure fails the whole call.
	BulkUpsert(ctx context.Context, index string, docs []domain.SearchDocument) error

	// Refresh makes every write so far visible to Search.
	Refresh(ctx context.Context, index string) error

	// Search runs req against index.
	Search(ctx context.Context, index string, req *query.Request) (*Result, error)

	// Ping checks backend reachability.
	Ping(ctx context.Context) error
}
