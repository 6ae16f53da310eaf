package search

import (
	"context"

	"github.com/ovunque/nlsearch/internal/domain/audit"
	"github.com/ovunque/nlsearch/internal/domain/record"
)

// RecordStore defines the storage contract for entity records.
type RecordStore interface {
	Put(ctx context.Context, rec record.Record) error
	PutMulti(ctx context.Context, recs []record.Record) error
	Get(ctx context.Context, entity string, id int64) (record.Record, error)
	All(ctx context.Context, entity string) ([]record.Record, error)
	ByIDs(ctx context.Context, entity string, ids []int64) ([]record.Record, error)
	Delete(ctx context.Context, entity string, id int64) error
}

// AuditStore persists search query rows and their result rows.
type AuditStore interface {
	NextID(ctx context.Context) (int64, error)
	SaveQuery(ctx context.Context, q audit.SearchQuery) error
	GetQuery(ctx context.Context, id int64) (audit.SearchQuery, error)
	SaveResults(ctx context.Context, results []audit.SearchResult) error
	ResultsForQuery(ctx context.Context, queryID int64) ([]audit.SearchResult, error)
}

// LLM produces a completion for a system and user prompt pair.
type LLM interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
