// Package audit persists search query rows and their result rows.
package audit

import (
	"context"
	"fmt"
	"sort"

	"github.com/ovunque/nlsearch/internal/db"
	"github.com/ovunque/nlsearch/internal/domain"
	domaud "github.com/ovunque/nlsearch/internal/domain/audit"
)

// store is the consumer interface for audit persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	DelMulti(ctx context.Context, keys []string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	Incr(ctx context.Context, key string) (int64, error)
}

// Repo implements usecase/search.AuditStore.
type Repo struct {
	store  store
	prefix string
}

// New creates an audit repository. Query rows live at
// {prefix}query:{id}, result rows at {prefix}result:{queryID}:{position},
// and the ID sequence at {prefix}query:seq.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// NextID allocates a query row identifier from the shared sequence.
func (r *Repo) NextID(ctx context.Context) (int64, error) {
	id, err := r.store.Incr(ctx, r.prefix+"query:seq")
	if err != nil {
		return 0, fmt.Errorf("incr query seq: %w", err)
	}
	return id, nil
}

// SaveQuery writes a query row, overwriting any previous state. Draft
// rows are written before execution so failures still leave a trace.
func (r *Repo) SaveQuery(ctx context.Context, q domaud.SearchQuery) error {
	key := r.queryKey(q.ID())
	if err := r.store.HSet(ctx, key, queryToHash(q)); err != nil {
		return fmt.Errorf("hset query %s: %w", key, err)
	}
	return nil
}

// GetQuery retrieves one query row.
func (r *Repo) GetQuery(ctx context.Context, id int64) (domaud.SearchQuery, error) {
	key := r.queryKey(id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domaud.SearchQuery{}, fmt.Errorf("hgetall query %s: %w", key, err)
	}
	if len(m) == 0 {
		return domaud.SearchQuery{}, domain.ErrNotFound
	}
	return queryFromHash(id, m)
}

// SaveResults writes the result rows of a query in one batch.
func (r *Repo) SaveResults(ctx context.Context, results []domaud.SearchResult) error {
	if len(results) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, len(results))
	for i, res := range results {
		items[i] = db.HashSetItem{Key: r.resultKey(res.QueryID(), res.Position()), Fields: resultToHash(res)}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset multi results: %w", err)
	}
	return nil
}

// ResultsForQuery returns a query's result rows in display order.
func (r *Repo) ResultsForQuery(ctx context.Context, queryID int64) ([]domaud.SearchResult, error) {
	keys, err := r.store.Scan(ctx, fmt.Sprintf("%sresult:%d:*", r.prefix, queryID))
	if err != nil {
		return nil, fmt.Errorf("scan results %d: %w", queryID, err)
	}
	if len(keys) == 0 {
		return []domaud.SearchResult{}, nil
	}

	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi results %d: %w", queryID, err)
	}

	results := make([]domaud.SearchResult, 0, len(maps))
	for _, m := range maps {
		if len(m) == 0 {
			continue
		}
		res, err := resultFromHash(queryID, m)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Position() < results[j].Position() })
	return results, nil
}

// DeleteQuery removes a query row together with its result rows.
func (r *Repo) DeleteQuery(ctx context.Context, id int64) error {
	key := r.queryKey(id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return fmt.Errorf("hgetall query %s: %w", key, err)
	}
	if len(m) == 0 {
		return domain.ErrNotFound
	}

	resultKeys, err := r.store.Scan(ctx, fmt.Sprintf("%sresult:%d:*", r.prefix, id))
	if err != nil {
		return fmt.Errorf("scan results %d: %w", id, err)
	}

	keys := append([]string{key}, resultKeys...)
	if err := r.store.DelMulti(ctx, keys); err != nil {
		return fmt.Errorf("del query %d: %w", id, err)
	}
	return nil
}

func (r *Repo) queryKey(id int64) string {
	return fmt.Sprintf("%squery:%d", r.prefix, id)
}

func (r *Repo) resultKey(queryID int64, position int) string {
	return fmt.Sprintf("%sresult:%d:%d", r.prefix, queryID, position)
}
