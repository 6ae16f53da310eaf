// Package record persists entity records as hashes keyed by entity
// type and numeric ID.
package record

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ovunque/nlsearch/internal/db"
	"github.com/ovunque/nlsearch/internal/domain"
	domrec "github.com/ovunque/nlsearch/internal/domain/record"
)

// store is the consumer interface for record persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements usecase/search.RecordStore.
type Repo struct {
	store  store
	prefix string
}

// New creates a record repository. Keys take the form
// {prefix}record:{entity}:{id}.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// Put stores a record, overwriting any previous version.
func (r *Repo) Put(ctx context.Context, rec domrec.Record) error {
	key := r.key(rec.Entity(), rec.ID())
	if err := r.store.HSet(ctx, key, recordToHash(rec)); err != nil {
		return fmt.Errorf("hset record %s: %w", key, err)
	}
	return nil
}

// PutMulti stores a batch of records in one pipelined round trip.
func (r *Repo) PutMulti(ctx context.Context, recs []domrec.Record) error {
	if len(recs) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, len(recs))
	for i, rec := range recs {
		items[i] = db.HashSetItem{Key: r.key(rec.Entity(), rec.ID()), Fields: recordToHash(rec)}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset multi %d records: %w", len(recs), err)
	}
	return nil
}

// Get retrieves one record by entity type and ID.
func (r *Repo) Get(ctx context.Context, entity string, id int64) (domrec.Record, error) {
	key := r.key(entity, id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domrec.Record{}, fmt.Errorf("hgetall record %s: %w", key, err)
	}
	if len(m) == 0 {
		return domrec.Record{}, domain.ErrNotFound
	}
	return recordFromHash(id, entity, m), nil
}

// All returns every record of an entity type in ascending ID order.
// The stable order makes repeated searches over unchanged data return
// identical result lists.
func (r *Repo) All(ctx context.Context, entity string) ([]domrec.Record, error) {
	keys, err := r.store.Scan(ctx, fmt.Sprintf("%srecord:%s:*", r.prefix, entity))
	if err != nil {
		return nil, fmt.Errorf("scan records %s: %w", entity, err)
	}
	if len(keys) == 0 {
		return []domrec.Record{}, nil
	}

	results, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi records %s: %w", entity, err)
	}

	records := make([]domrec.Record, 0, len(results))
	for i, m := range results {
		if len(m) == 0 {
			continue
		}
		id, err := r.idFromKey(entity, keys[i])
		if err != nil {
			return nil, err
		}
		records = append(records, recordFromHash(id, entity, m))
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID() < records[j].ID() })
	return records, nil
}

// ByIDs fetches records by ID, preserving the given order and
// skipping IDs that no longer exist.
func (r *Repo) ByIDs(ctx context.Context, entity string, ids []int64) ([]domrec.Record, error) {
	if len(ids) == 0 {
		return []domrec.Record{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(entity, id)
	}

	results, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi records %s: %w", entity, err)
	}

	records := make([]domrec.Record, 0, len(results))
	for i, m := range results {
		if len(m) == 0 {
			continue
		}
		records = append(records, recordFromHash(ids[i], entity, m))
	}
	return records, nil
}

// Delete removes one record.
func (r *Repo) Delete(ctx context.Context, entity string, id int64) error {
	key := r.key(entity, id)
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del record %s: %w", key, err)
	}
	return nil
}

func (r *Repo) key(entity string, id int64) string {
	return fmt.Sprintf("%srecord:%s:%d", r.prefix, entity, id)
}

func (r *Repo) idFromKey(entity, key string) (int64, error) {
	suffix := strings.TrimPrefix(key, fmt.Sprintf("%srecord:%s:", r.prefix, entity))
	id, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse record key %s: %w", key, err)
	}
	return id, nil
}
