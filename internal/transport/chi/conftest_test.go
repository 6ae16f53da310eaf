package chi

import (
	"context"
	"net/http/httptest"
	"sort"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ovunque/nlsearch/internal/domain"
	"github.com/ovunque/nlsearch/internal/domain/audit"
	"github.com/ovunque/nlsearch/internal/domain/record"
	"github.com/ovunque/nlsearch/internal/domain/schema"
	healthuc "github.com/ovunque/nlsearch/internal/usecase/health"
	searchuc "github.com/ovunque/nlsearch/internal/usecase/search"
)

// fakeRecords is an in-memory record store for handler tests.
type fakeRecords struct {
	data map[string]map[int64]record.Record
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{data: map[string]map[int64]record.Record{}}
}

func (f *fakeRecords) add(entity string, id int64, values map[string]any) {
	if f.data[entity] == nil {
		f.data[entity] = map[int64]record.Record{}
	}
	f.data[entity][id] = record.Reconstruct(id, entity, values)
}

func (f *fakeRecords) Put(_ context.Context, rec record.Record) error {
	f.add(rec.Entity(), rec.ID(), rec.Values())
	return nil
}

func (f *fakeRecords) PutMulti(_ context.Context, recs []record.Record) error {
	for _, rec := range recs {
		f.add(rec.Entity(), rec.ID(), rec.Values())
	}
	return nil
}

func (f *fakeRecords) Get(_ context.Context, entity string, id int64) (record.Record, error) {
	rec, ok := f.data[entity][id]
	if !ok {
		return record.Record{}, domain.ErrNotFound
	}
	return rec, nil
}

func (f *fakeRecords) All(_ context.Context, entity string) ([]record.Record, error) {
	out := make([]record.Record, 0, len(f.data[entity]))
	for _, rec := range f.data[entity] {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

func (f *fakeRecords) ByIDs(_ context.Context, entity string, ids []int64) ([]record.Record, error) {
	out := make([]record.Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := f.data[entity][id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRecords) Delete(_ context.Context, entity string, id int64) error {
	if _, ok := f.data[entity][id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.data[entity], id)
	return nil
}

// fakeAudits keeps audit rows in memory.
type fakeAudits struct {
	seq     int64
	queries map[int64]audit.SearchQuery
	results map[int64][]audit.SearchResult
}

func newFakeAudits() *fakeAudits {
	return &fakeAudits{
		queries: map[int64]audit.SearchQuery{},
		results: map[int64][]audit.SearchResult{},
	}
}

func (f *fakeAudits) NextID(_ context.Context) (int64, error) {
	f.seq++
	return f.seq, nil
}

func (f *fakeAudits) SaveQuery(_ context.Context, q audit.SearchQuery) error {
	f.queries[q.ID()] = q
	return nil
}

func (f *fakeAudits) GetQuery(_ context.Context, id int64) (audit.SearchQuery, error) {
	q, ok := f.queries[id]
	if !ok {
		return audit.SearchQuery{}, domain.ErrNotFound
	}
	return q, nil
}

func (f *fakeAudits) SaveResults(_ context.Context, results []audit.SearchResult) error {
	for _, res := range results {
		f.results[res.QueryID()] = append(f.results[res.QueryID()], res)
	}
	return nil
}

func (f *fakeAudits) ResultsForQuery(_ context.Context, queryID int64) ([]audit.SearchResult, error) {
	return f.results[queryID], nil
}

// fakeLLM replays a fixed reply.
type fakeLLM struct {
	reply string
	err   error
}

func (f *fakeLLM) Complete(_ context.Context, _, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

// fakePinger always reports the given error.
type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(_ context.Context) error { return f.err }

type testEnv struct {
	records *fakeRecords
	audits  *fakeAudits
	llm     *fakeLLM
	server  *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	records := newFakeRecords()
	audits := newFakeAudits()
	llm := &fakeLLM{}

	registry := schema.NewRegistry()
	searchSvc := searchuc.New(records, audits, llm, registry, zap.NewNop(), 50, 50)
	healthSvc := healthuc.New(&fakePinger{}, nil)

	srv := NewServer(searchSvc, registry, healthSvc, zap.NewNop())
	r := chirouter.NewRouter()
	srv.Routes(r)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	return &testEnv{records: records, audits: audits, llm: llm, server: ts}
}
