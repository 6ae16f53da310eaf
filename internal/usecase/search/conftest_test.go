package search

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ovunque/nlsearch/internal/domain"
	"github.com/ovunque/nlsearch/internal/domain/audit"
	"github.com/ovunque/nlsearch/internal/domain/record"
	"github.com/ovunque/nlsearch/internal/domain/schema"
)

// memRecords is an in-memory RecordStore keyed by entity then ID.
type memRecords struct {
	data map[string]map[int64]record.Record
	err  error
}

func newMemRecords() *memRecords {
	return &memRecords{data: map[string]map[int64]record.Record{}}
}

func (m *memRecords) add(entity string, id int64, values map[string]any) {
	if m.data[entity] == nil {
		m.data[entity] = map[int64]record.Record{}
	}
	m.data[entity][id] = record.Reconstruct(id, entity, values)
}

func (m *memRecords) Put(_ context.Context, rec record.Record) error {
	if m.err != nil {
		return m.err
	}
	m.add(rec.Entity(), rec.ID(), rec.Values())
	return nil
}

func (m *memRecords) PutMulti(_ context.Context, recs []record.Record) error {
	if m.err != nil {
		return m.err
	}
	for _, rec := range recs {
		m.add(rec.Entity(), rec.ID(), rec.Values())
	}
	return nil
}

func (m *memRecords) Get(_ context.Context, entity string, id int64) (record.Record, error) {
	if m.err != nil {
		return record.Record{}, m.err
	}
	rec, ok := m.data[entity][id]
	if !ok {
		return record.Record{}, domain.ErrNotFound
	}
	return rec, nil
}

func (m *memRecords) All(_ context.Context, entity string) ([]record.Record, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]record.Record, 0, len(m.data[entity]))
	for _, rec := range m.data[entity] {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

func (m *memRecords) ByIDs(_ context.Context, entity string, ids []int64) ([]record.Record, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]record.Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := m.data[entity][id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memRecords) Delete(_ context.Context, entity string, id int64) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.data[entity][id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.data[entity], id)
	return nil
}

// memAudits is an in-memory AuditStore.
type memAudits struct {
	seq        int64
	queries    map[int64]audit.SearchQuery
	results    map[int64][]audit.SearchResult
	resultsErr error
}

func newMemAudits() *memAudits {
	return &memAudits{queries: map[int64]audit.SearchQuery{}, results: map[int64][]audit.SearchResult{}}
}

func (m *memAudits) NextID(_ context.Context) (int64, error) {
	m.seq++
	return m.seq, nil
}

func (m *memAudits) SaveQuery(_ context.Context, q audit.SearchQuery) error {
	m.queries[q.ID()] = q
	return nil
}

func (m *memAudits) GetQuery(_ context.Context, id int64) (audit.SearchQuery, error) {
	q, ok := m.queries[id]
	if !ok {
		return audit.SearchQuery{}, domain.ErrNotFound
	}
	return q, nil
}

func (m *memAudits) SaveResults(_ context.Context, results []audit.SearchResult) error {
	if m.resultsErr != nil {
		return m.resultsErr
	}
	for _, r := range results {
		m.results[r.QueryID()] = append(m.results[r.QueryID()], r)
	}
	return nil
}

func (m *memAudits) ResultsForQuery(_ context.Context, queryID int64) ([]audit.SearchResult, error) {
	return m.results[queryID], nil
}

// mockLLM returns a canned reply or error.
type mockLLM struct {
	reply      string
	err        error
	lastSystem string
	lastUser   string
	calls      int
}

func (m *mockLLM) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	m.calls++
	m.lastSystem = systemPrompt
	m.lastUser = userPrompt
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func newTestService(t *testing.T) (*Service, *memRecords, *memAudits, *mockLLM) {
	t.Helper()
	records := newMemRecords()
	audits := newMemAudits()
	llm := &mockLLM{reply: "[]"}
	svc := New(records, audits, llm, schema.NewRegistry(), zap.NewNop(), 50, 50)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc, records, audits, llm
}

// seedPartnersWithInvoices adds n invoice records linked to partner id.
func seedInvoices(records *memRecords, partnerID int64, startID int64, n int) {
	for i := 0; i < n; i++ {
		records.add("invoice", startID+int64(i), map[string]any{
			"name":       fmt.Sprintf("INV/%d", startID+int64(i)),
			"partner_id": partnerID,
			"state":      "posted",
		})
	}
}
