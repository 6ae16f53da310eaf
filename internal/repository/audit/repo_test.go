package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ovunque/nlsearch/internal/db"
	"github.com/ovunque/nlsearch/internal/domain"
	domaud "github.com/ovunque/nlsearch/internal/domain/audit"
)

func TestNextID(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.incrFn = func(_ context.Context, key string) (int64, error) {
		if key != "nlsearch:query:seq" {
			t.Errorf("key = %q", key)
		}
		return 17, nil
	}

	id, err := repo.NextID(context.Background())
	if err != nil {
		t.Fatalf("NextID: %v", err)
	}
	if id != 17 {
		t.Errorf("id = %d, want 17", id)
	}
}

func TestSaveAndGetQuery_RoundTrip(t *testing.T) {
	repo, ms := newTestRepo(t)

	saved := map[string]map[string]string{}
	ms.hsetFn = func(_ context.Context, key string, fields map[string]string) error {
		saved[key] = fields
		return nil
	}
	ms.hgetAllFn = func(_ context.Context, key string) (map[string]string, error) {
		return saved[key], nil
	}

	draft, _ := domaud.New(5, "products under 100", "products", "alice", time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	done := draft.Succeed("product", domaud.TypeFilter, "[('list_price', '<', 100)]", []string{"price -> list_price"}, 120)

	if err := repo.SaveQuery(context.Background(), done); err != nil {
		t.Fatalf("SaveQuery: %v", err)
	}

	got, err := repo.GetQuery(context.Background(), 5)
	if err != nil {
		t.Fatalf("GetQuery: %v", err)
	}
	if got.Text() != done.Text() || got.Status() != domaud.StatusSuccess {
		t.Errorf("row = %q/%s", got.Text(), got.Status())
	}
	if got.ResultCount() != 120 {
		t.Errorf("resultCount = %d, want 120", got.ResultCount())
	}
	if len(got.Substitutions()) != 1 || got.Substitutions()[0] != "price -> list_price" {
		t.Errorf("substitutions = %v", got.Substitutions())
	}
	if !got.CreatedAt().Equal(done.CreatedAt()) {
		t.Errorf("createdAt = %v, want %v", got.CreatedAt(), done.CreatedAt())
	}
}

func TestGetQuery_NotFound(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return map[string]string{}, nil
	}

	if _, err := repo.GetQuery(context.Background(), 99); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveResults_Batch(t *testing.T) {
	repo, ms := newTestRepo(t)

	var got []db.HashSetItem
	ms.hsetMultiFn = func(_ context.Context, items []db.HashSetItem) error {
		got = items
		return nil
	}

	r1, _ := domaud.NewResult(5, 1, 42, "partner", "Acme")
	r2, _ := domaud.NewResult(5, 2, 43, "partner", "Globex")
	if err := repo.SaveResults(context.Background(), []domaud.SearchResult{r1, r2}); err != nil {
		t.Fatalf("SaveResults: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("items = %v", got)
	}
	if got[0].Key != "nlsearch:result:5:1" || got[0].Fields["display_name"] != "Acme" {
		t.Errorf("first row = %+v", got[0])
	}
}

func TestSaveResults_EmptyIsNoop(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hsetMultiFn = func(_ context.Context, _ []db.HashSetItem) error {
		t.Error("HSetMulti called for empty result set")
		return nil
	}

	if err := repo.SaveResults(context.Background(), nil); err != nil {
		t.Fatalf("SaveResults: %v", err)
	}
}

func TestResultsForQuery_SortsByPosition(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.scanFn = func(_ context.Context, pattern string) ([]string, error) {
		if pattern != "nlsearch:result:5:*" {
			t.Errorf("pattern = %q", pattern)
		}
		return []string{"nlsearch:result:5:2", "nlsearch:result:5:1"}, nil
	}
	ms.hgetAllMultiFn = func(_ context.Context, keys []string) ([]map[string]string, error) {
		return []map[string]string{
			{"position": "2", "record_id": "43", "entity": "partner", "display_name": "Globex"},
			{"position": "1", "record_id": "42", "entity": "partner", "display_name": "Acme"},
		}, nil
	}

	results, err := repo.ResultsForQuery(context.Background(), 5)
	if err != nil {
		t.Fatalf("ResultsForQuery: %v", err)
	}
	if len(results) != 2 || results[0].Position() != 1 || results[1].Position() != 2 {
		t.Errorf("results = %v, want position order", results)
	}
}

func TestDeleteQuery(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return map[string]string{"text": "x", "status": "success", "created_at": "1"}, nil
	}
	ms.scanFn = func(_ context.Context, _ string) ([]string, error) {
		return []string{"nlsearch:result:5:1"}, nil
	}
	var deleted []string
	ms.delMultiFn = func(_ context.Context, keys []string) error {
		deleted = keys
		return nil
	}

	if err := repo.DeleteQuery(context.Background(), 5); err != nil {
		t.Fatalf("DeleteQuery: %v", err)
	}
	if len(deleted) != 2 || deleted[0] != "nlsearch:query:5" {
		t.Errorf("deleted = %v", deleted)
	}
}

func TestDeleteQuery_NotFound(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return map[string]string{}, nil
	}

	if err := repo.DeleteQuery(context.Background(), 5); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
