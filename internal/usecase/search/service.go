// Package search orchestrates one natural-language search: pattern
// detection, the language model fallback, correlation, and the audit
// trail.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovunque/nlsearch/internal/domain"
	"github.com/ovunque/nlsearch/internal/domain/audit"
	"github.com/ovunque/nlsearch/internal/domain/query"
	"github.com/ovunque/nlsearch/internal/domain/record"
	"github.com/ovunque/nlsearch/internal/domain/schema"
	"github.com/ovunque/nlsearch/internal/metrics"
)

// Request is one search invocation.
type Request struct {
	Text     string
	Category string
	User     string
}

// Item is one displayed result entry.
type Item struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
}

// Output is the search outcome: the true match count plus the capped
// display subset.
type Output struct {
	QueryID   int64
	Entity    string
	QueryType audit.QueryType
	Executed  string
	Count     int
	Results   []Item
}

// Service runs searches end to end.
type Service struct {
	records    RecordStore
	audits     AuditStore
	llm        LLM
	registry   *schema.Registry
	detector   *query.Detector
	logger     *zap.Logger
	maxDisplay int
	maxFields  int
	now        func() time.Time
}

// New creates a search service. maxDisplay caps the displayed result
// subset; maxFields caps the prompt field listing.
func New(records RecordStore, audits AuditStore, llm LLM, registry *schema.Registry,
	logger *zap.Logger, maxDisplay, maxFields int) *Service {
	if maxDisplay <= 0 {
		maxDisplay = 50
	}
	if maxFields <= 0 {
		maxFields = 50
	}
	return &Service{
		records:    records,
		audits:     audits,
		llm:        llm,
		registry:   registry,
		detector:   query.NewDetector(),
		logger:     logger,
		maxDisplay: maxDisplay,
		maxFields:  maxFields,
		now:        time.Now,
	}
}

// outcome carries the execution result of one interpretation path.
type outcome struct {
	entity    string
	queryType audit.QueryType
	executed  string
	subs      []string
	matched   []record.Record
}

// Search runs a search request to completion. Every request gets an
// audit row; every failure path after row creation lands a terminal
// error row before the error is returned.
func (s *Service) Search(ctx context.Context, req Request) (Output, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return Output{}, fmt.Errorf("%w: query text is required", domain.ErrValidation)
	}

	id, err := s.audits.NextID(ctx)
	if err != nil {
		return Output{}, fmt.Errorf("allocate query id: %w", err)
	}
	row, err := audit.New(id, text, req.Category, req.User, s.now())
	if err != nil {
		return Output{}, err
	}
	if err := s.audits.SaveQuery(ctx, row); err != nil {
		return Output{}, fmt.Errorf("save draft query: %w", err)
	}

	out, execErr := s.execute(ctx, &row, text, req.Category)
	if execErr == nil {
		result, matErr := s.materialize(ctx, row, out)
		if matErr == nil {
			return result, nil
		}
		execErr = matErr
	}

	metrics.SearchesTotal.WithLabelValues(string(row.QueryType()), "error").Inc()
	failed := row.Fail("", "", execErr.Error())
	if saveErr := s.audits.SaveQuery(ctx, failed); saveErr != nil {
		s.logger.Error("save error row", zap.Int64("query_id", id), zap.Error(saveErr))
	}
	// Callers still get the audit row id so the failure can be traced.
	return Output{QueryID: id}, execErr
}

// execute resolves the interpretation path and produces the match set.
// It updates the row in place with context reached along the way so a
// later failure still records it.
func (s *Service) execute(ctx context.Context, row *audit.SearchQuery, text, category string) (outcome, error) {
	if spec, rule, ok := s.detector.Detect(text); ok {
		s.logger.Info("pattern matched",
			zap.Int64("query_id", row.ID()),
			zap.String("rule", rule.Name()),
			zap.String("spec", spec.String()))
		*row = row.WithContext(spec.Primary(), audit.TypePattern)
		matched, err := s.correlate(ctx, spec)
		if err != nil {
			return outcome{}, err
		}
		return outcome{entity: spec.Primary(), queryType: audit.TypePattern, executed: spec.String(), matched: matched}, nil
	}

	entity, err := s.resolveEntity(category)
	if err != nil {
		return outcome{}, err
	}
	*row = row.WithContext(entity.Name(), audit.TypeFilter)

	raw, err := s.llm.Complete(ctx, buildSystemPrompt(entity, s.maxFields), text)
	if err != nil {
		return outcome{}, err
	}
	*row = row.WithRawResponse(raw)

	intent, err := query.ParseResponse(s.registry, raw)
	if err != nil {
		return outcome{}, err
	}
	if intent.Repaired {
		metrics.SearchRepairsTotal.Inc()
		s.logger.Warn("reply parsed after repair", zap.Int64("query_id", row.ID()))
	}

	if intent.IsSpec {
		*row = row.WithContext(intent.Spec.Primary(), audit.TypeSpec)
		matched, err := s.correlate(ctx, intent.Spec)
		if err != nil {
			return outcome{}, err
		}
		return outcome{entity: intent.Spec.Primary(), queryType: audit.TypeSpec, executed: intent.Spec.String(), matched: matched}, nil
	}

	filter, subs, err := intent.Filter.Validate(s.registry, entity.Name())
	if err != nil {
		return outcome{}, err
	}
	for _, sub := range subs {
		s.logger.Info("field alias corrected",
			zap.Int64("query_id", row.ID()),
			zap.String("from", sub.From),
			zap.String("to", sub.To))
	}

	all, err := s.records.All(ctx, entity.Name())
	if err != nil {
		return outcome{}, fmt.Errorf("read %s records: %w", entity.Name(), err)
	}
	matched := make([]record.Record, 0, len(all))
	for _, rec := range all {
		if filter.Matches(rec.Values()) {
			matched = append(matched, rec)
		}
	}

	subNotes := make([]string, len(subs))
	for i, sub := range subs {
		subNotes[i] = sub.From + " -> " + sub.To
	}
	return outcome{entity: entity.Name(), queryType: audit.TypeFilter, executed: filter.String(), subs: subNotes, matched: matched}, nil
}

// resolveEntity maps the request category to an entity schema. The
// entity type name itself is accepted as a category.
func (s *Service) resolveEntity(category string) (schema.Entity, error) {
	if category == "" {
		return schema.Entity{}, fmt.Errorf("%w: category is required for single-entity queries", domain.ErrValidation)
	}
	if e, ok := s.registry.EntityForCategory(category); ok {
		return e, nil
	}
	if e, ok := s.registry.Entity(category); ok {
		return e, nil
	}
	return schema.Entity{}, fmt.Errorf("%w: unknown category %q", domain.ErrValidation, category)
}

// materialize caps the display subset, persists the result rows, and
// lands the success row. Zero matches is a success.
func (s *Service) materialize(ctx context.Context, row audit.SearchQuery, out outcome) (Output, error) {
	count := len(out.matched)
	displayed := out.matched
	if len(displayed) > s.maxDisplay {
		displayed = displayed[:s.maxDisplay]
	}

	items := make([]Item, len(displayed))
	results := make([]audit.SearchResult, len(displayed))
	for i, rec := range displayed {
		items[i] = Item{ID: rec.ID(), DisplayName: rec.DisplayName()}
		res, err := audit.NewResult(row.ID(), i+1, rec.ID(), out.entity, rec.DisplayName())
		if err != nil {
			return Output{}, err
		}
		results[i] = res
	}

	// Result rows land before the status flips to success, so a failed
	// write never leaves a success row with missing children.
	if err := s.audits.SaveResults(ctx, results); err != nil {
		return Output{}, fmt.Errorf("save result rows: %w", err)
	}
	done := row.Succeed(out.entity, out.queryType, out.executed, out.subs, count)
	if err := s.audits.SaveQuery(ctx, done); err != nil {
		return Output{}, fmt.Errorf("save query row: %w", err)
	}

	metrics.SearchesTotal.WithLabelValues(string(out.queryType), "success").Inc()
	s.logger.Info("search completed",
		zap.Int64("query_id", row.ID()),
		zap.String("entity", out.entity),
		zap.String("query_type", string(out.queryType)),
		zap.Int("count", count),
		zap.Int("displayed", len(items)))

	return Output{
		QueryID:   row.ID(),
		Entity:    out.entity,
		QueryType: out.queryType,
		Executed:  out.executed,
		Count:     count,
		Results:   items,
	}, nil
}

// Query returns an audited query row with its result rows.
func (s *Service) Query(ctx context.Context, id int64) (audit.SearchQuery, []audit.SearchResult, error) {
	row, err := s.audits.GetQuery(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return audit.SearchQuery{}, nil, err
		}
		return audit.SearchQuery{}, nil, fmt.Errorf("get query %d: %w", id, err)
	}
	results, err := s.audits.ResultsForQuery(ctx, id)
	if err != nil {
		return audit.SearchQuery{}, nil, fmt.Errorf("get results %d: %w", id, err)
	}
	return row, results, nil
}

// RecordInput is one record in a bulk ingest request.
type RecordInput struct {
	ID     int64          `json:"id"`
	Values map[string]any `json:"values"`
}

// PutRecord validates the entity and attributes, then stores a record.
func (s *Service) PutRecord(ctx context.Context, entity string, id int64, values map[string]any) (record.Record, error) {
	e, ok := s.registry.Entity(entity)
	if !ok {
		return record.Record{}, fmt.Errorf("%w: unknown entity %q", domain.ErrSchema, entity)
	}
	if err := validateStored(e, entity, values); err != nil {
		return record.Record{}, err
	}

	rec, err := record.New(id, entity, values)
	if err != nil {
		return record.Record{}, err
	}
	if err := s.records.Put(ctx, rec); err != nil {
		return record.Record{}, fmt.Errorf("put record: %w", err)
	}
	return rec, nil
}

// PutRecords validates and stores a batch of records in one round trip.
// The batch is all-or-nothing: any invalid item rejects the whole batch
// before anything is written.
func (s *Service) PutRecords(ctx context.Context, entity string, items []RecordInput) (int, error) {
	e, ok := s.registry.Entity(entity)
	if !ok {
		return 0, fmt.Errorf("%w: unknown entity %q", domain.ErrSchema, entity)
	}

	recs := make([]record.Record, len(items))
	for i, item := range items {
		if err := validateStored(e, entity, item.Values); err != nil {
			return 0, fmt.Errorf("item %d: %w", i, err)
		}
		rec, err := record.New(item.ID, entity, item.Values)
		if err != nil {
			return 0, fmt.Errorf("item %d: %w", i, err)
		}
		recs[i] = rec
	}

	if err := s.records.PutMulti(ctx, recs); err != nil {
		return 0, fmt.Errorf("put %d records: %w", len(recs), err)
	}
	return len(recs), nil
}

func validateStored(e schema.Entity, entity string, values map[string]any) error {
	for name := range values {
		f, ok := e.Field(name)
		if !ok {
			return domain.NewUnknownField(entity, name, e.StoredFieldNames())
		}
		if !f.Stored() {
			return domain.NewComputedField(entity, name, e.StoredFieldNames())
		}
	}
	return nil
}

// DeleteRecord removes a stored record.
func (s *Service) DeleteRecord(ctx context.Context, entity string, id int64) error {
	if _, ok := s.registry.Entity(entity); !ok {
		return fmt.Errorf("%w: unknown entity %q", domain.ErrSchema, entity)
	}
	return s.records.Delete(ctx, entity, id)
}
