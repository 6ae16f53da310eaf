package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/ovunque/nlsearch/internal/domain/query"
	"github.com/ovunque/nlsearch/internal/domain/record"
)

// correlate evaluates a cross-entity spec with read operations only:
// one full read of the secondary entity, grouping in-process, then a
// read of the selected primary records.
func (s *Service) correlate(ctx context.Context, spec query.Spec) ([]record.Record, error) {
	secondary, err := s.records.All(ctx, spec.Secondary())
	if err != nil {
		return nil, fmt.Errorf("read %s records: %w", spec.Secondary(), err)
	}

	switch spec.Operation() {
	case query.CountAggregate:
		return s.countAggregate(ctx, spec, secondary)
	case query.Exclusion:
		return s.exclusion(ctx, spec, secondary)
	default:
		return nil, fmt.Errorf("unsupported operation: %s", spec.Operation())
	}
}

// countAggregate groups secondary records by link attribute, applies
// the threshold comparison literally to each group count, and fetches
// the selected primaries in ascending ID order. Primaries with zero
// linked records never form a group, so they cannot match here even
// under a comparison that zero would satisfy; reaching them requires
// the exclusion operation.
func (s *Service) countAggregate(ctx context.Context, spec query.Spec, secondary []record.Record) ([]record.Record, error) {
	counts := make(map[int64]int)
	for _, rec := range secondary {
		id, ok := rec.Link(spec.LinkField())
		if !ok {
			continue
		}
		counts[id]++
	}

	ids := make([]int64, 0, len(counts))
	for id, n := range counts {
		if spec.Comparison().Satisfied(n, spec.Threshold()) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	primaries, err := s.records.ByIDs(ctx, spec.Primary(), ids)
	if err != nil {
		return nil, fmt.Errorf("read %s records: %w", spec.Primary(), err)
	}
	return primaries, nil
}

// exclusion returns the primary records never referenced through the
// link attribute. With an empty secondary table that is every primary
// record.
func (s *Service) exclusion(ctx context.Context, spec query.Spec, secondary []record.Record) ([]record.Record, error) {
	referenced := make(map[int64]struct{})
	for _, rec := range secondary {
		if id, ok := rec.Link(spec.LinkField()); ok {
			referenced[id] = struct{}{}
		}
	}

	primaries, err := s.records.All(ctx, spec.Primary())
	if err != nil {
		return nil, fmt.Errorf("read %s records: %w", spec.Primary(), err)
	}

	out := make([]record.Record, 0, len(primaries))
	for _, rec := range primaries {
		if _, ok := referenced[rec.ID()]; !ok {
			out = append(out, rec)
		}
	}
	return out, nil
}
