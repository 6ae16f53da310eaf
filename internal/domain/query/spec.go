// Package query holds the three interpretations of a natural-language
// search: cross-entity query specs, flat filter expressions, and the
// pattern rules and parser that produce them.
package query

import (
	"fmt"

	"github.com/ovunque/nlsearch/internal/domain"
	"github.com/ovunque/nlsearch/internal/domain/schema"
)

// Operation is the kind of cross-entity correlation a spec describes.
type Operation string

// Supported correlation operations.
const (
	// CountAggregate keeps primary records whose linked secondary
	// record count satisfies the threshold comparison.
	CountAggregate Operation = "count_aggregate"
	// Exclusion keeps primary records with no linked secondary record.
	Exclusion Operation = "exclusion"
)

// Comparison relates a per-group count to a spec threshold.
type Comparison string

// Supported threshold comparisons.
const (
	CmpGT  Comparison = "gt"
	CmpGTE Comparison = "gte"
	CmpLT  Comparison = "lt"
	CmpLTE Comparison = "lte"
	CmpEQ  Comparison = "eq"
)

// Satisfied applies the comparison to a computed group count.
func (c Comparison) Satisfied(count, threshold int) bool {
	switch c {
	case CmpGT:
		return count > threshold
	case CmpGTE:
		return count >= threshold
	case CmpLT:
		return count < threshold
	case CmpLTE:
		return count <= threshold
	case CmpEQ:
		return count == threshold
	default:
		return false
	}
}

// Spec is an immutable cross-entity query: correlate records of the
// secondary entity against records of the primary entity through a
// link attribute.
type Spec struct {
	operation  Operation
	primary    string
	secondary  string
	linkField  string
	threshold  int
	comparison Comparison
}

// NewSpec validates a spec against the entity registry. The link
// attribute must be a stored many2one attribute of the secondary
// entity targeting the primary entity.
func NewSpec(reg *schema.Registry, op Operation, primary, secondary, linkField string, threshold int, cmp Comparison) (Spec, error) {
	switch op {
	case CountAggregate, Exclusion:
	default:
		return Spec{}, fmt.Errorf("%w: unknown operation %q", domain.ErrSchema, op)
	}

	if _, ok := reg.Entity(primary); !ok {
		return Spec{}, fmt.Errorf("%w: unknown primary entity %q", domain.ErrSchema, primary)
	}
	sec, ok := reg.Entity(secondary)
	if !ok {
		return Spec{}, fmt.Errorf("%w: unknown secondary entity %q", domain.ErrSchema, secondary)
	}

	f, ok := sec.Field(linkField)
	if !ok {
		return Spec{}, domain.NewSchemaField(secondary, linkField, sec.StoredFieldNames())
	}
	if f.FieldType() != schema.Many2one || f.Relation() != primary {
		return Spec{}, fmt.Errorf("%w: %s.%s does not link to %s", domain.ErrSchema, secondary, linkField, primary)
	}

	if op == CountAggregate {
		switch cmp {
		case CmpGT, CmpGTE, CmpLT, CmpLTE, CmpEQ:
		default:
			return Spec{}, fmt.Errorf("%w: unknown comparison %q", domain.ErrSchema, cmp)
		}
		if threshold < 0 {
			return Spec{}, fmt.Errorf("%w: threshold must not be negative", domain.ErrSchema)
		}
	}

	return Spec{
		operation:  op,
		primary:    primary,
		secondary:  secondary,
		linkField:  linkField,
		threshold:  threshold,
		comparison: cmp,
	}, nil
}

// String renders the spec for logs and the audit trail.
func (s Spec) String() string {
	if s.operation == Exclusion {
		return fmt.Sprintf("exclusion: %s not referenced by %s.%s", s.primary, s.secondary, s.linkField)
	}
	return fmt.Sprintf("count_aggregate: %s by %s.%s where count %s %d",
		s.primary, s.secondary, s.linkField, s.comparison, s.threshold)
}

// Operation returns the correlation kind.
func (s Spec) Operation() Operation { return s.operation }

// Primary returns the primary entity type whose records are returned.
func (s Spec) Primary() string { return s.primary }

// Secondary returns the correlated entity type.
func (s Spec) Secondary() string { return s.secondary }

// LinkField returns the secondary attribute that references the primary.
func (s Spec) LinkField() string { return s.linkField }

// Threshold returns the count threshold. Zero for exclusion specs.
func (s Spec) Threshold() int { return s.threshold }

// Comparison returns the threshold comparison. Empty for exclusion specs.
func (s Spec) Comparison() Comparison { return s.comparison }
