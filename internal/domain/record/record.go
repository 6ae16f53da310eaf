// Package record holds the generic entity record hydrated from storage.
package record

import (
	"fmt"
	"strconv"

	"github.com/ovunque/nlsearch/internal/domain"
)

// Record is one stored entity row. Values holds the stored attributes
// keyed by field name; many2one attributes hold the numeric ID of the
// linked record.
type Record struct {
	id     int64
	entity string
	values map[string]any
}

// New validates and builds a record for persistence.
func New(id int64, entity string, values map[string]any) (Record, error) {
	if id <= 0 {
		return Record{}, fmt.Errorf("%w: record id must be positive", domain.ErrValidation)
	}
	if entity == "" {
		return Record{}, fmt.Errorf("%w: record entity is required", domain.ErrValidation)
	}
	return Reconstruct(id, entity, values), nil
}

// Reconstruct hydrates a record from storage without validation.
func Reconstruct(id int64, entity string, values map[string]any) Record {
	if values == nil {
		values = map[string]any{}
	}
	return Record{id: id, entity: entity, values: values}
}

// ID returns the record identifier.
func (r Record) ID() int64 { return r.id }

// Entity returns the entity type name.
func (r Record) Entity() string { return r.entity }

// Values returns a copy of the stored attribute map.
func (r Record) Values() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Value returns a single attribute value.
func (r Record) Value(field string) (any, bool) {
	v, ok := r.values[field]
	return v, ok
}

// DisplayName returns the record's name attribute, falling back to
// "entity #id" when the record has no usable name.
func (r Record) DisplayName() string {
	if v, ok := r.values["name"]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fmt.Sprintf("%s #%d", r.entity, r.id)
}

// Link returns the numeric ID held by a many2one attribute. Storage
// round-trips values as strings, so both forms are accepted.
func (r Record) Link(field string) (int64, bool) {
	v, ok := r.values[field]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		return int64(t), true
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
