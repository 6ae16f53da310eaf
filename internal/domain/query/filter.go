package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ovunque/nlsearch/internal/domain"
	"github.com/ovunque/nlsearch/internal/domain/schema"
)

// Operator is a filter condition operator.
type Operator string

// Supported condition operators.
const (
	OpEq    Operator = "="
	OpNeq   Operator = "!="
	OpGt    Operator = ">"
	OpLt    Operator = "<"
	OpGte   Operator = ">="
	OpLte   Operator = "<="
	OpLike  Operator = "like"
	OpILike Operator = "ilike"
	OpIn    Operator = "in"
	OpNotIn Operator = "not in"
)

var validOperators = map[Operator]struct{}{
	OpEq: {}, OpNeq: {}, OpGt: {}, OpLt: {}, OpGte: {}, OpLte: {},
	OpLike: {}, OpILike: {}, OpIn: {}, OpNotIn: {},
}

// Condition is one attribute constraint.
type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

// Filter is an ordered condition list joined by implicit conjunction.
// An empty filter matches every record.
type Filter []Condition

// String renders the filter in the tuple-list form it was parsed from.
func (f Filter) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, c := range f {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "('%s', '%s', %s)", c.Field, c.Operator, renderValue(c.Value))
	}
	b.WriteByte(']')
	return b.String()
}

func renderValue(v any) string {
	switch t := v.(type) {
	case string:
		return "'" + t + "'"
	case []any:
		parts := make([]string, len(t))
		for i, it := range t {
			parts[i] = renderValue(it)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case bool:
		if t {
			return "True"
		}
		return "False"
	case nil:
		return "None"
	default:
		return asString(v)
	}
}

// Substitution records one alias correction applied during validation.
type Substitution struct {
	From string
	To   string
}

// Validate checks every condition attribute against the entity schema.
// Known aliases, whether for computed fields or for names the schema
// does not carry at all, are replaced by their stored correction and
// reported in the returned substitution list. Condition values must
// match the attribute's declared type. Dotted attributes are checked
// by their base segment. The returned filter is a corrected copy; the
// receiver is not modified.
func (f Filter) Validate(reg *schema.Registry, entity string) (Filter, []Substitution, error) {
	e, ok := reg.Entity(entity)
	if !ok {
		return nil, nil, domain.NewSchemaField("", entity, reg.EntityNames())
	}

	out := make(Filter, len(f))
	var subs []Substitution
	for i, c := range f {
		if c.Field == "" {
			return nil, nil, domain.NewUnknownField(entity, c.Field, e.StoredFieldNames())
		}
		if _, ok := validOperators[c.Operator]; !ok {
			return nil, nil, domain.NewParseError("", "unknown operator "+string(c.Operator))
		}

		base := c.Field
		if idx := strings.IndexByte(base, '.'); idx >= 0 {
			base = base[:idx]
		}

		fld, ok := e.Field(base)
		switch {
		case !ok:
			// The alias table also covers names absent from the schema
			// entirely (invoice "amount", lead "revenue").
			corrected, found := reg.Alias(entity, base)
			if !found {
				return nil, nil, domain.NewUnknownField(entity, base, e.StoredFieldNames())
			}
			subs = append(subs, Substitution{From: base, To: corrected})
			c.Field = corrected + c.Field[len(base):]
			fld, _ = e.Field(corrected)
		case !fld.Stored():
			corrected, found := reg.Alias(entity, base)
			if !found {
				return nil, nil, domain.NewComputedField(entity, base, e.StoredFieldNames())
			}
			subs = append(subs, Substitution{From: base, To: corrected})
			c.Field = corrected + c.Field[len(base):]
			fld, _ = e.Field(corrected)
		}
		// Dotted attributes resolve into the related entity; their
		// terminal type is not known here.
		if !strings.ContainsRune(c.Field, '.') {
			if err := checkValueType(entity, c, fld); err != nil {
				return nil, nil, err
			}
		}
		out[i] = c
	}
	return out, subs, nil
}

// checkValueType verifies the condition value against the attribute's
// declared type. Membership operators check every list element. None
// is accepted with equality operators only.
func checkValueType(entity string, c Condition, fld schema.Field) error {
	vals := []any{c.Value}
	if c.Operator == OpIn || c.Operator == OpNotIn {
		if list, ok := c.Value.([]any); ok {
			vals = list
		}
	}
	for _, v := range vals {
		if v == nil {
			if c.Operator == OpEq || c.Operator == OpNeq {
				continue
			}
			return fmt.Errorf("%w: field %q on entity %q: None is only comparable with '=' or '!='",
				domain.ErrValidation, c.Field, entity)
		}
		if !typeMatches(v, fld.FieldType()) {
			return fmt.Errorf("%w: value %s does not match the %s type of field %q on entity %q",
				domain.ErrValidation, renderValue(v), fld.FieldType(), c.Field, entity)
		}
	}
	return nil
}

func typeMatches(v any, ft schema.Type) bool {
	switch ft {
	case schema.Char, schema.Text:
		_, ok := v.(string)
		return ok
	case schema.Integer:
		switch t := v.(type) {
		case int, int64:
			return true
		case float64:
			return t == float64(int64(t))
		}
		return false
	case schema.Float:
		switch v.(type) {
		case int, int64, float32, float64:
			return true
		}
		return false
	case schema.Boolean:
		_, ok := v.(bool)
		return ok
	case schema.Date:
		s, ok := v.(string)
		if !ok {
			return false
		}
		_, err := time.Parse("2006-01-02", s)
		return err == nil
	case schema.Many2one:
		// Relations compare by id or by display-name lookup.
		switch v.(type) {
		case int, int64, float64, string:
			return true
		}
		return false
	}
	return true
}

// Matches evaluates the filter against a record's attribute values.
// Conditions on attributes the record does not carry fail the match,
// except negative operators which pass vacuously.
func (f Filter) Matches(values map[string]any) bool {
	for _, c := range f {
		if !c.matches(values) {
			return false
		}
	}
	return true
}

func (c Condition) matches(values map[string]any) bool {
	v, ok := values[c.Field]
	if !ok {
		return c.Operator == OpNeq || c.Operator == OpNotIn
	}

	switch c.Operator {
	case OpEq:
		return equal(v, c.Value)
	case OpNeq:
		return !equal(v, c.Value)
	case OpGt, OpLt, OpGte, OpLte:
		return ordered(v, c.Value, c.Operator)
	case OpLike:
		return substring(v, c.Value, false)
	case OpILike:
		return substring(v, c.Value, true)
	case OpIn:
		return member(v, c.Value)
	case OpNotIn:
		return !member(v, c.Value)
	default:
		return false
	}
}

func equal(a, b any) bool {
	if fa, okA := asFloat(a); okA {
		if fb, okB := asFloat(b); okB {
			return fa == fb
		}
	}
	if ba, okA := asBool(a); okA {
		if bb, okB := asBool(b); okB {
			return ba == bb
		}
	}
	return asString(a) == asString(b)
}

func ordered(a, b any, op Operator) bool {
	var cmp int
	fa, okA := asFloat(a)
	fb, okB := asFloat(b)
	switch {
	case okA && okB:
		switch {
		case fa < fb:
			cmp = -1
		case fa > fb:
			cmp = 1
		}
	default:
		// Dates and other strings compare lexically; ISO dates order
		// correctly this way.
		cmp = strings.Compare(asString(a), asString(b))
	}
	switch op {
	case OpGt:
		return cmp > 0
	case OpLt:
		return cmp < 0
	case OpGte:
		return cmp >= 0
	case OpLte:
		return cmp <= 0
	}
	return false
}

func substring(v, pattern any, fold bool) bool {
	s, p := asString(v), asString(pattern)
	p = strings.Trim(p, "%")
	if fold {
		s, p = strings.ToLower(s), strings.ToLower(p)
	}
	return strings.Contains(s, p)
}

func member(v, set any) bool {
	items, ok := set.([]any)
	if !ok {
		return equal(v, set)
	}
	for _, it := range items {
		if equal(v, it) {
			return true
		}
	}
	return false
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func asBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(t) {
		case "true", "1":
			return true, true
		case "false", "0":
			return false, true
		}
	}
	return false, false
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
