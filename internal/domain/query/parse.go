package query

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ovunque/nlsearch/internal/domain"
	"github.com/ovunque/nlsearch/internal/domain/schema"
)

// Intent is the parsed interpretation of a model reply: either a flat
// filter over a single entity, or a cross-entity spec.
type Intent struct {
	Filter Filter
	Spec   Spec
	IsSpec bool
	// Repaired reports that the reply only parsed after mechanical repair.
	Repaired bool
}

var (
	fenceRe   = regexp.MustCompile("(?s)```(?:json|python)?\\s*(.*?)```")
	bracketRe = regexp.MustCompile(`(?s)\[.*\]`)
)

type specPayload struct {
	QueryType      string `json:"query_type"`
	PrimaryModel   string `json:"primary_model"`
	SecondaryModel string `json:"secondary_model"`
	LinkField      string `json:"link_field"`
	Threshold      int    `json:"threshold"`
	Comparison     string `json:"comparison"`
}

// ParseResponse interprets a raw model reply. A JSON object carrying a
// query_type is read as a cross-entity spec wherever it appears in the
// text; otherwise the first bracketed list is parsed as a condition
// tuple list. A reply that fails to parse gets one repair attempt
// before the whole text is rejected.
func ParseResponse(reg *schema.Registry, raw string) (Intent, error) {
	text := stripFences(raw)

	if obj, ok := findJSONObject(text); ok {
		if spec, isSpec, err := parseSpecJSON(reg, obj); isSpec {
			if err != nil {
				return Intent{}, err
			}
			return Intent{Spec: spec, IsSpec: true}, nil
		}
	}

	filter, err := parseFilterText(text)
	if err == nil {
		return Intent{Filter: filter}, nil
	}

	repaired := repair(text)
	if repaired != text {
		if filter, rerr := parseFilterText(repaired); rerr == nil {
			return Intent{Filter: filter, Repaired: true}, nil
		}
	}
	return Intent{}, domain.NewParseError(raw, err.Error())
}

func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}
	return text
}

// findJSONObject locates the first brace-balanced object in the text,
// skipping braces inside quoted strings.
func findJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// parseSpecJSON reads obj as a spec payload. Objects that do not
// decode or that lack a query_type are not spec replies; the caller
// falls back to the condition list.
func parseSpecJSON(reg *schema.Registry, obj string) (Spec, bool, error) {
	var p specPayload
	if err := json.Unmarshal([]byte(obj), &p); err != nil || p.QueryType == "" {
		return Spec{}, false, nil
	}
	cmp := Comparison(p.Comparison)
	if Operation(p.QueryType) == CountAggregate && cmp == "" {
		cmp = CmpGTE
	}
	spec, err := NewSpec(reg, Operation(p.QueryType), p.PrimaryModel, p.SecondaryModel, p.LinkField, p.Threshold, cmp)
	return spec, true, err
}

func parseFilterText(text string) (Filter, error) {
	m := bracketRe.FindString(text)
	if m == "" {
		return nil, fmt.Errorf("no bracketed condition list")
	}
	return parseConditionList(m)
}

// parseConditionList reads the "[('field', 'op', value), ...]" form.
// Logical prefix tokens ('|', '&', '!') are accepted and skipped; the
// remaining conditions join by conjunction.
func parseConditionList(s string) (Filter, error) {
	p := &parser{in: s}
	p.skipSpace()
	if !p.eat('[') {
		return nil, fmt.Errorf("expected '['")
	}
	filter := Filter{}
	for {
		p.skipSpace()
		if p.eat(']') {
			return filter, nil
		}
		if len(filter) > 0 || p.sawItem {
			if !p.eat(',') {
				return nil, fmt.Errorf("expected ',' or ']' at offset %d", p.pos)
			}
			p.skipSpace()
			// trailing comma
			if p.eat(']') {
				return filter, nil
			}
		}
		switch {
		case p.peek() == '\'' || p.peek() == '"':
			tok, err := p.parseString()
			if err != nil {
				return nil, err
			}
			if tok != "|" && tok != "&" && tok != "!" {
				return nil, fmt.Errorf("unexpected string %q in condition list", tok)
			}
			p.sawItem = true
		case p.eat('('):
			cond, err := p.parseCondition()
			if err != nil {
				return nil, err
			}
			filter = append(filter, cond)
			p.sawItem = true
		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d", p.peek(), p.pos)
		}
	}
}

type parser struct {
	in      string
	pos     int
	sawItem bool
}

func (p *parser) peek() byte {
	if p.pos >= len(p.in) {
		return 0
	}
	return p.in[p.pos]
}

func (p *parser) eat(c byte) bool {
	if p.peek() == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) skipSpace() {
	for p.pos < len(p.in) {
		switch p.in[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

// parseCondition reads the body of a tuple after the opening '('.
func (p *parser) parseCondition() (Condition, error) {
	p.skipSpace()
	field, err := p.parseString()
	if err != nil {
		return Condition{}, fmt.Errorf("condition field: %w", err)
	}
	p.skipSpace()
	if !p.eat(',') {
		return Condition{}, fmt.Errorf("expected ',' after field at offset %d", p.pos)
	}
	p.skipSpace()
	op, err := p.parseString()
	if err != nil {
		return Condition{}, fmt.Errorf("condition operator: %w", err)
	}
	p.skipSpace()
	if !p.eat(',') {
		return Condition{}, fmt.Errorf("expected ',' after operator at offset %d", p.pos)
	}
	p.skipSpace()
	val, err := p.parseValue()
	if err != nil {
		return Condition{}, fmt.Errorf("condition value: %w", err)
	}
	p.skipSpace()
	if !p.eat(')') {
		return Condition{}, fmt.Errorf("expected ')' at offset %d", p.pos)
	}
	return Condition{Field: field, Operator: Operator(strings.ToLower(op)), Value: val}, nil
}

func (p *parser) parseString() (string, error) {
	quote := p.peek()
	if quote != '\'' && quote != '"' {
		return "", fmt.Errorf("expected quoted string at offset %d", p.pos)
	}
	p.pos++
	var b strings.Builder
	for p.pos < len(p.in) {
		c := p.in[p.pos]
		if c == '\\' && p.pos+1 < len(p.in) {
			b.WriteByte(p.in[p.pos+1])
			p.pos += 2
			continue
		}
		if c == quote {
			p.pos++
			return b.String(), nil
		}
		b.WriteByte(c)
		p.pos++
	}
	return "", fmt.Errorf("unterminated string")
}

func (p *parser) parseValue() (any, error) {
	switch c := p.peek(); {
	case c == '\'' || c == '"':
		return p.parseString()
	case c == '[' || c == '(':
		return p.parseList()
	default:
		return p.parseScalar()
	}
}

func (p *parser) parseList() (any, error) {
	open := p.in[p.pos]
	closing := byte(']')
	if open == '(' {
		closing = ')'
	}
	p.pos++
	items := []any{}
	for {
		p.skipSpace()
		if p.eat(closing) {
			return items, nil
		}
		if len(items) > 0 {
			if !p.eat(',') {
				return nil, fmt.Errorf("expected ',' in list at offset %d", p.pos)
			}
			p.skipSpace()
			if p.eat(closing) {
				return items, nil
			}
		}
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
}

func (p *parser) parseScalar() (any, error) {
	start := p.pos
	for p.pos < len(p.in) {
		switch p.in[p.pos] {
		case ',', ')', ']', ' ', '\t', '\n', '\r':
			goto done
		}
		p.pos++
	}
done:
	tok := p.in[start:p.pos]
	if tok == "" {
		return nil, fmt.Errorf("empty value at offset %d", start)
	}
	switch strings.ToLower(tok) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "none", "null":
		return nil, nil
	}
	if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return f, nil
	}
	return nil, fmt.Errorf("invalid literal %q", tok)
}

var smartQuotes = strings.NewReplacer(
	"‘", "'", "’", "'",
	"“", `"`, "”", `"`,
)

// repair applies small mechanical fixes to a reply that failed to
// parse: smart quote normalization, trailing prose after the closing
// bracket, dangling commas, and an unclosed bracket.
func repair(text string) string {
	t := smartQuotes.Replace(text)

	if i := strings.IndexByte(t, '['); i >= 0 {
		if j := strings.LastIndexByte(t, ']'); j > i {
			t = t[i : j+1]
		} else {
			t = strings.TrimRight(strings.TrimSpace(t[i:]), ",") + "]"
		}
	}

	t = strings.ReplaceAll(t, ",]", "]")
	t = strings.ReplaceAll(t, ", ]", "]")
	return strings.TrimSpace(t)
}
