package search

import (
	"fmt"
	"strings"

	"github.com/ovunque/nlsearch/internal/domain/schema"
)

// buildSystemPrompt assembles the translation instructions for one
// entity: its description, the stored attributes the model may use
// (capped to keep the prompt bounded), worked examples, and the strict
// output rules. Cross-entity questions are steered to the JSON form.
func buildSystemPrompt(e schema.Entity, maxFields int) string {
	var b strings.Builder

	b.WriteString("You translate natural language search queries into filter expressions.\n\n")
	fmt.Fprintf(&b, "Target entity: %s (%s)\n\n", e.Name(), e.Description())

	b.WriteString("Available fields (use ONLY these):\n")
	fields := e.StoredFields()
	if len(fields) > maxFields {
		fields = fields[:maxFields]
	}
	for _, f := range fields {
		fmt.Fprintf(&b, "- %s (%s): %s\n", f.Name(), f.FieldType(), f.Label())
	}

	if ex := e.Examples(); ex != "" {
		b.WriteString("\nExamples:\n")
		b.WriteString(ex)
		b.WriteString("\n")
	}

	b.WriteString(`
Rules:
1. Respond with ONLY a filter expression in the form [('field', 'operator', value), ...]
2. Allowed operators: =, !=, >, <, >=, <=, like, ilike, in, not in
3. Use only the fields listed above. Never invent field names.
4. Dates use the YYYY-MM-DD format.
5. If the query cannot be expressed with the listed fields, respond with []
6. If the query requires correlating this entity with another one (for example counting related records or finding records with no related ones), respond instead with a JSON object:
   {"query_type": "count_aggregate" or "exclusion", "primary_model": ..., "secondary_model": ..., "link_field": ..., "threshold": ..., "comparison": "gt"|"gte"|"lt"|"lte"|"eq"}
7. No explanations, no markdown, no surrounding text.`)

	return b.String()
}
