package query

import (
	"regexp"
	"strconv"
)

// PatternRule pairs a phrasing regex with the spec it produces.
// Expressions run case-insensitively against the raw query text,
// unanchored. For count rules the first numeric capture group carries
// the threshold.
type PatternRule struct {
	name       string
	re         *regexp.Regexp
	operation  Operation
	primary    string
	secondary  string
	linkField  string
	comparison Comparison
}

// Name returns the rule identifier used in logs and the audit trail.
func (r PatternRule) Name() string { return r.name }

func newRule(name, expr string, op Operation, primary, secondary, linkField string, cmp Comparison) PatternRule {
	return PatternRule{
		name:       name,
		re:         regexp.MustCompile(`(?i)` + expr),
		operation:  op,
		primary:    primary,
		secondary:  secondary,
		linkField:  linkField,
		comparison: cmp,
	}
}

// Detector matches query text against an ordered rule list. Rules are
// tried in order and the first match wins, so stricter phrasings
// ("more than N") are listed before their looser variants ("with N").
type Detector struct {
	rules []PatternRule
}

// NewDetector builds the detector with the built-in bilingual rules.
func NewDetector() *Detector {
	return &Detector{rules: []PatternRule{
		newRule("partners_more_than_invoices",
			`(clienti|client[ei]?|customers?|partners?).*?(?:con\s+più\s+di|with\s+more\s+than|more\s+than|oltre)\s*(\d+)\s*(?:fatture|fattura|invoices?|documenti|documents?)`,
			CountAggregate, "partner", "invoice", "partner_id", CmpGT),
		newRule("partners_more_than_orders",
			`(clienti|client[ei]?|customers?|partners?).*?(?:con\s+più\s+di|with\s+more\s+than|more\s+than|oltre)\s*(\d+)\s*(?:ordini|ordine|orders?)`,
			CountAggregate, "partner", "sale", "partner_id", CmpGT),
		newRule("partners_with_invoices",
			`(clienti|client[ei]?|customers?|partners?).*?(?:con|with|at\s+least)\s*(\d+)\+?\s*(?:fatture|fattura|invoices?|documenti|documents?)`,
			CountAggregate, "partner", "invoice", "partner_id", CmpGTE),
		newRule("partners_with_orders",
			`(clienti|client[ei]?|customers?|partners?).*?(?:con|with|at\s+least)\s*(\d+)\+?\s*(?:ordini|ordine|orders?)`,
			CountAggregate, "partner", "sale", "partner_id", CmpGTE),
		newRule("products_never_ordered",
			`(prodotti|prodotto|products?|articoli|items?).*?(?:mai\s+(?:stati\s+)?ordinat[io]|never\s+(?:been\s+)?ordered|senza\s+(?:alcun\s+)?ordini?|without\s+(?:any\s+)?orders?|not\s+ordered)`,
			Exclusion, "product", "sale", "product_id", ""),
		newRule("partners_without_invoices",
			`(clienti|client[ei]?|customers?|partners?).*?(?:senza\s+(?:alcuna\s+)?fattur[ae]|without\s+(?:any\s+)?invoices?|never\s+(?:been\s+)?invoiced|mai\s+fatturat[io])`,
			Exclusion, "partner", "invoice", "partner_id", ""),
		newRule("suppliers_without_purchases",
			`(fornitori|fornitore|suppliers?|vendors?).*?(?:senza\s+(?:alcun\s+)?(?:ordini?\s+di\s+acquisto|acquist[io])|without\s+(?:any\s+)?(?:purchase\s+orders?|purchases?))`,
			Exclusion, "partner", "purchase", "partner_id", ""),
	}}
}

// Detect returns the spec of the first matching rule, or ok=false if
// no rule applies and the query should fall through to the language
// model.
func (d *Detector) Detect(text string) (Spec, PatternRule, bool) {
	for _, r := range d.rules {
		m := r.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		threshold := 0
		if r.operation == CountAggregate {
			n, err := strconv.Atoi(m[2])
			if err != nil {
				continue
			}
			threshold = n
		}
		return Spec{
			operation:  r.operation,
			primary:    r.primary,
			secondary:  r.secondary,
			linkField:  r.linkField,
			threshold:  threshold,
			comparison: r.comparison,
		}, r, true
	}
	return Spec{}, PatternRule{}, false
}
