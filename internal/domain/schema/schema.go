// Package schema describes the queryable entities: their stored and
// computed attributes, the category table that maps user-facing
// categories to entity types, and the alias-correction table for
// commonly confused field names.
package schema

import "sort"

// Type is the value type of an entity field.
type Type string

// Field type constants.
const (
	Char     Type = "char"
	Text     Type = "text"
	Integer  Type = "integer"
	Float    Type = "float"
	Boolean  Type = "boolean"
	Date     Type = "date"
	Many2one Type = "many2one"
)

// Field is an immutable value object describing one entity attribute.
// Computed fields exist in the schema so they can be named in error
// messages, but are never eligible for filters or query specs.
type Field struct {
	name      string
	fieldType Type
	label     string
	stored    bool
	relation  string // target entity for many2one fields
}

// Name returns the attribute name.
func (f Field) Name() string { return f.name }

// FieldType returns the attribute value type.
func (f Field) FieldType() Type { return f.fieldType }

// Label returns the human-readable label.
func (f Field) Label() string { return f.label }

// Stored reports whether the attribute is persisted (queryable).
func (f Field) Stored() bool { return f.stored }

// Relation returns the target entity type for many2one fields.
func (f Field) Relation() string { return f.relation }

func stored(name string, ft Type, label string) Field {
	return Field{name: name, fieldType: ft, label: label, stored: true}
}

func relation(name, target, label string) Field {
	return Field{name: name, fieldType: Many2one, label: label, stored: true, relation: target}
}

func computed(name string, ft Type, label string) Field {
	return Field{name: name, fieldType: ft, label: label}
}

// Entity is an immutable per-entity schema.
type Entity struct {
	name        string
	description string
	fields      map[string]Field
	order       []string
	examples    string
}

// Name returns the entity type name.
func (e Entity) Name() string { return e.name }

// Description returns the human-readable description used in prompts.
func (e Entity) Description() string { return e.description }

// Examples returns the entity-specific example block used in prompts.
func (e Entity) Examples() string { return e.examples }

// Field looks up an attribute by name.
func (e Entity) Field(name string) (Field, bool) {
	f, ok := e.fields[name]
	return f, ok
}

// StoredFields returns the stored attributes in declaration order.
func (e Entity) StoredFields() []Field {
	out := make([]Field, 0, len(e.order))
	for _, n := range e.order {
		if f := e.fields[n]; f.stored {
			out = append(out, f)
		}
	}
	return out
}

// StoredFieldNames returns the names of stored attributes, sorted.
// Used for "valid alternatives" error messages.
func (e Entity) StoredFieldNames() []string {
	out := make([]string, 0, len(e.order))
	for _, n := range e.order {
		if e.fields[n].stored {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// ComputedFieldNames returns the names of computed attributes, sorted.
func (e Entity) ComputedFieldNames() []string {
	var out []string
	for _, n := range e.order {
		if !e.fields[n].stored {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

func newEntity(name, description, examples string, fields ...Field) Entity {
	m := make(map[string]Field, len(fields))
	order := make([]string, len(fields))
	for i, f := range fields {
		m[f.name] = f
		order[i] = f.name
	}
	return Entity{name: name, description: description, fields: m, order: order, examples: examples}
}

// Registry is the fixed set of queryable entities, built at process start.
type Registry struct {
	entities   map[string]Entity
	order      []string
	categories map[string]string
	aliases    map[string]map[string]string
}

// Entity looks up an entity schema by type name.
func (r *Registry) Entity(name string) (Entity, bool) {
	e, ok := r.entities[name]
	return e, ok
}

// EntityNames returns the registered entity type names in declaration order.
func (r *Registry) EntityNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// EntityForCategory resolves a user-facing category to its entity schema.
func (r *Registry) EntityForCategory(category string) (Entity, bool) {
	name, ok := r.categories[category]
	if !ok {
		return Entity{}, false
	}
	return r.entities[name], true
}

// Categories returns a copy of the category -> entity type table.
func (r *Registry) Categories() map[string]string {
	out := make(map[string]string, len(r.categories))
	for k, v := range r.categories {
		out[k] = v
	}
	return out
}

// Alias resolves a known misnamed attribute to its stored correction.
// Substitutions are applied once, during validation, and reported to
// the audit trail by the caller.
func (r *Registry) Alias(entity, field string) (string, bool) {
	m, ok := r.aliases[entity]
	if !ok {
		return "", false
	}
	corrected, ok := m[field]
	return corrected, ok
}

// NewRegistry builds the built-in entity registry.
func NewRegistry() *Registry {
	entities := []Entity{
		newEntity("partner",
			"Contacts, customers, suppliers and companies",
			`- "Customers from Milan" -> [('city', 'ilike', 'Milan'), ('customer_rank', '>', 0)]
- "Suppliers" -> [('supplier_rank', '>', 0)]
- "Inactive partners" -> [('active', '=', false)]`,
			stored("name", Char, "Name"),
			stored("city", Char, "City"),
			stored("email", Char, "Email"),
			stored("active", Boolean, "Active"),
			stored("customer_rank", Integer, "Customer Rank"),
			stored("supplier_rank", Integer, "Supplier Rank"),
			stored("credit", Float, "Total Receivable"),
			stored("create_date", Date, "Created On"),
			computed("display_name", Char, "Display Name"),
			computed("total_invoiced", Float, "Total Invoiced"),
		),
		newEntity("invoice",
			"Customer invoices and vendor bills (posted documents)",
			`- "Unpaid invoices" -> [('state', '!=', 'posted'), ('payment_state', '=', 'not_paid')]
- "Invoices from January 2025" -> [('invoice_date', '>=', '2025-01-01'), ('invoice_date', '<', '2025-02-01')]
- "Large invoices over 1000" -> [('amount_total', '>', 1000)]`,
			stored("name", Char, "Number"),
			relation("partner_id", "partner", "Partner"),
			stored("state", Char, "Status"),
			stored("payment_state", Char, "Payment Status"),
			stored("amount_total", Float, "Total"),
			stored("invoice_date", Date, "Invoice Date"),
			computed("display_name", Char, "Display Name"),
		),
		newEntity("product",
			"Products with selling price, internal cost and identification codes",
			`PRICE DISTINCTION:
- list_price = SELLING PRICE (what the customer pays) - use for "price", "prezzo", "euro"
- standard_price = INTERNAL COST - use only for "internal cost", "costo interno", "our cost"
- "Products under 100 euros" -> [('list_price', '<', 100)]
- "Products with internal cost > 50" -> [('standard_price', '>', 50)]
- "Electronics products" -> [('category', 'ilike', 'Electronics')]`,
			stored("name", Char, "Name"),
			stored("list_price", Float, "Sales Price"),
			stored("standard_price", Float, "Cost"),
			stored("active", Boolean, "Active"),
			stored("barcode", Char, "Barcode"),
			stored("default_code", Char, "Internal Reference"),
			stored("category", Char, "Category"),
			computed("qty_available", Float, "Quantity On Hand"),
			computed("lst_price", Float, "Public Price"),
			computed("price", Float, "Price"),
			computed("margin", Float, "Margin"),
		),
		newEntity("sale",
			"Sales orders",
			`- "Draft orders" -> [('state', '=', 'draft')]
- "Confirmed sales" -> [('state', '=', 'sale')]
- "Orders over 500" -> [('amount_total', '>', 500)]`,
			stored("name", Char, "Order Reference"),
			relation("partner_id", "partner", "Customer"),
			relation("product_id", "product", "Product"),
			stored("state", Char, "Status"),
			stored("amount_total", Float, "Total"),
			stored("date_order", Date, "Order Date"),
			computed("display_name", Char, "Display Name"),
			computed("margin", Float, "Margin"),
		),
		newEntity("purchase",
			"Purchase orders and requests for quotation",
			`- "RFQ pending" -> [('state', '=', 'draft')]
- "Confirmed purchases" -> [('state', 'in', ['purchase', 'done'])]`,
			stored("name", Char, "Order Reference"),
			relation("partner_id", "partner", "Vendor"),
			relation("product_id", "product", "Product"),
			stored("state", Char, "Status"),
			stored("amount_total", Float, "Total"),
			stored("date_order", Date, "Order Date"),
			computed("display_name", Char, "Display Name"),
		),
		newEntity("lead",
			"CRM leads and opportunities",
			`- "Open opportunities" -> [('probability', '>', 0), ('probability', '<', 100)]
- "Lost deals" -> [('probability', '=', 0)]
- "Won deals" -> [('probability', '=', 100)]`,
			stored("name", Char, "Opportunity"),
			relation("partner_id", "partner", "Customer"),
			stored("probability", Float, "Probability"),
			stored("expected_revenue", Float, "Expected Revenue"),
			stored("stage", Char, "Stage"),
			stored("active", Boolean, "Active"),
			computed("display_name", Char, "Display Name"),
		),
		newEntity("task",
			"Project tasks and work items",
			`- "Open tasks" -> [('state', 'in', ['todo', 'in_progress'])]
- "Completed tasks" -> [('state', '=', 'done')]`,
			stored("name", Char, "Title"),
			relation("partner_id", "partner", "Customer"),
			stored("project", Char, "Project"),
			stored("state", Char, "State"),
			stored("priority", Char, "Priority"),
			stored("date_deadline", Date, "Deadline"),
			computed("display_name", Char, "Display Name"),
		),
	}

	m := make(map[string]Entity, len(entities))
	order := make([]string, len(entities))
	for i, e := range entities {
		m[e.name] = e
		order[i] = e.name
	}

	return &Registry{
		entities: m,
		order:    order,
		categories: map[string]string{
			"customers":     "partner",
			"suppliers":     "partner",
			"partners":      "partner",
			"invoices":      "invoice",
			"bills":         "invoice",
			"documents":     "invoice",
			"products":      "product",
			"inventory":     "product",
			"sales":         "sale",
			"orders":        "sale",
			"purchases":     "purchase",
			"crm":           "lead",
			"opportunities": "lead",
			"tasks":         "task",
			"projects":      "task",
		},
		aliases: map[string]map[string]string{
			"partner": {"display_name": "name"},
			"invoice": {"amount": "amount_total", "total": "amount_total"},
			"product": {"price": "list_price", "lst_price": "list_price"},
			"sale":    {"total": "amount_total"},
			"lead":    {"revenue": "expected_revenue"},
		},
	}
}
