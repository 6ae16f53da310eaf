package record

import (
	"errors"
	"testing"

	"github.com/ovunque/nlsearch/internal/domain"
)

func TestNew_Validation(t *testing.T) {
	if _, err := New(0, "partner", nil); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("New with id 0: err = %v, want ErrValidation", err)
	}
	if _, err := New(7, "", nil); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("New with empty entity: err = %v, want ErrValidation", err)
	}
	r, err := New(7, "partner", map[string]any{"name": "Acme"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r.ID() != 7 || r.Entity() != "partner" {
		t.Errorf("record = %d/%s, want 7/partner", r.ID(), r.Entity())
	}
}

func TestDisplayName(t *testing.T) {
	r := Reconstruct(3, "invoice", map[string]any{"name": "INV/2025/0003"})
	if got := r.DisplayName(); got != "INV/2025/0003" {
		t.Errorf("DisplayName = %q", got)
	}

	r = Reconstruct(9, "product", map[string]any{"barcode": "123"})
	if got := r.DisplayName(); got != "product #9" {
		t.Errorf("DisplayName fallback = %q, want product #9", got)
	}
}

func TestLink(t *testing.T) {
	r := Reconstruct(1, "sale", map[string]any{
		"partner_id": "42",
		"product_id": int64(8),
		"state":      "sale",
	})

	if id, ok := r.Link("partner_id"); !ok || id != 42 {
		t.Errorf("Link(partner_id) = %d, %v; want 42, true", id, ok)
	}
	if id, ok := r.Link("product_id"); !ok || id != 8 {
		t.Errorf("Link(product_id) = %d, %v; want 8, true", id, ok)
	}
	if _, ok := r.Link("state"); ok {
		t.Error("Link(state) should fail on a non-numeric value")
	}
	if _, ok := r.Link("missing"); ok {
		t.Error("Link(missing) should fail")
	}
}

func TestValues_Copy(t *testing.T) {
	r := Reconstruct(1, "partner", map[string]any{"name": "Acme"})
	v := r.Values()
	v["name"] = "mutated"
	if got, _ := r.Value("name"); got != "Acme" {
		t.Error("Values() must return a copy")
	}
}
