package query

import (
	"errors"
	"testing"

	"github.com/ovunque/nlsearch/internal/domain"
	"github.com/ovunque/nlsearch/internal/domain/schema"
)

func TestComparison_Satisfied(t *testing.T) {
	tests := []struct {
		cmp       Comparison
		count     int
		threshold int
		want      bool
	}{
		{CmpGT, 6, 5, true},
		{CmpGT, 5, 5, false},
		{CmpGTE, 5, 5, true},
		{CmpGTE, 4, 5, false},
		{CmpLT, 2, 3, true},
		{CmpLTE, 3, 3, true},
		{CmpEQ, 3, 3, true},
		{CmpEQ, 4, 3, false},
		{CmpGTE, 1, 0, true},
	}
	for _, tt := range tests {
		if got := tt.cmp.Satisfied(tt.count, tt.threshold); got != tt.want {
			t.Errorf("%s.Satisfied(%d, %d) = %v, want %v", tt.cmp, tt.count, tt.threshold, got, tt.want)
		}
	}
}

func TestNewSpec(t *testing.T) {
	reg := schema.NewRegistry()

	s, err := NewSpec(reg, CountAggregate, "partner", "invoice", "partner_id", 5, CmpGT)
	if err != nil {
		t.Fatalf("NewSpec: %v", err)
	}
	if s.Primary() != "partner" || s.Secondary() != "invoice" || s.Threshold() != 5 {
		t.Errorf("spec = %+v", s)
	}

	if _, err := NewSpec(reg, CountAggregate, "warehouse", "invoice", "partner_id", 5, CmpGT); !errors.Is(err, domain.ErrSchema) {
		t.Errorf("unknown primary: err = %v, want ErrSchema", err)
	}
	if _, err := NewSpec(reg, CountAggregate, "partner", "shipment", "partner_id", 5, CmpGT); !errors.Is(err, domain.ErrSchema) {
		t.Errorf("unknown secondary: err = %v, want ErrSchema", err)
	}
	if _, err := NewSpec(reg, CountAggregate, "partner", "invoice", "amount_total", 5, CmpGT); !errors.Is(err, domain.ErrSchema) {
		t.Errorf("non-relational link attribute: err = %v, want ErrSchema", err)
	}
	if _, err := NewSpec(reg, CountAggregate, "product", "invoice", "partner_id", 5, CmpGT); !errors.Is(err, domain.ErrSchema) {
		t.Errorf("link to wrong entity: err = %v, want ErrSchema", err)
	}
	if _, err := NewSpec(reg, "pivot", "partner", "invoice", "partner_id", 5, CmpGT); !errors.Is(err, domain.ErrSchema) {
		t.Errorf("unknown operation: err = %v, want ErrSchema", err)
	}
	if _, err := NewSpec(reg, CountAggregate, "partner", "invoice", "partner_id", -1, CmpGT); !errors.Is(err, domain.ErrSchema) {
		t.Errorf("negative threshold: err = %v, want ErrSchema", err)
	}

	// Exclusion needs no comparison or threshold.
	if _, err := NewSpec(reg, Exclusion, "product", "sale", "product_id", 0, ""); err != nil {
		t.Errorf("exclusion spec: %v", err)
	}
}
