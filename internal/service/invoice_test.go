package service

import (
	"strings"
	"testing"

	"github.com/mjaychoi/hc-violins/internal/model"
)

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name         string
		lines        []model.InvoiceLine
		wantSubtotal int64
		wantTax      int64
		wantTotal    int64
	}{
		{
			name: "single line",
			lines: []model.InvoiceLine{
				{Description: "Bow rehair", Quantity: 1, UnitCents: 8500},
			},
			wantSubtotal: 8500,
			wantTax:      722, // 8500 * 850 / 10000, truncated
			wantTotal:    9222,
		},
		{
			name: "quantity multiplies",
			lines: []model.InvoiceLine{
				{Description: "Dominant string", Quantity: 4, UnitCents: 2500},
			},
			wantSubtotal: 10000,
			wantTax:      850,
			wantTotal:    10850,
		},
		{
			name: "multiple lines sum",
			lines: []model.InvoiceLine{
				{Description: "Setup", Quantity: 1, UnitCents: 12000},
				{Description: "Strings", Quantity: 4, UnitCents: 2500},
			},
			wantSubtotal: 22000,
			wantTax:      1870,
			wantTotal:    23870,
		},
		{
			name:         "no lines",
			lines:        nil,
			wantSubtotal: 0,
			wantTax:      0,
			wantTotal:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &model.Invoice{Lines: tt.lines}
			ComputeTotals(inv)
			if inv.SubtotalCents != tt.wantSubtotal {
				t.Errorf("subtotal = %d, want %d", inv.SubtotalCents, tt.wantSubtotal)
			}
			if inv.TaxCents != tt.wantTax {
				t.Errorf("tax = %d, want %d", inv.TaxCents, tt.wantTax)
			}
			if inv.TotalCents != tt.wantTotal {
				t.Errorf("total = %d, want %d", inv.TotalCents, tt.wantTotal)
			}
		})
	}
}

func TestNewInvoiceNumber(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		n := NewInvoiceNumber()
		if !strings.HasPrefix(n, "INV-") {
			t.Fatalf("number %q missing INV- prefix", n)
		}
		if len(n) != len("INV-")+8 {
			t.Fatalf("number %q has wrong length", n)
		}
		if n != strings.ToUpper(n) {
			t.Fatalf("number %q is not upper-case", n)
		}
		if seen[n] {
			t.Fatalf("number %q repeated", n)
		}
		seen[n] = true
	}
}
