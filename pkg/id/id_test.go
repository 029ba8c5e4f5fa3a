package id

import (
	"strings"
	"testing"
)

func TestGeneratorPrefixes(t *testing.T) {
	g := NewGenerator()

	if ref := g.PaymentRef(); !strings.HasPrefix(ref, "PAY-") {
		t.Fatalf("payment ref %q missing prefix", ref)
	}
	if ref := g.TransferRef(); !strings.HasPrefix(ref, "TRF-") {
		t.Fatalf("transfer ref %q missing prefix", ref)
	}
	cash := g.CashRef()
	if !strings.HasPrefix(cash, "CASH-") {
		t.Fatalf("cash ref %q missing prefix", cash)
	}
	if !IsCashRef(cash) {
		t.Fatalf("IsCashRef(%q) = false", cash)
	}
	if IsCashRef("PAY-123") {
		t.Fatal("IsCashRef accepted a payment ref")
	}
}

func TestGeneratorUniqueness(t *testing.T) {
	g := NewGenerator()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		ref := g.PaymentRef()
		if seen[ref] {
			t.Fatalf("duplicate ref %q", ref)
		}
		seen[ref] = true
	}
}
