package report

import (
	"bytes"
	"testing"
	"time"
)

func TestTotalSumsLineAmounts(t *testing.T) {
	lines := []Line{
		{ItemName: "A", Quantity: 2, UnitPrice: 10.0},
		{ItemName: "B", Quantity: 1, UnitPrice: 5.0},
	}
	if got := lines[0].Amount(); got != 20.0 {
		t.Fatalf("amount = %v, want 20", got)
	}
	if got := lines[1].Amount(); got != 5.0 {
		t.Fatalf("amount = %v, want 5", got)
	}
	if got := Total(lines); got != 25.0 {
		t.Fatalf("total = %v, want 25", got)
	}
}

func TestLatin1SafeSubstitutions(t *testing.T) {
	if got := latin1Safe("150 ₺"); got != "150 TL" {
		t.Fatalf("lira sign: got %q", got)
	}
	// Turkish letters outside Latin-1 degrade to the replacement
	// instead of breaking the font encoding.
	out := latin1Safe("Yazıcı bakımı")
	for _, r := range out {
		if r > 0xFF {
			t.Fatalf("non Latin-1 rune %q survived in %q", r, out)
		}
	}
}

func TestBuildProducesPDF(t *testing.T) {
	info := RequestInfo{
		ID:            5,
		CustomerTitle: "Acme Ltd",
		Title:         "Printer maintenance",
		Status:        "Completed",
		CreatedAt:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	out, err := Build(info, []Line{{ItemName: "toner", Quantity: 1, UnitPrice: 100}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("output does not start with a PDF header")
	}
}

func TestBuildEmptyLines(t *testing.T) {
	out, err := Build(RequestInfo{ID: 1, CreatedAt: time.Now()}, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("empty report must still render")
	}
}
