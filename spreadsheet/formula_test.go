package spreadsheet

import "testing"

func mustAddr(t *testing.T, s string) Address {
	t.Helper()
	a, err := NewAddress(s)
	if err != nil {
		t.Fatalf("NewAddress(%q): %v", s, err)
	}
	return a
}

func TestIsFormula(t *testing.T) {
	if !IsFormula("  =A1+1") {
		t.Error("expected leading-space formula to be recognized")
	}
	if IsFormula("42") {
		t.Error("plain number should not be a formula")
	}
}

func TestValidateFormula(t *testing.T) {
	valid := []string{"=A1+A2", "=SUM(A1:A3)", "=(A1+A2)*3"}
	for _, f := range valid {
		if err := ValidateFormula(f); err != nil {
			t.Errorf("ValidateFormula(%q) unexpected error: %v", f, err)
		}
	}
	invalid := []string{"A1+1", "=", "=(A1+A2", "=A1)+A2"}
	for _, f := range invalid {
		if err := ValidateFormula(f); err == nil {
			t.Errorf("ValidateFormula(%q) should have failed", f)
		}
	}
}

func TestExtractRefsSingleCells(t *testing.T) {
	refs, err := ExtractRefs("=A1+B2*3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[Address]struct{}{
		mustAddr(t, "A1"): {},
		mustAddr(t, "B2"): {},
	}
	if len(refs) != len(want) {
		t.Fatalf("got %d refs, want %d", len(refs), len(want))
	}
	for a := range want {
		if _, ok := refs[a]; !ok {
			t.Errorf("missing expected ref %v", a)
		}
	}
}

func TestExtractRefsRange(t *testing.T) {
	refs, err := ExtractRefs("=SUM(A1:A3)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, addr := range []string{"A1", "A2", "A3"} {
		if _, ok := refs[mustAddr(t, addr)]; !ok {
			t.Errorf("expected range to expand to include %s", addr)
		}
	}
}

func TestExtractRefsReversedRange(t *testing.T) {
	forward, err := ExtractRefs("=SUM(A1:A3)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reversed, err := ExtractRefs("=SUM(A3:A1)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(forward) != len(reversed) {
		t.Fatalf("reversed range produced a different set: %v vs %v", forward, reversed)
	}
	for a := range forward {
		if _, ok := reversed[a]; !ok {
			t.Errorf("reversed range missing %v", a)
		}
	}
}

func TestExtractRefsIgnoresFunctionNames(t *testing.T) {
	refs, err := ExtractRefs("=SUM(A1:A2)+AVERAGE(B1:B2)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[Address]struct{}{
		mustAddr(t, "A1"): {},
		mustAddr(t, "A2"): {},
		mustAddr(t, "B1"): {},
		mustAddr(t, "B2"): {},
	}
	for a := range refs {
		if _, ok := want[a]; !ok {
			t.Errorf("function name leaked into refs: %v", a)
		}
	}
}
