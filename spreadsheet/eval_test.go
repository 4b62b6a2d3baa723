package spreadsheet

import "testing"

func TestEvaluateNonFormula(t *testing.T) {
	if got := Evaluate("hello", nil); got != "hello" {
		t.Errorf("got %q, want passthrough", got)
	}
}

func TestEvaluateSimpleArithmetic(t *testing.T) {
	values := map[Address]string{
		mustAddr(t, "A1"): "10",
		mustAddr(t, "A2"): "20",
	}
	if got := Evaluate("=A1+A2", values); got != "30" {
		t.Errorf("got %q, want 30", got)
	}
}

func TestEvaluateSumAggregate(t *testing.T) {
	values := map[Address]string{
		mustAddr(t, "A1"): "10",
		mustAddr(t, "A2"): "20",
		mustAddr(t, "A3"): "30",
	}
	if got := Evaluate("=SUM(A1:A3)+5", values); got != "65" {
		t.Errorf("got %q, want 65", got)
	}
}

func TestEvaluateAverageAggregate(t *testing.T) {
	values := map[Address]string{
		mustAddr(t, "A1"): "10",
		mustAddr(t, "A2"): "20",
	}
	if got := Evaluate("=AVERAGE(A1:A2)", values); got != "15" {
		t.Errorf("got %q, want 15", got)
	}
}

func TestEvaluateCountSkipsNonNumeric(t *testing.T) {
	values := map[Address]string{
		mustAddr(t, "A1"): "10",
		mustAddr(t, "A2"): "hello",
		mustAddr(t, "A3"): "20",
	}
	if got := Evaluate("=COUNT(A1:A3)", values); got != "2" {
		t.Errorf("got %q, want 2", got)
	}
}

func TestEvaluateDivideByZero(t *testing.T) {
	if got := Evaluate("=10/0", nil); got != "#DIV/0!" {
		t.Errorf("got %q, want #DIV/0!", got)
	}
}

func TestEvaluateZeroOverZero(t *testing.T) {
	values := map[Address]string{mustAddr(t, "A1"): "0"}
	if got := Evaluate("=A1/0", values); got != "#NUM!" {
		t.Errorf("got %q, want #NUM!", got)
	}
}

func TestEvaluatePropagatesErrorValues(t *testing.T) {
	values := map[Address]string{mustAddr(t, "A1"): "#DIV/0!"}
	got := Evaluate("=A1+1", values)
	if len(got) == 0 || got[0] != '#' {
		t.Errorf("got %q, want an error symbol to propagate", got)
	}
}

func TestEvaluateMissingRefDefaultsZero(t *testing.T) {
	if got := Evaluate("=A1+5", nil); got != "5" {
		t.Errorf("got %q, want 5 (missing ref treated as 0)", got)
	}
}

func TestEvaluatePrecedenceAndParens(t *testing.T) {
	if got := Evaluate("=(2+3)*4", nil); got != "20" {
		t.Errorf("got %q, want 20", got)
	}
}
