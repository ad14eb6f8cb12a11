package query

import (
	"testing"
)

func TestParseComparison(t *testing.T) {
	expr, err := Parse("Age >= 18")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pred, ok := expr.(Pred)
	if !ok {
		t.Fatalf("expected Pred, got %T", expr)
	}
	cmp, ok := pred.Predicate.(Compare)
	if !ok {
		t.Fatalf("expected Compare, got %T", pred.Predicate)
	}
	if cmp.Path != "Age" || cmp.Op != CmpGte || !cmp.Value.IsInt || cmp.Value.Int != 18 {
		t.Errorf("unexpected predicate %+v", cmp)
	}
}

func TestParseColonEquality(t *testing.T) {
	expr, err := Parse(`Name:"Ann Lee"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cmp := expr.(Pred).Predicate.(Compare)
	if cmp.Op != CmpEq || cmp.Value.Kind != OperandString || cmp.Value.Str != "Ann Lee" {
		t.Errorf("unexpected predicate %+v", cmp)
	}
}

func TestParsePrecedence(t *testing.T) {
	expr, err := Parse("a = 1 OR b = 2 AND c = 3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	or, ok := expr.(Or)
	if !ok {
		t.Fatalf("expected Or at the root, got %T", expr)
	}
	if _, ok := or.Right.(And); !ok {
		t.Errorf("expected AND to bind tighter, got %T", or.Right)
	}
}

func TestParseNotShorthand(t *testing.T) {
	expr, err := Parse("NOT Archived")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cmp, ok := expr.(Pred).Predicate.(Compare)
	if !ok {
		t.Fatalf("expected Compare, got %T", expr.(Pred).Predicate)
	}
	if cmp.Value.Kind != OperandBool || cmp.Value.Bool {
		t.Errorf("expected Archived = false, got %+v", cmp)
	}

	expr, err = Parse("!(Age < 3)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := expr.(Not); !ok {
		t.Errorf("expected Not, got %T", expr)
	}
}

func TestParseIsNull(t *testing.T) {
	expr, err := Parse("Address.City IS NOT NULL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, ok := expr.(Pred).Predicate.(IsNull)
	if !ok {
		t.Fatalf("expected IsNull, got %T", expr.(Pred).Predicate)
	}
	if n.Path != "Address.City" || !n.Negated {
		t.Errorf("unexpected predicate %+v", n)
	}
}

func TestParseParamsAreNumbered(t *testing.T) {
	expr, err := Parse("a = ? AND (b > ? OR c < ?)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := ParamCount(expr); n != 3 {
		t.Fatalf("expected 3 params, got %d", n)
	}
	right := expr.(And).Right.(Or)
	c := right.Right.(Pred).Predicate.(Compare)
	if c.Value.Kind != OperandParam || c.Value.Param != 2 {
		t.Errorf("expected third param, got %+v", c.Value)
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{"", "a =", "(a = 1", "a = 1 b", "a IS 3", "= 3", "a..b = 1"} {
		if _, err := Parse(input); err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}
