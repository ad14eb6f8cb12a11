package query

import (
	"reflect"
	"testing"
)

func TestNormalizeFoldsDoubleNegation(t *testing.T) {
	expr, err := Parse("NOT NOT (a = 1)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := Normalize(expr, DefaultNormalizeOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := out.(Pred); !ok {
		t.Errorf("expected double negation to fold, got %T", out)
	}
}

func TestNormalizeGuardrails(t *testing.T) {
	expr, err := Parse("a = 1 AND b = 2 AND c = 3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := Normalize(expr, NormalizeOptions{MaxPredicates: 2}); err == nil {
		t.Error("expected predicate limit error")
	}
	if _, err := Normalize(expr, NormalizeOptions{MaxDepth: 2}); err == nil {
		t.Error("expected depth limit error")
	}
	if _, err := Normalize(expr, DefaultNormalizeOptions()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPaths(t *testing.T) {
	expr, err := Parse("Name = 'x' OR (Address.City IS NULL AND NOT Active)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := Paths(expr)
	want := []string{"Name", "Address.City", "Active"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestFormatIsCanonical(t *testing.T) {
	a, err := Parse(`Name:"Bob" and Age>=2`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Parse(`Name = 'Bob' AND Age >= 2`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if Format(a) != Format(b) {
		t.Errorf("expected equal canonical forms, got %q and %q", Format(a), Format(b))
	}
	if got := Format(a); got != `(Name = "Bob" AND Age >= 2)` {
		t.Errorf("unexpected canonical form %q", got)
	}
}
