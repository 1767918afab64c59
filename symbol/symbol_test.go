package symbol

import "testing"

func TestFinderGetSimpleIdentifier(t *testing.T) {
	f := NewFinderFromSource("x = 1\ny = x + 1\n")

	sym, ok := f.Get(2, 4)
	if !ok {
		t.Fatal("expected a symbol at line 2, column 4")
	}
	if sym.Expression != "x" {
		t.Fatalf("expected x, got %q", sym.Expression)
	}
}

func TestFinderGetAttributeChain(t *testing.T) {
	f := NewFinderFromSource("print(obj.field)\n")

	sym, ok := f.Get(1, 6)
	if !ok {
		t.Fatal("expected a symbol at line 1, column 6")
	}
	if sym.Expression != "obj.field" {
		t.Fatalf("expected obj.field, got %q", sym.Expression)
	}
}

func TestFinderGetMissReturnsFalse(t *testing.T) {
	f := NewFinderFromSource("x = 1\n")

	if _, ok := f.Get(99, 0); ok {
		t.Fatal("expected no symbol on a nonexistent line")
	}
	if _, ok := f.Get(1, 100); ok {
		t.Fatal("expected no symbol past the end of the line")
	}
}

func TestFinderInclusiveIntervalBoundary(t *testing.T) {
	f := NewFinderFromSource("abc\n")

	sym, ok := f.Get(1, 0)
	if !ok || sym.Expression != "abc" {
		t.Fatalf("expected abc at the start boundary, got %+v ok=%v", sym, ok)
	}
	sym, ok = f.Get(1, 3)
	if !ok || sym.Expression != "abc" {
		t.Fatalf("expected abc at the inclusive end boundary, got %+v ok=%v", sym, ok)
	}
	if _, ok := f.Get(1, 4); ok {
		t.Fatal("expected no symbol past the inclusive end boundary")
	}
}
