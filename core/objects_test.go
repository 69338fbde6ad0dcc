package core

import "testing"

func TestDictAccessors(t *testing.T) {
	d := Dict{
		"Type":     Name("Page"),
		"Count":    Integer(3),
		"Scale":    Real(1.5),
		"MediaBox": Array{Integer(0), Integer(0), Integer(595), Integer(842)},
		"Parent":   Ref{Num: 2, Gen: 0},
		"Res":      Dict{"Font": Dict{}},
	}
	if n, ok := d.GetName("Type"); !ok || n != "Page" {
		t.Fatalf("GetName: %v %v", n, ok)
	}
	if v, ok := d.GetInt("Count"); !ok || v != 3 {
		t.Fatalf("GetInt: %v %v", v, ok)
	}
	if f, ok := d.GetFloat("Scale"); !ok || f != 1.5 {
		t.Fatalf("GetFloat: %v %v", f, ok)
	}
	if f, ok := d.GetFloat("Count"); !ok || f != 3 {
		t.Fatalf("GetFloat on integer: %v %v", f, ok)
	}
	if a, ok := d.GetArray("MediaBox"); !ok || len(a) != 4 {
		t.Fatalf("GetArray: %v %v", a, ok)
	}
	if r, ok := d.GetRef("Parent"); !ok || r.Num != 2 {
		t.Fatalf("GetRef: %v %v", r, ok)
	}
	if sub, ok := d.GetDict("Res"); !ok || sub == nil {
		t.Fatalf("GetDict: %v %v", sub, ok)
	}
	if _, ok := d.GetName("Missing"); ok {
		t.Fatal("GetName on missing key should fail")
	}
	if _, ok := d.GetInt("Type"); ok {
		t.Fatal("GetInt on a name should fail")
	}
}

func TestDictClone(t *testing.T) {
	d := Dict{"A": Integer(1)}
	c := d.Clone()
	c["A"] = Integer(2)
	c["B"] = Integer(3)
	if v, _ := d.GetInt("A"); v != 1 {
		t.Fatalf("clone mutated original: %d", v)
	}
	if _, ok := d.Get("B"); ok {
		t.Fatal("clone added key to original")
	}
}

func TestRectFromArray(t *testing.T) {
	r, ok := RectFromArray(Array{Integer(0), Integer(0), Real(595.28), Real(841.89)})
	if !ok {
		t.Fatal("RectFromArray failed")
	}
	if r.Width() != 595.28 || r.Height() != 841.89 {
		t.Fatalf("got %v x %v", r.Width(), r.Height())
	}
	// reversed corners are normalized
	r, ok = RectFromArray(Array{Integer(595), Integer(842), Integer(0), Integer(0)})
	if !ok || r.LLX != 0 || r.URY != 842 {
		t.Fatalf("normalization: %+v %v", r, ok)
	}
	if _, ok := RectFromArray(Array{Integer(1), Integer(2), Integer(3)}); ok {
		t.Fatal("short array must fail")
	}
	if _, ok := RectFromArray(Array{Name("x"), Integer(0), Integer(0), Integer(0)}); ok {
		t.Fatal("non-numeric entry must fail")
	}
}

func TestRectArrayRoundTrip(t *testing.T) {
	r := Rect{LLX: 20, LLY: 804, URX: 38.236, URY: 817}
	back, ok := RectFromArray(r.Array())
	if !ok || back != r {
		t.Fatalf("got %+v, want %+v", back, r)
	}
}
