package writer

import (
	"strings"
	"testing"

	"github.com/mkoehler/duplexnum/core"
)

func TestSerializePrimitives(t *testing.T) {
	cases := []struct {
		obj  core.Object
		want string
	}{
		{core.Name("Type"), "/Type"},
		{core.Name("Name With Space"), "/Name#20With#20Space"},
		{core.Integer(42), "42"},
		{core.Integer(-7), "-7"},
		{core.Real(20.5), "20.5"},
		{core.Real(11), "11"},
		{core.Boolean(true), "true"},
		{core.Boolean(false), "false"},
		{core.Null{}, "null"},
		{core.Ref{Num: 5, Gen: 0}, "5 0 R"},
		{core.String{Bytes: []byte("hi")}, "(hi)"},
		{core.String{Bytes: []byte("a(b)c\\")}, `(a\(b\)c\\)`},
		{core.String{Bytes: []byte{0x01}}, `(\001)`},
		{core.String{Bytes: []byte{0xAB, 0x12}, Hex: true}, "<AB12>"},
		{core.Array{core.Integer(1), core.Name("N"), core.Real(2.5)}, "[1 /N 2.5]"},
	}
	for _, tc := range cases {
		if got := string(Serialize(tc.obj)); got != tc.want {
			t.Errorf("Serialize(%#v) = %q, want %q", tc.obj, got, tc.want)
		}
	}
}

func TestSerializeDictSortsKeys(t *testing.T) {
	d := core.Dict{
		"Zebra": core.Integer(1),
		"Alpha": core.Integer(2),
		"Mid":   core.Integer(3),
	}
	want := "<</Alpha 2/Mid 3/Zebra 1>>"
	if got := string(Serialize(d)); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	// repeated serialization is byte-identical
	if string(Serialize(d)) != want {
		t.Fatal("serialization not deterministic")
	}
}

func TestSerializeNestedDict(t *testing.T) {
	d := core.Dict{
		"AP": core.Dict{"N": core.Ref{Num: 9, Gen: 0}},
		"F":  core.Integer(4),
	}
	want := "<</AP <</N 9 0 R>>/F 4>>"
	if got := string(Serialize(d)); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSerializeStreamSetsLength(t *testing.T) {
	stm := &core.Stream{
		Dict: core.Dict{"Length": core.Integer(999), "Type": core.Name("XObject")},
		Raw:  []byte("0 0 10 10 re f"),
	}
	got := string(Serialize(stm))
	if !strings.Contains(got, "/Length 14") {
		t.Fatalf("stream /Length not corrected: %q", got)
	}
	if !strings.HasSuffix(got, "\nstream\n0 0 10 10 re f\nendstream") {
		t.Fatalf("stream framing wrong: %q", got)
	}
	// the source dictionary stays untouched
	if v, _ := stm.Dict.GetInt("Length"); v != 999 {
		t.Fatal("Serialize mutated the stream dictionary")
	}
}

func TestSerializeNegativeZero(t *testing.T) {
	if got := string(Serialize(core.Real(-0.0))); got != "0" {
		t.Fatalf("got %q", got)
	}
}
