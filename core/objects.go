// Package core defines the raw PDF object model shared by the parser,
// the incremental writer and the stamping layer. Values mirror the PDF
// object kinds directly; nothing here resolves indirect references.
package core

// Object is any PDF object: Name, Integer, Real, Boolean, Null, String,
// Array, Dict, Stream or Ref.
type Object interface {
	pdfObject()
}

type Name string

type Integer int64

type Real float64

type Boolean bool

type Null struct{}

// String is a PDF string. Hex records whether the source notation was
// hexadecimal so round-trips keep the original flavor.
type String struct {
	Bytes []byte
	Hex   bool
}

type Array []Object

type Dict map[Name]Object

// Stream couples a stream dictionary with its raw (still encoded) data.
type Stream struct {
	Dict Dict
	Raw  []byte
}

// Ref is an indirect reference, "Num Gen R".
type Ref struct {
	Num int
	Gen int
}

func (Name) pdfObject()    {}
func (Integer) pdfObject() {}
func (Real) pdfObject()    {}
func (Boolean) pdfObject() {}
func (Null) pdfObject()    {}
func (String) pdfObject()  {}
func (Array) pdfObject()   {}
func (Dict) pdfObject()    {}
func (*Stream) pdfObject() {}
func (Ref) pdfObject()     {}

// Float returns the numeric value of an Integer or Real.
func Float(o Object) (float64, bool) {
	switch v := o.(type) {
	case Integer:
		return float64(v), true
	case Real:
		return float64(v), true
	}
	return 0, false
}

// Int returns the value of an Integer.
func Int(o Object) (int64, bool) {
	if v, ok := o.(Integer); ok {
		return int64(v), true
	}
	return 0, false
}

func (d Dict) Get(key Name) (Object, bool) {
	o, ok := d[key]
	return o, ok
}

func (d Dict) GetName(key Name) (Name, bool) {
	n, ok := d[key].(Name)
	return n, ok
}

func (d Dict) GetInt(key Name) (int64, bool) {
	return Int(d[key])
}

func (d Dict) GetFloat(key Name) (float64, bool) {
	return Float(d[key])
}

func (d Dict) GetArray(key Name) (Array, bool) {
	a, ok := d[key].(Array)
	return a, ok
}

func (d Dict) GetDict(key Name) (Dict, bool) {
	sub, ok := d[key].(Dict)
	return sub, ok
}

func (d Dict) GetRef(key Name) (Ref, bool) {
	r, ok := d[key].(Ref)
	return r, ok
}

// Clone returns a shallow copy of the dictionary. Values are shared;
// callers that mutate nested containers must clone those themselves.
func (d Dict) Clone() Dict {
	out := make(Dict, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Rect is an axis-aligned rectangle in default user space units.
type Rect struct {
	LLX, LLY, URX, URY float64
}

func (r Rect) Width() float64  { return r.URX - r.LLX }
func (r Rect) Height() float64 { return r.URY - r.LLY }

// RectFromArray reads a 4-element number array, normalizing so that
// LLX <= URX and LLY <= URY.
func RectFromArray(a Array) (Rect, bool) {
	if len(a) != 4 {
		return Rect{}, false
	}
	var v [4]float64
	for i, o := range a {
		f, ok := Float(o)
		if !ok {
			return Rect{}, false
		}
		v[i] = f
	}
	r := Rect{LLX: v[0], LLY: v[1], URX: v[2], URY: v[3]}
	if r.LLX > r.URX {
		r.LLX, r.URX = r.URX, r.LLX
	}
	if r.LLY > r.URY {
		r.LLY, r.URY = r.URY, r.LLY
	}
	return r, true
}

// Array returns the rectangle as a PDF array [llx lly urx ury].
func (r Rect) Array() Array {
	return Array{Real(r.LLX), Real(r.LLY), Real(r.URX), Real(r.URY)}
}
