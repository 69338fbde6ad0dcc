// Package writer appends incremental updates to existing PDF files.
// Serialization is deterministic: dictionary keys are emitted sorted and
// numbers use a canonical decimal form, so identical inputs produce
// byte-identical output.
package writer

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/mkoehler/duplexnum/core"
)

// Serialize renders a direct object in PDF syntax.
func Serialize(obj core.Object) []byte {
	var buf bytes.Buffer
	writeObject(&buf, obj)
	return buf.Bytes()
}

func writeObject(buf *bytes.Buffer, obj core.Object) {
	switch v := obj.(type) {
	case core.Name:
		buf.WriteByte('/')
		writeNameBody(buf, string(v))
	case core.Integer:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case core.Real:
		buf.WriteString(formatReal(float64(v)))
	case core.Boolean:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case core.Null:
		buf.WriteString("null")
	case core.String:
		if v.Hex {
			buf.WriteByte('<')
			for _, b := range v.Bytes {
				fmt.Fprintf(buf, "%02X", b)
			}
			buf.WriteByte('>')
		} else {
			writeLiteralString(buf, v.Bytes)
		}
	case core.Array:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(' ')
			}
			writeObject(buf, item)
		}
		buf.WriteByte(']')
	case core.Dict:
		writeDict(buf, v)
	case *core.Stream:
		// /Length always reflects the actual payload
		dict := v.Dict.Clone()
		dict["Length"] = core.Integer(len(v.Raw))
		writeDict(buf, dict)
		buf.WriteString("\nstream\n")
		buf.Write(v.Raw)
		buf.WriteString("\nendstream")
	case core.Ref:
		fmt.Fprintf(buf, "%d %d R", v.Num, v.Gen)
	case nil:
		buf.WriteString("null")
	default:
		panic(fmt.Sprintf("writer: unknown object type %T", obj))
	}
}

func writeDict(buf *bytes.Buffer, d core.Dict) {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	buf.WriteString("<<")
	for _, k := range keys {
		buf.WriteByte('/')
		writeNameBody(buf, k)
		buf.WriteByte(' ')
		writeObject(buf, d[core.Name(k)])
	}
	buf.WriteString(">>")
}

// writeNameBody hex-escapes bytes a name cannot carry verbatim.
func writeNameBody(buf *bytes.Buffer, name string) {
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c <= 0x20 || c >= 0x7f || c == '#' || isDelimiterByte(c) {
			fmt.Fprintf(buf, "#%02X", c)
			continue
		}
		buf.WriteByte(c)
	}
}

func writeLiteralString(buf *bytes.Buffer, data []byte) {
	buf.WriteByte('(')
	for _, c := range data {
		switch c {
		case '(', ')', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if c < 0x20 || c >= 0x7f {
				fmt.Fprintf(buf, `\%03o`, c)
			} else {
				buf.WriteByte(c)
			}
		}
	}
	buf.WriteByte(')')
}

// formatReal uses the shortest decimal form, never exponent notation.
func formatReal(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	// very small magnitudes keep a plain zero
	if s == "-0" {
		return "0"
	}
	return s
}

func isDelimiterByte(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}
