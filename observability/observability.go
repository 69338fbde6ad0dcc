package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

type Field interface {
	Key() string
	Value() interface{}
}

type stringField struct{ key, val string }

func (f stringField) Key() string        { return f.key }
func (f stringField) Value() interface{} { return f.val }

type intField struct {
	key string
	val int
}

func (f intField) Key() string        { return f.key }
func (f intField) Value() interface{} { return f.val }

type int64Field struct {
	key string
	val int64
}

func (f int64Field) Key() string        { return f.key }
func (f int64Field) Value() interface{} { return f.val }

type float64Field struct {
	key string
	val float64
}

func (f float64Field) Key() string        { return f.key }
func (f float64Field) Value() interface{} { return f.val }

type errorField struct {
	key string
	err error
}

func (f errorField) Key() string        { return f.key }
func (f errorField) Value() interface{} { return f.err }

func String(key, value string) Field          { return stringField{key, value} }
func Int(key string, value int) Field         { return intField{key, value} }
func Int64(key string, value int64) Field     { return int64Field{key, value} }
func Float64(key string, value float64) Field { return float64Field{key, value} }
func Error(key string, err error) Field       { return errorField{key, err} }

type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}
func (NopLogger) With(...Field) Logger   { return NopLogger{} }

// Level controls which messages a TextLogger emits.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// textLogger writes one line per message: "LEVEL msg key=value ...".
// Bound fields come first, call-site fields after, each group sorted by key
// so output is stable.
type textLogger struct {
	mu    *sync.Mutex
	w     io.Writer
	min   Level
	bound []Field
}

// NewTextLogger returns a Logger writing human-readable lines to w.
func NewTextLogger(w io.Writer, min Level) Logger {
	return &textLogger{mu: &sync.Mutex{}, w: w, min: min}
}

func (l *textLogger) Debug(msg string, fields ...Field) { l.log(LevelDebug, "DEBUG", msg, fields) }
func (l *textLogger) Info(msg string, fields ...Field)  { l.log(LevelInfo, "INFO", msg, fields) }
func (l *textLogger) Warn(msg string, fields ...Field)  { l.log(LevelWarn, "WARN", msg, fields) }
func (l *textLogger) Error(msg string, fields ...Field) { l.log(LevelError, "ERROR", msg, fields) }

func (l *textLogger) With(fields ...Field) Logger {
	bound := make([]Field, 0, len(l.bound)+len(fields))
	bound = append(bound, l.bound...)
	bound = append(bound, fields...)
	return &textLogger{mu: l.mu, w: l.w, min: l.min, bound: bound}
}

func (l *textLogger) log(lvl Level, tag, msg string, fields []Field) {
	if lvl < l.min {
		return
	}
	var b strings.Builder
	b.WriteString(tag)
	b.WriteByte(' ')
	b.WriteString(msg)
	writeFields(&b, l.bound)
	writeFields(&b, fields)
	b.WriteByte('\n')
	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.w, b.String())
}

func writeFields(b *strings.Builder, fields []Field) {
	if len(fields) == 0 {
		return
	}
	sorted := make([]Field, len(fields))
	copy(sorted, fields)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Key() < sorted[j].Key() })
	for _, f := range sorted {
		fmt.Fprintf(b, " %s=%v", f.Key(), f.Value())
	}
}
