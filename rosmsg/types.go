package rosmsg

import (
	"math"
	"strconv"
)

// ScalarKind identifies the primitive category of a decoded leaf value.
type ScalarKind uint8

const (
	KindInt ScalarKind = iota
	KindUint
	KindFloat
	KindBool
	KindString
)

func (k ScalarKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	}
	return "unknown"
}

// Scalar is a single decoded primitive value tagged with its kind.
// The zero value is the int 0.
type Scalar struct {
	kind ScalarKind
	i    int64
	u    uint64
	f    float64
	b    bool
	s    string
}

func IntScalar(v int64) Scalar     { return Scalar{kind: KindInt, i: v} }
func UintScalar(v uint64) Scalar   { return Scalar{kind: KindUint, u: v} }
func FloatScalar(v float64) Scalar { return Scalar{kind: KindFloat, f: v} }
func BoolScalar(v bool) Scalar     { return Scalar{kind: KindBool, b: v} }
func StringScalar(v string) Scalar { return Scalar{kind: KindString, s: v} }

func (s Scalar) Kind() ScalarKind { return s.kind }

func (s Scalar) Int() int64    { return s.i }
func (s Scalar) Uint() uint64  { return s.u }
func (s Scalar) Float() float64 { return s.f }
func (s Scalar) Bool() bool    { return s.b }
func (s Scalar) Str() string   { return s.s }

// AsFloat converts numeric scalars to float64. The second return is false
// for bool and string scalars.
func (s Scalar) AsFloat() (float64, bool) {
	switch s.kind {
	case KindInt:
		return float64(s.i), true
	case KindUint:
		return float64(s.u), true
	case KindFloat:
		return s.f, true
	}
	return 0, false
}

// String renders the scalar the way it appears in a CSV cell. Floats keep
// a trailing ".0" when integral, bools render as True/False and NaN renders
// as an empty cell, matching the exporter's original table output.
func (s Scalar) String() string {
	switch s.kind {
	case KindInt:
		return strconv.FormatInt(s.i, 10)
	case KindUint:
		return strconv.FormatUint(s.u, 10)
	case KindBool:
		if s.b {
			return "True"
		}
		return "False"
	case KindString:
		return s.s
	case KindFloat:
		return formatFloat(s.f)
	}
	return ""
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	// Scientific notation from 1e16 up and below 1e-4, fixed in between.
	// strconv's shortest 'g' form switches to an exponent far earlier.
	if abs := math.Abs(f); abs >= 1e16 || (abs != 0 && abs < 1e-4) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	out := strconv.FormatFloat(f, 'f', -1, 64)
	for i := 0; i < len(out); i++ {
		if out[i] == '.' {
			return out
		}
	}
	return out + ".0"
}

// ValueKind identifies which variant a Value holds.
type ValueKind uint8

const (
	ValueScalar ValueKind = iota
	ValueScalarArray
	ValueMessage
	ValueMessageArray
	ValueUnsupported
)

// Value is one decoded field value. Exactly one variant is populated,
// selected by Kind. Unsupported values carry only the declared type name
// so diagnostics can report what was skipped.
type Value struct {
	Kind     ValueKind
	Scalar   Scalar
	Scalars  []Scalar
	Msg      *Message
	Msgs     []*Message
	TypeName string
}

// Field is a named value inside a decoded message.
type Field struct {
	Name  string
	Value Value
}

// Message is a decoded record. Fields appear in declaration order.
// Bare is set instead of Fields when the payload is a lone primitive
// rather than a structure.
type Message struct {
	Type   string
	Fields []Field
	Bare   *Scalar
}
