// Package emf implements the runtime meta-object layer: MetaTypes, Properties
// and Objects. A MetaType describes a class, a Property describes one typed
// slot (attribute, enumeration or link) on instances of a class, and an
// Object is one instance with an identity and a slot table.
package emf

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ValueKind identifies which of the closed set of primitive attribute types
// a Value holds. Keeping this a closed tag (instead of one Property type per
// Go type parameter) keeps the Object slot table monomorphic.
type ValueKind int

const (
	VInvalid ValueKind = iota
	VBool
	VInt
	VFloat
	VDouble
	VString
	VDateTime
	VIntList
	VFloatList
	VDoubleList
)

func (k ValueKind) String() string {
	switch k {
	case VBool:
		return "bool"
	case VInt:
		return "int"
	case VFloat:
		return "float"
	case VDouble:
		return "double"
	case VString:
		return "string"
	case VDateTime:
		return "datetime"
	case VIntList:
		return "intlist"
	case VFloatList:
		return "floatlist"
	case VDoubleList:
		return "doublelist"
	default:
		return "invalid"
	}
}

// Value is a closed tagged union over the attribute value types the spec
// allows: bool, int, float, double, string, datetime and lists of the
// numeric primitives.
type Value struct {
	Kind ValueKind
	b    bool
	i    int64
	f32  float32
	f64  float64
	s    string
	t    time.Time
	il   []int64
	fl   []float32
	dl   []float64
}

func BoolValue(b bool) Value       { return Value{Kind: VBool, b: b} }
func IntValue(i int64) Value       { return Value{Kind: VInt, i: i} }
func FloatValue(f float32) Value   { return Value{Kind: VFloat, f32: f} }
func DoubleValue(f float64) Value  { return Value{Kind: VDouble, f64: f} }
func StringValue(s string) Value   { return Value{Kind: VString, s: s} }
func DateTimeValue(t time.Time) Value {
	return Value{Kind: VDateTime, t: t}
}
func IntListValue(v []int64) Value    { return Value{Kind: VIntList, il: append([]int64{}, v...)} }
func FloatListValue(v []float32) Value {
	return Value{Kind: VFloatList, fl: append([]float32{}, v...)}
}
func DoubleListValue(v []float64) Value {
	return Value{Kind: VDoubleList, dl: append([]float64{}, v...)}
}

func (v Value) Bool() bool           { return v.b }
func (v Value) Int() int64           { return v.i }
func (v Value) Float() float32       { return v.f32 }
func (v Value) Double() float64      { return v.f64 }
func (v Value) String() string       { return v.s }
func (v Value) DateTime() time.Time  { return v.t }
func (v Value) IntList() []int64     { return v.il }
func (v Value) FloatList() []float32 { return v.fl }
func (v Value) DoubleList() []float64 { return v.dl }

// Equal reports whether v and o hold the same kind and value.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case VBool:
		return v.b == o.b
	case VInt:
		return v.i == o.i
	case VFloat:
		return v.f32 == o.f32
	case VDouble:
		return v.f64 == o.f64
	case VString:
		return v.s == o.s
	case VDateTime:
		return v.t.Equal(o.t)
	case VIntList:
		return int64SliceEqual(v.il, o.il)
	case VFloatList:
		return float32SliceEqual(v.fl, o.fl)
	case VDoubleList:
		return float64SliceEqual(v.dl, o.dl)
	default:
		return true
	}
}

// Compare orders two Values of the same Kind, used to keep map/multimap link
// properties in key order (§3, "Link-to-many-map ... Order: key order"). Panics
// if the kinds differ or the kind has no natural order (caller's bug, not a
// runtime condition).
func (v Value) Compare(o Value) int {
	if v.Kind != o.Kind {
		panic(fmt.Sprintf("emf: cannot compare Values of kinds %v and %v", v.Kind, o.Kind))
	}
	switch v.Kind {
	case VBool:
		if v.b == o.b {
			return 0
		}
		if !v.b {
			return -1
		}
		return 1
	case VInt:
		switch {
		case v.i < o.i:
			return -1
		case v.i > o.i:
			return 1
		default:
			return 0
		}
	case VFloat:
		switch {
		case v.f32 < o.f32:
			return -1
		case v.f32 > o.f32:
			return 1
		default:
			return 0
		}
	case VDouble:
		switch {
		case v.f64 < o.f64:
			return -1
		case v.f64 > o.f64:
			return 1
		default:
			return 0
		}
	case VString:
		return strings.Compare(v.s, o.s)
	case VDateTime:
		switch {
		case v.t.Before(o.t):
			return -1
		case v.t.After(o.t):
			return 1
		default:
			return 0
		}
	default:
		panic(fmt.Sprintf("emf: Value of kind %v has no natural order", v.Kind))
	}
}

func int64SliceEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func float32SliceEqual(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func float64SliceEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// dateTimeLayout is the wire format mandated by §4.2.1: yyyy/MM/dd hh:mm:ss.
const dateTimeLayout = "2006/01/02 15:04:05"

// Text renders v using the per-kind text conventions from §4.2.1.
func (v Value) Text() string {
	switch v.Kind {
	case VBool:
		if v.b {
			return "true"
		}
		return "false"
	case VInt:
		return strconv.FormatInt(v.i, 10)
	case VFloat:
		return formatFloatInf(float64(v.f32), 32)
	case VDouble:
		return formatFloatInf(v.f64, 64)
	case VString:
		return v.s
	case VDateTime:
		return v.t.Format(dateTimeLayout)
	case VIntList:
		parts := make([]string, len(v.il))
		for i, x := range v.il {
			parts[i] = strconv.FormatInt(x, 10)
		}
		return strings.Join(parts, " ")
	case VFloatList:
		parts := make([]string, len(v.fl))
		for i, x := range v.fl {
			parts[i] = formatFloatInf(float64(x), 32)
		}
		return strings.Join(parts, " ")
	case VDoubleList:
		parts := make([]string, len(v.dl))
		for i, x := range v.dl {
			parts[i] = formatFloatInf(x, 64)
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

func formatFloatInf(f float64, bitSize int) string {
	if math.IsInf(f, 1) {
		return "+∞"
	}
	if math.IsInf(f, -1) {
		return "-∞"
	}
	return strconv.FormatFloat(f, 'g', -1, bitSize)
}

// ParseValue converts text into a Value of the given kind, following the
// §4.2.1 text conventions. An empty text yields the provided default.
func ParseValue(kind ValueKind, text string, def Value) (Value, error) {
	text = strings.TrimSpace(text)
	switch kind {
	case VBool:
		if text == "" {
			return def, nil
		}
		switch text {
		case "true":
			return BoolValue(true), nil
		case "false":
			return BoolValue(false), nil
		default:
			return Value{}, fmt.Errorf("invalid bool literal: %q", text)
		}
	case VInt:
		if text == "" {
			return def, nil
		}
		if text == "-∞" {
			return IntValue(math.MinInt64), nil
		}
		if text == "+∞" {
			return IntValue(math.MaxInt64), nil
		}
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid int literal: %q", text)
		}
		return IntValue(i), nil
	case VFloat:
		if text == "" {
			return def, nil
		}
		f, err := parseFloatInf(text, 32)
		if err != nil {
			return Value{}, err
		}
		return FloatValue(float32(f)), nil
	case VDouble:
		if text == "" {
			return def, nil
		}
		f, err := parseFloatInf(text, 64)
		if err != nil {
			return Value{}, err
		}
		return DoubleValue(f), nil
	case VString:
		if text == "" {
			return def, nil
		}
		// Decoded strings get the same ';' -> '-' replacement that
		// AttributeProperty.UpdateValue applies, so both paths store alike.
		return StringValue(strings.ReplaceAll(text, ";", "-")), nil
	case VDateTime:
		if text == "" {
			return def, nil
		}
		t, err := time.Parse(dateTimeLayout, text)
		if err != nil {
			return Value{}, fmt.Errorf("invalid datetime literal: %q: %w", text, err)
		}
		return DateTimeValue(t), nil
	case VIntList:
		if text == "" {
			return def, nil
		}
		var out []int64
		for _, tok := range strings.Fields(text) {
			i, err := strconv.ParseInt(tok, 10, 64)
			if err != nil {
				return Value{}, fmt.Errorf("invalid int in list: %q", tok)
			}
			out = append(out, i)
		}
		return IntListValue(out), nil
	case VFloatList:
		if text == "" {
			return def, nil
		}
		var out []float32
		for _, tok := range strings.Fields(text) {
			f, err := parseFloatInf(tok, 32)
			if err != nil {
				return Value{}, err
			}
			out = append(out, float32(f))
		}
		return FloatListValue(out), nil
	case VDoubleList:
		if text == "" {
			return def, nil
		}
		var out []float64
		for _, tok := range strings.Fields(text) {
			f, err := parseFloatInf(tok, 64)
			if err != nil {
				return Value{}, err
			}
			out = append(out, f)
		}
		return DoubleListValue(out), nil
	default:
		return Value{}, fmt.Errorf("unsupported value kind: %v", kind)
	}
}

func parseFloatInf(text string, bitSize int) (float64, error) {
	switch text {
	case "-∞":
		return math.Inf(-1), nil
	case "+∞":
		return math.Inf(1), nil
	}
	f, err := strconv.ParseFloat(text, bitSize)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric literal: %q", text)
	}
	return f, nil
}
