package vm

import (
	"fmt"
	"math"
	"strconv"
	"unsafe"

	"objmodel/pkg/intern"
)

// cleanExponentialFormat removes leading zeros from exponent to match JS format
// e.g., "1e-07" -> "1e-7", "1e+25" -> "1e+25"
func cleanExponentialFormat(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == 'e' || s[i] == 'E' {
			if i+1 < len(s) && (s[i+1] == '+' || s[i+1] == '-') {
				sign := s[i+1]
				expStart := i + 2
				j := expStart
				for j < len(s) && s[j] == '0' {
					j++
				}
				if j >= len(s) {
					return s[:i+2] + "0"
				}
				return s[:i+1] + string(sign) + s[j:]
			}
			break
		}
	}
	return s
}

type ValueType uint8

const (
	TypeUndefined ValueType = iota
	TypeNull

	TypeString
	TypeSymbol

	TypeFloatNumber
	TypeIntegerNumber

	TypeBoolean

	TypeNativeFunction

	TypeObject
)

// String returns a human-readable string representation of the ValueType
func (vt ValueType) String() string {
	switch vt {
	case TypeNull:
		return "null"
	case TypeUndefined:
		return "undefined"
	case TypeString:
		return "string"
	case TypeSymbol:
		return "symbol"
	case TypeFloatNumber, TypeIntegerNumber:
		return "number"
	case TypeBoolean:
		return "boolean"
	case TypeNativeFunction:
		return "native function"
	case TypeObject:
		return "object"
	default:
		return "unknown"
	}
}

type StringObject struct {
	value string
}

// NativeFunction is a host callable. Accessor getters and setters stored in
// descriptors are usually of this type when installed from Go.
type NativeFunction struct {
	Name  string
	Arity int
	Fn    func(this Value, args []Value) (Value, error)
}

type Value struct {
	typ     ValueType
	payload uint64
	obj     unsafe.Pointer
}

var (
	Undefined = Value{typ: TypeUndefined}
	Null      = Value{typ: TypeNull}
	True      = Value{typ: TypeBoolean, payload: 1}
	False     = Value{typ: TypeBoolean, payload: 0}
	NaN       = Value{typ: TypeFloatNumber, payload: math.Float64bits(math.NaN())}
)

func NumberValue(value float64) Value {
	return Value{typ: TypeFloatNumber, payload: math.Float64bits(value)}
}

func IntegerValue(value int32) Value {
	return Value{typ: TypeIntegerNumber, payload: uint64(int64(value))}
}

func BooleanValue(value bool) Value {
	if value {
		return True
	}
	return False
}

func NewString(value string) Value {
	return Value{typ: TypeString, obj: unsafe.Pointer(&StringObject{value: value})}
}

// NewSymbolValue wraps an interned symbol identity.
func NewSymbolValue(sym *intern.Symbol) Value {
	if sym == nil {
		panic("vm: nil symbol")
	}
	return Value{typ: TypeSymbol, obj: unsafe.Pointer(sym)}
}

func NewNativeFunction(arity int, name string, fn func(this Value, args []Value) (Value, error)) Value {
	return Value{typ: TypeNativeFunction, obj: unsafe.Pointer(&NativeFunction{Name: name, Arity: arity, Fn: fn})}
}

// NewValueFromObject wraps an object record. A nil object yields Null.
func NewValueFromObject(o *Object) Value {
	if o == nil {
		return Null
	}
	return Value{typ: TypeObject, obj: unsafe.Pointer(o)}
}

func (v Value) Type() ValueType {
	return v.typ
}

func (v Value) IsUndefined() bool {
	return v.typ == TypeUndefined
}

func (v Value) IsNull() bool {
	return v.typ == TypeNull
}

func (v Value) IsNumber() bool {
	return v.typ == TypeFloatNumber || v.typ == TypeIntegerNumber
}

func (v Value) IsString() bool {
	return v.typ == TypeString
}

func (v Value) IsSymbol() bool {
	return v.typ == TypeSymbol
}

func (v Value) IsBoolean() bool {
	return v.typ == TypeBoolean
}

func (v Value) IsObject() bool {
	return v.typ == TypeObject
}

func (v Value) IsCallable() bool {
	return v.typ == TypeNativeFunction
}

func (v Value) TypeName() string {
	switch v.typ {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBoolean:
		return "boolean"
	case TypeFloatNumber, TypeIntegerNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeSymbol:
		return "symbol"
	case TypeNativeFunction:
		return "function"
	case TypeObject:
		return "object"
	default:
		return fmt.Sprintf("<unknown type: %d>", v.typ)
	}
}

func (v Value) AsFloat() float64 {
	if v.typ != TypeFloatNumber {
		panic("value is not a float")
	}
	return math.Float64frombits(v.payload)
}

func (v Value) AsInteger() int32 {
	if v.typ != TypeIntegerNumber {
		panic("value is not an integer")
	}
	return int32(v.payload)
}

func (v Value) AsBoolean() bool {
	if v.typ != TypeBoolean {
		panic("value is not a boolean")
	}
	return v.payload != 0
}

func (v Value) AsString() string {
	if v.typ != TypeString {
		panic("value is not a string")
	}
	return (*StringObject)(v.obj).value
}

func (v Value) AsSymbol() *intern.Symbol {
	if v.typ != TypeSymbol {
		panic("value is not a symbol")
	}
	return (*intern.Symbol)(v.obj)
}

func (v Value) AsObject() *Object {
	if v.typ != TypeObject {
		panic("value is not an object")
	}
	return (*Object)(v.obj)
}

func (v Value) AsNativeFunction() *NativeFunction {
	if v.typ != TypeNativeFunction {
		panic("value is not a native function")
	}
	return (*NativeFunction)(v.obj)
}

// ToFloat returns the numeric payload of a number value. Coercion of other
// types belongs to the evaluator; they report NaN here.
func (v Value) ToFloat() float64 {
	switch v.typ {
	case TypeIntegerNumber:
		return float64(v.AsInteger())
	case TypeFloatNumber:
		return v.AsFloat()
	default:
		return math.NaN()
	}
}

func (v Value) IsFalsey() bool {
	switch v.typ {
	case TypeNull, TypeUndefined:
		return true
	case TypeBoolean:
		return !v.AsBoolean()
	case TypeFloatNumber:
		f := v.AsFloat()
		return f == 0 || math.IsNaN(f)
	case TypeIntegerNumber:
		return v.AsInteger() == 0
	case TypeString:
		return v.AsString() == ""
	default:
		return false
	}
}

// IsTruthy checks if the value is considered truthy (opposite of IsFalsey).
func (v Value) IsTruthy() bool {
	return !v.IsFalsey()
}

// --- Equality ---

// SameValue implements the SameValue comparison: no coercion, NaN equals
// NaN, +0 and -0 are different. Reference types compare by identity.
func SameValue(a, b Value) bool {
	if a.IsNumber() && b.IsNumber() {
		af, bf := a.ToFloat(), b.ToFloat()
		if math.IsNaN(af) && math.IsNaN(bf) {
			return true
		}
		if af == 0 && bf == 0 {
			return math.Signbit(af) == math.Signbit(bf)
		}
		return af == bf
	}
	if a.typ != b.typ {
		return false
	}
	switch a.typ {
	case TypeUndefined, TypeNull:
		return true
	case TypeBoolean:
		return a.payload == b.payload
	case TypeString:
		return a.AsString() == b.AsString()
	case TypeSymbol, TypeObject, TypeNativeFunction:
		return a.obj == b.obj
	default:
		panic(fmt.Sprintf("Unhandled type in SameValue comparison: %v", a.typ))
	}
}

// SameAs is the method form of SameValue.
func (v Value) SameAs(other Value) bool {
	return SameValue(v, other)
}

// StrictlyEquals compares two values using the ECMAScript Strict Equality Comparison (`===`).
// Types must match, no coercion. NaN !== NaN. +0 === -0.
func (v Value) StrictlyEquals(other Value) bool {
	if v.IsNumber() && other.IsNumber() {
		vf := v.ToFloat()
		of := other.ToFloat()
		if math.IsNaN(vf) || math.IsNaN(of) {
			return false
		}
		return vf == of
	}
	return SameValue(v, other)
}

// --- Display ---

func formatNumber(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	if f == 0 && math.Signbit(f) {
		return "0"
	}
	absF := math.Abs(f)
	if absF != 0 && (absF < 1e-6 || absF >= 1e21) {
		return cleanExponentialFormat(strconv.FormatFloat(f, 'e', -1, 64))
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ToString renders primitives the way the language would print them. Objects
// and functions get a placeholder; real ToString lives in the evaluator.
func (v Value) ToString() string {
	switch v.typ {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBoolean:
		if v.AsBoolean() {
			return "true"
		}
		return "false"
	case TypeIntegerNumber:
		return strconv.FormatInt(int64(v.AsInteger()), 10)
	case TypeFloatNumber:
		return formatNumber(v.AsFloat())
	case TypeString:
		return v.AsString()
	case TypeSymbol:
		return v.AsSymbol().String()
	case TypeNativeFunction:
		return fmt.Sprintf("function %s() { [native code] }", v.AsNativeFunction().Name)
	case TypeObject:
		return "[object Object]"
	default:
		return fmt.Sprintf("<unknown type: %d>", v.typ)
	}
}

// Inspect is ToString for diagnostics: strings are quoted and -0 keeps its sign.
func (v Value) Inspect() string {
	switch v.typ {
	case TypeString:
		return strconv.Quote(v.AsString())
	case TypeFloatNumber:
		if f := v.AsFloat(); f == 0 && math.Signbit(f) {
			return "-0"
		}
		return formatNumber(v.AsFloat())
	case TypeNativeFunction:
		return fmt.Sprintf("[Function: %s]", v.AsNativeFunction().Name)
	case TypeObject:
		return fmt.Sprintf("[object %p]", v.obj)
	default:
		return v.ToString()
	}
}

func (v Value) String() string {
	return v.Inspect()
}
