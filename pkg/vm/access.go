package vm

import "fmt"

type AccessorCallKind uint8

const (
	GetterCall AccessorCallKind = iota
	SetterCall
)

func (k AccessorCallKind) String() string {
	if k == SetterCall {
		return "setter"
	}
	return "getter"
}

// AccessorCall is returned by Get and Set when the property resolved to an
// accessor function. The object model never calls language code itself;
// the caller performs the call, usually through an Invoker.
type AccessorCall struct {
	Kind     AccessorCallKind
	Function Value
	Receiver Value
	Args     []Value
}

// Invoker calls a function value. The evaluator implements it for compiled
// functions; NativeInvoker covers host functions.
type Invoker interface {
	Call(fn Value, this Value, args []Value) (Value, error)
}

// NativeInvoker calls NativeFunction values and nothing else.
type NativeInvoker struct{}

func (NativeInvoker) Call(fn Value, this Value, args []Value) (Value, error) {
	if !fn.IsCallable() {
		return Undefined, fmt.Errorf("%s is not a function", fn.Inspect())
	}
	return fn.AsNativeFunction().Fn(this, args)
}

// Perform runs the call through inv.
func (c *AccessorCall) Perform(inv Invoker) (Value, error) {
	return inv.Call(c.Function, c.Receiver, c.Args)
}

// GetValue is Get followed by the getter call, if one is required.
func GetValue(inv Invoker, o *Object, key PropertyKey) (Value, error) {
	v, call := o.Get(key)
	if call == nil {
		return v, nil
	}
	return call.Perform(inv)
}

// SetValue is Set followed by the setter call, if one is required. A setter
// that returns an error makes the assignment fail.
func SetValue(inv Invoker, o *Object, key PropertyKey, v Value) (bool, error) {
	ok, call := o.Set(key, v)
	if call == nil {
		return ok, nil
	}
	if _, err := call.Perform(inv); err != nil {
		return false, err
	}
	return true, nil
}
