package vm

import (
	"fmt"

	"github.com/emirpasic/gods/maps/linkedhashmap"

	"objmodel/pkg/intern"
)

const debugObject = false

// Object is an ordinary object record. It is mutated only through the
// internal methods below and is not safe for concurrent use.
//
// String and symbol keyed properties live in separate insertion-ordered
// tables. Every stored descriptor is a complete DataDescriptor or
// AccessorDescriptor.
type Object struct {
	extensible bool
	prototype  *Object            // nil is the null prototype
	strings    *linkedhashmap.Map // intern.Atom -> PropertyDescriptor
	symbols    *linkedhashmap.Map // *intern.Symbol -> PropertyDescriptor, allocated on first use
}

// NewObject creates an empty extensible object. A nil proto means null.
func NewObject(proto *Object) *Object {
	return &Object{
		extensible: true,
		prototype:  proto,
		strings:    linkedhashmap.New(),
	}
}

// Value wraps the object as a language value.
func (o *Object) Value() Value {
	return NewValueFromObject(o)
}

// --- table access ---

func (o *Object) lookup(key PropertyKey) (PropertyDescriptor, bool) {
	var raw interface{}
	var found bool
	if key.IsSymbol() {
		if o.symbols == nil {
			return nil, false
		}
		raw, found = o.symbols.Get(key.Symbol())
	} else {
		raw, found = o.strings.Get(key.Atom())
	}
	if !found {
		return nil, false
	}
	return residentDescriptor(raw), true
}

// residentDescriptor enforces that the tables only hold data or accessor
// descriptors. Anything else is a bug in this package.
func residentDescriptor(raw interface{}) PropertyDescriptor {
	switch d := raw.(type) {
	case DataDescriptor:
		return d
	case AccessorDescriptor:
		return d
	default:
		panic(fmt.Sprintf("vm: unclassifiable resident descriptor %T", raw))
	}
}

// insertProperty stores a complete descriptor, keeping the position of an
// existing key.
func (o *Object) insertProperty(key PropertyKey, desc PropertyDescriptor) {
	desc = residentDescriptor(desc)
	if debugObject {
		fmt.Printf("[Object] insert %v = %#v\n", key, desc)
	}
	if key.IsSymbol() {
		if o.symbols == nil {
			o.symbols = linkedhashmap.New()
		}
		o.symbols.Put(key.Symbol(), desc)
		return
	}
	o.strings.Put(key.Atom(), desc)
}

func (o *Object) removeProperty(key PropertyKey) {
	if debugObject {
		fmt.Printf("[Object] remove %v\n", key)
	}
	if key.IsSymbol() {
		if o.symbols != nil {
			o.symbols.Remove(key.Symbol())
		}
		return
	}
	o.strings.Remove(key.Atom())
}

// --- extensibility ---

func (o *Object) IsExtensible() bool {
	return o.extensible
}

// PreventExtensions always succeeds for an ordinary object.
func (o *Object) PreventExtensions() bool {
	o.extensible = false
	return true
}

// --- prototype chain ---

// GetPrototypeOf returns the prototype, or nil for null.
func (o *Object) GetPrototypeOf() *Object {
	return o.prototype
}

// PrototypeValue returns the prototype as a language value (object or null).
func (o *Object) PrototypeValue() Value {
	return NewValueFromObject(o.prototype)
}

// SetPrototypeOf replaces the prototype. It refuses to change the prototype
// of a non-extensible object and refuses any link that would make the chain
// cyclic; both failures leave the object untouched.
func (o *Object) SetPrototypeOf(proto *Object) bool {
	if proto == o.prototype {
		return true
	}
	if !o.extensible {
		return false
	}
	for p := proto; p != nil; p = p.prototype {
		if p == o {
			return false
		}
	}
	o.prototype = proto
	return true
}

// --- property lookup ---

// GetOwnProperty returns a copy of the resident descriptor for key.
func (o *Object) GetOwnProperty(key PropertyKey) (PropertyDescriptor, bool) {
	return o.lookup(key)
}

func (o *Object) HasOwnProperty(key PropertyKey) bool {
	_, ok := o.lookup(key)
	return ok
}

// HasProperty reports whether key is an own or inherited property.
func (o *Object) HasProperty(key PropertyKey) bool {
	for cur := o; cur != nil; cur = cur.prototype {
		if _, ok := cur.lookup(key); ok {
			return true
		}
	}
	return false
}

// Get returns the value for key, searching the prototype chain. When the
// property is an accessor with a getter, Get does not run it: it returns
// Undefined and an AccessorCall the caller must perform with this object as
// receiver.
func (o *Object) Get(key PropertyKey) (Value, *AccessorCall) {
	return o.get(key, o.Value())
}

func (o *Object) get(key PropertyKey, receiver Value) (Value, *AccessorCall) {
	for cur := o; cur != nil; cur = cur.prototype {
		desc, ok := cur.lookup(key)
		if !ok {
			continue
		}
		switch d := desc.(type) {
		case DataDescriptor:
			return d.Value, nil
		case AccessorDescriptor:
			getter, ok := d.Getter()
			if !ok {
				return Undefined, nil
			}
			return Undefined, &AccessorCall{Kind: GetterCall, Function: getter, Receiver: receiver}
		}
	}
	return Undefined, nil
}

// Set assigns v to key with this object as receiver.
//
// An own or inherited writable data property (or none at all) leads to a
// data definition on this object; a non-writable one fails. An own or
// inherited accessor with a setter yields an AccessorCall for the caller to
// perform, and one without a setter fails.
func (o *Object) Set(key PropertyKey, v Value) (bool, *AccessorCall) {
	var found PropertyDescriptor
	for cur := o; cur != nil; cur = cur.prototype {
		if desc, ok := cur.lookup(key); ok {
			found = desc
			break
		}
	}

	switch d := found.(type) {
	case nil:
		return o.DefineOwnProperty(key, NewDataProperty(v, AllAttributes)), nil
	case DataDescriptor:
		if !d.WritableOr(false) {
			return false, nil
		}
		if o.HasOwnProperty(key) {
			return o.DefineOwnProperty(key, DataDescriptor{Value: v, HasValue: true}), nil
		}
		return o.DefineOwnProperty(key, NewDataProperty(v, AllAttributes)), nil
	case AccessorDescriptor:
		setter, ok := d.Setter()
		if !ok {
			return false, nil
		}
		return true, &AccessorCall{Kind: SetterCall, Function: setter, Receiver: o.Value(), Args: []Value{v}}
	default:
		panic(fmt.Sprintf("vm: unexpected descriptor %T", found))
	}
}

// Delete removes an own property. Deleting an absent key succeeds; deleting
// a non-configurable property fails and leaves it in place.
func (o *Object) Delete(key PropertyKey) bool {
	desc, ok := o.lookup(key)
	if !ok {
		return true
	}
	if desc.ConfigurableOr(false) {
		o.removeProperty(key)
		return true
	}
	return false
}

// OwnPropertyKeys lists string keys in insertion order, then symbol keys in
// insertion order.
func (o *Object) OwnPropertyKeys() []PropertyKey {
	keys := make([]PropertyKey, 0, o.PropertyCount())
	for _, k := range o.strings.Keys() {
		keys = append(keys, NewStringKey(k.(intern.Atom)))
	}
	if o.symbols != nil {
		for _, k := range o.symbols.Keys() {
			keys = append(keys, NewSymbolKey(k.(*intern.Symbol)))
		}
	}
	return keys
}

// PropertyCount returns the number of own properties of both kinds.
func (o *Object) PropertyCount() int {
	n := o.strings.Size()
	if o.symbols != nil {
		n += o.symbols.Size()
	}
	return n
}

// --- field shortcuts ---

// GetField returns the value of an own data property.
func (o *Object) GetField(name intern.Atom) (Value, bool) {
	desc, ok := o.lookup(NewStringKey(name))
	if !ok {
		return Undefined, false
	}
	d, isData := desc.(DataDescriptor)
	if !isData {
		return Undefined, false
	}
	return d.Value, true
}

// InsertField defines an own writable, enumerable, configurable data
// property, overwriting whatever was there. It reports whether the
// definition was accepted.
func (o *Object) InsertField(name intern.Atom, v Value) bool {
	return o.DefineOwnProperty(NewStringKey(name), NewDataProperty(v, AllAttributes))
}
