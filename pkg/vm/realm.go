package vm

import (
	"objmodel/pkg/intern"
)

// Realm is an isolated set of roots: the intrinsic Object.prototype, the
// global object and the global value slots. Objects unreachable from these
// (and from the caller's own references) are reclaimed by the Go collector,
// cycles included.
type Realm struct {
	Atoms *intern.Table

	ObjectPrototype *Object
	GlobalObject    *Object
	Heap            *Heap
}

// NewRealm creates a realm. A nil table gets a private one.
func NewRealm(atoms *intern.Table) *Realm {
	if atoms == nil {
		atoms = intern.NewTable()
	}
	objectProto := NewObject(nil)
	return &Realm{
		Atoms:           atoms,
		ObjectPrototype: objectProto,
		GlobalObject:    NewObject(objectProto),
		Heap:            NewHeap(64),
	}
}

// Key interns name and returns its property key.
func (r *Realm) Key(name string) PropertyKey {
	return NewStringKey(r.Atoms.Intern(name))
}

// SymbolKey returns the key for a symbol.
func (r *Realm) SymbolKey(sym *intern.Symbol) PropertyKey {
	return NewSymbolKey(sym)
}

// KeyName resolves a key for display.
func (r *Realm) KeyName(key PropertyKey) string {
	return key.DisplayName(r.Atoms)
}

// NewObject creates an ordinary object inheriting from Object.prototype.
func (r *Realm) NewObject() *Object {
	return NewObject(r.ObjectPrototype)
}

// DefineGlobal binds name in both the global object and the heap.
func (r *Realm) DefineGlobal(name string, v Value) bool {
	r.Heap.Define(name, v)
	return r.GlobalObject.InsertField(r.Atoms.Intern(name), v)
}

// Global reads a global binding from the global object.
func (r *Realm) Global(name string) (Value, bool) {
	return r.GlobalObject.GetField(r.Atoms.Intern(name))
}

// FromPropertyDescriptor builds the language-level object for a descriptor,
// as Object.getOwnPropertyDescriptor returns it. Only present fields appear.
func (r *Realm) FromPropertyDescriptor(desc PropertyDescriptor) *Object {
	obj := r.NewObject()
	put := func(name string, v Value) { obj.InsertField(r.Atoms.Intern(name), v) }
	desc = normalizeDescriptor(desc)
	switch d := desc.(type) {
	case DataDescriptor:
		if d.HasValue {
			put("value", d.Value)
		}
		if d.Writable.IsSet() {
			put("writable", BooleanValue(d.Writable.Bool()))
		}
	case AccessorDescriptor:
		if d.HasGet {
			put("get", d.Get)
		}
		if d.HasSet {
			put("set", d.Set)
		}
	}
	if e := enumerableFlag(desc); e.IsSet() {
		put("enumerable", BooleanValue(e.Bool()))
	}
	if c := configurableFlag(desc); c.IsSet() {
		put("configurable", BooleanValue(c.Bool()))
	}
	return obj
}

// ToPropertyDescriptor reads a descriptor out of a language-level object,
// running accessor properties through inv. Mixed and non-callable
// accessor fields are rejected here, before DefineOwnProperty is reached.
func (r *Realm) ToPropertyDescriptor(inv Invoker, obj *Object) (PropertyDescriptor, error) {
	var fields DescriptorFields
	read := func(name string) (Value, bool, error) {
		key := r.Key(name)
		if !obj.HasProperty(key) {
			return Undefined, false, nil
		}
		v, err := GetValue(inv, obj, key)
		return v, err == nil, err
	}
	flag := func(name string) (Flag, error) {
		v, ok, err := read(name)
		if err != nil || !ok {
			return FlagUnset, err
		}
		return FlagOf(v.IsTruthy()), nil
	}
	optional := func(name string) (*Value, error) {
		v, ok, err := read(name)
		if err != nil || !ok {
			return nil, err
		}
		return &v, nil
	}

	var err error
	if fields.Enumerable, err = flag("enumerable"); err != nil {
		return nil, err
	}
	if fields.Configurable, err = flag("configurable"); err != nil {
		return nil, err
	}
	if fields.Value, err = optional("value"); err != nil {
		return nil, err
	}
	if fields.Writable, err = flag("writable"); err != nil {
		return nil, err
	}
	if fields.Get, err = optional("get"); err != nil {
		return nil, err
	}
	if fields.Set, err = optional("set"); err != nil {
		return nil, err
	}
	return fields.Build()
}
