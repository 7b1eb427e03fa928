package vm

import (
	"math"
	"testing"
)

// sameDescriptor compares two descriptors field by field using SameValue.
func sameDescriptor(a, b PropertyDescriptor) bool {
	switch x := a.(type) {
	case DataDescriptor:
		y, ok := b.(DataDescriptor)
		return ok && x.HasValue == y.HasValue && SameValue(x.Value, y.Value) &&
			x.Writable == y.Writable && x.Enumerable == y.Enumerable && x.Configurable == y.Configurable
	case AccessorDescriptor:
		y, ok := b.(AccessorDescriptor)
		return ok && x.HasGet == y.HasGet && x.HasSet == y.HasSet &&
			SameValue(x.Get, y.Get) && SameValue(x.Set, y.Set) &&
			x.Enumerable == y.Enumerable && x.Configurable == y.Configurable
	case GenericDescriptor:
		y, ok := b.(GenericDescriptor)
		return ok && x == y
	}
	return false
}

func mustOwn(t *testing.T, o *Object, key PropertyKey) PropertyDescriptor {
	t.Helper()
	desc, ok := o.GetOwnProperty(key)
	if !ok {
		t.Fatalf("expected own property %v", key)
	}
	return desc
}

func nativeFn(name string) Value {
	return NewNativeFunction(0, name, func(this Value, args []Value) (Value, error) {
		return NewString(name), nil
	})
}

func TestDefineNoOpPatchLeavesDescriptorUnchanged(t *testing.T) {
	r := NewRealm(nil)
	key := r.Key("p")
	getter := nativeFn("g")

	residents := []PropertyDescriptor{
		NewDataProperty(IntegerValue(1), AllAttributes),
		NewDataProperty(NaN, NoAttributes),
		NewDataProperty(NewString("ro"), AttrEnumerable),
		NewAccessorProperty(getter, Undefined, AttrConfigurable),
		NewAccessorProperty(Undefined, Undefined, NoAttributes),
	}
	patches := []PropertyDescriptor{GenericDescriptor{}, DataDescriptor{}, AccessorDescriptor{}, nil}

	for _, resident := range residents {
		for _, patch := range patches {
			o := r.NewObject()
			if !o.DefineOwnProperty(key, resident) {
				t.Fatalf("initial define of %#v failed", resident)
			}
			before := mustOwn(t, o, key)
			if !o.DefineOwnProperty(key, patch) {
				t.Errorf("empty patch %#v on %#v should succeed", patch, resident)
			}
			if after := mustOwn(t, o, key); !sameDescriptor(before, after) {
				t.Errorf("empty patch changed descriptor: before %#v after %#v", before, after)
			}
		}
	}
}

func TestDefineExtensibilityGate(t *testing.T) {
	r := NewRealm(nil)
	o := r.NewObject()
	o.PreventExtensions()

	inputs := []PropertyDescriptor{
		NewDataProperty(IntegerValue(1), AllAttributes),
		NewAccessorProperty(nativeFn("g"), Undefined, AllAttributes),
		GenericDescriptor{Enumerable: FlagTrue},
		GenericDescriptor{},
	}
	for _, in := range inputs {
		if o.DefineOwnProperty(r.Key("k"), in) {
			t.Errorf("define %#v on non-extensible object should fail", in)
		}
		if o.HasOwnProperty(r.Key("k")) {
			t.Fatalf("failed define left an entry behind")
		}
	}
}

func TestDefineNewPropertyDefaults(t *testing.T) {
	r := NewRealm(nil)
	o := r.NewObject()

	o.DefineOwnProperty(r.Key("data"), DataDescriptor{Value: IntegerValue(1), HasValue: true})
	if got := mustOwn(t, o, r.Key("data")); !sameDescriptor(got, NewDataProperty(IntegerValue(1), NoAttributes)) {
		t.Errorf("absent attributes should default to false, got %#v", got)
	}

	o.DefineOwnProperty(r.Key("generic"), GenericDescriptor{Enumerable: FlagTrue})
	if got := mustOwn(t, o, r.Key("generic")); !sameDescriptor(got, NewDataProperty(Undefined, AttrEnumerable)) {
		t.Errorf("generic input should become data holding undefined, got %#v", got)
	}

	g := nativeFn("g")
	o.DefineOwnProperty(r.Key("acc"), AccessorDescriptor{Get: g, HasGet: true})
	if got := mustOwn(t, o, r.Key("acc")); !sameDescriptor(got, NewAccessorProperty(g, Undefined, NoAttributes)) {
		t.Errorf("absent setter should default to undefined, got %#v", got)
	}

	// pointer variants are accepted too
	o.DefineOwnProperty(r.Key("ptr"), &DataDescriptor{Value: True, HasValue: true, Writable: FlagTrue})
	if got := mustOwn(t, o, r.Key("ptr")); !sameDescriptor(got, NewDataProperty(True, AttrWritable)) {
		t.Errorf("pointer descriptor not applied, got %#v", got)
	}
}

func TestDefineNonConfigurableProtection(t *testing.T) {
	r := NewRealm(nil)
	o := r.NewObject()
	key := r.Key("frozen")
	if !o.DefineOwnProperty(key, NewDataProperty(IntegerValue(7), NoAttributes)) {
		t.Fatalf("initial define failed")
	}

	if o.DefineOwnProperty(key, DataDescriptor{Value: IntegerValue(8), HasValue: true}) {
		t.Errorf("changing the value of a frozen property should fail")
	}
	if v, _ := o.Get(key); !SameValue(v, IntegerValue(7)) {
		t.Errorf("value changed after failed define: %v", v)
	}

	if !o.DefineOwnProperty(key, DataDescriptor{Value: NumberValue(7), HasValue: true, Writable: FlagFalse}) {
		t.Errorf("redefining with the same value should succeed")
	}

	testCases := []struct {
		name string
		desc PropertyDescriptor
	}{
		{"configurable true", GenericDescriptor{Configurable: FlagTrue}},
		{"enumerable flip", GenericDescriptor{Enumerable: FlagTrue}},
		{"writable true", DataDescriptor{Writable: FlagTrue}},
		{"to accessor", AccessorDescriptor{Get: nativeFn("g"), HasGet: true}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			before := mustOwn(t, o, key)
			if o.DefineOwnProperty(key, tc.desc) {
				t.Errorf("expected rejection")
			}
			if after := mustOwn(t, o, key); !sameDescriptor(before, after) {
				t.Errorf("rejected define mutated the descriptor: %#v", after)
			}
		})
	}

	if !o.DefineOwnProperty(key, GenericDescriptor{Enumerable: FlagFalse, Configurable: FlagFalse}) {
		t.Errorf("restating the current attributes should succeed")
	}
}

func TestDefineSameValueSemantics(t *testing.T) {
	r := NewRealm(nil)
	o := r.NewObject()
	negZero := NumberValue(math.Copysign(0, -1))

	o.DefineOwnProperty(r.Key("nan"), NewDataProperty(NaN, NoAttributes))
	if !o.DefineOwnProperty(r.Key("nan"), DataDescriptor{Value: NumberValue(math.NaN()), HasValue: true}) {
		t.Errorf("NaN should be the same value as NaN")
	}

	o.DefineOwnProperty(r.Key("zero"), NewDataProperty(NumberValue(0), NoAttributes))
	if o.DefineOwnProperty(r.Key("zero"), DataDescriptor{Value: negZero, HasValue: true}) {
		t.Errorf("-0 must not be the same value as +0")
	}
	if !o.DefineOwnProperty(r.Key("zero"), DataDescriptor{Value: IntegerValue(0), HasValue: true}) {
		t.Errorf("integer 0 should match +0")
	}
}

func TestDefineNonConfigurableWritableData(t *testing.T) {
	r := NewRealm(nil)
	o := r.NewObject()
	key := r.Key("w")
	o.DefineOwnProperty(key, NewDataProperty(IntegerValue(1), AttrWritable))

	if !o.DefineOwnProperty(key, DataDescriptor{Value: IntegerValue(2), HasValue: true}) {
		t.Fatalf("writable non-configurable value change should succeed")
	}
	if !o.DefineOwnProperty(key, DataDescriptor{Writable: FlagFalse}) {
		t.Fatalf("writable -> non-writable should succeed")
	}
	got := mustOwn(t, o, key)
	if !sameDescriptor(got, NewDataProperty(IntegerValue(2), NoAttributes)) {
		t.Errorf("unexpected descriptor %#v", got)
	}
	if o.DefineOwnProperty(key, DataDescriptor{Value: IntegerValue(3), HasValue: true}) {
		t.Errorf("value change after freezing should fail")
	}
	if o.DefineOwnProperty(key, DataDescriptor{Writable: FlagTrue}) {
		t.Errorf("non-writable -> writable should fail")
	}
}

func TestDefineMergeKeepsAbsentFields(t *testing.T) {
	r := NewRealm(nil)
	o := r.NewObject()
	key := r.Key("m")
	o.DefineOwnProperty(key, NewDataProperty(IntegerValue(1), AllAttributes))

	o.DefineOwnProperty(key, DataDescriptor{Value: IntegerValue(2), HasValue: true})
	if got := mustOwn(t, o, key); !sameDescriptor(got, NewDataProperty(IntegerValue(2), AllAttributes)) {
		t.Errorf("value-only patch should keep attributes, got %#v", got)
	}

	o.DefineOwnProperty(key, GenericDescriptor{Enumerable: FlagFalse})
	if got := mustOwn(t, o, key); !sameDescriptor(got, NewDataProperty(IntegerValue(2), AttrWritable|AttrConfigurable)) {
		t.Errorf("generic patch should only touch enumerable, got %#v", got)
	}

	g1, g2, s1 := nativeFn("g1"), nativeFn("g2"), nativeFn("s1")
	acc := r.Key("acc")
	o.DefineOwnProperty(acc, NewAccessorProperty(g1, s1, AllAttributes))
	o.DefineOwnProperty(acc, AccessorDescriptor{Get: g2, HasGet: true})
	if got := mustOwn(t, o, acc); !sameDescriptor(got, NewAccessorProperty(g2, s1, AllAttributes)) {
		t.Errorf("getter-only patch should keep the setter, got %#v", got)
	}
}

func TestDefineKindConversion(t *testing.T) {
	r := NewRealm(nil)
	o := r.NewObject()
	key := r.Key("c")
	g := nativeFn("g")

	o.DefineOwnProperty(key, NewDataProperty(IntegerValue(1), AttrWritable|AttrEnumerable|AttrConfigurable))
	if !o.DefineOwnProperty(key, AccessorDescriptor{Get: g, HasGet: true}) {
		t.Fatalf("data -> accessor on configurable property should succeed")
	}
	got := mustOwn(t, o, key)
	if !sameDescriptor(got, NewAccessorProperty(g, Undefined, AttrEnumerable|AttrConfigurable)) {
		t.Errorf("conversion should drop value and writable and keep attributes, got %#v", got)
	}

	if !o.DefineOwnProperty(key, DataDescriptor{Writable: FlagTrue}) {
		t.Fatalf("accessor -> data on configurable property should succeed")
	}
	got = mustOwn(t, o, key)
	if !sameDescriptor(got, NewDataProperty(Undefined, AllAttributes)) {
		t.Errorf("conversion should drop getter/setter, got %#v", got)
	}

	locked := r.Key("locked")
	o.DefineOwnProperty(locked, NewAccessorProperty(g, Undefined, NoAttributes))
	if o.DefineOwnProperty(locked, DataDescriptor{Value: IntegerValue(1), HasValue: true}) {
		t.Errorf("accessor -> data on non-configurable property should fail")
	}
	if !IsAccessorDescriptor(mustOwn(t, o, locked)) {
		t.Errorf("failed conversion changed the kind")
	}
}

func TestDefineNonConfigurableAccessor(t *testing.T) {
	r := NewRealm(nil)
	o := r.NewObject()
	key := r.Key("a")
	g, other := nativeFn("g"), nativeFn("other")
	o.DefineOwnProperty(key, NewAccessorProperty(g, Undefined, AttrEnumerable))

	if !o.DefineOwnProperty(key, AccessorDescriptor{Get: g, HasGet: true}) {
		t.Errorf("same getter should succeed")
	}
	if !o.DefineOwnProperty(key, AccessorDescriptor{Set: Undefined, HasSet: true}) {
		t.Errorf("explicit undefined setter matching resident should succeed")
	}
	if o.DefineOwnProperty(key, AccessorDescriptor{Get: other, HasGet: true}) {
		t.Errorf("different getter should fail")
	}
	if o.DefineOwnProperty(key, AccessorDescriptor{Set: other, HasSet: true}) {
		t.Errorf("different setter should fail")
	}
	if got := mustOwn(t, o, key); !sameDescriptor(got, NewAccessorProperty(g, Undefined, AttrEnumerable)) {
		t.Errorf("descriptor changed: %#v", got)
	}
}

func TestDescriptorFieldsBuild(t *testing.T) {
	one := IntegerValue(1)
	fn := nativeFn("f")
	notFn := NewString("nope")

	testCases := []struct {
		name    string
		fields  DescriptorFields
		kind    DescriptorKind
		wantErr error
	}{
		{"empty", DescriptorFields{}, GenericKind, nil},
		{"attributes only", DescriptorFields{Enumerable: FlagTrue}, GenericKind, nil},
		{"value", DescriptorFields{Value: &one}, DataKind, nil},
		{"writable only", DescriptorFields{Writable: FlagFalse}, DataKind, nil},
		{"getter", DescriptorFields{Get: &fn}, AccessorKind, nil},
		{"undefined setter", DescriptorFields{Set: &Undefined}, AccessorKind, nil},
		{"mixed", DescriptorFields{Value: &one, Get: &fn}, GenericKind, ErrMixedDescriptor},
		{"writable with setter", DescriptorFields{Writable: FlagTrue, Set: &fn}, GenericKind, ErrMixedDescriptor},
		{"non-callable getter", DescriptorFields{Get: &notFn}, GenericKind, ErrNotCallable},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			desc, err := tc.fields.Build()
			if err != tc.wantErr {
				t.Fatalf("Build() error = %v, want %v", err, tc.wantErr)
			}
			if err != nil {
				return
			}
			if desc.Kind() != tc.kind {
				t.Errorf("Build() kind = %v, want %v", desc.Kind(), tc.kind)
			}
		})
	}
}

func TestDescriptorDefaulting(t *testing.T) {
	d := DataDescriptor{Writable: FlagFalse}
	if d.WritableOr(true) {
		t.Errorf("present writable=false must not take the default")
	}
	if !d.EnumerableOr(true) || d.ConfigurableOr(false) {
		t.Errorf("absent flags must take the default")
	}
	a := AccessorDescriptor{}
	if !a.WritableOr(true) || a.WritableOr(false) {
		t.Errorf("accessor WritableOr must always return the default")
	}
	if !IsGenericDescriptor(GenericDescriptor{}) || IsGenericDescriptor(a) {
		t.Errorf("IsGenericDescriptor misclassified")
	}
	if NewAccessorProperty(Undefined, Undefined, AllAttributes).Attributes().Has(AttrWritable) {
		t.Errorf("accessor attributes must not include writable")
	}
}
