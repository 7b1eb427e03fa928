package vm

import (
	"errors"
	"strings"
)

// Attribute is the writable/enumerable/configurable set of a resident
// property. Absent attributes are false.
type Attribute uint8

const (
	AttrWritable Attribute = 1 << iota
	AttrEnumerable
	AttrConfigurable

	NoAttributes  Attribute = 0
	AllAttributes           = AttrWritable | AttrEnumerable | AttrConfigurable
)

func (a Attribute) Has(flag Attribute) bool { return a&flag == flag }

func (a Attribute) String() string {
	var parts []string
	if a.Has(AttrWritable) {
		parts = append(parts, "writable")
	}
	if a.Has(AttrEnumerable) {
		parts = append(parts, "enumerable")
	}
	if a.Has(AttrConfigurable) {
		parts = append(parts, "configurable")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Flag is an attribute as it appears in an input descriptor: absent, false
// or true.
type Flag uint8

const (
	FlagUnset Flag = iota
	FlagFalse
	FlagTrue
)

func FlagOf(b bool) Flag {
	if b {
		return FlagTrue
	}
	return FlagFalse
}

func (f Flag) IsSet() bool { return f != FlagUnset }

// Bool reports the flag's value; unset reads as false.
func (f Flag) Bool() bool { return f == FlagTrue }

// Or returns the flag's value, or def when the flag is absent.
func (f Flag) Or(def bool) bool {
	if f == FlagUnset {
		return def
	}
	return f == FlagTrue
}

type DescriptorKind uint8

const (
	GenericKind DescriptorKind = iota
	DataKind
	AccessorKind
)

func (k DescriptorKind) String() string {
	switch k {
	case DataKind:
		return "data"
	case AccessorKind:
		return "accessor"
	default:
		return "generic"
	}
}

// PropertyDescriptor is one of DataDescriptor, AccessorDescriptor or
// GenericDescriptor. Resident descriptors are always complete data or
// accessor descriptors; generic descriptors only ever appear as patches.
type PropertyDescriptor interface {
	Kind() DescriptorKind
	WritableOr(def bool) bool
	EnumerableOr(def bool) bool
	ConfigurableOr(def bool) bool
	// IsEmpty reports whether no field at all is present.
	IsEmpty() bool
	isPropertyDescriptor()
}

// DataDescriptor carries a value. HasValue distinguishes an absent value from
// an explicit undefined.
type DataDescriptor struct {
	Value        Value
	HasValue     bool
	Writable     Flag
	Enumerable   Flag
	Configurable Flag
}

// AccessorDescriptor carries a getter and/or setter. An explicit Undefined
// with HasGet/HasSet set means "no function", which differs from absent.
type AccessorDescriptor struct {
	Get          Value
	HasGet       bool
	Set          Value
	HasSet       bool
	Enumerable   Flag
	Configurable Flag
}

// GenericDescriptor only carries attributes.
type GenericDescriptor struct {
	Enumerable   Flag
	Configurable Flag
}

func (DataDescriptor) Kind() DescriptorKind     { return DataKind }
func (AccessorDescriptor) Kind() DescriptorKind { return AccessorKind }
func (GenericDescriptor) Kind() DescriptorKind  { return GenericKind }

func (DataDescriptor) isPropertyDescriptor()     {}
func (AccessorDescriptor) isPropertyDescriptor() {}
func (GenericDescriptor) isPropertyDescriptor()  {}

func (d DataDescriptor) WritableOr(def bool) bool     { return d.Writable.Or(def) }
func (d DataDescriptor) EnumerableOr(def bool) bool   { return d.Enumerable.Or(def) }
func (d DataDescriptor) ConfigurableOr(def bool) bool { return d.Configurable.Or(def) }
func (d DataDescriptor) IsEmpty() bool {
	return !d.HasValue && !d.Writable.IsSet() && !d.Enumerable.IsSet() && !d.Configurable.IsSet()
}

// WritableOr always returns def: accessors have no writable attribute.
func (d AccessorDescriptor) WritableOr(def bool) bool     { return def }
func (d AccessorDescriptor) EnumerableOr(def bool) bool   { return d.Enumerable.Or(def) }
func (d AccessorDescriptor) ConfigurableOr(def bool) bool { return d.Configurable.Or(def) }
func (d AccessorDescriptor) IsEmpty() bool {
	return !d.HasGet && !d.HasSet && !d.Enumerable.IsSet() && !d.Configurable.IsSet()
}

func (d GenericDescriptor) WritableOr(def bool) bool     { return def }
func (d GenericDescriptor) EnumerableOr(def bool) bool   { return d.Enumerable.Or(def) }
func (d GenericDescriptor) ConfigurableOr(def bool) bool { return d.Configurable.Or(def) }
func (d GenericDescriptor) IsEmpty() bool {
	return !d.Enumerable.IsSet() && !d.Configurable.IsSet()
}

// Attributes returns the resident attribute set; absent flags read as false.
func (d DataDescriptor) Attributes() Attribute {
	var a Attribute
	if d.Writable.Bool() {
		a |= AttrWritable
	}
	if d.Enumerable.Bool() {
		a |= AttrEnumerable
	}
	if d.Configurable.Bool() {
		a |= AttrConfigurable
	}
	return a
}

func (d AccessorDescriptor) Attributes() Attribute {
	var a Attribute
	if d.Enumerable.Bool() {
		a |= AttrEnumerable
	}
	if d.Configurable.Bool() {
		a |= AttrConfigurable
	}
	return a
}

// Getter returns the getter function, or false when there is none.
func (d AccessorDescriptor) Getter() (Value, bool) {
	if !d.HasGet || d.Get.IsUndefined() {
		return Undefined, false
	}
	return d.Get, true
}

// Setter returns the setter function, or false when there is none.
func (d AccessorDescriptor) Setter() (Value, bool) {
	if !d.HasSet || d.Set.IsUndefined() {
		return Undefined, false
	}
	return d.Set, true
}

func IsDataDescriptor(d PropertyDescriptor) bool {
	return d != nil && d.Kind() == DataKind
}

func IsAccessorDescriptor(d PropertyDescriptor) bool {
	return d != nil && d.Kind() == AccessorKind
}

// IsGenericDescriptor is true exactly when none of value, get or set is present.
func IsGenericDescriptor(d PropertyDescriptor) bool {
	return d != nil && d.Kind() == GenericKind
}

// normalizeDescriptor dereferences pointer variants and maps nil to an
// empty generic descriptor.
func normalizeDescriptor(desc PropertyDescriptor) PropertyDescriptor {
	switch d := desc.(type) {
	case nil:
		return GenericDescriptor{}
	case *DataDescriptor:
		if d == nil {
			return GenericDescriptor{}
		}
		return *d
	case *AccessorDescriptor:
		if d == nil {
			return GenericDescriptor{}
		}
		return *d
	case *GenericDescriptor:
		if d == nil {
			return GenericDescriptor{}
		}
		return *d
	}
	return desc
}

// NewDataProperty builds a complete data descriptor.
func NewDataProperty(value Value, attrs Attribute) DataDescriptor {
	return DataDescriptor{
		Value:        value,
		HasValue:     true,
		Writable:     FlagOf(attrs.Has(AttrWritable)),
		Enumerable:   FlagOf(attrs.Has(AttrEnumerable)),
		Configurable: FlagOf(attrs.Has(AttrConfigurable)),
	}
}

// NewAccessorProperty builds a complete accessor descriptor. Pass Undefined
// for a missing getter or setter. AttrWritable is ignored.
func NewAccessorProperty(get, set Value, attrs Attribute) AccessorDescriptor {
	return AccessorDescriptor{
		Get:          get,
		HasGet:       true,
		Set:          set,
		HasSet:       true,
		Enumerable:   FlagOf(attrs.Has(AttrEnumerable)),
		Configurable: FlagOf(attrs.Has(AttrConfigurable)),
	}
}

var (
	ErrMixedDescriptor = errors.New("invalid property descriptor: cannot both specify accessors and a value or writable attribute")
	ErrNotCallable     = errors.New("accessor must be a function or undefined")
)

// DescriptorFields is the loose form of a descriptor as read from a
// language-level object. Build classifies it.
type DescriptorFields struct {
	Value        *Value
	Get          *Value
	Set          *Value
	Writable     Flag
	Enumerable   Flag
	Configurable Flag
}

// Build classifies the fields into a data, accessor or generic descriptor.
// Mixing value/writable with get/set and non-callable accessors are errors.
func (f DescriptorFields) Build() (PropertyDescriptor, error) {
	isData := f.Value != nil || f.Writable.IsSet()
	isAccessor := f.Get != nil || f.Set != nil
	switch {
	case isData && isAccessor:
		return nil, ErrMixedDescriptor
	case isAccessor:
		d := AccessorDescriptor{Enumerable: f.Enumerable, Configurable: f.Configurable}
		if f.Get != nil {
			if !f.Get.IsUndefined() && !f.Get.IsCallable() {
				return nil, ErrNotCallable
			}
			d.Get, d.HasGet = *f.Get, true
		}
		if f.Set != nil {
			if !f.Set.IsUndefined() && !f.Set.IsCallable() {
				return nil, ErrNotCallable
			}
			d.Set, d.HasSet = *f.Set, true
		}
		return d, nil
	case isData:
		d := DataDescriptor{Writable: f.Writable, Enumerable: f.Enumerable, Configurable: f.Configurable}
		if f.Value != nil {
			d.Value, d.HasValue = *f.Value, true
		}
		return d, nil
	default:
		return GenericDescriptor{Enumerable: f.Enumerable, Configurable: f.Configurable}, nil
	}
}
