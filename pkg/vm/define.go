package vm

import "fmt"

// DefineOwnProperty validates desc against the resident descriptor for key
// and applies it. Absent fields of desc keep their current values. On
// failure the object is left exactly as it was; on success the table is
// written at most once.
func (o *Object) DefineOwnProperty(key PropertyKey, desc PropertyDescriptor) bool {
	desc = normalizeDescriptor(desc)

	current, exists := o.lookup(key)
	if !exists {
		if !o.extensible {
			return o.reject(key, "object is not extensible")
		}
		o.insertProperty(key, completeDescriptor(desc))
		return true
	}

	if desc.IsEmpty() {
		return true
	}

	configurable := current.ConfigurableOr(false)
	if !configurable {
		if desc.ConfigurableOr(false) {
			return o.reject(key, "cannot make a non-configurable property configurable")
		}
		if enumerable := enumerableFlag(desc); enumerable.IsSet() && enumerable.Bool() != current.EnumerableOr(false) {
			return o.reject(key, "cannot change enumerability of a non-configurable property")
		}
	}

	switch {
	case IsGenericDescriptor(desc):
		// attributes only; handled by the merge below

	case current.Kind() != desc.Kind():
		if !configurable {
			return o.reject(key, "cannot change the kind of a non-configurable property")
		}
		current = convertDescriptor(current)

	case IsDataDescriptor(current):
		cur, in := current.(DataDescriptor), desc.(DataDescriptor)
		if !configurable && !cur.WritableOr(false) {
			if in.WritableOr(false) {
				return o.reject(key, "cannot make a non-writable property writable")
			}
			if in.HasValue && !SameValue(in.Value, cur.Value) {
				return o.reject(key, "cannot change the value of a read-only property")
			}
			return true
		}

	default:
		cur, in := current.(AccessorDescriptor), desc.(AccessorDescriptor)
		if !configurable {
			if in.HasSet && !SameValue(in.Set, cur.Set) {
				return o.reject(key, "cannot replace the setter of a non-configurable property")
			}
			if in.HasGet && !SameValue(in.Get, cur.Get) {
				return o.reject(key, "cannot replace the getter of a non-configurable property")
			}
			return true
		}
	}

	o.insertProperty(key, mergeDescriptor(current, desc))
	return true
}

func (o *Object) reject(key PropertyKey, reason string) bool {
	if debugObject {
		fmt.Printf("[Object] define %v rejected: %s\n", key, reason)
	}
	return false
}

func enumerableFlag(desc PropertyDescriptor) Flag {
	switch d := desc.(type) {
	case DataDescriptor:
		return d.Enumerable
	case AccessorDescriptor:
		return d.Enumerable
	case GenericDescriptor:
		return d.Enumerable
	}
	return FlagUnset
}

func configurableFlag(desc PropertyDescriptor) Flag {
	switch d := desc.(type) {
	case DataDescriptor:
		return d.Configurable
	case AccessorDescriptor:
		return d.Configurable
	case GenericDescriptor:
		return d.Configurable
	}
	return FlagUnset
}

// completeDescriptor fills absent fields with their defaults: undefined for
// value, getter and setter, false for every attribute. A generic descriptor
// becomes a data descriptor holding undefined.
func completeDescriptor(desc PropertyDescriptor) PropertyDescriptor {
	switch d := desc.(type) {
	case DataDescriptor:
		v := Undefined
		if d.HasValue {
			v = d.Value
		}
		return NewDataProperty(v, d.Attributes())
	case AccessorDescriptor:
		get, set := Undefined, Undefined
		if d.HasGet {
			get = d.Get
		}
		if d.HasSet {
			set = d.Set
		}
		return NewAccessorProperty(get, set, d.Attributes())
	case GenericDescriptor:
		var attrs Attribute
		if d.Enumerable.Bool() {
			attrs |= AttrEnumerable
		}
		if d.Configurable.Bool() {
			attrs |= AttrConfigurable
		}
		return NewDataProperty(Undefined, attrs)
	default:
		panic(fmt.Sprintf("vm: unknown descriptor %T", desc))
	}
}

// convertDescriptor switches a resident descriptor to the other kind,
// keeping enumerable and configurable. Data to accessor drops the value and
// writable; accessor to data drops getter and setter.
func convertDescriptor(current PropertyDescriptor) PropertyDescriptor {
	switch c := current.(type) {
	case DataDescriptor:
		return NewAccessorProperty(Undefined, Undefined, c.Attributes()&^AttrWritable)
	case AccessorDescriptor:
		return NewDataProperty(Undefined, c.Attributes())
	default:
		panic(fmt.Sprintf("vm: unclassifiable resident descriptor %T", current))
	}
}

// mergeDescriptor overlays the present fields of desc on a resident
// descriptor of the same kind (or any resident, for a generic desc).
func mergeDescriptor(current, desc PropertyDescriptor) PropertyDescriptor {
	enumerable, configurable := enumerableFlag(desc), configurableFlag(desc)

	switch c := current.(type) {
	case DataDescriptor:
		if d, ok := desc.(DataDescriptor); ok {
			if d.HasValue {
				c.Value = d.Value
			}
			if d.Writable.IsSet() {
				c.Writable = d.Writable
			}
		}
		if enumerable.IsSet() {
			c.Enumerable = enumerable
		}
		if configurable.IsSet() {
			c.Configurable = configurable
		}
		return c
	case AccessorDescriptor:
		if d, ok := desc.(AccessorDescriptor); ok {
			if d.HasGet {
				c.Get = d.Get
			}
			if d.HasSet {
				c.Set = d.Set
			}
		}
		if enumerable.IsSet() {
			c.Enumerable = enumerable
		}
		if configurable.IsSet() {
			c.Configurable = configurable
		}
		return c
	default:
		panic(fmt.Sprintf("vm: unclassifiable resident descriptor %T", current))
	}
}
