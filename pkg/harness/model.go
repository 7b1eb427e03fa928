package harness

import (
	"strconv"

	"github.com/pkg/errors"

	"objmodel/pkg/intern"
	"objmodel/pkg/vm"
)

// ModelBackend runs steps against the object model in pkg/vm. All tests of a
// run share one atom table; each test gets its own realm.
type ModelBackend struct {
	atoms *intern.Table

	realm   *vm.Realm
	objects map[string]*vm.Object
	names   map[*vm.Object]string
	symbols map[string]*intern.Symbol
	fns     map[string]*modelFn
}

type modelFn struct {
	fnState
	value vm.Value
}

func NewModelBackend() *ModelBackend {
	return &ModelBackend{atoms: intern.NewTable()}
}

func (b *ModelBackend) Name() string { return BackendModel }

// Realm returns the realm of the current test.
func (b *ModelBackend) Realm() *vm.Realm { return b.realm }

func (b *ModelBackend) Reset(fx *Fixture) error {
	b.realm = vm.NewRealm(b.atoms)
	b.objects = map[string]*vm.Object{IntrinsicObjectPrototype: b.realm.ObjectPrototype}
	b.names = map[*vm.Object]string{b.realm.ObjectPrototype: IntrinsicObjectPrototype}
	b.symbols = make(map[string]*intern.Symbol)
	b.fns = make(map[string]*modelFn)

	for _, decl := range fx.Functions {
		fn := &modelFn{fnState: fnState{decl: decl}}
		fn.value = vm.NewNativeFunction(0, decl.Name, func(this vm.Value, args []vm.Value) (vm.Value, error) {
			fn.calls++
			fn.lastThis = b.render(this)
			if fn.decl.Throws != "" {
				return vm.Undefined, &Thrown{Message: "TypeError: " + fn.decl.Throws}
			}
			return b.toValue(fn.decl.Returns)
		})
		b.fns[decl.Name] = fn
	}

	for _, decl := range fx.Objects {
		proto := b.realm.ObjectPrototype
		switch {
		case decl.NullProto:
			proto = nil
		case decl.Proto != "":
			p, ok := b.objects[decl.Proto]
			if !ok {
				return unknownObject(decl.Proto)
			}
			proto = p
		}
		o := vm.NewObject(proto)
		if !decl.Extensible {
			o.PreventExtensions()
		}
		b.objects[decl.Name] = o
		b.names[o] = decl.Name
	}
	return nil
}

func (b *ModelBackend) object(name string) (*vm.Object, error) {
	o, ok := b.objects[name]
	if !ok {
		return nil, unknownObject(name)
	}
	return o, nil
}

func (b *ModelBackend) toValue(l Literal) (vm.Value, error) {
	switch l.Kind {
	case LitUndefined:
		return vm.Undefined, nil
	case LitNull:
		return vm.Null, nil
	case LitBool:
		return vm.BooleanValue(l.Bool), nil
	case LitNumber:
		return vm.NumberValue(l.Num), nil
	case LitString:
		return vm.NewString(l.Str), nil
	case LitObject:
		o, err := b.object(l.Str)
		if err != nil {
			return vm.Undefined, err
		}
		return o.Value(), nil
	case LitSymbol:
		return vm.NewSymbolValue(b.symbol(l.Str)), nil
	case LitFunction:
		fn, ok := b.fns[l.Str]
		if !ok {
			return vm.Undefined, errors.Errorf("no function named %q in this test", l.Str)
		}
		return fn.value, nil
	default:
		return vm.Undefined, errors.Errorf("unhandled literal kind %d", l.Kind)
	}
}

func (b *ModelBackend) symbol(name string) *intern.Symbol {
	sym, ok := b.symbols[name]
	if !ok {
		sym = intern.NewSymbol(name)
		b.symbols[name] = sym
	}
	return sym
}

func (b *ModelBackend) key(l Literal) vm.PropertyKey {
	if l.Kind == LitSymbol {
		return vm.NewSymbolKey(b.symbol(l.Str))
	}
	return b.realm.Key(l.Str)
}

func (b *ModelBackend) render(v vm.Value) string {
	if v.IsObject() {
		if name, ok := b.names[v.AsObject()]; ok {
			return renderObject(name)
		}
		return renderObject("anonymous")
	}
	// symbols render as Symbol(description) and fixture symbols are
	// described by their name
	return v.Inspect()
}

func (b *ModelBackend) renderKey(k vm.PropertyKey) string {
	if k.IsSymbol() {
		return renderSymbol(k.Symbol().Description())
	}
	return strconv.Quote(b.realm.KeyName(k))
}

func (b *ModelBackend) renderDescriptor(desc vm.PropertyDescriptor) string {
	view := descriptorView{}
	str := func(v vm.Value) *string {
		s := b.render(v)
		return &s
	}
	switch d := desc.(type) {
	case vm.DataDescriptor:
		view.Value, view.Writable = str(d.Value), d.Writable
		view.Enumerable, view.Configurable = d.Enumerable, d.Configurable
	case vm.AccessorDescriptor:
		view.Get, view.Set = str(d.Get), str(d.Set)
		view.Enumerable, view.Configurable = d.Enumerable, d.Configurable
	}
	return view.String()
}

// descriptorObject builds the object a script would pass to
// Object.defineProperty.
func (b *ModelBackend) descriptorObject(spec DescriptorSpec) (*vm.Object, error) {
	obj := b.realm.NewObject()
	put := func(name string, l *Literal) error {
		if l == nil {
			return nil
		}
		v, err := b.toValue(*l)
		if err != nil {
			return err
		}
		obj.InsertField(b.atoms.Intern(name), v)
		return nil
	}
	flag := func(name string, f vm.Flag) {
		if f.IsSet() {
			obj.InsertField(b.atoms.Intern(name), vm.BooleanValue(f.Bool()))
		}
	}
	if err := put("value", spec.Value); err != nil {
		return nil, err
	}
	flag("writable", spec.Writable)
	if err := put("get", spec.Get); err != nil {
		return nil, err
	}
	if err := put("set", spec.Set); err != nil {
		return nil, err
	}
	flag("enumerable", spec.Enumerable)
	flag("configurable", spec.Configurable)
	return obj, nil
}

// thrown converts a host error into the exception a script would see.
func thrown(err error) error {
	if _, ok := err.(*Thrown); ok {
		return err
	}
	return &Thrown{Message: "TypeError: " + err.Error()}
}

func (b *ModelBackend) Eval(step *Step) (string, error) {
	switch step.Op {
	case OpCalls, OpReceiver:
		fn, ok := b.fns[step.Fn]
		if !ok {
			return "", errors.Errorf("no function named %q in this test", step.Fn)
		}
		if step.Op == OpCalls {
			return strconv.Itoa(fn.calls), nil
		}
		if fn.calls == 0 {
			return Undefined.Render(), nil
		}
		return fn.lastThis, nil
	}

	o, err := b.object(step.Object)
	if err != nil {
		return "", err
	}
	inv := vm.NativeInvoker{}

	switch step.Op {
	case OpDefine:
		descObj, err := b.descriptorObject(step.Desc)
		if err != nil {
			return "", err
		}
		desc, err := b.realm.ToPropertyDescriptor(inv, descObj)
		if err != nil {
			return "", thrown(err)
		}
		return renderBool(o.DefineOwnProperty(b.key(step.Key), desc)), nil

	case OpGetOwnProperty:
		desc, ok := o.GetOwnProperty(b.key(step.Key))
		if !ok {
			return Undefined.Render(), nil
		}
		return b.renderDescriptor(desc), nil

	case OpGet:
		v, err := vm.GetValue(inv, o, b.key(step.Key))
		if err != nil {
			return "", thrown(err)
		}
		return b.render(v), nil

	case OpSet:
		v, err := b.toValue(step.Value)
		if err != nil {
			return "", err
		}
		ok, err := vm.SetValue(inv, o, b.key(step.Key), v)
		if err != nil {
			return "", thrown(err)
		}
		return renderBool(ok), nil

	case OpDelete:
		return renderBool(o.Delete(b.key(step.Key))), nil

	case OpHas:
		return renderBool(o.HasProperty(b.key(step.Key))), nil

	case OpHasOwn:
		return renderBool(o.HasOwnProperty(b.key(step.Key))), nil

	case OpGetPrototypeOf:
		return b.render(o.PrototypeValue()), nil

	case OpSetPrototypeOf:
		var proto *vm.Object
		if step.Proto.Kind == LitObject {
			if proto, err = b.object(step.Proto.Str); err != nil {
				return "", err
			}
		}
		return renderBool(o.SetPrototypeOf(proto)), nil

	case OpPreventExtensions:
		return renderBool(o.PreventExtensions()), nil

	case OpIsExtensible:
		return renderBool(o.IsExtensible()), nil

	case OpOwnKeys:
		keys := o.OwnPropertyKeys()
		out := make([]string, len(keys))
		for i, k := range keys {
			out[i] = b.renderKey(k)
		}
		return renderKeys(out), nil

	default:
		return "", errors.Errorf("unsupported operation %q", step.Op)
	}
}
