package harness

import (
	"strconv"

	"github.com/dop251/goja"
	"github.com/pkg/errors"

	"objmodel/pkg/vm"
)

// reflectMethods are the Reflect functions the goja backend drives. Each
// maps one to one onto an internal method and reports failure as false
// instead of throwing.
var reflectMethods = []string{
	"defineProperty", "getOwnPropertyDescriptor", "get", "set", "deleteProperty",
	"has", "getPrototypeOf", "setPrototypeOf", "preventExtensions", "isExtensible", "ownKeys",
}

// GojaBackend runs steps on the goja JavaScript engine through Reflect. It
// serves as the reference the object model is checked against.
type GojaBackend struct {
	rt      *goja.Runtime
	reflect map[string]goja.Callable

	objects map[string]*goja.Object
	names   map[*goja.Object]string
	symbols map[string]*goja.Symbol
	symName map[*goja.Symbol]string
	fns     map[string]*gojaFn
	fnNames map[*goja.Object]string
}

type gojaFn struct {
	fnState
	value *goja.Object
}

func NewGojaBackend() *GojaBackend {
	return &GojaBackend{}
}

func (b *GojaBackend) Name() string { return BackendGoja }

func (b *GojaBackend) Reset(fx *Fixture) error {
	rt := goja.New()
	b.rt = rt
	b.reflect = make(map[string]goja.Callable, len(reflectMethods))
	reflectObj := rt.Get("Reflect").ToObject(rt)
	for _, name := range reflectMethods {
		fn, ok := goja.AssertFunction(reflectObj.Get(name))
		if !ok {
			return errors.Errorf("goja: Reflect.%s is not a function", name)
		}
		b.reflect[name] = fn
	}

	objectProto := rt.Get("Object").ToObject(rt).Get("prototype").ToObject(rt)
	b.objects = map[string]*goja.Object{IntrinsicObjectPrototype: objectProto}
	b.names = map[*goja.Object]string{objectProto: IntrinsicObjectPrototype}
	b.symbols = make(map[string]*goja.Symbol)
	b.symName = make(map[*goja.Symbol]string)
	b.fns = make(map[string]*gojaFn)
	b.fnNames = make(map[*goja.Object]string)

	for _, decl := range fx.Functions {
		fn := &gojaFn{fnState: fnState{decl: decl}}
		fn.value = rt.ToValue(func(call goja.FunctionCall) goja.Value {
			fn.calls++
			fn.lastThis = b.render(call.This)
			if fn.decl.Throws != "" {
				panic(rt.NewTypeError(fn.decl.Throws))
			}
			v, err := b.toValue(fn.decl.Returns)
			if err != nil {
				panic(rt.NewGoError(err))
			}
			return v
		}).ToObject(rt)
		b.fns[decl.Name] = fn
		b.fnNames[fn.value] = decl.Name
	}

	for _, decl := range fx.Objects {
		o := rt.NewObject()
		switch {
		case decl.NullProto:
			if err := o.SetPrototype(nil); err != nil {
				return errors.Wrapf(err, "goja: object %s", decl.Name)
			}
		case decl.Proto != "":
			p, ok := b.objects[decl.Proto]
			if !ok {
				return unknownObject(decl.Proto)
			}
			if err := o.SetPrototype(p); err != nil {
				return errors.Wrapf(err, "goja: object %s", decl.Name)
			}
		}
		if !decl.Extensible {
			if _, err := b.reflect["preventExtensions"](goja.Undefined(), o); err != nil {
				return errors.Wrapf(err, "goja: object %s", decl.Name)
			}
		}
		b.objects[decl.Name] = o
		b.names[o] = decl.Name
	}
	return nil
}

func (b *GojaBackend) symbol(name string) *goja.Symbol {
	sym, ok := b.symbols[name]
	if !ok {
		sym = goja.NewSymbol(name)
		b.symbols[name] = sym
		b.symName[sym] = name
	}
	return sym
}

func (b *GojaBackend) toValue(l Literal) (goja.Value, error) {
	switch l.Kind {
	case LitUndefined:
		return goja.Undefined(), nil
	case LitNull:
		return goja.Null(), nil
	case LitBool:
		return b.rt.ToValue(l.Bool), nil
	case LitNumber:
		return b.rt.ToValue(l.Num), nil
	case LitString:
		return b.rt.ToValue(l.Str), nil
	case LitObject:
		o, ok := b.objects[l.Str]
		if !ok {
			return nil, unknownObject(l.Str)
		}
		return o, nil
	case LitSymbol:
		return b.symbol(l.Str), nil
	case LitFunction:
		fn, ok := b.fns[l.Str]
		if !ok {
			return nil, errors.Errorf("no function named %q in this test", l.Str)
		}
		return fn.value, nil
	default:
		return nil, errors.Errorf("unhandled literal kind %d", l.Kind)
	}
}

func (b *GojaBackend) render(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	switch x := v.(type) {
	case *goja.Object:
		if name, ok := b.fnNames[x]; ok {
			return renderFunction(name)
		}
		if name, ok := b.names[x]; ok {
			return renderObject(name)
		}
		return renderObject("anonymous")
	case *goja.Symbol:
		if name, ok := b.symName[x]; ok {
			return renderSymbol(name)
		}
		return x.String()
	}
	switch x := v.Export().(type) {
	case bool:
		return renderBool(x)
	case int64:
		return vm.NumberValue(float64(x)).Inspect()
	case float64:
		return vm.NumberValue(x).Inspect()
	case string:
		return strconv.Quote(x)
	default:
		return v.String()
	}
}

func (b *GojaBackend) renderKey(v goja.Value) string {
	if sym, ok := v.(*goja.Symbol); ok {
		return b.render(sym)
	}
	return strconv.Quote(v.String())
}

// call invokes a Reflect method, converting script exceptions to *Thrown.
func (b *GojaBackend) call(method string, args ...goja.Value) (goja.Value, error) {
	res, err := b.reflect[method](goja.Undefined(), args...)
	if err != nil {
		var ex *goja.Exception
		if errors.As(err, &ex) {
			return nil, &Thrown{Message: ex.Value().String()}
		}
		return nil, err
	}
	return res, nil
}

func (b *GojaBackend) callBool(method string, args ...goja.Value) (string, error) {
	res, err := b.call(method, args...)
	if err != nil {
		return "", err
	}
	return renderBool(res.ToBoolean()), nil
}

func (b *GojaBackend) descriptorObject(spec DescriptorSpec) (*goja.Object, error) {
	d := b.rt.NewObject()
	put := func(name string, l *Literal) error {
		if l == nil {
			return nil
		}
		v, err := b.toValue(*l)
		if err != nil {
			return err
		}
		return d.Set(name, v)
	}
	flag := func(name string, f vm.Flag) error {
		if !f.IsSet() {
			return nil
		}
		return d.Set(name, f.Bool())
	}
	for _, err := range []error{
		put("value", spec.Value),
		flag("writable", spec.Writable),
		put("get", spec.Get),
		put("set", spec.Set),
		flag("enumerable", spec.Enumerable),
		flag("configurable", spec.Configurable),
	} {
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (b *GojaBackend) renderDescriptor(desc *goja.Object) string {
	view := descriptorView{}
	str := func(name string) *string {
		v := desc.Get(name)
		if v == nil {
			return nil
		}
		s := b.render(v)
		return &s
	}
	flag := func(name string) vm.Flag {
		v := desc.Get(name)
		if v == nil {
			return vm.FlagUnset
		}
		return vm.FlagOf(v.ToBoolean())
	}
	view.Value, view.Get, view.Set = str("value"), str("get"), str("set")
	view.Writable, view.Enumerable, view.Configurable = flag("writable"), flag("enumerable"), flag("configurable")
	return view.String()
}

func (b *GojaBackend) Eval(step *Step) (string, error) {
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

	o, ok := b.objects[step.Object]
	if !ok {
		return "", unknownObject(step.Object)
	}
	var key goja.Value
	if step.Key.IsKey() {
		var err error
		if key, err = b.toValue(step.Key); err != nil {
			return "", err
		}
	}

	switch step.Op {
	case OpDefine:
		d, err := b.descriptorObject(step.Desc)
		if err != nil {
			return "", err
		}
		return b.callBool("defineProperty", o, key, d)

	case OpGetOwnProperty:
		res, err := b.call("getOwnPropertyDescriptor", o, key)
		if err != nil {
			return "", err
		}
		if goja.IsUndefined(res) {
			return Undefined.Render(), nil
		}
		return b.renderDescriptor(res.ToObject(b.rt)), nil

	case OpGet:
		res, err := b.call("get", o, key)
		if err != nil {
			return "", err
		}
		return b.render(res), nil

	case OpSet:
		v, err := b.toValue(step.Value)
		if err != nil {
			return "", err
		}
		return b.callBool("set", o, key, v)

	case OpDelete:
		return b.callBool("deleteProperty", o, key)

	case OpHas:
		return b.callBool("has", o, key)

	case OpHasOwn:
		res, err := b.call("getOwnPropertyDescriptor", o, key)
		if err != nil {
			return "", err
		}
		return renderBool(!goja.IsUndefined(res)), nil

	case OpGetPrototypeOf:
		res, err := b.call("getPrototypeOf", o)
		if err != nil {
			return "", err
		}
		return b.render(res), nil

	case OpSetPrototypeOf:
		proto, err := b.toValue(step.Proto)
		if err != nil {
			return "", err
		}
		return b.callBool("setPrototypeOf", o, proto)

	case OpPreventExtensions:
		return b.callBool("preventExtensions", o)

	case OpIsExtensible:
		return b.callBool("isExtensible", o)

	case OpOwnKeys:
		res, err := b.call("ownKeys", o)
		if err != nil {
			return "", err
		}
		arr := res.ToObject(b.rt)
		n := arr.Get("length").ToInteger()
		keys := make([]string, 0, n)
		for i := int64(0); i < n; i++ {
			keys = append(keys, b.renderKey(arr.Get(strconv.FormatInt(i, 10))))
		}
		return renderKeys(keys), nil

	default:
		return "", errors.Errorf("unsupported operation %q", step.Op)
	}
}
