package harness

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	herrors "objmodel/pkg/errors"
	"objmodel/pkg/vm"
)

type LiteralKind uint8

const (
	LitUndefined LiteralKind = iota
	LitNull
	LitBool
	LitNumber
	LitString
	LitObject
	LitSymbol
	LitFunction
)

// Literal is an engine-independent value written in a scenario. Objects,
// symbols and functions are referenced by fixture name.
type Literal struct {
	Kind LiteralKind
	Bool bool
	Num  float64
	Str  string // string contents, or the referenced name
}

var Undefined = Literal{Kind: LitUndefined}

// Render returns the canonical text both backends produce for this value.
func (l Literal) Render() string {
	switch l.Kind {
	case LitNull:
		return "null"
	case LitBool:
		return renderBool(l.Bool)
	case LitNumber:
		return vm.NumberValue(l.Num).Inspect()
	case LitString:
		return strconv.Quote(l.Str)
	case LitObject:
		return renderObject(l.Str)
	case LitSymbol:
		return renderSymbol(l.Str)
	case LitFunction:
		return renderFunction(l.Str)
	default:
		return "undefined"
	}
}

// IsKey reports whether the literal can address a property.
func (l Literal) IsKey() bool {
	return l.Kind == LitString || l.Kind == LitSymbol
}

func renderBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func renderObject(name string) string   { return "[object " + name + "]" }
func renderSymbol(name string) string   { return "Symbol(" + name + ")" }
func renderFunction(name string) string { return "[Function: " + name + "]" }

func renderKeys(keys []string) string {
	return "[" + strings.Join(keys, ", ") + "]"
}

// thrownText is the observation recorded for a step that threw.
const thrownText = "throws"

func nodePos(file string, node *yaml.Node) herrors.Position {
	return herrors.Position{File: file, Line: node.Line, Column: node.Column}
}

// decodeLiteral reads a scalar value. Besides plain YAML scalars it accepts
// the tags !undefined, !object NAME, !symbol NAME and !fn NAME. Use -0.0
// (not -0) for negative zero and .nan / .inf / -.inf for the specials.
func decodeLiteral(file string, node *yaml.Node) (Literal, error) {
	if node.Kind != yaml.ScalarNode {
		return Literal{}, herrors.NewLoadError(nodePos(file, node), "expected a scalar value")
	}
	switch node.ShortTag() {
	case "!undefined":
		return Undefined, nil
	case "!object":
		return Literal{Kind: LitObject, Str: node.Value}, nil
	case "!symbol":
		return Literal{Kind: LitSymbol, Str: node.Value}, nil
	case "!fn":
		return Literal{Kind: LitFunction, Str: node.Value}, nil
	case "!!null":
		return Literal{Kind: LitNull}, nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return Literal{}, herrors.NewLoadError(nodePos(file, node), "bad boolean").CausedBy(err)
		}
		return Literal{Kind: LitBool, Bool: b}, nil
	case "!!int", "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return Literal{}, herrors.NewLoadError(nodePos(file, node), "bad number %q", node.Value).CausedBy(err)
		}
		return Literal{Kind: LitNumber, Num: f}, nil
	case "!!str":
		return Literal{Kind: LitString, Str: node.Value}, nil
	default:
		return Literal{}, herrors.NewLoadError(nodePos(file, node), "unknown value tag %s", node.Tag)
	}
}

func decodeKey(file string, node *yaml.Node) (Literal, error) {
	l, err := decodeLiteral(file, node)
	if err != nil {
		return Literal{}, err
	}
	if !l.IsKey() {
		return Literal{}, herrors.NewLoadError(nodePos(file, node), "property keys must be strings or !symbol, got %s", l.Render())
	}
	return l, nil
}

func decodeBool(file string, node *yaml.Node) (bool, error) {
	l, err := decodeLiteral(file, node)
	if err != nil {
		return false, err
	}
	if l.Kind != LitBool {
		return false, herrors.NewLoadError(nodePos(file, node), "expected true or false, got %s", l.Render())
	}
	return l.Bool, nil
}

// DescriptorSpec is the descriptor object passed to a define step. Only the
// fields written in the scenario are present.
type DescriptorSpec struct {
	Value        *Literal
	Get          *Literal
	Set          *Literal
	Writable     vm.Flag
	Enumerable   vm.Flag
	Configurable vm.Flag
}

func decodeDescriptor(file string, node *yaml.Node) (DescriptorSpec, error) {
	var spec DescriptorSpec
	if node.Kind != yaml.MappingNode {
		return spec, herrors.NewLoadError(nodePos(file, node), "descriptor must be a mapping")
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		name, val := node.Content[i], node.Content[i+1]
		switch name.Value {
		case "value", "get", "set":
			l, err := decodeLiteral(file, val)
			if err != nil {
				return spec, err
			}
			switch name.Value {
			case "value":
				spec.Value = &l
			case "get":
				spec.Get = &l
			default:
				spec.Set = &l
			}
		case "writable", "enumerable", "configurable":
			b, err := decodeBool(file, val)
			if err != nil {
				return spec, err
			}
			switch name.Value {
			case "writable":
				spec.Writable = vm.FlagOf(b)
			case "enumerable":
				spec.Enumerable = vm.FlagOf(b)
			default:
				spec.Configurable = vm.FlagOf(b)
			}
		default:
			return spec, herrors.NewLoadError(nodePos(file, name), "unknown descriptor field %q", name.Value)
		}
	}
	return spec, nil
}

// view renders the present fields.
func (d DescriptorSpec) view() descriptorView {
	v := descriptorView{Writable: d.Writable, Enumerable: d.Enumerable, Configurable: d.Configurable}
	render := func(l *Literal) *string {
		if l == nil {
			return nil
		}
		s := l.Render()
		return &s
	}
	v.Value, v.Get, v.Set = render(d.Value), render(d.Get), render(d.Set)
	return v
}

// descriptorView is a descriptor with its values already rendered, so that
// descriptors from different engines compare as text.
type descriptorView struct {
	Value, Get, Set                    *string
	Writable, Enumerable, Configurable vm.Flag
}

func (d descriptorView) String() string {
	var parts []string
	add := func(name string, s *string) {
		if s != nil {
			parts = append(parts, name+": "+*s)
		}
	}
	flag := func(name string, f vm.Flag) {
		if f.IsSet() {
			parts = append(parts, name+": "+renderBool(f.Bool()))
		}
	}
	add("value", d.Value)
	flag("writable", d.Writable)
	add("get", d.Get)
	add("set", d.Set)
	flag("enumerable", d.Enumerable)
	flag("configurable", d.Configurable)
	return "{" + strings.Join(parts, ", ") + "}"
}
