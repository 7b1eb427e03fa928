package harness

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	herrors "objmodel/pkg/errors"
	"objmodel/pkg/source"
)

// Op names one internal method exercised by a step.
type Op string

const (
	OpDefine            Op = "define"
	OpGetOwnProperty    Op = "getOwnProperty"
	OpGet               Op = "get"
	OpSet               Op = "set"
	OpDelete            Op = "delete"
	OpHas               Op = "has"
	OpHasOwn            Op = "hasOwn"
	OpGetPrototypeOf    Op = "getPrototypeOf"
	OpSetPrototypeOf    Op = "setPrototypeOf"
	OpPreventExtensions Op = "preventExtensions"
	OpIsExtensible      Op = "isExtensible"
	OpOwnKeys           Op = "ownKeys"
	OpCalls             Op = "calls"    // number of times a fixture function ran
	OpReceiver          Op = "receiver" // `this` of the last call of a fixture function
)

// IntrinsicObjectPrototype names Object.prototype in scenarios.
const IntrinsicObjectPrototype = "Object.prototype"

// opFields lists, per op, the step fields it requires besides op and expect.
var opFields = map[Op][]string{
	OpDefine:            {"object", "key", "desc"},
	OpGetOwnProperty:    {"object", "key"},
	OpGet:               {"object", "key"},
	OpSet:               {"object", "key", "value"},
	OpDelete:            {"object", "key"},
	OpHas:               {"object", "key"},
	OpHasOwn:            {"object", "key"},
	OpGetPrototypeOf:    {"object"},
	OpSetPrototypeOf:    {"object", "proto"},
	OpPreventExtensions: {"object"},
	OpIsExtensible:      {"object"},
	OpOwnKeys:           {"object"},
	OpCalls:             {"fn"},
	OpReceiver:          {"fn"},
}

// Step is one internal method call and its expected, rendered outcome.
type Step struct {
	Pos    herrors.Position
	Op     Op
	Object string
	Key    Literal
	Value  Literal
	Proto  Literal
	Desc   DescriptorSpec
	Fn     string
	Expect string
}

func (s *Step) String() string {
	switch s.Op {
	case OpCalls, OpReceiver:
		return string(s.Op) + " " + s.Fn
	case OpGetPrototypeOf, OpSetPrototypeOf, OpPreventExtensions, OpIsExtensible, OpOwnKeys:
		return string(s.Op) + " " + s.Object
	default:
		return string(s.Op) + " " + s.Object + "[" + s.Key.Render() + "]"
	}
}

// ObjectDecl declares a fixture object. Proto "" means Object.prototype.
type ObjectDecl struct {
	Name       string
	Proto      string
	NullProto  bool
	Extensible bool
}

// FunctionDecl declares a fixture function. It returns Returns, or throws a
// TypeError with message Throws when that is set.
type FunctionDecl struct {
	Name    string
	Returns Literal
	Throws  string
}

// Fixture is the set of named things a test starts from. Each test gets a
// fresh copy in a fresh realm.
type Fixture struct {
	Objects   []ObjectDecl
	Functions []FunctionDecl
}

func (f *Fixture) hasObject(name string) bool {
	if name == IntrinsicObjectPrototype {
		return true
	}
	for _, o := range f.Objects {
		if o.Name == name {
			return true
		}
	}
	return false
}

func (f *Fixture) hasFunction(name string) bool {
	for _, fn := range f.Functions {
		if fn.Name == name {
			return true
		}
	}
	return false
}

type Test struct {
	Name    string
	Skip    string
	Pos     herrors.Position
	Fixture Fixture
	Steps   []Step
}

type Suite struct {
	Name   string
	Path   string
	Source *source.SourceFile
	Tests  []Test
}

type rawSuite struct {
	Name      string      `yaml:"name"`
	Objects   yaml.Node   `yaml:"objects"`
	Functions yaml.Node   `yaml:"functions"`
	Tests     []yaml.Node `yaml:"tests"`
}

type rawTest struct {
	Name      string      `yaml:"name"`
	Skip      string      `yaml:"skip"`
	Objects   yaml.Node   `yaml:"objects"`
	Functions yaml.Node   `yaml:"functions"`
	Steps     []yaml.Node `yaml:"steps"`
}

type rawObject struct {
	Proto      yaml.Node `yaml:"proto"`
	Extensible *bool     `yaml:"extensible"`
}

type rawFunction struct {
	Returns yaml.Node `yaml:"returns"`
	Throws  string    `yaml:"throws"`
}

// LoadSuite reads and parses a scenario file.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read suite %s", path)
	}
	return ParseSuite(path, data)
}

// ParseSuite parses scenario YAML. Errors that can be tied to a place in the
// file are *errors.LoadError.
func ParseSuite(path string, data []byte) (*Suite, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, herrors.NewLoadError(herrors.Position{File: path}, "invalid YAML").CausedBy(err)
	}
	if len(doc.Content) == 0 {
		return nil, herrors.NewLoadError(herrors.Position{File: path}, "empty suite")
	}

	var raw rawSuite
	if err := doc.Content[0].Decode(&raw); err != nil {
		return nil, herrors.NewLoadError(nodePos(path, doc.Content[0]), "malformed suite").CausedBy(err)
	}

	s := &Suite{Name: raw.Name, Path: path, Source: source.FromFile(path, string(data))}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	var shared Fixture
	if err := decodeFixture(path, &raw.Objects, &raw.Functions, &shared); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for i := range raw.Tests {
		t, err := decodeTest(path, &raw.Tests[i], shared)
		if err != nil {
			return nil, err
		}
		if seen[t.Name] {
			return nil, herrors.NewLoadError(t.Pos, "duplicate test name %q", t.Name)
		}
		seen[t.Name] = true
		s.Tests = append(s.Tests, *t)
	}
	return s, nil
}

func decodeTest(file string, node *yaml.Node, shared Fixture) (*Test, error) {
	var raw rawTest
	if err := node.Decode(&raw); err != nil {
		return nil, herrors.NewLoadError(nodePos(file, node), "malformed test").CausedBy(err)
	}
	t := &Test{Name: raw.Name, Skip: raw.Skip, Pos: nodePos(file, node)}
	if t.Name == "" {
		return nil, herrors.NewLoadError(t.Pos, "test without a name")
	}

	t.Fixture.Objects = append([]ObjectDecl(nil), shared.Objects...)
	t.Fixture.Functions = append([]FunctionDecl(nil), shared.Functions...)
	if err := decodeFixture(file, &raw.Objects, &raw.Functions, &t.Fixture); err != nil {
		return nil, err
	}

	for i := range raw.Steps {
		step, err := decodeStep(file, &raw.Steps[i], &t.Fixture)
		if err != nil {
			return nil, err
		}
		t.Steps = append(t.Steps, *step)
	}
	return t, nil
}

// decodeFixture appends the declarations in objects and functions to fx.
// Objects may only inherit from objects declared before them.
func decodeFixture(file string, objects, functions *yaml.Node, fx *Fixture) error {
	if objects.Kind != 0 {
		if objects.Kind != yaml.MappingNode {
			return herrors.NewLoadError(nodePos(file, objects), "objects must be a mapping")
		}
		for i := 0; i+1 < len(objects.Content); i += 2 {
			name, body := objects.Content[i], objects.Content[i+1]
			if fx.hasObject(name.Value) {
				return herrors.NewLoadError(nodePos(file, name), "object %q declared twice", name.Value)
			}
			decl := ObjectDecl{Name: name.Value, Extensible: true}
			var raw rawObject
			if body.ShortTag() != "!!null" {
				if err := body.Decode(&raw); err != nil {
					return herrors.NewLoadError(nodePos(file, body), "malformed object %q", name.Value).CausedBy(err)
				}
			}
			if raw.Extensible != nil {
				decl.Extensible = *raw.Extensible
			}
			if raw.Proto.Kind != 0 {
				if raw.Proto.ShortTag() == "!!null" {
					decl.NullProto = true
				} else if !fx.hasObject(raw.Proto.Value) {
					return herrors.NewLoadError(nodePos(file, &raw.Proto), "prototype %q is not declared before %q", raw.Proto.Value, name.Value)
				} else if raw.Proto.Value != IntrinsicObjectPrototype {
					decl.Proto = raw.Proto.Value
				}
			}
			fx.Objects = append(fx.Objects, decl)
		}
	}

	if functions.Kind != 0 {
		if functions.Kind != yaml.MappingNode {
			return herrors.NewLoadError(nodePos(file, functions), "functions must be a mapping")
		}
		for i := 0; i+1 < len(functions.Content); i += 2 {
			name, body := functions.Content[i], functions.Content[i+1]
			if fx.hasFunction(name.Value) {
				return herrors.NewLoadError(nodePos(file, name), "function %q declared twice", name.Value)
			}
			decl := FunctionDecl{Name: name.Value, Returns: Undefined}
			var raw rawFunction
			if body.ShortTag() != "!!null" {
				if err := body.Decode(&raw); err != nil {
					return herrors.NewLoadError(nodePos(file, body), "malformed function %q", name.Value).CausedBy(err)
				}
			}
			if raw.Returns.Kind != 0 {
				l, err := decodeLiteral(file, &raw.Returns)
				if err != nil {
					return err
				}
				decl.Returns = l
			}
			decl.Throws = raw.Throws
			fx.Functions = append(fx.Functions, decl)
		}
	}

	// returned values may name anything declared in the fixture
	for _, fn := range fx.Functions {
		if err := checkRefs(fx, fn.Returns, nodePos(file, functions)); err != nil {
			return err
		}
	}
	return nil
}

func checkRefs(fx *Fixture, l Literal, pos herrors.Position) error {
	switch l.Kind {
	case LitObject:
		if !fx.hasObject(l.Str) {
			return herrors.NewLoadError(pos, "unknown object %q", l.Str)
		}
	case LitFunction:
		if !fx.hasFunction(l.Str) {
			return herrors.NewLoadError(pos, "unknown function %q", l.Str)
		}
	}
	return nil
}

func decodeStep(file string, node *yaml.Node, fx *Fixture) (*Step, error) {
	pos := nodePos(file, node)
	if node.Kind != yaml.MappingNode {
		return nil, herrors.NewLoadError(pos, "step must be a mapping")
	}
	fields := make(map[string]*yaml.Node)
	for i := 0; i+1 < len(node.Content); i += 2 {
		fields[node.Content[i].Value] = node.Content[i+1]
	}

	opNode, ok := fields["op"]
	if !ok {
		return nil, herrors.NewLoadError(pos, "step without op")
	}
	step := &Step{Pos: pos, Op: Op(opNode.Value)}
	required, known := opFields[step.Op]
	if !known {
		return nil, herrors.NewLoadError(nodePos(file, opNode), "unknown operation %q", opNode.Value)
	}
	allowed := map[string]bool{"op": true, "expect": true}
	for _, f := range required {
		allowed[f] = true
		if _, ok := fields[f]; !ok {
			return nil, herrors.NewLoadError(pos, "%s step needs %q", step.Op, f)
		}
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if name := node.Content[i]; !allowed[name.Value] {
			return nil, herrors.NewLoadError(nodePos(file, name), "field %q does not apply to %s", name.Value, step.Op)
		}
	}

	var err error
	if n, ok := fields["object"]; ok {
		step.Object = n.Value
		if !fx.hasObject(step.Object) {
			return nil, herrors.NewLoadError(nodePos(file, n), "unknown object %q", step.Object)
		}
	}
	if n, ok := fields["fn"]; ok {
		step.Fn = n.Value
		if !fx.hasFunction(step.Fn) {
			return nil, herrors.NewLoadError(nodePos(file, n), "unknown function %q", step.Fn)
		}
	}
	if n, ok := fields["key"]; ok {
		if step.Key, err = decodeKey(file, n); err != nil {
			return nil, err
		}
	}
	if n, ok := fields["value"]; ok {
		if step.Value, err = decodeLiteral(file, n); err != nil {
			return nil, err
		}
		if err := checkRefs(fx, step.Value, nodePos(file, n)); err != nil {
			return nil, err
		}
	}
	if n, ok := fields["proto"]; ok {
		if step.Proto, err = decodeLiteral(file, n); err != nil {
			return nil, err
		}
		if step.Proto.Kind != LitObject && step.Proto.Kind != LitNull {
			return nil, herrors.NewLoadError(nodePos(file, n), "proto must be !object or null")
		}
		if err := checkRefs(fx, step.Proto, nodePos(file, n)); err != nil {
			return nil, err
		}
	}
	if n, ok := fields["desc"]; ok {
		if step.Desc, err = decodeDescriptor(file, n); err != nil {
			return nil, err
		}
		for _, l := range []*Literal{step.Desc.Value, step.Desc.Get, step.Desc.Set} {
			if l == nil {
				continue
			}
			if err := checkRefs(fx, *l, nodePos(file, n)); err != nil {
				return nil, err
			}
		}
	}

	expect, ok := fields["expect"]
	if !ok {
		return nil, herrors.NewLoadError(pos, "step without expect")
	}
	if step.Expect, err = decodeExpectation(file, step.Op, expect, fx); err != nil {
		return nil, err
	}
	return step, nil
}

// decodeExpectation renders the expected outcome of op in the same text form
// the backends produce.
func decodeExpectation(file string, op Op, node *yaml.Node, fx *Fixture) (string, error) {
	if node.ShortTag() == "!throws" {
		return thrownText, nil
	}
	pos := nodePos(file, node)

	switch op {
	case OpDefine, OpSet, OpDelete, OpHas, OpHasOwn, OpSetPrototypeOf, OpPreventExtensions, OpIsExtensible:
		b, err := decodeBool(file, node)
		if err != nil {
			return "", err
		}
		return renderBool(b), nil

	case OpGetOwnProperty:
		if node.Kind == yaml.ScalarNode {
			l, err := decodeLiteral(file, node)
			if err != nil {
				return "", err
			}
			if l.Kind != LitUndefined {
				return "", herrors.NewLoadError(pos, "getOwnProperty expects a descriptor mapping or !undefined")
			}
			return l.Render(), nil
		}
		spec, err := decodeDescriptor(file, node)
		if err != nil {
			return "", err
		}
		return spec.view().String(), nil

	case OpOwnKeys:
		if node.Kind != yaml.SequenceNode {
			return "", herrors.NewLoadError(pos, "ownKeys expects a sequence of keys")
		}
		keys := make([]string, 0, len(node.Content))
		for _, n := range node.Content {
			k, err := decodeKey(file, n)
			if err != nil {
				return "", err
			}
			keys = append(keys, k.Render())
		}
		return renderKeys(keys), nil

	case OpCalls:
		var n int
		if err := node.Decode(&n); err != nil {
			return "", herrors.NewLoadError(pos, "calls expects an integer").CausedBy(err)
		}
		return strconv.Itoa(n), nil

	default:
		l, err := decodeLiteral(file, node)
		if err != nil {
			return "", err
		}
		if err := checkRefs(fx, l, pos); err != nil {
			return "", err
		}
		return l.Render(), nil
	}
}
