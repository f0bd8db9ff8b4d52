// Package codeschema derives the class name and method parameters of an
// object from its Python source. The code is parsed, never executed.
package codeschema

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// DefaultClassName is reported whenever no usable class could be read.
const DefaultClassName = "GenericActiveObject"

const initMethod = "__init__"

type Status int

const (
	StatusOK Status = iota
	// StatusNoClass means the code parsed but declares no class.
	StatusNoClass
	// StatusMalformed means the code could not be parsed.
	StatusMalformed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoClass:
		return "no_class"
	case StatusMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

type Schema struct {
	ClassName string
	Init      []string
	Methods   map[string][]string
	// Order lists the keys of Methods in declaration order.
	Order []string
}

// Result is either a schema read from the code (StatusOK) or the default
// schema together with the reason it was used.
type Result struct {
	Schema Schema
	Status Status
	Reason string
}

func (r Result) Degraded() bool {
	return r.Status != StatusOK
}

func Default() Schema {
	return Schema{
		ClassName: DefaultClassName,
		Init:      []string{},
		Methods:   map[string][]string{},
		Order:     []string{},
	}
}

// Function is one non-constructor method of the class.
type Function struct {
	Name       string
	Parameters []string
}

// Functions lists the methods in declaration order. The constructor is not
// included.
func (s Schema) Functions() []Function {
	out := make([]Function, 0, len(s.Order))
	for _, name := range s.Order {
		out = append(out, Function{Name: name, Parameters: s.Methods[name]})
	}
	return out
}

func degraded(status Status, reason string) Result {
	return Result{Schema: Default(), Status: status, Reason: reason}
}

func Extract(code string) Result {
	return ExtractContext(context.Background(), code)
}

// ExtractContext never fails: unparsable code and code without a class both
// yield the default schema, distinguished by Status.
func ExtractContext(ctx context.Context, code string) Result {
	src := []byte(code)
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return degraded(StatusMalformed, err.Error())
	}
	root := tree.RootNode()
	if root == nil {
		return degraded(StatusMalformed, "empty syntax tree")
	}
	if root.HasError() {
		return degraded(StatusMalformed, describeError(root))
	}
	class := firstClass(root)
	if class == nil {
		return degraded(StatusNoClass, "no class definition found")
	}
	return Result{Schema: readClass(class, src), Status: StatusOK}
}

// firstClass returns the first top-level class. Later classes are ignored.
func firstClass(root *sitter.Node) *sitter.Node {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		if def := definition(root.NamedChild(i)); def != nil && def.Type() == "class_definition" {
			return def
		}
	}
	return nil
}

// definition unwraps decorators.
func definition(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == "decorated_definition" {
		return n.ChildByFieldName("definition")
	}
	return n
}

func readClass(class *sitter.Node, src []byte) Schema {
	out := Default()
	if name := class.ChildByFieldName("name"); name != nil {
		out.ClassName = name.Content(src)
	}
	body := class.ChildByFieldName("body")
	if body == nil {
		return out
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		fn := definition(body.NamedChild(i))
		if fn == nil || fn.Type() != "function_definition" {
			continue
		}
		nameNode := fn.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nameNode.Content(src)
		params := readParameters(fn.ChildByFieldName("parameters"), src)
		if name == initMethod {
			out.Init = params
			continue
		}
		if _, seen := out.Methods[name]; !seen {
			out.Order = append(out.Order, name)
		}
		out.Methods[name] = params
	}
	return out
}

// readParameters reports named parameters, dropping a leading self or cls
// receiver. The receiver is recognised by name only: decorators are not
// inspected, so a method whose first parameter has another name (def f(this))
// reports it, and a staticmethod keeps all of its parameters. Splat
// parameters and bare separators are not reported.
func readParameters(params *sitter.Node, src []byte) []string {
	out := []string{}
	if params == nil {
		return out
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		name := ""
		switch p.Type() {
		case "identifier":
			name = p.Content(src)
		case "typed_parameter":
			if first := p.NamedChild(0); first != nil && first.Type() == "identifier" {
				name = first.Content(src)
			}
		case "default_parameter", "typed_default_parameter":
			if n := p.ChildByFieldName("name"); n != nil && n.Type() == "identifier" {
				name = n.Content(src)
			}
		}
		if name == "" {
			continue
		}
		if i == 0 && (name == "self" || name == "cls") {
			continue
		}
		out = append(out, name)
	}
	return out
}

func describeError(root *sitter.Node) string {
	if n := findError(root); n != nil {
		p := n.StartPoint()
		return fmt.Sprintf("syntax error at line %d column %d", p.Row+1, p.Column+1)
	}
	return "syntax error"
}

func findError(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if found := findError(n.Child(i)); found != nil {
			return found
		}
	}
	return nil
}
