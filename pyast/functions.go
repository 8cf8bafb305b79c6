package pyast

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Function is a function or method definition found in a parsed file. Name is
// qualified with the enclosing class and function names (`Trainer.fit`,
// `outer.inner`) so findings can attribute nested definitions unambiguously.
type Function struct {
	Name string
	Node *sitter.Node // function_definition
	Body *sitter.Node // block
}

// Line returns the 1-based line the definition starts on.
func (f Function) Line() int {
	return Line(f.Node)
}

// Functions returns every function and method definition in the file,
// including nested ones, in source order.
func (f *File) Functions() []Function {
	var out []Function
	collectFunctions(f.Root, f.Source, "", &out)
	return out
}

func collectFunctions(n *sitter.Node, src []byte, prefix string, out *[]Function) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "decorated_definition":
			if def := child.ChildByFieldName("definition"); def != nil {
				collectDefinition(def, src, prefix, out)
			}
		case "function_definition", "class_definition":
			collectDefinition(child, src, prefix, out)
		default:
			// Definitions can hide under conditionals (e.g. version guards).
			collectFunctions(child, src, prefix, out)
		}
	}
}

func collectDefinition(def *sitter.Node, src []byte, prefix string, out *[]Function) {
	name := Text(def.ChildByFieldName("name"), src)
	if name == "" {
		return
	}
	qualified := name
	if prefix != "" {
		qualified = prefix + "." + name
	}
	body := def.ChildByFieldName("body")

	if def.Type() == "function_definition" {
		*out = append(*out, Function{Name: qualified, Node: def, Body: body})
	}
	if body != nil {
		collectFunctions(body, src, qualified, out)
	}
}
