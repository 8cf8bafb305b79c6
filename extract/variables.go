package extract

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/mlscent/mlscent/pyast"
)

// definitions maps each assigned name in a function body to its most recent
// defining node in syntactic order (last write wins, no control-flow merge).
// For-loop targets count as definitions; the defining node is the assignment
// or for statement itself.
func definitions(body *sitter.Node, src []byte) map[string]*sitter.Node {
	defs := make(map[string]*sitter.Node)
	if body == nil {
		return defs
	}
	pyast.Walk(body, func(n *sitter.Node) bool {
		switch n.Type() {
		case "assignment", "augmented_assignment":
			for _, name := range targetNames(n.ChildByFieldName("left"), src) {
				defs[name] = n
			}
		case "for_statement":
			for _, name := range targetNames(n.ChildByFieldName("left"), src) {
				defs[name] = n
			}
		}
		return true
	})
	return defs
}

// targetNames flattens an assignment target into the plain identifiers it
// binds. Subscript and attribute targets mutate an existing object rather
// than binding a name, so they are skipped.
func targetNames(target *sitter.Node, src []byte) []string {
	if target == nil {
		return nil
	}
	switch target.Type() {
	case "identifier":
		return []string{pyast.Text(target, src)}
	case "pattern_list", "tuple_pattern", "list_pattern":
		var out []string
		for i := 0; i < int(target.NamedChildCount()); i++ {
			out = append(out, targetNames(target.NamedChild(i), src)...)
		}
		return out
	}
	return nil
}

// usages maps each name to its ordered read references within a function
// body. Identifiers in binding or label positions are excluded: assignment
// targets, attribute names, and keyword-argument names.
func usages(body *sitter.Node, src []byte) map[string][]*sitter.Node {
	uses := make(map[string][]*sitter.Node)
	if body == nil {
		return uses
	}
	pyast.Walk(body, func(n *sitter.Node) bool {
		if n.Type() != "identifier" {
			return true
		}
		if isBindingPosition(n) {
			return true
		}
		name := pyast.Text(n, src)
		uses[name] = append(uses[name], n)
		return true
	})
	return uses
}

func isBindingPosition(n *sitter.Node) bool {
	parent := n.Parent()
	if parent == nil {
		return false
	}
	switch parent.Type() {
	case "attribute":
		return pyast.SameNode(parent.ChildByFieldName("attribute"), n)
	case "keyword_argument":
		return pyast.SameNode(parent.ChildByFieldName("name"), n)
	case "assignment", "augmented_assignment", "for_statement":
		return pyast.SameNode(parent.ChildByFieldName("left"), n)
	case "pattern_list", "tuple_pattern", "list_pattern", "parameters", "default_parameter", "typed_parameter":
		return true
	}
	return false
}
