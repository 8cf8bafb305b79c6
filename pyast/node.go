package pyast

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Text returns the source text of a node, or "" for nil.
func Text(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return string(src[n.StartByte():n.EndByte()])
}

// Line returns the 1-based line of a node's start position.
func Line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// Walk traverses the subtree rooted at n in preorder (source order), calling
// visit for each named node. Returning false prunes the node's subtree.
func Walk(n *sitter.Node, visit func(*sitter.Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		Walk(n.NamedChild(i), visit)
	}
}

// SameNode reports whether two node handles refer to the same tree position.
// tree-sitter hands out fresh *sitter.Node wrappers on every child access, so
// pointer identity cannot be used.
func SameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// IsLoop reports whether n is a for or while statement.
func IsLoop(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	t := n.Type()
	return t == "for_statement" || t == "while_statement"
}

// NearestLoop returns the closest loop enclosing n, walking ownership links
// upward and stopping at boundary (exclusive). Returns nil when n is not
// inside a loop within the boundary.
func NearestLoop(n, boundary *sitter.Node) *sitter.Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if SameNode(p, boundary) {
			return nil
		}
		if IsLoop(p) {
			return p
		}
	}
	return nil
}

// EnclosingStatement returns the statement node containing n within a block,
// or nil when no block encloses n before boundary.
func EnclosingStatement(n, boundary *sitter.Node) *sitter.Node {
	cur := n
	for p := cur.Parent(); p != nil; p = p.Parent() {
		if p.Type() == "block" || p.Type() == "module" {
			return cur
		}
		if SameNode(p, boundary) {
			return nil
		}
		cur = p
	}
	return nil
}

// PrevStatement returns the statement immediately preceding stmt in its
// block, or nil when stmt is the first statement. Comments are named children
// of a Python block but not statements, so they are skipped.
func PrevStatement(stmt *sitter.Node) *sitter.Node {
	if stmt == nil {
		return nil
	}
	block := stmt.Parent()
	if block == nil {
		return nil
	}
	var prev *sitter.Node
	for i := 0; i < int(block.NamedChildCount()); i++ {
		child := block.NamedChild(i)
		if SameNode(child, stmt) {
			return prev
		}
		if child.Type() == "comment" {
			continue
		}
		prev = child
	}
	return nil
}
