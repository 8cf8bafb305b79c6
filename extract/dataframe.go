package extract

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/mlscent/mlscent/knowledge"
	"github.com/mlscent/mlscent/pyast"
)

// DataFrames holds the tabular-data facts for one function: which variables
// are inferred to hold dataframe-like objects, and the ordered method calls
// and subscript accesses observed on each. Once a name is inferred tabular it
// stays tabular for the whole function; there is no flow-sensitive narrowing
// on later reassignment.
type DataFrames struct {
	names     []string // insertion order
	variables map[string]bool
	methods   map[string][]*sitter.Node // call nodes, source order
	accesses  map[string][]*sitter.Node // subscript nodes, source order
}

// dataFrames infers the tabular variables of a function body.
//
// Seeding and propagation mirror how tabular objects actually spread through
// a function: a variable assigned from a tabular-library constructor or
// reader seeds the set, and the set grows to a fixed point through plain
// renames, known tabular-returning method calls, and subscript projections.
func dataFrames(body *sitter.Node, src []byte, aliases *AliasMap, kb *knowledge.Base) *DataFrames {
	d := &DataFrames{
		variables: make(map[string]bool),
		methods:   make(map[string][]*sitter.Node),
		accesses:  make(map[string][]*sitter.Node),
	}
	if body == nil {
		return d
	}

	assignments := collectAssignments(body, src)

	// Seed: x = pd.DataFrame(...), x = pd.read_csv(...), etc.
	for _, a := range assignments {
		if a.target == "" || a.right == nil || a.right.Type() != "call" {
			continue
		}
		if aliases.OwningLibrary(a.right, src) != "pandas" {
			continue
		}
		if kb.ReturnsDataFrame(pyast.CallName(a.right, src)) {
			d.mark(a.target)
		}
	}

	// Propagate to a fixed point over the remaining assignments.
	for changed := true; changed; {
		changed = false
		for _, a := range assignments {
			if a.target == "" || a.right == nil || d.variables[a.target] {
				continue
			}
			if d.derivesDataFrame(a.right, src, kb) {
				d.mark(a.target)
				changed = true
			}
		}
	}

	// Record every method call and subscript access on an inferred variable.
	pyast.Walk(body, func(n *sitter.Node) bool {
		switch n.Type() {
		case "call":
			recv := pyast.CallReceiver(n)
			if recv != nil && recv.Type() == "identifier" {
				if name := pyast.Text(recv, src); d.variables[name] {
					d.methods[name] = append(d.methods[name], n)
				}
			}
		case "subscript":
			value := n.ChildByFieldName("value")
			if value != nil && value.Type() == "identifier" {
				if name := pyast.Text(value, src); d.variables[name] {
					d.accesses[name] = append(d.accesses[name], n)
				}
			}
		}
		return true
	})

	return d
}

// derivesDataFrame reports whether an assignment right-hand side produces a
// tabular object from an already-inferred variable.
func (d *DataFrames) derivesDataFrame(right *sitter.Node, src []byte, kb *knowledge.Base) bool {
	switch right.Type() {
	case "identifier":
		return d.variables[pyast.Text(right, src)]
	case "call":
		recv := pyast.CallReceiver(right)
		if recv == nil || recv.Type() != "identifier" {
			return false
		}
		return d.variables[pyast.Text(recv, src)] && kb.ReturnsDataFrame(pyast.CallName(right, src))
	case "subscript":
		value := right.ChildByFieldName("value")
		return value != nil && value.Type() == "identifier" && d.variables[pyast.Text(value, src)]
	}
	return false
}

func (d *DataFrames) mark(name string) {
	if !d.variables[name] {
		d.variables[name] = true
		d.names = append(d.names, name)
	}
}

// Has reports whether name was inferred to hold a tabular object.
func (d *DataFrames) Has(name string) bool {
	return d.variables[name]
}

// Names returns the inferred variable names in inference order.
func (d *DataFrames) Names() []string {
	return d.names
}

// MethodCalls returns the call nodes invoked on the named variable, in
// source order.
func (d *DataFrames) MethodCalls(name string) []*sitter.Node {
	return d.methods[name]
}

// Accesses returns the subscript nodes reading or writing the named
// variable, in source order.
func (d *DataFrames) Accesses(name string) []*sitter.Node {
	return d.accesses[name]
}

type assignment struct {
	target string // "" when the left side is not a plain identifier
	right  *sitter.Node
}

// collectAssignments gathers assignment statements in source order,
// recording the target name only for plain single-identifier targets.
func collectAssignments(body *sitter.Node, src []byte) []assignment {
	var out []assignment
	pyast.Walk(body, func(n *sitter.Node) bool {
		if n.Type() != "assignment" {
			return true
		}
		a := assignment{right: n.ChildByFieldName("right")}
		if left := n.ChildByFieldName("left"); left != nil && left.Type() == "identifier" {
			a.target = pyast.Text(left, src)
		}
		out = append(out, a)
		return true
	})
	return out
}
