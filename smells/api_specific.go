package smells

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/mlscent/mlscent/extract"
	"github.com/mlscent/mlscent/pyast"
)

// chainIndexing flags df[...][...] style chained subscripts on inferred
// dataframe variables.
type chainIndexing struct{ rule }

func newChainIndexing() *chainIndexing {
	return &chainIndexing{rule{
		name:        "chain_indexing",
		description: "Using chain indexing may cause performance issues.",
	}}
}

// Explicit indexers select in one step, so chaining through them is not the
// pattern this rule targets.
var pandasIndexers = map[string]bool{"loc": true, "iloc": true, "at": true, "iat": true}

func (r *chainIndexing) Detect(ctx *extract.Context) []Finding {
	if !ctx.Aliases.Imported("pandas") {
		return nil
	}
	src := ctx.Source()
	var out []Finding
	pyast.Walk(ctx.Function.Body, func(n *sitter.Node) bool {
		if n.Type() != "subscript" {
			return true
		}
		inner := n.ChildByFieldName("value")
		if inner == nil {
			return true
		}
		var base *sitter.Node
		switch inner.Type() {
		case "subscript":
			base = inner.ChildByFieldName("value")
		case "attribute":
			if pandasIndexers[pyast.Text(inner.ChildByFieldName("attribute"), src)] {
				return true
			}
			base = inner.ChildByFieldName("object")
		default:
			return true
		}
		if base == nil || base.Type() != "identifier" {
			return true
		}
		if name := pyast.Text(base, src); ctx.DataFrames.Has(name) {
			out = append(out, r.finding(pyast.Line(n),
				fmt.Sprintf("Chained indexing detected on variable '%s'.", name)))
		}
		return true
	})
	return out
}

// dataFrameConversion flags reads of the deprecated `values` attribute on
// dataframe variables.
type dataFrameConversion struct{ rule }

func newDataFrameConversion() *dataFrameConversion {
	return &dataFrameConversion{rule{
		name:        "dataframe_conversion_api_misused",
		description: "Using the `values` attribute in Pandas is deprecated. Use NumPy or explicit methods instead.",
	}}
}

func (r *dataFrameConversion) Detect(ctx *extract.Context) []Finding {
	if !ctx.Aliases.Imported("pandas") {
		return nil
	}
	src := ctx.Source()
	var out []Finding
	pyast.Walk(ctx.Function.Body, func(n *sitter.Node) bool {
		if n.Type() != "attribute" {
			return true
		}
		if pyast.Text(n.ChildByFieldName("attribute"), src) != "values" {
			return true
		}
		obj := n.ChildByFieldName("object")
		if obj == nil || obj.Type() != "identifier" {
			return true
		}
		if name := pyast.Text(obj, src); ctx.DataFrames.Has(name) {
			out = append(out, r.finding(pyast.Line(n),
				fmt.Sprintf("Misuse of the 'values' attribute detected on variable '%s'. "+
					"Its return type is unclear; use to_numpy() or explicit conversion methods.", name)))
		}
		return true
	})
	return out
}

// gradientsNotCleared flags a backward() call whose nearest preceding
// statement in the same block is not a zero_grad() reset.
type gradientsNotCleared struct{ rule }

func newGradientsNotCleared() *gradientsNotCleared {
	return &gradientsNotCleared{rule{
		name:        "gradients_not_cleared_before_backward_propagation",
		description: "Gradients must be cleared using `zero_grad()` before calling `backward()`.",
	}}
}

func (r *gradientsNotCleared) Detect(ctx *extract.Context) []Finding {
	if !ctx.Aliases.Imported("torch") {
		return nil
	}
	src := ctx.Source()
	var out []Finding
	pyast.Walk(ctx.Function.Body, func(n *sitter.Node) bool {
		if n.Type() != "call" || pyast.CallName(n, src) != "backward" {
			return true
		}
		recv := pyast.CallReceiver(n)
		if recv == nil || recv.Type() != "identifier" {
			return true
		}
		if !isTrackedVariable(ctx, pyast.Text(recv, src)) {
			return true
		}
		stmt := pyast.EnclosingStatement(n, ctx.Function.Node)
		if stmt != nil && isResetStatement(pyast.PrevStatement(stmt), src) {
			return true
		}
		out = append(out, r.finding(pyast.Line(n),
			"`zero_grad()` is not the statement preceding this `backward()` call."))
		return true
	})
	return out
}

// isResetStatement reports whether stmt is a bare zero_grad() call.
func isResetStatement(stmt *sitter.Node, src []byte) bool {
	if stmt == nil || stmt.Type() != "expression_statement" {
		return false
	}
	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		child := stmt.NamedChild(i)
		if child.Type() == "call" && pyast.CallName(child, src) == "zero_grad" {
			return true
		}
	}
	return false
}

// matrixMultiplication flags the generic two-argument dot() of the numeric
// library. Operand rank cannot be determined statically, so the API call
// itself is flagged.
type matrixMultiplication struct{ rule }

func newMatrixMultiplication() *matrixMultiplication {
	return &matrixMultiplication{rule{
		name:        "matrix_multiplication_api_misused",
		description: "Using `dot()` for matrix multiplication is discouraged. Use `np.matmul` instead.",
	}}
}

func (r *matrixMultiplication) Detect(ctx *extract.Context) []Finding {
	if !ctx.Aliases.Imported("numpy") {
		return nil
	}
	src := ctx.Source()
	var out []Finding
	pyast.Walk(ctx.Function.Body, func(n *sitter.Node) bool {
		if n.Type() != "call" || pyast.CallName(n, src) != "dot" {
			return true
		}
		if ctx.Aliases.OwningLibrary(n, src) != "numpy" {
			return true
		}
		if len(pyast.CallArgs(n)) < 2 {
			return true
		}
		out = append(out, r.finding(pyast.Line(n),
			"Detected `dot()` used for matrix multiplication. Consider using `np.matmul` instead."))
		return true
	})
	return out
}

// pytorchCallMethod flags model.forward(...) invoked directly instead of
// calling the model instance.
type pytorchCallMethod struct{ rule }

func newPytorchCallMethod() *pytorchCallMethod {
	return &pytorchCallMethod{rule{
		name:        "pytorch_call_method_misused",
		description: "Direct calls to `forward` in PyTorch models are discouraged. Use the model instance directly.",
	}}
}

func (r *pytorchCallMethod) Detect(ctx *extract.Context) []Finding {
	if !ctx.Aliases.Imported("torch") {
		return nil
	}
	src := ctx.Source()
	var out []Finding
	pyast.Walk(ctx.Function.Body, func(n *sitter.Node) bool {
		if n.Type() != "call" || pyast.CallName(n, src) != "forward" {
			return true
		}
		recv := pyast.CallReceiver(n)
		if recv == nil || recv.Type() != "identifier" {
			return true
		}
		if name := pyast.Text(recv, src); isTrackedVariable(ctx, name) {
			out = append(out, r.finding(pyast.Line(n),
				fmt.Sprintf("Direct call to `%s.forward()` detected. Use the model instance directly instead.", name)))
		}
		return true
	})
	return out
}

// tensorArrayNotUsed flags tensor constants built inside a loop and then fed
// to a concatenation call in that loop: the array grows per iteration, which
// a growable tensor-array type handles correctly.
type tensorArrayNotUsed struct{ rule }

func newTensorArrayNotUsed() *tensorArrayNotUsed {
	return &tensorArrayNotUsed{rule{
		name: "tensor_array_not_used",
		description: "If `tf.constant()` is used to initialize an array and modified in a loop, it may cause errors. " +
			"Consider using `tf.TensorArray` for dynamically growing arrays.",
	}}
}

func (r *tensorArrayNotUsed) Detect(ctx *extract.Context) []Finding {
	if !ctx.Aliases.Imported("tensorflow") {
		return nil
	}
	src := ctx.Source()

	// Variables assigned from a tensorflow constant constructor inside a
	// loop, keyed by name, with the loop that owns the construction.
	constants := make(map[string]*sitter.Node)
	pyast.Walk(ctx.Function.Body, func(n *sitter.Node) bool {
		if n.Type() != "assignment" {
			return true
		}
		right := n.ChildByFieldName("right")
		left := n.ChildByFieldName("left")
		if right == nil || right.Type() != "call" || left == nil || left.Type() != "identifier" {
			return true
		}
		if pyast.CallName(right, src) != "constant" || ctx.Aliases.OwningLibrary(right, src) != "tensorflow" {
			return true
		}
		if loop := pyast.NearestLoop(n, ctx.Function.Node); loop != nil {
			constants[pyast.Text(left, src)] = loop
		}
		return true
	})
	if len(constants) == 0 {
		return nil
	}

	var out []Finding
	pyast.Walk(ctx.Function.Body, func(n *sitter.Node) bool {
		// Any multi-input tensor operation combining a loop-built constant
		// counts as growing the array.
		if n.Type() != "call" || !ctx.KB.IsTensorOperation(pyast.CallName(n, src)) {
			return true
		}
		if ctx.Aliases.OwningLibrary(n, src) != "tensorflow" {
			return true
		}
		loop := pyast.NearestLoop(n, ctx.Function.Node)
		if loop == nil {
			return true
		}
		for _, name := range operandNames(n, src) {
			if constLoop, ok := constants[name]; ok && pyast.SameNode(constLoop, loop) {
				out = append(out, r.finding(pyast.Line(n),
					fmt.Sprintf("Tensor constant '%s' is rebuilt and concatenated inside a loop. "+
						"Use `tf.TensorArray` for dynamically growing arrays.", name)))
				break
			}
		}
		return true
	})
	return out
}

// operandNames extracts identifier operands of a tensor-operation call,
// flattening a leading list argument ([a, b]).
func operandNames(call *sitter.Node, src []byte) []string {
	var out []string
	for _, arg := range pyast.CallArgs(call) {
		switch arg.Type() {
		case "identifier":
			out = append(out, pyast.Text(arg, src))
		case "list", "tuple":
			for i := 0; i < int(arg.NamedChildCount()); i++ {
				el := arg.NamedChild(i)
				if el.Type() == "identifier" {
					out = append(out, pyast.Text(el, src))
				}
			}
		}
	}
	return out
}

// isTrackedVariable reports whether the name is defined or read anywhere in
// the function, i.e. a real local object rather than an unresolved name.
func isTrackedVariable(ctx *extract.Context, name string) bool {
	if _, ok := ctx.Definitions[name]; ok {
		return true
	}
	return len(ctx.Usages[name]) > 0
}
