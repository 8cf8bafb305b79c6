package smells

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/mlscent/mlscent/extract"
	"github.com/mlscent/mlscent/pyast"
)

// broadcastingNotUsed flags arithmetic on tiled tensors where broadcasting
// would avoid materializing the tiled copy.
type broadcastingNotUsed struct{ rule }

func newBroadcastingNotUsed() *broadcastingNotUsed {
	return &broadcastingNotUsed{rule{
		name: "broadcasting_feature_not_used",
		description: "Using broadcasting in TensorFlow is preferred over tiling arrays unnecessarily. " +
			"Broadcasting allows arithmetic between arrays of different shapes, saving memory and computation time.",
	}}
}

func (r *broadcastingNotUsed) Detect(ctx *extract.Context) []Finding {
	if !ctx.Aliases.Imported("tensorflow") {
		return nil
	}
	src := ctx.Source()

	isTile := func(n *sitter.Node) bool {
		return n != nil && n.Type() == "call" &&
			pyast.CallName(n, src) == "tile" &&
			ctx.Aliases.OwningLibrary(n, src) == "tensorflow"
	}

	// Variables assigned from a tile call.
	tiled := make(map[string]bool)
	pyast.Walk(ctx.Function.Body, func(n *sitter.Node) bool {
		if n.Type() != "assignment" {
			return true
		}
		left := n.ChildByFieldName("left")
		if left == nil || left.Type() != "identifier" {
			return true
		}
		if isTile(n.ChildByFieldName("right")) {
			tiled[pyast.Text(left, src)] = true
		}
		return true
	})

	var out []Finding
	pyast.Walk(ctx.Function.Body, func(n *sitter.Node) bool {
		if n.Type() != "binary_operator" {
			return true
		}
		left := n.ChildByFieldName("left")
		right := n.ChildByFieldName("right")
		if name, ok := tiledOperand(left, right, src, tiled); ok {
			out = append(out, r.finding(pyast.Line(n),
				fmt.Sprintf("Variable '%s' involves unnecessary tiling. Consider using broadcasting instead.", name)))
		} else if isTile(left) || isTile(right) {
			out = append(out, r.finding(pyast.Line(n),
				"Inline use of `tf.tile` detected. Consider using broadcasting instead."))
		}
		return true
	})
	return out
}

func tiledOperand(left, right *sitter.Node, src []byte, tiled map[string]bool) (string, bool) {
	for _, n := range []*sitter.Node{left, right} {
		if n != nil && n.Type() == "identifier" {
			if name := pyast.Text(n, src); tiled[name] {
				return name, true
			}
		}
	}
	return "", false
}

// columnsAndDatatype flags DataFrame and read_csv constructor calls missing
// an explicit dtype keyword.
type columnsAndDatatype struct{ rule }

func newColumnsAndDatatype() *columnsAndDatatype {
	return &columnsAndDatatype{rule{
		name:        "columns_and_datatype_not_explicitly_set",
		description: "Pandas' DataFrame or read_csv methods should explicitly set 'dtype' to avoid unexpected behavior.",
	}}
}

func (r *columnsAndDatatype) Detect(ctx *extract.Context) []Finding {
	if !ctx.Aliases.Imported("pandas") {
		return nil
	}
	src := ctx.Source()
	var out []Finding
	pyast.Walk(ctx.Function.Body, func(n *sitter.Node) bool {
		if n.Type() != "call" {
			return true
		}
		name := pyast.CallName(n, src)
		if name != "DataFrame" && name != "read_csv" {
			return true
		}
		if ctx.Aliases.OwningLibrary(n, src) != "pandas" {
			return true
		}
		if !pyast.HasKeyword(n, src, "dtype") {
			out = append(out, r.finding(pyast.Line(n),
				fmt.Sprintf("'dtype' not explicitly set in %s call.", name)))
		}
		return true
	})
	return out
}

// deterministicAlgorithm flags torch.use_deterministic_algorithms(True).
type deterministicAlgorithm struct{ rule }

func newDeterministicAlgorithm() *deterministicAlgorithm {
	return &deterministicAlgorithm{rule{
		name: "deterministic_algorithm_option_not_used",
		description: "Using `torch.use_deterministic_algorithms(True)` can cause performance issues. " +
			"Avoid using this option unless determinism is strictly required.",
	}}
}

func (r *deterministicAlgorithm) Detect(ctx *extract.Context) []Finding {
	if !ctx.Aliases.Imported("torch") {
		return nil
	}
	src := ctx.Source()
	var out []Finding
	pyast.Walk(ctx.Function.Body, func(n *sitter.Node) bool {
		if n.Type() != "call" || pyast.CallName(n, src) != "use_deterministic_algorithms" {
			return true
		}
		if ctx.Aliases.OwningLibrary(n, src) != "torch" {
			return true
		}
		args := pyast.CallArgs(n)
		if len(args) == 1 && args[0].Type() == "true" {
			out = append(out, r.finding(pyast.Line(n),
				"`use_deterministic_algorithms(True)` detected. Avoid unless determinism is strictly required."))
		}
		return true
	})
	return out
}

// emptyColumnMisinit flags dataframe columns initialized with a zero or
// empty-string constant.
type emptyColumnMisinit struct{ rule }

func newEmptyColumnMisinit() *emptyColumnMisinit {
	return &emptyColumnMisinit{rule{
		name: "empty_column_misinitialization",
		description: "Using zeros or empty strings to initialize new DataFrame columns may cause issues. " +
			"Consider using NaN (e.g., np.nan) instead.",
	}}
}

func (r *emptyColumnMisinit) Detect(ctx *extract.Context) []Finding {
	if !ctx.Aliases.Imported("pandas") {
		return nil
	}
	src := ctx.Source()
	var out []Finding
	pyast.Walk(ctx.Function.Body, func(n *sitter.Node) bool {
		if n.Type() != "assignment" {
			return true
		}
		left := n.ChildByFieldName("left")
		if left == nil || left.Type() != "subscript" {
			return true
		}
		base := left.ChildByFieldName("value")
		if base == nil || base.Type() != "identifier" {
			return true
		}
		name := pyast.Text(base, src)
		if !ctx.DataFrames.Has(name) {
			return true
		}
		if isEmptyConstant(n.ChildByFieldName("right"), src) {
			column := pyast.Text(left.ChildByFieldName("subscript"), src)
			out = append(out, r.finding(pyast.Line(n),
				fmt.Sprintf("Column %s in DataFrame '%s' is initialized with a zero or empty string. "+
					"Consider using NaN instead.", column, name)))
		}
		return true
	})
	return out
}

// isEmptyConstant matches zero and empty-string literals, including prefixed
// or triple-quoted empty strings (u'', """""") and negated zeros (-0).
func isEmptyConstant(n *sitter.Node, src []byte) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "integer":
		return pyast.Text(n, src) == "0"
	case "float":
		t := pyast.Text(n, src)
		return t == "0.0" || t == "0." || t == ".0"
	case "string":
		// Quote style and prefix vary; a string literal with no content
		// node is empty regardless.
		for i := 0; i < int(n.NamedChildCount()); i++ {
			switch n.NamedChild(i).Type() {
			case "string_content", "interpolation":
				return false
			}
		}
		return true
	case "unary_operator":
		op := n.ChildByFieldName("operator")
		arg := n.ChildByFieldName("argument")
		if op == nil || arg == nil || pyast.Text(op, src) != "-" {
			return false
		}
		t := arg.Type()
		return (t == "integer" || t == "float") && isEmptyConstant(arg, src)
	}
	return false
}

// hyperparametersNotSet flags model constructor calls with no arguments at
// all.
type hyperparametersNotSet struct{ rule }

func newHyperparametersNotSet() *hyperparametersNotSet {
	return &hyperparametersNotSet{rule{
		name:        "hyperparameters_not_explicitly_set",
		description: "Hyperparameters should be explicitly set when defining models to ensure clarity and reproducibility.",
	}}
}

func (r *hyperparametersNotSet) Detect(ctx *extract.Context) []Finding {
	libraries := ctx.Aliases.Libraries()
	if len(libraries) == 0 {
		return nil
	}
	src := ctx.Source()
	var out []Finding
	pyast.Walk(ctx.Function.Body, func(n *sitter.Node) bool {
		if n.Type() != "call" {
			return true
		}
		name := pyast.CallName(n, src)
		if !ctx.KB.IsModelMethod(name, libraries) {
			return true
		}
		if len(pyast.CallArgs(n)) == 0 && len(pyast.CallKeywords(n, src)) == 0 {
			out = append(out, r.finding(pyast.Line(n),
				fmt.Sprintf("Hyperparameters not explicitly set for model '%s'. "+
					"Consider defining key hyperparameters for clarity.", name)))
		}
		return true
	})
	return out
}

// inPlaceAPIs flags returns-new-object dataframe methods invoked as bare
// statements: the result is silently discarded.
type inPlaceAPIs struct{ rule }

func newInPlaceAPIs() *inPlaceAPIs {
	return &inPlaceAPIs{rule{
		name: "in_place_apis_misused",
		description: "Check whether the result of the operation is assigned to a variable or the in-place parameter is set. " +
			"Some developers mistakenly assume in-place operations always save memory.",
	}}
}

func (r *inPlaceAPIs) Detect(ctx *extract.Context) []Finding {
	if !ctx.Aliases.Imported("pandas") {
		return nil
	}
	src := ctx.Source()
	var out []Finding
	pyast.Walk(ctx.Function.Body, func(n *sitter.Node) bool {
		if n.Type() != "expression_statement" {
			return true
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			call := n.NamedChild(i)
			if call.Type() != "call" {
				continue
			}
			recv := pyast.CallReceiver(call)
			if recv == nil || recv.Type() != "identifier" || !ctx.DataFrames.Has(pyast.Text(recv, src)) {
				continue
			}
			if !ctx.KB.IsDataFrameMethod(pyast.CallName(call, src)) {
				continue
			}
			if hasTrueKeyword(call, src, "inplace") {
				continue
			}
			out = append(out, r.finding(pyast.Line(call),
				"Result of the operation is not assigned and the in-place parameter is not set; the call has no effect."))
		}
		return true
	})
	return out
}

// hasTrueKeyword reports whether the call passes name=True.
func hasTrueKeyword(call *sitter.Node, src []byte, name string) bool {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return false
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		kw := args.NamedChild(i)
		if kw.Type() != "keyword_argument" {
			continue
		}
		if pyast.Text(kw.ChildByFieldName("name"), src) != name {
			continue
		}
		if value := kw.ChildByFieldName("value"); value != nil && value.Type() == "true" {
			return true
		}
	}
	return false
}

// memoryNotFreed flags model construction inside a loop with no subsequent
// clear-session call later in the same loop body.
type memoryNotFreed struct{ rule }

func newMemoryNotFreed() *memoryNotFreed {
	return &memoryNotFreed{rule{
		name: "memory_not_freed",
		description: "Memory not freed after model definition in loops may lead to memory leakage. " +
			"Consider using `tf.keras.backend.clear_session()` to free memory explicitly.",
	}}
}

func (r *memoryNotFreed) Detect(ctx *extract.Context) []Finding {
	if !ctx.Aliases.Imported("tensorflow") {
		return nil
	}
	src := ctx.Source()
	var out []Finding
	pyast.Walk(ctx.Function.Body, func(n *sitter.Node) bool {
		if n.Type() != "call" {
			return true
		}
		if ctx.Aliases.OwningLibrary(n, src) != "tensorflow" {
			return true
		}
		if !ctx.KB.IsModelMethod(pyast.CallName(n, src), []string{"tensorflow"}) {
			return true
		}
		loop := pyast.NearestLoop(n, ctx.Function.Node)
		if loop == nil {
			return true
		}
		if !r.freedAfter(n, loop, ctx, src) {
			out = append(out, r.finding(pyast.Line(n),
				"Model defined in a loop without freeing memory afterwards. "+
					"Consider using `tf.keras.backend.clear_session()`."))
		}
		return true
	})
	return out
}

// freedAfter reports whether a clear_session call on the tensorflow library
// appears after the construction within the same loop body.
func (r *memoryNotFreed) freedAfter(construction, loop *sitter.Node, ctx *extract.Context, src []byte) bool {
	freed := false
	pyast.Walk(loop, func(n *sitter.Node) bool {
		if freed {
			return false
		}
		if n.Type() != "call" || n.StartByte() <= construction.StartByte() {
			return true
		}
		if pyast.CallName(n, src) == "clear_session" && ctx.Aliases.OwningLibrary(n, src) == "tensorflow" {
			freed = true
			return false
		}
		return true
	})
	return freed
}

// mergeParameters flags merge calls missing the how or on keyword. One
// finding per call regardless of how many parameters are missing.
// Positional equivalents are not recognized.
type mergeParameters struct{ rule }

func newMergeParameters() *mergeParameters {
	return &mergeParameters{rule{
		name: "merge_api_parameter_not_explicitly_set",
		description: "Calls to Pandas' `merge` API should explicitly set parameters like 'how', 'on', and 'validate' " +
			"to avoid unexpected behavior.",
	}}
}

func (r *mergeParameters) Detect(ctx *extract.Context) []Finding {
	if !ctx.Aliases.Imported("pandas") {
		return nil
	}
	src := ctx.Source()
	var out []Finding
	pyast.Walk(ctx.Function.Body, func(n *sitter.Node) bool {
		if n.Type() != "call" || pyast.CallName(n, src) != "merge" {
			return true
		}
		recv := pyast.CallReceiver(n)
		onDataFrame := recv != nil && recv.Type() == "identifier" && ctx.DataFrames.Has(pyast.Text(recv, src))
		if !onDataFrame && ctx.Aliases.OwningLibrary(n, src) != "pandas" {
			return true
		}
		var missing []string
		for _, required := range []string{"how", "on"} {
			if !pyast.HasKeyword(n, src, required) {
				missing = append(missing, "'"+required+"'")
			}
		}
		if len(missing) > 0 {
			out = append(out, r.finding(pyast.Line(n),
				fmt.Sprintf("Missing explicit %s in `merge` call. Also consider setting 'validate'.",
					strings.Join(missing, " and "))))
		}
		return true
	})
	return out
}

// nanEquivalence flags == and != comparisons with the numeric library's NaN
// constant on either side.
type nanEquivalence struct{ rule }

func newNaNEquivalence() *nanEquivalence {
	return &nanEquivalence{rule{
		name:        "nan_equivalence_comparison_misused",
		description: "Direct equivalence comparisons with NaN should be avoided. Use functions like np.isnan() instead.",
	}}
}

func (r *nanEquivalence) Detect(ctx *extract.Context) []Finding {
	if !ctx.Aliases.Imported("numpy") {
		return nil
	}
	src := ctx.Source()
	var out []Finding
	pyast.Walk(ctx.Function.Body, func(n *sitter.Node) bool {
		if n.Type() != "comparison_operator" {
			return true
		}
		if !hasEqualityOperator(n) {
			return true
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if r.isNaN(n.NamedChild(i), ctx, src) {
				out = append(out, r.finding(pyast.Line(n),
					"Direct equivalence comparison with NaN detected. Use np.isnan() instead."))
				break
			}
		}
		return true
	})
	return out
}

// hasEqualityOperator scans the comparison's operator tokens, which are
// unnamed children, for == or !=.
func hasEqualityOperator(cmp *sitter.Node) bool {
	for i := 0; i < int(cmp.ChildCount()); i++ {
		switch cmp.Child(i).Type() {
		case "==", "!=":
			return true
		}
	}
	return false
}

func (r *nanEquivalence) isNaN(operand *sitter.Node, ctx *extract.Context, src []byte) bool {
	if operand == nil || operand.Type() != "attribute" {
		return false
	}
	if pyast.Text(operand.ChildByFieldName("attribute"), src) != "nan" {
		return false
	}
	return ctx.Aliases.OwningLibrary(operand, src) == "numpy"
}

// unnecessaryIteration flags loops that iterate a dataframe row by row and
// perform dataframe work inside the body that vectorized methods would
// cover.
type unnecessaryIteration struct{ rule }

func newUnnecessaryIteration() *unnecessaryIteration {
	return &unnecessaryIteration{rule{
		name: "unnecessary_iteration",
		description: "Iterating through Pandas objects is generally slow. " +
			"Use built-in vectorized methods (e.g., join, groupby) instead of loops.",
	}}
}

// Row-wise iterators known to be slow on large frames.
var rowIterators = map[string]bool{"iterrows": true, "itertuples": true}

func (r *unnecessaryIteration) Detect(ctx *extract.Context) []Finding {
	if !ctx.Aliases.Imported("pandas") {
		return nil
	}
	src := ctx.Source()
	var out []Finding
	pyast.Walk(ctx.Function.Body, func(n *sitter.Node) bool {
		if n.Type() != "for_statement" {
			return true
		}
		iter := n.ChildByFieldName("right")
		if iter == nil || iter.Type() != "call" || !rowIterators[pyast.CallName(iter, src)] {
			return true
		}
		recv := pyast.CallReceiver(iter)
		if recv == nil || recv.Type() != "identifier" || !ctx.DataFrames.Has(pyast.Text(recv, src)) {
			return true
		}

		// Loop targets carry rows of the frame; operations on them inside
		// the body count as dataframe work.
		rowVars := make(map[string]bool)
		for _, name := range loopTargets(n, src) {
			rowVars[name] = true
		}
		if r.bodyTouchesFrame(n.ChildByFieldName("body"), ctx, rowVars, src) {
			out = append(out, r.finding(pyast.Line(n),
				"Row-wise iteration over a DataFrame detected. Consider using vectorized operations instead."))
		}
		return true
	})
	return out
}

func loopTargets(loop *sitter.Node, src []byte) []string {
	left := loop.ChildByFieldName("left")
	if left == nil {
		return nil
	}
	if left.Type() == "identifier" {
		return []string{pyast.Text(left, src)}
	}
	var out []string
	for i := 0; i < int(left.NamedChildCount()); i++ {
		if el := left.NamedChild(i); el.Type() == "identifier" {
			out = append(out, pyast.Text(el, src))
		}
	}
	return out
}

// bodyTouchesFrame scans a loop body for append calls or binary-operation
// assignments whose operands derive from a dataframe or a loop row variable.
func (r *unnecessaryIteration) bodyTouchesFrame(body *sitter.Node, ctx *extract.Context, rowVars map[string]bool, src []byte) bool {
	isFrameDerived := func(n *sitter.Node) bool {
		base := subscriptBase(n)
		if base == nil || base.Type() != "identifier" {
			return false
		}
		name := pyast.Text(base, src)
		return ctx.DataFrames.Has(name) || rowVars[name]
	}

	found := false
	pyast.Walk(body, func(n *sitter.Node) bool {
		if found {
			return false
		}
		switch n.Type() {
		case "call":
			if pyast.CallName(n, src) == "append" {
				if args := pyast.CallArgs(n); len(args) > 0 && isFrameDerived(args[0]) {
					found = true
				}
			}
		case "assignment":
			right := n.ChildByFieldName("right")
			if right != nil && right.Type() == "binary_operator" {
				if isFrameDerived(right.ChildByFieldName("left")) || isFrameDerived(right.ChildByFieldName("right")) {
					found = true
				}
			}
		}
		return !found
	})
	return found
}

// subscriptBase unwraps nested subscripts to the underlying expression.
func subscriptBase(n *sitter.Node) *sitter.Node {
	for n != nil && n.Type() == "subscript" {
		n = n.ChildByFieldName("value")
	}
	return n
}
