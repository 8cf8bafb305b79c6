package smells

import (
	"log/slog"

	"github.com/mlscent/mlscent/extract"
)

// Checker owns the registered rule set and runs every rule over one
// function's extracted context.
//
// Description:
//
//	Checker iterates the fixed rule catalogue in registration order and
//	collects each rule's findings into the caller's table. The catalogue is
//	fixed at construction; there is no dynamic registration.
//
// Thread Safety:
//
//	Safe for concurrent use. Rules are stateless pure functions and the
//	checker holds no per-call state; callers own the table they pass in.
type Checker struct {
	rules []Rule
}

// NewChecker builds a checker with the full rule catalogue in its fixed
// order: API-specific rules first, then the generic ones.
func NewChecker() *Checker {
	return &Checker{rules: []Rule{
		newChainIndexing(),
		newDataFrameConversion(),
		newGradientsNotCleared(),
		newMatrixMultiplication(),
		newPytorchCallMethod(),
		newTensorArrayNotUsed(),
		newBroadcastingNotUsed(),
		newColumnsAndDatatype(),
		newDeterministicAlgorithm(),
		newEmptyColumnMisinit(),
		newHyperparametersNotSet(),
		newInPlaceAPIs(),
		newMemoryNotFreed(),
		newMergeParameters(),
		newNaNEquivalence(),
		newUnnecessaryIteration(),
	}}
}

// Rules returns the registered rules in invocation order.
func (c *Checker) Rules() []Rule {
	return c.rules
}

// Check invokes every rule against the context and appends the findings,
// attributed to the given file and function, to the table. A defect in one
// rule never aborts the function's analysis: the panic is logged and only
// that rule's contribution is dropped.
func (c *Checker) Check(ctx *extract.Context, fileName, functionName string, table *Table) {
	for _, r := range c.rules {
		for _, f := range c.detect(r, ctx, functionName) {
			f.FileName = fileName
			f.FunctionName = functionName
			table.Append(f)
		}
	}
}

func (c *Checker) detect(r Rule, ctx *extract.Context, functionName string) (out []Finding) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Warn("rule failed, skipping for this function",
				"rule", r.Name(),
				"function", functionName,
				"error", rec)
			out = nil
		}
	}()
	return r.Detect(ctx)
}
