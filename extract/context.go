package extract

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/mlscent/mlscent/knowledge"
	"github.com/mlscent/mlscent/pyast"
)

// Context is the per-function bundle of extracted facts handed to every
// detector. Built fresh for each function and discarded afterwards; facts
// never leak between functions.
type Context struct {
	File     *pyast.File
	Function pyast.Function

	// Aliases is the file-scope import map, shared across the file's
	// functions.
	Aliases *AliasMap

	// DataFrames are the function's inferred tabular variables with their
	// observed method calls and subscript accesses.
	DataFrames *DataFrames

	// Definitions maps each name to its last defining node in syntactic
	// order.
	Definitions map[string]*sitter.Node

	// Usages maps each name to its ordered read references.
	Usages map[string][]*sitter.Node

	// KB is the shared read-only knowledge base.
	KB *knowledge.Base
}

// NewContext runs the extractors over one function of a parsed file.
func NewContext(f *pyast.File, fn pyast.Function, aliases *AliasMap, kb *knowledge.Base) *Context {
	return &Context{
		File:        f,
		Function:    fn,
		Aliases:     aliases,
		DataFrames:  dataFrames(fn.Body, f.Source, aliases, kb),
		Definitions: definitions(fn.Body, f.Source),
		Usages:      usages(fn.Body, f.Source),
		KB:          kb,
	}
}

// Source returns the file's source bytes, the form most node accessors need.
func (c *Context) Source() []byte {
	return c.File.Source
}
