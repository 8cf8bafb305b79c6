// Package inspector runs the full analysis pipeline over a single Python
// source file: parse, extract per-function facts, and apply the smell rule
// catalogue.
package inspector

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mlscent/mlscent/extract"
	"github.com/mlscent/mlscent/knowledge"
	"github.com/mlscent/mlscent/pyast"
	"github.com/mlscent/mlscent/smells"
)

// Inspector analyzes one file at a time. It is safe for concurrent use: the
// parser creates per-call state and the knowledge base is read-only.
type Inspector struct {
	parser  *pyast.Parser
	checker *smells.Checker
	kb      *knowledge.Base
}

// New builds an inspector over the given knowledge base.
func New(kb *knowledge.Base) *Inspector {
	return &Inspector{
		parser:  pyast.NewParser(),
		checker: smells.NewChecker(),
		kb:      kb,
	}
}

// Inspect analyzes one source file and returns its finding table.
//
// A file that fails to parse returns an empty table together with the parse
// error; callers record the failure and continue with sibling files. Reading
// the file at all is an I/O error and is returned as such.
func (i *Inspector) Inspect(ctx context.Context, path string) (*smells.Table, error) {
	table := &smells.Table{}

	content, err := os.ReadFile(path)
	if err != nil {
		return table, fmt.Errorf("read source file: %w", err)
	}

	f, err := i.parser.Parse(ctx, content, path)
	if err != nil {
		return table, fmt.Errorf("parse %s: %w", path, err)
	}
	defer f.Close()

	aliases := extract.Imports(f)
	for _, fn := range f.Functions() {
		fnCtx := extract.NewContext(f, fn, aliases, i.kb)
		i.checker.Check(fnCtx, path, fn.Name, table)
	}

	slog.Debug("file inspected", "path", path, "findings", table.Len())
	return table, nil
}
