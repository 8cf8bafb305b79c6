package extract

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlscent/mlscent/knowledge"
	"github.com/mlscent/mlscent/pyast"
)

func parseFile(t *testing.T, source string) *pyast.File {
	t.Helper()
	f, err := pyast.NewParser().Parse(context.Background(), []byte(source), "test.py")
	require.NoError(t, err)
	t.Cleanup(f.Close)
	return f
}

func TestImports(t *testing.T) {
	f := parseFile(t, `import pandas as pd
import numpy as np
import os.path
from tensorflow import keras
from torch import nn as tnn

def noop():
    pass
`)
	m := Imports(f)

	path, ok := m.PathFor("pd")
	require.True(t, ok)
	assert.Equal(t, "pandas", path)

	path, ok = m.PathFor("keras")
	require.True(t, ok)
	assert.Equal(t, "tensorflow.keras", path)

	path, ok = m.PathFor("tnn")
	require.True(t, ok)
	assert.Equal(t, "torch.nn", path)

	// A plain dotted import binds its first segment.
	path, ok = m.PathFor("os")
	require.True(t, ok)
	assert.Equal(t, "os.path", path)

	alias, ok := m.AliasFor("numpy")
	require.True(t, ok)
	assert.Equal(t, "np", alias)

	assert.True(t, m.Imported("tensorflow"))
	assert.True(t, m.Imported("torch"))
	assert.False(t, m.Imported("sklearn"))
	assert.ElementsMatch(t, []string{"pandas", "numpy", "os", "tensorflow", "torch"}, m.Libraries())
}

func TestOwningLibrary(t *testing.T) {
	f := parseFile(t, `import pandas as pd
from tensorflow import keras

def use(path):
    frame = pd.read_csv("x.csv")
    keras.backend.clear_session()
    mystery.call()
`)
	m := Imports(f)

	call := findFirst(t, f, "call", `pd.read_csv("x.csv")`)
	assert.Equal(t, "pandas", m.OwningLibrary(call, f.Source))

	attr := findFirst(t, f, "attribute", "keras.backend")
	assert.Equal(t, "tensorflow", m.OwningLibrary(attr, f.Source))

	unknown := findFirst(t, f, "call", "mystery.call()")
	assert.Equal(t, UnknownLibrary, m.OwningLibrary(unknown, f.Source))
}

func TestDataFrames(t *testing.T) {
	f := parseFile(t, `import pandas as pd

def clean(path):
    df = pd.read_csv(path)
    trimmed = df.dropna()
    col = trimmed["age"]
    renamed = trimmed
    n = len(df)
    other = compute(path)
    df.fillna(0)
`)
	fns := f.Functions()
	require.Len(t, fns, 1)

	ctx := NewContext(f, fns[0], Imports(f), knowledge.Default())
	d := ctx.DataFrames

	assert.True(t, d.Has("df"))
	assert.True(t, d.Has("trimmed"))
	assert.True(t, d.Has("col"))     // subscript projection
	assert.True(t, d.Has("renamed")) // plain rename
	assert.False(t, d.Has("n"))
	assert.False(t, d.Has("other"))

	// df has two method calls recorded: dropna and fillna, in source order.
	calls := d.MethodCalls("df")
	require.Len(t, calls, 2)
	assert.Equal(t, "dropna", pyast.CallName(calls[0], f.Source))
	assert.Equal(t, "fillna", pyast.CallName(calls[1], f.Source))

	require.Len(t, d.Accesses("trimmed"), 1)
}

func TestDefinitionsAndUsages(t *testing.T) {
	f := parseFile(t, `def run(items):
    x = 1
    y = x + 2
    x = y
    for item in items:
        total = item + x
`)
	fns := f.Functions()
	require.Len(t, fns, 1)
	src := f.Source

	defs := definitions(fns[0].Body, src)
	require.Contains(t, defs, "x")
	require.Contains(t, defs, "y")
	require.Contains(t, defs, "item")
	require.Contains(t, defs, "total")

	// Last write wins: x's defining node is the second assignment (line 4).
	assert.Equal(t, 4, pyast.Line(defs["x"]))

	uses := usages(fns[0].Body, src)
	// x is read on lines 3 and 6.
	require.Len(t, uses["x"], 2)
	assert.Equal(t, 3, pyast.Line(uses["x"][0]))
	assert.Equal(t, 6, pyast.Line(uses["x"][1]))
	// Assignment targets are not reads.
	assert.Empty(t, uses["total"])
}

// findFirst returns the first node of the given type whose text matches.
func findFirst(t *testing.T, f *pyast.File, nodeType, text string) *sitter.Node {
	t.Helper()
	var found *sitter.Node
	pyast.Walk(f.Root, func(n *sitter.Node) bool {
		if found == nil && n.Type() == nodeType && pyast.Text(n, f.Source) == text {
			found = n
		}
		return found == nil
	})
	require.NotNil(t, found, "node %q of type %s not found", text, nodeType)
	return found
}
