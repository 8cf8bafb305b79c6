// Package extract turns a parsed Python file into the per-function facts the
// detectors consume: import aliases, dataframe variables, and variable
// definition/usage maps.
package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/mlscent/mlscent/pyast"
)

// UnknownLibrary is returned when a node cannot be resolved to an imported
// library. Detectors treat it as "rule does not match"; it is never an error.
const UnknownLibrary = "unknown"

// ImportRecord is one imported name with the alias it is bound to in the
// file's scope.
type ImportRecord struct {
	Path  string // full dotted import path, e.g. "tensorflow.keras"
	Alias string // name used in code, e.g. "K"
	Line  int
}

// AliasMap holds a file's imports. Read-only after construction.
type AliasMap struct {
	records []ImportRecord
	byAlias map[string]string // alias -> import path
	byPath  map[string]string // import path -> alias
}

// Imports scans a parsed file for import statements and builds its alias map.
// Imports anywhere in the file count, including ones nested under guards.
func Imports(f *pyast.File) *AliasMap {
	m := &AliasMap{
		byAlias: make(map[string]string),
		byPath:  make(map[string]string),
	}
	pyast.Walk(f.Root, func(n *sitter.Node) bool {
		switch n.Type() {
		case "import_statement":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				m.add(importedName(n.NamedChild(i), "", f.Source))
			}
			return false
		case "import_from_statement":
			module := n.ChildByFieldName("module_name")
			prefix := pyast.Text(module, f.Source)
			for i := 0; i < int(n.NamedChildCount()); i++ {
				child := n.NamedChild(i)
				if pyast.SameNode(child, module) || child.Type() == "wildcard_import" {
					continue
				}
				m.add(importedName(child, prefix, f.Source))
			}
			return false
		}
		return true
	})
	return m
}

// importedName resolves one dotted_name or aliased_import entry. A plain
// dotted import binds its first segment, matching Python scoping: `import
// os.path` binds "os". From-imports bind the imported leaf name.
func importedName(n *sitter.Node, prefix string, src []byte) ImportRecord {
	rec := ImportRecord{Line: pyast.Line(n)}
	switch n.Type() {
	case "dotted_name", "identifier":
		rec.Path = pyast.Text(n, src)
		if prefix == "" {
			rec.Alias = libraryOf(rec.Path)
		} else {
			rec.Alias = rec.Path
		}
	case "aliased_import":
		rec.Path = pyast.Text(n.ChildByFieldName("name"), src)
		rec.Alias = pyast.Text(n.ChildByFieldName("alias"), src)
	default:
		return rec
	}
	if prefix != "" && rec.Path != "" {
		rec.Path = prefix + "." + rec.Path
	}
	return rec
}

func (m *AliasMap) add(rec ImportRecord) {
	if rec.Path == "" || rec.Alias == "" {
		return
	}
	m.records = append(m.records, rec)
	m.byAlias[rec.Alias] = rec.Path
	m.byPath[rec.Path] = rec.Alias
}

// Records returns the imports in source order.
func (m *AliasMap) Records() []ImportRecord {
	return m.records
}

// PathFor returns the import path an alias is bound to.
func (m *AliasMap) PathFor(alias string) (string, bool) {
	path, ok := m.byAlias[alias]
	return path, ok
}

// AliasFor returns the alias a full import path is bound to.
func (m *AliasMap) AliasFor(path string) (string, bool) {
	alias, ok := m.byPath[path]
	return alias, ok
}

// Imported reports whether the file imports the given top-level library
// (directly or through any submodule).
func (m *AliasMap) Imported(library string) bool {
	for _, rec := range m.records {
		if libraryOf(rec.Path) == library {
			return true
		}
	}
	return false
}

// Libraries returns the distinct top-level library names the file imports,
// in first-import order.
func (m *AliasMap) Libraries() []string {
	seen := make(map[string]bool)
	var out []string
	for _, rec := range m.records {
		lib := libraryOf(rec.Path)
		if lib == "" || seen[lib] {
			continue
		}
		seen[lib] = true
		out = append(out, lib)
	}
	return out
}

// OwningLibrary resolves a call, attribute, or identifier node to the
// top-level library it belongs to by walking the attribute chain to its root
// identifier and matching against the alias map. Unresolved names yield
// UnknownLibrary.
func (m *AliasMap) OwningLibrary(n *sitter.Node, src []byte) string {
	root, _ := pyast.AttributeChain(n, src)
	if root == "" {
		return UnknownLibrary
	}
	if path, ok := m.byAlias[root]; ok {
		return libraryOf(path)
	}
	return UnknownLibrary
}

func libraryOf(path string) string {
	if i := strings.IndexByte(path, '.'); i >= 0 {
		return path[:i]
	}
	return path
}
