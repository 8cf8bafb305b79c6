// Package pyast parses Python source files with tree-sitter and exposes the
// typed-node helpers the extraction and detection layers are built on.
//
// The package deliberately stays close to the raw tree: callers receive
// *sitter.Node values and a small vocabulary of accessors (attribute chains,
// call arguments, enclosing loops). Higher-level facts about the code live in
// the extract package.
package pyast

import (
	"context"
	"fmt"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// DefaultMaxFileSize is the largest source file the parser accepts.
const DefaultMaxFileSize = 10 * 1024 * 1024

// ParserOption configures a Parser instance.
type ParserOption func(*Parser)

// WithMaxFileSize sets the maximum file size the parser will accept.
func WithMaxFileSize(bytes int64) ParserOption {
	return func(p *Parser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// Parser parses Python source into a File.
//
// Description:
//
//	Parser uses tree-sitter to parse Python source files into the node tree
//	the extraction and detection layers walk. Content is validated for size
//	and UTF-8 before parsing; trees containing syntax errors are rejected.
//
// Thread Safety:
//
//	Parser instances are safe for concurrent use. Each Parse call creates
//	its own tree-sitter parser instance internally, so multiple goroutines
//	may call Parse simultaneously on the same Parser.
//
// Example:
//
//	parser := NewParser()
//	f, err := parser.Parse(ctx, content, "train.py")
type Parser struct {
	maxFileSize int64
}

// NewParser creates a Parser with the given options.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// File is a parsed Python source file. Close must be called to release the
// underlying tree.
type File struct {
	Path   string
	Source []byte
	Root   *sitter.Node

	tree *sitter.Tree
}

// Close releases the parse tree.
func (f *File) Close() {
	if f.tree != nil {
		f.tree.Close()
		f.tree = nil
	}
}

// Parse parses Python source into a File.
//
// Empty content and trees containing syntax errors both fail with ErrSyntax:
// the analyzer treats either as a per-file parse failure, never a run
// failure. Content that is too large or not UTF-8 fails with ErrFileTooLarge
// or ErrInvalidContent respectively.
func (p *Parser) Parse(ctx context.Context, content []byte, path string) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}

	if int64(len(content)) > p.maxFileSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), p.maxFileSize)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrSyntax)
	}
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent)
	}

	// New parser instance per call for thread safety.
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}

	root := tree.RootNode()
	if root == nil {
		tree.Close()
		return nil, fmt.Errorf("%w: nil root node", ErrSyntax)
	}
	if root.HasError() {
		tree.Close()
		return nil, fmt.Errorf("%w: source contains syntax errors", ErrSyntax)
	}

	return &File{
		Path:   path,
		Source: content,
		Root:   root,
		tree:   tree,
	}, nil
}
