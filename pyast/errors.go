package pyast

import "errors"

// Sentinel errors for the pyast package.
var (
	// ErrFileTooLarge indicates the source exceeds the parser's size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrInvalidContent indicates the source is not valid UTF-8.
	ErrInvalidContent = errors.New("invalid content")

	// ErrSyntax indicates the source could not be parsed into a usable tree.
	ErrSyntax = errors.New("syntax error")
)
