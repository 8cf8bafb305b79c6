package knowledge

import "errors"

var (
	// ErrMissing indicates a knowledge file could not be read.
	ErrMissing = errors.New("knowledge file missing")

	// ErrMalformed indicates a knowledge file could not be parsed.
	ErrMalformed = errors.New("knowledge file malformed")
)
