package analyzer

import "errors"

var (
	// ErrNoPythonFiles indicates a project directory contains no Python
	// source files.
	ErrNoPythonFiles = errors.New("project contains no python files")

	// ErrResultWrite indicates a project's result file could not be written
	// even after a retry. The project is not logged as completed so a
	// resumed run retries it.
	ErrResultWrite = errors.New("result file write failed")
)
