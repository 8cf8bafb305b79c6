// Package smells implements the fixed catalogue of machine-learning code
// smell detectors and the checker that runs them over extracted
// per-function facts.
package smells

// Finding is one detected smell occurrence. Immutable once created; rows
// accumulate in detection order and are serialized unchanged.
type Finding struct {
	FileName       string
	FunctionName   string
	SmellName      string
	Line           int
	Description    string
	AdditionalInfo string
}

// Table is an ordered accumulation of findings. Insertion order equals
// detection order.
type Table struct {
	rows []Finding
}

// Append adds findings to the table in order.
func (t *Table) Append(rows ...Finding) {
	t.rows = append(t.rows, rows...)
}

// Rows returns the accumulated findings in insertion order.
func (t *Table) Rows() []Finding {
	return t.rows
}

// Len returns the number of findings.
func (t *Table) Len() int {
	return len(t.rows)
}
