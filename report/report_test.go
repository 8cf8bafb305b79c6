package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlscent/mlscent/smells"
)

func sampleRows(file string) []smells.Finding {
	return []smells.Finding{
		{
			FileName:       file,
			FunctionName:   "clean",
			SmellName:      "in_place_apis_misused",
			Line:           6,
			Description:    "desc",
			AdditionalInfo: "info, with a comma",
		},
		{
			FileName:     file,
			FunctionName: "compare",
			SmellName:    "nan_equivalence_comparison_misused",
			Line:         12,
			Description:  "desc",
		},
	}
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	want := sampleRows("train.py")
	require.NoError(t, Write(path, want))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWrite_EmptyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	require.NoError(t, Write(path, nil))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMerge(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(filepath.Join(dir, "b_results.csv"), sampleRows("b.py")))
	require.NoError(t, Write(filepath.Join(dir, "a_results.csv"), sampleRows("a.py")))

	// Non-CSV entries are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	overview := filepath.Join(t.TempDir(), "overview.csv")
	merged, err := Merge(dir, overview)
	require.NoError(t, err)
	require.Len(t, merged, 4)

	// Merged in file-name order, not write order.
	assert.Equal(t, "a.py", merged[0].FileName)
	assert.Equal(t, "b.py", merged[2].FileName)

	fromDisk, err := Read(overview)
	require.NoError(t, err)
	assert.Equal(t, merged, fromDisk)
}
