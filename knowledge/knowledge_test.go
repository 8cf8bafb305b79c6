package knowledge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	b := Default()
	require.NotNil(t, b)

	assert.True(t, b.IsDataFrameMethod("dropna"))
	assert.False(t, b.IsDataFrameMethod("iterrows"))

	assert.True(t, b.ReturnsDataFrame("read_csv"))
	assert.True(t, b.ReturnsDataFrame("DataFrame"))

	assert.True(t, b.IsModelMethod("Sequential", []string{"tensorflow"}))
	assert.True(t, b.IsModelMethod("RandomForestClassifier", []string{"sklearn", "torch"}))
	assert.False(t, b.IsModelMethod("Sequential", []string{"sklearn"}))

	assert.NotEmpty(t, b.ModelMethodNames())
	assert.Contains(t, b.ModelLibraries(), "torch")
}

func TestTensorOperationFilter(t *testing.T) {
	b := Default()

	// Multi-input operations are kept.
	assert.True(t, b.IsTensorOperation("matmul"))
	assert.True(t, b.IsTensorOperation("concat"))

	// Single-input operations are filtered out.
	assert.False(t, b.IsTensorOperation("transpose"))
	assert.False(t, b.IsTensorOperation("reshape"))
}

func TestLoad_MissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissing)
}

func TestLoad_Malformed(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{DataFrameMethodsFile, ModelMethodsFile, TensorOperationsFile} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{not yaml"), 0o644))
	}
	_, err := Load(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestLoad_OverrideDir(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		DataFrameMethodsFile: "dataframe_methods: [drop]\ntabular_returning: [DataFrame]\n",
		ModelMethodsFile:     "model_methods:\n  tensorflow: [Sequential]\n",
		TensorOperationsFile: "tensor_operations:\n  - name: matmul\n    tensor_inputs: 2\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	b, err := Load(dir)
	require.NoError(t, err)
	assert.True(t, b.IsDataFrameMethod("drop"))
	assert.False(t, b.IsDataFrameMethod("dropna"))
	assert.True(t, b.IsModelMethod("Sequential", []string{"tensorflow"}))
}
