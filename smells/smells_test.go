package smells

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlscent/mlscent/extract"
	"github.com/mlscent/mlscent/knowledge"
	"github.com/mlscent/mlscent/pyast"
)

// contextFor parses source and builds the extracted context for its first
// function.
func contextFor(t *testing.T, source string) *extract.Context {
	t.Helper()
	f, err := pyast.NewParser().Parse(context.Background(), []byte(source), "test.py")
	require.NoError(t, err)
	t.Cleanup(f.Close)
	fns := f.Functions()
	require.NotEmpty(t, fns)
	return extract.NewContext(f, fns[0], extract.Imports(f), knowledge.Default())
}

func TestChainIndexing(t *testing.T) {
	ctx := contextFor(t, `import pandas as pd

def pick(path):
    df = pd.read_csv(path)
    a = df["x"]["y"]
    b = df["x"]
    c = df.loc[0]
`)
	got := newChainIndexing().Detect(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Line)
	assert.Equal(t, "chain_indexing", got[0].SmellName)
}

func TestChainIndexing_OncePerOccurrence(t *testing.T) {
	ctx := contextFor(t, `import pandas as pd

def pick(path):
    df = pd.read_csv(path)
    a = df["x"]["y"]
    b = df["u"]["v"]
`)
	got := newChainIndexing().Detect(ctx)
	assert.Len(t, got, 2)
}

func TestInPlaceAPIsMisused(t *testing.T) {
	ctx := contextFor(t, `import pandas as pd

def clean(data):
    df = pd.DataFrame(data)
    df.dropna()
    kept = df.dropna()
    df.dropna(inplace=True)
`)
	got := newInPlaceAPIs().Detect(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Line)
}

func TestNaNEquivalence(t *testing.T) {
	ctx := contextFor(t, `import numpy as np

def compare(x):
    a = x == np.nan
    b = np.nan == x
    c = x != np.nan
    d = x > 1
`)
	got := newNaNEquivalence().Detect(ctx)
	require.Len(t, got, 3)
	assert.Equal(t, 4, got[0].Line)
	assert.Equal(t, 5, got[1].Line)
	assert.Equal(t, 6, got[2].Line)
}

func TestMergeParameters(t *testing.T) {
	ctx := contextFor(t, `import pandas as pd

def combine(data, other):
    df = pd.DataFrame(data)
    a = df.merge(other)
    b = df.merge(other, how="left")
    c = df.merge(other, how="left", on="id")
    d = pd.merge(df, other)
    e = unrelated.merge(other)
`)
	got := newMergeParameters().Detect(ctx)
	// One finding per call, never one per missing parameter; merge on an
	// unknown receiver does not match.
	require.Len(t, got, 3)
	assert.Equal(t, 5, got[0].Line)
	assert.Equal(t, 6, got[1].Line)
	assert.Equal(t, 8, got[2].Line)
}

func TestGradientsNotCleared(t *testing.T) {
	ctx := contextFor(t, `import torch

def train(model, optimizer, batches):
    for batch in batches:
        loss = model(batch)
        optimizer.zero_grad()
        loss.backward()
`)
	assert.Empty(t, newGradientsNotCleared().Detect(ctx))

	ctx = contextFor(t, `import torch

def train(model, optimizer, batches):
    for batch in batches:
        loss = model(batch)
        loss.backward()
`)
	got := newGradientsNotCleared().Detect(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, 6, got[0].Line)
}

func TestGradientsNotCleared_CommentBetweenResetAndBackward(t *testing.T) {
	ctx := contextFor(t, `import torch

def train(model, optimizer, batches):
    for batch in batches:
        loss = model(batch)
        optimizer.zero_grad()
        # accumulate gradients
        loss.backward()
`)
	// A comment is not a statement and must not hide the reset.
	assert.Empty(t, newGradientsNotCleared().Detect(ctx))
}

func TestMemoryNotFreed(t *testing.T) {
	ctx := contextFor(t, `import tensorflow as tf

def sweep(configs):
    for cfg in configs:
        model = tf.keras.Sequential()
        model.fit(cfg)
`)
	got := newMemoryNotFreed().Detect(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Line)

	ctx = contextFor(t, `import tensorflow as tf

def sweep(configs):
    for cfg in configs:
        model = tf.keras.Sequential()
        model.fit(cfg)
        tf.keras.backend.clear_session()
`)
	assert.Empty(t, newMemoryNotFreed().Detect(ctx))
}

func TestDeterministicAlgorithm(t *testing.T) {
	ctx := contextFor(t, `import torch

def setup():
    torch.use_deterministic_algorithms(True)
    torch.use_deterministic_algorithms(False)
`)
	got := newDeterministicAlgorithm().Detect(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].Line)
}

func TestMatrixMultiplication(t *testing.T) {
	ctx := contextFor(t, `import numpy as np

def mul(a, b):
    c = np.dot(a, b)
    d = np.dot(a)
    e = other.dot(a, b)
`)
	got := newMatrixMultiplication().Detect(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].Line)
}

func TestPytorchCallMethod(t *testing.T) {
	ctx := contextFor(t, `import torch

def predict(model, x):
    y = model.forward(x)
`)
	got := newPytorchCallMethod().Detect(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].Line)
}

func TestHyperparametersNotSet(t *testing.T) {
	ctx := contextFor(t, `from sklearn.cluster import KMeans

def fit(data):
    model = KMeans()
    tuned = KMeans(n_clusters=8)
`)
	got := newHyperparametersNotSet().Detect(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].Line)
}

func TestTensorArrayNotUsed(t *testing.T) {
	ctx := contextFor(t, `import tensorflow as tf

def grow(items, acc):
    for item in items:
        chunk = tf.constant([item])
        acc = tf.concat([acc, chunk], 0)
`)
	got := newTensorArrayNotUsed().Detect(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, 6, got[0].Line)

	// Construction outside the loop is fine.
	ctx = contextFor(t, `import tensorflow as tf

def grow(items, acc):
    chunk = tf.constant([1])
    for item in items:
        acc = tf.concat([acc, chunk], 0)
`)
	assert.Empty(t, newTensorArrayNotUsed().Detect(ctx))
}

func TestBroadcastingNotUsed(t *testing.T) {
	ctx := contextFor(t, `import tensorflow as tf

def combine(a, b):
    tiled = tf.tile(a, [1, 3])
    c = tiled + b
    d = tf.tile(a, [1, 3]) + b
`)
	got := newBroadcastingNotUsed().Detect(ctx)
	require.Len(t, got, 2)
	assert.Equal(t, 5, got[0].Line)
	assert.Equal(t, 6, got[1].Line)
}

func TestColumnsAndDatatype(t *testing.T) {
	ctx := contextFor(t, `import pandas as pd

def load(path, data):
    a = pd.read_csv(path)
    b = pd.read_csv(path, dtype={"x": "int"})
    c = pd.DataFrame(data)
`)
	got := newColumnsAndDatatype().Detect(ctx)
	require.Len(t, got, 2)
	assert.Equal(t, 4, got[0].Line)
	assert.Equal(t, 6, got[1].Line)
}

func TestEmptyColumnMisinit(t *testing.T) {
	ctx := contextFor(t, `import pandas as pd

def prepare(data):
    df = pd.DataFrame(data)
    df["a"] = 0
    df["b"] = ""
    df["c"] = 0.0
    df["d"] = 5
    df["e"] = u''
    df["f"] = -0
    df["g"] = "x"
`)
	got := newEmptyColumnMisinit().Detect(ctx)
	require.Len(t, got, 5)
}

func TestDataFrameConversion(t *testing.T) {
	ctx := contextFor(t, `import pandas as pd

def convert(data):
    df = pd.DataFrame(data)
    raw = df.values
`)
	got := newDataFrameConversion().Detect(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Line)
}

func TestUnnecessaryIteration(t *testing.T) {
	ctx := contextFor(t, `import pandas as pd

def collect(path):
    df = pd.read_csv(path)
    rows = []
    for idx, row in df.iterrows():
        rows.append(row["a"])
`)
	got := newUnnecessaryIteration().Detect(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, 6, got[0].Line)
}

func TestChecker_AttributesFindings(t *testing.T) {
	ctx := contextFor(t, `import pandas as pd

def clean(data):
    df = pd.DataFrame(data)
    df.dropna()
`)
	var table Table
	NewChecker().Check(ctx, "clean.py", "clean", &table)
	require.NotZero(t, table.Len())
	for _, f := range table.Rows() {
		assert.Equal(t, "clean.py", f.FileName)
		assert.Equal(t, "clean", f.FunctionName)
	}
}

type panickingRule struct{ rule }

func (panickingRule) Detect(*extract.Context) []Finding { panic("boom") }

func TestChecker_RulePanicDoesNotAbort(t *testing.T) {
	ctx := contextFor(t, `import pandas as pd

def clean(data):
    df = pd.DataFrame(data)
    df.dropna()
`)
	c := &Checker{rules: []Rule{
		panickingRule{rule{name: "broken"}},
		newInPlaceAPIs(),
	}}
	var table Table
	c.Check(ctx, "clean.py", "clean", &table)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "in_place_apis_misused", table.Rows()[0].SmellName)
}
