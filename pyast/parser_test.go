package pyast

import (
	"context"
	"errors"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
)

const testSimple = `import pandas as pd

def load(path):
    df = pd.read_csv(path)
    return df

class Trainer:
    def fit(self, df):
        def inner(x):
            return x
        return inner(df)
`

const testBroken = `def broken(:
    return 1
`

func TestParse_Simple(t *testing.T) {
	p := NewParser()
	f, err := p.Parse(context.Background(), []byte(testSimple), "train.py")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	defer f.Close()

	if f.Root.Type() != "module" {
		t.Errorf("root type = %q, want module", f.Root.Type())
	}

	fns := f.Functions()
	if len(fns) != 3 {
		t.Fatalf("got %d functions, want 3", len(fns))
	}

	wantNames := []string{"load", "Trainer.fit", "Trainer.fit.inner"}
	for i, want := range wantNames {
		if fns[i].Name != want {
			t.Errorf("function %d = %q, want %q", i, fns[i].Name, want)
		}
	}

	if got := fns[0].Line(); got != 3 {
		t.Errorf("load line = %d, want 3", got)
	}
	if got := fns[1].Line(); got != 8 {
		t.Errorf("Trainer.fit line = %d, want 8", got)
	}
}

func TestParse_SyntaxError(t *testing.T) {
	p := NewParser()
	_, err := p.Parse(context.Background(), []byte(testBroken), "broken.py")
	if !errors.Is(err, ErrSyntax) {
		t.Fatalf("err = %v, want ErrSyntax", err)
	}
}

func TestParse_EmptyFile(t *testing.T) {
	p := NewParser()
	_, err := p.Parse(context.Background(), nil, "empty.py")
	if !errors.Is(err, ErrSyntax) {
		t.Fatalf("err = %v, want ErrSyntax", err)
	}
}

func TestParse_TooLarge(t *testing.T) {
	p := NewParser(WithMaxFileSize(8))
	_, err := p.Parse(context.Background(), []byte(testSimple), "big.py")
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("err = %v, want ErrFileTooLarge", err)
	}
}

func TestParse_InvalidUTF8(t *testing.T) {
	p := NewParser()
	_, err := p.Parse(context.Background(), []byte{0xff, 0xfe, 0xfd}, "bad.py")
	if !errors.Is(err, ErrInvalidContent) {
		t.Fatalf("err = %v, want ErrInvalidContent", err)
	}
}

func TestAttributeChain(t *testing.T) {
	src := `import tensorflow as tf

def f():
    tf.keras.backend.clear_session()
`
	p := NewParser()
	f, err := p.Parse(context.Background(), []byte(src), "t.py")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	defer f.Close()

	var root string
	var attrs []string
	Walk(f.Root, func(n *sitter.Node) bool {
		if n.Type() == "call" {
			root, attrs = AttributeChain(n, f.Source)
			return false
		}
		return true
	})

	if root != "tf" {
		t.Errorf("root = %q, want tf", root)
	}
	want := []string{"keras", "backend", "clear_session"}
	if len(attrs) != len(want) {
		t.Fatalf("attrs = %v, want %v", attrs, want)
	}
	for i := range want {
		if attrs[i] != want[i] {
			t.Errorf("attrs[%d] = %q, want %q", i, attrs[i], want[i])
		}
	}
}

func TestCallKeywords(t *testing.T) {
	src := `import pandas as pd

def f(df1, df2):
    return df1.merge(df2, how="inner", on="key")
`
	p := NewParser()
	f, err := p.Parse(context.Background(), []byte(src), "t.py")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	defer f.Close()

	var kws []string
	var args int
	Walk(f.Root, func(n *sitter.Node) bool {
		if n.Type() == "call" {
			kws = CallKeywords(n, f.Source)
			args = len(CallArgs(n))
			return false
		}
		return true
	})

	if args != 1 {
		t.Errorf("positional args = %d, want 1", args)
	}
	if len(kws) != 2 || kws[0] != "how" || kws[1] != "on" {
		t.Errorf("keywords = %v, want [how on]", kws)
	}
}
