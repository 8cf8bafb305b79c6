// Package knowledge loads the read-only dictionaries the detectors match
// against: tabular-data (dataframe) methods, known model-constructor methods
// per library, and tensor operations.
//
// The dictionaries ship as embedded YAML defaults and can be overridden by a
// directory of YAML files. They are loaded once at startup and shared by all
// workers; a missing or malformed file is a configuration error, never a
// per-file analysis error.
package knowledge

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var defaults embed.FS

// File names looked up inside a knowledge directory.
const (
	DataFrameMethodsFile = "dataframe_methods.yaml"
	ModelMethodsFile     = "model_methods.yaml"
	TensorOperationsFile = "tensor_operations.yaml"
)

// TensorOperation is one entry of the tensor-operation dictionary.
type TensorOperation struct {
	Name         string `yaml:"name"`
	TensorInputs int    `yaml:"tensor_inputs"`
}

// Base holds the three knowledge dictionaries. Read-only after Load.
type Base struct {
	// DataFrameMethods are methods on tabular objects that return a new
	// object rather than mutating in place.
	DataFrameMethods []string `yaml:"dataframe_methods"`

	// TabularReturning are calls and methods whose result is itself a
	// tabular object, used to seed dataframe-variable inference.
	TabularReturning []string `yaml:"tabular_returning"`

	// ModelMethods maps a library name to its known model-constructor and
	// model-handling method names.
	ModelMethods map[string][]string `yaml:"model_methods"`

	// TensorOperations lists known tensor operations with the number of
	// tensor inputs each takes.
	TensorOperations []TensorOperation `yaml:"tensor_operations"`

	dfMethods map[string]bool
	tabular   map[string]bool
	tensorOps map[string]bool
}

type dataframeDoc struct {
	DataFrameMethods []string `yaml:"dataframe_methods"`
	TabularReturning []string `yaml:"tabular_returning"`
}

type modelDoc struct {
	ModelMethods map[string][]string `yaml:"model_methods"`
}

type tensorDoc struct {
	TensorOperations []TensorOperation `yaml:"tensor_operations"`
}

var (
	defaultOnce sync.Once
	defaultBase *Base
)

// Default returns the compiled-in knowledge base.
func Default() *Base {
	defaultOnce.Do(func() {
		b, err := load(func(name string) ([]byte, error) {
			return defaults.ReadFile("data/" + name)
		})
		if err != nil {
			// Embedded data is part of the build; failing to parse it is a
			// programming error, not a runtime condition.
			panic(fmt.Sprintf("knowledge: embedded defaults: %v", err))
		}
		defaultBase = b
	})
	return defaultBase
}

// Load reads the three knowledge files from dir. Every file must be present
// and well-formed.
func Load(dir string) (*Base, error) {
	return load(func(name string) ([]byte, error) {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read knowledge file: %w", err)
		}
		return data, nil
	})
}

func load(read func(string) ([]byte, error)) (*Base, error) {
	b := &Base{}

	var df dataframeDoc
	if err := readDoc(read, DataFrameMethodsFile, &df); err != nil {
		return nil, err
	}
	b.DataFrameMethods = df.DataFrameMethods
	b.TabularReturning = df.TabularReturning

	var md modelDoc
	if err := readDoc(read, ModelMethodsFile, &md); err != nil {
		return nil, err
	}
	b.ModelMethods = md.ModelMethods

	var td tensorDoc
	if err := readDoc(read, TensorOperationsFile, &td); err != nil {
		return nil, err
	}
	b.TensorOperations = td.TensorOperations

	if len(b.DataFrameMethods) == 0 || len(b.ModelMethods) == 0 {
		return nil, fmt.Errorf("%w: empty dictionary", ErrMalformed)
	}

	b.index()
	return b, nil
}

func readDoc(read func(string) ([]byte, error), name string, out any) error {
	data, err := read(name)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMissing, name, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	return nil
}

func (b *Base) index() {
	b.dfMethods = make(map[string]bool, len(b.DataFrameMethods))
	for _, m := range b.DataFrameMethods {
		b.dfMethods[m] = true
	}
	b.tabular = make(map[string]bool, len(b.TabularReturning))
	for _, m := range b.TabularReturning {
		b.tabular[m] = true
	}
	// Only operations combining more than one tensor matter to the rules.
	b.tensorOps = make(map[string]bool)
	for _, op := range b.TensorOperations {
		if op.TensorInputs > 1 {
			b.tensorOps[op.Name] = true
		}
	}
}

// IsDataFrameMethod reports whether name is a known returns-new-object
// tabular method.
func (b *Base) IsDataFrameMethod(name string) bool {
	return b.dfMethods[name]
}

// ReturnsDataFrame reports whether name is known to produce a tabular object.
func (b *Base) ReturnsDataFrame(name string) bool {
	return b.tabular[name]
}

// IsTensorOperation reports whether name is a known multi-input tensor
// operation.
func (b *Base) IsTensorOperation(name string) bool {
	return b.tensorOps[name]
}

// IsModelMethod reports whether name appears under any of the given
// libraries in the model dictionary.
func (b *Base) IsModelMethod(name string, libraries []string) bool {
	for _, lib := range libraries {
		for _, m := range b.ModelMethods[lib] {
			if m == name {
				return true
			}
		}
	}
	return false
}

// ModelMethodNames returns the model dictionary flattened across libraries.
func (b *Base) ModelMethodNames() []string {
	var out []string
	for _, methods := range b.ModelMethods {
		out = append(out, methods...)
	}
	return out
}

// ModelLibraries returns the library names present in the model dictionary.
func (b *Base) ModelLibraries() []string {
	out := make([]string, 0, len(b.ModelMethods))
	for lib := range b.ModelMethods {
		out = append(out, lib)
	}
	return out
}
