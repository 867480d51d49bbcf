// Package datasets describes the known statistics sources: where their files
// live, which layout they use and how their columns map onto records.
package datasets

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/bethyw/pkg/areas"
	"github.com/hazyhaar/bethyw/pkg/importer"
)

//go:embed datasets.yaml
var defaultRegistry []byte

// File is one input file of a source.
type File struct {
	Name     string                 `yaml:"name" json:"name"`
	URL      string                 `yaml:"url,omitempty" json:"url,omitempty"`
	Encoding string                 `yaml:"encoding,omitempty" json:"encoding,omitempty"`
	Columns  importer.ColumnMapping `yaml:"columns" json:"-"`
}

// Source is a dataset made of one or more files sharing a layout.
type Source struct {
	Code        string          `yaml:"code" json:"code"`
	Name        string          `yaml:"name" json:"name"`
	Description string          `yaml:"description,omitempty" json:"description,omitempty"`
	Layout      importer.Layout `yaml:"layout" json:"layout"`
	Files       []File          `yaml:"files" json:"files"`
}

// Registry is the parsed dataset list. Areas is the authority list that is
// always imported first; Datasets are the optional statistics sources.
type Registry struct {
	Areas    Source   `yaml:"areas"`
	Datasets []Source `yaml:"datasets"`
}

// UnknownDatasetError is returned when a code does not name any dataset.
type UnknownDatasetError struct {
	Code string
}

func (e *UnknownDatasetError) Error() string { return "No dataset matches key: " + e.Code }

func (e *UnknownDatasetError) Unwrap() error { return areas.ErrNotFound }

// Default returns the built-in registry.
func Default() (*Registry, error) {
	return Parse(defaultRegistry, "built-in registry")
}

// Load reads a registry from a YAML file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes and validates a registry. name is used in error messages.
func Parse(data []byte, name string) (*Registry, error) {
	var r Registry
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", name, err)
	}
	if err := r.validate(); err != nil {
		return nil, fmt.Errorf("registry %s: %w", name, err)
	}
	return &r, nil
}

func (r *Registry) validate() error {
	seen := make(map[string]bool, len(r.Datasets)+1)
	for _, src := range append([]Source{r.Areas}, r.Datasets...) {
		key := areas.FoldCode(src.Code)
		if key == "" {
			return fmt.Errorf("source %q: missing code", src.Name)
		}
		if strings.EqualFold(key, "all") {
			return fmt.Errorf("source code %q is reserved", src.Code)
		}
		if seen[key] {
			return fmt.Errorf("duplicate source code %q", src.Code)
		}
		seen[key] = true

		dec, err := importer.Get(src.Layout)
		if err != nil {
			return fmt.Errorf("source %s: %w", src.Code, err)
		}
		if len(src.Files) == 0 {
			return fmt.Errorf("source %s: no files", src.Code)
		}
		for _, f := range src.Files {
			if f.Name == "" {
				return fmt.Errorf("source %s: file without name", src.Code)
			}
			if err := dec.Validate(f.Columns); err != nil {
				return fmt.Errorf("source %s file %s: %w", src.Code, f.Name, err)
			}
		}
	}
	return nil
}

// Get returns the dataset (or the areas source) with the given code, ignoring case.
func (r *Registry) Get(code string) (*Source, error) {
	key := areas.FoldCode(code)
	if areas.FoldCode(r.Areas.Code) == key {
		return &r.Areas, nil
	}
	for i := range r.Datasets {
		if areas.FoldCode(r.Datasets[i].Code) == key {
			return &r.Datasets[i], nil
		}
	}
	return nil, &UnknownDatasetError{Code: code}
}

// All returns every statistics dataset in registry order.
func (r *Registry) All() []*Source {
	out := make([]*Source, len(r.Datasets))
	for i := range r.Datasets {
		out[i] = &r.Datasets[i]
	}
	return out
}

// Select resolves command-line dataset arguments. Each argument may hold a
// comma-separated list. No arguments, or "all" anywhere, selects every
// dataset. Duplicates are dropped and registry order is kept.
func (r *Registry) Select(args []string) ([]*Source, error) {
	wanted := importer.ParseStringFilter(args)
	if wanted.Empty() {
		return r.All(), nil
	}
	for _, arg := range args {
		for _, code := range strings.Split(arg, ",") {
			if code = strings.TrimSpace(code); code == "" {
				continue
			}
			if src, err := r.Get(code); err != nil || src == &r.Areas {
				return nil, &UnknownDatasetError{Code: code}
			}
		}
	}
	var out []*Source
	for _, src := range r.All() {
		if wanted.Contains(src.Code) {
			out = append(out, src)
		}
	}
	return out, nil
}
