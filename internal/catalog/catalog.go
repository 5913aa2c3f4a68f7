// Package catalog describes the installable models and where their weight
// files are expected on disk. Downloading them is left to other tools.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goosewin/kotoba/internal/adapter"
)

//go:embed models.yaml
var builtin []byte

var ErrModelNotFound = errors.New("model not found in catalog")

// Model is one installable model.
type Model struct {
	Name        string       `yaml:"name"`
	DisplayName string       `yaml:"display_name"`
	File        string       `yaml:"file"`
	Kind        adapter.Kind `yaml:"kind"`
	License     string       `yaml:"license"`
}

// Catalog is an ordered set of models keyed by name.
type Catalog struct {
	models []Model
}

type catalogFile struct {
	Models []Model `yaml:"models"`
}

// Builtin returns the catalog shipped with the binary.
func Builtin() (*Catalog, error) {
	return Parse(builtin)
}

// Parse decodes a catalog document and validates every entry.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	seen := map[string]bool{}
	for i, model := range file.Models {
		name := strings.TrimSpace(model.Name)
		if name == "" {
			return nil, fmt.Errorf("catalog entry %d: name is required", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("catalog entry %q: duplicate name", name)
		}
		seen[name] = true
		if strings.TrimSpace(model.File) == "" {
			return nil, fmt.Errorf("catalog entry %q: file is required", name)
		}
		kind, err := adapter.ParseKind(string(model.Kind))
		if err != nil {
			return nil, fmt.Errorf("catalog entry %q: %w", name, err)
		}
		file.Models[i].Name = name
		file.Models[i].Kind = kind
		if strings.TrimSpace(model.DisplayName) == "" {
			file.Models[i].DisplayName = name
		}
	}
	return &Catalog{models: file.Models}, nil
}

// Load reads the builtin catalog and merges entries from path over it. A
// missing file is not an error.
func Load(path string) (*Catalog, error) {
	base, err := Builtin()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(path) == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return base, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	extra, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return base.Merge(extra), nil
}

// Merge returns a catalog with other's entries replacing same-named ones.
func (c *Catalog) Merge(other *Catalog) *Catalog {
	merged := &Catalog{models: append([]Model(nil), c.models...)}
	for _, model := range other.models {
		replaced := false
		for i := range merged.models {
			if merged.models[i].Name == model.Name {
				merged.models[i] = model
				replaced = true
				break
			}
		}
		if !replaced {
			merged.models = append(merged.models, model)
		}
	}
	return merged
}

// Models returns the entries in catalog order.
func (c *Catalog) Models() []Model {
	return append([]Model(nil), c.models...)
}

// Get finds a model by name, case-insensitively.
func (c *Catalog) Get(name string) (Model, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, model := range c.models {
		if strings.ToLower(model.Name) == key {
			return model, nil
		}
	}
	return Model{}, fmt.Errorf("%w: %s (available: %s)", ErrModelNotFound, name, strings.Join(c.Names(), ", "))
}

// Names returns the model names sorted alphabetically.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.models))
	for _, model := range c.models {
		names = append(names, model.Name)
	}
	sort.Strings(names)
	return names
}

// WeightsPath joins the model's file name onto dir.
func (m Model) WeightsPath(dir string) string {
	return filepath.Join(dir, m.File)
}

// Installed reports whether the weights file exists under dir.
func (m Model) Installed(dir string) bool {
	info, err := os.Stat(m.WeightsPath(dir))
	return err == nil && info.Mode().IsRegular()
}
