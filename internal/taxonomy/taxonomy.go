// Package taxonomy loads the fixed set of expense categories and subcategories.
//
// The set is read once at startup from a JSON or YAML file mapping each category
// to its ordered subcategories, and is immutable afterwards.
package taxonomy

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"expensetracker/internal/core"
)

//go:embed categories.json
var defaultCategories []byte

// Taxonomy is safe for concurrent use because it is never mutated after load.
type Taxonomy struct {
	names []string
	subs  map[string][]string
}

// Load reads the taxonomy from path. An empty path selects the built-in default set.
func Load(path string) (*Taxonomy, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("categories file %s not found: %w", path, err)
		}
		return nil, fmt.Errorf("read categories file: %w", err)
	}

	raw := map[string][]string{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parse categories file %s: %w", path, err)
	}
	return New(raw)
}

// Default returns the built-in taxonomy.
func Default() *Taxonomy {
	raw := map[string][]string{}
	if err := json.Unmarshal(defaultCategories, &raw); err != nil {
		panic(fmt.Sprintf("taxonomy: embedded categories: %v", err))
	}
	t, err := New(raw)
	if err != nil {
		panic(fmt.Sprintf("taxonomy: embedded categories: %v", err))
	}
	return t
}

// New builds a taxonomy from a category to subcategories mapping. Names are trimmed,
// blanks and duplicates dropped, and subcategory order preserved.
func New(raw map[string][]string) (*Taxonomy, error) {
	t := &Taxonomy{subs: make(map[string][]string, len(raw))}
	for name, subs := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, errors.New("category names must not be blank")
		}
		if _, dup := t.subs[name]; dup {
			return nil, fmt.Errorf("duplicate category %q", name)
		}
		clean := make([]string, 0, len(subs))
		for _, s := range subs {
			s = strings.TrimSpace(s)
			if s == "" || slices.Contains(clean, s) {
				continue
			}
			clean = append(clean, s)
		}
		t.subs[name] = clean
		t.names = append(t.names, name)
	}
	if len(t.names) == 0 {
		return nil, errors.New("taxonomy has no categories")
	}
	slices.Sort(t.names)
	return t, nil
}

// Validate checks that category exists and, when subcategory is not empty, that it belongs to category.
func (t *Taxonomy) Validate(category, subcategory string) error {
	subs, ok := t.subs[category]
	if !ok {
		return core.Invalid("category", category, "unknown category, available: "+strings.Join(t.names, ", "))
	}
	if subcategory != "" && !slices.Contains(subs, subcategory) {
		return core.Invalid("subcategory", subcategory, fmt.Sprintf("unknown subcategory for %s, available: %s", category, strings.Join(subs, ", ")))
	}
	return nil
}

// Categories returns the category names in sorted order.
func (t *Taxonomy) Categories() []string {
	return slices.Clone(t.names)
}

// Subcategories returns the subcategories of category in file order.
func (t *Taxonomy) Subcategories(category string) []string {
	return slices.Clone(t.subs[category])
}

// Map returns a copy of the full mapping.
func (t *Taxonomy) Map() map[string][]string {
	out := make(map[string][]string, len(t.subs))
	for k, v := range t.subs {
		out[k] = slices.Clone(v)
	}
	return out
}

// JSON renders the taxonomy as an indented JSON object.
func (t *Taxonomy) JSON() ([]byte, error) {
	return json.MarshalIndent(t.Map(), "", "  ")
}
