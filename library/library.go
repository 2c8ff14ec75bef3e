// Package library is a tag-searchable catalog of coordinate systems,
// metrics and sets of derived tensors. The built-in catalog is embedded;
// more entries can be loaded from YAML files of the same shape.
package library

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/njchilds90/spacetime/field"
	"github.com/njchilds90/spacetime/symbolic"
	"github.com/njchilds90/spacetime/tensor"
)

var (
	ErrNotFound     = errors.New("library: no matching entry")
	ErrWrongKind    = errors.New("library: entry has the wrong kind")
	ErrInvalidEntry = errors.New("library: invalid entry")
)

// MaxFileSize bounds catalog files read by LoadFile.
const MaxFileSize = 1 << 20

//go:embed catalog.yaml
var builtinYAML []byte

var validate = validator.New()

// Kind classifies an entry.
type Kind string

const (
	KindCoordinates Kind = "coordinates"
	KindMetric      Kind = "metric"
	KindTensor      Kind = "tensor"
)

// Entry is one catalog item. Metric entries carry their coordinate names and
// the covariant components as expression strings; tensor entries name the
// field kinds to define, in order.
type Entry struct {
	Name        string     `yaml:"name" json:"name" validate:"required"`
	Kind        Kind       `yaml:"kind" json:"kind" validate:"oneof=coordinates metric tensor"`
	Tags        []string   `yaml:"tags" json:"tags"`
	Coordinates []string   `yaml:"coordinates,omitempty" json:"coordinates,omitempty" validate:"required_unless=Kind tensor,dive,required"`
	Metric      [][]string `yaml:"metric,omitempty" json:"metric,omitempty" validate:"required_if=Kind metric"`
	Tensors     []string   `yaml:"tensors,omitempty" json:"tensors,omitempty" validate:"required_if=Kind tensor"`
}

// HasTag reports whether e carries tag, ignoring case.
func (e Entry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Validate checks the struct tags and that a metric is square over its
// coordinates.
func (e Entry) Validate() error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidEntry, e.Name, err)
	}
	if e.Kind == KindMetric {
		n := len(e.Coordinates)
		if len(e.Metric) != n {
			return fmt.Errorf("%w: %q: %d metric rows for %d coordinates", ErrInvalidEntry, e.Name, len(e.Metric), n)
		}
		for i, row := range e.Metric {
			if len(row) != n {
				return fmt.Errorf("%w: %q: metric row %d has %d entries", ErrInvalidEntry, e.Name, i, len(row))
			}
		}
	}
	return nil
}

type catalogFile struct {
	Entries []Entry `yaml:"entries"`
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) ([]Entry, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshaling catalog: %w", err)
	}
	for _, e := range f.Entries {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}
	return f.Entries, nil
}

// LoadFile reads a catalog document from path.
func LoadFile(path string) ([]Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat catalog: %w", err)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("catalog %s too large: %d bytes (max %d)", path, info.Size(), MaxFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	entries, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// ============================================================
// Catalog
// ============================================================

// Catalog holds entries by name. Later additions replace earlier entries
// with the same name.
type Catalog struct {
	entries []Entry
	index   map[string]int
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{index: make(map[string]int)}
}

// Builtin returns a catalog holding the embedded entries.
func Builtin() *Catalog {
	entries, err := Parse(builtinYAML)
	if err != nil {
		panic("library: embedded catalog: " + err.Error())
	}
	c := New()
	if err := c.Add(entries...); err != nil {
		panic("library: embedded catalog: " + err.Error())
	}
	return c
}

// Add validates and inserts entries.
func (c *Catalog) Add(entries ...Entry) error {
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
		if i, ok := c.index[e.Name]; ok {
			c.entries[i] = e
			continue
		}
		c.index[e.Name] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	return nil
}

// Load adds the entries of a catalog file.
func (c *Catalog) Load(path string) error {
	entries, err := LoadFile(path)
	if err != nil {
		return err
	}
	return c.Add(entries...)
}

// Entries returns every entry in insertion order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Catalog) Len() int { return len(c.entries) }

// Result is a scored search hit.
type Result struct {
	Entry Entry
	Score int
}

// Search scores every entry against terms: +10 when a term is a substring
// of the name, +1 for each tag containing it, case-insensitively. Each
// filter tag costs 100 when the entry violates it (a true filter requires
// the tag, a false one forbids it). Entries scoring above zero are returned
// best first, ties by name.
func (c *Catalog) Search(terms []string, filters map[string]bool) []Result {
	var out []Result
	for _, e := range c.entries {
		score := 0
		name := strings.ToLower(e.Name)
		for _, term := range terms {
			term = strings.ToLower(term)
			if strings.Contains(name, term) {
				score += 10
			}
			for _, tag := range e.Tags {
				if strings.Contains(strings.ToLower(tag), term) {
					score++
				}
			}
		}
		for tag, want := range filters {
			if e.HasTag(tag) != want {
				score -= 100
			}
		}
		if score > 0 {
			out = append(out, Result{Entry: e, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Entry.Name < out[j].Entry.Name
	})
	return out
}

// Get returns the entry named name, or else the best search hit for it.
func (c *Catalog) Get(name string) (Entry, error) {
	if i, ok := c.index[name]; ok {
		return c.entries[i], nil
	}
	hits := c.Search(strings.Fields(name), nil)
	if len(hits) == 0 {
		return Entry{}, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return hits[0].Entry, nil
}

func (c *Catalog) getKind(name string, kinds ...Kind) (Entry, error) {
	e, err := c.Get(name)
	if err != nil {
		return Entry{}, err
	}
	for _, k := range kinds {
		if e.Kind == k {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%q is a %s entry: %w", e.Name, e.Kind, ErrWrongKind)
}

// Coordinates builds the coordinate system of a coordinates or metric entry.
func (c *Catalog) Coordinates(name string) (*tensor.CoordinateSystem, error) {
	e, err := c.getKind(name, KindCoordinates, KindMetric)
	if err != nil {
		return nil, err
	}
	return tensor.NewCoordinateSystem(e.Coordinates...)
}

// Metric builds the metric of a metric entry with units applied to every
// component.
func (c *Catalog) Metric(name string, units Units) (*tensor.MetricTensor, error) {
	e, err := c.getKind(name, KindMetric)
	if err != nil {
		return nil, err
	}
	cs, err := tensor.NewCoordinateSystem(e.Coordinates...)
	if err != nil {
		return nil, err
	}
	rows := make([][]symbolic.Expr, len(e.Metric))
	for i, row := range e.Metric {
		rows[i] = make([]symbolic.Expr, len(row))
		for j, src := range row {
			v, err := symbolic.Parse(src)
			if err != nil {
				return nil, fmt.Errorf("%q [%d,%d]: %w", e.Name, i, j, err)
			}
			rows[i][j] = units.Apply(v)
		}
	}
	return tensor.NewMetricTensor(rows, cs)
}

// Kinds resolves the field kinds of a tensor entry.
func (c *Catalog) Kinds(name string) ([]tensor.Kind, error) {
	e, err := c.getKind(name, KindTensor)
	if err != nil {
		return nil, err
	}
	kinds := make([]tensor.Kind, 0, len(e.Tensors))
	for _, n := range e.Tensors {
		k, ok := field.ByName(n)
		if !ok {
			return nil, fmt.Errorf("%q names unknown tensor %q: %w", e.Name, n, ErrInvalidEntry)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Resolve accepts a single field kind name such as "riemann" or the name
// of a tensor entry, which may pull in prerequisites.
func (c *Catalog) Resolve(name string) ([]tensor.Kind, error) {
	if k, ok := field.ByName(name); ok {
		return []tensor.Kind{k}, nil
	}
	return c.Kinds(name)
}
