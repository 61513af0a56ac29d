// Package presets loads named experiment families from YAML.
package presets

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"

	"epinet/domain/core"
	"epinet/domain/params"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var defaultPresets []byte

// Preset is one named family of experiments differing only in population size
type Preset struct {
	Name        string            `yaml:"-" json:"name"`
	Description string            `yaml:"description" json:"description"`
	Output      string            `yaml:"output" json:"output"`
	Populations []int             `yaml:"populations" json:"populations"`
	Experiment  params.Experiment `yaml:"experiment" json:"experiment"`
}

// Experiments expands the preset into one validated experiment per population
func (p Preset) Experiments() ([]params.Experiment, error) {
	if len(p.Populations) == 0 {
		return nil, fmt.Errorf("%w: preset %s lists no populations", params.ErrInvalidConfig, p.Name)
	}
	out := make([]params.Experiment, 0, len(p.Populations))
	for _, pop := range p.Populations {
		exp := p.Experiment
		exp.Scientists = pop
		exp = exp.WithDefaults()
		if err := exp.Validate(); err != nil {
			return nil, fmt.Errorf("preset %s (population %d): %w", p.Name, pop, err)
		}
		out = append(out, exp)
	}
	return out, nil
}

// Set is a collection of presets keyed by name
type Set struct {
	presets map[string]Preset
}

type file struct {
	Presets map[string]Preset `yaml:"presets"`
}

// Load parses a presets document and validates every entry
func Load(r io.Reader) (*Set, error) {
	var f file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}
	if len(f.Presets) == 0 {
		return nil, fmt.Errorf("%w: no presets defined", params.ErrInvalidConfig)
	}
	set := &Set{presets: make(map[string]Preset, len(f.Presets))}
	for name, p := range f.Presets {
		p.Name = name
		if _, err := p.Experiments(); err != nil {
			return nil, err
		}
		set.presets[name] = p
	}
	return set, nil
}

// LoadFile reads presets from path
func LoadFile(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Default returns the built-in presets
func Default() *Set {
	set, err := Load(bytes.NewReader(defaultPresets))
	if err != nil {
		panic(fmt.Sprintf("built-in presets are invalid: %v", err))
	}
	return set
}

// Resolve returns the presets at path, or the built-in ones when path is empty
func Resolve(path string) (*Set, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// Names lists preset names in sorted order
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.presets))
	for name := range s.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns the named preset
func (s *Set) Preset(name string) (Preset, error) {
	p, ok := s.presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %s", core.ErrPresetNotFound, name)
	}
	return p, nil
}

// Get expands the named preset into its experiments
func (s *Set) Get(name string) ([]params.Experiment, error) {
	p, err := s.Preset(name)
	if err != nil {
		return nil, err
	}
	return p.Experiments()
}

// All returns every preset in name order
func (s *Set) All() []Preset {
	out := make([]Preset, 0, len(s.presets))
	for _, name := range s.Names() {
		out = append(out, s.presets[name])
	}
	return out
}
