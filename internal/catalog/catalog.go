// Package catalog holds the frozen table of presets and container rules
// that drive the Planner. Both tables are authored as YAML data embedded
// into the binary; nothing here is mutated at runtime.
package catalog

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed data/presets.yaml data/container_rules.yaml
var dataFS embed.FS

type presetsFile struct {
	Presets []Preset `yaml:"presets"`
}

type rulesFile struct {
	Rules []ContainerRule `yaml:"rules"`
}

// Catalog is the immutable, process-wide set of presets and container
// rules. Construct one with Load; the facade holds the single instance.
type Catalog struct {
	presets []Preset
	byID    map[string]Preset
	rules   map[Container]ContainerRule
}

// Load parses the embedded preset and container-rule data. It only returns
// an error if the embedded YAML itself is malformed, which would indicate a
// build-time defect rather than a runtime condition.
func Load() (*Catalog, error) {
	var pf presetsFile
	raw, err := dataFS.ReadFile("data/presets.yaml")
	if err != nil {
		return nil, fmt.Errorf("catalog: read presets.yaml: %w", err)
	}
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("catalog: parse presets.yaml: %w", err)
	}

	var rf rulesFile
	raw, err = dataFS.ReadFile("data/container_rules.yaml")
	if err != nil {
		return nil, fmt.Errorf("catalog: read container_rules.yaml: %w", err)
	}
	if err := yaml.Unmarshal(raw, &rf); err != nil {
		return nil, fmt.Errorf("catalog: parse container_rules.yaml: %w", err)
	}

	c := &Catalog{
		presets: pf.Presets,
		byID:    make(map[string]Preset, len(pf.Presets)),
		rules:   make(map[Container]ContainerRule, len(rf.Rules)),
	}
	for _, p := range pf.Presets {
		c.byID[p.ID] = p
	}
	for _, r := range rf.Rules {
		c.rules[r.Container] = r
	}
	return c, nil
}

// ListPresets returns every known preset, in catalog-file order.
func (c *Catalog) ListPresets() []Preset {
	out := make([]Preset, len(c.presets))
	copy(out, c.presets)
	return out
}

// ResolvePreset looks up a preset by id.
func (c *Catalog) ResolvePreset(id string) (Preset, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// ResolveContainerRule looks up the compatibility rule for a container.
func (c *Catalog) ResolveContainerRule(container Container) (ContainerRule, bool) {
	r, ok := c.rules[container]
	return r, ok
}
