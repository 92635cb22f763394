// Package catalog loads the built-in guided modules from the embedded YAML
// definition.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/zasterix/zasterix/internal/domain"
	"github.com/zasterix/zasterix/internal/domain/runner"
	"github.com/zasterix/zasterix/internal/domain/task"
	"github.com/zasterix/zasterix/internal/domain/tool"
)

//go:embed modules.yaml
var builtin []byte

// Module is one guided module: a validated task list and how it is walked.
type Module struct {
	StageID  string      `json:"stage_id"`
	ModuleID string      `json:"module_id"`
	Title    string      `json:"title"`
	Subtitle string      `json:"subtitle,omitempty"`
	Mode     runner.Mode `json:"mode"`
	Tasks    task.List   `json:"tasks"`
}

// Key returns "stage/module".
func (m *Module) Key() string { return m.StageID + "/" + m.ModuleID }

type moduleFile struct {
	Modules []struct {
		StageID  string      `yaml:"stage_id"`
		ModuleID string      `yaml:"module_id"`
		Title    string      `yaml:"title"`
		Subtitle string      `yaml:"subtitle"`
		Mode     runner.Mode `yaml:"mode"`
		Tasks    []task.Spec `yaml:"tasks"`
	} `yaml:"modules"`
}

// Catalog is an immutable set of modules.
type Catalog struct {
	modules map[string]*Module
	order   []string
}

// Load parses the embedded module definition.
func Load(reg *tool.Registry) (*Catalog, error) {
	return Parse(builtin, reg)
}

// Parse decodes a module definition and validates every task list against reg.
func Parse(data []byte, reg *tool.Registry) (*Catalog, error) {
	var f moduleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{modules: make(map[string]*Module, len(f.Modules))}
	for _, raw := range f.Modules {
		if raw.StageID == "" || raw.ModuleID == "" {
			return nil, domain.Validation("module requires stage_id and module_id")
		}
		if !raw.Mode.Valid() {
			return nil, domain.Validation("module %s/%s: unknown mode %q", raw.StageID, raw.ModuleID, raw.Mode)
		}
		list, err := task.FromSpecs(reg, raw.Tasks)
		if err != nil {
			return nil, fmt.Errorf("module %s/%s: %w", raw.StageID, raw.ModuleID, err)
		}

		m := &Module{
			StageID:  raw.StageID,
			ModuleID: raw.ModuleID,
			Title:    raw.Title,
			Subtitle: raw.Subtitle,
			Mode:     raw.Mode,
			Tasks:    list,
		}
		if _, dup := c.modules[m.Key()]; dup {
			return nil, domain.Validation("duplicate module %s", m.Key())
		}
		c.modules[m.Key()] = m
		c.order = append(c.order, m.Key())
	}
	sort.Strings(c.order)
	return c, nil
}

// Lookup returns the module for stage and module id.
func (c *Catalog) Lookup(stageID, moduleID string) (*Module, error) {
	m, ok := c.modules[stageID+"/"+moduleID]
	if !ok {
		return nil, domain.NotFound("module %s/%s", stageID, moduleID)
	}
	return m, nil
}

// Modules returns every module ordered by key.
func (c *Catalog) Modules() []*Module {
	out := make([]*Module, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.modules[k])
	}
	return out
}
