package checker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	TemplateReport     = "report"
	TemplateModuleInfo = "module_info"
	PathReports        = "reports"

	// DefaultTemplate is the builtin report used when neither the checklist
	// nor the command line names one.
	DefaultTemplate = "report.md"
)

// ChecklistDefinition is the on-disk form of a checklist.
type ChecklistDefinition struct {
	Name           string            `yaml:"name" json:"name"`
	NetElementType string            `yaml:"net_element_type" json:"net_element_type"`
	Modules        []string          `yaml:"modules" json:"modules"`
	Templates      map[string]string `yaml:"templates" json:"templates"`
	Paths          map[string]string `yaml:"paths" json:"paths"`
	Plugins        []string          `yaml:"plugins,omitempty" json:"plugins,omitempty"`
	Tags           []string          `yaml:"tags,omitempty" json:"tags,omitempty"`

	// File is the path the definition was loaded from.
	File string `yaml:"-" json:"-"`
}

func (d ChecklistDefinition) label() string {
	if d.Name != "" {
		return d.Name
	}
	return d.File
}

// LoadChecklistDefinition reads a YAML checklist. Relative paths and plugin
// locations are resolved against the checklist's directory.
func LoadChecklistDefinition(path string) (ChecklistDefinition, error) {
	var def ChecklistDefinition
	data, err := os.ReadFile(path)
	if err != nil {
		return def, NewResolutionError(path, fmt.Errorf("read checklist: %w", err))
	}
	if err := yaml.Unmarshal(data, &def); err != nil {
		return def, NewResolutionError(path, fmt.Errorf("parse checklist: %w", err))
	}
	def.File = path
	if strings.TrimSpace(def.NetElementType) == "" {
		return def, NewResolutionError(path, fmt.Errorf("net_element_type is required"))
	}

	base := filepath.Dir(path)
	for role, p := range def.Paths {
		def.Paths[role] = resolveRelative(base, p)
	}
	for i, p := range def.Plugins {
		def.Plugins[i] = resolveRelative(base, p)
	}
	return def, nil
}

func resolveRelative(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Checklist is a resolved checklist ready for dispatch.
type Checklist struct {
	Name           string
	NetElementType string
	Templates      map[string]string
	Paths          map[string]string
	Modules        []Module
}

// NewChecklist resolves def against reg.
func NewChecklist(def ChecklistDefinition, reg *Registry) (*Checklist, error) {
	modules, err := reg.Resolve(def)
	if err != nil {
		return nil, err
	}
	return &Checklist{
		Name:           def.label(),
		NetElementType: def.NetElementType,
		Templates:      copyMap(def.Templates),
		Paths:          copyMap(def.Paths),
		Modules:        modules,
	}, nil
}

// Template returns the template reference for a role, or "".
func (c *Checklist) Template(role string) string {
	return c.Templates[role]
}

// ReportsPath returns where reports are written when no override is given.
func (c *Checklist) ReportsPath() string {
	return c.Paths[PathReports]
}

// CheckCommands returns every advertised log collection command, in module
// order and without duplicates.
func (c *Checklist) CheckCommands() []string {
	var cmds []string
	seen := make(map[string]bool)
	for _, m := range c.Modules {
		for _, cmd := range m.Metadata().CheckCommands {
			if seen[cmd] {
				continue
			}
			seen[cmd] = true
			cmds = append(cmds, cmd)
		}
	}
	return cmds
}

func copyMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
