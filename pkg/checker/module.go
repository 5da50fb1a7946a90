package checker

import "context"

// Metadata describes a check module. ID, Name and Version are mandatory.
type Metadata struct {
	ID          string   `yaml:"module_id" json:"module_id"`
	Name        string   `yaml:"name" json:"name"`
	Version     string   `yaml:"version" json:"version"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Criteria    string   `yaml:"criteria,omitempty" json:"criteria,omitempty"`
	Tags        []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Priority    Priority `yaml:"priority" json:"priority"`

	// CheckCommands are the commands an operator runs on the element to
	// collect a log this module can analyse.
	CheckCommands []string `yaml:"check_commands,omitempty" json:"check_commands,omitempty"`

	// Requires lists the context keys that an earlier module must publish.
	Requires []string `yaml:"requires,omitempty" json:"requires,omitempty"`
	// Provides lists the context keys this module publishes.
	Provides []string `yaml:"provides,omitempty" json:"provides,omitempty"`
}

// HasTag reports whether the module carries one of the given tags.
func (m Metadata) HasTag(tags ...string) bool {
	for _, want := range tags {
		for _, t := range m.Tags {
			if t == want {
				return true
			}
		}
	}
	return false
}

// Module is the unit of extension: one diagnostic test against one log file.
//
// A module is built once and reused for every file of a batch, so Run must not
// keep state between calls. Anything that later modules or the report need is
// published through the per-file Context.
type Module interface {
	Metadata() Metadata
	Run(ctx context.Context, dc *Context, logfile string) Result
}

// RunFunc is the signature of a module's check procedure.
type RunFunc func(ctx context.Context, dc *Context, logfile string) Result

// ModuleFunc adapts a plain function and its metadata to the Module interface.
type ModuleFunc struct {
	Meta  Metadata
	RunFn RunFunc
}

func (m *ModuleFunc) Metadata() Metadata {
	return m.Meta
}

func (m *ModuleFunc) Run(ctx context.Context, dc *Context, logfile string) Result {
	return m.RunFn(ctx, dc, logfile)
}
