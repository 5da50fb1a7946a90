package checker

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Registry maps module identifiers to compiled-in or loaded modules.
// Modules are validated when they are registered, not when they are used.
type Registry struct {
	modules map[string]Module
	byName  map[string]string
	mu      sync.RWMutex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		modules: make(map[string]Module),
		byName:  make(map[string]string),
	}
}

var defaultRegistry = NewRegistry()

// Default returns the process registry that compiled-in modules register
// into from their init functions.
func Default() *Registry {
	return defaultRegistry
}

// Register adds m to the default registry, panicking on an invalid module.
func Register(m Module) {
	defaultRegistry.MustRegister(m)
}

// ValidateModule checks the mandatory parts of the module contract.
func ValidateModule(m Module) error {
	if m == nil {
		return errors.New("module is nil")
	}
	if fn, ok := m.(*ModuleFunc); ok && fn.RunFn == nil {
		return fmt.Errorf("module %q has no run function", fn.Meta.ID)
	}
	meta := m.Metadata()
	var missing []string
	if meta.ID == "" {
		missing = append(missing, "module_id")
	}
	if meta.Name == "" {
		missing = append(missing, "name")
	}
	if meta.Version == "" {
		missing = append(missing, "version")
	}
	if len(missing) > 0 {
		return fmt.Errorf("module %q is missing mandatory attributes %v", meta.ID, missing)
	}
	return nil
}

// Register validates m and adds it under its ID. Duplicate IDs are rejected.
func (r *Registry) Register(m Module) error {
	if err := ValidateModule(m); err != nil {
		return err
	}
	meta := m.Metadata()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modules[meta.ID]; ok {
		return fmt.Errorf("module %q already registered", meta.ID)
	}
	r.modules[meta.ID] = m
	if _, ok := r.byName[meta.Name]; !ok {
		r.byName[meta.Name] = meta.ID
	}
	return nil
}

func (r *Registry) MustRegister(m Module) {
	if err := r.Register(m); err != nil {
		panic(err)
	}
}

// Lookup finds a module by ID, falling back to its name.
func (r *Registry) Lookup(id string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.modules[id]; ok {
		return m, true
	}
	if realID, ok := r.byName[id]; ok {
		return r.modules[realID], true
	}
	return nil, false
}

// List returns every registered module sorted by ID.
func (r *Registry) List() []Module {
	r.mu.RLock()
	out := make([]Module, 0, len(r.modules))
	for _, m := range r.modules {
		out = append(out, m)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].Metadata().ID < out[j].Metadata().ID
	})
	return out
}

// Resolve turns the checklist's declared module identifiers into modules, in
// declared order. Any unknown identifier, an empty module list, or a module
// whose required context keys are not provided by an earlier module fails the
// whole checklist.
func (r *Registry) Resolve(def ChecklistDefinition) ([]Module, error) {
	if len(def.Modules) == 0 {
		return nil, NewResolutionError(def.label(), errors.New("checklist declares no modules"))
	}

	modules := make([]Module, 0, len(def.Modules))
	var missing []string
	seen := make(map[string]bool)
	for _, id := range def.Modules {
		m, ok := r.Lookup(id)
		if !ok {
			missing = append(missing, id)
			continue
		}
		meta := m.Metadata()
		if seen[meta.ID] {
			slog.Warn("Module listed twice, keeping the first", "checklist", def.label(), "module", meta.ID, "declared_as", id)
			continue
		}
		seen[meta.ID] = true
		if len(def.Tags) > 0 && !meta.HasTag(def.Tags...) {
			slog.Warn("Module skipped by tag filter", "checklist", def.label(), "module", meta.ID, "module_tags", meta.Tags, "tags", def.Tags)
			continue
		}
		modules = append(modules, m)
	}
	if len(missing) > 0 {
		return nil, NewResolutionError(def.label(), nil).WithMissing(missing...)
	}
	if len(modules) == 0 {
		return nil, NewResolutionError(def.label(), fmt.Errorf("no module matches tags %v", def.Tags))
	}
	if err := checkDependencies(modules); err != nil {
		return nil, NewResolutionError(def.label(), err)
	}
	return modules, nil
}

// checkDependencies verifies every Requires key is provided earlier in the
// execution order.
func checkDependencies(modules []Module) error {
	provided := make(map[string]bool)
	for _, m := range modules {
		meta := m.Metadata()
		for _, key := range meta.Requires {
			if !provided[key] {
				return fmt.Errorf("module %s requires %q but no earlier module provides it", meta.ID, key)
			}
		}
		for _, key := range meta.Provides {
			provided[key] = true
		}
	}
	return nil
}
