package checker

import (
	"fmt"
	"maps"
	"sync"
)

const (
	// KeyElement holds the Element identity of the log being checked.
	KeyElement = "ELEMENT"
	// KeyDebug is true when the run was started with --debug.
	KeyDebug = "DEBUG"
)

// Element identifies the network element a log was collected from.
type Element struct {
	Hostname string `yaml:"hostname" json:"hostname"`
	Version  string `yaml:"version,omitempty" json:"version,omitempty"`
	Type     string `yaml:"type,omitempty" json:"type,omitempty"`
}

// Context is the diagnostic context of one log file. Modules publish facts
// into it (the element identity, parsed versions) for modules that run later
// and for the report. A new Context is created for every file.
type Context struct {
	values map[string]any
	mu     sync.RWMutex
}

// NewContext returns an empty per-file context.
func NewContext() *Context {
	return &Context{values: make(map[string]any)}
}

func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	c.values[key] = value
	c.mu.Unlock()
}

func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

func (c *Context) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// String returns the value for key formatted as a string, or "" if unset.
func (c *Context) String(key string) string {
	v, ok := c.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func (c *Context) Bool(key string) bool {
	v, _ := c.Get(key)
	b, _ := v.(bool)
	return b
}

// Strings returns every string-valued entry. Used to hand a snapshot of the
// context to out-of-process modules.
func (c *Context) Strings() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string)
	for k, v := range c.values {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// fork returns a copy for one module run. Writes to the copy reach c only
// through merge.
func (c *Context) fork() *Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &Context{values: maps.Clone(c.values)}
}

// merge publishes every entry of child into c.
func (c *Context) merge(child *Context) {
	child.mu.RLock()
	values := maps.Clone(child.values)
	child.mu.RUnlock()

	c.mu.Lock()
	maps.Copy(c.values, values)
	c.mu.Unlock()
}

// SetElement publishes the element identity.
func (c *Context) SetElement(e Element) {
	c.Set(KeyElement, e)
}

// Element returns the published identity. ok is false when no module
// published one or the hostname is empty.
func (c *Context) Element() (Element, bool) {
	v, ok := c.Get(KeyElement)
	if !ok {
		return Element{}, false
	}
	switch e := v.(type) {
	case Element:
		return e, e.Hostname != ""
	case *Element:
		if e == nil {
			return Element{}, false
		}
		return *e, e.Hostname != ""
	}
	return Element{}, false
}
