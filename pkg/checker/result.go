package checker

import (
	"fmt"
	"time"
)

// Result is one module's verdict for one log file.
//
// A module creates it with NewResult, moves it through the status transitions
// below during its single Run, and returns it. The dispatcher only attaches
// the module's metadata afterwards.
//
//	UNKNOWN -> PASSED | FAILED | ERROR
//	PASSED  -> FAILED | ERROR
//	FAILED  -> ERROR
//	ERROR   (terminal)
type Result struct {
	ModuleID   string        `yaml:"module_id" json:"module_id"`
	ModuleName string        `yaml:"module_name" json:"module_name"`
	Status     Status        `yaml:"status" json:"status"`
	Info       []string      `yaml:"info,omitempty" json:"info,omitempty"`
	Error      string        `yaml:"error,omitempty" json:"error,omitempty"`
	Priority   Priority      `yaml:"priority" json:"priority"`
	Tags       []string      `yaml:"tags,omitempty" json:"tags,omitempty"`
	Criteria   string        `yaml:"criteria,omitempty" json:"criteria,omitempty"`
	Duration   time.Duration `yaml:"duration" json:"duration"`
}

// NewResult returns an UNKNOWN result for the named module.
func NewResult(moduleName string) Result {
	return Result{ModuleName: moduleName, Status: StatusUnknown}
}

// AddInfo appends human-readable findings.
func (r *Result) AddInfo(lines ...string) {
	r.Info = append(r.Info, lines...)
}

// AddInfof appends one formatted finding.
func (r *Result) AddInfof(format string, args ...any) {
	r.Info = append(r.Info, fmt.Sprintf(format, args...))
}

// Pass marks the result PASSED unless a worse verdict was already reached.
func (r *Result) Pass() {
	if r.Status == StatusUnknown {
		r.Status = StatusPassed
	}
}

// Fail marks the result FAILED and records the findings that caused it.
func (r *Result) Fail(info ...string) {
	if r.Status != StatusError {
		r.Status = StatusFailed
	}
	r.AddInfo(info...)
}

// Abort marks the result ERROR: the check could not complete.
func (r *Result) Abort(err error) {
	r.Status = StatusError
	if err != nil {
		r.Error = err.Error()
	}
}

// Passed, Failed and Errored are shorthands used by templates.
func (r Result) Passed() bool  { return r.Status == StatusPassed }
func (r Result) Failed() bool  { return r.Status == StatusFailed }
func (r Result) Errored() bool { return r.Status == StatusError }

// withMetadata stamps reporting metadata onto a received result. The verdict
// fields are left untouched.
func (r Result) withMetadata(meta Metadata) Result {
	r.ModuleID = meta.ID
	if r.ModuleName == "" {
		r.ModuleName = meta.Name
	}
	r.Priority = meta.Priority
	r.Tags = append([]string(nil), meta.Tags...)
	r.Criteria = meta.Criteria
	r.Info = append([]string(nil), r.Info...)
	return r
}

// errorResult is the dispatcher-built result for a module that crashed or
// timed out before producing a verdict.
func errorResult(meta Metadata, err error) Result {
	r := NewResult(meta.Name)
	r.Abort(err)
	return r.withMetadata(meta)
}
