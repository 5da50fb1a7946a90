package checker

import (
	"fmt"
	"strings"
)

// Status is the verdict of a single check module.
type Status int

const (
	StatusUnknown Status = iota
	StatusPassed
	StatusFailed
	StatusError
)

// AllStatuses lists every status in display order.
var AllStatuses = []Status{StatusFailed, StatusError, StatusUnknown, StatusPassed}

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "UNKNOWN"
	case StatusPassed:
		return "PASSED"
	case StatusFailed:
		return "FAILED"
	case StatusError:
		return "ERROR"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ParseStatus converts a status name (case insensitive) to a Status.
func ParseStatus(s string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "UNKNOWN":
		return StatusUnknown, nil
	case "PASSED":
		return StatusPassed, nil
	case "FAILED":
		return StatusFailed, nil
	case "ERROR":
		return StatusError, nil
	}
	return StatusUnknown, fmt.Errorf("invalid status %q", s)
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Priority ranks how severe a failed check is. Higher values are more severe.
type Priority int

const (
	PriorityDefault Priority = iota
	PriorityNormal
	PriorityMajor
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityMajor:
		return "major"
	case PriorityNormal:
		return "normal"
	default:
		return "default"
	}
}

// Label returns the display class used by report templates.
func (p Priority) Label() string {
	switch p {
	case PriorityCritical:
		return "danger"
	case PriorityMajor:
		return "warning"
	case PriorityNormal:
		return "info"
	default:
		return "default"
	}
}

// ParsePriority converts a priority name to a Priority. An empty name is the
// default priority.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return PriorityCritical, nil
	case "major":
		return PriorityMajor, nil
	case "normal":
		return PriorityNormal, nil
	case "default", "":
		return PriorityDefault, nil
	}
	return PriorityDefault, fmt.Errorf("invalid priority %q", s)
}

func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
