package checker

import "time"

// ResultSet holds the ordered results of one checklist run against one log file.
type ResultSet struct {
	Hostname       string    `yaml:"hostname" json:"hostname"`
	Version        string    `yaml:"version,omitempty" json:"version,omitempty"`
	ElementType    string    `yaml:"element_type" json:"element_type"`
	LogFile        string    `yaml:"logfile" json:"logfile"`
	ReportFilename string    `yaml:"report_filename" json:"report_filename"`
	ReportPath     string    `yaml:"report_path,omitempty" json:"report_path,omitempty"`
	TemplateType   string    `yaml:"template_type" json:"template_type"`
	CheckedAt      time.Time `yaml:"checked_at" json:"checked_at"`
	Results        []Result  `yaml:"results" json:"results"`

	tally map[Status]int
}

// NewResultSet returns an empty set for the given log file.
func NewResultSet(logfile, elementType string) *ResultSet {
	return &ResultSet{
		LogFile:     logfile,
		ElementType: elementType,
		CheckedAt:   time.Now(),
		tally:       make(map[Status]int),
	}
}

// Append adds a result and updates the running status tally.
func (rs *ResultSet) Append(r Result) {
	if rs.tally == nil {
		rs.tally = make(map[Status]int)
	}
	rs.Results = append(rs.Results, r)
	rs.tally[r.Status]++
}

// StatsDetail returns how many results carry the given status.
func (rs *ResultSet) StatsDetail(s Status) int {
	return rs.tally[s]
}

// Summary returns the tally for every status, zero counts included.
func (rs *ResultSet) Summary() map[Status]int {
	out := make(map[Status]int, len(AllStatuses))
	for _, s := range AllStatuses {
		out[s] = rs.tally[s]
	}
	return out
}

// Failed returns the FAILED results in execution order.
func (rs *ResultSet) Failed() []Result {
	var failed []Result
	for _, r := range rs.Results {
		if r.Status == StatusFailed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Severity is the highest priority among FAILED results. ok is false when
// nothing failed; ERROR and UNKNOWN results never escalate severity.
func (rs *ResultSet) Severity() (p Priority, ok bool) {
	for _, r := range rs.Results {
		if r.Status != StatusFailed {
			continue
		}
		if !ok || r.Priority > p {
			p = r.Priority
			ok = true
		}
	}
	return p, ok
}
