// Package counters queries performance counters of network elements from the
// OSS statistics database and saves them as a JSON report.
package counters

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout = "2006/01/02"
	TimeLayout = "1504"

	AllElements     = "ALL"
	DefaultPeriod   = "15"
	DefaultUnitType = "NE"

	defaultWindow = 30 * time.Minute
)

// Options select the counters to query.
type Options struct {
	Element    string
	StartDate  string
	StartTime  string
	StopDate   string
	StopTime   string
	Period     string
	UnitType   string
	Counters   []string
	ReportFile string
	LocalSave  bool
}

// ParseCounters splits a colon or comma separated counter list.
func ParseCounters(s string) []string {
	var out []string
	for _, c := range strings.FieldsFunc(s, func(r rune) bool { return r == ':' || r == ',' }) {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Complete fills unset options relative to now. Without a start time the
// window is the 30 minutes before the stop time.
func (o *Options) Complete(now time.Time) error {
	if len(o.Counters) == 0 {
		return errors.New("please input the counters")
	}
	if o.Element == "" {
		o.Element = AllElements
	}
	if o.StopDate == "" {
		o.StopDate = now.Format(DateLayout)
	}
	if o.StopTime == "" {
		o.StopTime = now.Format(TimeLayout)
	}
	if o.StartTime == "" {
		stop, err := parseStamp(o.StopDate, o.StopTime)
		if err != nil {
			return err
		}
		start := stop.Add(-defaultWindow)
		o.StartDate = start.Format(DateLayout)
		o.StartTime = start.Format(TimeLayout)
	}
	if o.StartDate == "" {
		o.StartDate = o.StopDate
	}
	if o.Period == "" {
		o.Period = DefaultPeriod
	}
	if o.UnitType == "" {
		o.UnitType = DefaultUnitType
	}
	if o.ReportFile == "" {
		o.ReportFile = o.DefaultReportFile()
	}

	start, stop, err := o.Window()
	if err != nil {
		return err
	}
	if stop.Before(start) {
		return fmt.Errorf("start %s is after stop %s", start.Format(DateLayout+" "+TimeLayout), stop.Format(DateLayout+" "+TimeLayout))
	}
	return nil
}

// Window returns the parsed start and stop of the query.
func (o *Options) Window() (time.Time, time.Time, error) {
	start, err := parseStamp(o.StartDate, o.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	stop, err := parseStamp(o.StopDate, o.StopTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, stop, nil
}

// DefaultReportFile names the report after the query:
// NESta_<element>_<start>_<stop>_<period>_<unit>.json
func (o *Options) DefaultReportFile() string {
	return fmt.Sprintf("NESta_%s_%s%s_%s%s_%s_%s.json",
		o.Element,
		strings.ReplaceAll(o.StartDate, "/", ""), o.StartTime,
		strings.ReplaceAll(o.StopDate, "/", ""), o.StopTime,
		o.Period, o.UnitType)
}

func parseStamp(date, hhmm string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+hhmm, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date/time %s %s: %w", date, hhmm, err)
	}
	return t, nil
}

// stampKey is the sortable form stored in the PERIOD_START column.
func stampKey(t time.Time) string {
	return t.Format(DateLayout + "/" + TimeLayout)
}
