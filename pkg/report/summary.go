package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/containifyci/smartchecker/pkg/checker"
)

const (
	checkmark = "✓"
	cross     = "✗"
	warning   = "⚠"
	info      = "ℹ"

	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// SummaryFormatter prints the outcome of a batch run.
type SummaryFormatter struct {
	writer     io.Writer
	verbose    bool
	jsonOutput bool
	useColor   bool
}

// NewSummaryFormatter creates a formatter
func NewSummaryFormatter(w io.Writer, verbose, jsonOutput, useColor bool) *SummaryFormatter {
	return &SummaryFormatter{
		writer:     w,
		verbose:    verbose,
		jsonOutput: jsonOutput,
		useColor:   useColor,
	}
}

// Summary contains batch statistics
type Summary struct {
	Files    int `json:"files"`
	Reports  int `json:"reports"`
	Failures int `json:"failures"`
	Passed   int `json:"passed"`
	Failed   int `json:"failed"`
	Unknown  int `json:"unknown"`
	Errored  int `json:"errored"`
	Critical int `json:"critical_failures"`
}

// Summarize computes batch statistics.
func Summarize(batch *checker.BatchReport) Summary {
	s := Summary{
		Reports:  len(batch.Results),
		Failures: len(batch.Errors),
	}
	s.Files = s.Reports + s.Failures
	for _, rs := range batch.Results {
		s.Passed += rs.StatsDetail(checker.StatusPassed)
		s.Failed += rs.StatsDetail(checker.StatusFailed)
		s.Unknown += rs.StatsDetail(checker.StatusUnknown)
		s.Errored += rs.StatsDetail(checker.StatusError)
		for _, r := range rs.Failed() {
			if r.Priority == checker.PriorityCritical {
				s.Critical++
			}
		}
	}
	return s
}

// Format outputs the batch
func (f *SummaryFormatter) Format(batch *checker.BatchReport) error {
	if f.jsonOutput {
		return f.formatJSON(batch)
	}
	f.formatHuman(batch)
	return nil
}

func (f *SummaryFormatter) formatJSON(batch *checker.BatchReport) error {
	errs := make([]string, len(batch.Errors))
	for i, err := range batch.Errors {
		errs[i] = err.Error()
	}
	output := struct {
		Results    []*checker.ResultSet `json:"results"`
		Errors     []string             `json:"errors"`
		OutputPath string               `json:"output_path"`
		Summary    Summary              `json:"summary"`
	}{
		Results:    batch.Results,
		Errors:     errs,
		OutputPath: batch.OutputPath,
		Summary:    Summarize(batch),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func (f *SummaryFormatter) formatHuman(batch *checker.BatchReport) {
	fmt.Fprintf(f.writer, "%sSmartChecker Results%s\n", f.color(colorBold), f.color(colorReset))
	fmt.Fprintf(f.writer, "%s\n\n", strings.Repeat("=", 20))

	for _, rs := range batch.Results {
		f.printResultSet(rs)
	}

	if len(batch.Errors) > 0 {
		fmt.Fprintf(f.writer, "%sSkipped files%s\n", f.color(colorBold), f.color(colorReset))
		for _, err := range batch.Errors {
			fmt.Fprintf(f.writer, "  %s%s%s %s\n", f.color(colorGray), info, f.color(colorReset), err)
		}
		fmt.Fprintln(f.writer)
	}

	f.printSummary(Summarize(batch), batch.OutputPath)
}

func (f *SummaryFormatter) printResultSet(rs *checker.ResultSet) {
	fmt.Fprintf(f.writer, "%s%s%s", f.color(colorBold), rs.Hostname, f.color(colorReset))
	if rs.Version != "" {
		fmt.Fprintf(f.writer, " (%s)", rs.Version)
	}
	fmt.Fprintf(f.writer, " %s-> %s%s\n", f.color(colorGray), rs.ReportFilename, f.color(colorReset))

	for _, r := range rs.Results {
		var symbol, color string
		switch r.Status {
		case checker.StatusPassed:
			symbol, color = checkmark, colorGreen
		case checker.StatusFailed:
			symbol, color = cross, colorRed
		case checker.StatusError:
			symbol, color = warning, colorYellow
		default:
			symbol, color = info, colorGray
		}
		fmt.Fprintf(f.writer, "  %s%s%s %s [%s]\n", f.color(color), symbol, f.color(colorReset), r.ModuleName, r.Priority)

		if r.Error != "" {
			fmt.Fprintf(f.writer, "    %s%s%s\n", f.color(colorGray), r.Error, f.color(colorReset))
		}
		if f.verbose || r.Status == checker.StatusFailed {
			for _, line := range r.Info {
				fmt.Fprintf(f.writer, "      • %s\n", line)
			}
		}
	}
	fmt.Fprintln(f.writer)
}

func (f *SummaryFormatter) printSummary(s Summary, outputPath string) {
	fmt.Fprintf(f.writer, "%sSummary%s\n", f.color(colorBold), f.color(colorReset))
	fmt.Fprintf(f.writer, "%s\n", strings.Repeat("─", 7))
	fmt.Fprintf(f.writer, "Files checked:     %d\n", s.Files)
	fmt.Fprintf(f.writer, "Reports written:   %d (%s)\n", s.Reports, outputPath)
	fmt.Fprintf(f.writer, "%sPassed:%s           %d\n", f.color(colorGreen), f.color(colorReset), s.Passed)

	if s.Failed > 0 {
		fmt.Fprintf(f.writer, "%sFailed:%s           %d", f.color(colorRed), f.color(colorReset), s.Failed)
		if s.Critical > 0 {
			fmt.Fprintf(f.writer, " (%d critical)", s.Critical)
		}
		fmt.Fprintln(f.writer)
	}
	if s.Errored > 0 {
		fmt.Fprintf(f.writer, "%sErrored:%s          %d\n", f.color(colorYellow), f.color(colorReset), s.Errored)
	}
	if s.Unknown > 0 {
		fmt.Fprintf(f.writer, "%sUnknown:%s          %d\n", f.color(colorGray), f.color(colorReset), s.Unknown)
	}
}

// color returns color code if color is enabled, empty string otherwise
func (f *SummaryFormatter) color(code string) string {
	if f.useColor {
		return code
	}
	return ""
}
