package checker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/containifyci/smartchecker/pkg/memory"
)

// Matcher decides whether a file is a readable log of an element type.
type Matcher interface {
	IsReadableLog(path string) bool
	MatchesType(path, elementType string) (bool, error)
}

// TextDetector filters directory walks down to text files.
type TextDetector interface {
	IsTextFile(path string) bool
}

// Renderer turns a result set into report text.
type Renderer interface {
	Render(templateRef string, data map[string]any) (string, error)
}

// Writer stores a rendered report and returns the written path.
type Writer interface {
	Write(dir, filename string, content []byte) (string, error)
}

// Console echoes markdown reports to the operator.
type Console interface {
	Show(markdown string) error
}

// Options tune a dispatcher run.
type Options struct {
	// OutputPath overrides the checklist's reports path.
	OutputPath string
	// Template overrides the checklist's report template.
	Template string
	// FileTimeout bounds the module sequence of one file. Zero disables it.
	FileTimeout time.Duration
	// Parallel is the number of files checked concurrently in a tree run.
	Parallel int
	Debug    bool
	Silent   bool
}

// Dispatcher runs a checklist's modules against log files.
type Dispatcher struct {
	Matcher  Matcher
	Detector TextDetector
	Renderer Renderer
	Writer   Writer
	Console  Console
	Options  Options
}

// BatchReport is the outcome of Run.
type BatchReport struct {
	Results    []*ResultSet
	Errors     []error
	OutputPath string
}

// Run checks target, a log file or a directory of logs. It returns
// ErrNoLogFiles, along with the empty report, when nothing was found to
// check at all.
func (d *Dispatcher) Run(ctx context.Context, cl *Checklist, target string) (*BatchReport, error) {
	report := &BatchReport{OutputPath: d.outputPath(cl)}
	slog.Debug("Report output path", "path", report.OutputPath)

	info, err := os.Stat(target)
	if err == nil && info.IsDir() {
		slog.Debug("Checking the log directory", "dir", target)
		report.Results, report.Errors = d.RunTree(ctx, cl, target)
	} else {
		slog.Debug("Checking the log file", "file", target)
		rs, err := d.RunFile(ctx, cl, target, "")
		if err != nil {
			report.Errors = append(report.Errors, err)
		} else {
			report.Results = append(report.Results, rs)
		}
	}

	if len(report.Results) == 0 && len(report.Errors) == 0 {
		slog.Error("No log file was found", "target", target)
		return report, ErrNoLogFiles
	}
	slog.Info("Saved reports", "count", len(report.Results), "failures", len(report.Errors), "path", report.OutputPath)
	pool := memory.GetBufferPoolMetrics()
	slog.Debug("Log buffer pool", "scan_gets", pool.ScanGets, "sniff_gets", pool.SniffGets, "hit_rate", pool.HitRate())
	slog.Info("Finished the checking")
	return report, nil
}

// RunFile runs every module of cl against one log file and writes its
// report. nameTmpl is the report filename template, DefaultReportName when
// empty.
func (d *Dispatcher) RunFile(ctx context.Context, cl *Checklist, path, nameTmpl string) (*ResultSet, error) {
	return d.runFile(ctx, cl, path, nameTmpl, nil)
}

// runFile is RunFile with the report names already taken in this run. A
// nil names accepts every name.
func (d *Dispatcher) runFile(ctx context.Context, cl *Checklist, path, nameTmpl string, names *reportNames) (*ResultSet, error) {
	if len(cl.Modules) == 0 {
		return nil, NewResolutionError(cl.Name, errors.New("checklist has no modules"))
	}
	if !d.Matcher.IsReadableLog(path) {
		return nil, &TypeMismatchError{Path: path, ElementType: cl.NetElementType}
	}
	matched, err := d.Matcher.MatchesType(path, cl.NetElementType)
	if err != nil || !matched {
		return nil, &TypeMismatchError{Path: path, ElementType: cl.NetElementType, Cause: err}
	}

	templateRef := d.Options.Template
	if templateRef == "" {
		templateRef = cl.Template(TemplateReport)
	}
	if templateRef == "" {
		templateRef = DefaultTemplate
	}
	rs := NewResultSet(path, cl.NetElementType)
	rs.TemplateType = TemplateType(templateRef)

	dc := NewContext()
	dc.Set(KeyDebug, d.Options.Debug)

	fileCtx := ctx
	if d.Options.FileTimeout > 0 {
		var cancel context.CancelFunc
		fileCtx, cancel = context.WithTimeout(ctx, d.Options.FileTimeout)
		defer cancel()
	}
	for _, m := range cl.Modules {
		rs.Append(d.runModule(fileCtx, m, dc, path))
	}

	element, ok := dc.Element()
	if !ok {
		return nil, &IdentityMissingError{Path: path}
	}
	rs.Hostname = element.Hostname
	rs.Version = element.Version
	rs.ReportFilename = names.reserve(ReportName(nameTmpl, rs))

	text, err := d.Renderer.Render(templateRef, d.reportData(cl, rs, element, dc))
	if err != nil {
		return nil, &WriteError{Path: rs.ReportFilename, Cause: fmt.Errorf("render: %w", err)}
	}
	outDir := d.outputPath(cl)
	written, err := d.Writer.Write(outDir, rs.ReportFilename, []byte(text))
	if err != nil {
		return nil, &WriteError{Path: filepath.Join(outDir, rs.ReportFilename), Cause: err}
	}
	rs.ReportPath = written
	slog.Info("Save report", "path", written)

	if d.Console != nil && !d.Options.Silent && rs.TemplateType == "md" {
		if err := d.Console.Show(text); err != nil {
			slog.Warn("Failed to print report", "error", err)
		}
	}

	slog.Info("Result",
		"hostname", rs.Hostname,
		"failed", rs.StatsDetail(StatusFailed),
		"error", rs.StatsDetail(StatusError),
		"unknown", rs.StatsDetail(StatusUnknown),
		"passed", rs.StatsDetail(StatusPassed),
	)
	return rs, nil
}

// runModule invokes one module. A panic, a module that outlives the file
// deadline, or an already expired deadline yields an ERROR result for this
// module only. The module works on a fork of dc; its writes are merged only
// when it returns normally before the deadline.
func (d *Dispatcher) runModule(ctx context.Context, m Module, dc *Context, path string) Result {
	meta := m.Metadata()
	if err := ctx.Err(); err != nil {
		return errorResult(meta, &ModuleExecutionError{ModuleID: meta.ID, Cause: fmt.Errorf("file deadline exceeded: %w", err)})
	}

	type outcome struct {
		result    Result
		completed bool
	}

	start := time.Now()
	child := dc.fork()
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("Check module panicked", "module", meta.ID, "panic", rec)
				done <- outcome{result: errorResult(meta, &ModuleExecutionError{ModuleID: meta.ID, Cause: fmt.Errorf("panic: %v", rec)})}
			}
		}()
		done <- outcome{result: m.Run(ctx, child, path), completed: true}
	}()

	var r Result
	select {
	case out := <-done:
		if out.completed && ctx.Err() != nil {
			r = timedOut(meta, path, ctx.Err())
			break
		}
		r = out.result.withMetadata(meta)
		if out.completed {
			dc.merge(child)
			for _, key := range meta.Provides {
				if !dc.Has(key) {
					slog.Debug("Check module did not publish", "module", meta.ID, "key", key)
				}
			}
		}
	case <-ctx.Done():
		r = timedOut(meta, path, ctx.Err())
	}
	r.Duration = time.Since(start)
	slog.Debug("Check module finished", "module", meta.ID, "status", r.Status, "duration", r.Duration)
	return r
}

func timedOut(meta Metadata, path string, err error) Result {
	slog.Warn("Check module timed out", "module", meta.ID, "file", path)
	return errorResult(meta, &ModuleExecutionError{ModuleID: meta.ID, Cause: fmt.Errorf("timed out: %w", err)})
}

type treeJob struct {
	path     string
	nameTmpl string
}

// RunTree checks every text file below root. Files are independent: one
// file's failure is recorded and the walk continues. Both returned slices
// follow walk order.
func (d *Dispatcher) RunTree(ctx context.Context, cl *Checklist, root string) ([]*ResultSet, []error) {
	var jobs []treeJob
	var walkErrs []error
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			walkErrs = append(walkErrs, fmt.Errorf("walk %s: %w", path, err))
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !isRegularFile(path, entry) {
			return nil
		}
		if d.Detector != nil && !d.Detector.IsTextFile(path) {
			slog.Debug("Skipping non-text file", "file", path)
			return nil
		}
		jobs = append(jobs, treeJob{path: path, nameTmpl: TreeReportName(root, filepath.Dir(path))})
		return nil
	})
	if err != nil {
		return nil, []error{fmt.Errorf("walk %s: %w", root, err)}
	}

	sets := make([]*ResultSet, len(jobs))
	errs := make([]error, len(jobs))
	names := newReportNames()

	var g errgroup.Group
	g.SetLimit(max(1, d.Options.Parallel))
	for i, job := range jobs {
		g.Go(func() error {
			slog.Debug("Checking the logfile", "file", job.path)
			rs, err := d.runFile(ctx, cl, job.path, job.nameTmpl, names)
			if err != nil {
				slog.Info("Analysing logfile", "file", job.path, "result", "ERROR", "reason", err)
				errs[i] = err
				return nil
			}
			slog.Info("Analysing logfile", "file", job.path, "result", "SUCCESS")
			sets[i] = rs
			return nil
		})
	}
	_ = g.Wait()

	var results []*ResultSet
	var failures []error
	for i := range jobs {
		if sets[i] != nil {
			results = append(results, sets[i])
		}
		if errs[i] != nil {
			failures = append(failures, errs[i])
		}
	}
	return results, append(failures, walkErrs...)
}

// isRegularFile accepts regular files and symlinks that resolve to one.
func isRegularFile(path string, entry fs.DirEntry) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (d *Dispatcher) outputPath(cl *Checklist) string {
	if d.Options.OutputPath != "" {
		return d.Options.OutputPath
	}
	if p := cl.ReportsPath(); p != "" {
		return p
	}
	return "."
}

func (d *Dispatcher) reportData(cl *Checklist, rs *ResultSet, element Element, dc *Context) map[string]any {
	stats := make(map[string]int, len(AllStatuses))
	for s, n := range rs.Summary() {
		stats[s.String()] = n
	}
	severity := ""
	if p, ok := rs.Severity(); ok {
		severity = p.String()
	}
	return map[string]any{
		"checklist":     cl,
		"resultset":     rs,
		"results":       rs.Results,
		"hostname":      element.Hostname,
		"element":       element,
		"logfile":       filepath.Base(rs.LogFile),
		"timestamp":     rs.CheckedAt.Format("2006-01-02 15:04"),
		"template_type": rs.TemplateType,
		"stats":         stats,
		"severity":      severity,
		"context":       dc.Strings(),
	}
}
