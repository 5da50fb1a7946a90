package checker_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/containifyci/smartchecker/pkg/checker"
	"github.com/containifyci/smartchecker/pkg/logfile"
	"github.com/containifyci/smartchecker/pkg/report"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const elementType = "TESTNE"

var patHost = regexp.MustCompile(`^HOST (\S+)`)

// countingModule wraps a run function and counts its invocations.
type countingModule struct {
	meta  checker.Metadata
	run   checker.RunFunc
	calls atomic.Int32
}

func (m *countingModule) Metadata() checker.Metadata { return m.meta }

func (m *countingModule) Run(ctx context.Context, dc *checker.Context, path string) checker.Result {
	m.calls.Add(1)
	return m.run(ctx, dc, path)
}

func newModule(id string, run checker.RunFunc) *countingModule {
	return &countingModule{
		meta: checker.Metadata{ID: id, Name: strings.ToLower(id), Version: "1.0", Priority: checker.PriorityNormal},
		run:  run,
	}
}

func identityModule() *countingModule {
	m := newModule("IDENTITY", func(_ context.Context, dc *checker.Context, path string) checker.Result {
		r := checker.NewResult("")
		lines, err := logfile.ReadLines(path)
		if err != nil {
			r.Abort(err)
			return r
		}
		for _, line := range lines {
			if match := patHost.FindStringSubmatch(line); match != nil {
				dc.SetElement(checker.Element{Hostname: match[1], Version: "1.0"})
				r.Pass()
				return r
			}
		}
		return r
	})
	m.meta.Provides = []string{checker.KeyElement}
	return m
}

func statusModule(id string, s checker.Status) *countingModule {
	return newModule(id, func(context.Context, *checker.Context, string) checker.Result {
		r := checker.NewResult("")
		switch s {
		case checker.StatusPassed:
			r.Pass()
		case checker.StatusFailed:
			r.Fail(id + " found a problem")
		case checker.StatusError:
			r.Abort(errors.New(id + " could not complete"))
		}
		return r
	})
}

type recordingConsole struct {
	mu    sync.Mutex
	shown []string
}

func (c *recordingConsole) Show(markdown string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shown = append(c.shown, markdown)
	return nil
}

func newDispatcher(t *testing.T, out string) *checker.Dispatcher {
	t.Helper()
	matcher, err := logfile.NewMatcher(map[string]string{elementType: "TESTLOG"}, nil)
	require.NoError(t, err)
	return &checker.Dispatcher{
		Matcher:  matcher,
		Detector: logfile.TextDetector{},
		Renderer: report.NewTemplateRenderer(""),
		Writer:   report.NewFileWriter(),
		Options:  checker.Options{OutputPath: out, Parallel: 2},
	}
}

func newChecklist(modules ...checker.Module) *checker.Checklist {
	return &checker.Checklist{
		Name:           "test",
		NetElementType: elementType,
		Templates:      map[string]string{checker.TemplateReport: "report.md"},
		Modules:        modules,
	}
}

func writeLog(t *testing.T, path, host string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	content := "TESTLOG session\n"
	if host != "" {
		content += "HOST " + host + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func statuses(rs *checker.ResultSet) []checker.Status {
	out := make([]checker.Status, len(rs.Results))
	for i, r := range rs.Results {
		out[i] = r.Status
	}
	return out
}

func TestRunFileResultsFollowModuleOrder(t *testing.T) {
	out := t.TempDir()
	d := newDispatcher(t, out)
	cl := newChecklist(
		identityModule(),
		statusModule("FAIL", checker.StatusFailed),
		statusModule("ERR", checker.StatusError),
		statusModule("NOOP", checker.StatusUnknown),
		statusModule("OK", checker.StatusPassed),
	)
	path := writeLog(t, filepath.Join(t.TempDir(), "ne.log"), "node01")

	rs, err := d.RunFile(context.Background(), cl, path, "")
	require.NoError(t, err)

	want := []checker.Status{checker.StatusPassed, checker.StatusFailed, checker.StatusError, checker.StatusUnknown, checker.StatusPassed}
	if diff := cmp.Diff(want, statuses(rs)); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}
	ids := make([]string, len(rs.Results))
	for i, r := range rs.Results {
		ids[i] = r.ModuleID
	}
	assert.Equal(t, []string{"IDENTITY", "FAIL", "ERR", "NOOP", "OK"}, ids)

	assert.Equal(t, 1, rs.StatsDetail(checker.StatusFailed))
	assert.Equal(t, 1, rs.StatsDetail(checker.StatusError))
	assert.Equal(t, 1, rs.StatsDetail(checker.StatusUnknown))
	assert.Equal(t, 2, rs.StatsDetail(checker.StatusPassed))
	total := 0
	for _, n := range rs.Summary() {
		total += n
	}
	assert.Equal(t, len(cl.Modules), total)

	assert.Equal(t, "node01", rs.Hostname)
	assert.Equal(t, "report_node01.md", rs.ReportFilename)
	assert.Equal(t, filepath.Join(out, "report_node01.md"), rs.ReportPath)
	content, err := os.ReadFile(rs.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "# Health check report: node01")
	assert.Contains(t, string(content), "FAIL found a problem")
	assert.Contains(t, string(content), "ERR could not complete")
}

func TestRunFilePanicIsolatedToModule(t *testing.T) {
	d := newDispatcher(t, t.TempDir())
	after := statusModule("AFTER", checker.StatusPassed)
	cl := newChecklist(
		identityModule(),
		newModule("BOOM", func(context.Context, *checker.Context, string) checker.Result {
			panic("index out of range")
		}),
		after,
	)
	path := writeLog(t, filepath.Join(t.TempDir(), "ne.log"), "node01")

	rs, err := d.RunFile(context.Background(), cl, path, "")
	require.NoError(t, err)
	require.Len(t, rs.Results, 3)

	boom := rs.Results[1]
	assert.Equal(t, checker.StatusError, boom.Status)
	assert.Equal(t, "BOOM", boom.ModuleID)
	assert.Contains(t, boom.Error, "panic: index out of range")
	assert.Equal(t, int32(1), after.calls.Load())
	assert.Equal(t, checker.StatusPassed, rs.Results[2].Status)
}

func TestRunFileMissingIdentity(t *testing.T) {
	out := t.TempDir()
	d := newDispatcher(t, out)
	cl := newChecklist(identityModule(), statusModule("OK", checker.StatusPassed))
	path := writeLog(t, filepath.Join(t.TempDir(), "ne.log"), "")

	rs, err := d.RunFile(context.Background(), cl, path, "")
	assert.Nil(t, rs)
	var idErr *checker.IdentityMissingError
	require.ErrorAs(t, err, &idErr)
	assert.Equal(t, "no identity info found in "+path, err.Error())
	assert.False(t, checker.IsFatal(err))

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunFileTypeMismatchSkipsModules(t *testing.T) {
	d := newDispatcher(t, t.TempDir())
	counted := statusModule("COUNTED", checker.StatusPassed)
	cl := newChecklist(identityModule(), counted)

	dir := t.TempDir()
	other := filepath.Join(dir, "other.log")
	require.NoError(t, os.WriteFile(other, []byte("HOST node01\nsomething else\n"), 0o644))
	wrongSuffix := writeLog(t, filepath.Join(dir, "ne.txt"), "node01")

	for _, path := range []string{other, wrongSuffix, filepath.Join(dir, "missing.log")} {
		rs, err := d.RunFile(context.Background(), cl, path, "")
		assert.Nil(t, rs)
		var mismatch *checker.TypeMismatchError
		assert.ErrorAs(t, err, &mismatch, path)
	}
	assert.Zero(t, counted.calls.Load())
}

func TestRunFileTimeout(t *testing.T) {
	d := newDispatcher(t, t.TempDir())
	d.Options.FileTimeout = 50 * time.Millisecond

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	after := statusModule("AFTER", checker.StatusPassed)
	cl := newChecklist(
		identityModule(),
		newModule("HANG", func(context.Context, *checker.Context, string) checker.Result {
			<-release
			return checker.NewResult("")
		}),
		after,
	)
	path := writeLog(t, filepath.Join(t.TempDir(), "ne.log"), "node01")

	start := time.Now()
	rs, err := d.RunFile(context.Background(), cl, path, "")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	want := []checker.Status{checker.StatusPassed, checker.StatusError, checker.StatusError}
	assert.Equal(t, want, statuses(rs))
	assert.Contains(t, rs.Results[1].Error, "timed out")
	assert.Contains(t, rs.Results[2].Error, "file deadline exceeded")
	assert.Zero(t, after.calls.Load())
}

func TestRunFileShowsMarkdownOnConsole(t *testing.T) {
	d := newDispatcher(t, t.TempDir())
	console := &recordingConsole{}
	d.Console = console
	cl := newChecklist(identityModule())
	path := writeLog(t, filepath.Join(t.TempDir(), "ne.log"), "node01")

	_, err := d.RunFile(context.Background(), cl, path, "")
	require.NoError(t, err)
	assert.Len(t, console.shown, 1)

	d.Options.Silent = true
	_, err = d.RunFile(context.Background(), cl, path, "")
	require.NoError(t, err)

	d.Options.Silent = false
	d.Options.Template = "report.html"
	rs, err := d.RunFile(context.Background(), cl, path, "")
	require.NoError(t, err)
	assert.Equal(t, "report_node01.html", rs.ReportFilename)
	assert.Len(t, console.shown, 1)
}

func TestRunFileRenderFailure(t *testing.T) {
	out := t.TempDir()
	d := newDispatcher(t, out)
	d.Options.Template = "does-not-exist.md"
	cl := newChecklist(identityModule())
	path := writeLog(t, filepath.Join(t.TempDir(), "ne.log"), "node01")

	rs, err := d.RunFile(context.Background(), cl, path, "")
	assert.Nil(t, rs)
	var wErr *checker.WriteError
	assert.ErrorAs(t, err, &wErr)
}

func TestRunTree(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()
	writeLog(t, filepath.Join(root, "A", "node01.log"), "node01")
	writeLog(t, filepath.Join(root, "B", "node01.log"), "node01")
	writeLog(t, filepath.Join(root, "B", "C", "node02.log"), "node02")
	writeLog(t, filepath.Join(root, "node03.log"), "node03")
	require.NoError(t, os.WriteFile(filepath.Join(root, "A", "notes.log"), []byte("nothing to see\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "B", "other.log"), []byte("HOST node09\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "blob.log"), []byte{0x00, 0x01, 0x02, 'T'}, 0o644))

	d := newDispatcher(t, out)
	cl := newChecklist(identityModule(), statusModule("OK", checker.StatusPassed))

	batch, err := d.Run(context.Background(), cl, root)
	require.NoError(t, err)
	assert.Equal(t, out, batch.OutputPath)
	assert.Len(t, batch.Results, 4)
	assert.Len(t, batch.Errors, 2)
	for _, err := range batch.Errors {
		var mismatch *checker.TypeMismatchError
		assert.ErrorAs(t, err, &mismatch)
	}

	var names []string
	for _, rs := range batch.Results {
		names = append(names, rs.ReportFilename)
	}
	assert.Equal(t, []string{
		"report_A_node01.md",
		"report_B_C_node02.md",
		"report_B_node01.md",
		"report_node03.md",
	}, names)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	var written []string
	for _, e := range entries {
		written = append(written, e.Name())
	}
	sort.Strings(written)
	assert.Equal(t, names, written)
}

func TestRunTreeMismatchesNeverInvokeModules(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.log", "b.log", "sub/c.log"} {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("HOST node01\nnot our element\n"), 0o644))
	}
	counted := identityModule()
	d := newDispatcher(t, t.TempDir())

	results, errs := d.RunTree(context.Background(), newChecklist(counted), root)
	assert.Empty(t, results)
	assert.Len(t, errs, 3)
	assert.Zero(t, counted.calls.Load())
}

func TestRunNoLogFiles(t *testing.T) {
	d := newDispatcher(t, t.TempDir())
	batch, err := d.Run(context.Background(), newChecklist(identityModule()), t.TempDir())
	assert.ErrorIs(t, err, checker.ErrNoLogFiles)
	require.NotNil(t, batch)
	assert.Empty(t, batch.Results)
}

func TestRunSingleFileFailure(t *testing.T) {
	d := newDispatcher(t, t.TempDir())
	batch, err := d.Run(context.Background(), newChecklist(identityModule()), filepath.Join(t.TempDir(), "missing.log"))
	require.NoError(t, err)
	assert.Empty(t, batch.Results)
	assert.Len(t, batch.Errors, 1)
}

func TestRunFileContextIsPerFile(t *testing.T) {
	root := t.TempDir()
	writeLog(t, filepath.Join(root, "a.log"), "node01")
	writeLog(t, filepath.Join(root, "b.log"), "node02")

	var leaked atomic.Int32
	marker := newModule("MARKER", func(_ context.Context, dc *checker.Context, _ string) checker.Result {
		if dc.Has("SEEN") {
			leaked.Add(1)
		}
		dc.Set("SEEN", true)
		r := checker.NewResult("")
		r.Pass()
		return r
	})
	d := newDispatcher(t, t.TempDir())
	d.Options.Parallel = 1

	results, errs := d.RunTree(context.Background(), newChecklist(identityModule(), marker), root)
	assert.Empty(t, errs)
	assert.Len(t, results, 2)
	assert.Zero(t, leaked.Load())
}

// failingWriter refuses reports whose name contains deny.
type failingWriter struct {
	next checker.Writer
	deny string
}

func (w failingWriter) Write(dir, filename string, content []byte) (string, error) {
	if strings.Contains(filename, w.deny) {
		return "", errors.New("disk full")
	}
	return w.next.Write(dir, filename, content)
}

func reportFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestRunFileWriterFailure(t *testing.T) {
	out := t.TempDir()
	d := newDispatcher(t, out)
	d.Writer = failingWriter{next: d.Writer, deny: "node01"}
	path := writeLog(t, filepath.Join(t.TempDir(), "ne.log"), "node01")

	rs, err := d.RunFile(context.Background(), newChecklist(identityModule()), path, "")
	assert.Nil(t, rs)
	var wErr *checker.WriteError
	require.ErrorAs(t, err, &wErr)
	assert.Equal(t, filepath.Join(out, "report_node01.md"), wErr.Path)
	assert.ErrorContains(t, err, "disk full")
	assert.False(t, checker.IsFatal(err))
	assert.Empty(t, reportFiles(t, out))
}

func TestRunTreeContinuesPastPerFileFailures(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()
	writeLog(t, filepath.Join(root, "good.log"), "node01")
	writeLog(t, filepath.Join(root, "sub", "good.log"), "node02")
	writeLog(t, filepath.Join(root, "noid.log"), "")
	writeLog(t, filepath.Join(root, "full.log"), "nowrite")
	require.NoError(t, os.WriteFile(filepath.Join(root, "other.log"), []byte("plain text\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "other.log"), []byte("plain text\n"), 0o644))

	d := newDispatcher(t, out)
	d.Writer = failingWriter{next: d.Writer, deny: "nowrite"}

	results, errs := d.RunTree(context.Background(), newChecklist(identityModule()), root)
	assert.Len(t, results, 2)
	require.Len(t, errs, 4)

	var mismatches, missing, writes int
	for _, err := range errs {
		var mismatch *checker.TypeMismatchError
		var identity *checker.IdentityMissingError
		var write *checker.WriteError
		switch {
		case errors.As(err, &mismatch):
			mismatches++
		case errors.As(err, &identity):
			missing++
		case errors.As(err, &write):
			writes++
		}
		assert.False(t, checker.IsFatal(err))
	}
	assert.Equal(t, 2, mismatches)
	assert.Equal(t, 1, missing)
	assert.Equal(t, 1, writes)
	assert.Equal(t, []string{"report_node01.md", "report_sub_node02.md"}, reportFiles(t, out))
}

func TestRunTreeReportNamesNeverCollide(t *testing.T) {
	tests := []struct {
		name  string
		logs  map[string]string
		files []string
	}{
		{
			name:  "flat and nested directories",
			logs:  map[string]string{"A_B/x.log": "node01", "A/B/y.log": "node01"},
			files: []string{"report_A_B_node01.md", "report_A__B_node01.md"},
		},
		{
			name:  "joiner inside the hostname",
			logs:  map[string]string{"A/n.log": "n", "host.log": "A_n"},
			files: []string{"report_A_n.md", "report_A_n_2.md"},
		},
		{
			name:  "same host in one directory",
			logs:  map[string]string{"a.log": "node01", "b.log": "node01"},
			files: []string{"report_node01.md", "report_node01_2.md"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			out := t.TempDir()
			for name, host := range tt.logs {
				writeLog(t, filepath.Join(root, name), host)
			}
			d := newDispatcher(t, out)

			results, errs := d.RunTree(context.Background(), newChecklist(identityModule()), root)
			assert.Empty(t, errs)
			require.Len(t, results, len(tt.logs))

			var names []string
			for _, rs := range results {
				names = append(names, rs.ReportFilename)
			}
			sort.Strings(names)
			assert.Equal(t, tt.files, names)
			assert.Equal(t, tt.files, reportFiles(t, out))
		})
	}
}

func TestRunTreeFollowsSymlinkedLogs(t *testing.T) {
	root := t.TempDir()
	target := writeLog(t, filepath.Join(t.TempDir(), "ne.log"), "node01")
	if err := os.Symlink(target, filepath.Join(root, "linked.log")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	require.NoError(t, os.Symlink(t.TempDir(), filepath.Join(root, "linked-dir.log")))

	d := newDispatcher(t, t.TempDir())
	results, errs := d.RunTree(context.Background(), newChecklist(identityModule()), root)
	assert.Empty(t, errs)
	require.Len(t, results, 1)
	assert.Equal(t, "node01", results[0].Hostname)
}
