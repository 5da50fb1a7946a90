package checker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestResultTransitions(t *testing.T) {
	r := NewResult("memory")
	assert.Equal(t, StatusUnknown, r.Status)

	r.Pass()
	assert.Equal(t, StatusPassed, r.Status)

	r.Fail("node AS-0 over threshold")
	r.Pass()
	assert.Equal(t, StatusFailed, r.Status, "pass must not downgrade a failure")
	assert.Equal(t, []string{"node AS-0 over threshold"}, r.Info)

	r.Abort(errors.New("log truncated"))
	r.Fail("late finding")
	assert.Equal(t, StatusError, r.Status, "error is terminal")
	assert.Equal(t, "log truncated", r.Error)
	assert.Len(t, r.Info, 2)
}

func TestResultWithMetadata(t *testing.T) {
	meta := Metadata{ID: "NG.01", Name: "leak", Version: "1", Priority: PriorityMajor, Tags: []string{"ng"}, Criteria: "< 110MB"}

	r := NewResult("")
	r.AddInfof("%s has %d samples", "AS-0", 3)
	r.Fail()
	stamped := r.withMetadata(meta)

	assert.Equal(t, "NG.01", stamped.ModuleID)
	assert.Equal(t, "leak", stamped.ModuleName)
	assert.Equal(t, PriorityMajor, stamped.Priority)
	assert.Equal(t, StatusFailed, stamped.Status)
	assert.Equal(t, []string{"AS-0 has 3 samples"}, stamped.Info)

	stamped.Info[0] = "changed"
	assert.Equal(t, "AS-0 has 3 samples", r.Info[0])

	named := NewResult("custom name").withMetadata(meta)
	assert.Equal(t, "custom name", named.ModuleName)

	e := errorResult(meta, errors.New("boom"))
	assert.True(t, e.Errored())
	assert.Equal(t, "boom", e.Error)
	assert.Equal(t, "NG.01", e.ModuleID)
}

func TestStatusAndPriorityText(t *testing.T) {
	for _, s := range AllStatuses {
		parsed, err := ParseStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	_, err := ParseStatus("MAYBE")
	assert.Error(t, err)

	p, err := ParsePriority("")
	require.NoError(t, err)
	assert.Equal(t, PriorityDefault, p)
	p, err = ParsePriority("Critical")
	require.NoError(t, err)
	assert.Equal(t, PriorityCritical, p)
	assert.Equal(t, "danger", p.Label())
	_, err = ParsePriority("urgent")
	assert.Error(t, err)

	assert.True(t, PriorityCritical > PriorityMajor && PriorityMajor > PriorityNormal && PriorityNormal > PriorityDefault)

	r := NewResult("leak")
	r.Priority = PriorityCritical
	r.Fail("x")
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"FAILED"`)
	assert.Contains(t, string(data), `"priority":"critical"`)

	var meta Metadata
	require.NoError(t, yaml.Unmarshal([]byte("module_id: X\nname: x\nversion: '1'\npriority: major\n"), &meta))
	assert.Equal(t, PriorityMajor, meta.Priority)
}

func TestResultSetStats(t *testing.T) {
	rs := NewResultSet("/logs/a.log", "FlexiNG")
	_, ok := rs.Severity()
	assert.False(t, ok)

	add := func(s Status, p Priority) {
		r := NewResult("m")
		r.Status = s
		r.Priority = p
		rs.Append(r)
	}
	add(StatusPassed, PriorityCritical)
	add(StatusFailed, PriorityNormal)
	add(StatusError, PriorityCritical)
	add(StatusUnknown, PriorityCritical)
	add(StatusFailed, PriorityMajor)

	assert.Equal(t, map[Status]int{StatusPassed: 1, StatusFailed: 2, StatusError: 1, StatusUnknown: 1}, rs.Summary())
	assert.Len(t, rs.Failed(), 2)

	sev, ok := rs.Severity()
	assert.True(t, ok)
	assert.Equal(t, PriorityMajor, sev, "only failed results escalate severity")
}

func TestContext(t *testing.T) {
	dc := NewContext()
	_, ok := dc.Element()
	assert.False(t, ok)

	dc.SetElement(Element{Version: "3.2"})
	_, ok = dc.Element()
	assert.False(t, ok, "an identity without hostname is no identity")

	dc.Set(KeyElement, &Element{Hostname: "SAEGW01"})
	e, ok := dc.Element()
	assert.True(t, ok)
	assert.Equal(t, "SAEGW01", e.Hostname)

	dc.Set("NG_VERSION", "3.2")
	dc.Set(KeyDebug, true)
	dc.Set("COUNT", 3)
	assert.True(t, dc.Bool(KeyDebug))
	assert.Equal(t, "3", dc.String("COUNT"))
	assert.Equal(t, "", dc.String("MISSING"))
	assert.Equal(t, map[string]string{"NG_VERSION": "3.2"}, dc.Strings())

	child := dc.fork()
	child.Set("NG_VERSION", "3.1")
	child.Set("NEW", "x")
	assert.Equal(t, "3.2", dc.String("NG_VERSION"), "a fork does not write through")
	assert.False(t, dc.Has("NEW"))
	dc.merge(child)
	assert.Equal(t, map[string]string{"NG_VERSION": "3.1", "NEW": "x"}, dc.Strings())
	count, _ := dc.Get("COUNT")
	assert.Equal(t, 3, count)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); dc.Set("K", i) }()
		go func() { defer wg.Done(); _, _ = dc.Get("K") }()
	}
	wg.Wait()
	assert.True(t, dc.Has("K"))
}

func TestReportNaming(t *testing.T) {
	rs := NewResultSet("a.log", "FlexiNG")
	rs.Hostname = "SAE/GW 01"
	rs.Version = "3.2"
	rs.TemplateType = "html"

	assert.Equal(t, "report_SAE_GW_01.html", ReportName("", rs))
	assert.Equal(t, "FlexiNG-3.2-SAE_GW_01.html", ReportName("{element_type}-{version}-{hostname}.{template_type}", rs))

	root := "/logs"
	assert.Equal(t, "report_{hostname}.{template_type}", TreeReportName(root, "/logs"))
	assert.Equal(t, "report_A_{hostname}.{template_type}", TreeReportName(root, "/logs/A"))
	assert.Equal(t, "report_A_B_{hostname}.{template_type}", TreeReportName(root, "/logs/A/B"))
	assert.Equal(t, "report_A__B_{hostname}.{template_type}", TreeReportName(root, "/logs/A_B"))
	assert.Equal(t, "report_A__B_C_{hostname}.{template_type}", TreeReportName(root, "/logs/A_B/C"))

	tests := map[string]string{
		"report.md":            "md",
		"report.html":          "html",
		"report.md.tmpl":       "md",
		"/tmp/custom/ng.HTML":  "html",
		"plain":                "txt",
		"templates/plain.tmpl": "txt",
	}
	for ref, want := range tests {
		assert.Equal(t, want, TemplateType(ref), ref)
	}
}

func TestReportNamesReserve(t *testing.T) {
	names := newReportNames()
	assert.Equal(t, "report_A_n.md", names.reserve("report_A_n.md"))
	assert.Equal(t, "report_A_n_2.md", names.reserve("report_A_n.md"))
	assert.Equal(t, "report_A_n_3.md", names.reserve("report_A_n.md"))
	assert.Equal(t, "report_A_n_2_2.md", names.reserve("report_A_n_2.md"))
	assert.Equal(t, "report_B.html", names.reserve("report_B.html"))

	var none *reportNames
	assert.Equal(t, "report_A_n.md", none.reserve("report_A_n.md"))
}

func TestRunModuleDiscardsWritesAfterDeadline(t *testing.T) {
	dc := NewContext()
	wrote := make(chan struct{})
	late := &ModuleFunc{
		Meta: Metadata{ID: "LATE", Name: "late", Version: "1.0"},
		RunFn: func(ctx context.Context, mdc *Context, _ string) Result {
			<-ctx.Done()
			mdc.Set("LATE", "after deadline")
			close(wrote)
			return NewResult("")
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	r := (&Dispatcher{}).runModule(ctx, late, dc, "ne.log")
	<-wrote
	assert.Equal(t, StatusError, r.Status)
	assert.Contains(t, r.Error, "timed out")
	assert.False(t, dc.Has("LATE"))
}

func TestRunModuleMergesInTimeWrites(t *testing.T) {
	dc := NewContext()
	publisher := &ModuleFunc{
		Meta: Metadata{ID: "PUB", Name: "pub", Version: "1.0", Provides: []string{"NG_VERSION", "UNSET"}},
		RunFn: func(_ context.Context, mdc *Context, _ string) Result {
			mdc.Set("NG_VERSION", "3.2")
			r := NewResult("")
			r.Pass()
			return r
		},
	}
	r := (&Dispatcher{}).runModule(context.Background(), publisher, dc, "ne.log")
	assert.Equal(t, StatusPassed, r.Status)
	assert.Equal(t, "3.2", dc.String("NG_VERSION"))

	panics := &ModuleFunc{
		Meta: Metadata{ID: "BOOM", Name: "boom", Version: "1.0"},
		RunFn: func(_ context.Context, mdc *Context, _ string) Result {
			mdc.Set("HALF", "written")
			panic("boom")
		},
	}
	r = (&Dispatcher{}).runModule(context.Background(), panics, dc, "ne.log")
	assert.Equal(t, StatusError, r.Status)
	assert.False(t, dc.Has("HALF"))
}
