package flexing

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/containifyci/smartchecker/pkg/checker"
	"github.com/containifyci/smartchecker/pkg/logfile"
)

// MemoryThresholds is the allocated fast path memory, in MB, above which a
// node is considered to be leaking.
var MemoryThresholds = map[string]float64{
	"AS":  110,
	"SAB": 500,
}

var (
	patMemFail  = regexp.MustCompile(`(?s)ssh ([\w-]+) showstat\|.*?mem_alloc_failed_for_linear_filters = (\d+)`)
	patMemAlloc = regexp.MustCompile(`info ([\w-]+) featuremem.*FASTPATH_MALLOC dynamic allocated bytes \[chunks\]: (\d+)/(\d+)`)
	patNodeType = regexp.MustCompile(`[\d+-]`)
)

// MemoryLeak detects the AS/SAB memory leak of NG 3.x gateways.
var MemoryLeak = &checker.ModuleFunc{
	Meta: checker.Metadata{
		ID:      "NG20150518.01",
		Name:    "FlexiNG(NG3.x) AS/SAB memory leak",
		Version: "1.1",
		Description: "NG3.x AS/SAB nodes leak fast path memory, which shows up as " +
			"end users failing to browse. Memory usage has to be checked regularly.",
		Criteria: fmt.Sprintf("memory usage: AS < %.0fMB and SAB < %.0fMB", MemoryThresholds["AS"], MemoryThresholds["SAB"]),
		Tags:     []string{"flexing", "china"},
		Priority: checker.PriorityCritical,
		CheckCommands: []string{
			"ssh <node> showstat | grep mem_alloc_failed_for_linear_filters",
			"info <node> featuremem",
		},
		Requires: []string{checker.KeyElement},
	},
	RunFn: runMemoryLeak,
}

type memSample struct {
	node string
	mb   float64
}

func runMemoryLeak(ctx context.Context, dc *checker.Context, path string) checker.Result {
	result := checker.NewResult(MemoryLeak.Meta.Name)

	lines, err := logfile.ReadLines(path)
	if err != nil {
		result.Abort(err)
		return result
	}

	element, _ := dc.Element()
	switch {
	case element.Version == "":
		result.AddInfo("NG version can't be determined")
	case strings.HasPrefix(element.Version, "3.2"):
		checkMemoryFailCounter(&result, strings.Join(lines, "\n"))
	}

	if err := ctx.Err(); err != nil {
		result.Abort(err)
		return result
	}
	checkMemoryAllocation(&result, lines)
	return result
}

// checkMemoryFailCounter fails the result for every node reporting failed
// linear filter allocations.
func checkMemoryFailCounter(result *checker.Result, block string) {
	seen := make(map[string]bool)
	for _, m := range patMemFail.FindAllStringSubmatch(block, -1) {
		key := m[1] + "/" + m[2]
		if seen[key] {
			continue
		}
		seen[key] = true
		if cnt, _ := strconv.Atoi(m[2]); cnt > 0 {
			result.Fail(fmt.Sprintf("%s has %d times memory failed.", m[1], cnt))
		}
	}
}

func checkMemoryAllocation(result *checker.Result, lines []string) {
	samples := make(map[string][]memSample)
	over := false
	for _, line := range lines {
		m := patMemAlloc.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		node := m[1]
		nodeType := patNodeType.ReplaceAllString(node, "")
		threshold, ok := MemoryThresholds[nodeType]
		if !ok {
			continue
		}
		bytes, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		mb := bytes / 1024 / 1024
		samples[nodeType] = append(samples[nodeType], memSample{node: node, mb: mb})
		if mb > threshold {
			over = true
			result.Fail(fmt.Sprintf("%s memory is closing to full: %.2f MB", node, mb))
		}
	}

	if len(samples) == 0 {
		result.AddInfo("can't find the memory usage info")
		return
	}
	if over || result.Status == checker.StatusFailed {
		return
	}

	types := make([]string, 0, len(samples))
	for t := range samples {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		top := samples[t][0]
		for _, s := range samples[t][1:] {
			if s.mb > top.mb {
				top = s
			}
		}
		result.AddInfof("%s has a max memory %.2f MB", top.node, top.mb)
	}
	result.Pass()
}

func init() {
	checker.Register(MemoryLeak)
}
