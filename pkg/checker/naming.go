package checker

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultReportName is the report filename template for single file runs.
const DefaultReportName = "report_{hostname}.{template_type}"

const pathJoiner = "_"

// ReportName expands a filename template. Supported placeholders are
// {hostname}, {version}, {element_type} and {template_type}.
func ReportName(tmpl string, rs *ResultSet) string {
	if tmpl == "" {
		tmpl = DefaultReportName
	}
	r := strings.NewReplacer(
		"{hostname}", sanitize(rs.Hostname),
		"{version}", sanitize(rs.Version),
		"{element_type}", sanitize(rs.ElementType),
		"{template_type}", rs.TemplateType,
	)
	return r.Replace(tmpl)
}

// TreeReportName builds the filename template for a file found at dir inside
// a directory walk rooted at root, so that same-named hosts in different
// subdirectories get distinct reports. A joiner inside a directory name is
// doubled so nested and flat directories cannot produce the same prefix:
//
//	root/           -> report_{hostname}.{template_type}
//	root/a/b/       -> report_a_b_{hostname}.{template_type}
//	root/a_b/       -> report_a__b_{hostname}.{template_type}
func TreeReportName(root, dir string) string {
	prefix := "report"
	rel, err := filepath.Rel(root, dir)
	if err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
		parts := strings.Split(filepath.ToSlash(rel), "/")
		for i, part := range parts {
			parts[i] = strings.ReplaceAll(part, pathJoiner, pathJoiner+pathJoiner)
		}
		prefix = prefix + pathJoiner + strings.Join(parts, pathJoiner)
	}
	return prefix + pathJoiner + "{hostname}.{template_type}"
}

// reportNames hands out report filenames within one run. A name that is
// already taken gets a counter before its extension: report_n.md,
// report_n_2.md, report_n_3.md.
type reportNames struct {
	taken map[string]bool
	mu    sync.Mutex
}

func newReportNames() *reportNames {
	return &reportNames{taken: make(map[string]bool)}
}

func (n *reportNames) reserve(name string) string {
	if n == nil {
		return name
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 2; n.taken[candidate]; i++ {
		candidate = fmt.Sprintf("%s%s%d%s", base, pathJoiner, i, ext)
	}
	n.taken[candidate] = true
	if candidate != name {
		slog.Warn("Report name already used in this run", "name", name, "renamed", candidate)
	}
	return candidate
}

// TemplateType derives the report type from a template reference suffix.
func TemplateType(templateRef string) string {
	ext := strings.TrimPrefix(filepath.Ext(templateRef), ".")
	if ext == "" || ext == "tmpl" {
		// report.md.tmpl -> md
		inner := strings.TrimSuffix(templateRef, filepath.Ext(templateRef))
		ext = strings.TrimPrefix(filepath.Ext(inner), ".")
	}
	if ext == "" {
		return "txt"
	}
	return strings.ToLower(ext)
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, s)
}
