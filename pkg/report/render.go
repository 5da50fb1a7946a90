package report

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/containifyci/smartchecker/pkg/checker"
)

//go:embed templates/*.tmpl
var builtin embed.FS

// ErrTemplateNotFound is returned when a template reference matches neither
// a file nor a built-in template.
var ErrTemplateNotFound = errors.New("template not found")

// TemplateRenderer renders reports with text/template. Template references
// are looked up in Dir first and then among the built-in templates.
type TemplateRenderer struct {
	Dir string
}

// NewTemplateRenderer returns a renderer reading user templates from dir.
func NewTemplateRenderer(dir string) *TemplateRenderer {
	return &TemplateRenderer{Dir: dir}
}

var funcs = template.FuncMap{
	"label":      label,
	"join":       strings.Join,
	"upper":      strings.ToUpper,
	"statusIcon": statusIcon,
	"inc":        func(i int) int { return i + 1 },
}

// Render executes templateRef with data.
func (r *TemplateRenderer) Render(templateRef string, data map[string]any) (string, error) {
	text, err := r.load(templateRef)
	if err != nil {
		return "", err
	}
	tmpl, err := template.New(templateRef).Funcs(funcs).Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", templateRef, err)
	}
	var out strings.Builder
	if err := tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateRef, err)
	}
	return out.String(), nil
}

func (r *TemplateRenderer) load(ref string) (string, error) {
	if ref == "" {
		return "", errors.New("no template given")
	}
	candidates := []string{ref}
	if r.Dir != "" && !filepath.IsAbs(ref) {
		candidates = append([]string{filepath.Join(r.Dir, ref)}, candidates...)
	}
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to read template %s: %w", path, err)
		}
	}

	name := filepath.Base(ref)
	data, err := builtin.ReadFile("templates/" + strings.TrimSuffix(name, ".tmpl") + ".tmpl")
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, ref)
	}
	return string(data), nil
}

// Builtin lists the names of the embedded templates.
func Builtin() []string {
	entries, _ := builtin.ReadDir("templates")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".tmpl"))
	}
	return names
}

func label(p checker.Priority) string {
	return p.Label()
}

func statusIcon(s checker.Status) string {
	switch s {
	case checker.StatusPassed:
		return checkmark
	case checker.StatusFailed:
		return cross
	case checker.StatusError:
		return warning
	default:
		return info
	}
}
