package cmd

import (
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/term"

	"github.com/containifyci/smartchecker/pkg/checker"
	"github.com/containifyci/smartchecker/pkg/plugin"

	// compiled-in check modules
	_ "github.com/containifyci/smartchecker/pkg/modules/flexing"
)

// loadChecklist reads a checklist, starts its plugins and resolves its
// modules. The returned func stops the plugins.
func loadChecklist(ref string) (*checker.Checklist, func(), error) {
	def, err := checker.LoadChecklistDefinition(checklistFile(ref))
	if err != nil {
		return nil, func() {}, err
	}

	stop, err := plugin.LoadAll(def.File, def.Plugins, checker.Default(), pluginLogger())
	if err != nil {
		return nil, stop, err
	}
	cl, err := checker.NewChecklist(def, checker.Default())
	if err != nil {
		stop()
		return nil, func() {}, err
	}
	return cl, stop, nil
}

// checklistFile looks a checklist up as given, then in the configured
// checklist directory.
func checklistFile(ref string) string {
	if _, err := os.Stat(ref); err == nil || filepath.IsAbs(ref) {
		return ref
	}
	dir := Config().ChecklistPath
	if dir == "" {
		return ref
	}
	candidate := filepath.Join(dir, ref)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ref
}

func pluginLogger() hclog.Logger {
	level := hclog.Error
	if RootArgs.Verbose {
		level = hclog.Debug
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "plugin",
		Level:  level,
		Output: os.Stderr,
	})
}

// isTerminal checks if output is a terminal
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func terminalWidth(f *os.File) int {
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}
