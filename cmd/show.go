package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/containifyci/smartchecker/pkg/checker"
	"github.com/containifyci/smartchecker/pkg/report"
)

// DefaultModuleInfoTemplate describes a checklist when it names no
// module_info template.
const DefaultModuleInfoTemplate = "modules.md"

type showCmdArgs struct {
	SaveTo   string
	Template string
}

var showArgs = &showCmdArgs{}

var showCmd = &cobra.Command{
	Use:   "show <checklist>",
	Short: "Describe the modules of a checklist",
	Long: `Render the checklist's module_info template with the metadata of every
module and the commands needed to collect its logs.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

var commandsCmd = &cobra.Command{
	Use:   "commands <checklist>",
	Short: "List the log collection commands of a checklist",
	Args:  cobra.ExactArgs(1),
	RunE:  runCommands,
}

func init() {
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(commandsCmd)

	showCmd.Flags().StringVarP(&showArgs.SaveTo, "saveto", "s", "", "Write the description into this file instead of stdout")
	showCmd.Flags().StringVarP(&showArgs.Template, "template", "T", "", "The template to render, overrides the checklist's module_info template")
}

func runShow(cmd *cobra.Command, args []string) error {
	cl, stop, err := loadChecklist(args[0])
	defer stop()
	if err != nil {
		return err
	}

	tmpl := showArgs.Template
	if tmpl == "" {
		tmpl = cl.Template(checker.TemplateModuleInfo)
	}
	if tmpl == "" {
		tmpl = DefaultModuleInfoTemplate
	}

	modules := make([]checker.Metadata, len(cl.Modules))
	for i, m := range cl.Modules {
		modules[i] = m.Metadata()
	}
	text, err := report.NewTemplateRenderer(Config().TemplatePath).Render(tmpl, map[string]any{
		"checklist": cl,
		"modules":   modules,
		"commands":  cl.CheckCommands(),
	})
	if errors.Is(err, report.ErrTemplateNotFound) {
		return fmt.Errorf("%w, built-in templates: %s", err, strings.Join(report.Builtin(), ", "))
	}
	if err != nil {
		return err
	}

	if showArgs.SaveTo == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), text)
		return err
	}
	path, err := report.NewFileWriter().Write(filepath.Dir(showArgs.SaveTo), filepath.Base(showArgs.SaveTo), []byte(text))
	if err != nil {
		return err
	}
	slog.Info("Saved module description", "path", path)
	return nil
}

func runCommands(cmd *cobra.Command, args []string) error {
	cl, stop, err := loadChecklist(args[0])
	defer stop()
	if err != nil {
		return err
	}
	commands := cl.CheckCommands()
	if len(commands) == 0 {
		slog.Warn("No log collection commands", "checklist", cl.Name)
		return nil
	}
	for _, c := range commands {
		fmt.Fprintln(cmd.OutOrStdout(), c)
	}
	return nil
}

