package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/containifyci/smartchecker/pkg/checker"
	"github.com/containifyci/smartchecker/pkg/config"
	"github.com/containifyci/smartchecker/pkg/logfile"
	"github.com/containifyci/smartchecker/pkg/report"
)

type runCmdArgs struct {
	SaveTo      string
	Template    string
	FileTimeout time.Duration
	Parallel    int
	Silent      bool
	Debug       bool
	JSONOutput  bool
	NoColor     bool
}

var runArgs = &runCmdArgs{}

var runCmd = &cobra.Command{
	Use:   "run <checklist> <logfile|directory>",
	Short: "Check log files against a checklist",
	Long: `Run every module of the checklist against a log file or against every
log file below a directory, and write one report per network element.

Log files of another element type are skipped. The command only fails when
the checklist or one of its modules cannot be loaded.`,
	Example: `  smartchecker run checklists/flexing.ckl logs/
  smartchecker run flexing.ckl logs/SAEGW01.log --template report.html --saveto /tmp/reports`,
	Args: cobra.ExactArgs(2),
	RunE: RunCommand,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runArgs.SaveTo, "saveto", "s", "", "The directory the reports are written to")
	runCmd.Flags().StringVarP(&runArgs.Template, "template", "T", "", "The report template, overrides the checklist's report template")
	runCmd.Flags().DurationVar(&runArgs.FileTimeout, "file-timeout", 0, "Time limit for checking one log file, defaults to the configured file_timeout")
	runCmd.Flags().IntVarP(&runArgs.Parallel, "parallel", "p", 0, "Number of log files checked at once, defaults to the configured parallel")
	runCmd.Flags().BoolVar(&runArgs.Silent, "silent", false, "Do not print markdown reports to the console")
	runCmd.Flags().BoolVarP(&runArgs.Debug, "debug", "d", false, "Pass debug mode to the check modules")
	runCmd.Flags().BoolVar(&runArgs.JSONOutput, "json", false, "Print the summary as JSON")
	runCmd.Flags().BoolVar(&runArgs.NoColor, "no-color", false, "Disable colored output")
}

func RunCommand(cmd *cobra.Command, args []string) error {
	cfg := Config()
	cl, stop, err := loadChecklist(args[0])
	defer stop()
	if err != nil {
		return err
	}
	slog.Info("Checklist loaded", "checklist", cl.Name, "type", cl.NetElementType, "modules", len(cl.Modules))

	d, err := newDispatcher(cfg, cl)
	if err != nil {
		return err
	}

	batch, err := d.Run(cmd.Context(), cl, args[1])
	if errors.Is(err, checker.ErrNoLogFiles) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range batch.Errors {
		if checker.IsFatal(e) {
			return e
		}
	}

	useColor := !runArgs.NoColor && isTerminal(os.Stdout)
	jsonOutput := runArgs.JSONOutput || cfg.OutputFormat == config.OutputJSON
	return report.NewSummaryFormatter(cmd.OutOrStdout(), RootArgs.Verbose, jsonOutput, useColor).Format(batch)
}

func newDispatcher(cfg *config.Config, cl *checker.Checklist) (*checker.Dispatcher, error) {
	matcher, err := logfile.NewMatcher(cfg.LogPatterns, cfg.LogSuffixes)
	if err != nil {
		return nil, err
	}
	if known := matcher.ElementTypes(); !slices.Contains(known, cl.NetElementType) {
		return nil, checker.NewResolutionError(cl.Name,
			fmt.Errorf("no log pattern for element type %q, known: %s", cl.NetElementType, strings.Join(known, ", ")))
	}

	opts := checker.Options{
		OutputPath:  runArgs.SaveTo,
		Template:    runArgs.Template,
		FileTimeout: cfg.FileTimeout,
		Parallel:    cfg.Parallel,
		Debug:       runArgs.Debug || cfg.RunMode == config.RunModeDebug,
		Silent:      runArgs.Silent,
	}
	if opts.OutputPath == "" && cl.ReportsPath() == "" {
		opts.OutputPath = cfg.ReportsPath
	}
	if runArgs.FileTimeout > 0 {
		opts.FileTimeout = runArgs.FileTimeout
	}
	if runArgs.Parallel > 0 {
		opts.Parallel = runArgs.Parallel
	}

	useColor := !runArgs.NoColor && isTerminal(os.Stdout)
	return &checker.Dispatcher{
		Matcher:  matcher,
		Detector: logfile.TextDetector{},
		Renderer: report.NewTemplateRenderer(cfg.TemplatePath),
		Writer:   report.NewFileWriter(),
		Console:  report.NewMarkdownConsole(os.Stdout, useColor, terminalWidth(os.Stdout)),
		Options:  opts,
	}, nil
}
