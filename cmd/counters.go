package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/containifyci/smartchecker/pkg/counters"
	"github.com/containifyci/smartchecker/pkg/report"
)

type countersCmdArgs struct {
	opts     counters.Options
	Counters string
}

var countersArgs = &countersCmdArgs{}

var countersCmd = &cobra.Command{
	Use:   "counters",
	Short: "Query performance counters of network elements",
	Long: `Query counters from the OSS statistics databases configured under
counters in the configuration file and print them as JSON, or save them into
the reports directory with --local-save.

Without a start time the query covers the 30 minutes before the stop time,
which defaults to now.`,
	Example: `  smartchecker counters -e SHMME03BNK -c EPS_ATTACH_FAIL:EPS_ATTACH_SUCC
  smartchecker counters -D 2016/07/01 -T 0930 -d 2016/07/01 -t 1030 -c EPS_ATTACH_FAIL -l`,
	Args: cobra.NoArgs,
	RunE: runCounters,
}

func init() {
	rootCmd.AddCommand(countersCmd)

	f := countersCmd.Flags()
	f.StringVarP(&countersArgs.opts.Element, "element", "e", counters.AllElements, "The element name, ALL for every element of the database")
	f.StringVarP(&countersArgs.opts.StartDate, "start-date", "D", "", "Start date as YYYY/MM/DD")
	f.StringVarP(&countersArgs.opts.StartTime, "start-time", "T", "", "Start time as HHMM")
	f.StringVarP(&countersArgs.opts.StopDate, "stop-date", "d", "", "Stop date as YYYY/MM/DD, defaults to today")
	f.StringVarP(&countersArgs.opts.StopTime, "stop-time", "t", "", "Stop time as HHMM, defaults to now")
	f.StringVarP(&countersArgs.opts.Period, "period", "p", counters.DefaultPeriod, "The statistics period in minutes")
	f.StringVarP(&countersArgs.opts.UnitType, "unit-type", "u", counters.DefaultUnitType, "The statistics unit type")
	f.StringVarP(&countersArgs.Counters, "counters", "c", "", "Colon or comma separated counter names")
	f.BoolVarP(&countersArgs.opts.LocalSave, "local-save", "l", false, "Save the result into the reports directory")
	f.StringVarP(&countersArgs.opts.ReportFile, "report-file", "R", "", "The report file name used with --local-save")
}

func runCounters(cmd *cobra.Command, _ []string) error {
	cfg := Config()
	opts := countersArgs.opts
	opts.Counters = counters.ParseCounters(countersArgs.Counters)
	if err := opts.Complete(time.Now()); err != nil {
		return err
	}
	if err := counters.LoadEnv(cfg.Counters.EnvFile); err != nil {
		return err
	}

	slog.Info("Query counters", "element", opts.Element, "counters", opts.Counters,
		"start", opts.StartDate+" "+opts.StartTime, "stop", opts.StopDate+" "+opts.StopTime)
	result, err := counters.NewQuerier(cfg.Counters).Query(cmd.Context(), &opts)
	if err != nil {
		return err
	}

	if opts.LocalSave {
		path, err := counters.Save(report.NewFileWriter(), cfg.ReportsPath, opts.ReportFile, result)
		if err != nil {
			return err
		}
		slog.Info("Saved counters", "path", path, "rows", len(result.Columns))
		return nil
	}
	b, err := json.MarshalIndent(result, "", "\t")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}
