package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/containifyci/smartchecker/pkg/config"
	"github.com/containifyci/smartchecker/pkg/logger"
)

type rootCmdArgs struct {
	logFile  io.Closer
	config   *config.Config
	version  VersionInfo
	Config   string
	Progress string
	Verbose  bool
	Log2File bool
}

type VersionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Repo    string `json:"repo"`
}

const skipRootHooks = "skipRootHooks"

var RootArgs = &rootCmdArgs{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "smartchecker",
	Short: "Offline diagnostics for network element logs",
	Long: `smartchecker runs a checklist of check modules against logs collected from
network elements and writes one report per element.

A checklist names the element type, the modules to run and the report
templates. Modules are compiled in or loaded as plugins.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[skipRootHooks] == "true" {
			return nil
		}
		cfg, err := config.LoadConfig(RootArgs.Config)
		if err != nil {
			return err
		}
		RootArgs.config = cfg

		logOpts := slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}
		if RootArgs.Verbose || cfg.RunMode == config.RunModeDebug {
			logOpts.Level = slog.LevelDebug
			logOpts.AddSource = true
		}
		handler := logger.New(RootArgs.Progress, os.Stderr, logOpts)
		if RootArgs.Log2File {
			fileHandler, closer, err := logger.NewFileLog(cfg.LogFile, slog.HandlerOptions{Level: slog.LevelDebug})
			if err != nil {
				return err
			}
			RootArgs.logFile = closer
			handler = logger.NewTee(handler, fileHandler)
		}
		slog.SetDefault(slog.New(handler))
		slog.Debug("Version", "version", RootArgs.version)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[skipRootHooks] == "true" {
			return nil
		}
		if RootArgs.logFile != nil {
			err := RootArgs.logFile.Close()
			RootArgs.logFile = nil
			return err
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	slog.SetDefault(slog.New(logger.NewSimpleLog(os.Stderr, slog.LevelInfo)))
	rootCmd.PersistentFlags().BoolVarP(&RootArgs.Verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&RootArgs.Config, "config", "", "The configuration file to use")
	rootCmd.PersistentFlags().StringVar(&RootArgs.Progress, "progress", logger.ProgressPlain, "The progress logging format to use. Options are: pretty, plain")
	rootCmd.PersistentFlags().BoolVar(&RootArgs.Log2File, "log2file", false, "Also write the log into the configured log file")
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Config returns the configuration loaded for the running command.
func Config() *config.Config {
	if RootArgs.config == nil {
		return config.GetDefaultConfig()
	}
	return RootArgs.config
}

func SetVersionInfo(version, commit, date, repo string) string {
	rootCmd.Version = fmt.Sprintf("%s (Built on %s from Git SHA %s of %s)", version, date, commit, repo)
	RootArgs.version = VersionInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
		Repo:    repo,
	}
	return rootCmd.Version
}

func RootCmd() *cobra.Command {
	return rootCmd
}
