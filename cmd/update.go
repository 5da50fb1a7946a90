package cmd

import (
	"fmt"
	"log/slog"

	"github.com/containifyci/go-self-update/pkg/updater"
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update smartchecker to the latest version",
	Long: `Update the smartchecker binary to the latest release published on GitHub.
Nothing is downloaded when the running version is already the latest.`,
	Annotations: map[string]string{skipRootHooks: "true"},
	RunE:        runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, _ []string) error {
	currentVersion := RootArgs.version.Version
	if currentVersion == "" {
		currentVersion = "dev"
	}
	slog.Info("Checking for updates", "current_version", currentVersion)

	u := updater.NewUpdater(
		"smartchecker",
		"containifyci",
		"smartchecker",
		currentVersion,
		updater.WithUpdateHook(func() error {
			fmt.Fprintln(cmd.OutOrStdout(), "Update completed successfully! Please restart smartchecker to use the new version.")
			return nil
		}),
	)

	updated, err := u.SelfUpdate()
	if err != nil {
		return fmt.Errorf("failed to update smartchecker: %w", err)
	}
	if !updated {
		slog.Info("No update needed", "version", currentVersion)
	}
	return nil
}
