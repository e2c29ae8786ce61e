// Package app holds the enrollctl commands.
package app

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"attendance/internal/platform/config"
	"attendance/internal/platform/logger"
)

// env is what every subcommand shares once the root has loaded config.
type env struct {
	cfg    config.Config
	logger *slog.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	e := &env{}
	var envFile string

	cmd := &cobra.Command{
		Use:   "enrollctl",
		Short: "Fingerprint enrollment coordinator",
		Long: `enrollctl drives a fingerprint enrollment against the sensor, the
enrollment broadcast channel and the biometric persistence API.

Connection settings come from the environment, optionally seeded from a
dotenv file.`,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			e.cfg = config.Load(envFile)
			// stdout belongs to the interactive prompt
			e.logger = logger.NewWithWriter(os.Stderr, e.cfg.LogFormat, e.cfg.LogLevel)
			slog.SetDefault(e.logger)
		},
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				slog.Error("Error displaying help", "error", err)
			}
		},
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	cmd.AddCommand(newStartCmd(e))
	cmd.AddCommand(newSimulateCmd(e))
	cmd.AddCommand(newLocksCmd(e))

	return cmd
}
