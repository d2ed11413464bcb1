package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitescribe/internal/log"
)

// getBoolFlag reads a bool flag from the command or, failing that,
// from the root's persistent flags.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// getStringFlag is getBoolFlag for string flags.
func getStringFlag(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetString(name)
		if err != nil {
			return ""
		}
	}
	return v
}

// setupLogger creates the logger from the global logging flags and makes it
// the slog default. secrets are masked wherever they appear.
// The returned closer flushes the log file.
func setupLogger(cmd *cobra.Command, secrets ...string) (*slog.Logger, io.Closer, error) {
	logger, closer, err := log.NewLogger(log.Options{
		Console: cmd.ErrOrStderr(),
		Verbose: getBoolFlag(cmd, "verbose"),
		JSON:    getBoolFlag(cmd, "log-json"),
		File:    getStringFlag(cmd, "log-file"),
		Secrets: secrets,
	})
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return logger, closer, nil
}
