// Package cli implements the dashsession command line client.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jrsteele09/go-dash-session/internal/config"
	"github.com/jrsteele09/go-dash-session/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	flagConfig    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string
)

// NewRootCmd creates the root cobra command for the dashsession CLI.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "dashsession",
		Short:         "Sign in to the dashboard API and call it with the stored session",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default $DASHSESSION_CONFIG or the user config dir)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format (console, json)")

	root.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newRefreshCmd(),
		newGetCmd(),
		newVersionCmd(version),
	)
	return root
}

// withApp loads config, sets up logging and hands fn a ready client stack.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func newLogger(cfg config.Config, w io.Writer) zerolog.Logger {
	level := cfg.GetLogLevel()
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	if flagDebug {
		level = "debug"
	}
	format := cfg.GetLogFormat()
	if flagLogFormat != "" {
		format = flagLogFormat
	}
	return logging.New(level, format, w)
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
