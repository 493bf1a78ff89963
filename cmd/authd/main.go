// Command authd serves bearer-authenticated endpoints and the identity API,
// and provides helpers to mint development tokens and seed identities.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-auth-bearer/config"
)

const appName = "authd"

var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Bearer token authentication service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	env := func() (*config.Config, *logrus.Logger, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, nil, err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		logger, err := newLogger(cfg.LogLevel)
		if err != nil {
			return nil, nil, err
		}
		return cfg, logger, nil
	}

	cmd.AddCommand(
		serveCmd(env),
		mintCmd(env),
		seedCmd(env),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

type envLoader func() (*config.Config, *logrus.Logger, error)

func newLogger(level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger, nil
}
