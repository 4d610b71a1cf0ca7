package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/statecraft/internal/cli"
	"github.com/aretw0/statecraft/internal/config"
	"github.com/aretw0/statecraft/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the state shared by every command of one invocation.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	rootCmd := &cobra.Command{
		Use:   "statecraft",
		Short: "Statecraft is a declarative workflow engine for business entities",
		Long: `Statecraft runs configurable state machines (orders, leads, tickets...) with
guard conditions, role checks, action hooks and an audit history.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Process config file (yaml, json or toml)")
	flags.StringP("workflows", "w", "", "Workflow definitions file (overrides config)")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	_ = a.v.BindPFlag("workflows", flags.Lookup("workflows"))
	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))

	rootCmd.AddCommand(
		newServeCmd(a),
		newMCPCmd(a),
		newValidateCmd(a),
		newGraphCmd(a),
		newDescribeCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

func (a *app) load(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(a.v, path)
	if err != nil {
		return err
	}
	level, _ := logging.ParseLevel(cfg.LogLevel)
	a.cfg = cfg
	a.logger = logging.New(level)
	return nil
}

// runtime builds the configured engine. Callers must Close it.
func (a *app) runtime(ctx context.Context) (*cli.Runtime, error) {
	rt, err := cli.NewRuntime(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return rt, nil
}
