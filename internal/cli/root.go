// Package cli wires the warehouse operations into the sparkify-dwh command tree.
package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ohjang121/project-three-dwh/internal/config"
	"github.com/ohjang121/project-three-dwh/internal/logging"
	"github.com/ohjang121/project-three-dwh/internal/provision"
)

// ProvisionerFactory builds a provisioner for the given settings.
type ProvisionerFactory func(ctx context.Context, s provision.Settings, logger logrus.FieldLogger) (*provision.Provisioner, error)

// app holds state shared by every command of one invocation.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	logger         *logrus.Logger
	newProvisioner ProvisionerFactory
}

// Option configures the command tree.
type Option func(*app)

// WithProvisionerFactory replaces the AWS-backed provisioner.
func WithProvisionerFactory(f ProvisionerFactory) Option {
	return func(a *app) {
		a.newProvisioner = f
	}
}

// NewRootCmd builds the sparkify-dwh root command tree.
func NewRootCmd(version string, opts ...Option) *cobra.Command {
	a := &app{newProvisioner: awsProvisioner}
	for _, opt := range opts {
		opt(a)
	}

	cmd := &cobra.Command{
		Use:           "sparkify-dwh",
		Short:         "Provision a Redshift warehouse and load the Sparkify star schema",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(a.logLevel, a.logFormat, cmd.ErrOrStderr())
			if err != nil {
				return exitCodeError(ExitUsage, err)
			}
			a.logger = logger
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultPath, "Path to the dwh.cfg file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&a.logFormat, "log-format", logging.FormatText, "Log format (text|json)")
	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return exitCodeError(ExitUsage, err)
	})

	cmd.AddCommand(newProvisionCmd(a))
	cmd.AddCommand(newTeardownCmd(a))
	cmd.AddCommand(newCreateTablesCmd(a))
	cmd.AddCommand(newETLCmd(a))
	cmd.AddCommand(newLocalCmd(a))
	cmd.AddCommand(newReportCmd(a))
	cmd.AddCommand(newVersionCmd(version))

	return cmd
}

// loadConfig reads the config file once and validates it for purpose.
func (a *app) loadConfig(purpose config.Purpose) (*config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(purpose); err != nil {
		return nil, fmt.Errorf("%s: %w", a.configPath, err)
	}
	return cfg, nil
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version)
			return err
		},
	}
}
