package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ohjang121/project-three-dwh/internal/config"
	"github.com/ohjang121/project-three-dwh/internal/provision"
)

// awsProvisioner builds a provisioner backed by the real AWS clients.
func awsProvisioner(ctx context.Context, s provision.Settings, logger logrus.FieldLogger) (*provision.Provisioner, error) {
	awsCfg, err := provision.LoadAWSConfig(ctx, s)
	if err != nil {
		return nil, err
	}
	return provision.NewFromConfig(awsCfg, s, provision.WithLogger(logger)), nil
}

func newProvisionCmd(a *app) *cobra.Command {
	var deleteAfter bool

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create the IAM role and the Redshift cluster",
		Long: "Create the IAM role Redshift uses to read S3, launch the cluster, wait until it is\n" +
			"available and open its port. Prints the endpoint and role ARN to put in dwh.cfg.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(config.ForProvision)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			p, err := a.newProvisioner(ctx, cfg.ProvisionSettings(), a.logger)
			if err != nil {
				return err
			}

			roleARN, err := p.CreateRole(ctx)
			if err != nil {
				return err
			}
			cluster, err := p.CreateCluster(ctx, roleARN)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, provision.FormatCluster(cluster))
			fmt.Fprintf(out, "\nHOST=%s\nIAM_ROLE_ARN=%s\n", cluster.Endpoint.Host, roleARN)

			if deleteAfter {
				return teardown(ctx, p)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&deleteAfter, "delete", false, "Delete the cluster and role after provisioning")
	return cmd
}

func newTeardownCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "teardown",
		Short: "Delete the Redshift cluster and the IAM role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(config.ForTeardown)
			if err != nil {
				return err
			}
			p, err := a.newProvisioner(cmd.Context(), cfg.ProvisionSettings(), a.logger)
			if err != nil {
				return err
			}
			return teardown(cmd.Context(), p)
		},
	}
}

func teardown(ctx context.Context, p *provision.Provisioner) error {
	if err := p.DeleteCluster(ctx); err != nil {
		return err
	}
	return p.DeleteRole(ctx)
}
