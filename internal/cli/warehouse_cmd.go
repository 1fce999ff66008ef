package cli

import (
	"github.com/spf13/cobra"

	"github.com/ohjang121/project-three-dwh/internal/config"
	"github.com/ohjang121/project-three-dwh/internal/db"
	"github.com/ohjang121/project-three-dwh/internal/etl"
	"github.com/ohjang121/project-three-dwh/internal/queries"
	"github.com/ohjang121/project-three-dwh/internal/schema"
)

func newCreateTablesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create-tables",
		Short: "Drop and recreate the staging and star schema tables on Redshift",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(config.ForSchema)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			warehouse, err := db.Open(ctx, cfg.ConnConfig())
			if err != nil {
				return err
			}
			defer warehouse.Close()

			runner := etl.New(warehouse.SQL(), a.logger)
			_, err = runner.Exec(ctx, schemaSteps(schema.Redshift))
			return err
		},
	}
}

func newETLCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "etl",
		Short: "Copy the S3 data into staging, then load the star schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(config.ForETL)
			if err != nil {
				return err
			}
			copies, err := queries.Copy(cfg.CopySource())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			warehouse, err := db.Open(ctx, cfg.ConnConfig())
			if err != nil {
				return err
			}
			defer warehouse.Close()

			runner := etl.New(warehouse.SQL(), a.logger)
			_, err = runner.Run(ctx, etl.Plan{
				Load:      etl.Statements(copies),
				Transform: etl.Statements(queries.Transform(schema.Redshift)),
			})
			return err
		},
	}
}

// schemaSteps drops every table, then creates every table.
func schemaSteps(d schema.Dialect) []etl.Step {
	return append(etl.Statements(queries.Drop(d)), etl.Statements(queries.Create(d))...)
}
