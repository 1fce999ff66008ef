package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/ohjang121/project-three-dwh/internal/db"
	"github.com/ohjang121/project-three-dwh/internal/etl"
	"github.com/ohjang121/project-three-dwh/internal/queries"
	"github.com/ohjang121/project-three-dwh/internal/schema"
	"github.com/ohjang121/project-three-dwh/internal/stage"
)

// DefaultLocalDB is the SQLite file used by local runs.
const DefaultLocalDB = "sparkify.db"

type localOptions struct {
	dbPath      string
	logData     []string
	songData    []string
	logJSONPath string
	ignoreCase  bool
}

func newLocalCmd(a *app) *cobra.Command {
	var opts localOptions

	cmd := &cobra.Command{
		Use:   "local",
		Short: "Run the full pipeline against a local SQLite warehouse",
		Long: "Recreate every table in a SQLite file, load the raw JSON log and song files\n" +
			"into staging, then run the same transforms the Redshift pipeline runs.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(opts.logData) == 0 || len(opts.songData) == 0 {
				return exitCodeError(ExitUsage, errors.New("--log-data and --song-data are required"))
			}
			return a.runLocal(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.dbPath, "db", DefaultLocalDB, "SQLite warehouse file")
	cmd.Flags().StringSliceVar(&opts.logData, "log-data", nil, "Event log file or directory (repeatable)")
	cmd.Flags().StringSliceVar(&opts.songData, "song-data", nil, "Song file or directory (repeatable)")
	cmd.Flags().StringVar(&opts.logJSONPath, "log-jsonpath", "", "jsonpaths file mapping event fields to columns (default: match by name)")
	cmd.Flags().BoolVar(&opts.ignoreCase, "ignore-case", false, "Match JSON keys to column names ignoring case when no jsonpaths file is given")
	return cmd
}

func (a *app) runLocal(cmd *cobra.Command, opts localOptions) error {
	var jsonPaths []stage.Path
	if opts.logJSONPath != "" {
		var err error
		if jsonPaths, err = stage.LoadJSONPaths(opts.logJSONPath); err != nil {
			return exitCodeError(ExitUsage, err)
		}
	}
	var loadOpts []stage.LoadOption
	if opts.ignoreCase {
		loadOpts = append(loadOpts, stage.WithIgnoreCase())
	}
	loadEvents, err := stage.NewFileLoad(schema.StagingEvents, opts.logData, jsonPaths, loadOpts...)
	if err != nil {
		return exitCodeError(ExitUsage, err)
	}
	loadSongs, err := stage.NewFileLoad(schema.StagingSongs, opts.songData, nil, loadOpts...)
	if err != nil {
		return exitCodeError(ExitUsage, err)
	}

	ctx := cmd.Context()
	warehouse, err := db.OpenLocal(ctx, opts.dbPath)
	if err != nil {
		return err
	}
	defer warehouse.Close()

	runner := etl.New(warehouse.SQL(), a.logger)
	if _, err := runner.Exec(ctx, schemaSteps(schema.SQLite)); err != nil {
		return err
	}
	if _, err := runner.Run(ctx, etl.Plan{
		Load:      []etl.Step{loadEvents, loadSongs},
		Transform: etl.Statements(queries.Transform(schema.SQLite)),
	}); err != nil {
		return err
	}

	counts, err := warehouse.TableCounts(ctx)
	if err != nil {
		return err
	}
	return writeCounts(cmd.OutOrStdout(), counts)
}
