package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ohjang121/project-three-dwh/internal/config"
	"github.com/ohjang121/project-three-dwh/internal/db"
)

func newReportCmd(a *app) *cobra.Command {
	var (
		dbPath string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print table counts and play statistics",
		Long:  "Query Redshift, or a local SQLite warehouse with --db, for row counts, top songs, and plays by hour and level.\n" +
			"--limit 0 omits the top songs section.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return exitCodeError(ExitUsage, fmt.Errorf("--limit must not be negative, got %d", limit))
			}

			ctx := cmd.Context()
			var warehouse *db.DB
			if dbPath != "" {
				local, err := db.OpenLocal(ctx, dbPath)
				if err != nil {
					return err
				}
				warehouse = local
			} else {
				cfg, err := a.loadConfig(config.ForSchema)
				if err != nil {
					return err
				}
				remote, err := db.Open(ctx, cfg.ConnConfig())
				if err != nil {
					return err
				}
				warehouse = remote
			}
			defer warehouse.Close()

			counts, err := warehouse.TableCounts(ctx)
			if err != nil {
				return err
			}
			var songs []db.SongPlayCount
			if limit > 0 {
				if songs, err = warehouse.TopSongs(ctx, limit); err != nil {
					return err
				}
			}
			hours, err := warehouse.PlaysByHour(ctx)
			if err != nil {
				return err
			}
			levels, err := warehouse.PlaysByLevel(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := writeCounts(out, counts); err != nil {
				return err
			}
			if limit > 0 {
				if err := writeTopSongs(out, songs); err != nil {
					return err
				}
			}
			if err := writeHours(out, hours); err != nil {
				return err
			}
			return writeLevels(out, levels)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Read a local SQLite warehouse instead of Redshift")
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of top songs to show (0 omits the section)")
	return cmd
}

func writeCounts(w io.Writer, counts []db.TableCount) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tROWS")
	for _, c := range counts {
		fmt.Fprintf(tw, "%s\t%d\n", c.Table, c.Rows)
	}
	return tw.Flush()
}

func writeTopSongs(w io.Writer, songs []db.SongPlayCount) error {
	if len(songs) == 0 {
		_, err := fmt.Fprintln(w, "\nNo songplays")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nSONG\tARTIST\tPLAYS")
	for _, s := range songs {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", s.Title, s.Artist, s.Plays)
	}
	return tw.Flush()
}

func writeHours(w io.Writer, hours []db.HourCount) error {
	if len(hours) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nHOUR\tPLAYS")
	for _, h := range hours {
		fmt.Fprintf(tw, "%02d\t%d\n", h.Hour, h.Plays)
	}
	return tw.Flush()
}

func writeLevels(w io.Writer, levels []db.LevelCount) error {
	if len(levels) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nLEVEL\tPLAYS")
	for _, l := range levels {
		level := "unknown"
		if l.Level != nil {
			level = *l.Level
		}
		fmt.Fprintf(tw, "%s\t%d\n", level, l.Plays)
	}
	return tw.Flush()
}
