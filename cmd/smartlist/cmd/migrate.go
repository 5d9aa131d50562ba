package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/smartlist/internal/core/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the library database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := db.Open(cfg.Library.DBURL)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer conn.Close()

		if err := db.MigrateUp(conn); err != nil {
			return err
		}
		logger.Info().Str("db", cfg.Library.DBURL).Msg("migrations applied")
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := db.Open(cfg.Library.DBURL)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer conn.Close()

		statuses, err := db.MigrateStatus(conn)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MIGRATION\tSTATUS\tAPPLIED AT")
		for _, s := range statuses {
			state, at := "pending", "-"
			if s.Applied {
				state = "applied"
				if s.AppliedAt != nil {
					at = s.AppliedAt.Format(time.RFC3339)
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, state, at)
		}
		return w.Flush()
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}
