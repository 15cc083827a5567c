package cmd

import (
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adsmirror/adsmirror/internal/core/store"
	"github.com/adsmirror/adsmirror/internal/observability"
)

var migrateStatus bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long:  "Apply pending schema migrations to the configured store. Use --status to list them without applying.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		if !migrateStatus {
			if err := db.Migrate(ctx); err != nil {
				return err
			}
			observability.CLILogger.Info("Migrations applied", zap.String("driver", db.Driver()))
		}

		states, err := db.MigrationStatus(ctx)
		if err != nil {
			return err
		}

		lines := []string{"Migrations", ""}
		for _, state := range states {
			mark := "pending"
			if state.Applied {
				mark = "applied"
			}
			lines = append(lines, fmt.Sprintf("%05d %-8s %s", state.Version, mark, state.Source))
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), ascii.DrawBox(strings.Join(lines, "\n"), 0))
		return err
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "show migration status without applying")
}
