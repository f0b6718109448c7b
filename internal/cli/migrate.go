package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vietddude/chaintrace/internal/infra/storage/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the graph snapshot schema to the configured database",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if !appCfg.Database.Enabled() {
		return fmt.Errorf("database.url is not configured")
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, appCfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	if err := postgres.Migrate(db); err != nil {
		return err
	}
	slog.Info("Migrations applied")
	return nil
}
