package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/chaintrace/internal/core/domain"
	"github.com/vietddude/chaintrace/internal/infra/storage/postgres"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored graph snapshots of an address",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().StringVar(&address, "address", "", "target address")
	runsCmd.Flags().StringVar(&chainName, "chain", string(domain.ChainIDEthereum), "chain of the address")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum number of runs to show")
	_ = runsCmd.MarkFlagRequired("address")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	if !appCfg.Database.Enabled() {
		return fmt.Errorf("database.url is not configured")
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, appCfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	runs, err := postgres.NewGraphRepo(db).ListRuns(ctx, domain.ChainID(chainName), address, runsLimit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "RUN\tCREATED\tTXS\tVOLUME\tNODES\tEDGES")
	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%.4f %s\t%d\t%d\n",
			r.ID, r.CreatedAt.Format(time.RFC3339), r.TotalTxs, r.TotalVolume, r.Symbol, r.NodeCount, r.EdgeCount)
	}
	_ = w.Flush()
	return nil
}
