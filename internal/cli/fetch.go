package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/chaintrace/internal/core/domain"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch and normalize the raw transactions of an address",
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&address, "address", "", "target address")
	fetchCmd.Flags().StringVar(&chainName, "chain", string(domain.ChainIDEthereum), "chain to query")
	fetchCmd.Flags().Uint64Var(&startBlock, "start-block", 0, "first block to include (EVM chains)")
	_ = fetchCmd.MarkFlagRequired("address")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	app, err := newApp(ctx, false, false)
	if err != nil {
		return err
	}
	defer closeApp(app)

	src, err := app.Pipeline.Source(domain.ChainID(chainName))
	if err != nil {
		return err
	}
	txs := src.Fetch(ctx, address, startBlock)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "HASH\tBLOCK\tTIME\tFROM\tTO\tVALUE\tERROR")
	for _, tx := range txs {
		to := tx.Recipient()
		if to == "" {
			to = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%.8f %s\t%t\n",
			tx.Hash, tx.BlockNumber, tx.Timestamp.Format(time.RFC3339),
			tx.Sender(), to, tx.HumanValue(), tx.TokenSymbol, tx.IsError)
	}
	_ = w.Flush()

	fmt.Printf("Fetched %d transactions for %s\n", len(txs), address)
	return nil
}
