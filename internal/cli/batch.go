package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/chaintrace/internal/control"
	"github.com/vietddude/chaintrace/internal/core/domain"
)

var addressFile string

var batchCmd = &cobra.Command{
	Use:   "batch [address...]",
	Short: "Analyze many addresses concurrently",
	Long: `Analyze every address given as an argument or listed in --file (one per
line, # starts a comment). A failure on one address does not stop the others.`,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&addressFile, "file", "", "file with one address per line")
	batchCmd.Flags().StringVar(&chainName, "chain", string(domain.ChainIDEthereum), "chain to query")
	batchCmd.Flags().Uint64Var(&startBlock, "start-block", 0, "first block to include (EVM chains)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "", "directory for results (overrides output.dir)")
	batchCmd.Flags().BoolVar(&noPersist, "no-persist", false, "skip saving graph snapshots to the database")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	addresses := args
	if addressFile != "" {
		f, err := os.Open(addressFile)
		if err != nil {
			return fmt.Errorf("open address file: %w", err)
		}
		fromFile, err := readAddresses(f)
		_ = f.Close()
		if err != nil {
			return err
		}
		addresses = append(addresses, fromFile...)
	}
	if len(addresses) == 0 {
		return fmt.Errorf("no addresses given")
	}

	ctx, cancel := signalContext()
	defer cancel()

	app, err := newApp(ctx, true, !noPersist)
	if err != nil {
		return err
	}
	defer closeApp(app)

	results := app.Batch.Run(ctx, domain.ChainID(chainName), addresses, startBlock)
	failed := printBatch(os.Stdout, results)
	if failed > 0 {
		return fmt.Errorf("%d of %d addresses failed", failed, len(results))
	}
	return nil
}

// readAddresses returns the non-empty, non-comment lines of r.
func readAddresses(r io.Reader) ([]string, error) {
	var addresses []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		addresses = append(addresses, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read address file: %w", err)
	}
	return addresses, nil
}

func printBatch(out io.Writer, results []*control.Result) int {
	failed := 0
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "ADDRESS\tTXS\tNODES\tEDGES\tTOP\tSTATUS")
	for _, r := range results {
		if r.Err != nil {
			failed++
			_, _ = fmt.Fprintf(w, "%s\t-\t-\t-\t-\t%v\n", r.Address, r.Err)
			continue
		}
		s := r.Summary
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\tok\n", r.Address, s.TotalTxs, s.NodeCount, s.EdgeCount, len(s.TopNodes))
	}
	_ = w.Flush()
	return failed
}
