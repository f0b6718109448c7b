package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/chaintrace/internal/analysis"
	"github.com/vietddude/chaintrace/internal/control"
	"github.com/vietddude/chaintrace/internal/core/domain"
)

var (
	address    string
	chainName  string
	startBlock uint64
	outputDir  string
	noPersist  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze an address, build its transfer graph and write reports",
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&address, "address", "", "target address to analyze")
	analyzeCmd.Flags().StringVar(&chainName, "chain", string(domain.ChainIDEthereum), "chain to query (ethereum, arbitrum, polygon, bitcoin)")
	analyzeCmd.Flags().Uint64Var(&startBlock, "start-block", 0, "first block to include (EVM chains)")
	analyzeCmd.Flags().StringVar(&outputDir, "output-dir", "", "directory for results (overrides output.dir)")
	analyzeCmd.Flags().BoolVar(&noPersist, "no-persist", false, "skip saving the graph snapshot to the database")
	_ = analyzeCmd.MarkFlagRequired("address")
	rootCmd.AddCommand(analyzeCmd)
}

// signalContext cancels on SIGINT/SIGTERM so in-flight requests stop early.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newApp(ctx context.Context, export, persist bool) (*control.App, error) {
	cfg := *appCfg
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	app, err := control.NewApp(ctx, cfg, control.Options{Export: export, Persist: persist})
	if err != nil {
		return nil, err
	}
	app.StartMetrics()
	return app, nil
}

func closeApp(app *control.App) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	app.LogUsage()
	_ = app.Close(ctx)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	app, err := newApp(ctx, true, !noPersist)
	if err != nil {
		return err
	}
	defer closeApp(app)

	res := app.Batch.Process(ctx, domain.ChainID(chainName), address, startBlock)
	if res.Err != nil {
		return res.Err
	}
	printResult(os.Stdout, res)
	return nil
}

func printResult(out io.Writer, res *control.Result) {
	s := res.Summary
	_, _ = fmt.Fprintf(out, "Analysis of %s on %s\n", res.Address, res.Chain)
	_, _ = fmt.Fprintf(out, "  Transactions: %d\n", s.TotalTxs)
	_, _ = fmt.Fprintf(out, "  Volume:       %.4f %s\n", s.TotalVolume, s.Symbol)
	_, _ = fmt.Fprintf(out, "  Graph:        %d nodes, %d edges\n", s.NodeCount, s.EdgeCount)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "PATTERN\tNODES")
	for _, r := range analysis.Rules {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", r.Pattern, len(res.Patterns[r.Pattern]))
	}
	_ = w.Flush()

	if res.Outputs.Edges != "" {
		_, _ = fmt.Fprintf(out, "Edges:   %s\nSummary: %s\nGraph:   %s\n",
			res.Outputs.Edges, res.Outputs.Summary, res.Outputs.Graph)
	}
	if res.Persisted {
		_, _ = fmt.Fprintf(out, "Run:     %s\n", res.RunID)
	}
}
