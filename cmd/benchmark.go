package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/dart-report/internal/benchmark"
	"github.com/sells-group/dart-report/internal/model"
	"github.com/sells-group/dart-report/internal/normalize"
	"github.com/sells-group/dart-report/internal/resilience"
	"github.com/sells-group/dart-report/internal/seed"
	"github.com/sells-group/dart-report/internal/store"
	"github.com/sells-group/dart-report/pkg/dart"
)

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Resolve benchmark peers for ingested filings",
	Long:  "Looks up the curated peer of each (entity, year) and resolves its DART identity through the ingested universe, an optional corp code registry and, when enabled, the DART filing list. Resolved peers are stored as benchmark mappings.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		corp, _ := cmd.Flags().GetString("corp")
		year, _ := cmd.Flags().GetInt("year")
		registry, _ := cmd.Flags().GetString("registry")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		st, err := initStore(ctx, "benchmark")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		reports, err := st.ListReports(ctx, store.Filter{CorpCode: normalize.Code(corp, 8), Year: year})
		if err != nil {
			return eris.Wrap(err, "benchmark: list reports")
		}
		res, err := newBenchmarkResolver(ctx, st, registry)
		if err != nil {
			return err
		}

		mappings, err := res.ResolveAll(ctx, benchmarkTargets(reports))
		if err != nil {
			return eris.Wrap(err, "benchmark: resolve")
		}
		if !dryRun {
			if err := st.UpsertBenchmarkMappings(ctx, mappings); err != nil {
				return eris.Wrap(err, "benchmark: store mappings")
			}
		}

		formatMappings(os.Stdout, mappings)
		return nil
	},
}

// benchmarkTargets returns one target per (entity, year) of reports.
func benchmarkTargets(reports []model.Report) []benchmark.Target {
	seen := make(map[model.CorpYear]bool)
	var out []benchmark.Target
	for _, r := range reports {
		cy := r.CorpYear()
		if seen[cy] || r.CorpName == "" {
			continue
		}
		seen[cy] = true
		out = append(out, benchmark.Target{CorpCode: r.CorpCode, NameKr: r.CorpName, Year: r.Year})
	}
	return out
}

// universe turns ingested filings into resolver companies, keeping the
// receipt date of the latest filing per year.
func universe(reports []model.Report) []benchmark.Company {
	byCorp := make(map[string]*benchmark.Company)
	var order []string
	for _, r := range reports {
		c, ok := byCorp[r.CorpCode]
		if !ok {
			c = &benchmark.Company{CorpCode: r.CorpCode, NameKr: r.CorpName, StockCode: r.StockCode, RceptDates: make(map[int]string)}
			byCorp[r.CorpCode] = c
			order = append(order, r.CorpCode)
		}
		if _, ok := c.RceptDates[r.Year]; !ok && r.RceptDate != "" {
			c.RceptDates[r.Year] = r.RceptDate
		}
	}
	out := make([]benchmark.Company, 0, len(order))
	for _, code := range order {
		out = append(out, *byCorp[code])
	}
	return out
}

// readRegistry loads a corp code registry export with corp_code, corp_name
// and stock_code columns.
func readRegistry(path string) ([]benchmark.Company, error) {
	recs, err := seed.ReadTable(path)
	if err != nil {
		return nil, err
	}
	out := make([]benchmark.Company, 0, len(recs))
	for _, r := range recs {
		code := normalize.Code(r.Get("corp_code"), 8)
		name := r.Get("corp_name")
		if code == "" || name == "" {
			continue
		}
		out = append(out, benchmark.Company{CorpCode: code, NameKr: name, StockCode: normalize.Code(r.Get("stock_code"), 6)})
	}
	return out, nil
}

// newBenchmarkResolver wires the peer table, the ingested universe, an
// optional registry file and, when enabled, the DART client.
func newBenchmarkResolver(ctx context.Context, st store.Store, registryPath string) (*benchmark.Resolver, error) {
	peers := benchmark.Default()
	if cfg.Benchmark.PeersPath != "" {
		p, err := benchmark.LoadPeers(cfg.Benchmark.PeersPath)
		if err != nil {
			return nil, err
		}
		peers = p
	}

	all, err := st.ListReports(ctx, store.Filter{})
	if err != nil {
		return nil, eris.Wrap(err, "benchmark: load universe")
	}
	opts := []benchmark.Option{
		benchmark.WithUniverse(universe(all)),
		benchmark.WithMaxPages(cfg.DART.MaxPages),
	}

	if registryPath != "" {
		reg, err := readRegistry(registryPath)
		if err != nil {
			return nil, eris.Wrap(err, "benchmark: read registry")
		}
		opts = append(opts, benchmark.WithRegistry(reg))
	}

	if cfg.Benchmark.EnableExternal {
		opts = append(opts, benchmark.WithClient(newDARTClient()))
	}
	return benchmark.NewResolver(peers, opts...), nil
}

func newDARTClient() dart.Client {
	return dart.NewClient(cfg.DART.APIKey,
		dart.WithBaseURL(cfg.DART.BaseURL),
		dart.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.DART.TimeoutSecs) * time.Second}),
		dart.WithRateLimit(rate.NewLimiter(rate.Limit(cfg.DART.RatePerSec), 1)),
		dart.WithRetry(resilience.FromSettings(cfg.DART.MaxAttempts, cfg.DART.BackoffMs)),
	)
}

// formatMappings writes resolved peers as a table.
func formatMappings(out io.Writer, mappings []model.BenchmarkMapping) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CORP_CODE\tYEAR\tBENCH_CODE\tBENCH_NAME\tRCEPT_DATE\tSTAGE")
	for _, m := range mappings {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
			m.CorpCode, m.Year, m.BenchCorpCode, m.BenchNameKr, m.BenchRceptDate, m.Stage)
	}
	_ = w.Flush()
	zap.L().Info("benchmark peers resolved", zap.Int("mappings", len(mappings)))
}

func init() {
	benchmarkCmd.Flags().String("corp", "", "limit to one corp code")
	benchmarkCmd.Flags().Int("year", 0, "limit to one business year")
	benchmarkCmd.Flags().String("registry", "", "corp code registry export (.csv or .xlsx)")
	benchmarkCmd.Flags().Bool("dry-run", false, "resolve without storing mappings")
	rootCmd.AddCommand(benchmarkCmd)
}
