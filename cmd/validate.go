package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/dart-report/internal/model"
	"github.com/sells-group/dart-report/internal/normalize"
	"github.com/sells-group/dart-report/internal/store"
	"github.com/sells-group/dart-report/internal/validate"
)

var validateMarketCmd = &cobra.Command{
	Use:   "validate-market",
	Short: "Check market snapshots and benchmark mappings",
	Long:  "Reports duplicate snapshots and mappings, self or multiple benchmarks, peers without market data and unusable prices, share counts or as-of dates. Exits non-zero on any FAIL.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		corp, _ := cmd.Flags().GetString("corp")
		year, _ := cmd.Flags().GetInt("year")

		st, err := initStore(ctx, "seed")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		// Peer snapshots carry the peer's code, so only the year narrows them.
		snaps, err := st.LoadMarketSnapshots(ctx, store.Filter{Year: year})
		if err != nil {
			return eris.Wrap(err, "validate-market: load snapshots")
		}
		mappings, err := st.LoadBenchmarkMappings(ctx, store.Filter{CorpCode: normalize.Code(corp, 8), Year: year})
		if err != nil {
			return eris.Wrap(err, "validate-market: load mappings")
		}

		rep := validate.MarketTables(snaps, mappings)
		formatFindings(os.Stdout, rep)
		return rep.Err()
	},
}

var validateReportCmd = &cobra.Command{
	Use:   "validate-report",
	Short: "Check what ingested filings brought into the store",
	Long:  "Counts statement cells, tables, note sections, text chunks and note links per filing and flags filings with no usable cells (FAIL) or missing text, tables or links (WARN). Exits non-zero on any FAIL.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		reportID, _ := cmd.Flags().GetString("report")
		corp, _ := cmd.Flags().GetString("corp")
		year, _ := cmd.Flags().GetInt("year")

		st, err := initStore(ctx, "seed")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		reports, err := st.ListReports(ctx, store.Filter{CorpCode: normalize.Code(corp, 8), Year: year})
		if err != nil {
			return eris.Wrap(err, "validate-report: list reports")
		}
		reports = selectReports(reports, reportID)
		if len(reports) == 0 {
			return eris.New("validate-report: no matching filing")
		}

		rep := &validate.Report{}
		counts := make([]validate.IngestCounts, 0, len(reports))
		for _, r := range reports {
			c, err := validate.CountIngest(ctx, st, r)
			if err != nil {
				return err
			}
			counts = append(counts, c)
			rep.Merge(validate.Ingest(c))
		}
		formatIngest(os.Stdout, counts)
		formatFindings(os.Stdout, rep)
		return rep.Err()
	},
}

// selectReports keeps the filing with id, or every filing when id is empty.
func selectReports(reports []model.Report, id string) []model.Report {
	if id == "" {
		return reports
	}
	for _, r := range reports {
		if r.ReportID == id {
			return []model.Report{r}
		}
	}
	return nil
}

func formatIngest(out io.Writer, counts []validate.IngestCounts) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "REPORT_ID\tSCOPE\tFACTS\tUSABLE\tBS\tIS_CIS\tCF\tSECTIONS\tNOTE_CHUNKS\tBIZ_CHUNKS\tLINKS\tORPHANS")
	for _, c := range counts {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			c.ReportID, c.CorpYear, c.Facts, c.Usable,
			c.Tables[model.ScopeBS], c.Tables[model.ScopeISCIS], c.Tables[model.ScopeCF],
			c.Sections, c.Chunks[model.SectionNotes], c.Chunks[model.SectionBiz], c.Links, c.Orphans)
	}
	_ = w.Flush()
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "List stored metrics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		corp, _ := cmd.Flags().GetString("corp")
		year, _ := cmd.Flags().GetInt("year")
		limit, _ := cmd.Flags().GetInt("limit")

		st, err := initStore(ctx, "seed")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ms, err := st.ListFactMetrics(ctx, store.Filter{CorpCode: normalize.Code(corp, 8), Year: year, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "metrics list")
		}
		if len(ms) == 0 {
			fmt.Fprintln(os.Stderr, "No metrics found.")
			return nil
		}
		formatMetrics(os.Stdout, ms)
		return nil
	},
}

// formatFindings writes non-PASS findings and the summary line.
func formatFindings(out io.Writer, rep *validate.Report) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "LEVEL\tCORP_CODE\tYEAR\tCHECK\tMESSAGE")
	for _, f := range rep.Findings {
		if f.Level == validate.Pass {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", f.Level, f.CorpCode, f.Year, f.Check, f.Message)
	}
	_ = w.Flush()
	s := rep.Summary()
	_, _ = fmt.Fprintf(out, "PASS=%d WARN=%d FAIL=%d\n", s.Pass, s.Warn, s.Fail)
}

func init() {
	validateMarketCmd.Flags().String("corp", "", "limit mappings to one corp code")
	validateMarketCmd.Flags().Int("year", 0, "limit to one year")

	validateReportCmd.Flags().String("report", "", "check one report id")
	validateReportCmd.Flags().String("corp", "", "limit to one corp code")
	validateReportCmd.Flags().Int("year", 0, "limit to one business year")

	metricsCmd.Flags().String("corp", "", "filter by corp code")
	metricsCmd.Flags().Int("year", 0, "filter by business year")
	metricsCmd.Flags().Int("limit", 200, "max number of rows")

	rootCmd.AddCommand(validateMarketCmd)
	rootCmd.AddCommand(validateReportCmd)
	rootCmd.AddCommand(metricsCmd)
}
