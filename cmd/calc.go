package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dart-report/internal/accountmap"
	"github.com/sells-group/dart-report/internal/calc"
	"github.com/sells-group/dart-report/internal/model"
	"github.com/sells-group/dart-report/internal/normalize"
	"github.com/sells-group/dart-report/internal/ratio"
	"github.com/sells-group/dart-report/internal/store"
	"github.com/sells-group/dart-report/internal/validate"
)

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Compute, validate and store metrics",
	Long:  "Runs extraction, resolution, derivation, ratios, benchmark comparison and validation for one (entity, year) or every ingested scope of a year, and stores the validated metrics.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		corp, _ := cmd.Flags().GetString("corp")
		year, _ := cmd.Flags().GetInt("year")
		all, _ := cmd.Flags().GetBool("all")
		metricsArg, _ := cmd.Flags().GetString("metrics")
		asJSON, _ := cmd.Flags().GetBool("json")

		if !all && (corp == "" || year == 0) {
			return eris.New("calc: --corp and --year are required unless --all is set")
		}
		req, err := parseMetricsArg(metricsArg)
		if err != nil {
			return err
		}

		st, err := initStore(ctx, "calc")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		cc, err := newCalcContext(ctx, st)
		if err != nil {
			return err
		}

		var results []*calc.Result
		if all {
			scopes, err := cc.Scopes(ctx, store.Filter{CorpCode: normalize.Code(corp, 8), Year: year})
			if err != nil {
				return err
			}
			results, err = cc.RunBatch(ctx, scopes, req)
			if err != nil {
				return eris.Wrap(err, "calc batch")
			}
		} else {
			res, err := cc.Run(ctx, model.CorpYear{CorpCode: normalize.Code(corp, 8), Year: year}, req)
			var fe *validate.FailureError
			if err != nil && (res == nil || !errors.As(err, &fe)) {
				return eris.Wrap(err, "calc")
			}
			results = []*calc.Result{res}
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				return err
			}
		} else {
			formatResults(os.Stdout, results)
		}

		if failed := countFailed(results); failed > 0 {
			return eris.Errorf("calc: %d of %d scope(s) failed", failed, len(results))
		}
		return nil
	},
}

// parseMetricsArg reads a metrics request from inline JSON, from a file
// given as @path, or from a comma-separated key list. Empty means every
// catalog metric.
func parseMetricsArg(arg string) (model.MetricsRequest, error) {
	arg = strings.TrimSpace(arg)
	switch {
	case arg == "":
		return nil, nil
	case strings.HasPrefix(arg, "@"):
		data, err := os.ReadFile(arg[1:])
		if err != nil {
			return nil, eris.Wrap(err, "read metrics request")
		}
		return model.ParseMetricsRequest(data)
	case strings.HasPrefix(arg, "[") || strings.HasPrefix(arg, "{"):
		return model.ParseMetricsRequest([]byte(arg))
	default:
		return model.RawKeyList(strings.Split(arg, ",")), nil
	}
}

// newCalcContext builds a calculation context from the loaded configuration.
func newCalcContext(ctx context.Context, st store.Store) (*calc.Context, error) {
	cc := calc.New(st)

	if p := cfg.Calc.AccountMapPath; p != "" {
		m, err := accountmap.Load(p)
		if err != nil {
			return nil, err
		}
		cc.AccountMap = m
	}
	if p := cfg.Calc.RatioRequirementsPath; p != "" {
		t, err := ratio.Load(p)
		if err != nil {
			return nil, err
		}
		cc.Requirements = t
	}

	cc.Options.Validate = validate.Options{
		Tolerance:    validate.Tolerance{Abs: cfg.Calc.ToleranceAbs, Rel: cfg.Calc.ToleranceRel},
		RatioWarnAbs: cfg.Calc.RatioWarnAbs,
	}
	cc.Options.Evidence = []model.EvidenceRequest{
		model.NotesByMetrics{MaxNotes: cfg.Calc.EvidenceMaxNotes, TopK: cfg.Calc.EvidenceTopK},
		model.Business{},
	}
	cc.Options.Concurrency = cfg.Batch.Concurrency

	if cfg.Benchmark.EnableExternal || cfg.Benchmark.PeersPath != "" {
		res, err := newBenchmarkResolver(ctx, st, "")
		if err != nil {
			return nil, err
		}
		cc.Benchmarks = res
	}
	return cc, nil
}

func countFailed(results []*calc.Result) int {
	n := 0
	for _, r := range results {
		if r == nil || r.Err != "" {
			n++
		}
	}
	return n
}

// formatResults writes one metrics table per scope.
func formatResults(out io.Writer, results []*calc.Result) {
	for _, r := range results {
		if r == nil {
			continue
		}
		bench := "-"
		if r.Benchmark != nil {
			bench = r.Benchmark.BenchCorpCode
		}
		_, _ = fmt.Fprintf(out, "%s  report=%s  benchmark=%s  PASS=%d WARN=%d FAIL=%d\n",
			r.CorpYear, r.ReportID, bench, r.Summary.Pass, r.Summary.Warn, r.Summary.Fail)
		if r.Err != "" {
			_, _ = fmt.Fprintf(out, "  error: %s\n", r.Err)
		}
		formatMetrics(out, r.Metrics)
		_, _ = fmt.Fprintln(out)
	}
	zap.L().Debug("calc results written", zap.Int("scopes", len(results)))
}

func formatMetrics(out io.Writer, ms []model.FactMetric) {
	if len(ms) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "METRIC\tNAME\tVALUE\tPREV\tYOY_PCT\tBENCH\tIMPROVED")
	for _, m := range ms {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			m.MetricKey, m.MetricNameKo, num(m.Value), num(m.ValuePrev), pct(m.YoYPct), num(m.BenchmarkValue), flag(m.BenchmarkImproved))
	}
	_ = w.Flush()
}

func num(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.6g", *v)
}

func pct(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", *v*100)
}

func flag(b *bool) string {
	switch {
	case b == nil:
		return "-"
	case *b:
		return "yes"
	default:
		return "no"
	}
}

func init() {
	calcCmd.Flags().String("corp", "", "corp code of the scope")
	calcCmd.Flags().Int("year", 0, "business year of the scope")
	calcCmd.Flags().Bool("all", false, "run every ingested scope matching --corp/--year")
	calcCmd.Flags().String("metrics", "", "metrics request: comma list, JSON, or @file")
	calcCmd.Flags().Bool("json", false, "print results as JSON")
	rootCmd.AddCommand(calcCmd)
}
