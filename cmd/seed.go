package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dart-report/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load exported filings, text and market data",
	Long:  "Imports CSV or XLSX exports into the store. Each subcommand is idempotent: re-importing a file replaces the rows it produced.",
}

var seedCompanyCmd = &cobra.Command{
	Use:   "company",
	Short: "Import company meta (market snapshots and benchmark peers)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		path, _ := cmd.Flags().GetString("file")

		st, err := initStore(ctx, "seed")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		meta, err := seed.ImportCompanyMeta(ctx, st, path)
		if err != nil {
			return eris.Wrap(err, "seed company")
		}
		zap.L().Info("company meta imported",
			zap.Int("snapshots", len(meta.Snapshots)),
			zap.Int("mappings", len(meta.Mappings)),
			zap.Int("skipped", meta.Skipped),
		)
		return nil
	},
}

var seedFactsCmd = &cobra.Command{
	Use:   "facts",
	Short: "Import statement cells (one cell per line)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		path, _ := cmd.Flags().GetString("file")

		st, err := initStore(ctx, "seed")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		facts, err := seed.ImportFacts(ctx, st, path)
		if err != nil {
			return eris.Wrap(err, "seed facts")
		}
		zap.L().Info("statement cells imported",
			zap.Int("reports", len(facts.Reports)),
			zap.Int("rows", len(facts.Rows)),
			zap.Int("skipped", facts.Skipped),
		)
		return nil
	},
}

var seedTextCmd = &cobra.Command{
	Use:   "text",
	Short: "Import chunked note and business text",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		path, _ := cmd.Flags().GetString("file")

		st, err := initStore(ctx, "seed")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		text, err := seed.ImportText(ctx, st, path)
		if err != nil {
			return eris.Wrap(err, "seed text")
		}
		zap.L().Info("report text imported",
			zap.Int("sections", len(text.Sections)),
			zap.Int("chunks", len(text.Chunks)),
			zap.Int("skipped", text.Skipped),
		)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{seedCompanyCmd, seedFactsCmd, seedTextCmd} {
		c.Flags().String("file", "", "path to a .csv or .xlsx export (required)")
		_ = c.MarkFlagRequired("file")
		seedCmd.AddCommand(c)
	}
	rootCmd.AddCommand(seedCmd)
}
