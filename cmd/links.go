package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dart-report/internal/accountmap"
	"github.com/sells-group/dart-report/internal/calc"
	"github.com/sells-group/dart-report/internal/normalize"
	"github.com/sells-group/dart-report/internal/store"
)

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "Rebuild and store statement-to-note links",
	Long:  "Extracts every ingested filing matching --corp/--year and replaces its stored note links. Run after seeding facts and text.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		corp, _ := cmd.Flags().GetString("corp")
		year, _ := cmd.Flags().GetInt("year")

		st, err := initStore(ctx, "seed")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		cc := calc.New(st)
		if p := cfg.Calc.AccountMapPath; p != "" {
			if cc.AccountMap, err = accountmap.Load(p); err != nil {
				return err
			}
		}
		sum, err := cc.LinkNotes(ctx, store.Filter{CorpCode: normalize.Code(corp, 8), Year: year})
		if err != nil {
			return eris.Wrap(err, "links")
		}
		zap.L().Info("note links rebuilt",
			zap.Int("reports", sum.Reports),
			zap.Int("links", sum.Links),
			zap.Int("orphans", sum.Orphans),
		)
		return nil
	},
}

func init() {
	linksCmd.Flags().String("corp", "", "limit to one corp code")
	linksCmd.Flags().Int("year", 0, "limit to one business year")
	rootCmd.AddCommand(linksCmd)
}
