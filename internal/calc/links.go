package calc

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dart-report/internal/store"
)

// LinkSummary counts what LinkNotes wrote.
type LinkSummary struct {
	Reports int `json:"reports"`
	Links   int `json:"links"`
	Orphans int `json:"orphans"`
}

// LinkNotes rebuilds and stores the note links of every filing matching
// filter. It is the only step that writes links; Run and RunBatch build
// them in memory. Filings are written one at a time.
func (c *Context) LinkNotes(ctx context.Context, filter store.Filter) (LinkSummary, error) {
	c.defaults()
	log := zap.L().With(zap.String("component", "calc"))

	reports, err := c.Store.ListReports(ctx, filter)
	if err != nil {
		return LinkSummary{}, eris.Wrap(err, "calc: list reports")
	}

	var sum LinkSummary
	for _, rep := range reports {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		f, _, err := c.extractReport(ctx, rep)
		if err != nil {
			return sum, err
		}
		if err := c.Store.ReplaceNoteLinks(ctx, rep.ReportID, f.links); err != nil {
			return sum, eris.Wrapf(err, "calc: write note links %s", rep.ReportID)
		}
		sum.Reports++
		sum.Links += len(f.links)
		for _, l := range f.links {
			if l.NoteSectionID == "" {
				sum.Orphans++
			}
		}
	}

	log.Info("calc: note links written",
		zap.Int("reports", sum.Reports),
		zap.Int("links", sum.Links),
		zap.Int("orphans", sum.Orphans),
	)
	return sum, nil
}
