package extract

import (
	"slices"

	"go.uber.org/zap"

	"github.com/sells-group/dart-report/internal/accountmap"
	"github.com/sells-group/dart-report/internal/model"
	"github.com/sells-group/dart-report/internal/normalize"
)

// Result is the output of the extraction stage for one filing.
type Result struct {
	Rows []model.FactRow
	// Dropped counts rows kept for structure only.
	Dropped  int
	Tagged   int
	Untagged int
	TaggedBy map[string]int
}

// Tag assigns at most one canonical key per row. The key comes from the
// winning EXACT rule whose scope equals the row's statement type and whose
// pattern equals the row's normalized label. Unmatched rows stay untagged.
func Tag(rows []model.FactRow, m *accountmap.Map) []model.FactRow {
	out := slices.Clone(rows)
	for i := range out {
		prepareLabel(&out[i])
		out[i].StdKey = ""
		out[i].Priority = 0
		if !out[i].StatementType.IsStatement() {
			continue
		}
		r, ok := m.Lookup(out[i].StatementType, out[i].LabelNorm, out[i].IndentLevel)
		if !ok {
			continue
		}
		out[i].StdKey = r.StdKey
		out[i].Priority = r.Priority
	}
	return out
}

// prepareLabel fills the clean label, own note refs, normalized label and
// line item id when the extractor left them blank.
func prepareLabel(f *model.FactRow) {
	if f.LabelClean == "" || len(f.OwnNoteNos) == 0 {
		clean, nums, raw := normalize.SplitNoteRefs(normalize.Space(f.LabelRaw))
		if f.LabelClean == "" {
			f.LabelClean = clean
		}
		if len(f.OwnNoteNos) == 0 {
			f.OwnNoteNos = nums
		}
		if f.NoteRefsRaw == "" {
			f.NoteRefsRaw = normalize.NoteMarker(raw)
		}
	}
	norm := normalize.Label(f.LabelClean)
	if f.LabelNorm != "" && f.LabelNorm != norm {
		zap.L().Debug("extract: stored label norm differs",
			zap.String("label", f.LabelClean),
			zap.String("stored", f.LabelNorm),
			zap.String("computed", norm),
		)
	}
	f.LabelNorm = norm
	if f.LineItemID == "" {
		f.LineItemID = model.LineItemID(f.ReportID, f.StatementType, f.IFRSCode, f.LabelClean)
	}
}

// Extract runs the extraction stage: labels are normalized, tables are
// structured and rows are tagged. Every row takes part in the indentation
// tree, so header rows without a value still carry their notes up to their
// parents and down to their links. Rows with no value or no unit multiplier
// are counted as Dropped and are never resolution candidates. An empty input
// yields an empty result.
func Extract(rows []model.FactRow, m *accountmap.Map) Result {
	res := Result{TaggedBy: make(map[string]int)}
	if len(rows) == 0 {
		return res
	}

	prepared := slices.Clone(rows)
	for i := range prepared {
		prepareLabel(&prepared[i])
	}
	res.Rows = Tag(Structure(prepared), m)
	for _, r := range res.Rows {
		switch {
		case !r.Usable():
			res.Dropped++
		case r.Tagged():
			res.Tagged++
			res.TaggedBy[r.StdKey]++
		default:
			res.Untagged++
		}
	}

	zap.L().Debug("extract: tagged rows",
		zap.Int("rows", len(res.Rows)),
		zap.Int("tagged", res.Tagged),
		zap.Int("untagged", res.Untagged),
		zap.Int("dropped", res.Dropped),
	)
	return res
}
