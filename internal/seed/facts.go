package seed

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dart-report/internal/model"
	"github.com/sells-group/dart-report/internal/normalize"
)

var factRequired = []string{
	"corp_code", "bsns_year", "rcept_no", "statement_type",
	"table_id", "row_idx", "col_idx", "label", "cell",
}

// Facts is the parsed content of a statement cell export.
type Facts struct {
	Reports []model.Report
	Rows    []model.FactRow
	Skipped int
}

// FactWriter is the part of the store statement cells are written to.
type FactWriter interface {
	UpsertReports(ctx context.Context, reports []model.Report) error
	InsertFactRows(ctx context.Context, rows []model.FactRow) (int64, error)
}

// ParseFacts turns one-cell-per-line statement exports into reports and
// fact rows. Cell text goes through ParseAmount and the unit label through
// UnitMultiplier; blank or dash cells keep a null value. Rows with an
// unknown statement type or bad coordinates are skipped.
func ParseFacts(recs []Record) (*Facts, error) {
	if err := requireColumns(recs, factRequired...); err != nil {
		return nil, err
	}

	out := &Facts{}
	reports := make(map[string]int)
	for i, r := range recs {
		log := zap.L().With(zap.Int("row", i+2))

		year, ok := parseYear(r.Get("bsns_year"))
		corp := normalize.Code(r.Get("corp_code"), 8)
		rceptNo := r.Get("rcept_no")
		if !ok || corp == "" || rceptNo == "" {
			out.Skipped++
			log.Debug("seed: fact row without report key")
			continue
		}
		st, err := model.ParseScope(r.Get("statement_type"))
		if err != nil || !st.IsStatement() {
			out.Skipped++
			log.Debug("seed: fact row with unknown statement type", zap.String("statement_type", r.Get("statement_type")))
			continue
		}
		rowIdx, err1 := strconv.Atoi(r.Get("row_idx"))
		colIdx, err2 := strconv.Atoi(r.Get("col_idx"))
		if err1 != nil || err2 != nil {
			out.Skipped++
			log.Debug("seed: fact row with bad coordinates")
			continue
		}

		reportID := model.ReportID(corp, year, rceptNo)
		if _, seen := reports[reportID]; !seen {
			reports[reportID] = len(out.Reports)
			out.Reports = append(out.Reports, model.Report{
				ReportID:   reportID,
				CorpCode:   corp,
				CorpName:   r.Get("corp_name"),
				StockCode:  normalize.Code(r.Get("stock_code"), 6),
				Year:       year,
				RceptNo:    rceptNo,
				RceptDate:  r.Get("rcept_dt"),
				ReportName: r.Get("report_nm"),
			})
		}

		fiscal, ok := parseYear(r.Get("fiscal_year"))
		if !ok {
			fiscal = year
		}
		indent, _ := strconv.Atoi(r.Get("indent_level"))
		_, mult := normalize.UnitMultiplier(r.Get("unit"))
		currency := r.Get("currency")
		if currency == "" {
			currency = "KRW"
		}

		labelRaw := r.Get("label")
		clean, nums, raw := normalize.SplitNoteRefs(normalize.Space(labelRaw))
		f := model.FactRow{
			CorpCode:      corp,
			Year:          year,
			ReportID:      reportID,
			StatementType: st,
			TableID:       r.Get("table_id"),
			RowIdx:        rowIdx,
			ColIdx:        colIdx,
			IFRSCode:      r.Get("ifrs_code"),
			LabelRaw:      labelRaw,
			LabelClean:    clean,
			LabelNorm:     normalize.Label(clean),
			IndentLevel:   indent,
			PeriodEnd:     r.Get("period_end"),
			FiscalYear:    fiscal,
			UnitMult:      mult,
			Currency:      currency,
			NoteRefsRaw:   normalize.NoteMarker(raw),
			OwnNoteNos:    nums,
		}
		if d, ok := normalize.ParseAmount(r.Get("cell")); ok {
			f.Value.Decimal = d
			f.Value.Valid = true
		}
		f.LineItemID = model.LineItemID(reportID, st, f.IFRSCode, clean)
		out.Rows = append(out.Rows, f)
	}
	return out, nil
}

// ImportFacts reads a statement cell export and writes its reports and rows.
func ImportFacts(ctx context.Context, w FactWriter, path string) (*Facts, error) {
	log := zap.L().With(zap.String("component", "seed"), zap.String("path", path))

	recs, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	facts, err := ParseFacts(recs)
	if err != nil {
		return nil, err
	}
	if err := w.UpsertReports(ctx, facts.Reports); err != nil {
		return nil, eris.Wrap(err, "seed: write reports")
	}
	n, err := w.InsertFactRows(ctx, facts.Rows)
	if err != nil {
		return nil, eris.Wrap(err, "seed: write fact rows")
	}

	log.Info("seed: fact rows loaded",
		zap.Int("reports", len(facts.Reports)),
		zap.Int("rows", len(facts.Rows)),
		zap.Int64("written", n),
		zap.Int("skipped", facts.Skipped),
	)
	return facts, nil
}
