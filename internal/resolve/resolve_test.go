package resolve

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/dart-report/internal/accountmap"
	"github.com/sells-group/dart-report/internal/extract"
	"github.com/sells-group/dart-report/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var cy = model.CorpYear{CorpCode: "00126380", Year: 2024}

func row(table string, idx int, label string, st model.Scope, fy int, v, mult int64) model.FactRow {
	return model.FactRow{
		CorpCode:      cy.CorpCode,
		Year:          cy.Year,
		ReportID:      "r1",
		StatementType: st,
		TableID:       table,
		RowIdx:        idx,
		ColIdx:        1,
		LabelRaw:      label,
		FiscalYear:    fy,
		Value:         decimal.NewNullDecimal(decimal.NewFromInt(v)),
		UnitMult:      mult,
	}
}

func tagged(rows ...model.FactRow) []model.FactRow {
	return extract.Extract(rows, accountmap.Default()).Rows
}

func resolveKeys(rows []model.FactRow, keys ...string) model.ValueSet {
	r := New(accountmap.Default(), nil)
	return r.Resolve(Request{CorpYear: cy, ReportID: "r1", Keys: keys}, rows)
}

func TestResolve_SingleCandidate(t *testing.T) {
	vs := resolveKeys(tagged(row("bs", 0, "자산총계", model.ScopeBS, 2024, 5_000_000, 1)), model.KeyTotalAssets)

	v := vs[model.KeyTotalAssets]
	require.NotNil(t, v.Value)
	assert.InDelta(t, 5_000_000, *v.Value, 0)
	assert.Equal(t, model.StatusResolved, v.Status)
	assert.Equal(t, 1, v.CandidateRows)
	assert.Equal(t, 1, v.DistinctValues)
	assert.Equal(t, []string{"자산총계"}, v.Labels)
	assert.Equal(t, []model.CellRef{{TableID: "bs", RowIdx: 0, ColIdx: 1}}, v.Sources)
}

func TestResolve_AmbiguousIsNull(t *testing.T) {
	vs := resolveKeys(tagged(
		row("bs", 0, "자산총계", model.ScopeBS, 2024, 1_000_000, 1),
		row("bs2", 0, "자산총계", model.ScopeBS, 2024, 1_000_500, 1),
	), model.KeyTotalAssets)

	v := vs[model.KeyTotalAssets]
	assert.Nil(t, v.Value, "never pick max, min, mean or first")
	assert.Equal(t, model.StatusAmbiguous, v.Status)
	assert.Equal(t, 2, v.CandidateRows)
	assert.Equal(t, 2, v.DistinctValues)
}

func TestResolve_AgreeingCandidatesAcrossUnits(t *testing.T) {
	vs := resolveKeys(tagged(
		row("bs", 0, "자산총계", model.ScopeBS, 2024, 5_000, 1_000_000),
		row("bs2", 0, "자산총계", model.ScopeBS, 2024, 5_000_000, 1_000),
		row("bs3", 0, "자산 총계", model.ScopeBS, 2024, 5_000_000_000, 1),
	), model.KeyTotalAssets)

	v := vs[model.KeyTotalAssets]
	require.NotNil(t, v.Value)
	assert.InDelta(t, 5_000_000_000, *v.Value, 0)
	assert.Equal(t, 3, v.CandidateRows)
	assert.Equal(t, 1, v.DistinctValues)
	assert.ElementsMatch(t, []string{"자산총계", "자산 총계"}, v.Labels)
}

func TestResolve_MissingAndPeriodFilter(t *testing.T) {
	rows := tagged(
		row("bs", 0, "자산총계", model.ScopeBS, 2023, 4_500_000, 1),
		row("is", 0, "자산총계", model.ScopeISCIS, 2024, 9, 1),
	)
	vs := resolveKeys(rows, model.KeyTotalAssets, model.KeyRevenue)

	assert.Nil(t, vs[model.KeyTotalAssets].Value)
	assert.Equal(t, model.StatusMissing, vs[model.KeyTotalAssets].Status)
	assert.Equal(t, 0, vs[model.KeyTotalAssets].CandidateRows)
	assert.Equal(t, model.StatusMissing, vs[model.KeyRevenue].Status)

	r := New(accountmap.Default(), nil)
	prior := r.Resolve(Request{CorpYear: cy, ReportID: "r1", FiscalYear: 2023, Keys: []string{model.KeyTotalAssets}}, rows)
	require.NotNil(t, prior[model.KeyTotalAssets].Value)
	assert.InDelta(t, 4_500_000, *prior[model.KeyTotalAssets].Value, 0)
}

func TestResolve_RejectsForeignScopeTag(t *testing.T) {
	// A row tagged by hand with a key from another scope is not a candidate.
	rows := tagged(row("bs", 0, "자산총계", model.ScopeBS, 2024, 100, 1))
	rows[0].StdKey = model.KeyRevenue
	vs := resolveKeys(rows, model.KeyRevenue)
	assert.Equal(t, model.StatusMissing, vs[model.KeyRevenue].Status)
}

func TestResolve_EmptyInput(t *testing.T) {
	vs := resolveKeys(nil, model.KeyTotalAssets, model.KeyStockPrice)
	assert.Len(t, vs, 2)
	assert.Nil(t, vs.Get(model.KeyTotalAssets))
	assert.Nil(t, vs.Get(model.KeyStockPrice))
}

func TestResolve_NoteText(t *testing.T) {
	rows := tagged(
		row("bs", 0, "유동자산", model.ScopeBS, 2024, 800, 1),
		row("bs", 1, "재고자산(주7)", model.ScopeBS, 2024, 100, 1),
	)
	rows[1].IndentLevel = 1
	rows = tagged(rows...)

	links := extract.BuildNoteLinks(rows, []model.NoteSection{{SectionID: "n7", ReportID: "r1", NoteNo: 7}})
	book := NewNoteBook(links, []model.TextChunk{
		{ChunkID: "c2", ReportID: "r1", SectionID: "n7", SectionType: model.SectionNotes, NoteNo: 7, ChunkIdx: 1, Text: "평가손실 충당금"},
		{ChunkID: "c1", ReportID: "r1", SectionID: "n7", SectionType: model.SectionNotes, NoteNo: 7, ChunkIdx: 0, Text: "재고자산 내역"},
		{ChunkID: "b1", ReportID: "r1", SectionID: "biz", SectionType: model.SectionBiz, ChunkIdx: 0, Text: "사업의 내용"},
	})

	vs := New(accountmap.Default(), book).Resolve(Request{
		CorpYear: cy, ReportID: "r1", Keys: []string{model.KeyInventories, model.KeyCurrentAssets},
	}, rows)

	assert.Equal(t, "재고자산 내역\n\n평가손실 충당금", vs[model.KeyInventories].NoteText)
	assert.Equal(t, []int{7}, vs[model.KeyCurrentAssets].NoteNos, "parent inherits the rolled-up note")
	assert.Equal(t, "재고자산 내역\n\n평가손실 충당금", vs[model.KeyCurrentAssets].NoteText)
	assert.Equal(t, []string{"(주7)"}, vs[model.KeyInventories].NoteRefs)

	assert.Len(t, book.Chunks("r1", 7, 1), 1)
	assert.Len(t, book.Chunks("r1", 7, 0), 2)
	assert.Empty(t, book.Chunks("r1", 8, 5))
}

func TestResolve_Idempotent(t *testing.T) {
	rows := tagged(
		row("bs", 0, "자산총계", model.ScopeBS, 2024, 5_000_000, 1),
		row("bs", 1, "부채총계", model.ScopeBS, 2024, 2_000_000, 1),
	)
	a := resolveKeys(rows, model.KeyTotalAssets, model.KeyTotalLiabilities)
	b := resolveKeys(rows, model.KeyTotalAssets, model.KeyTotalLiabilities)
	assert.Equal(t, a, b)
}

func TestLatestMarket(t *testing.T) {
	snaps := []model.MarketSnapshot{
		{CorpCode: cy.CorpCode, Year: 2024, AsOfDate: "2024-03-10", StockPrice: model.Float(70000), SharesOutstanding: model.Float(100)},
		{CorpCode: cy.CorpCode, Year: 2024, AsOfDate: "20241230", StockPrice: model.Float(53000)},
		{CorpCode: cy.CorpCode, Year: 2024, AsOfDate: "garbage", SharesOutstanding: model.Float(1)},
		{CorpCode: cy.CorpCode, Year: 2023, AsOfDate: "2023-12-28", StockPrice: model.Float(78500)},
		{CorpCode: "other", Year: 2024, AsOfDate: "2024-12-31", StockPrice: model.Float(1)},
	}
	m := LatestMarket(snaps, cy)
	require.NotNil(t, m.StockPrice)
	require.NotNil(t, m.SharesOutstanding)
	assert.InDelta(t, 53000, *m.StockPrice, 0)
	assert.InDelta(t, 100, *m.SharesOutstanding, 0)
	assert.Equal(t, "20241230", m.PriceAsOf)

	vs := New(accountmap.Default(), nil).Resolve(Request{
		CorpYear: cy, ReportID: "r1", Keys: []string{model.KeyStockPrice, model.KeySharesOutstanding}, Market: m,
	}, nil)
	assert.Equal(t, model.KindMarket, vs[model.KeyStockPrice].Kind)
	assert.Equal(t, model.StatusResolved, vs[model.KeyStockPrice].Status)
	assert.InDelta(t, 53000, *vs.Get(model.KeyStockPrice), 0)
}

func TestKeys(t *testing.T) {
	keys := Keys(
		[]string{"CURRENT_ASSETS", "EPS", "NOPAT", "CURRENT_ASSETS"},
		[]string{"LONG_TERM_DEBT", "EQUITY"},
		[]string{"PPE", ""},
	)
	assert.Equal(t, []string{
		"CURRENT_ASSETS", "LONG_TERM_DEBT", "EQUITY",
		"STOCK_PRICE", "SHARES_OUTSTANDING",
		"PRE_TAX_INCOME", "TAX_EXP", "DEPRECIATION", "PPE",
	}, keys)
}
