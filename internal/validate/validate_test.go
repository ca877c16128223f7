package validate

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dart-report/internal/metrics"
	"github.com/sells-group/dart-report/internal/model"
	"github.com/sells-group/dart-report/internal/ratio"
)

var cy = model.CorpYear{CorpCode: "00126380", Year: 2024}

func f(v float64) *float64 { return &v }

func values(vals map[string]float64) model.ValueSet {
	vs := model.ValueSet{}
	for k, v := range vals {
		vs[k] = model.ResolvedValue{StdKey: k, Value: f(v), Status: model.StatusResolved}
	}
	return vs
}

// scope materializes a small, consistent scope.
func scope(t *testing.T) Input {
	t.Helper()
	vs := values(map[string]float64{
		"TOTAL_ASSETS":        5_000_000,
		"CURRENT_ASSETS":      800_000,
		"CURRENT_LIABILITIES": 400_000,
	})
	prev := values(map[string]float64{"TOTAL_ASSETS": 4_500_000})
	tbl := ratio.Default()
	cur := &metrics.Side{CorpCode: cy.CorpCode, Values: vs, Ratios: ratio.ByKey(tbl.EvaluateAll(cy, "r1", vs))}
	keys := []string{"TOTAL_ASSETS", "current_ratio"}
	rows := metrics.Materialize(cy, keys, cur, &metrics.Side{Values: prev}, nil, metrics.DefaultCatalog())
	return Input{
		CorpYear:     cy,
		Requested:    keys,
		Metrics:      rows,
		Values:       vs,
		PriorValues:  prev,
		Requirements: tbl,
		Catalog:      metrics.DefaultCatalog(),
	}
}

func TestTolerance(t *testing.T) {
	tol := DefaultTolerance
	assert.True(t, tol.Equal(1, 1))
	assert.True(t, tol.Equal(1e12, 1e12+1))
	assert.False(t, tol.Equal(1, 1.001))
	assert.True(t, tol.EqualPtr(nil, nil))
	assert.False(t, tol.EqualPtr(nil, f(0)))
	assert.True(t, tol.EqualPtr(f(2), f(2)))
}

func TestMetrics_Consistent(t *testing.T) {
	in := scope(t)
	rep := Metrics(in, DefaultOptions())

	s := rep.Summary()
	assert.Equal(t, 0, s.Fail)
	assert.Equal(t, 2, s.Pass)
	assert.NoError(t, rep.Err())
}

func TestMetrics_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *Input)
		check  string
	}{
		{"missing requested metric", func(in *Input) { in.Requested = append(in.Requested, "REVENUE") }, "coverage"},
		{"unit drift", func(in *Input) { in.Metrics[0].Unit = model.UnitRatio }, "catalog"},
		{"type drift", func(in *Input) { in.Metrics[0].MetricType = model.MetricDerived }, "catalog"},
		{"yoy drift", func(in *Input) { in.Metrics[0].YoYAbs = f(1) }, "yoy"},
		{"yoy pct scaled", func(in *Input) { *in.Metrics[0].YoYPct *= 100 }, "yoy"},
		{"ratio drift", func(in *Input) { in.Metrics[1].Value = f(2.5) }, "ratio"},
		{"raw drift", func(in *Input) {
			in.Values = values(map[string]float64{"TOTAL_ASSETS": 1, "CURRENT_ASSETS": 800_000, "CURRENT_LIABILITIES": 400_000})
		}, "value"},
		{"self benchmark", func(in *Input) { in.Metrics[0].BenchmarkCorpCode = cy.CorpCode }, "benchmark"},
		{"benchmark drift", func(in *Input) {
			in.BenchmarkValues = values(map[string]float64{"TOTAL_ASSETS": 6_000_000})
			in.Metrics[0].BenchmarkCorpCode = "00164779"
			in.Metrics[0].BenchmarkValue = f(7_000_000)
		}, "benchmark"},
		{"benchmark value without entity", func(in *Input) { in.Metrics[0].BenchmarkValue = f(1) }, "benchmark"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := scope(t)
			tt.mutate(&in)
			rep := Metrics(in, DefaultOptions())

			fails := rep.Failures()
			require.NotEmpty(t, fails)
			assert.Equal(t, tt.check, fails[0].Check)

			err := rep.Err()
			var fe *FailureError
			require.True(t, errors.As(err, &fe))
			assert.Contains(t, err.Error(), tt.check)
		})
	}
}

func TestMetrics_WrongPriorValueFails(t *testing.T) {
	in := scope(t)
	// A bad comparative column: value_prev and both YoY columns agree with
	// each other but not with the prior-year table.
	m := &in.Metrics[0]
	m.ValuePrev = f(1)
	m.YoYAbs = f(*m.Value - 1)
	m.YoYPct = f(*m.Value - 1)

	rep := Metrics(in, DefaultOptions())
	fails := rep.Failures()
	require.Len(t, fails, 1)
	assert.Equal(t, "prior", fails[0].Check)
	assert.Equal(t, "TOTAL_ASSETS", fails[0].MetricKey)
	assert.Contains(t, fails[0].Message, "4.5e+06")
	assert.Error(t, rep.Err())
}

func TestMetrics_PriorRatioRecomputed(t *testing.T) {
	in := scope(t)
	in.PriorValues = values(map[string]float64{
		"TOTAL_ASSETS":        4_500_000,
		"CURRENT_ASSETS":      600_000,
		"CURRENT_LIABILITIES": 400_000,
	})
	require.Nil(t, in.Metrics[1].ValuePrev)

	rep := Metrics(in, DefaultOptions())
	fails := rep.Failures()
	require.Len(t, fails, 1)
	assert.Equal(t, "prior", fails[0].Check)
	assert.Equal(t, "current_ratio", fails[0].MetricKey)
}

func TestMetrics_Warnings(t *testing.T) {
	vs := values(map[string]float64{"CASH_EQ": -5, "NET_INCOME": 700, "EQUITY": 100})
	tbl := ratio.Default()
	cur := &metrics.Side{CorpCode: cy.CorpCode, Values: vs, Ratios: ratio.ByKey(tbl.EvaluateAll(cy, "r1", vs))}
	keys := []string{"CASH_EQ", "roe", "REVENUE"}
	in := Input{
		CorpYear:     cy,
		Requested:    keys,
		Metrics:      metrics.Materialize(cy, keys, cur, nil, nil, metrics.DefaultCatalog()),
		Values:       vs,
		Requirements: tbl,
		Catalog:      metrics.DefaultCatalog(),
	}

	rep := Metrics(in, DefaultOptions())
	require.NoError(t, rep.Err())
	s := rep.Summary()
	assert.Equal(t, 3, s.Warn, "negative cash, roe of 7 and null revenue")
	assert.Equal(t, 3, s.Pass)
}

func TestFailureError_Truncates(t *testing.T) {
	e := &FailureError{}
	for i := 0; i < 7; i++ {
		e.Failures = append(e.Failures, Finding{Level: Fail, Check: "yoy", MetricKey: "X"})
	}
	assert.Contains(t, e.Error(), "7 failure(s)")
	assert.Contains(t, e.Error(), "(+2 more)")
}

func TestMarketTables(t *testing.T) {
	snaps := []model.MarketSnapshot{
		{CorpCode: "A", Year: 2024, AsOfDate: "20250311", StockPrice: f(100), SharesOutstanding: f(10), CorpRole: model.RoleTarget},
		{CorpCode: "B", Year: 2024, AsOfDate: "2025-03-19", StockPrice: f(50), SharesOutstanding: f(5), CorpRole: model.RoleBenchmark},
	}
	maps := []model.BenchmarkMapping{{CorpCode: "A", Year: 2024, BenchCorpCode: "B"}}

	rep := MarketTables(snaps, maps)
	assert.Equal(t, Summary{Pass: 1}, rep.Summary())

	bad := append(snaps,
		model.MarketSnapshot{CorpCode: "A", Year: 2024, AsOfDate: "someday", StockPrice: f(0), CorpRole: model.RoleTarget},
		model.MarketSnapshot{CorpCode: "C", Year: 2024, AsOfDate: "20210101", StockPrice: f(1), SharesOutstanding: f(1), CorpRole: model.RoleTarget},
	)
	badMaps := append(maps,
		model.BenchmarkMapping{CorpCode: "A", Year: 2024, BenchCorpCode: "D"},
		model.BenchmarkMapping{CorpCode: "C", Year: 2024, BenchCorpCode: "C"},
	)
	rep = MarketTables(bad, badMaps)

	checks := map[string]Level{}
	for _, f := range rep.Findings {
		checks[f.Check] = f.Level
	}
	assert.Equal(t, Fail, checks["market_duplicate"])
	assert.Equal(t, Fail, checks["benchmark_duplicate"])
	assert.Equal(t, Fail, checks["benchmark_multiple"])
	assert.Equal(t, Fail, checks["benchmark_self"])
	assert.Equal(t, Warn, checks["benchmark_market"])
	assert.Equal(t, Warn, checks["market_price"])
	assert.Equal(t, Warn, checks["market_shares"])
	assert.Equal(t, Warn, checks["market_asof"])
	assert.Error(t, rep.Err())
}

type fakeIngest struct {
	rows     []model.FactRow
	sections []model.NoteSection
	chunks   []model.TextChunk
	links    []model.NoteLink
}

func (f fakeIngest) LoadFactRows(context.Context, string) ([]model.FactRow, error) {
	return f.rows, nil
}

func (f fakeIngest) LoadNoteSections(context.Context, string) ([]model.NoteSection, error) {
	return f.sections, nil
}

func (f fakeIngest) LoadNoteChunks(context.Context, string) ([]model.TextChunk, error) {
	var out []model.TextChunk
	for _, c := range f.chunks {
		if c.SectionType == model.SectionNotes {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f fakeIngest) LoadBizChunks(context.Context, string) ([]model.TextChunk, error) {
	var out []model.TextChunk
	for _, c := range f.chunks {
		if c.SectionType == model.SectionBiz {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f fakeIngest) LoadNoteLinks(context.Context, string) ([]model.NoteLink, error) {
	return f.links, nil
}

func TestCountIngest(t *testing.T) {
	usable := func(st model.Scope, table string, notes ...int) model.FactRow {
		return model.FactRow{
			StatementType: st, TableID: table, UnitMult: 1, OwnNoteNos: notes,
			Value: decimal.NewNullDecimal(decimal.NewFromInt(1)),
		}
	}
	src := fakeIngest{
		rows: []model.FactRow{
			usable(model.ScopeBS, "t1", 5),
			usable(model.ScopeBS, "t1"),
			usable(model.ScopeISCIS, "t2"),
			usable(model.ScopeCF, "t3"),
			{StatementType: model.ScopeBS, TableID: "t1"},
		},
		sections: []model.NoteSection{{SectionID: "s5", NoteNo: 5}},
		chunks: []model.TextChunk{
			{SectionType: model.SectionNotes}, {SectionType: model.SectionNotes}, {SectionType: model.SectionBiz},
		},
		links: []model.NoteLink{{NoteNo: 5, NoteSectionID: "s5"}},
	}
	rep := model.Report{ReportID: "r1", CorpCode: cy.CorpCode, Year: cy.Year}

	c, err := CountIngest(context.Background(), src, rep)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Facts)
	assert.Equal(t, 4, c.Usable)
	assert.Equal(t, 1, c.NoteRefs)
	assert.Equal(t, map[model.Scope]int{model.ScopeBS: 1, model.ScopeISCIS: 1, model.ScopeCF: 1}, c.Tables)
	assert.Equal(t, map[string]int{model.SectionNotes: 2, model.SectionBiz: 1}, c.Chunks)
	assert.Equal(t, 1, c.Links)
	assert.Zero(t, c.Orphans)

	r := Ingest(c)
	require.NoError(t, r.Err())
	assert.Equal(t, Summary{Pass: 1}, r.Summary())
}

func TestIngest_Findings(t *testing.T) {
	empty := Ingest(IngestCounts{ReportID: "r1", CorpYear: cy})
	require.Error(t, empty.Err())
	assert.Contains(t, empty.Failures()[0].Message, "r1: no statement cells")

	unlinked := Ingest(IngestCounts{
		ReportID: "r2", CorpYear: cy, Facts: 3, Usable: 3, NoteRefs: 2,
		Tables:   map[model.Scope]int{model.ScopeBS: 1, model.ScopeISCIS: 1, model.ScopeCF: 1},
		Sections: 1,
		Chunks:   map[string]int{model.SectionNotes: 1, model.SectionBiz: 1},
	})
	require.NoError(t, unlinked.Err())
	require.Len(t, unlinked.Findings, 1)
	assert.Equal(t, Warn, unlinked.Findings[0].Level)
	assert.Contains(t, unlinked.Findings[0].Message, "no links are stored")
}
