package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/dart-report/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func f(v float64) *float64 { return &v }

func vs(vals map[string]float64) model.ValueSet {
	out := model.ValueSet{}
	for k, v := range vals {
		out[k] = model.ResolvedValue{StdKey: k, Value: f(v), Status: model.StatusResolved}
	}
	return out
}

func TestYoY(t *testing.T) {
	tests := []struct {
		name    string
		value   *float64
		prev    *float64
		wantAbs *float64
		wantPct *float64
	}{
		{"growth", f(5_000_000), f(4_500_000), f(500_000), f(500_000.0 / 4_500_000)},
		{"negative prev", f(-50), f(-100), f(50), f(0.5)},
		{"zero prev", f(10), f(0), f(10), nil},
		{"nil prev", f(10), nil, nil, nil},
		{"nil value", nil, f(10), nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			abs, pct := YoY(tt.value, tt.prev)
			if tt.wantAbs == nil {
				assert.Nil(t, abs)
			} else {
				require.NotNil(t, abs)
				assert.InDelta(t, *tt.wantAbs, *abs, 1e-9)
				assert.InDelta(t, *tt.value, *tt.prev+*abs, 1e-9)
			}
			if tt.wantPct == nil {
				assert.Nil(t, pct)
			} else {
				require.NotNil(t, pct)
				assert.InDelta(t, *tt.wantPct, *pct, 1e-12)
			}
		})
	}
}

func TestImproved(t *testing.T) {
	assert.True(t, *Improved(model.PolarityHigherBetter, f(2), f(2)))
	assert.False(t, *Improved(model.PolarityHigherBetter, f(1), f(2)))
	assert.True(t, *Improved(model.PolarityLowerBetter, f(1), f(2)))
	assert.False(t, *Improved(model.PolarityLowerBetter, f(3), f(2)))
	assert.Nil(t, Improved(model.PolarityDepends, f(3), f(2)))
	assert.Nil(t, Improved(model.PolarityHigherBetter, f(3), nil))
	assert.Nil(t, Improved(model.PolarityHigherBetter, nil, f(3)))
}

func TestMaterialize(t *testing.T) {
	cy := model.CorpYear{CorpCode: "00126380", Year: 2024}
	cur := &Side{
		CorpCode: cy.CorpCode,
		Values:   vs(map[string]float64{"TOTAL_ASSETS": 5_000_000, "EPS": 100}),
		Ratios: map[string]model.RatioResult{
			"current_ratio": {RatioKey: "current_ratio", Value: f(2), IsComplete: true},
			"per":           {RatioKey: "per", Value: f(12)},
		},
	}
	prior := &Side{Values: vs(map[string]float64{"TOTAL_ASSETS": 4_500_000})}
	bench := &Side{
		CorpCode: "00164779",
		Values:   vs(map[string]float64{"TOTAL_ASSETS": 6_000_000}),
		Ratios: map[string]model.RatioResult{
			"current_ratio": {RatioKey: "current_ratio", Value: f(1.5)},
			"per":           {RatioKey: "per", Value: f(8)},
		},
	}

	rows := Materialize(cy, []string{"TOTAL_ASSETS", "current_ratio", "per", "EPS", "UNKNOWN"}, cur, prior, bench, DefaultCatalog())
	require.Len(t, rows, 4)

	ta := rows[0]
	assert.Equal(t, "TOTAL_ASSETS", ta.MetricKey)
	assert.Equal(t, model.MetricRaw, ta.MetricType)
	assert.Equal(t, model.UnitKRW, ta.Unit)
	assert.Equal(t, "자산총계", ta.MetricNameKo)
	assert.InDelta(t, 500_000, *ta.YoYAbs, 1e-9)
	assert.InDelta(t, 0.1111, *ta.YoYPct, 1e-4)
	assert.Equal(t, "00164779", ta.BenchmarkCorpCode)
	assert.InDelta(t, 6_000_000, *ta.BenchmarkValue, 0)
	assert.False(t, *ta.BenchmarkImproved)

	cr := rows[1]
	assert.Equal(t, model.MetricRatio, cr.MetricType)
	assert.InDelta(t, 2, *cr.Value, 0)
	assert.Nil(t, cr.ValuePrev)
	assert.Nil(t, cr.YoYAbs)
	assert.True(t, *cr.BenchmarkImproved)

	assert.Nil(t, rows[2].BenchmarkImproved, "valuation multiples carry no verdict")
	assert.Equal(t, model.MetricDerived, rows[3].MetricType)
	assert.Equal(t, model.UnitKRWPerShare, rows[3].Unit)
}

func TestMaterialize_NoBenchmark(t *testing.T) {
	cy := model.CorpYear{CorpCode: "00126380", Year: 2024}
	rows := Materialize(cy, []string{"REVENUE"}, &Side{Values: vs(map[string]float64{"REVENUE": 1})}, nil, nil, DefaultCatalog())
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].BenchmarkCorpCode)
	assert.Nil(t, rows[0].BenchmarkValue)
	assert.Nil(t, rows[0].BenchmarkImproved)
	assert.Nil(t, rows[0].ValuePrev)
}

func TestCatalog(t *testing.T) {
	c := DefaultCatalog()
	e, ok := c.Lookup("long_term_debt_ratio")
	require.True(t, ok)
	assert.Equal(t, model.PolarityLowerBetter, e.Polarity)
	assert.Equal(t, model.UnitRatio, e.Unit)

	_, ok = c.Lookup("nope")
	assert.False(t, ok)

	assert.Equal(t, []string{"REVENUE", "COGS"}, c.RawKeys([]string{"REVENUE", "roe", "COGS", "EPS"}))

	_, err := NewCatalog([]model.CatalogEntry{{MetricKey: "A", Unit: model.UnitKRW}, {MetricKey: "A", Unit: model.UnitKRW}})
	assert.ErrorContains(t, err, "duplicate")
	_, err = NewCatalog([]model.CatalogEntry{{}})
	assert.Error(t, err)
}

func TestCatalog_Units(t *testing.T) {
	for _, e := range DefaultCatalog().Entries() {
		assert.True(t, e.Unit.Known(), e.MetricKey)
		if e.Unit == model.UnitShares {
			assert.Equal(t, "SHARES_OUTSTANDING", e.MetricKey)
		}
	}

	_, err := NewCatalog([]model.CatalogEntry{{MetricKey: "A", Unit: "USD"}})
	assert.ErrorContains(t, err, "unknown unit")
}
