package derive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dart-report/internal/model"
)

var cy = model.CorpYear{CorpCode: "00164779", Year: 2024}

func set(vals map[string]float64, nulls ...string) model.ValueSet {
	vs := model.ValueSet{}
	for k, v := range vals {
		vs[k] = model.ResolvedValue{StdKey: k, Value: model.Float(v), Status: model.StatusResolved, Kind: model.KindRaw}
	}
	for _, k := range nulls {
		vs[k] = model.ResolvedValue{StdKey: k, Status: model.StatusMissing, Kind: model.KindRaw}
	}
	return vs
}

func TestLongTermDebtFallback(t *testing.T) {
	f := model.Float
	tests := []struct {
		name                         string
		ltd, nonCurrent, total, curr *float64
		want                         *float64
	}{
		{"long term debt first", f(10), f(20), f(100), f(30), f(10)},
		{"non current second", nil, f(20), f(100), f(30), f(20)},
		{"difference third", nil, nil, f(100), f(30), f(70)},
		{"difference needs both", nil, nil, f(100), nil, nil},
		{"all missing", nil, nil, nil, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LongTermDebt(tt.ltd, tt.nonCurrent, tt.total, tt.curr)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestTaxRateClamp(t *testing.T) {
	f := model.Float
	tests := []struct {
		name     string
		tax, pre *float64
		want     *float64
	}{
		{"normal", f(22), f(100), f(0.22)},
		{"negative pre-tax clamps to zero", f(10), f(-100), f(0)},
		{"tax above income clamps to one", f(300), f(100), f(1)},
		{"zero pre-tax", f(10), f(0), nil},
		{"missing tax", nil, f(100), nil},
		{"missing pre-tax", f(10), nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TaxRate(tt.tax, tt.pre)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-12)
			assert.GreaterOrEqual(t, *got, 0.0)
			assert.LessOrEqual(t, *got, 1.0)
		})
	}
}

func TestCompute_Full(t *testing.T) {
	vs := set(map[string]float64{
		model.KeyOpProfit:              1_000,
		model.KeyTaxExp:                200,
		model.KeyPreTaxIncome:          1_000,
		model.KeyNonCurrentLiabilities: 3_000,
		model.KeyEquity:                7_000,
		model.KeyNetIncome:             800,
		model.KeyRevenue:               10_000,
		model.KeyDepreciation:          200,
		model.KeySharesOutstanding:     100,
	}, model.KeyLongTermDebt)

	d := Compute(vs)
	require.NotNil(t, d.TaxRate)
	assert.InDelta(t, 0.2, *d.TaxRate, 1e-12)
	assert.InDelta(t, 800, *d.NOPAT, 1e-9)
	assert.InDelta(t, 3_000, *d.LongTermDebtResolved, 1e-9)
	assert.InDelta(t, 10_000, *d.InvestedCapital, 1e-9)
	assert.InDelta(t, 8, *d.EPS, 1e-12)
	assert.InDelta(t, 70, *d.BPS, 1e-12)
	assert.InDelta(t, 100, *d.SPS, 1e-12)
	assert.InDelta(t, 10, *d.CFPS, 1e-12)
}

func TestCompute_NullPropagation(t *testing.T) {
	vs := set(map[string]float64{
		model.KeyOpProfit:           1_000,
		model.KeyNetIncome:          800,
		model.KeyTotalLiabilities:   5_000,
		model.KeyCurrentLiabilities: 2_000,
		model.KeySharesOutstanding:  0,
	}, model.KeyEquity)

	d := Compute(vs)
	assert.Nil(t, d.TaxRate)
	assert.Nil(t, d.NOPAT, "no tax rate, no NOPAT")
	assert.InDelta(t, 3_000, *d.LongTermDebtResolved, 1e-9)
	assert.Nil(t, d.InvestedCapital, "equity missing")
	assert.Nil(t, d.EPS, "zero shares")
	assert.Nil(t, d.BPS)
	assert.Nil(t, d.SPS)
	assert.Nil(t, d.CFPS)
}

func TestCompute_CFPSWithoutDepreciation(t *testing.T) {
	d := Compute(set(map[string]float64{
		model.KeyNetIncome:         500,
		model.KeySharesOutstanding: 50,
	}))
	require.NotNil(t, d.CFPS)
	assert.InDelta(t, 10, *d.CFPS, 1e-12)
}

func TestMerge_DerivedWins(t *testing.T) {
	raw := set(map[string]float64{model.KeyEPS: 1, model.KeyTotalAssets: 10})
	raw[model.KeyStockPrice] = model.ResolvedValue{StdKey: model.KeyStockPrice, Kind: model.KindMarket, Value: model.Float(5)}

	derived := Values{EPS: model.Float(2)}.Rows(cy, "r1")
	out := Merge(raw, derived)

	assert.InDelta(t, 2, *out.Get(model.KeyEPS), 0)
	assert.Equal(t, model.KindDerived, out[model.KeyEPS].Kind)
	assert.InDelta(t, 10, *out.Get(model.KeyTotalAssets), 0)
	assert.InDelta(t, 5, *out.Get(model.KeyStockPrice), 0)
	assert.Contains(t, out, model.KeyNOPAT)
	assert.Nil(t, out.Get(model.KeyNOPAT))

	// Inputs are not mutated.
	assert.InDelta(t, 1, *raw.Get(model.KeyEPS), 0)
}

func TestMerge_DerivedNilStillAuthoritative(t *testing.T) {
	raw := set(map[string]float64{model.KeyBPS: 99})
	out := Merge(raw, Values{}.Rows(cy, "r1"))
	assert.Nil(t, out.Get(model.KeyBPS))
}

func TestAugment(t *testing.T) {
	vs := set(map[string]float64{
		model.KeyNetIncome:         1_000,
		model.KeySharesOutstanding: 10,
	})
	out := Augment(cy, "r1", vs)
	assert.InDelta(t, 100, *out.Get(model.KeyEPS), 0)
	assert.Equal(t, "r1", out[model.KeyEPS].ReportID)
	assert.Len(t, out, 2+len(model.DerivedKeys))
}
