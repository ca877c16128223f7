package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetricsRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"flat list", `["REVENUE", "COGS", "asset_turnover"]`, []string{"REVENUE", "COGS", "asset_turnover"}},
		{"legacy dict", `{"keys": [{"key": "TOTAL_ASSETS"}, "EQUITY"]}`, []string{"TOTAL_ASSETS", "EQUITY"}},
		{"legacy list of dicts", `[{"name": "bs", "keys": [{"key": "TOTAL_ASSETS"}]}, {"keys": ["roe"]}]`, []string{"TOTAL_ASSETS", "roe"}},
		{"duplicates and blanks", `["REVENUE", " ", "REVENUE", " COGS "]`, []string{"REVENUE", "COGS"}},
		{"empty", `[]`, nil},
		{"null", `null`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req, err := ParseMetricsRequest([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, MetricKeys(req))
		})
	}
}

func TestParseMetricsRequest_Errors(t *testing.T) {
	t.Parallel()

	_, err := ParseMetricsRequest([]byte(`{`))
	assert.Error(t, err)

	_, err = ParseMetricsRequest([]byte(`["REVENUE", 3]`))
	assert.Error(t, err)

	_, err = ParseMetricsRequest([]byte(`42`))
	assert.Error(t, err)
}

func TestMetricKeys_Nil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, MetricKeys(nil))
}

func TestStableID(t *testing.T) {
	t.Parallel()

	a := StableID("r1", "BS", "", "자산총계")
	b := StableID("r1", "BS", "", "자산총계")
	c := StableID("r1", "BS", "", "부채총계")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 36)

	// The separator keeps ("ab", "c") and ("a", "bc") apart.
	assert.NotEqual(t, StableID("ab", "c"), StableID("a", "bc"))
	assert.Equal(t, LineItemID("r1", ScopeBS, "", "자산총계"), a)
}

func TestFactRowValueWon(t *testing.T) {
	t.Parallel()

	row := FactRow{UnitMult: 1_000_000}
	_, ok := row.ValueWon()
	assert.False(t, ok)

	row.Value = decimal.NewNullDecimal(decimal.RequireFromString("1.5"))
	won, ok := row.ValueWon()
	require.True(t, ok)
	assert.Equal(t, "1500000", won.String())

	row.UnitMult = 0
	assert.False(t, row.Usable())
}

func TestScopeHelpers(t *testing.T) {
	t.Parallel()

	assert.True(t, ScopeBS.IsStatement())
	assert.False(t, ScopeMarket.IsStatement())

	s, err := ParseScope("IS_CIS")
	require.NoError(t, err)
	assert.Equal(t, ScopeISCIS, s)

	_, err = ParseScope("IS")
	assert.Error(t, err)

	assert.Equal(t, 10, MatchExact.DefaultPriority())
	assert.Equal(t, 20, MatchRegex.DefaultPriority())
	assert.Equal(t, 30, MatchLike.DefaultPriority())

	cy := CorpYear{CorpCode: "00126380", Year: 2024}
	assert.Equal(t, CorpYear{CorpCode: "00126380", Year: 2023}, cy.Prior())
	assert.Equal(t, "00126380/2024", cy.String())
}
