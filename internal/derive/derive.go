// Package derive computes secondary quantities from resolved primitives.
package derive

import (
	"github.com/sells-group/dart-report/internal/model"
)

// Inputs lists the resolved keys the formulas read.
var Inputs = []string{
	model.KeyOpProfit, model.KeyTaxExp, model.KeyPreTaxIncome,
	model.KeyLongTermDebt, model.KeyNonCurrentLiabilities,
	model.KeyTotalLiabilities, model.KeyCurrentLiabilities,
	model.KeyEquity, model.KeyTotalAssets,
	model.KeyNetIncome, model.KeyRevenue, model.KeyDepreciation,
	model.KeyStockPrice, model.KeySharesOutstanding,
}

// Values are the derived quantities of one (entity, year, report). A nil
// field means an input was missing or a denominator was zero.
type Values struct {
	LongTermDebtResolved *float64
	TaxRate              *float64
	NOPAT                *float64
	InvestedCapital      *float64
	EPS                  *float64
	BPS                  *float64
	SPS                  *float64
	CFPS                 *float64
}

// Compute applies the derivation formulas to vs.
func Compute(vs model.ValueSet) Values {
	var d Values

	d.LongTermDebtResolved = LongTermDebt(
		vs.Get(model.KeyLongTermDebt),
		vs.Get(model.KeyNonCurrentLiabilities),
		vs.Get(model.KeyTotalLiabilities),
		vs.Get(model.KeyCurrentLiabilities),
	)
	d.TaxRate = TaxRate(vs.Get(model.KeyTaxExp), vs.Get(model.KeyPreTaxIncome))

	if op := vs.Get(model.KeyOpProfit); op != nil && d.TaxRate != nil {
		d.NOPAT = model.Float(*op * (1 - *d.TaxRate))
	}
	if eq := vs.Get(model.KeyEquity); eq != nil && d.LongTermDebtResolved != nil {
		d.InvestedCapital = model.Float(*d.LongTermDebtResolved + *eq)
	}

	shares := vs.Get(model.KeySharesOutstanding)
	ni := vs.Get(model.KeyNetIncome)
	d.EPS = perShare(ni, shares)
	d.BPS = perShare(vs.Get(model.KeyEquity), shares)
	d.SPS = perShare(vs.Get(model.KeyRevenue), shares)
	if ni != nil {
		cash := *ni
		if dep := vs.Get(model.KeyDepreciation); dep != nil {
			cash += *dep
		}
		d.CFPS = perShare(&cash, shares)
	}
	return d
}

// LongTermDebt returns the first non-nil of LONG_TERM_DEBT,
// NON_CURRENT_LIABILITIES and TOTAL_LIABILITIES - CURRENT_LIABILITIES.
func LongTermDebt(ltd, nonCurrent, total, current *float64) *float64 {
	switch {
	case ltd != nil:
		return model.Float(*ltd)
	case nonCurrent != nil:
		return model.Float(*nonCurrent)
	case total != nil && current != nil:
		return model.Float(*total - *current)
	}
	return nil
}

// TaxRate returns TAX_EXP / PRE_TAX_INCOME clamped to [0, 1], or nil when
// either input is missing or pre-tax income is zero.
func TaxRate(taxExp, preTax *float64) *float64 {
	if taxExp == nil || preTax == nil || *preTax == 0 {
		return nil
	}
	r := *taxExp / *preTax
	switch {
	case r < 0:
		r = 0
	case r > 1:
		r = 1
	}
	return &r
}

func perShare(v, shares *float64) *float64 {
	if v == nil || shares == nil || *shares == 0 {
		return nil
	}
	return model.Float(*v / *shares)
}

// Rows renders Values as derived ResolvedValues keyed like raw values.
func (d Values) Rows(cy model.CorpYear, reportID string) model.ValueSet {
	out := make(model.ValueSet, len(model.DerivedKeys))
	put := func(key string, v *float64) {
		status := model.StatusMissing
		if v != nil {
			status = model.StatusResolved
		}
		out[key] = model.ResolvedValue{
			CorpCode: cy.CorpCode,
			Year:     cy.Year,
			ReportID: reportID,
			StdKey:   key,
			Value:    v,
			Status:   status,
			Kind:     model.KindDerived,
		}
	}
	put(model.KeyLongTermDebtResolved, d.LongTermDebtResolved)
	put(model.KeyTaxRate, d.TaxRate)
	put(model.KeyNOPAT, d.NOPAT)
	put(model.KeyInvestedCapital, d.InvestedCapital)
	put(model.KeyEPS, d.EPS)
	put(model.KeyBPS, d.BPS)
	put(model.KeySPS, d.SPS)
	put(model.KeyCFPS, d.CFPS)
	return out
}

func kindPriority(k model.ValueKind) int {
	if k == model.KindDerived {
		return 1
	}
	return 2
}

// Merge unions raw and derived values. For a key present in both, the row
// with the better priority wins (derived before raw and market), and among
// equal priority a non-nil value wins over nil.
func Merge(raw, derived model.ValueSet) model.ValueSet {
	out := raw.Clone()
	for k, d := range derived {
		cur, ok := out[k]
		if !ok || better(d, cur) {
			out[k] = d
		}
	}
	return out
}

func better(a, b model.ResolvedValue) bool {
	pa, pb := kindPriority(a.Kind), kindPriority(b.Kind)
	if pa != pb {
		return pa < pb
	}
	return a.Value != nil && b.Value == nil
}

// Augment resolves derivation for one value set and merges the result.
func Augment(cy model.CorpYear, reportID string, vs model.ValueSet) model.ValueSet {
	return Merge(vs, Compute(vs).Rows(cy, reportID))
}
