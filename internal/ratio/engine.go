package ratio

import (
	"github.com/sells-group/dart-report/internal/model"
)

// Evaluate computes one ratio from vs. Missing contributions sum as zero.
// The ratio is complete when every required item is non-nil, and it has a
// value only when it is complete and the denominator is not zero.
func (t *Table) Evaluate(ratioKey string, cy model.CorpYear, reportID string, vs model.ValueSet) model.RatioResult {
	res := model.RatioResult{
		CorpCode: cy.CorpCode,
		Year:     cy.Year,
		ReportID: reportID,
		RatioKey: ratioKey,
	}
	reqs := t.byKey[ratioKey]
	if len(reqs) == 0 {
		return res
	}
	res.RatioKo = reqs[0].RatioKo

	var required, hit int
	for _, r := range reqs {
		v := vs.Get(r.ItemKey)
		if r.Required {
			required++
			if v != nil {
				hit++
			} else {
				res.Missing = append(res.Missing, r.ItemKey)
			}
		}
		if v == nil {
			continue
		}
		switch r.Role {
		case model.RoleNumerator, model.RoleAdd:
			res.Numerator += *v
		case model.RoleSubtract:
			res.Numerator -= *v
		case model.RoleDenominator:
			res.Denominator += *v
		}
	}

	res.IsComplete = required == hit
	if res.IsComplete && res.Denominator != 0 {
		res.Value = model.Float(res.Numerator / res.Denominator)
	}
	return res
}

// EvaluateAll computes every ratio of the table, in table order.
func (t *Table) EvaluateAll(cy model.CorpYear, reportID string, vs model.ValueSet) []model.RatioResult {
	out := make([]model.RatioResult, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, t.Evaluate(k, cy, reportID, vs))
	}
	return out
}

// ByKey indexes ratio results by ratio key.
func ByKey(results []model.RatioResult) map[string]model.RatioResult {
	out := make(map[string]model.RatioResult, len(results))
	for _, r := range results {
		out[r.RatioKey] = r
	}
	return out
}
