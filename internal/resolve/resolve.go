// Package resolve collapses tagged statement rows into confirmed values.
package resolve

import (
	"slices"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/dart-report/internal/accountmap"
	"github.com/sells-group/dart-report/internal/model"
)

// Request scopes one resolution pass.
type Request struct {
	CorpYear model.CorpYear
	ReportID string
	// FiscalYear is the reporting period candidate rows must carry. Zero
	// means CorpYear.Year; CorpYear.Year-1 reads the comparative columns.
	FiscalYear int
	Keys       []string
	Market     Market
}

func (r Request) period() int {
	if r.FiscalYear != 0 {
		return r.FiscalYear
	}
	return r.CorpYear.Year
}

// Resolver applies the strict candidate rule: a candidate must be tagged
// with the key, come from the key's own scope, match an EXACT rule pattern
// for that key and report the requested period.
type Resolver struct {
	accounts *accountmap.Map
	notes    *NoteBook
}

// New creates a Resolver. notes may be nil, in which case no note text is
// attached.
func New(accounts *accountmap.Map, notes *NoteBook) *Resolver {
	return &Resolver{accounts: accounts, notes: notes}
}

// Resolve returns one ResolvedValue per requested key. Keys with no
// candidates are missing; keys whose candidates disagree are ambiguous.
// Both carry a nil value.
func (r *Resolver) Resolve(req Request, rows []model.FactRow) model.ValueSet {
	log := zap.L().With(
		zap.String("component", "resolve"),
		zap.String("corp_code", req.CorpYear.CorpCode),
		zap.Int("bsns_year", req.CorpYear.Year),
		zap.Int("period", req.period()),
	)

	cands := r.candidates(req, rows)
	out := make(model.ValueSet, len(req.Keys))
	var resolved, missing, ambiguous int

	for _, key := range req.Keys {
		var v model.ResolvedValue
		if model.IsMarketKey(key) {
			v = req.Market.value(req, key)
		} else {
			v = r.collapse(req, key, cands[key])
		}
		out[key] = v

		switch v.Status {
		case model.StatusResolved:
			resolved++
		case model.StatusAmbiguous:
			ambiguous++
			log.Debug("resolve: ambiguous key",
				zap.String("std_key", key),
				zap.Int("cand_rows", v.CandidateRows),
				zap.Int("cand_distinct_values", v.DistinctValues),
			)
		default:
			missing++
		}
	}

	log.Debug("resolve: pass complete",
		zap.Int("resolved", resolved),
		zap.Int("missing", missing),
		zap.Int("ambiguous", ambiguous),
	)
	return out
}

func (r *Resolver) candidates(req Request, rows []model.FactRow) map[string][]model.FactRow {
	out := make(map[string][]model.FactRow)
	period := req.period()
	for _, row := range rows {
		if !row.Tagged() || !row.Usable() {
			continue
		}
		if req.ReportID != "" && row.ReportID != req.ReportID {
			continue
		}
		if row.CorpCode != req.CorpYear.CorpCode || row.FiscalYear != period {
			continue
		}
		scope, ok := r.accounts.ScopeOf(row.StdKey)
		if !ok || scope != row.StatementType {
			continue
		}
		if !r.accounts.Matches(row.StatementType, row.StdKey, row.LabelNorm) {
			continue
		}
		out[row.StdKey] = append(out[row.StdKey], row)
	}
	return out
}

func (r *Resolver) collapse(req Request, key string, cands []model.FactRow) model.ResolvedValue {
	v := model.ResolvedValue{
		CorpCode:      req.CorpYear.CorpCode,
		Year:          req.CorpYear.Year,
		ReportID:      req.ReportID,
		StdKey:        key,
		Kind:          model.KindRaw,
		Status:        model.StatusMissing,
		CandidateRows: len(cands),
	}
	if len(cands) == 0 {
		return v
	}

	var distinct []decimal.Decimal
	for _, c := range cands {
		won, _ := c.ValueWon()
		if !containsDecimal(distinct, won) {
			distinct = append(distinct, won)
		}
		v.Labels = appendUnique(v.Labels, c.LabelClean)
		if c.NoteRefsRaw != "" {
			v.NoteRefs = appendUnique(v.NoteRefs, c.NoteRefsRaw)
		}
		for _, n := range c.NoteNos {
			if !slices.Contains(v.NoteNos, n) {
				v.NoteNos = append(v.NoteNos, n)
			}
		}
		v.LineItemIDs = appendUnique(v.LineItemIDs, c.LineItemID)
		v.Sources = append(v.Sources, c.Cell())
	}
	slices.Sort(v.NoteNos)
	v.DistinctValues = len(distinct)

	if len(distinct) == 1 {
		f := distinct[0].InexactFloat64()
		v.Value = &f
		v.Status = model.StatusResolved
	} else {
		v.Status = model.StatusAmbiguous
	}

	if r.notes != nil {
		v.NoteText = r.notes.Text(cands[0].ReportID, v.LineItemIDs)
	}
	return v
}

func containsDecimal(set []decimal.Decimal, d decimal.Decimal) bool {
	for _, s := range set {
		if s.Equal(d) {
			return true
		}
	}
	return false
}

func appendUnique(list []string, s string) []string {
	if s == "" || slices.Contains(list, s) {
		return list
	}
	return append(list, s)
}

// Keys returns the keys a calculation must resolve: every ratio input that
// is not derived, the derivation inputs, the market keys and any extra raw
// keys, deduplicated in first-seen order.
func Keys(ratioInputs, derivationInputs, extra []string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(keys []string) {
		for _, k := range keys {
			if k == "" || seen[k] || model.IsDerivedKey(k) {
				continue
			}
			seen[k] = true
			out = append(out, k)
		}
	}
	add(ratioInputs)
	add(derivationInputs)
	add(model.MarketKeys)
	add([]string{model.KeyPreTaxIncome, model.KeyTaxExp, model.KeyDepreciation})
	add(extra)
	return out
}
