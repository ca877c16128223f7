package validate

import (
	"fmt"
	"math"

	"github.com/sells-group/dart-report/internal/metrics"
	"github.com/sells-group/dart-report/internal/model"
	"github.com/sells-group/dart-report/internal/ratio"
)

// AssetLike are raw metrics expected to be non-negative.
var AssetLike = map[string]bool{
	"TOTAL_ASSETS":       true,
	"CURRENT_ASSETS":     true,
	"CASH_EQ":            true,
	"AR":                 true,
	"INVENTORIES":        true,
	"NON_CURRENT_ASSETS": true,
	"PPE":                true,
	"IA":                 true,
}

// Options tune the metric checks.
type Options struct {
	Tolerance Tolerance
	// RatioWarnAbs flags RATIO-unit ratios whose magnitude exceeds it.
	RatioWarnAbs float64
}

// DefaultOptions uses DefaultTolerance and a ratio bound of 5.
func DefaultOptions() Options {
	return Options{Tolerance: DefaultTolerance, RatioWarnAbs: 5}
}

// Input is one materialized scope with the tables it was built from.
type Input struct {
	CorpYear  model.CorpYear
	Requested []string
	Metrics   []model.FactMetric
	// Values is the merged resolved-value table (raw, derived and market).
	Values model.ValueSet
	// PriorValues is the same table for the prior year. value_prev is
	// recomputed from it.
	PriorValues model.ValueSet
	// BenchmarkValues is the peer's table for the same year.
	BenchmarkValues model.ValueSet
	Requirements    *ratio.Table
	Catalog      *metrics.Catalog
}

// Metrics recomputes and cross-checks the materialized rows of one scope.
func Metrics(in Input, opts Options) *Report {
	if opts.Tolerance == (Tolerance{}) {
		opts.Tolerance = DefaultTolerance
	}
	rep := &Report{}
	byKey := make(map[string]model.FactMetric, len(in.Metrics))
	for _, m := range in.Metrics {
		byKey[m.MetricKey] = m
	}

	for _, key := range in.Requested {
		m, ok := byKey[key]
		if !ok {
			f := scoped(in.CorpYear, key)
			f.Level, f.Check, f.Message = Fail, "coverage", "requested metric not materialized"
			rep.add(f)
			continue
		}
		if m.Value == nil {
			f := scoped(in.CorpYear, key)
			f.Level, f.Check, f.Message = Warn, "coverage", "metric value is null"
			rep.add(f)
		}
	}

	for _, m := range in.Metrics {
		before := countFails(rep.Findings)
		checkMetric(rep, in, m, opts)
		if countFails(rep.Findings) == before {
			f := scoped(in.CorpYear, m.MetricKey)
			f.Level, f.Check, f.Message = Pass, "metric", "recomputed values match"
			rep.add(f)
		}
	}
	return rep
}

func countFails(fs []Finding) int {
	n := 0
	for _, f := range fs {
		if f.Level == Fail {
			n++
		}
	}
	return n
}

func checkMetric(rep *Report, in Input, m model.FactMetric, opts Options) {
	tol := opts.Tolerance
	fail := func(check, format string, args ...any) {
		f := scoped(in.CorpYear, m.MetricKey)
		f.Level, f.Check, f.Message = Fail, check, fmt.Sprintf(format, args...)
		rep.add(f)
	}
	warn := func(check, format string, args ...any) {
		f := scoped(in.CorpYear, m.MetricKey)
		f.Level, f.Check, f.Message = Warn, check, fmt.Sprintf(format, args...)
		rep.add(f)
	}

	if m.CorpCode != in.CorpYear.CorpCode || m.Year != in.CorpYear.Year {
		fail("scope", "row belongs to %s/%d", m.CorpCode, m.Year)
	}

	e, ok := in.Catalog.Lookup(m.MetricKey)
	if !ok {
		fail("catalog", "metric not in catalog")
	} else {
		if e.MetricType != m.MetricType {
			fail("catalog", "type %s, catalog says %s", m.MetricType, e.MetricType)
		}
		if e.Unit != m.Unit {
			fail("catalog", "unit %s, catalog says %s", m.Unit, e.Unit)
		}
	}

	if want, ok := recompute(in, in.PriorValues, m); ok && !tol.EqualPtr(want, m.ValuePrev) {
		fail("prior", "value_prev %s, recomputed %s", show(m.ValuePrev), show(want))
	}

	var wantAbs, wantPct *float64
	if m.Value != nil && m.ValuePrev != nil {
		d := *m.Value - *m.ValuePrev
		wantAbs = &d
		if *m.ValuePrev != 0 {
			p := d / math.Abs(*m.ValuePrev)
			wantPct = &p
		}
	}
	if !tol.EqualPtr(wantAbs, m.YoYAbs) {
		fail("yoy", "yoy_abs %s, recomputed %s", show(m.YoYAbs), show(wantAbs))
	}
	if !tol.EqualPtr(wantPct, m.YoYPct) {
		fail("yoy", "yoy_pct %s, recomputed %s", show(m.YoYPct), show(wantPct))
	}

	switch m.MetricType {
	case model.MetricRatio:
		if want, ok := recompute(in, in.Values, m); ok && !tol.EqualPtr(want, m.Value) {
			fail("ratio", "stored %s, recomputed %s", show(m.Value), show(want))
		}
		if m.Unit == model.UnitRatio && m.Value != nil && opts.RatioWarnAbs > 0 && math.Abs(*m.Value) > opts.RatioWarnAbs {
			warn("sanity", "ratio %g outside ±%g", *m.Value, opts.RatioWarnAbs)
		}
	default:
		if want := in.Values.Get(m.MetricKey); !tol.EqualPtr(want, m.Value) {
			fail("value", "stored %s, resolved %s", show(m.Value), show(want))
		}
		if m.MetricType == model.MetricRaw && AssetLike[m.MetricKey] && m.Value != nil && *m.Value < 0 {
			warn("sanity", "negative asset value %g", *m.Value)
		}
	}

	if m.BenchmarkCorpCode != "" {
		if want, ok := recompute(in, in.BenchmarkValues, m); ok && !tol.EqualPtr(want, m.BenchmarkValue) {
			fail("benchmark", "benchmark_value %s, recomputed %s", show(m.BenchmarkValue), show(want))
		}
	} else if m.BenchmarkValue != nil {
		fail("benchmark", "benchmark_value without a benchmark entity")
	}
	if m.BenchmarkCorpCode != "" && m.BenchmarkCorpCode == m.CorpCode {
		fail("benchmark", "entity is its own benchmark")
	}
	if m.BenchmarkImproved != nil && (m.Value == nil || m.BenchmarkValue == nil) {
		fail("benchmark", "benchmark_improved set without both values")
	}
}

// recompute returns what m's value should be under vs: the ratio rebuilt
// from its requirement rows, or the table value of any other metric. Ratios
// cannot be rebuilt without a requirements table.
func recompute(in Input, vs model.ValueSet, m model.FactMetric) (*float64, bool) {
	if m.MetricType != model.MetricRatio {
		return vs.Get(m.MetricKey), true
	}
	if in.Requirements == nil {
		return nil, false
	}
	return recomputeRatio(in.Requirements.Requirements(m.MetricKey), vs), true
}

// recomputeRatio evaluates one ratio from its requirement rows.
func recomputeRatio(reqs []model.RatioRequirement, vs model.ValueSet) *float64 {
	if len(reqs) == 0 {
		return nil
	}
	var num, den float64
	for _, r := range reqs {
		v := vs.Get(r.ItemKey)
		if v == nil {
			if r.Required {
				return nil
			}
			continue
		}
		switch r.Role {
		case model.RoleNumerator, model.RoleAdd:
			num += *v
		case model.RoleSubtract:
			num -= *v
		case model.RoleDenominator:
			den += *v
		}
	}
	if den == 0 {
		return nil
	}
	q := num / den
	return &q
}
