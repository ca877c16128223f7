package metrics

import (
	"math"

	"go.uber.org/zap"

	"github.com/sells-group/dart-report/internal/model"
)

// Side is one entity's inputs to materialization: its merged value set and
// its evaluated ratios.
type Side struct {
	CorpCode string
	Values   model.ValueSet
	Ratios   map[string]model.RatioResult
}

// Value returns the value of a catalog metric on this side.
func (s *Side) Value(e model.CatalogEntry) *float64 {
	if s == nil {
		return nil
	}
	if e.MetricType == model.MetricRatio {
		r, ok := s.Ratios[e.MetricKey]
		if !ok {
			return nil
		}
		return r.Value
	}
	return s.Values.Get(e.MetricKey)
}

// Materialize builds one fact metric per requested key known to the
// catalog. prior supplies value_prev; bench, when non-nil, supplies the
// benchmark columns.
func Materialize(cy model.CorpYear, keys []string, current, prior *Side, bench *Side, cat *Catalog) []model.FactMetric {
	log := zap.L().With(zap.String("component", "metrics"), zap.String("scope", cy.String()))

	out := make([]model.FactMetric, 0, len(keys))
	for _, key := range keys {
		e, ok := cat.Lookup(key)
		if !ok {
			log.Warn("metric not in catalog", zap.String("metric_key", key))
			continue
		}
		fm := model.FactMetric{
			CorpCode:     cy.CorpCode,
			Year:         cy.Year,
			MetricKey:    key,
			MetricNameKo: e.NameKo,
			MetricType:   e.MetricType,
			Unit:         e.Unit,
			Value:        current.Value(e),
			ValuePrev:    prior.Value(e),
		}
		fm.YoYAbs, fm.YoYPct = YoY(fm.Value, fm.ValuePrev)
		if bench != nil {
			fm.BenchmarkCorpCode = bench.CorpCode
			fm.BenchmarkValue = bench.Value(e)
			fm.BenchmarkImproved = Improved(e.Polarity, fm.Value, fm.BenchmarkValue)
		}
		out = append(out, fm)
	}
	log.Debug("materialized", zap.Int("requested", len(keys)), zap.Int("rows", len(out)))
	return out
}

// YoY returns value-prev and (value-prev)/|prev|. The percentage is a raw
// fraction and is nil when prev is nil or zero.
func YoY(value, prev *float64) (abs, pct *float64) {
	if value == nil || prev == nil {
		return nil, nil
	}
	d := *value - *prev
	abs = &d
	if *prev != 0 {
		pct = model.Float(d / math.Abs(*prev))
	}
	return abs, pct
}

// Improved compares value against bench under the metric's polarity.
func Improved(p model.Polarity, value, bench *float64) *bool {
	if value == nil || bench == nil {
		return nil
	}
	var b bool
	switch p {
	case model.PolarityHigherBetter:
		b = *value >= *bench
	case model.PolarityLowerBetter:
		b = *value <= *bench
	default:
		return nil
	}
	return &b
}
