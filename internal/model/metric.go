package model

// MetricType is the family a catalog metric belongs to.
type MetricType string

// Metric types.
const (
	MetricRaw     MetricType = "raw"
	MetricRatio   MetricType = "ratio"
	MetricDerived MetricType = "derived"
	MetricMarket  MetricType = "market"
)

// Unit is the presentation unit of a metric.
type Unit string

// Units.
const (
	UnitKRW         Unit = "KRW"
	UnitRatio       Unit = "RATIO"
	UnitTimes       Unit = "TIMES"
	UnitKRWPerShare Unit = "KRW_PER_SHARE"
	UnitShares      Unit = "SHARES"
)

// Known reports whether u is one of the declared units.
func (u Unit) Known() bool {
	switch u {
	case UnitKRW, UnitRatio, UnitTimes, UnitKRWPerShare, UnitShares:
		return true
	}
	return false
}

// Polarity says which direction of a metric counts as better.
type Polarity int

// Polarities. PolarityDepends yields no benchmark verdict.
const (
	PolarityDepends Polarity = iota
	PolarityHigherBetter
	PolarityLowerBetter
)

func (p Polarity) String() string {
	switch p {
	case PolarityHigherBetter:
		return "higher_is_better"
	case PolarityLowerBetter:
		return "lower_is_better"
	}
	return "depends"
}

// CatalogEntry describes one materializable metric.
type CatalogEntry struct {
	MetricKey  string     `json:"metric_key"`
	NameKo     string     `json:"metric_name_ko"`
	MetricType MetricType `json:"metric_type"`
	Unit       Unit       `json:"unit"`
	Polarity   Polarity   `json:"polarity"`
}

// FactMetric is the terminal, report-consumable row for one metric of one
// (entity, year).
type FactMetric struct {
	CorpCode          string     `json:"corp_code"`
	Year              int        `json:"bsns_year"`
	MetricKey         string     `json:"metric_key"`
	MetricNameKo      string     `json:"metric_name_ko"`
	MetricType        MetricType `json:"metric_type"`
	Value             *float64   `json:"value"`
	ValuePrev         *float64   `json:"value_prev"`
	YoYAbs            *float64   `json:"yoy_abs"`
	YoYPct            *float64   `json:"yoy_pct"`
	Unit              Unit       `json:"unit"`
	BenchmarkCorpCode string     `json:"benchmark_corp_code,omitempty"`
	BenchmarkValue    *float64   `json:"benchmark_value"`
	BenchmarkImproved *bool      `json:"benchmark_improved"`
}
