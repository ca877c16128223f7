// Package metrics materializes fact metrics with year-over-year deltas and
// benchmark verdicts.
package metrics

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/dart-report/internal/model"
)

const (
	higher  = model.PolarityHigherBetter
	lower   = model.PolarityLowerBetter
	depends = model.PolarityDepends
)

func raw(key, ko string, p model.Polarity) model.CatalogEntry {
	return model.CatalogEntry{MetricKey: key, NameKo: ko, MetricType: model.MetricRaw, Unit: model.UnitKRW, Polarity: p}
}

func ratio(key, ko string, u model.Unit, p model.Polarity) model.CatalogEntry {
	return model.CatalogEntry{MetricKey: key, NameKo: ko, MetricType: model.MetricRatio, Unit: u, Polarity: p}
}

func derived(key, ko string, u model.Unit, p model.Polarity) model.CatalogEntry {
	return model.CatalogEntry{MetricKey: key, NameKo: ko, MetricType: model.MetricDerived, Unit: u, Polarity: p}
}

// DefaultEntries is the metric catalog.
var DefaultEntries = []model.CatalogEntry{
	raw("TOTAL_ASSETS", "자산총계", higher),
	raw("CURRENT_ASSETS", "유동자산", higher),
	raw("CASH_EQ", "현금및현금성자산", higher),
	raw("AR", "매출채권", depends),
	raw("INVENTORIES", "재고자산", depends),
	raw("NON_CURRENT_ASSETS", "비유동자산", higher),
	raw("PPE", "유형자산", higher),
	raw("IA", "무형자산", depends),
	raw("TOTAL_LIABILITIES", "부채총계", lower),
	raw("CURRENT_LIABILITIES", "유동부채", lower),
	raw("NON_CURRENT_LIABILITIES", "비유동부채", lower),
	raw("AP", "매입채무", depends),
	raw("SHORT_TERM_DEBT", "단기차입금", lower),
	raw("LONG_TERM_DEBT", "장기차입금", lower),
	raw("DEFERRED_TAX_LIAB", "이연법인세부채", lower),
	raw("EQUITY", "자본총계", higher),
	raw("PARENT_EQUITY", "지배기업 소유주지분", higher),
	raw("RETAINED_EARNINGS", "이익잉여금", higher),
	raw("NON_CONTROLLING_INTEREST", "비지배지분", higher),
	raw("CAPITAL_STOCK", "자본금", higher),
	raw("REVENUE", "매출액", higher),
	raw("COGS", "매출원가", lower),
	raw("GROSS_PROFIT", "매출총이익", higher),
	raw("SGA_EXPENSES", "판매비와관리비", lower),
	raw("OP_PROFIT", "영업이익", higher),
	raw("INTEREST_EXP", "이자비용", lower),
	raw("PRE_TAX_INCOME", "법인세비용차감전순이익", higher),
	raw("TAX_EXP", "법인세비용", lower),
	raw("NET_INCOME", "당기순이익", higher),
	raw("DEPRECIATION", "감가상각비", depends),
	raw("OCF", "영업활동현금흐름", higher),
	raw("ICF", "투자활동현금흐름", depends),
	raw("FCF_FIN", "재무활동현금흐름", depends),
	raw("PURCHASE_PPE", "유형자산의 취득", depends),
	raw("PURCHASE_INTANGIBLES", "무형자산의 취득", depends),
	raw("PURCHASE_LT_FIN_ASSETS", "장기금융상품의 취득", depends),
	raw("DISPOSAL_LT_FIN_ASSETS", "장기금융상품의 처분", higher),

	ratio("current_ratio", "유동비율", model.UnitRatio, higher),
	ratio("quick_ratio", "당좌비율", model.UnitRatio, higher),
	ratio("cash_ratio", "현금비율", model.UnitRatio, higher),
	ratio("long_term_debt_ratio", "장기부채비율", model.UnitRatio, lower),
	ratio("total_debt_ratio", "총부채비율", model.UnitRatio, lower),
	ratio("interest_coverage", "이자보상비율", model.UnitTimes, higher),
	ratio("cash_coverage_ocf", "현금보상비율(현금흐름)", model.UnitTimes, higher),
	ratio("cash_coverage_op_dep", "현금보상비율(영업이익+감가상각)", model.UnitTimes, higher),
	ratio("asset_turnover", "자산 회전율", model.UnitTimes, higher),
	ratio("inventory_turnover", "재고자산 회전율", model.UnitTimes, higher),
	ratio("ar_turnover", "매출채권 회전율", model.UnitTimes, higher),
	ratio("roe", "ROE", model.UnitRatio, higher),
	ratio("roa", "ROA", model.UnitRatio, higher),
	ratio("roc", "ROC", model.UnitRatio, higher),
	ratio("per", "PER", model.UnitTimes, depends),
	ratio("pbr", "PBR", model.UnitTimes, depends),
	ratio("psr", "PSR", model.UnitTimes, depends),
	ratio("pcfr", "PCFR", model.UnitTimes, depends),
	ratio("net_margin", "순이익률", model.UnitRatio, higher),
	ratio("fin_leverage", "재무레버리지", model.UnitTimes, depends),

	derived("LONG_TERM_DEBT_RESOLVED", "장기부채", model.UnitKRW, lower),
	derived("TAX_RATE", "유효세율", model.UnitRatio, depends),
	derived("NOPAT", "세후영업이익", model.UnitKRW, higher),
	derived("INVESTED_CAPITAL", "투하자본", model.UnitKRW, depends),
	derived("EPS", "주당순이익", model.UnitKRWPerShare, higher),
	derived("BPS", "주당순자산", model.UnitKRWPerShare, higher),
	derived("SPS", "주당매출액", model.UnitKRWPerShare, higher),
	derived("CFPS", "주당현금흐름", model.UnitKRWPerShare, higher),

	{MetricKey: "STOCK_PRICE", NameKo: "기말 주가", MetricType: model.MetricMarket, Unit: model.UnitKRWPerShare, Polarity: higher},
	{MetricKey: "SHARES_OUTSTANDING", NameKo: "발행주식수", MetricType: model.MetricMarket, Unit: model.UnitShares, Polarity: depends},
}

// Catalog is an ordered, keyed metric catalog.
type Catalog struct {
	entries []model.CatalogEntry
	byKey   map[string]model.CatalogEntry
}

// NewCatalog indexes entries, rejecting blank and duplicate keys and
// unknown units.
func NewCatalog(entries []model.CatalogEntry) (*Catalog, error) {
	c := &Catalog{byKey: make(map[string]model.CatalogEntry, len(entries))}
	for _, e := range entries {
		if e.MetricKey == "" {
			return nil, eris.New("metrics: catalog entry without metric_key")
		}
		if _, dup := c.byKey[e.MetricKey]; dup {
			return nil, eris.Errorf("metrics: duplicate catalog entry %s", e.MetricKey)
		}
		if !e.Unit.Known() {
			return nil, eris.Errorf("metrics: catalog entry %s has unknown unit %q", e.MetricKey, e.Unit)
		}
		c.byKey[e.MetricKey] = e
		c.entries = append(c.entries, e)
	}
	return c, nil
}

// DefaultCatalog returns the catalog built from DefaultEntries.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultEntries)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the entry for key.
func (c *Catalog) Lookup(key string) (model.CatalogEntry, bool) {
	e, ok := c.byKey[key]
	return e, ok
}

// Entries returns the catalog in declaration order.
func (c *Catalog) Entries() []model.CatalogEntry {
	return append([]model.CatalogEntry(nil), c.entries...)
}

// RawKeys returns the keys of raw metrics among keys.
func (c *Catalog) RawKeys(keys []string) []string {
	var out []string
	for _, k := range keys {
		if e, ok := c.byKey[k]; ok && e.MetricType == model.MetricRaw {
			out = append(out, k)
		}
	}
	return out
}
