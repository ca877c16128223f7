// Package ratio evaluates named financial ratios against a requirements table.
package ratio

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/dart-report/internal/model"
)

func req(key, ko, item string, role model.Role, required bool, note string) model.RatioRequirement {
	return model.RatioRequirement{RatioKey: key, RatioKo: ko, ItemKey: item, Role: role, Required: required, Note: note}
}

const (
	num = model.RoleNumerator
	den = model.RoleDenominator
	add = model.RoleAdd
	sub = model.RoleSubtract
)

// DefaultRequirements is the ratio requirements table.
var DefaultRequirements = []model.RatioRequirement{
	req("current_ratio", "유동비율", "CURRENT_ASSETS", num, true, "유동자산/유동부채"),
	req("current_ratio", "유동비율", "CURRENT_LIABILITIES", den, true, ""),

	req("quick_ratio", "당좌비율", "CURRENT_ASSETS", num, true, "(유동자산-재고자산)/유동부채"),
	req("quick_ratio", "당좌비율", "INVENTORIES", sub, false, "유동자산에서 차감"),
	req("quick_ratio", "당좌비율", "CURRENT_LIABILITIES", den, true, ""),

	req("cash_ratio", "현금비율", "CASH_EQ", num, true, "현금및현금성자산/유동부채"),
	req("cash_ratio", "현금비율", "CURRENT_LIABILITIES", den, true, ""),

	req("long_term_debt_ratio", "장기부채비율", "NON_CURRENT_LIABILITIES", num, true, "장기부채/총자산"),
	req("long_term_debt_ratio", "장기부채비율", "TOTAL_ASSETS", den, true, ""),

	req("total_debt_ratio", "총부채비율", "TOTAL_LIABILITIES", num, true, "총부채/총자산"),
	req("total_debt_ratio", "총부채비율", "TOTAL_ASSETS", den, true, ""),

	req("interest_coverage", "이자보상비율", "OP_PROFIT", num, true, "영업이익/이자비용"),
	req("interest_coverage", "이자보상비율", "INTEREST_EXP", den, true, ""),

	req("cash_coverage_ocf", "현금보상비율(현금흐름)", "OCF", num, true, "영업현금흐름/이자비용"),
	req("cash_coverage_ocf", "현금보상비율(현금흐름)", "INTEREST_EXP", den, true, ""),

	req("cash_coverage_op_dep", "현금보상비율(영업이익+감가상각)", "OP_PROFIT", num, true, "(영업이익+감가상각비)/이자비용"),
	req("cash_coverage_op_dep", "현금보상비율(영업이익+감가상각)", "DEPRECIATION", add, false, "영업이익에 더함"),
	req("cash_coverage_op_dep", "현금보상비율(영업이익+감가상각)", "INTEREST_EXP", den, true, ""),

	req("asset_turnover", "자산 회전율", "REVENUE", num, true, "매출/총자산"),
	req("asset_turnover", "자산 회전율", "TOTAL_ASSETS", den, true, ""),

	req("inventory_turnover", "재고자산 회전율", "COGS", num, true, "매출원가/재고자산"),
	req("inventory_turnover", "재고자산 회전율", "INVENTORIES", den, true, ""),

	req("ar_turnover", "매출채권 회전율", "REVENUE", num, true, "매출/매출채권"),
	req("ar_turnover", "매출채권 회전율", "AR", den, true, ""),

	req("roe", "ROE", "NET_INCOME", num, true, "순이익/자기자본"),
	req("roe", "ROE", "EQUITY", den, true, ""),

	req("roa", "ROA", "NET_INCOME", num, true, "순이익/총자산"),
	req("roa", "ROA", "TOTAL_ASSETS", den, true, ""),

	req("roc", "ROC", "NOPAT", num, true, "세후영업이익/(장기부채+자기자본)"),
	req("roc", "ROC", "INVESTED_CAPITAL", den, true, ""),

	req("per", "PER", "STOCK_PRICE", num, true, "주가/주당순이익"),
	req("per", "PER", "EPS", den, true, ""),

	req("pbr", "PBR", "STOCK_PRICE", num, true, "주가/주당자기자본"),
	req("pbr", "PBR", "BPS", den, true, ""),

	req("psr", "PSR", "STOCK_PRICE", num, true, "주가/주당매출"),
	req("psr", "PSR", "SPS", den, true, ""),

	req("pcfr", "PCFR", "STOCK_PRICE", num, true, "주가/주당(세후 순이익+감가상각비)"),
	req("pcfr", "PCFR", "CFPS", den, true, ""),

	req("net_margin", "순이익률", "NET_INCOME", num, true, "당기순이익/매출액"),
	req("net_margin", "순이익률", "REVENUE", den, true, ""),

	req("fin_leverage", "재무레버리지", "TOTAL_ASSETS", num, true, "자산총계/자본총계"),
	req("fin_leverage", "재무레버리지", "EQUITY", den, true, ""),
}

// Table is an ordered, validated set of ratio requirements.
type Table struct {
	reqs  []model.RatioRequirement
	order []string
	byKey map[string][]model.RatioRequirement
}

type reqKey struct {
	ratio string
	item  string
	role  model.Role
}

// NewTable validates requirements and indexes them by ratio. Duplicate
// (ratio_key, item_key, role) entries are rejected.
func NewTable(reqs []model.RatioRequirement) (*Table, error) {
	t := &Table{byKey: make(map[string][]model.RatioRequirement)}
	seen := make(map[reqKey]bool)
	for _, r := range reqs {
		if r.RatioKey == "" || r.ItemKey == "" {
			return nil, eris.New("ratio: requirement needs ratio_key and item_key")
		}
		if !r.Role.Valid() {
			return nil, eris.Errorf("ratio: %s/%s has unknown role %q", r.RatioKey, r.ItemKey, r.Role)
		}
		k := reqKey{r.RatioKey, r.ItemKey, r.Role}
		if seen[k] {
			return nil, eris.Errorf("ratio: duplicate requirement %s/%s/%s", r.RatioKey, r.ItemKey, r.Role)
		}
		seen[k] = true
		if _, ok := t.byKey[r.RatioKey]; !ok {
			t.order = append(t.order, r.RatioKey)
		}
		t.byKey[r.RatioKey] = append(t.byKey[r.RatioKey], r)
		t.reqs = append(t.reqs, r)
	}
	return t, nil
}

// Default returns the table built from DefaultRequirements.
func Default() *Table {
	t, err := NewTable(DefaultRequirements)
	if err != nil {
		panic(err)
	}
	return t
}

// Load reads requirements from a YAML file; an empty path yields Default.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ratio: read %s", path)
	}
	var doc struct {
		Requirements []model.RatioRequirement `yaml:"requirements"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "ratio: parse yaml")
	}
	return NewTable(doc.Requirements)
}

// Keys returns ratio keys in table order.
func (t *Table) Keys() []string {
	return append([]string(nil), t.order...)
}

// Has reports whether the table defines ratioKey.
func (t *Table) Has(ratioKey string) bool {
	_, ok := t.byKey[ratioKey]
	return ok
}

// Requirements returns the requirement rows of one ratio.
func (t *Table) Requirements(ratioKey string) []model.RatioRequirement {
	return t.byKey[ratioKey]
}

// Items returns every distinct item key the table reads, in table order.
func (t *Table) Items() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.reqs {
		if !seen[r.ItemKey] {
			seen[r.ItemKey] = true
			out = append(out, r.ItemKey)
		}
	}
	return out
}
