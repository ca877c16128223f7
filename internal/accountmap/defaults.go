package accountmap

import "github.com/sells-group/dart-report/internal/model"

// Alias lists the statement labels that name one canonical key.
type Alias struct {
	Scope  model.Scope `yaml:"scope"`
	StdKey string      `yaml:"std_key"`
	Labels []string    `yaml:"aliases"`
}

// DefaultAliases is the curated K-IFRS label table.
var DefaultAliases = []Alias{
	// Balance sheet.
	{model.ScopeBS, "TOTAL_ASSETS", []string{"자산총계"}},
	{model.ScopeBS, "CURRENT_ASSETS", []string{"유동자산"}},
	{model.ScopeBS, "CASH_EQ", []string{"현금및현금성자산", "현금 및 현금성자산", "현금및예치금"}},
	{model.ScopeBS, "AR", []string{"매출채권"}},
	{model.ScopeBS, "INVENTORIES", []string{"재고자산"}},
	{model.ScopeBS, "NON_CURRENT_ASSETS", []string{"비유동자산"}},
	{model.ScopeBS, "PPE", []string{"유형자산"}},
	{model.ScopeBS, "IA", []string{"무형자산"}},

	{model.ScopeBS, "TOTAL_LIABILITIES", []string{"부채총계"}},
	{model.ScopeBS, "CURRENT_LIABILITIES", []string{"유동부채"}},
	{model.ScopeBS, "AP", []string{"매입채무"}},
	{model.ScopeBS, "SHORT_TERM_DEBT", []string{"단기차입금"}},
	{model.ScopeBS, "NON_CURRENT_LIABILITIES", []string{"비유동부채", "장기부채"}},
	{model.ScopeBS, "LONG_TERM_DEBT", []string{"장기차입금"}},
	{model.ScopeBS, "DEFERRED_TAX_LIAB", []string{"이연법인세부채"}},

	{model.ScopeBS, "EQUITY", []string{"자본총계", "자기자본"}},
	{model.ScopeBS, "PARENT_EQUITY", []string{"지배기업 소유주지분", "지배기업의 소유주에게 귀속되는 자본"}},
	{model.ScopeBS, "CAPITAL_STOCK", []string{"자본금"}},
	{model.ScopeBS, "RETAINED_EARNINGS", []string{"이익잉여금"}},
	{model.ScopeBS, "NON_CONTROLLING_INTEREST", []string{"비지배지분"}},

	// Income statement.
	{model.ScopeISCIS, "REVENUE", []string{"매출액", "영업수익"}},
	{model.ScopeISCIS, "COGS", []string{"매출원가"}},
	{model.ScopeISCIS, "GROSS_PROFIT", []string{"매출총이익"}},
	{model.ScopeISCIS, "OP_PROFIT", []string{"영업이익", "영업이익(손실)"}},
	{model.ScopeISCIS, "INTEREST_EXP", []string{"이자비용", "금융비용"}},
	{model.ScopeISCIS, "PRE_TAX_INCOME", []string{"법인세비용차감전순이익", "법인세비용차감전순이익(손실)"}},
	{model.ScopeISCIS, "TAX_EXP", []string{"법인세비용", "법인세비용(수익)", "법인세수익(비용)"}},
	{model.ScopeISCIS, "NET_INCOME", []string{"당기순이익", "당기순이익(손실)", "당기순이익(손실)(A)"}},
	{model.ScopeISCIS, "SGA_EXPENSES", []string{"판매비와관리비", "판관비"}},

	// Cash flow.
	{model.ScopeCF, "OCF", []string{"영업활동으로 인한 현금흐름", "영업활동현금흐름", "영업활동으로부터의 현금흐름"}},
	{model.ScopeCF, "ICF", []string{"투자활동으로 인한 현금흐름", "투자활동현금흐름"}},
	{model.ScopeCF, "FCF_FIN", []string{"재무활동으로 인한 현금흐름", "재무활동현금흐름"}},
	{model.ScopeCF, "PURCHASE_PPE", []string{"유형자산의 취득"}},
	{model.ScopeCF, "PURCHASE_INTANGIBLES", []string{"무형자산의 취득"}},
	{model.ScopeCF, "PURCHASE_LT_FIN_ASSETS", []string{"장기금융상품의 취득"}},
	{model.ScopeCF, "DISPOSAL_LT_FIN_ASSETS", []string{"장기금융상품의 처분"}},
	{model.ScopeCF, "DEPRECIATION", []string{"감가상각비", "유형자산감가상각비"}},
}
