package model

// Canonical keys the engine refers to by name.
const (
	KeyTotalAssets           = "TOTAL_ASSETS"
	KeyCurrentAssets         = "CURRENT_ASSETS"
	KeyCashEq                = "CASH_EQ"
	KeyInventories           = "INVENTORIES"
	KeyTotalLiabilities      = "TOTAL_LIABILITIES"
	KeyCurrentLiabilities    = "CURRENT_LIABILITIES"
	KeyNonCurrentLiabilities = "NON_CURRENT_LIABILITIES"
	KeyLongTermDebt          = "LONG_TERM_DEBT"
	KeyEquity                = "EQUITY"
	KeyRevenue               = "REVENUE"
	KeyOpProfit              = "OP_PROFIT"
	KeyPreTaxIncome          = "PRE_TAX_INCOME"
	KeyTaxExp                = "TAX_EXP"
	KeyNetIncome             = "NET_INCOME"
	KeyDepreciation          = "DEPRECIATION"

	KeyStockPrice        = "STOCK_PRICE"
	KeySharesOutstanding = "SHARES_OUTSTANDING"

	KeyLongTermDebtResolved = "LONG_TERM_DEBT_RESOLVED"
	KeyTaxRate              = "TAX_RATE"
	KeyNOPAT                = "NOPAT"
	KeyInvestedCapital      = "INVESTED_CAPITAL"
	KeyEPS                  = "EPS"
	KeyBPS                  = "BPS"
	KeySPS                  = "SPS"
	KeyCFPS                 = "CFPS"
)

// MarketKeys are resolved from market snapshots, never from statements.
var MarketKeys = []string{KeyStockPrice, KeySharesOutstanding}

// DerivedKeys are computed by the derivation engine.
var DerivedKeys = []string{
	KeyLongTermDebtResolved, KeyTaxRate, KeyNOPAT, KeyInvestedCapital,
	KeyEPS, KeyBPS, KeySPS, KeyCFPS,
}

// IsMarketKey reports whether key comes from market data.
func IsMarketKey(key string) bool {
	return key == KeyStockPrice || key == KeySharesOutstanding
}

// IsDerivedKey reports whether key is produced by derivation.
func IsDerivedKey(key string) bool {
	for _, k := range DerivedKeys {
		if k == key {
			return true
		}
	}
	return false
}
