package model

import (
	"strings"
	"time"
)

// CorpRole distinguishes target snapshots from peer snapshots.
type CorpRole string

// Corp roles.
const (
	RoleTarget    CorpRole = "target"
	RoleBenchmark CorpRole = "benchmark"
)

// MarketSnapshot is one price/share-count observation for an entity and year.
type MarketSnapshot struct {
	CorpCode          string   `json:"corp_code"`
	CorpNameKr        string   `json:"corp_name_kr,omitempty"`
	StockCode         string   `json:"stock_code,omitempty"`
	Year              int      `json:"year"`
	AsOfDate          string   `json:"asof_date"`
	StockPrice        *float64 `json:"stock_price"`
	SharesOutstanding *float64 `json:"shares_outstanding"`
	PriceBasis        string   `json:"price_basis,omitempty"`
	CorpRole          CorpRole `json:"corp_role"`
}

// BenchmarkStage records which stage of the peer ladder resolved a mapping.
type BenchmarkStage string

// Benchmark stages.
const (
	StageUniverse BenchmarkStage = "universe"
	StageRegistry BenchmarkStage = "registry"
	StageSearch   BenchmarkStage = "search"
	StageSeed     BenchmarkStage = "seed"
)

// BenchmarkMapping assigns a peer entity to a target (entity, year).
type BenchmarkMapping struct {
	CorpCode       string         `json:"corp_code"`
	Year           int            `json:"year"`
	BenchCorpCode  string         `json:"bench_corp_code"`
	BenchNameKr    string         `json:"benchmark_name_kr"`
	BenchStockCode string         `json:"bench_stock_code,omitempty"`
	BenchRceptDate string         `json:"bench_rcept_date,omitempty"`
	Stage          BenchmarkStage `json:"stage"`
}

var asOfLayouts = []string{"2006-01-02", "20060102", "2006.01.02", "2006/01/02", time.RFC3339}

// ParseAsOf reads an as-of or receipt date in the layouts DART data uses.
func ParseAsOf(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range asOfLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
