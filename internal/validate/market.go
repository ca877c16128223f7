package validate

import (
	"fmt"
	"sort"

	"github.com/sells-group/dart-report/internal/model"
)

type snapKey struct {
	corp string
	year int
	role model.CorpRole
}

type mapKey struct {
	corp string
	year int
}

// MarketTables checks market snapshots and benchmark mappings before they
// feed a run. Duplicates, self mappings and multiple peers per target are
// FAIL; missing peer snapshots and bad prices, share counts or dates are
// WARN.
func MarketTables(snaps []model.MarketSnapshot, mappings []model.BenchmarkMapping) *Report {
	rep := &Report{}
	add := func(level Level, corp string, year int, check, format string, args ...any) {
		rep.add(Finding{Level: level, CorpCode: corp, Year: year, Check: check, Message: fmt.Sprintf(format, args...)})
	}

	snapCount := make(map[snapKey]int)
	for _, s := range snaps {
		snapCount[snapKey{s.CorpCode, s.Year, s.CorpRole}]++

		if s.StockPrice == nil || *s.StockPrice <= 0 {
			add(Warn, s.CorpCode, s.Year, "market_price", "%s stock_price %s", s.CorpRole, show(s.StockPrice))
		}
		if s.SharesOutstanding == nil || *s.SharesOutstanding <= 0 {
			add(Warn, s.CorpCode, s.Year, "market_shares", "%s shares_outstanding %s", s.CorpRole, show(s.SharesOutstanding))
		}
		asOf, ok := model.ParseAsOf(s.AsOfDate)
		switch {
		case !ok:
			add(Warn, s.CorpCode, s.Year, "market_asof", "unparseable asof_date %q", s.AsOfDate)
		case asOf.Year() != s.Year && asOf.Year() != s.Year+1:
			add(Warn, s.CorpCode, s.Year, "market_asof", "asof_date %s outside business year %d and its filing year", s.AsOfDate, s.Year)
		}
	}
	for _, k := range sortedSnapKeys(snapCount) {
		if n := snapCount[k]; n > 1 {
			add(Fail, k.corp, k.year, "market_duplicate", "%d snapshots for role %s", n, k.role)
		}
	}

	mapCount := make(map[mapKey]int)
	peers := make(map[mapKey]map[string]bool)
	for _, m := range mappings {
		k := mapKey{m.CorpCode, m.Year}
		mapCount[k]++
		if peers[k] == nil {
			peers[k] = make(map[string]bool)
		}
		peers[k][m.BenchCorpCode] = true

		if m.CorpCode == m.BenchCorpCode {
			add(Fail, m.CorpCode, m.Year, "benchmark_self", "entity is its own benchmark")
		}
		if snapCount[snapKey{m.BenchCorpCode, m.Year, model.RoleBenchmark}] == 0 {
			add(Warn, m.CorpCode, m.Year, "benchmark_market", "no benchmark snapshot for %s", m.BenchCorpCode)
		}
	}
	for _, k := range sortedMapKeys(mapCount) {
		if n := mapCount[k]; n > 1 {
			add(Fail, k.corp, k.year, "benchmark_duplicate", "%d mappings", n)
		}
		if n := len(peers[k]); n > 1 {
			add(Fail, k.corp, k.year, "benchmark_multiple", "%d distinct benchmarks", n)
		}
	}

	if len(rep.Findings) == 0 {
		add(Pass, "", 0, "market", "%d snapshots, %d mappings", len(snaps), len(mappings))
	}
	return rep
}

func sortedSnapKeys(m map[snapKey]int) []snapKey {
	keys := make([]snapKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.corp != b.corp {
			return a.corp < b.corp
		}
		if a.year != b.year {
			return a.year < b.year
		}
		return a.role < b.role
	})
	return keys
}

func sortedMapKeys(m map[mapKey]int) []mapKey {
	keys := make([]mapKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].corp != keys[j].corp {
			return keys[i].corp < keys[j].corp
		}
		return keys[i].year < keys[j].year
	})
	return keys
}
