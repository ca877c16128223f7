package seed

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dart-report/internal/model"
	"github.com/sells-group/dart-report/internal/normalize"
)

// PriceBasis marks snapshots priced at the filing receipt date.
const PriceBasis = "rcept_date"

var companyRequired = []string{"corp_code", "corp_name_kr", "stock_code", "year", "rcept_date"}

// CompanyMeta is the parsed content of a company meta sheet.
type CompanyMeta struct {
	Snapshots []model.MarketSnapshot
	Mappings  []model.BenchmarkMapping
	Skipped   int
}

// MarketWriter is the part of the store company meta is written to.
type MarketWriter interface {
	UpsertMarketSnapshots(ctx context.Context, snaps []model.MarketSnapshot) error
	UpsertBenchmarkMappings(ctx context.Context, mappings []model.BenchmarkMapping) error
}

// ParseCompanyMeta turns company meta rows into target and benchmark
// snapshots plus benchmark mappings. Rows without a usable year are
// skipped; benchmark payloads without a corp code produce neither a
// snapshot nor a mapping. Later rows win on duplicate keys.
func ParseCompanyMeta(recs []Record) (*CompanyMeta, error) {
	if err := requireColumns(recs, companyRequired...); err != nil {
		return nil, err
	}

	type snapKey struct {
		corp string
		year int
		role model.CorpRole
	}
	snaps := make(map[snapKey]model.MarketSnapshot)
	var snapOrder []snapKey
	maps := make(map[model.CorpYear]model.BenchmarkMapping)
	var mapOrder []model.CorpYear

	putSnap := func(s model.MarketSnapshot) {
		k := snapKey{s.CorpCode, s.Year, s.CorpRole}
		if _, ok := snaps[k]; !ok {
			snapOrder = append(snapOrder, k)
		}
		snaps[k] = s
	}

	out := &CompanyMeta{}
	for i, r := range recs {
		year, ok := parseYear(r.Get("year"))
		if !ok {
			out.Skipped++
			zap.L().Debug("seed: company meta row without year", zap.Int("row", i+2))
			continue
		}
		corp := normalize.Code(r.Get("corp_code"), 8)
		if corp == "" {
			out.Skipped++
			continue
		}

		putSnap(model.MarketSnapshot{
			CorpCode:          corp,
			CorpNameKr:        r.Get("corp_name_kr"),
			StockCode:         normalize.Code(r.Get("stock_code"), 6),
			Year:              year,
			AsOfDate:          r.Get("rcept_date"),
			StockPrice:        parseNumber(r.Get("stock_price")),
			SharesOutstanding: parseNumber(r.Get("shares_outstanding")),
			PriceBasis:        PriceBasis,
			CorpRole:          model.RoleTarget,
		})

		bench := normalize.Code(r.Get("bench_corp_code"), 8)
		if bench == "" {
			continue
		}
		putSnap(model.MarketSnapshot{
			CorpCode:          bench,
			CorpNameKr:        r.Get("benchmark_name_kr"),
			StockCode:         normalize.Code(r.Get("bench_stock_code"), 6),
			Year:              year,
			AsOfDate:          r.Get("bench_rcept_date"),
			StockPrice:        parseNumber(r.Get("bench_stock_price")),
			SharesOutstanding: parseNumber(r.Get("bench_shares_outstanding")),
			PriceBasis:        PriceBasis,
			CorpRole:          model.RoleBenchmark,
		})

		cy := model.CorpYear{CorpCode: corp, Year: year}
		if _, ok := maps[cy]; !ok {
			mapOrder = append(mapOrder, cy)
		}
		maps[cy] = model.BenchmarkMapping{
			CorpCode:       corp,
			Year:           year,
			BenchCorpCode:  bench,
			BenchNameKr:    r.Get("benchmark_name_kr"),
			BenchStockCode: normalize.Code(r.Get("bench_stock_code"), 6),
			BenchRceptDate: r.Get("bench_rcept_date"),
			Stage:          model.StageSeed,
		}
	}

	for _, k := range snapOrder {
		out.Snapshots = append(out.Snapshots, snaps[k])
	}
	for _, k := range mapOrder {
		out.Mappings = append(out.Mappings, maps[k])
	}
	return out, nil
}

// ImportCompanyMeta reads the company meta file at path and upserts its
// snapshots and mappings.
func ImportCompanyMeta(ctx context.Context, w MarketWriter, path string) (*CompanyMeta, error) {
	log := zap.L().With(zap.String("component", "seed"), zap.String("path", path))

	recs, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	meta, err := ParseCompanyMeta(recs)
	if err != nil {
		return nil, err
	}
	if err := w.UpsertMarketSnapshots(ctx, meta.Snapshots); err != nil {
		return nil, eris.Wrap(err, "seed: write market snapshots")
	}
	if err := w.UpsertBenchmarkMappings(ctx, meta.Mappings); err != nil {
		return nil, eris.Wrap(err, "seed: write benchmark mappings")
	}

	log.Info("seed: company meta loaded",
		zap.Int("rows", len(recs)),
		zap.Int("snapshots", len(meta.Snapshots)),
		zap.Int("mappings", len(meta.Mappings)),
		zap.Int("skipped", meta.Skipped),
	)
	return meta, nil
}

// parseYear accepts "2024" and the "2024.0" pandas writes for float columns.
func parseYear(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}

// parseNumber reads a price or share count; blanks and junk read as nil.
func parseNumber(s string) *float64 {
	if d, ok := normalize.ParseAmount(s); ok {
		f, _ := d.Float64()
		return &f
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return &f
	}
	return nil
}
