package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sells-group/dart-report/internal/model"
)

// Filter narrows list queries. Zero fields match everything.
type Filter struct {
	CorpCode string `json:"corp_code,omitempty"`
	Year     int    `json:"bsns_year,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// where renders the filter as a WHERE clause over corp_code and yearCol,
// numbering placeholders with ph.
func (f Filter) where(yearCol string, ph func(n int) string) (string, []any) {
	var conds []string
	var args []any
	if f.CorpCode != "" {
		args = append(args, f.CorpCode)
		conds = append(conds, "corp_code = "+ph(len(args)))
	}
	if f.Year != 0 {
		args = append(args, f.Year)
		conds = append(conds, yearCol+" = "+ph(len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (f Filter) limit() string {
	if f.Limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", f.Limit)
}

// Store defines the persistence interface for filings, extracted facts,
// note text, market data and materialized metrics.
type Store interface {
	// Filings
	ListReports(ctx context.Context, filter Filter) ([]model.Report, error)
	UpsertReports(ctx context.Context, reports []model.Report) error

	// Statement cells
	LoadFactRows(ctx context.Context, reportID string) ([]model.FactRow, error)
	InsertFactRows(ctx context.Context, rows []model.FactRow) (int64, error)

	// Notes and business text
	LoadNoteSections(ctx context.Context, reportID string) ([]model.NoteSection, error)
	InsertNoteSections(ctx context.Context, sections []model.NoteSection) error
	LoadNoteChunks(ctx context.Context, reportID string) ([]model.TextChunk, error)
	LoadBizChunks(ctx context.Context, reportID string) ([]model.TextChunk, error)
	InsertNoteChunks(ctx context.Context, chunks []model.TextChunk) error
	ReplaceNoteLinks(ctx context.Context, reportID string, links []model.NoteLink) error
	LoadNoteLinks(ctx context.Context, reportID string) ([]model.NoteLink, error)

	// Market data and peers
	UpsertMarketSnapshots(ctx context.Context, snaps []model.MarketSnapshot) error
	LoadMarketSnapshots(ctx context.Context, filter Filter) ([]model.MarketSnapshot, error)
	UpsertBenchmarkMappings(ctx context.Context, mappings []model.BenchmarkMapping) error
	LoadBenchmarkMappings(ctx context.Context, filter Filter) ([]model.BenchmarkMapping, error)

	// Materialized metrics. ReplaceFactMetrics swaps one (entity, year)
	// atomically.
	ReplaceFactMetrics(ctx context.Context, cy model.CorpYear, metrics []model.FactMetric) error
	ListFactMetrics(ctx context.Context, filter Filter) ([]model.FactMetric, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Column lists shared by both backends. Order matches the *Values helpers.
var (
	reportColumns = []string{
		"report_id", "corp_code", "corp_name", "stock_code", "bsns_year",
		"rcept_no", "rcept_dt", "report_nm",
	}
	factColumns = []string{
		"corp_code", "bsns_year", "report_id", "statement_type", "table_id",
		"row_idx", "col_idx", "ifrs_code", "label_raw", "label_clean",
		"label_norm", "indent_level", "period_end", "fiscal_year", "value",
		"unit_multiplier", "currency", "note_refs_raw", "own_note_nos",
		"line_item_id",
	}
	sectionColumns = []string{"section_id", "report_id", "note_no", "title"}
	chunkColumns   = []string{
		"chunk_id", "report_id", "section_id", "section_type", "section_code",
		"note_no", "chunk_idx", "text",
	}
	linkColumns = []string{
		"link_id", "report_id", "line_item_id", "note_no", "note_section_id",
		"confidence",
	}
	marketColumns = []string{
		"corp_code", "corp_name_kr", "stock_code", "year", "asof_date",
		"stock_price", "shares_outstanding", "price_basis", "corp_role",
	}
	mappingColumns = []string{
		"corp_code", "year", "bench_corp_code", "benchmark_name_kr",
		"bench_stock_code", "bench_rcept_date", "stage",
	}
	metricColumns = []string{
		"corp_code", "bsns_year", "metric_key", "metric_name_ko", "metric_type",
		"value", "value_prev", "yoy_abs", "yoy_pct", "unit",
		"benchmark_corp_code", "benchmark_value", "benchmark_improved",
	}
)

func reportValues(r model.Report) []any {
	return []any{r.ReportID, r.CorpCode, r.CorpName, r.StockCode, r.Year, r.RceptNo, r.RceptDate, r.ReportName}
}

func factValues(f model.FactRow) []any {
	return []any{
		f.CorpCode, f.Year, f.ReportID, string(f.StatementType), f.TableID,
		f.RowIdx, f.ColIdx, f.IFRSCode, f.LabelRaw, f.LabelClean,
		f.LabelNorm, f.IndentLevel, f.PeriodEnd, f.FiscalYear, decimalText(f),
		f.UnitMult, f.Currency, f.NoteRefsRaw, joinInts(f.OwnNoteNos),
		f.LineItemID,
	}
}

func sectionValues(s model.NoteSection) []any {
	return []any{s.SectionID, s.ReportID, s.NoteNo, s.Title}
}

func chunkValues(c model.TextChunk) []any {
	return []any{c.ChunkID, c.ReportID, c.SectionID, c.SectionType, c.SectionCode, c.NoteNo, c.ChunkIdx, c.Text}
}

func linkValues(l model.NoteLink) []any {
	return []any{l.LinkID, l.ReportID, l.LineItemID, l.NoteNo, l.NoteSectionID, l.Confidence}
}

func marketValues(m model.MarketSnapshot) []any {
	return []any{
		m.CorpCode, m.CorpNameKr, m.StockCode, m.Year, m.AsOfDate,
		m.StockPrice, m.SharesOutstanding, m.PriceBasis, string(m.CorpRole),
	}
}

func mappingValues(m model.BenchmarkMapping) []any {
	return []any{
		m.CorpCode, m.Year, m.BenchCorpCode, m.BenchNameKr,
		m.BenchStockCode, m.BenchRceptDate, string(m.Stage),
	}
}

func metricValues(m model.FactMetric) []any {
	return []any{
		m.CorpCode, m.Year, m.MetricKey, m.MetricNameKo, string(m.MetricType),
		m.Value, m.ValuePrev, m.YoYAbs, m.YoYPct, string(m.Unit),
		m.BenchmarkCorpCode, m.BenchmarkValue, m.BenchmarkImproved,
	}
}

// scannable is satisfied by *sql.Row, *sql.Rows and pgx.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanReport(row scannable) (model.Report, error) {
	var r model.Report
	err := row.Scan(&r.ReportID, &r.CorpCode, &r.CorpName, &r.StockCode, &r.Year, &r.RceptNo, &r.RceptDate, &r.ReportName)
	return r, err
}

func scanFact(row scannable) (model.FactRow, error) {
	var (
		f     model.FactRow
		st    string
		value *string
		notes string
	)
	err := row.Scan(
		&f.CorpCode, &f.Year, &f.ReportID, &st, &f.TableID,
		&f.RowIdx, &f.ColIdx, &f.IFRSCode, &f.LabelRaw, &f.LabelClean,
		&f.LabelNorm, &f.IndentLevel, &f.PeriodEnd, &f.FiscalYear, &value,
		&f.UnitMult, &f.Currency, &f.NoteRefsRaw, &notes,
		&f.LineItemID,
	)
	if err != nil {
		return f, err
	}
	f.StatementType = model.Scope(st)
	if value != nil {
		if err := f.Value.Scan(*value); err != nil {
			return f, err
		}
	}
	f.OwnNoteNos, err = splitInts(notes)
	return f, err
}

func scanSection(row scannable) (model.NoteSection, error) {
	var s model.NoteSection
	err := row.Scan(&s.SectionID, &s.ReportID, &s.NoteNo, &s.Title)
	return s, err
}

func scanChunk(row scannable) (model.TextChunk, error) {
	var c model.TextChunk
	err := row.Scan(&c.ChunkID, &c.ReportID, &c.SectionID, &c.SectionType, &c.SectionCode, &c.NoteNo, &c.ChunkIdx, &c.Text)
	return c, err
}

func scanLink(row scannable) (model.NoteLink, error) {
	var l model.NoteLink
	err := row.Scan(&l.LinkID, &l.ReportID, &l.LineItemID, &l.NoteNo, &l.NoteSectionID, &l.Confidence)
	return l, err
}

func scanMarket(row scannable) (model.MarketSnapshot, error) {
	var (
		m    model.MarketSnapshot
		role string
	)
	err := row.Scan(
		&m.CorpCode, &m.CorpNameKr, &m.StockCode, &m.Year, &m.AsOfDate,
		&m.StockPrice, &m.SharesOutstanding, &m.PriceBasis, &role,
	)
	m.CorpRole = model.CorpRole(role)
	return m, err
}

func scanMapping(row scannable) (model.BenchmarkMapping, error) {
	var (
		m     model.BenchmarkMapping
		stage string
	)
	err := row.Scan(&m.CorpCode, &m.Year, &m.BenchCorpCode, &m.BenchNameKr, &m.BenchStockCode, &m.BenchRceptDate, &stage)
	m.Stage = model.BenchmarkStage(stage)
	return m, err
}

func scanMetric(row scannable) (model.FactMetric, error) {
	var (
		m         model.FactMetric
		typ, unit string
	)
	err := row.Scan(
		&m.CorpCode, &m.Year, &m.MetricKey, &m.MetricNameKo, &typ,
		&m.Value, &m.ValuePrev, &m.YoYAbs, &m.YoYPct, &unit,
		&m.BenchmarkCorpCode, &m.BenchmarkValue, &m.BenchmarkImproved,
	)
	m.MetricType = model.MetricType(typ)
	m.Unit = model.Unit(unit)
	return m, err
}

// decimalText keeps cell values exact across both backends.
func decimalText(f model.FactRow) *string {
	if !f.Value.Valid {
		return nil
	}
	s := f.Value.Decimal.String()
	return &s
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ",")
}

func splitInts(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func rowsOf[T any](items []T, values func(T) []any) [][]any {
	out := make([][]any, len(items))
	for i, it := range items {
		out[i] = values(it)
	}
	return out
}
