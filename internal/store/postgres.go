package store

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dart-report/internal/db"
	"github.com/sells-group/dart-report/internal/model"
	"github.com/sells-group/dart-report/internal/normalize"
)

// PostgresStore implements Store on a pgx pool. Bulk writes go through COPY.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres connects to databaseURL and returns a store owning the pool.
func NewPostgres(ctx context.Context, databaseURL string, maxConns int32) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, databaseURL, maxConns)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Close leaves the pool open.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS reports (
	report_id  TEXT PRIMARY KEY,
	corp_code  TEXT NOT NULL,
	corp_name  TEXT NOT NULL DEFAULT '',
	stock_code TEXT NOT NULL DEFAULT '',
	bsns_year  INTEGER NOT NULL,
	rcept_no   TEXT NOT NULL,
	rcept_dt   TEXT NOT NULL DEFAULT '',
	report_nm  TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS fs_facts (
	corp_code       TEXT NOT NULL,
	bsns_year       INTEGER NOT NULL,
	report_id       TEXT NOT NULL,
	statement_type  TEXT NOT NULL,
	table_id        TEXT NOT NULL,
	row_idx         INTEGER NOT NULL,
	col_idx         INTEGER NOT NULL,
	ifrs_code       TEXT NOT NULL DEFAULT '',
	label_raw       TEXT NOT NULL DEFAULT '',
	label_clean     TEXT NOT NULL DEFAULT '',
	label_norm      TEXT NOT NULL DEFAULT '',
	indent_level    INTEGER NOT NULL DEFAULT 0,
	period_end      TEXT NOT NULL DEFAULT '',
	fiscal_year     INTEGER NOT NULL,
	value           TEXT,
	unit_multiplier BIGINT NOT NULL DEFAULT 1,
	currency        TEXT NOT NULL DEFAULT '',
	note_refs_raw   TEXT NOT NULL DEFAULT '',
	own_note_nos    TEXT NOT NULL DEFAULT '',
	line_item_id    TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (report_id, table_id, row_idx, col_idx)
);

CREATE TABLE IF NOT EXISTS note_sections (
	section_id TEXT PRIMARY KEY,
	report_id  TEXT NOT NULL,
	note_no    INTEGER NOT NULL,
	title      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS text_chunks (
	chunk_id     TEXT PRIMARY KEY,
	report_id    TEXT NOT NULL,
	section_id   TEXT NOT NULL DEFAULT '',
	section_type TEXT NOT NULL,
	section_code TEXT NOT NULL DEFAULT '',
	note_no      INTEGER NOT NULL DEFAULT 0,
	chunk_idx    INTEGER NOT NULL,
	text         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS note_links (
	link_id         TEXT PRIMARY KEY,
	report_id       TEXT NOT NULL,
	line_item_id    TEXT NOT NULL,
	note_no         INTEGER NOT NULL,
	note_section_id TEXT NOT NULL DEFAULT '',
	confidence      DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS market_data (
	corp_code          TEXT NOT NULL,
	corp_name_kr       TEXT NOT NULL DEFAULT '',
	stock_code         TEXT NOT NULL DEFAULT '',
	year               INTEGER NOT NULL,
	asof_date          TEXT NOT NULL DEFAULT '',
	stock_price        DOUBLE PRECISION,
	shares_outstanding DOUBLE PRECISION,
	price_basis        TEXT NOT NULL DEFAULT '',
	corp_role          TEXT NOT NULL,
	PRIMARY KEY (corp_code, year, corp_role)
);

CREATE TABLE IF NOT EXISTS benchmark_map (
	corp_code         TEXT NOT NULL,
	year              INTEGER NOT NULL,
	bench_corp_code   TEXT NOT NULL,
	benchmark_name_kr TEXT NOT NULL DEFAULT '',
	bench_stock_code  TEXT NOT NULL DEFAULT '',
	bench_rcept_date  TEXT NOT NULL DEFAULT '',
	stage             TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (corp_code, year)
);

CREATE TABLE IF NOT EXISTS fact_metrics (
	corp_code           TEXT NOT NULL,
	bsns_year           INTEGER NOT NULL,
	metric_key          TEXT NOT NULL,
	metric_name_ko      TEXT NOT NULL DEFAULT '',
	metric_type         TEXT NOT NULL,
	value               DOUBLE PRECISION,
	value_prev          DOUBLE PRECISION,
	yoy_abs             DOUBLE PRECISION,
	yoy_pct             DOUBLE PRECISION,
	unit                TEXT NOT NULL,
	benchmark_corp_code TEXT NOT NULL DEFAULT '',
	benchmark_value     DOUBLE PRECISION,
	benchmark_improved  BOOLEAN,
	PRIMARY KEY (corp_code, bsns_year, metric_key)
);

CREATE INDEX IF NOT EXISTS idx_reports_corp_year ON reports(corp_code, bsns_year);
CREATE INDEX IF NOT EXISTS idx_note_sections_report ON note_sections(report_id);
CREATE INDEX IF NOT EXISTS idx_text_chunks_report ON text_chunks(report_id, section_type);
CREATE INDEX IF NOT EXISTS idx_note_links_report ON note_links(report_id);
`

// Ping verifies the connection when the pool supports it.
func (s *PostgresStore) Ping(ctx context.Context) error {
	p, ok := s.pool.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	return eris.Wrap(p.Ping(ctx), "postgres: ping")
}

// Migrate creates the schema. It is safe to run repeatedly.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool if the store opened it.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func pgPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

func (s *PostgresStore) ListReports(ctx context.Context, filter Filter) ([]model.Report, error) {
	where, args := filter.where("bsns_year", pgPlaceholder)
	q := selectSQL("reports", reportColumns) + where + " ORDER BY corp_code, bsns_year, rcept_dt DESC, rcept_no DESC" + filter.limit()
	return pgQuery(ctx, s.pool, "list reports", q, args, scanReport)
}

func (s *PostgresStore) UpsertReports(ctx context.Context, reports []model.Report) error {
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "reports",
		Columns:      reportColumns,
		ConflictKeys: []string{"report_id"},
	}, rowsOf(reports, reportValues))
	return eris.Wrap(err, "postgres: upsert reports")
}

func (s *PostgresStore) LoadFactRows(ctx context.Context, reportID string) ([]model.FactRow, error) {
	q := selectSQL("fs_facts", factColumns) + " WHERE report_id = $1 ORDER BY table_id, row_idx, col_idx"
	return pgQuery(ctx, s.pool, "load fact rows", q, []any{reportID}, scanFact)
}

// InsertFactRows upserts cells by (report, table, row, col) and fills any
// blank label_norm with the SQL twin of normalize.Label.
func (s *PostgresStore) InsertFactRows(ctx context.Context, rows []model.FactRow) (int64, error) {
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "fs_facts",
		Columns:      factColumns,
		ConflictKeys: []string{"report_id", "table_id", "row_idx", "col_idx"},
	}, rowsOf(rows, factValues))
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert fact rows")
	}
	if n == 0 {
		return 0, nil
	}
	if _, err := s.pool.Exec(ctx, fillLabelNormSQL, reportIDs(rows)); err != nil {
		return n, eris.Wrap(err, "postgres: fill label_norm")
	}
	return n, nil
}

var fillLabelNormSQL = "UPDATE fs_facts SET label_norm = " + normalize.LabelSQL("label_clean") +
	" WHERE report_id = ANY($1) AND label_norm = ''"

func reportIDs(rows []model.FactRow) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range rows {
		if !seen[r.ReportID] {
			seen[r.ReportID] = true
			out = append(out, r.ReportID)
		}
	}
	return out
}

func (s *PostgresStore) LoadNoteSections(ctx context.Context, reportID string) ([]model.NoteSection, error) {
	q := selectSQL("note_sections", sectionColumns) + " WHERE report_id = $1 ORDER BY note_no"
	return pgQuery(ctx, s.pool, "load note sections", q, []any{reportID}, scanSection)
}

func (s *PostgresStore) InsertNoteSections(ctx context.Context, sections []model.NoteSection) error {
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "note_sections",
		Columns:      sectionColumns,
		ConflictKeys: []string{"section_id"},
	}, rowsOf(sections, sectionValues))
	return eris.Wrap(err, "postgres: insert note sections")
}

func (s *PostgresStore) LoadNoteChunks(ctx context.Context, reportID string) ([]model.TextChunk, error) {
	return s.loadChunks(ctx, reportID, model.SectionNotes)
}

func (s *PostgresStore) LoadBizChunks(ctx context.Context, reportID string) ([]model.TextChunk, error) {
	return s.loadChunks(ctx, reportID, model.SectionBiz)
}

func (s *PostgresStore) loadChunks(ctx context.Context, reportID, sectionType string) ([]model.TextChunk, error) {
	q := selectSQL("text_chunks", chunkColumns) + " WHERE report_id = $1 AND section_type = $2 ORDER BY note_no, section_code, chunk_idx"
	return pgQuery(ctx, s.pool, "load "+sectionType+" chunks", q, []any{reportID, sectionType}, scanChunk)
}

func (s *PostgresStore) InsertNoteChunks(ctx context.Context, chunks []model.TextChunk) error {
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "text_chunks",
		Columns:      chunkColumns,
		ConflictKeys: []string{"chunk_id"},
	}, rowsOf(chunks, chunkValues))
	return eris.Wrap(err, "postgres: insert note chunks")
}

func (s *PostgresStore) ReplaceNoteLinks(ctx context.Context, reportID string, links []model.NoteLink) error {
	_, _, err := db.ReplaceScope(ctx, s.pool, "note_links",
		db.Scope{Columns: []string{"report_id"}, Values: []any{reportID}},
		linkColumns, rowsOf(links, linkValues))
	return eris.Wrap(err, "postgres: replace note links")
}

func (s *PostgresStore) LoadNoteLinks(ctx context.Context, reportID string) ([]model.NoteLink, error) {
	q := selectSQL("note_links", linkColumns) + " WHERE report_id = $1 ORDER BY confidence DESC, note_no"
	return pgQuery(ctx, s.pool, "load note links", q, []any{reportID}, scanLink)
}

func (s *PostgresStore) UpsertMarketSnapshots(ctx context.Context, snaps []model.MarketSnapshot) error {
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "market_data",
		Columns:      marketColumns,
		ConflictKeys: []string{"corp_code", "year", "corp_role"},
	}, rowsOf(snaps, marketValues))
	return eris.Wrap(err, "postgres: upsert market snapshots")
}

func (s *PostgresStore) LoadMarketSnapshots(ctx context.Context, filter Filter) ([]model.MarketSnapshot, error) {
	where, args := filter.where("year", pgPlaceholder)
	q := selectSQL("market_data", marketColumns) + where + " ORDER BY corp_code, year, corp_role" + filter.limit()
	return pgQuery(ctx, s.pool, "load market snapshots", q, args, scanMarket)
}

func (s *PostgresStore) UpsertBenchmarkMappings(ctx context.Context, mappings []model.BenchmarkMapping) error {
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "benchmark_map",
		Columns:      mappingColumns,
		ConflictKeys: []string{"corp_code", "year"},
	}, rowsOf(mappings, mappingValues))
	return eris.Wrap(err, "postgres: upsert benchmark mappings")
}

func (s *PostgresStore) LoadBenchmarkMappings(ctx context.Context, filter Filter) ([]model.BenchmarkMapping, error) {
	where, args := filter.where("year", pgPlaceholder)
	q := selectSQL("benchmark_map", mappingColumns) + where + " ORDER BY corp_code, year" + filter.limit()
	return pgQuery(ctx, s.pool, "load benchmark mappings", q, args, scanMapping)
}

func (s *PostgresStore) ReplaceFactMetrics(ctx context.Context, cy model.CorpYear, metrics []model.FactMetric) error {
	for _, m := range metrics {
		if m.CorpCode != cy.CorpCode || m.Year != cy.Year {
			return eris.Errorf("postgres: fact metric %s belongs to %s/%d, not %s", m.MetricKey, m.CorpCode, m.Year, cy)
		}
	}
	_, _, err := db.ReplaceScope(ctx, s.pool, "fact_metrics",
		db.Scope{Columns: []string{"corp_code", "bsns_year"}, Values: []any{cy.CorpCode, cy.Year}},
		metricColumns, rowsOf(metrics, metricValues))
	return eris.Wrapf(err, "postgres: replace fact metrics %s", cy)
}

func (s *PostgresStore) ListFactMetrics(ctx context.Context, filter Filter) ([]model.FactMetric, error) {
	where, args := filter.where("bsns_year", pgPlaceholder)
	q := selectSQL("fact_metrics", metricColumns) + where + " ORDER BY corp_code, bsns_year, metric_key" + filter.limit()
	return pgQuery(ctx, s.pool, "list fact metrics", q, args, scanMetric)
}

func pgQuery[T any](ctx context.Context, pool db.Pool, what, q string, args []any, scan func(scannable) (T, error)) ([]T, error) {
	rows, err := pool.Query(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: %s", what)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: %s: scan", what)
		}
		out = append(out, v)
	}
	return out, eris.Wrapf(rows.Err(), "postgres: %s: iterate", what)
}

