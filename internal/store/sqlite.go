package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/dart-report/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// sqlitePragmas are applied by the driver to every pooled connection.
var sqlitePragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

// sqliteDSN appends the connection pragmas to a database path.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	params := make([]string, len(sqlitePragmas))
	for i, p := range sqlitePragmas {
		params[i] = "_pragma=" + p
	}
	return path + sep + strings.Join(params, "&")
}

// NewSQLite opens a SQLite database at the given path in WAL mode. Every
// connection waits up to five seconds on a locked database.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	if err := db.Ping(); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "sqlite: ping")
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS reports (
	report_id  TEXT PRIMARY KEY,
	corp_code  TEXT NOT NULL,
	corp_name  TEXT NOT NULL DEFAULT '',
	stock_code TEXT NOT NULL DEFAULT '',
	bsns_year  INTEGER NOT NULL,
	rcept_no   TEXT NOT NULL,
	rcept_dt   TEXT NOT NULL DEFAULT '',
	report_nm  TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
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
	unit_multiplier INTEGER NOT NULL DEFAULT 1,
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
	confidence      REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS market_data (
	corp_code          TEXT NOT NULL,
	corp_name_kr       TEXT NOT NULL DEFAULT '',
	stock_code         TEXT NOT NULL DEFAULT '',
	year               INTEGER NOT NULL,
	asof_date          TEXT NOT NULL DEFAULT '',
	stock_price        REAL,
	shares_outstanding REAL,
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
	value               REAL,
	value_prev          REAL,
	yoy_abs             REAL,
	yoy_pct             REAL,
	unit                TEXT NOT NULL,
	benchmark_corp_code TEXT NOT NULL DEFAULT '',
	benchmark_value     REAL,
	benchmark_improved  INTEGER,
	PRIMARY KEY (corp_code, bsns_year, metric_key)
);

CREATE INDEX IF NOT EXISTS idx_reports_corp_year ON reports(corp_code, bsns_year);
CREATE INDEX IF NOT EXISTS idx_note_sections_report ON note_sections(report_id);
CREATE INDEX IF NOT EXISTS idx_text_chunks_report ON text_chunks(report_id, section_type);
CREATE INDEX IF NOT EXISTS idx_note_links_report ON note_links(report_id);
`

// Migrate creates the schema. It is safe to run repeatedly.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func sqlitePlaceholder(int) string { return "?" }

func (s *SQLiteStore) ListReports(ctx context.Context, filter Filter) ([]model.Report, error) {
	where, args := filter.where("bsns_year", sqlitePlaceholder)
	q := selectSQL("reports", reportColumns) + where + " ORDER BY corp_code, bsns_year, rcept_dt DESC, rcept_no DESC" + filter.limit()
	return sqliteQuery(ctx, s.db, "list reports", q, args, scanReport)
}

func (s *SQLiteStore) UpsertReports(ctx context.Context, reports []model.Report) error {
	_, err := s.upsert(ctx, "reports", reportColumns, []string{"report_id"}, rowsOf(reports, reportValues))
	return err
}

func (s *SQLiteStore) LoadFactRows(ctx context.Context, reportID string) ([]model.FactRow, error) {
	q := selectSQL("fs_facts", factColumns) + " WHERE report_id = ? ORDER BY table_id, row_idx, col_idx"
	return sqliteQuery(ctx, s.db, "load fact rows", q, []any{reportID}, scanFact)
}

func (s *SQLiteStore) InsertFactRows(ctx context.Context, rows []model.FactRow) (int64, error) {
	return s.upsert(ctx, "fs_facts", factColumns,
		[]string{"report_id", "table_id", "row_idx", "col_idx"}, rowsOf(rows, factValues))
}

func (s *SQLiteStore) LoadNoteSections(ctx context.Context, reportID string) ([]model.NoteSection, error) {
	q := selectSQL("note_sections", sectionColumns) + " WHERE report_id = ? ORDER BY note_no"
	return sqliteQuery(ctx, s.db, "load note sections", q, []any{reportID}, scanSection)
}

func (s *SQLiteStore) InsertNoteSections(ctx context.Context, sections []model.NoteSection) error {
	_, err := s.upsert(ctx, "note_sections", sectionColumns, []string{"section_id"}, rowsOf(sections, sectionValues))
	return err
}

func (s *SQLiteStore) LoadNoteChunks(ctx context.Context, reportID string) ([]model.TextChunk, error) {
	return s.loadChunks(ctx, reportID, model.SectionNotes)
}

func (s *SQLiteStore) LoadBizChunks(ctx context.Context, reportID string) ([]model.TextChunk, error) {
	return s.loadChunks(ctx, reportID, model.SectionBiz)
}

func (s *SQLiteStore) loadChunks(ctx context.Context, reportID, sectionType string) ([]model.TextChunk, error) {
	q := selectSQL("text_chunks", chunkColumns) + " WHERE report_id = ? AND section_type = ? ORDER BY note_no, section_code, chunk_idx"
	return sqliteQuery(ctx, s.db, "load "+sectionType+" chunks", q, []any{reportID, sectionType}, scanChunk)
}

func (s *SQLiteStore) InsertNoteChunks(ctx context.Context, chunks []model.TextChunk) error {
	_, err := s.upsert(ctx, "text_chunks", chunkColumns, []string{"chunk_id"}, rowsOf(chunks, chunkValues))
	return err
}

func (s *SQLiteStore) ReplaceNoteLinks(ctx context.Context, reportID string, links []model.NoteLink) error {
	return s.replace(ctx, "note_links", "report_id = ?", []any{reportID}, linkColumns, rowsOf(links, linkValues))
}

func (s *SQLiteStore) LoadNoteLinks(ctx context.Context, reportID string) ([]model.NoteLink, error) {
	q := selectSQL("note_links", linkColumns) + " WHERE report_id = ? ORDER BY confidence DESC, note_no"
	return sqliteQuery(ctx, s.db, "load note links", q, []any{reportID}, scanLink)
}

func (s *SQLiteStore) UpsertMarketSnapshots(ctx context.Context, snaps []model.MarketSnapshot) error {
	_, err := s.upsert(ctx, "market_data", marketColumns,
		[]string{"corp_code", "year", "corp_role"}, rowsOf(snaps, marketValues))
	return err
}

func (s *SQLiteStore) LoadMarketSnapshots(ctx context.Context, filter Filter) ([]model.MarketSnapshot, error) {
	where, args := filter.where("year", sqlitePlaceholder)
	q := selectSQL("market_data", marketColumns) + where + " ORDER BY corp_code, year, corp_role" + filter.limit()
	return sqliteQuery(ctx, s.db, "load market snapshots", q, args, scanMarket)
}

func (s *SQLiteStore) UpsertBenchmarkMappings(ctx context.Context, mappings []model.BenchmarkMapping) error {
	_, err := s.upsert(ctx, "benchmark_map", mappingColumns,
		[]string{"corp_code", "year"}, rowsOf(mappings, mappingValues))
	return err
}

func (s *SQLiteStore) LoadBenchmarkMappings(ctx context.Context, filter Filter) ([]model.BenchmarkMapping, error) {
	where, args := filter.where("year", sqlitePlaceholder)
	q := selectSQL("benchmark_map", mappingColumns) + where + " ORDER BY corp_code, year" + filter.limit()
	return sqliteQuery(ctx, s.db, "load benchmark mappings", q, args, scanMapping)
}

func (s *SQLiteStore) ReplaceFactMetrics(ctx context.Context, cy model.CorpYear, metrics []model.FactMetric) error {
	for _, m := range metrics {
		if m.CorpCode != cy.CorpCode || m.Year != cy.Year {
			return eris.Errorf("sqlite: fact metric %s belongs to %s/%d, not %s", m.MetricKey, m.CorpCode, m.Year, cy)
		}
	}
	return s.replace(ctx, "fact_metrics", "corp_code = ? AND bsns_year = ?",
		[]any{cy.CorpCode, cy.Year}, metricColumns, rowsOf(metrics, metricValues))
}

func (s *SQLiteStore) ListFactMetrics(ctx context.Context, filter Filter) ([]model.FactMetric, error) {
	where, args := filter.where("bsns_year", sqlitePlaceholder)
	q := selectSQL("fact_metrics", metricColumns) + where + " ORDER BY corp_code, bsns_year, metric_key" + filter.limit()
	return sqliteQuery(ctx, s.db, "list fact metrics", q, args, scanMetric)
}

// upsert writes rows with INSERT ... ON CONFLICT DO UPDATE in one transaction.
func (s *SQLiteStore) upsert(ctx context.Context, table string, cols, conflict []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	isKey := make(map[string]bool, len(conflict))
	for _, k := range conflict {
		isKey[k] = true
	}
	var set []string
	for _, c := range cols {
		if !isKey[c] {
			set = append(set, fmt.Sprintf("%s = excluded.%s", c, c))
		}
	}
	q := insertSQL(table, cols) + fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s",
		strings.Join(conflict, ", "), strings.Join(set, ", "))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: upsert %s: begin tx", table)
	}
	defer func() { _ = tx.Rollback() }()

	n, err := execRows(ctx, tx, q, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: upsert %s", table)
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrapf(err, "sqlite: upsert %s: commit", table)
	}
	return n, nil
}

// replace deletes the rows matching where and inserts rows, atomically.
func (s *SQLiteStore) replace(ctx context.Context, table, where string, whereArgs []any, cols []string, rows [][]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrapf(err, "sqlite: replace %s: begin tx", table)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE "+where, whereArgs...); err != nil {
		return eris.Wrapf(err, "sqlite: replace %s: delete", table)
	}
	if _, err := execRows(ctx, tx, insertSQL(table, cols), rows); err != nil {
		return eris.Wrapf(err, "sqlite: replace %s: insert", table)
	}
	return eris.Wrapf(tx.Commit(), "sqlite: replace %s: commit", table)
}

func execRows(ctx context.Context, tx *sql.Tx, q string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return 0, err
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, r := range rows {
		res, err := stmt.ExecContext(ctx, r...)
		if err != nil {
			return n, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return n, err
		}
		n += affected
	}
	return n, nil
}

func sqliteQuery[T any](ctx context.Context, db *sql.DB, what, q string, args []any, scan func(scannable) (T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: %s", what)
	}
	defer rows.Close() //nolint:errcheck

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: %s: scan", what)
		}
		out = append(out, v)
	}
	return out, eris.Wrapf(rows.Err(), "sqlite: %s: iterate", what)
}

func selectSQL(table string, cols []string) string {
	return "SELECT " + strings.Join(cols, ", ") + " FROM " + table
}

func insertSQL(table string, cols []string) string {
	ph := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), ph)
}
