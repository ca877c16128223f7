package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Report is one DART filing (사업보고서) for an entity and business year.
type Report struct {
	ReportID   string    `json:"report_id"`
	CorpCode   string    `json:"corp_code"`
	CorpName   string    `json:"corp_name"`
	StockCode  string    `json:"stock_code,omitempty"`
	Year       int       `json:"bsns_year"`
	RceptNo    string    `json:"rcept_no"`
	RceptDate  string    `json:"rcept_dt"`
	ReportName string    `json:"report_nm"`
	CreatedAt  time.Time `json:"created_at"`
}

// CorpYear returns the calculation scope the report belongs to.
func (r Report) CorpYear() CorpYear {
	return CorpYear{CorpCode: r.CorpCode, Year: r.Year}
}

// CellRef points back at the table cell a value came from.
type CellRef struct {
	TableID string `json:"table_id"`
	RowIdx  int    `json:"row_idx"`
	ColIdx  int    `json:"col_idx"`
}

// FactRow is one numeric cell of one statement table row, as produced by the
// upstream extractor. Tree fields (ParentIdx, NoteNos) and StdKey are filled in
// by the extraction layer.
type FactRow struct {
	CorpCode      string              `json:"corp_code"`
	Year          int                 `json:"bsns_year"`
	ReportID      string              `json:"report_id"`
	StatementType Scope               `json:"statement_type"`
	TableID       string              `json:"table_id"`
	RowIdx        int                 `json:"row_idx"`
	ColIdx        int                 `json:"col_idx"`
	IFRSCode      string              `json:"ifrs_code,omitempty"`
	LabelRaw      string              `json:"label_raw"`
	LabelClean    string              `json:"label_clean"`
	LabelNorm     string              `json:"label_norm"`
	IndentLevel   int                 `json:"indent_level"`
	PeriodEnd     string              `json:"period_end,omitempty"`
	FiscalYear    int                 `json:"fiscal_year"`
	Value         decimal.NullDecimal `json:"value"`
	UnitMult      int64               `json:"unit_multiplier"`
	Currency      string              `json:"currency,omitempty"`
	NoteRefsRaw   string              `json:"note_refs_raw,omitempty"`
	OwnNoteNos    []int               `json:"own_note_nos,omitempty"`
	LineItemID    string              `json:"line_item_id"`

	ParentIdx int    `json:"-"`
	NoteNos   []int  `json:"note_nos,omitempty"`
	StdKey    string `json:"std_key,omitempty"`
	Priority  int    `json:"priority,omitempty"`
}

// Usable reports whether the row carries a value and a unit multiplier.
func (f FactRow) Usable() bool {
	return f.Value.Valid && f.UnitMult != 0
}

// ValueWon returns value × unit multiplier in exact decimal arithmetic.
func (f FactRow) ValueWon() (decimal.Decimal, bool) {
	if !f.Usable() {
		return decimal.Zero, false
	}
	return f.Value.Decimal.Mul(decimal.NewFromInt(f.UnitMult)), true
}

// Cell returns the row's table back-reference.
func (f FactRow) Cell() CellRef {
	return CellRef{TableID: f.TableID, RowIdx: f.RowIdx, ColIdx: f.ColIdx}
}

// Tagged reports whether the extraction layer assigned a canonical key.
func (f FactRow) Tagged() bool {
	return f.StdKey != ""
}
