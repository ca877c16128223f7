package validate

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dart-report/internal/model"
)

// IngestCounts summarizes what one filing brought into the store.
type IngestCounts struct {
	ReportID string         `json:"report_id"`
	CorpYear model.CorpYear `json:"scope"`
	Facts    int            `json:"facts"`
	Usable   int            `json:"usable_facts"`
	NoteRefs int            `json:"facts_with_note_refs"`
	// Tables counts distinct tables per statement type.
	Tables   map[model.Scope]int `json:"tables"`
	Sections int                 `json:"note_sections"`
	// Chunks counts text chunks per section type.
	Chunks  map[string]int `json:"chunks"`
	Links   int            `json:"note_links"`
	Orphans int            `json:"orphan_links"`
}

// IngestLoader is the read side of the store the ingest counts come from.
type IngestLoader interface {
	LoadFactRows(ctx context.Context, reportID string) ([]model.FactRow, error)
	LoadNoteSections(ctx context.Context, reportID string) ([]model.NoteSection, error)
	LoadNoteChunks(ctx context.Context, reportID string) ([]model.TextChunk, error)
	LoadBizChunks(ctx context.Context, reportID string) ([]model.TextChunk, error)
	LoadNoteLinks(ctx context.Context, reportID string) ([]model.NoteLink, error)
}

// CountIngest loads and counts the stored rows of rep.
func CountIngest(ctx context.Context, l IngestLoader, rep model.Report) (IngestCounts, error) {
	c := IngestCounts{
		ReportID: rep.ReportID,
		CorpYear: rep.CorpYear(),
		Tables:   make(map[model.Scope]int),
		Chunks:   make(map[string]int),
	}

	rows, err := l.LoadFactRows(ctx, rep.ReportID)
	if err != nil {
		return c, eris.Wrapf(err, "validate: load facts %s", rep.ReportID)
	}
	type table struct {
		scope model.Scope
		id    string
	}
	tables := make(map[table]bool)
	for _, r := range rows {
		c.Facts++
		if r.Usable() {
			c.Usable++
		}
		if len(r.OwnNoteNos) > 0 {
			c.NoteRefs++
		}
		t := table{r.StatementType, r.TableID}
		if !tables[t] {
			tables[t] = true
			c.Tables[r.StatementType]++
		}
	}

	sections, err := l.LoadNoteSections(ctx, rep.ReportID)
	if err != nil {
		return c, eris.Wrapf(err, "validate: load note sections %s", rep.ReportID)
	}
	c.Sections = len(sections)

	notes, err := l.LoadNoteChunks(ctx, rep.ReportID)
	if err != nil {
		return c, eris.Wrapf(err, "validate: load note chunks %s", rep.ReportID)
	}
	biz, err := l.LoadBizChunks(ctx, rep.ReportID)
	if err != nil {
		return c, eris.Wrapf(err, "validate: load business chunks %s", rep.ReportID)
	}
	for _, ch := range append(notes, biz...) {
		c.Chunks[ch.SectionType]++
	}

	links, err := l.LoadNoteLinks(ctx, rep.ReportID)
	if err != nil {
		return c, eris.Wrapf(err, "validate: load note links %s", rep.ReportID)
	}
	c.Links = len(links)
	for _, ln := range links {
		if ln.NoteSectionID == "" {
			c.Orphans++
		}
	}
	return c, nil
}

// Ingest checks the counts of one filing. A filing without usable
// statement cells fails; missing text, tables or links are warnings.
func Ingest(c IngestCounts) *Report {
	rep := &Report{}
	add := func(level Level, format string, args ...any) {
		rep.add(Finding{
			Level:    level,
			CorpCode: c.CorpYear.CorpCode,
			Year:     c.CorpYear.Year,
			Check:    "ingest",
			Message:  c.ReportID + ": " + fmt.Sprintf(format, args...),
		})
	}

	switch {
	case c.Facts == 0:
		add(Fail, "no statement cells")
	case c.Usable == 0:
		add(Fail, "none of %d statement cells has a value and unit", c.Facts)
	}
	for _, s := range []model.Scope{model.ScopeBS, model.ScopeISCIS, model.ScopeCF} {
		if c.Facts > 0 && c.Tables[s] == 0 {
			add(Warn, "no %s table", s)
		}
	}
	if c.Sections == 0 {
		add(Warn, "no note sections")
	}
	if c.Chunks[model.SectionNotes] == 0 {
		add(Warn, "no note text chunks")
	}
	if c.Chunks[model.SectionBiz] == 0 {
		add(Warn, "no business text chunks")
	}
	if c.NoteRefs > 0 && c.Links == 0 {
		add(Warn, "%d cells reference notes but no links are stored", c.NoteRefs)
	}
	if c.Orphans > 0 {
		add(Warn, "%d of %d note links have no note section", c.Orphans, c.Links)
	}

	if len(rep.Findings) == 0 {
		add(Pass, "%d cells, %d links", c.Facts, c.Links)
	}
	return rep
}
