// Package evidence bundles the note and business text behind a section's
// metrics.
package evidence

import (
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/dart-report/internal/model"
	"github.com/sells-group/dart-report/internal/ratio"
)

// Defaults for the request knobs.
const (
	DefaultMaxNotes = 8
	DefaultTopK     = 5
	DefaultBizLimit = 80
)

// DefaultPrefixes select the company overview and business sections.
var DefaultPrefixes = []string{"I-", "II-"}

var tableRefRe = regexp.MustCompile(`\[\[TABLE:([a-f0-9]{8,64})\]\]`)

// Row is one evidence chunk.
type Row struct {
	ChunkID     string   `json:"chunk_id"`
	SectionCode string   `json:"section_code"`
	SectionType string   `json:"section_type"`
	NoteNo      *int     `json:"note_no"`
	ChunkIdx    int      `json:"chunk_idx"`
	Text        string   `json:"text"`
	TableRefs   []string `json:"table_refs"`
	MetricKeys  []string `json:"metric_keys,omitempty"`
}

// Bundle is the evidence for one (entity, year, report).
type Bundle struct {
	CorpCode string `json:"corp_code"`
	Year     int    `json:"bsns_year"`
	ReportID string `json:"report_id"`
	NoteNos  []int  `json:"note_nos,omitempty"`
	Rows     []Row  `json:"rows"`
}

// Builder assembles bundles from note links and text chunks of one report.
type Builder struct {
	links  []model.NoteLink
	chunks []model.TextChunk
	reqs   *ratio.Table
}

// NewBuilder creates a Builder. reqs expands ratio keys into their input
// items and may be nil.
func NewBuilder(links []model.NoteLink, chunks []model.TextChunk, reqs *ratio.Table) *Builder {
	return &Builder{links: links, chunks: chunks, reqs: reqs}
}

// Build dispatches on the request flavour. keys and values are only read
// for NotesByMetrics.
func (b *Builder) Build(req model.EvidenceRequest, cy model.CorpYear, reportID string, keys []string, values model.ValueSet) Bundle {
	bundle := Bundle{CorpCode: cy.CorpCode, Year: cy.Year, ReportID: reportID}
	switch r := req.(type) {
	case model.Business:
		bundle.Rows = b.business(reportID, r)
	case model.NotesByMetrics:
		bundle.NoteNos, bundle.Rows = b.notes(reportID, r, keys, values)
	}
	zap.L().Debug("evidence: built",
		zap.String("scope", cy.String()),
		zap.Int("rows", len(bundle.Rows)),
		zap.Ints("note_nos", bundle.NoteNos),
	)
	return bundle
}

func (b *Builder) notes(reportID string, r model.NotesByMetrics, keys []string, values model.ValueSet) ([]int, []Row) {
	maxNotes, topK := r.MaxNotes, r.TopK
	if maxNotes <= 0 {
		maxNotes = DefaultMaxNotes
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	// line item -> metrics citing it
	cited := make(map[string][]string)
	for _, key := range keys {
		for _, item := range b.items(key) {
			for _, id := range values[item].LineItemIDs {
				cited[id] = appendUnique(cited[id], key)
			}
		}
	}
	if len(cited) == 0 {
		return nil, nil
	}

	links := make([]model.NoteLink, 0)
	for _, l := range b.links {
		if l.ReportID == reportID && len(cited[l.LineItemID]) > 0 {
			links = append(links, l)
		}
	}
	sort.SliceStable(links, func(i, j int) bool {
		if links[i].Confidence != links[j].Confidence {
			return links[i].Confidence > links[j].Confidence
		}
		return links[i].NoteNo < links[j].NoteNo
	})

	noteMetrics := make(map[int][]string)
	var noteNos []int
	for _, l := range links {
		if _, seen := noteMetrics[l.NoteNo]; !seen {
			if len(noteNos) == maxNotes {
				continue
			}
			noteNos = append(noteNos, l.NoteNo)
		}
		for _, k := range cited[l.LineItemID] {
			noteMetrics[l.NoteNo] = appendUnique(noteMetrics[l.NoteNo], k)
		}
	}
	sort.Ints(noteNos)

	byNote := make(map[int][]model.TextChunk)
	for _, c := range b.chunks {
		if c.ReportID == reportID && c.SectionType == model.SectionNotes {
			byNote[c.NoteNo] = append(byNote[c.NoteNo], c)
		}
	}

	var rows []Row
	for _, no := range noteNos {
		cs := byNote[no]
		sort.SliceStable(cs, func(i, j int) bool { return cs[i].ChunkIdx < cs[j].ChunkIdx })
		if len(cs) > topK {
			cs = cs[:topK]
		}
		for _, c := range cs {
			row := toRow(c)
			row.NoteNo = &no
			row.MetricKeys = noteMetrics[no]
			rows = append(rows, row)
		}
	}
	return noteNos, rows
}

// items returns the resolved keys behind a metric: the key itself, or a
// ratio's input items.
func (b *Builder) items(key string) []string {
	if b.reqs != nil && b.reqs.Has(key) {
		var out []string
		for _, r := range b.reqs.Requirements(key) {
			out = append(out, r.ItemKey)
		}
		return out
	}
	return []string{key}
}

func (b *Builder) business(reportID string, r model.Business) []Row {
	prefixes := r.Prefixes
	if len(prefixes) == 0 {
		prefixes = DefaultPrefixes
	}
	limit := r.TopK
	if limit <= 0 {
		limit = DefaultBizLimit
	}

	var cs []model.TextChunk
	for _, c := range b.chunks {
		if c.ReportID != reportID || c.SectionType != model.SectionBiz {
			continue
		}
		for _, p := range prefixes {
			if strings.HasPrefix(c.SectionCode, p) {
				cs = append(cs, c)
				break
			}
		}
	}
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].SectionCode != cs[j].SectionCode {
			return cs[i].SectionCode < cs[j].SectionCode
		}
		return cs[i].ChunkIdx < cs[j].ChunkIdx
	})
	if len(cs) > limit {
		cs = cs[:limit]
	}

	rows := make([]Row, 0, len(cs))
	for _, c := range cs {
		rows = append(rows, toRow(c))
	}
	return rows
}

func toRow(c model.TextChunk) Row {
	return Row{
		ChunkID:     c.ChunkID,
		SectionCode: c.SectionCode,
		SectionType: c.SectionType,
		ChunkIdx:    c.ChunkIdx,
		Text:        c.Text,
		TableRefs:   TableRefs(c.Text),
	}
}

// TableRefs extracts the table ids of [[TABLE:<hex>]] markers, in order
// and without duplicates.
func TableRefs(text string) []string {
	refs := []string{}
	for _, m := range tableRefRe.FindAllStringSubmatch(text, -1) {
		refs = appendUnique(refs, m[1])
	}
	return refs
}

func appendUnique(xs []string, x string) []string {
	for _, v := range xs {
		if v == x {
			return xs
		}
	}
	return append(xs, x)
}
