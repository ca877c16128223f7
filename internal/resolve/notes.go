package resolve

import (
	"sort"
	"strings"

	"github.com/sells-group/dart-report/internal/model"
)

// NoteBook indexes note links and note chunks of the reports in play. It is
// used only for evidence, never for value computation.
type NoteBook struct {
	links     map[itemKey][]model.NoteLink
	bySection map[string][]model.TextChunk
	byNote    map[noteKey][]model.TextChunk
}

type itemKey struct {
	reportID   string
	lineItemID string
}

type noteKey struct {
	reportID string
	noteNo   int
}

// NewNoteBook indexes links and chunks. Chunks that are not note chunks are
// ignored.
func NewNoteBook(links []model.NoteLink, chunks []model.TextChunk) *NoteBook {
	b := &NoteBook{
		links:     make(map[itemKey][]model.NoteLink),
		bySection: make(map[string][]model.TextChunk),
		byNote:    make(map[noteKey][]model.TextChunk),
	}
	for _, l := range links {
		k := itemKey{l.ReportID, l.LineItemID}
		b.links[k] = append(b.links[k], l)
	}
	for k, ls := range b.links {
		sort.SliceStable(ls, func(i, j int) bool {
			if ls[i].Confidence != ls[j].Confidence {
				return ls[i].Confidence > ls[j].Confidence
			}
			return ls[i].NoteNo < ls[j].NoteNo
		})
		b.links[k] = ls
	}

	for _, c := range chunks {
		if c.SectionType != model.SectionNotes {
			continue
		}
		if c.SectionID != "" {
			b.bySection[c.SectionID] = append(b.bySection[c.SectionID], c)
		}
		nk := noteKey{c.ReportID, c.NoteNo}
		b.byNote[nk] = append(b.byNote[nk], c)
	}
	byIdx := func(cs []model.TextChunk) {
		sort.SliceStable(cs, func(i, j int) bool { return cs[i].ChunkIdx < cs[j].ChunkIdx })
	}
	for _, cs := range b.bySection {
		byIdx(cs)
	}
	for _, cs := range b.byNote {
		byIdx(cs)
	}
	return b
}

// Links returns the note links of a line item, highest confidence first.
func (b *NoteBook) Links(reportID, lineItemID string) []model.NoteLink {
	if b == nil {
		return nil
	}
	return b.links[itemKey{reportID, lineItemID}]
}

// Chunks returns up to topK note chunks of noteNo in chunk order. topK <= 0
// returns all of them.
func (b *NoteBook) Chunks(reportID string, noteNo, topK int) []model.TextChunk {
	if b == nil {
		return nil
	}
	cs := b.byNote[noteKey{reportID, noteNo}]
	if topK > 0 && len(cs) > topK {
		cs = cs[:topK]
	}
	return cs
}

// Text concatenates, with blank lines, the note chunks reachable from the
// given line items through linked note sections. Each section appears once.
func (b *NoteBook) Text(reportID string, lineItemIDs []string) string {
	if b == nil {
		return ""
	}
	var parts []string
	seen := make(map[string]bool)
	for _, li := range lineItemIDs {
		for _, l := range b.links[itemKey{reportID, li}] {
			if l.NoteSectionID == "" || seen[l.NoteSectionID] {
				continue
			}
			seen[l.NoteSectionID] = true
			for _, c := range b.bySection[l.NoteSectionID] {
				if t := strings.TrimSpace(c.Text); t != "" {
					parts = append(parts, t)
				}
			}
		}
	}
	return strings.Join(parts, "\n\n")
}
