package extract

import (
	"sort"

	"github.com/sells-group/dart-report/internal/model"
)

// BuildNoteLinks links every line item to each of its rolled-up note
// numbers. A link whose note number has a section in the same report gets
// section confidence; otherwise it is kept as an orphan with low confidence.
func BuildNoteLinks(rows []model.FactRow, sections []model.NoteSection) []model.NoteLink {
	type secKey struct {
		reportID string
		noteNo   int
	}
	secs := make(map[secKey]string, len(sections))
	for _, s := range sections {
		k := secKey{s.ReportID, s.NoteNo}
		if _, ok := secs[k]; !ok {
			secs[k] = s.SectionID
		}
	}

	seen := make(map[string]bool)
	var links []model.NoteLink
	for _, r := range rows {
		for _, no := range r.NoteNos {
			id := model.NoteLinkID(r.ReportID, r.LineItemID, no)
			if seen[id] {
				continue
			}
			seen[id] = true

			l := model.NoteLink{
				LinkID:     id,
				ReportID:   r.ReportID,
				LineItemID: r.LineItemID,
				NoteNo:     no,
				Confidence: model.LinkConfidenceOrphan,
			}
			if sid, ok := secs[secKey{r.ReportID, no}]; ok {
				l.NoteSectionID = sid
				l.Confidence = model.LinkConfidenceSection
			}
			links = append(links, l)
		}
	}

	sort.SliceStable(links, func(i, j int) bool {
		if links[i].ReportID != links[j].ReportID {
			return links[i].ReportID < links[j].ReportID
		}
		if links[i].LineItemID != links[j].LineItemID {
			return links[i].LineItemID < links[j].LineItemID
		}
		return links[i].NoteNo < links[j].NoteNo
	})
	return links
}
