package seed

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dart-report/internal/model"
	"github.com/sells-group/dart-report/internal/normalize"
)

var textRequired = []string{"corp_code", "bsns_year", "rcept_no", "section_type", "chunk_idx", "text"}

// Text is the parsed content of a report text export.
type Text struct {
	Sections []model.NoteSection
	Chunks   []model.TextChunk
	Skipped  int
}

// TextWriter is the part of the store report text is written to.
type TextWriter interface {
	InsertNoteSections(ctx context.Context, sections []model.NoteSection) error
	InsertNoteChunks(ctx context.Context, chunks []model.TextChunk) error
}

// ParseText turns chunked report text into note sections and chunks. Notes
// rows need a note_no; business rows are keyed by section_code.
func ParseText(recs []Record) (*Text, error) {
	if err := requireColumns(recs, textRequired...); err != nil {
		return nil, err
	}

	out := &Text{}
	sections := make(map[string]bool)
	for i, r := range recs {
		log := zap.L().With(zap.Int("row", i+2))

		year, ok := parseYear(r.Get("bsns_year"))
		corp := normalize.Code(r.Get("corp_code"), 8)
		rceptNo := r.Get("rcept_no")
		chunkIdx, err := strconv.Atoi(r.Get("chunk_idx"))
		if !ok || corp == "" || rceptNo == "" || err != nil {
			out.Skipped++
			log.Debug("seed: text row without report key or chunk index")
			continue
		}
		reportID := model.ReportID(corp, year, rceptNo)

		c := model.TextChunk{
			ReportID:    reportID,
			SectionType: r.Get("section_type"),
			SectionCode: r.Get("section_code"),
			ChunkIdx:    chunkIdx,
			Text:        r.Get("text"),
		}
		switch c.SectionType {
		case model.SectionNotes:
			no, err := strconv.Atoi(r.Get("note_no"))
			if err != nil {
				out.Skipped++
				log.Debug("seed: notes row without note_no")
				continue
			}
			c.NoteNo = no
			c.SectionID = model.StableID("note_section", reportID, strconv.Itoa(no))
			if !sections[c.SectionID] {
				sections[c.SectionID] = true
				out.Sections = append(out.Sections, model.NoteSection{
					SectionID: c.SectionID,
					ReportID:  reportID,
					NoteNo:    no,
					Title:     r.Get("title"),
				})
			}
		case model.SectionBiz:
			c.SectionID = model.StableID("biz_section", reportID, c.SectionCode)
		default:
			out.Skipped++
			log.Debug("seed: text row with unknown section type", zap.String("section_type", c.SectionType))
			continue
		}
		c.ChunkID = model.StableID("chunk", c.SectionID, strconv.Itoa(chunkIdx))
		out.Chunks = append(out.Chunks, c)
	}
	return out, nil
}

// ImportText reads a report text export and writes its sections and chunks.
func ImportText(ctx context.Context, w TextWriter, path string) (*Text, error) {
	recs, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	text, err := ParseText(recs)
	if err != nil {
		return nil, err
	}
	if err := w.InsertNoteSections(ctx, text.Sections); err != nil {
		return nil, eris.Wrap(err, "seed: write note sections")
	}
	if err := w.InsertNoteChunks(ctx, text.Chunks); err != nil {
		return nil, eris.Wrap(err, "seed: write text chunks")
	}

	zap.L().Info("seed: report text loaded",
		zap.String("component", "seed"),
		zap.String("path", path),
		zap.Int("sections", len(text.Sections)),
		zap.Int("chunks", len(text.Chunks)),
		zap.Int("skipped", text.Skipped),
	)
	return text, nil
}
