package model

// Section types of text chunks.
const (
	SectionNotes = "notes"
	SectionBiz   = "biz"
)

// NoteSection is a numbered footnote section of a report.
type NoteSection struct {
	SectionID string `json:"section_id"`
	ReportID  string `json:"report_id"`
	NoteNo    int    `json:"note_no"`
	Title     string `json:"title"`
}

// TextChunk is a slice of narrative text belonging to a report section.
type TextChunk struct {
	ChunkID     string `json:"chunk_id"`
	ReportID    string `json:"report_id"`
	SectionID   string `json:"section_id"`
	SectionType string `json:"section_type"`
	SectionCode string `json:"section_code,omitempty"`
	NoteNo      int    `json:"note_no,omitempty"`
	ChunkIdx    int    `json:"chunk_idx"`
	Text        string `json:"text"`
}

// NoteLink ties a statement line item to a note number within a report.
type NoteLink struct {
	LinkID        string  `json:"link_id"`
	ReportID      string  `json:"report_id"`
	LineItemID    string  `json:"line_item_id"`
	NoteNo        int     `json:"note_no"`
	NoteSectionID string  `json:"note_section_id,omitempty"`
	Confidence    float64 `json:"confidence"`
}

// Link confidences.
const (
	LinkConfidenceSection = 0.95
	LinkConfidenceOrphan  = 0.20
)
