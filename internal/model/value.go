package model

// Status classifies a resolution outcome.
type Status string

// Resolution statuses. Missing and Ambiguous both carry a nil value.
const (
	StatusResolved  Status = "resolved"
	StatusMissing   Status = "missing"
	StatusAmbiguous Status = "ambiguous"
)

// ValueKind records where a value came from.
type ValueKind string

// Value kinds.
const (
	KindRaw     ValueKind = "raw"
	KindDerived ValueKind = "derived"
	KindMarket  ValueKind = "market"
)

// ResolvedValue is the outcome of collapsing candidate rows for one
// (entity, year, report, std_key).
type ResolvedValue struct {
	CorpCode string    `json:"corp_code"`
	Year     int       `json:"bsns_year"`
	ReportID string    `json:"report_id"`
	StdKey   string    `json:"std_key"`
	Value    *float64  `json:"value"`
	Status   Status    `json:"status"`
	Kind     ValueKind `json:"kind"`

	Labels         []string  `json:"labels,omitempty"`
	NoteRefs       []string  `json:"note_refs,omitempty"`
	NoteNos        []int     `json:"note_nos,omitempty"`
	NoteText       string    `json:"note_text,omitempty"`
	CandidateRows  int       `json:"cand_rows"`
	DistinctValues int       `json:"cand_distinct_values"`
	LineItemIDs    []string  `json:"line_item_ids,omitempty"`
	Sources        []CellRef `json:"sources,omitempty"`
}

// Present reports whether the value is non-nil.
func (v ResolvedValue) Present() bool {
	return v.Value != nil
}

// ValueSet maps std_key to its value for one (entity, year, report).
type ValueSet map[string]ResolvedValue

// Get returns the value for key, or nil when absent or unresolved.
func (s ValueSet) Get(key string) *float64 {
	v, ok := s[key]
	if !ok {
		return nil
	}
	return v.Value
}

// Clone returns a shallow copy of the set.
func (s ValueSet) Clone() ValueSet {
	out := make(ValueSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Float returns a pointer to f.
func Float(f float64) *float64 {
	return &f
}
