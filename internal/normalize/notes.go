package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	noteRe    = regexp.MustCompile(`\(\s*주\s*([0-9,\s]+)\)`)
	noteTokRe = regexp.MustCompile(`[,\s]+`)
)

// SplitNoteRefs splits a "(주4,28)" marker off a label. It returns the label
// without markers, the note numbers of the first marker and the marker's
// inner text ("4,28"). A label without a marker comes back trimmed with no
// numbers and an empty marker.
func SplitNoteRefs(label string) (clean string, nums []int, raw string) {
	if label == "" {
		return "", nil, ""
	}
	m := noteRe.FindStringSubmatch(label)
	if m == nil {
		return strings.TrimSpace(label), nil, ""
	}
	raw = strings.TrimSpace(m[1])
	for _, tok := range noteTokRe.Split(raw, -1) {
		if n, err := strconv.Atoi(tok); err == nil {
			nums = append(nums, n)
		}
	}
	clean = strings.TrimSpace(noteRe.ReplaceAllString(label, ""))
	return clean, nums, raw
}

// NoteMarker renders note numbers back into the "(주4,28)" form.
func NoteMarker(raw string) string {
	if raw == "" {
		return ""
	}
	return "(주" + raw + ")"
}
