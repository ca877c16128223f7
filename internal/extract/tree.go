// Package extract turns raw statement cells into tagged facts.
package extract

import (
	"slices"
	"sort"

	"github.com/sells-group/dart-report/internal/model"
)

// NoParent marks a root row.
const NoParent = -1

// TableRow is one row of one statement table, independent of its cells.
type TableRow struct {
	RowIdx int
	Indent int
	Parent int
	Notes  []int
}

// AttachParents sets Parent on rows, which must be in table order. A row's
// parent is the nearest preceding row with a strictly smaller indent.
func AttachParents(rows []TableRow) {
	type frame struct{ indent, rowIdx int }
	var stack []frame
	for i := range rows {
		for len(stack) > 0 && stack[len(stack)-1].indent >= rows[i].Indent {
			stack = stack[:len(stack)-1]
		}
		rows[i].Parent = NoParent
		if len(stack) > 0 {
			rows[i].Parent = stack[len(stack)-1].rowIdx
		}
		stack = append(stack, frame{rows[i].Indent, rows[i].RowIdx})
	}
}

// RollupNotes replaces each row's notes with the sorted union of its own
// notes and those of all its descendants. Parents must already be attached.
func RollupNotes(rows []TableRow) {
	pos := make(map[int]int, len(rows))
	for i, r := range rows {
		pos[r.RowIdx] = i
	}
	sets := make([]map[int]bool, len(rows))
	for i, r := range rows {
		sets[i] = make(map[int]bool, len(r.Notes))
		for _, n := range r.Notes {
			sets[i][n] = true
		}
	}

	// Children always follow their parent, so a reverse sweep finishes every
	// node after all of its descendants (post-order).
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].Parent == NoParent {
			continue
		}
		p, ok := pos[rows[i].Parent]
		if !ok || p >= i {
			continue
		}
		for n := range sets[i] {
			sets[p][n] = true
		}
	}

	for i := range rows {
		rows[i].Notes = sortedKeys(sets[i])
	}
}

func sortedKeys(set map[int]bool) []int {
	if len(set) == 0 {
		return nil
	}
	out := make([]int, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

type tableKey struct {
	reportID string
	tableID  string
}

// Structure builds the indentation tree of every table in facts and returns
// copies carrying ParentIdx and rolled-up NoteNos. Cells sharing a table row
// share the row's own notes.
func Structure(facts []model.FactRow) []model.FactRow {
	out := slices.Clone(facts)

	byTable := make(map[tableKey][]int)
	var order []tableKey
	for i, f := range out {
		k := tableKey{f.ReportID, f.TableID}
		if _, ok := byTable[k]; !ok {
			order = append(order, k)
		}
		byTable[k] = append(byTable[k], i)
	}

	for _, k := range order {
		idx := byTable[k]
		rowsByIdx := make(map[int]*TableRow)
		var rows []TableRow
		for _, i := range idx {
			f := out[i]
			if _, ok := rowsByIdx[f.RowIdx]; !ok {
				rows = append(rows, TableRow{RowIdx: f.RowIdx, Indent: f.IndentLevel})
				rowsByIdx[f.RowIdx] = nil
			}
		}
		sort.SliceStable(rows, func(a, b int) bool { return rows[a].RowIdx < rows[b].RowIdx })
		for i := range rows {
			rowsByIdx[rows[i].RowIdx] = &rows[i]
		}
		for _, i := range idx {
			r := rowsByIdx[out[i].RowIdx]
			r.Notes = append(r.Notes, out[i].OwnNoteNos...)
		}

		AttachParents(rows)
		RollupNotes(rows)

		for _, i := range idx {
			r := rowsByIdx[out[i].RowIdx]
			out[i].ParentIdx = r.Parent
			out[i].NoteNos = slices.Clone(r.Notes)
		}
	}
	return out
}
