package model

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var idSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://opendart.fss.or.kr"))

// StableID derives a deterministic id from its parts. Equal parts always
// give the same id across runs and machines.
func StableID(parts ...string) string {
	return uuid.NewSHA1(idSpace, []byte(strings.Join(parts, "\x1f"))).String()
}

// LineItemID identifies a statement line item within a report.
func LineItemID(reportID string, st Scope, ifrsCode, labelClean string) string {
	return StableID(reportID, string(st), ifrsCode, labelClean)
}

// ReportID identifies a filing by its receipt number.
func ReportID(corpCode string, year int, rceptNo string) string {
	return StableID("report", corpCode, strconv.Itoa(year), rceptNo)
}

// NoteLinkID identifies a (line item, note) link.
func NoteLinkID(reportID, lineItemID string, noteNo int) string {
	return StableID("note_link", reportID, lineItemID, strconv.Itoa(noteNo))
}
