// Package normalize turns DART statement labels and cells into comparable forms.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// labelStripRe matches the characters Label removes. Full-width forms are
// folded to ASCII by NFKC before this runs.
var labelStripRe = regexp.MustCompile(`[\s\p{Zs}.,\-()/\[\]·•:;]+`)

var spaceRe = regexp.MustCompile(`[\s\p{Zs}]+`)

// Label canonicalizes a statement label for exact-match lookup:
//  1. NFKC folding (full-width spaces and brackets become ASCII)
//  2. Lowercasing
//  3. Removing whitespace and . , - ( ) / [ ] · • : ;
//
// Account map patterns and extracted labels must both go through Label.
func Label(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)
	return labelStripRe.ReplaceAllString(s, "")
}

// LabelSQL returns a Postgres expression equivalent to Label for col.
func LabelSQL(col string) string {
	return `regexp_replace(lower(normalize(coalesce(` + col + `, ''), NFKC)), '[\s.,\-()/\[\]·•:;]+', '', 'g')`
}

// Space collapses whitespace runs to a single space and trims.
func Space(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// CorpName compares company names ignoring whitespace.
func CorpName(s string) string {
	return spaceRe.ReplaceAllString(norm.NFKC.String(s), "")
}

// Code trims a DART corp or stock code, drops a ".0" left by spreadsheet
// number formatting and left-pads it with zeros to width. Blank stays blank.
func Code(code string, width int) string {
	code = strings.TrimSuffix(strings.TrimSpace(code), ".0")
	if code == "" {
		return ""
	}
	if len(code) < width {
		code = strings.Repeat("0", width-len(code)) + code
	}
	return code
}
