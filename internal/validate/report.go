// Package validate recomputes materialized metrics and checks market
// inputs, reporting PASS, WARN and FAIL findings.
package validate

import (
	"fmt"
	"math"
	"strings"

	"github.com/sells-group/dart-report/internal/model"
)

// Level is a finding severity.
type Level string

// Severities.
const (
	Pass Level = "PASS"
	Warn Level = "WARN"
	Fail Level = "FAIL"
)

// Finding is one validation record.
type Finding struct {
	Level     Level  `json:"level"`
	CorpCode  string `json:"corp_code,omitempty"`
	Year      int    `json:"bsns_year,omitempty"`
	MetricKey string `json:"metric_key,omitempty"`
	Check     string `json:"check"`
	Message   string `json:"message"`
}

// Summary counts findings per level.
type Summary struct {
	Pass int `json:"PASS"`
	Warn int `json:"WARN"`
	Fail int `json:"FAIL"`
}

// Report collects findings.
type Report struct {
	Findings []Finding `json:"findings"`
}

func (r *Report) add(f Finding) {
	r.Findings = append(r.Findings, f)
}

// Merge appends other's findings.
func (r *Report) Merge(other *Report) {
	if other != nil {
		r.Findings = append(r.Findings, other.Findings...)
	}
}

// Summary counts findings per level.
func (r *Report) Summary() Summary {
	var s Summary
	for _, f := range r.Findings {
		switch f.Level {
		case Pass:
			s.Pass++
		case Warn:
			s.Warn++
		case Fail:
			s.Fail++
		}
	}
	return s
}

// Failures returns the FAIL findings.
func (r *Report) Failures() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Level == Fail {
			out = append(out, f)
		}
	}
	return out
}

// Err returns a *FailureError when the report holds any FAIL.
func (r *Report) Err() error {
	fails := r.Failures()
	if len(fails) == 0 {
		return nil
	}
	return &FailureError{Failures: fails}
}

// FailureError aborts a run whose metrics failed validation.
type FailureError struct {
	Failures []Finding
}

func (e *FailureError) Error() string {
	const show = 5
	parts := make([]string, 0, show)
	for i, f := range e.Failures {
		if i == show {
			break
		}
		parts = append(parts, fmt.Sprintf("%s/%s: %s", f.Check, f.MetricKey, f.Message))
	}
	more := ""
	if len(e.Failures) > show {
		more = fmt.Sprintf(" (+%d more)", len(e.Failures)-show)
	}
	return fmt.Sprintf("validate: %d failure(s): %s%s", len(e.Failures), strings.Join(parts, "; "), more)
}

// Tolerance is the float comparison bound |a-b| <= Abs + Rel*max(|a|,|b|).
type Tolerance struct {
	Abs float64
	Rel float64
}

// DefaultTolerance is 1e-9 absolute plus 1e-9 relative.
var DefaultTolerance = Tolerance{Abs: 1e-9, Rel: 1e-9}

// Equal compares two floats within the tolerance.
func (t Tolerance) Equal(a, b float64) bool {
	return math.Abs(a-b) <= t.Abs+t.Rel*math.Max(math.Abs(a), math.Abs(b))
}

// EqualPtr compares nullable floats. Two nils are equal.
func (t Tolerance) EqualPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return t.Equal(*a, *b)
}

func show(v *float64) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%g", *v)
}

func scoped(cy model.CorpYear, key string) Finding {
	return Finding{CorpCode: cy.CorpCode, Year: cy.Year, MetricKey: key}
}
