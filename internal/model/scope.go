package model

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// Scope is the statement type a canonical key and its matching rules belong to.
type Scope string

// Statement scopes. MARKET and DERIVED are synthetic: no account map rule
// ever targets them.
const (
	ScopeBS      Scope = "BS"
	ScopeISCIS   Scope = "IS_CIS"
	ScopeCF      Scope = "CF"
	ScopeMarket  Scope = "MARKET"
	ScopeDerived Scope = "DERIVED"
)

// IsStatement reports whether the scope is backed by a financial statement table.
func (s Scope) IsStatement() bool {
	switch s {
	case ScopeBS, ScopeISCIS, ScopeCF:
		return true
	}
	return false
}

// ParseScope validates a statement type string.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeBS, ScopeISCIS, ScopeCF, ScopeMarket, ScopeDerived:
		return Scope(s), nil
	}
	return "", eris.Errorf("model: unknown scope %q", s)
}

// MatchType is the comparison an account map rule performs.
type MatchType string

// Match types. Only EXACT participates in tagging.
const (
	MatchExact MatchType = "EXACT"
	MatchRegex MatchType = "REGEX"
	MatchLike  MatchType = "LIKE"
)

// DefaultPriority returns the priority a rule of this type gets when none is set.
func (m MatchType) DefaultPriority() int {
	switch m {
	case MatchExact:
		return 10
	case MatchRegex:
		return 20
	case MatchLike:
		return 30
	}
	return 100
}

// CorpYear identifies one (entity, business year) calculation scope.
type CorpYear struct {
	CorpCode string `json:"corp_code"`
	Year     int    `json:"bsns_year"`
}

func (c CorpYear) String() string {
	return fmt.Sprintf("%s/%d", c.CorpCode, c.Year)
}

// Prior returns the same entity one business year earlier.
func (c CorpYear) Prior() CorpYear {
	return CorpYear{CorpCode: c.CorpCode, Year: c.Year - 1}
}
