// Package accountmap translates normalized statement labels into canonical keys.
package accountmap

import (
	"slices"
	"sort"

	"github.com/sells-group/dart-report/internal/model"
	"github.com/sells-group/dart-report/internal/normalize"
)

// Rule maps one label pattern in one scope to a canonical key.
type Rule struct {
	Scope      model.Scope     `yaml:"scope"`
	StdKey     string          `yaml:"std_key"`
	MatchType  model.MatchType `yaml:"match_type"`
	Pattern    string          `yaml:"-"`
	PatternRaw string          `yaml:"pattern"`
	Priority   int             `yaml:"priority"`
	MinIndent  *int            `yaml:"min_indent,omitempty"`
	MaxIndent  *int            `yaml:"max_indent,omitempty"`
	Inactive   bool            `yaml:"inactive,omitempty"`

	seq int
}

type ruleKey struct {
	scope     model.Scope
	stdKey    string
	matchType model.MatchType
	pattern   string
}

type patternKey struct {
	scope   model.Scope
	pattern string
}

// Map is an immutable, indexed set of account map rules.
type Map struct {
	rules  []Rule
	exact  map[patternKey][]int
	scopes map[string]model.Scope
}

// New normalizes rule patterns, fills default priorities and drops rules
// whose (scope, std_key, match_type, pattern) was already seen.
func New(rules []Rule) *Map {
	m := &Map{
		exact:  make(map[patternKey][]int),
		scopes: make(map[string]model.Scope),
	}
	seen := make(map[ruleKey]bool)

	for _, r := range rules {
		if r.MatchType == "" {
			r.MatchType = model.MatchExact
		}
		r.Pattern = normalize.Label(r.PatternRaw)
		if r.Priority == 0 {
			r.Priority = r.MatchType.DefaultPriority()
		}
		k := ruleKey{r.Scope, r.StdKey, r.MatchType, r.Pattern}
		if r.Pattern == "" || r.StdKey == "" || seen[k] {
			continue
		}
		seen[k] = true
		r.seq = len(m.rules)
		m.rules = append(m.rules, r)

		if r.Inactive {
			continue
		}
		if cur, ok := m.scopes[r.StdKey]; !ok || r.Scope < cur {
			m.scopes[r.StdKey] = r.Scope
		}
		if r.MatchType == model.MatchExact {
			pk := patternKey{r.Scope, r.Pattern}
			m.exact[pk] = append(m.exact[pk], r.seq)
		}
	}

	for pk, idx := range m.exact {
		sort.SliceStable(idx, func(i, j int) bool {
			return ByPriority(m.rules[idx[i]], m.rules[idx[j]]) < 0
		})
		m.exact[pk] = idx
	}
	return m
}

// Default builds the map from DefaultAliases.
func Default() *Map {
	return New(FromAliases(DefaultAliases))
}

// FromAliases expands alias lists into EXACT rules.
func FromAliases(aliases []Alias) []Rule {
	var out []Rule
	for _, a := range aliases {
		for _, l := range a.Labels {
			out = append(out, Rule{
				Scope:      a.Scope,
				StdKey:     a.StdKey,
				MatchType:  model.MatchExact,
				PatternRaw: l,
			})
		}
	}
	return out
}

// ByPriority orders rules by priority ascending, then by insertion order.
func ByPriority(a, b Rule) int {
	if a.Priority != b.Priority {
		if a.Priority < b.Priority {
			return -1
		}
		return 1
	}
	return a.seq - b.seq
}

// Lookup returns the winning EXACT rule for a normalized label in scope.
// indent is checked against the rule's optional indent bounds.
func (m *Map) Lookup(scope model.Scope, labelNorm string, indent int) (Rule, bool) {
	for _, i := range m.exact[patternKey{scope, labelNorm}] {
		r := m.rules[i]
		if r.MinIndent != nil && indent < *r.MinIndent {
			continue
		}
		if r.MaxIndent != nil && indent > *r.MaxIndent {
			continue
		}
		return r, true
	}
	return Rule{}, false
}

// Matches reports whether an active EXACT rule ties pattern to stdKey in scope.
func (m *Map) Matches(scope model.Scope, stdKey, labelNorm string) bool {
	for _, i := range m.exact[patternKey{scope, labelNorm}] {
		if m.rules[i].StdKey == stdKey {
			return true
		}
	}
	return false
}

// ScopeOf returns the scope a canonical key belongs to. When rules disagree
// the lexically smallest scope wins.
func (m *Map) ScopeOf(stdKey string) (model.Scope, bool) {
	s, ok := m.scopes[stdKey]
	return s, ok
}

// Keys returns every active canonical key, sorted.
func (m *Map) Keys() []string {
	out := make([]string, 0, len(m.scopes))
	for k := range m.scopes {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Rules returns a copy of the deduplicated rules in insertion order.
func (m *Map) Rules() []Rule {
	return slices.Clone(m.rules)
}

// Len returns the number of deduplicated rules.
func (m *Map) Len() int {
	return len(m.rules)
}
