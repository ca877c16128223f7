package accountmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/dart-report/internal/model"
	"github.com/sells-group/dart-report/internal/normalize"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestDefault_LookupExact(t *testing.T) {
	m := Default()

	r, ok := m.Lookup(model.ScopeBS, normalize.Label("자산총계"), 0)
	require.True(t, ok)
	assert.Equal(t, "TOTAL_ASSETS", r.StdKey)
	assert.Equal(t, 10, r.Priority)

	r, ok = m.Lookup(model.ScopeBS, normalize.Label("현금 및 현금성자산"), 0)
	require.True(t, ok)
	assert.Equal(t, "CASH_EQ", r.StdKey)

	r, ok = m.Lookup(model.ScopeISCIS, normalize.Label("당기순이익(손실)"), 2)
	require.True(t, ok)
	assert.Equal(t, "NET_INCOME", r.StdKey)
}

func TestDefault_ScopeMustAgree(t *testing.T) {
	m := Default()

	_, ok := m.Lookup(model.ScopeISCIS, normalize.Label("자산총계"), 0)
	assert.False(t, ok)

	_, ok = m.Lookup(model.ScopeBS, normalize.Label("자산총계 합계"), 0)
	assert.False(t, ok, "partial labels never match")
}

func TestNew_DedupByPrimaryKey(t *testing.T) {
	m := New([]Rule{
		{Scope: model.ScopeBS, StdKey: "CASH_EQ", PatternRaw: "현금및현금성자산"},
		{Scope: model.ScopeBS, StdKey: "CASH_EQ", PatternRaw: "현금 및 현금성자산"},
		{Scope: model.ScopeBS, StdKey: "CASH_EQ", MatchType: model.MatchLike, PatternRaw: "현금및현금성자산"},
	})
	assert.Equal(t, 2, m.Len())

	rules := m.Rules()
	assert.Equal(t, "현금및현금성자산", rules[0].PatternRaw)
	assert.Equal(t, 30, rules[1].Priority)
}

func TestLookup_PriorityThenInsertionOrder(t *testing.T) {
	m := New([]Rule{
		{Scope: model.ScopeBS, StdKey: "LATE", PatternRaw: "기타자산", Priority: 20},
		{Scope: model.ScopeBS, StdKey: "FIRST", PatternRaw: "기타자산", Priority: 5},
		{Scope: model.ScopeBS, StdKey: "SECOND", PatternRaw: "기타자산", Priority: 5},
	})

	r, ok := m.Lookup(model.ScopeBS, "기타자산", 0)
	require.True(t, ok)
	assert.Equal(t, "FIRST", r.StdKey)

	rules := m.Rules()
	assert.Negative(t, ByPriority(rules[1], rules[2]))
	assert.Positive(t, ByPriority(rules[0], rules[1]))
}

func TestLookup_IndentBounds(t *testing.T) {
	one := 1
	m := New([]Rule{
		{Scope: model.ScopeBS, StdKey: "NESTED", PatternRaw: "기타", MinIndent: &one, Priority: 1},
		{Scope: model.ScopeBS, StdKey: "TOP", PatternRaw: "기타", Priority: 2},
	})

	r, _ := m.Lookup(model.ScopeBS, "기타", 0)
	assert.Equal(t, "TOP", r.StdKey)
	r, _ = m.Lookup(model.ScopeBS, "기타", 2)
	assert.Equal(t, "NESTED", r.StdKey)
}

func TestInactiveRulesDoNotMatch(t *testing.T) {
	m := New([]Rule{{Scope: model.ScopeBS, StdKey: "OLD", PatternRaw: "구계정", Inactive: true}})
	_, ok := m.Lookup(model.ScopeBS, "구계정", 0)
	assert.False(t, ok)
	_, ok = m.ScopeOf("OLD")
	assert.False(t, ok)
}

func TestScopeOfAndMatches(t *testing.T) {
	m := Default()

	s, ok := m.ScopeOf("OCF")
	require.True(t, ok)
	assert.Equal(t, model.ScopeCF, s)

	assert.True(t, m.Matches(model.ScopeBS, "EQUITY", normalize.Label("자기자본")))
	assert.False(t, m.Matches(model.ScopeBS, "TOTAL_ASSETS", normalize.Label("자기자본")))
	assert.Contains(t, m.Keys(), "DEPRECIATION")
}

func TestLoad_WithOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accountmap.yaml")
	doc := `
aliases:
  - scope: BS
    std_key: TOTAL_ASSETS
    aliases: ["자산 합계"]
rules:
  - scope: IS_CIS
    std_key: REVENUE
    pattern: "수익(매출액)"
    priority: 15
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	m, err := Load(path)
	require.NoError(t, err)

	r, ok := m.Lookup(model.ScopeBS, normalize.Label("자산합계"), 0)
	require.True(t, ok)
	assert.Equal(t, "TOTAL_ASSETS", r.StdKey)

	r, ok = m.Lookup(model.ScopeISCIS, normalize.Label("수익(매출액)"), 0)
	require.True(t, ok)
	assert.Equal(t, 15, r.Priority)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Parse([]byte("rules:\n  - scope: MARKET\n    std_key: X\n    pattern: y\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("rules:\n  - scope: BS\n    std_key: X\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("aliases: [\n"))
	assert.Error(t, err)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	m, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Len(), m.Len())
}
