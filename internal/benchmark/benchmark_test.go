package benchmark

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/dart-report/internal/model"
	"github.com/sells-group/dart-report/pkg/dart"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeClient struct {
	calls   []dart.ListParams
	respond func(p dart.ListParams) (*dart.ListResponse, error)
}

func (f *fakeClient) ListFilings(_ context.Context, p dart.ListParams) (*dart.ListResponse, error) {
	f.calls = append(f.calls, p)
	return f.respond(p)
}

func annual(code, date string) dart.Filing {
	return dart.Filing{CorpCode: code, ReportName: "사업보고서 (2024.12)", RceptDate: date}
}

func TestPeers(t *testing.T) {
	p := Default()

	peer, ok := p.Peer("삼성 전자")
	require.True(t, ok)
	assert.Equal(t, "SK하이닉스", peer)

	peer, ok = p.Peer("하나금융지주")
	require.True(t, ok)
	assert.Equal(t, "(주)우리금융지주", peer)

	_, ok = p.Peer("없는회사")
	assert.False(t, ok)

	assert.Contains(t, p.Names(), "포스코DX")

	self := NewPeers([][2]string{{"A사", "A 사"}})
	_, ok = self.Peer("A사")
	assert.False(t, ok, "self pairs are dropped")
}

func TestLoadPeers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("LG전자: 삼성SDI\n새회사: 카카오\n"), 0o644))

	p, err := LoadPeers(path)
	require.NoError(t, err)
	peer, _ := p.Peer("LG전자")
	assert.Equal(t, "삼성SDI", peer)
	peer, _ = p.Peer("새회사")
	assert.Equal(t, "카카오", peer)
	peer, _ = p.Peer("삼성전자")
	assert.Equal(t, "SK하이닉스", peer)

	_, err = LoadPeers(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	p, err = LoadPeers("")
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestLatestAnnualReport(t *testing.T) {
	filings := []dart.Filing{
		annual("1", "20250311"),
		annual("1", "20250320"),
		{ReportName: "[기재정정]사업보고서 (2024.12)", RceptDate: "20250402"},
		{ReportName: "반기보고서 (2025.06)", RceptDate: "20250814"},
		annual("1", "20240312"),
		annual("1", "2025-03-30"),
	}
	assert.Equal(t, "20250402", LatestAnnualReport(filings, 2025))
	assert.Equal(t, "20240312", LatestAnnualReport(filings, 2024))
	assert.Empty(t, LatestAnnualReport(filings, 2023))
	assert.Empty(t, LatestAnnualReport(nil, 2025))
}

func TestResolve_Universe(t *testing.T) {
	r := NewResolver(Default(), WithUniverse([]Company{
		{CorpCode: "164779", NameKr: "SK하이닉스", StockCode: "660", RceptDates: map[int]string{2024: "20250319"}},
	}))

	m, err := r.Resolve(context.Background(), Target{CorpCode: "00126380", NameKr: "삼성전자", Year: 2024})
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, model.StageUniverse, m.Stage)
	assert.Equal(t, "00164779", m.BenchCorpCode)
	assert.Equal(t, "000660", m.BenchStockCode)
	assert.Equal(t, "20250319", m.BenchRceptDate)
	assert.Equal(t, "SK하이닉스", m.BenchNameKr)

	// No receipt date for 2023 and no client: unresolved, not an error.
	m, err = r.Resolve(context.Background(), Target{CorpCode: "00126380", NameKr: "삼성전자", Year: 2023})
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestResolve_Registry(t *testing.T) {
	fc := &fakeClient{respond: func(p dart.ListParams) (*dart.ListResponse, error) {
		// Nothing in the narrow window, the report shows up once widened.
		if p.BeginDate == "20250201" {
			return &dart.ListResponse{Status: dart.StatusNoData}, nil
		}
		return &dart.ListResponse{Status: dart.StatusOK, TotalPage: 1, List: []dart.Filing{annual("00258801", "20250312")}}, nil
	}}
	r := NewResolver(Default(),
		WithRegistry([]Company{{CorpCode: "258801", NameKr: "카카오", StockCode: "35720"}}),
		WithClient(fc),
	)

	m, err := r.Resolve(context.Background(), Target{CorpCode: "00266961", NameKr: "NAVER", Year: 2024})
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, model.StageRegistry, m.Stage)
	assert.Equal(t, "00258801", m.BenchCorpCode)
	assert.Equal(t, "035720", m.BenchStockCode)
	assert.Equal(t, "20250312", m.BenchRceptDate)

	require.Len(t, fc.calls, 2)
	assert.Equal(t, "00258801", fc.calls[0].CorpCode)
	assert.Equal(t, "20250630", fc.calls[0].EndDate)
	assert.Equal(t, "20250101", fc.calls[1].BeginDate)
	assert.Equal(t, "20250930", fc.calls[1].EndDate)
	assert.Equal(t, 100, fc.calls[1].PageCount)
}

func TestResolve_NameSearch(t *testing.T) {
	fc := &fakeClient{respond: func(p dart.ListParams) (*dart.ListResponse, error) {
		if p.CorpName != "" {
			assert.Equal(t, "20240101", p.BeginDate)
			return &dart.ListResponse{Status: dart.StatusOK, List: []dart.Filing{
				{CorpName: "케이티스카이라이프", CorpCode: "00999999", StockCode: "053210"},
				{CorpName: "케 이 티", CorpCode: "190321", StockCode: " 30200 "},
			}}, nil
		}
		return &dart.ListResponse{Status: dart.StatusOK, List: []dart.Filing{annual(p.CorpCode, "20250310")}}, nil
	}}
	r := NewResolver(Default(), WithClient(fc))

	m, err := r.Resolve(context.Background(), Target{CorpCode: "00159023", NameKr: "SK텔레콤", Year: 2024})
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, model.StageSearch, m.Stage)
	assert.Equal(t, "00190321", m.BenchCorpCode)
	assert.Equal(t, "030200", m.BenchStockCode)
	assert.Equal(t, "케이티", m.BenchNameKr)
}

func TestResolve_PagesCapped(t *testing.T) {
	fc := &fakeClient{respond: func(p dart.ListParams) (*dart.ListResponse, error) {
		return &dart.ListResponse{Status: dart.StatusOK, TotalPage: 50, List: []dart.Filing{
			{ReportName: "주요사항보고서", RceptDate: "20250105"},
		}}, nil
	}}
	r := NewResolver(Default(), WithClient(fc))

	got, err := r.FindRceptDate(context.Background(), "1", 2024)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Len(t, fc.calls, 3*defaultMaxPages)

	fc.calls = nil
	r = NewResolver(Default(), WithClient(fc), WithMaxPages(2))
	_, _ = r.FindRceptDate(context.Background(), "1", 2024)
	assert.Len(t, fc.calls, 6)
}

func TestResolve_FailuresAreNotFatal(t *testing.T) {
	fc := &fakeClient{respond: func(dart.ListParams) (*dart.ListResponse, error) {
		return nil, errors.New("dart: status 020")
	}}
	r := NewResolver(Default(),
		WithRegistry([]Company{{CorpCode: "00164779", NameKr: "SK하이닉스"}}),
		WithClient(fc),
	)

	m, err := r.Resolve(context.Background(), Target{CorpCode: "00126380", NameKr: "삼성전자", Year: 2024})
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestResolve_SelfRejected(t *testing.T) {
	r := NewResolver(NewPeers([][2]string{{"갑", "을"}}), WithUniverse([]Company{
		{CorpCode: "00000001", NameKr: "을", RceptDates: map[int]string{2024: "20250301"}},
	}))

	m, err := r.Resolve(context.Background(), Target{CorpCode: "00000001", NameKr: "갑", Year: 2024})
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestResolve_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fc := &fakeClient{respond: func(dart.ListParams) (*dart.ListResponse, error) {
		cancel()
		return nil, context.Canceled
	}}
	r := NewResolver(Default(), WithClient(fc))

	_, err := r.Resolve(ctx, Target{CorpCode: "00126380", NameKr: "삼성전자", Year: 2024})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolveAll(t *testing.T) {
	r := NewResolver(Default(), WithUniverse([]Company{
		{CorpCode: "00164779", NameKr: "SK하이닉스", RceptDates: map[int]string{2024: "20250319"}},
		{CorpCode: "00126380", NameKr: "삼성전자", RceptDates: map[int]string{2024: "20250311"}},
	}))
	out, err := r.ResolveAll(context.Background(), []Target{
		{CorpCode: "00126380", NameKr: "삼성전자", Year: 2024},
		{CorpCode: "00164779", NameKr: "SK하이닉스", Year: 2024},
		{CorpCode: "00000009", NameKr: "무명", Year: 2024},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, m := range out {
		assert.NotEqual(t, m.CorpCode, m.BenchCorpCode)
	}
}
