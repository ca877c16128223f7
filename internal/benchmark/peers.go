// Package benchmark assigns each target company a peer for comparison.
package benchmark

import (
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/dart-report/internal/normalize"
)

// DefaultPeers pairs a target's Korean name with its peer's name. Industry
// pairs are listed both ways.
var DefaultPeers = [][2]string{
	// 반도체/전자
	{"삼성전자", "SK하이닉스"},
	{"SK하이닉스", "삼성전자"},
	{"LG전자", "삼성전자"},
	{"LG디스플레이", "LG이노텍"},
	{"LG이노텍", "LG디스플레이"},
	{"삼성SDI", "LG에너지솔루션"},
	{"LG에너지솔루션", "삼성SDI"},
	{"HD현대일렉트릭", "엘에스일렉트릭"},
	{"엘에스일렉트릭", "HD현대일렉트릭"},

	// 2차전지/소재
	{"포스코퓨처엠", "에코프로머티"},
	{"에코프로머티", "포스코퓨처엠"},

	// 바이오/제약/헬스케어
	{"삼성바이오로직스", "셀트리온"},
	{"셀트리온", "삼성바이오로직스"},
	{"한미약품", "유한양행"},
	{"SK바이오사이언스", "녹십자"},
	{"차AI헬스케어", "포스코DX"},

	// 자동차/부품/모빌리티
	{"현대자동차", "기아"},
	{"기아", "현대자동차"},
	{"현대모비스", "HL만도"},
	{"두산밥캣", "HD현대건설기계"},
	{"현대오토에버", "포스코DX"},

	// 플랫폼/인터넷/게임
	{"NAVER", "카카오"},
	{"카카오", "NAVER"},
	{"크래프톤", "엔씨소프트"},
	{"엔씨소프트", "크래프톤"},
	{"넷마블", "엔씨소프트"},
	{"카카오페이", "포스코DX"},

	// 통신
	{"SK텔레콤", "케이티"},
	{"케이티", "SK텔레콤"},
	{"LG유플러스", "케이티"},

	// 금융
	{"KB금융", "신한지주"},
	{"신한지주", "KB금융"},
	{"하나금융지주", "(주)우리금융지주"},
	{"우리금융지주", "하나금융지주"},
	{"NH투자증권", "미래에셋증권"},
	{"미래에셋증권", "NH투자증권"},
	{"삼성증권", "키움증권"},
	{"메리츠금융지주", "한국금융지주"},
	{"한국금융지주", "메리츠금융지주"},
	{"삼성생명", "한화생명"},
	{"삼성화재해상보험", "DB손해보험"},
	{"삼성카드", "KB금융"},
	{"기업은행", "KB금융"},
}

// Peers is the target-name to peer-name table. Lookups ignore spacing.
type Peers struct {
	byName map[string]string
}

// NewPeers builds a table from (target, peer) pairs. Later pairs override
// earlier ones and self pairs are dropped.
func NewPeers(pairs [][2]string) *Peers {
	p := &Peers{byName: make(map[string]string, len(pairs))}
	for _, pair := range pairs {
		t := normalize.CorpName(pair[0])
		if t == "" || t == normalize.CorpName(pair[1]) {
			continue
		}
		p.byName[t] = pair[1]
	}
	return p
}

// Default returns the built-in table.
func Default() *Peers {
	return NewPeers(DefaultPeers)
}

// LoadPeers reads a YAML mapping of target name to peer name and overlays
// it on the built-in table. An empty path yields Default.
func LoadPeers(path string) (*Peers, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "benchmark: read %s", path)
	}
	var override map[string]string
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, eris.Wrap(err, "benchmark: parse peers yaml")
	}

	merged := append([][2]string(nil), DefaultPeers...)
	targets := make([]string, 0, len(override))
	for k := range override {
		targets = append(targets, k)
	}
	sort.Strings(targets)
	for _, k := range targets {
		merged = append(merged, [2]string{k, override[k]})
	}
	zap.L().Info("benchmark: loaded peer table",
		zap.String("path", path),
		zap.Int("overrides", len(override)),
		zap.Int("pairs", len(merged)),
	)
	return NewPeers(merged), nil
}

// Peer returns the peer name for a target name.
func (p *Peers) Peer(targetName string) (string, bool) {
	v, ok := p.byName[normalize.CorpName(targetName)]
	return v, ok
}

// Names returns every distinct peer name, sorted.
func (p *Peers) Names() []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range p.byName {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
