package benchmark

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/dart-report/internal/model"
	"github.com/sells-group/dart-report/internal/normalize"
	"github.com/sells-group/dart-report/pkg/dart"
)

// Window is an MMDD-MMDD receipt date range within the filing year.
type Window struct {
	Begin string
	End   string
}

// DefaultWindows are searched in order, widening on failure.
var DefaultWindows = []Window{
	{"0201", "0630"},
	{"0101", "0930"},
	{"0101", "1231"},
}

const (
	defaultMaxPages  = 6
	defaultPageCount = 100
	annualReport     = "사업보고서"
)

var rceptDateRe = regexp.MustCompile(`^\d{8}$`)

// Company is a registry or universe entry.
type Company struct {
	CorpCode  string
	NameKr    string
	StockCode string
	// RceptDates holds the annual report receipt date per business year,
	// when known.
	RceptDates map[int]string
}

// Target is the (entity, year) a peer is wanted for.
type Target struct {
	CorpCode string
	NameKr   string
	Year     int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithUniverse sets the companies already ingested.
func WithUniverse(cs []Company) Option {
	return func(r *Resolver) {
		r.universe = index(cs)
	}
}

// WithRegistry sets the broader corp registry used before name search.
func WithRegistry(cs []Company) Option {
	return func(r *Resolver) {
		r.registry = index(cs)
	}
}

// WithClient enables the DART-backed stages. Without a client only the
// universe stage runs.
func WithClient(c dart.Client) Option {
	return func(r *Resolver) {
		r.client = c
	}
}

// WithMaxPages caps the list pages read per window.
func WithMaxPages(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxPages = n
		}
	}
}

// Resolver maps targets to peers through the universe, registry and
// name-search stages.
type Resolver struct {
	peers    *Peers
	universe map[string]Company
	registry map[string]Company
	client   dart.Client
	maxPages int
	windows  []Window
}

// NewResolver creates a Resolver over a peer table.
func NewResolver(peers *Peers, opts ...Option) *Resolver {
	r := &Resolver{
		peers:    peers,
		maxPages: defaultMaxPages,
		windows:  DefaultWindows,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func index(cs []Company) map[string]Company {
	out := make(map[string]Company, len(cs))
	for _, c := range cs {
		k := normalize.CorpName(c.NameKr)
		if k == "" {
			continue
		}
		if _, dup := out[k]; !dup {
			out[k] = c
		}
	}
	return out
}

// Resolve returns the peer mapping for t, or nil when no stage resolves
// one. Lookup failures are logged and never returned; only context errors
// are.
func (r *Resolver) Resolve(ctx context.Context, t Target) (*model.BenchmarkMapping, error) {
	log := zap.L().With(
		zap.String("component", "benchmark"),
		zap.String("corp_code", t.CorpCode),
		zap.String("name", t.NameKr),
		zap.Int("bsns_year", t.Year),
	)

	peer, ok := r.peers.Peer(t.NameKr)
	if !ok {
		log.Debug("benchmark: no peer in table")
		return nil, nil
	}
	log = log.With(zap.String("peer", peer))
	key := normalize.CorpName(peer)

	accept := func(m *model.BenchmarkMapping) (*model.BenchmarkMapping, error) {
		if m.BenchCorpCode == t.CorpCode {
			log.Warn("benchmark: rejected self mapping", zap.String("stage", string(m.Stage)))
			return nil, nil
		}
		log.Info("benchmark: resolved",
			zap.String("stage", string(m.Stage)),
			zap.String("bench_corp_code", m.BenchCorpCode),
			zap.String("bench_rcept_date", m.BenchRceptDate),
		)
		return m, nil
	}
	mapping := func(c Company, rcept string, stage model.BenchmarkStage) *model.BenchmarkMapping {
		return &model.BenchmarkMapping{
			CorpCode:       t.CorpCode,
			Year:           t.Year,
			BenchCorpCode:  normalize.Code(c.CorpCode, 8),
			BenchNameKr:    peer,
			BenchStockCode: normalize.Code(c.StockCode, 6),
			BenchRceptDate: rcept,
			Stage:          stage,
		}
	}

	// Stage 1: peer already ingested for the year.
	if c, ok := r.universe[key]; ok {
		if rcept := c.RceptDates[t.Year]; rcept != "" {
			return accept(mapping(c, rcept, model.StageUniverse))
		}
		log.Debug("benchmark: universe entry lacks receipt date")
	}

	if r.client == nil {
		log.Info("benchmark: unresolved, external lookup disabled")
		return nil, nil
	}

	// Stage 2: registry code plus receipt date search.
	if c, ok := r.registry[key]; ok && strings.Trim(c.CorpCode, "0") != "" {
		rcept, err := r.FindRceptDate(ctx, c.CorpCode, t.Year)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			log.Warn("benchmark: registry receipt search failed", zap.Error(err))
		} else if rcept != "" {
			return accept(mapping(c, rcept, model.StageRegistry))
		}
	}

	// Stage 3: name search on the filing list.
	c, err := r.SearchByName(ctx, peer, t.Year)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		log.Warn("benchmark: name search failed", zap.Error(err))
	} else if c != nil {
		rcept, err := r.FindRceptDate(ctx, c.CorpCode, t.Year)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			log.Warn("benchmark: receipt search failed", zap.Error(err))
		} else if rcept != "" {
			return accept(mapping(*c, rcept, model.StageSearch))
		}
	}

	log.Info("benchmark: unresolved")
	return nil, nil
}

// ResolveAll resolves every target, skipping unresolved ones.
func (r *Resolver) ResolveAll(ctx context.Context, targets []Target) ([]model.BenchmarkMapping, error) {
	var out []model.BenchmarkMapping
	for _, t := range targets {
		m, err := r.Resolve(ctx, t)
		if err != nil {
			return out, err
		}
		if m != nil {
			out = append(out, *m)
		}
	}
	zap.L().Info("benchmark: batch complete",
		zap.Int("targets", len(targets)),
		zap.Int("resolved", len(out)),
	)
	return out, nil
}

// FindRceptDate returns the latest annual report receipt date (YYYYMMDD)
// filed in bsnsYear+1, widening the date window on failure. An empty
// result means none was found.
func (r *Resolver) FindRceptDate(ctx context.Context, corpCode string, bsnsYear int) (string, error) {
	filingYear := bsnsYear + 1
	corpCode = normalize.Code(corpCode, 8)

	for _, w := range r.windows {
		for page := 1; page <= r.maxPages; page++ {
			resp, err := r.client.ListFilings(ctx, dart.ListParams{
				CorpCode:  corpCode,
				BeginDate: fmt.Sprintf("%d%s", filingYear, w.Begin),
				EndDate:   fmt.Sprintf("%d%s", filingYear, w.End),
				PageNo:    page,
				PageCount: defaultPageCount,
			})
			if err != nil {
				return "", err
			}
			if resp.Status != dart.StatusOK || len(resp.List) == 0 {
				break
			}
			if hit := LatestAnnualReport(resp.List, filingYear); hit != "" {
				return hit, nil
			}
			if resp.TotalPage > 0 && page >= resp.TotalPage {
				break
			}
		}
	}
	return "", nil
}

// SearchByName finds a company by name on the filing list. Names compare
// without whitespace.
func (r *Resolver) SearchByName(ctx context.Context, name string, bsnsYear int) (*Company, error) {
	resp, err := r.client.ListFilings(ctx, dart.ListParams{
		CorpName:  name,
		BeginDate: fmt.Sprintf("%d0101", bsnsYear),
	})
	if err != nil {
		return nil, err
	}
	want := normalize.CorpName(name)
	for _, f := range resp.List {
		if normalize.CorpName(f.CorpName) == want {
			return &Company{
				CorpCode:  normalize.Code(f.CorpCode, 8),
				NameKr:    f.CorpName,
				StockCode: normalize.Code(f.StockCode, 6),
			}, nil
		}
	}
	return nil, nil
}

// LatestAnnualReport returns the newest receipt date among annual reports
// received in filingYear.
func LatestAnnualReport(filings []dart.Filing, filingYear int) string {
	prefix := fmt.Sprintf("%04d", filingYear)
	var best string
	for _, f := range filings {
		if !strings.Contains(f.ReportName, annualReport) {
			continue
		}
		d := strings.TrimSpace(f.RceptDate)
		if !rceptDateRe.MatchString(d) || !strings.HasPrefix(d, prefix) {
			continue
		}
		if d > best {
			best = d
		}
	}
	return best
}
