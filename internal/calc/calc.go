// Package calc runs the metric pipeline for one or many (entity, year)
// scopes: extraction, resolution, derivation, ratios, benchmark,
// materialization, validation, persistence and evidence.
package calc

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dart-report/internal/accountmap"
	"github.com/sells-group/dart-report/internal/benchmark"
	"github.com/sells-group/dart-report/internal/derive"
	"github.com/sells-group/dart-report/internal/evidence"
	"github.com/sells-group/dart-report/internal/extract"
	"github.com/sells-group/dart-report/internal/metrics"
	"github.com/sells-group/dart-report/internal/model"
	"github.com/sells-group/dart-report/internal/ratio"
	"github.com/sells-group/dart-report/internal/resolve"
	"github.com/sells-group/dart-report/internal/store"
	"github.com/sells-group/dart-report/internal/validate"
)

// ErrNoReport is returned when the target scope has no filing.
var ErrNoReport = eris.New("calc: no report for scope")

// Options tune a Context.
type Options struct {
	Validate validate.Options
	// Evidence lists the bundles built after a successful run. Nil selects
	// notes by metrics plus the business overview.
	Evidence []model.EvidenceRequest
	// Concurrency bounds RunBatch.
	Concurrency int
}

// DefaultOptions returns the validation defaults, both evidence flavours
// and a batch concurrency of 4.
func DefaultOptions() Options {
	return Options{
		Validate: validate.DefaultOptions(),
		Evidence: []model.EvidenceRequest{
			model.NotesByMetrics{MaxNotes: evidence.DefaultMaxNotes, TopK: evidence.DefaultTopK},
			model.Business{Prefixes: evidence.DefaultPrefixes, TopK: evidence.DefaultBizLimit},
		},
		Concurrency: 4,
	}
}

// Context carries everything a run needs. Nil tables fall back to the
// built-in defaults; a nil Benchmarks resolver means only stored mappings
// are used.
type Context struct {
	Store        store.Store
	AccountMap   *accountmap.Map
	Requirements *ratio.Table
	Catalog      *metrics.Catalog
	Benchmarks   *benchmark.Resolver
	Options      Options
}

// New creates a Context over st with the default tables and options.
func New(st store.Store) *Context {
	return &Context{
		Store:        st,
		AccountMap:   accountmap.Default(),
		Requirements: ratio.Default(),
		Catalog:      metrics.DefaultCatalog(),
		Options:      DefaultOptions(),
	}
}

// Result is the outcome of one scope.
type Result struct {
	CorpYear   model.CorpYear           `json:"scope"`
	ReportID   string                   `json:"report_id,omitempty"`
	Requested  []string                 `json:"requested"`
	Metrics    []model.FactMetric       `json:"metrics"`
	Benchmark  *model.BenchmarkMapping  `json:"benchmark,omitempty"`
	Validation *validate.Report         `json:"validation,omitempty"`
	Summary    validate.Summary         `json:"summary"`
	Evidence   []evidence.Bundle        `json:"evidence,omitempty"`
	Stages     map[string]time.Duration `json:"stages_ns"`
	Err        string                   `json:"error,omitempty"`
}

// filing is one report run through extraction and resolution.
type filing struct {
	report model.Report
	rows   []model.FactRow
	links  []model.NoteLink
	chunks []model.TextChunk
}

func (c *Context) defaults() {
	if c.AccountMap == nil {
		c.AccountMap = accountmap.Default()
	}
	if c.Requirements == nil {
		c.Requirements = ratio.Default()
	}
	if c.Catalog == nil {
		c.Catalog = metrics.DefaultCatalog()
	}
}

// requested normalizes req into catalog keys. An empty request selects the
// whole catalog.
func (c *Context) requested(req model.MetricsRequest) []string {
	keys := model.MetricKeys(req)
	if len(keys) > 0 {
		return keys
	}
	for _, e := range c.Catalog.Entries() {
		keys = append(keys, e.MetricKey)
	}
	return keys
}

// Run computes, validates and persists the metrics of cy. A validation
// FAIL returns the result together with a *validate.FailureError and
// nothing is written. Running twice over the same rows writes identical
// metrics.
func (c *Context) Run(ctx context.Context, cy model.CorpYear, req model.MetricsRequest) (*Result, error) {
	c.defaults()
	log := zap.L().With(zap.String("component", "calc"), zap.String("scope", cy.String()))
	log.Info("calc: starting run")

	res := &Result{CorpYear: cy, Requested: c.requested(req), Stages: make(map[string]time.Duration)}
	stage := func(name string, fn func() error) error {
		start := time.Now()
		err := fn()
		res.Stages[name] = time.Since(start)
		if err != nil {
			log.Error("calc: stage failed", zap.String("stage", name), zap.Error(err))
			return err
		}
		log.Debug("calc: stage complete",
			zap.String("stage", name),
			zap.Int64("duration_ms", res.Stages[name].Milliseconds()),
		)
		return nil
	}

	keys := resolve.Keys(c.Requirements.Items(), derive.Inputs, c.Catalog.RawKeys(res.Requested))

	var cur *filing
	if err := stage("extract", func() error {
		var err error
		cur, err = c.load(ctx, cy)
		if err == nil && cur == nil {
			err = eris.Wrapf(ErrNoReport, "calc: %s", cy)
		}
		return err
	}); err != nil {
		return finish(res, err)
	}
	res.ReportID = cur.report.ReportID

	var current, prior *metrics.Side
	if err := stage("resolve", func() error {
		var err error
		if current, err = c.side(ctx, cy, cur, keys); err != nil {
			return err
		}
		prior, err = c.priorSide(ctx, cy, cur, keys)
		return err
	}); err != nil {
		return finish(res, err)
	}

	var bench *metrics.Side
	if err := stage("benchmark", func() error {
		var err error
		res.Benchmark, err = c.mapping(ctx, cur.report)
		if err != nil || res.Benchmark == nil {
			return err
		}
		bench, err = c.benchSide(ctx, cy, res.Benchmark.BenchCorpCode, keys)
		return err
	}); err != nil {
		return finish(res, err)
	}

	res.Metrics = metrics.Materialize(cy, res.Requested, current, prior, bench, c.Catalog)

	_ = stage("validate", func() error {
		in := validate.Input{
			CorpYear:     cy,
			Requested:    res.Requested,
			Metrics:      res.Metrics,
			Values:       current.Values,
			PriorValues:  prior.Values,
			Requirements: c.Requirements,
			Catalog:      c.Catalog,
		}
		if bench != nil {
			in.BenchmarkValues = bench.Values
		}
		res.Validation = validate.Metrics(in, c.Options.Validate)
		res.Summary = res.Validation.Summary()
		return nil
	})
	if err := res.Validation.Err(); err != nil {
		log.Warn("calc: validation failed, nothing persisted", zap.Int("failures", res.Summary.Fail))
		return finish(res, err)
	}

	if err := stage("persist", func() error {
		return eris.Wrap(c.Store.ReplaceFactMetrics(ctx, cy, res.Metrics), "calc: persist metrics")
	}); err != nil {
		return finish(res, err)
	}

	_ = stage("evidence", func() error {
		b := evidence.NewBuilder(cur.links, cur.chunks, c.Requirements)
		for _, er := range c.evidenceRequests() {
			res.Evidence = append(res.Evidence, b.Build(er, cy, cur.report.ReportID, res.Requested, current.Values))
		}
		return nil
	})

	log.Info("calc: run complete",
		zap.String("report_id", res.ReportID),
		zap.Int("metrics", len(res.Metrics)),
		zap.Int("warn", res.Summary.Warn),
		zap.Bool("benchmark", res.Benchmark != nil),
	)
	return res, nil
}

func finish(res *Result, err error) (*Result, error) {
	res.Err = err.Error()
	return res, err
}

func (c *Context) evidenceRequests() []model.EvidenceRequest {
	if c.Options.Evidence == nil {
		return DefaultOptions().Evidence
	}
	return c.Options.Evidence
}

// load picks the latest filing of cy and runs it through extraction. It
// returns nil when cy has no filing. Nothing is written to the store.
func (c *Context) load(ctx context.Context, cy model.CorpYear) (*filing, error) {
	reports, err := c.Store.ListReports(ctx, store.Filter{CorpCode: cy.CorpCode, Year: cy.Year})
	if err != nil {
		return nil, eris.Wrapf(err, "calc: list reports %s", cy)
	}
	if len(reports) == 0 {
		return nil, nil
	}
	rep := reports[0]
	if len(reports) > 1 {
		zap.L().Debug("calc: using latest filing",
			zap.String("scope", cy.String()),
			zap.String("rcept_no", rep.RceptNo),
			zap.Int("filings", len(reports)),
		)
	}

	f, ext, err := c.extractReport(ctx, rep)
	if err != nil {
		return nil, err
	}

	notes, err := c.Store.LoadNoteChunks(ctx, rep.ReportID)
	if err != nil {
		return nil, eris.Wrapf(err, "calc: load note chunks %s", rep.ReportID)
	}
	biz, err := c.Store.LoadBizChunks(ctx, rep.ReportID)
	if err != nil {
		return nil, eris.Wrapf(err, "calc: load business chunks %s", rep.ReportID)
	}
	f.chunks = append(notes, biz...)

	zap.L().Info("calc: filing extracted",
		zap.String("report_id", rep.ReportID),
		zap.Int("rows", len(ext.Rows)),
		zap.Int("dropped", ext.Dropped),
		zap.Int("tagged", ext.Tagged),
		zap.Int("links", len(f.links)),
	)
	return f, nil
}

// extractReport tags rep's rows and builds its note links in memory.
func (c *Context) extractReport(ctx context.Context, rep model.Report) (*filing, extract.Result, error) {
	rows, err := c.Store.LoadFactRows(ctx, rep.ReportID)
	if err != nil {
		return nil, extract.Result{}, eris.Wrapf(err, "calc: load facts %s", rep.ReportID)
	}
	ext := extract.Extract(rows, c.AccountMap)

	sections, err := c.Store.LoadNoteSections(ctx, rep.ReportID)
	if err != nil {
		return nil, extract.Result{}, eris.Wrapf(err, "calc: load note sections %s", rep.ReportID)
	}
	return &filing{report: rep, rows: ext.Rows, links: extract.BuildNoteLinks(ext.Rows, sections)}, ext, nil
}

func (c *Context) market(ctx context.Context, cy model.CorpYear) (resolve.Market, error) {
	snaps, err := c.Store.LoadMarketSnapshots(ctx, store.Filter{CorpCode: cy.CorpCode, Year: cy.Year})
	if err != nil {
		return resolve.Market{}, eris.Wrapf(err, "calc: load market %s", cy)
	}
	return resolve.LatestMarket(snaps, cy), nil
}

// resolveFiling resolves keys for period from f's rows.
func (c *Context) resolveFiling(ctx context.Context, period model.CorpYear, f *filing, keys []string) (model.ValueSet, error) {
	m, err := c.market(ctx, period)
	if err != nil {
		return nil, err
	}
	r := resolve.New(c.AccountMap, resolve.NewNoteBook(f.links, f.chunks))
	return r.Resolve(resolve.Request{
		CorpYear: period,
		ReportID: f.report.ReportID,
		Keys:     keys,
		Market:   m,
	}, f.rows), nil
}

// complete derives and evaluates a resolved set into a materialization side.
func (c *Context) complete(period model.CorpYear, reportID string, vs model.ValueSet) *metrics.Side {
	merged := derive.Augment(period, reportID, vs)
	return &metrics.Side{
		CorpCode: period.CorpCode,
		Values:   merged,
		Ratios:   ratio.ByKey(c.Requirements.EvaluateAll(period, reportID, merged)),
	}
}

func (c *Context) side(ctx context.Context, period model.CorpYear, f *filing, keys []string) (*metrics.Side, error) {
	vs, err := c.resolveFiling(ctx, period, f, keys)
	if err != nil {
		return nil, err
	}
	return c.complete(period, f.report.ReportID, vs), nil
}

// priorSide reads last year's values from the comparative columns of the
// current filing. Keys missing there are filled from last year's own
// filing when one exists.
func (c *Context) priorSide(ctx context.Context, cy model.CorpYear, cur *filing, keys []string) (*metrics.Side, error) {
	prev := cy.Prior()
	vs, err := c.resolveFiling(ctx, prev, cur, keys)
	if err != nil {
		return nil, err
	}

	missing := 0
	for _, k := range keys {
		if vs[k].Status == model.StatusMissing {
			missing++
		}
	}
	if missing > 0 {
		old, err := c.load(ctx, prev)
		if err != nil {
			return nil, err
		}
		if old != nil {
			own, err := c.resolveFiling(ctx, prev, old, keys)
			if err != nil {
				return nil, err
			}
			filled := 0
			for _, k := range keys {
				if vs[k].Status == model.StatusMissing && own[k].Status == model.StatusResolved {
					vs[k] = own[k]
					filled++
				}
			}
			zap.L().Debug("calc: prior gaps filled from prior filing",
				zap.String("scope", prev.String()),
				zap.Int("missing", missing),
				zap.Int("filled", filled),
			)
		}
	}
	return c.complete(prev, cur.report.ReportID, vs), nil
}

// mapping returns the stored peer of rep's scope, resolving and storing
// one when none is stored and a resolver is configured. A nil mapping
// means no benchmark.
func (c *Context) mapping(ctx context.Context, rep model.Report) (*model.BenchmarkMapping, error) {
	cy := rep.CorpYear()
	stored, err := c.Store.LoadBenchmarkMappings(ctx, store.Filter{CorpCode: cy.CorpCode, Year: cy.Year})
	if err != nil {
		return nil, eris.Wrapf(err, "calc: load benchmark %s", cy)
	}
	if len(stored) > 0 {
		if len(stored) > 1 {
			zap.L().Warn("calc: multiple benchmarks stored, using first",
				zap.String("scope", cy.String()),
				zap.Int("mappings", len(stored)),
			)
		}
		m := stored[0]
		if m.BenchCorpCode == cy.CorpCode {
			zap.L().Warn("calc: ignoring self benchmark", zap.String("scope", cy.String()))
			return nil, nil
		}
		return &m, nil
	}
	if c.Benchmarks == nil || rep.CorpName == "" {
		return nil, nil
	}

	m, err := c.Benchmarks.Resolve(ctx, benchmark.Target{CorpCode: cy.CorpCode, NameKr: rep.CorpName, Year: cy.Year})
	if err != nil || m == nil {
		return nil, eris.Wrap(err, "calc: resolve benchmark")
	}
	if err := c.Store.UpsertBenchmarkMappings(ctx, []model.BenchmarkMapping{*m}); err != nil {
		return nil, eris.Wrap(err, "calc: store benchmark")
	}
	return m, nil
}

// benchSide computes the peer's side for the target's year. A peer with
// no filing yields a side without values.
func (c *Context) benchSide(ctx context.Context, cy model.CorpYear, benchCode string, keys []string) (*metrics.Side, error) {
	bcy := model.CorpYear{CorpCode: benchCode, Year: cy.Year}
	f, err := c.load(ctx, bcy)
	if err != nil {
		return nil, err
	}
	if f == nil {
		zap.L().Info("calc: benchmark has no filing", zap.String("scope", bcy.String()))
		return &metrics.Side{CorpCode: benchCode}, nil
	}
	return c.side(ctx, bcy, f, keys)
}
