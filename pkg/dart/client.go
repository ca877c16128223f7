// Package dart provides a client for the Open DART disclosure list API.
package dart

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/dart-report/internal/resilience"
)

// Status codes returned in the response body.
const (
	StatusOK     = "000"
	StatusNoData = "013"
)

// DefaultBaseURL is the Open DART API root.
const DefaultBaseURL = "https://opendart.fss.or.kr/api"

// Client defines the DART operations the benchmark resolver needs.
type Client interface {
	// ListFilings returns one page of the disclosure list.
	ListFilings(ctx context.Context, p ListParams) (*ListResponse, error)
}

// ListParams are the list.json query parameters. Empty fields are omitted.
type ListParams struct {
	CorpCode  string
	CorpName  string
	BeginDate string // YYYYMMDD
	EndDate   string // YYYYMMDD
	PageNo    int
	PageCount int
}

// ListResponse is the decoded list.json body.
type ListResponse struct {
	Status     string   `json:"status"`
	Message    string   `json:"message"`
	PageNo     int      `json:"page_no"`
	PageCount  int      `json:"page_count"`
	TotalCount int      `json:"total_count"`
	TotalPage  int      `json:"total_page"`
	List       []Filing `json:"list"`
}

// Filing is one disclosure list entry.
type Filing struct {
	CorpCls    string `json:"corp_cls"`
	CorpName   string `json:"corp_name"`
	CorpCode   string `json:"corp_code"`
	StockCode  string `json:"stock_code"`
	ReportName string `json:"report_nm"`
	RceptNo    string `json:"rcept_no"`
	FilerName  string `json:"flr_nm"`
	RceptDate  string `json:"rcept_dt"`
	Remark     string `json:"rm"`
}

// Option configures the DART client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit replaces the request limiter. DART throttles keys that
// exceed roughly ten requests per second.
func WithRateLimit(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a DART client. The default limiter allows one request
// every 120ms.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(120*time.Millisecond), 1),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger("dart", "list")
	}
	return c
}

func (p ListParams) query(apiKey string) url.Values {
	q := url.Values{}
	q.Set("crtfc_key", apiKey)
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("corp_code", p.CorpCode)
	set("corp_name", p.CorpName)
	set("bgn_de", p.BeginDate)
	set("end_de", p.EndDate)
	if p.PageNo > 0 {
		q.Set("page_no", strconv.Itoa(p.PageNo))
	}
	if p.PageCount > 0 {
		q.Set("page_count", strconv.Itoa(p.PageCount))
	}
	return q
}

// ListFilings fetches one list.json page. Status 013 yields an empty page;
// any other non-000 status is an error.
func (c *httpClient) ListFilings(ctx context.Context, p ListParams) (*ListResponse, error) {
	reqURL := c.baseURL + "/list.json?" + p.query(c.apiKey).Encode()

	body, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, reqURL)
	})
	if err != nil {
		return nil, eris.Wrap(err, "dart: list request failed")
	}

	var out ListResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "dart: unmarshal list response")
	}

	switch out.Status {
	case StatusOK:
		return &out, nil
	case StatusNoData:
		out.List = nil
		return &out, nil
	}
	return nil, eris.Errorf("dart: status %s: %s", out.Status, out.Message)
}

func (c *httpClient) get(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "dart: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "dart: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "dart: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("dart: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}
	return body, nil
}
