package solr

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/solrsync/internal/domain"
	"github.com/kailas-cloud/solrsync/internal/domain/document"
	"github.com/kailas-cloud/solrsync/internal/domain/search/result"
	"github.com/kailas-cloud/solrsync/internal/metrics"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 512
	maxBody        = 64 << 20
)

// Client is a thin HTTP transport for one Solr core.
type Client struct {
	coreURL string
	http    *http.Client
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zap.Logger
}

// Config holds the Solr connection settings.
type Config struct {
	BaseURL    string // e.g. http://localhost:8983/solr
	Core       string
	Timeout    time.Duration
	RateLimit  float64 // requests per second, 0 disables limiting
	Burst      int
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewClient creates a Solr client.
func NewClient(cfg *Config) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid solr base url %q", cfg.BaseURL)
	}
	if cfg.Core == "" || strings.Contains(cfg.Core, "/") {
		return nil, fmt.Errorf("invalid solr core %q", cfg.Core)
	}

	c := &Client{
		coreURL: strings.TrimRight(cfg.BaseURL, "/") + "/" + cfg.Core,
		http:    cfg.HTTPClient,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c, nil
}

// Update sends adds and deletes in a single <update> envelope.
// An empty batch is a no-op.
func (c *Client) Update(ctx context.Context, adds []document.Document, deletes []string) error {
	if len(adds) == 0 && len(deletes) == 0 {
		return nil
	}
	var buf bytes.Buffer
	buf.WriteString("<update>")
	if len(adds) > 0 {
		buf.WriteString("<add>")
		for _, doc := range adds {
			writeDoc(&buf, doc)
		}
		buf.WriteString("</add>")
	}
	if len(deletes) > 0 {
		buf.WriteString("<delete>")
		for _, id := range deletes {
			buf.WriteString("<id>")
			escape(&buf, id)
			buf.WriteString("</id>")
		}
		buf.WriteString("</delete>")
	}
	buf.WriteString("</update>")

	return c.update(ctx, "update", buf.Bytes())
}

// Commit makes recently written documents visible to queries.
func (c *Client) Commit(ctx context.Context) error {
	return c.update(ctx, "commit", []byte("<commit/>"))
}

// Optimize merges index segments.
func (c *Client) Optimize(ctx context.Context) error {
	return c.update(ctx, "optimize", []byte("<optimize/>"))
}

// DeleteByQuery removes every document matching q. q must already be
// valid query syntax.
func (c *Client) DeleteByQuery(ctx context.Context, q string) error {
	if q == "" {
		return domain.NewTranslationError("empty delete query")
	}
	var buf bytes.Buffer
	buf.WriteString("<delete><query>")
	escape(&buf, q)
	buf.WriteString("</query></delete>")
	return c.update(ctx, "delete_by_query", buf.Bytes())
}

// Select runs a search and returns the raw response body. wt defaults to json.
func (c *Client) Select(ctx context.Context, params url.Values) ([]byte, error) {
	form := url.Values{}
	for k, v := range params {
		form[k] = v
	}
	if form.Get("wt") == "" {
		form.Set("wt", "json")
	}
	return c.do(ctx, "select", http.MethodPost, c.coreURL+"/select",
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
}

// Search runs a select request and parses the response in whichever
// encoding the server answered with.
func (c *Client) Search(ctx context.Context, params url.Values) (result.SearchResult, error) {
	raw, err := c.Select(ctx, params)
	if err != nil {
		return result.SearchResult{}, err
	}
	res, err := Parse(raw)
	if err != nil {
		metrics.SolrErrorsTotal.WithLabelValues("select", "parse").Inc()
		return result.SearchResult{}, err
	}
	return res, nil
}

// Ping returns the raw XML body of the core's ping handler.
func (c *Client) Ping(ctx context.Context) ([]byte, error) {
	return c.do(ctx, "ping", http.MethodGet, c.coreURL+"/admin/ping?wt=xml", "", nil)
}

// Healthy reports whether the core answers its ping with status OK.
// It never returns an error.
func (c *Client) Healthy(ctx context.Context) bool {
	body, err := c.Ping(ctx)
	if err != nil {
		c.logger.Debug("solr ping failed", zap.Error(err))
		return false
	}
	return ParsePing(body)
}

func (c *Client) update(ctx context.Context, op string, body []byte) error {
	resp, err := c.do(ctx, op, http.MethodPost, c.coreURL+"/update?wt=xml", "text/xml; charset=utf-8", bytes.NewReader(body))
	if err != nil {
		return err
	}
	return ParseAck(op, resp)
}

func (c *Client) do(ctx context.Context, op, method, target, contentType string, body io.Reader) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			metrics.SolrErrorsTotal.WithLabelValues(op, "rate_limit").Inc()
			return nil, &domain.TransportError{Op: op, Err: err}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &domain.TransportError{Op: op, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.SolrRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SolrRequestsTotal.WithLabelValues(op, "error").Inc()
		metrics.SolrErrorsTotal.WithLabelValues(op, "network").Inc()
		return nil, &domain.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		metrics.SolrRequestsTotal.WithLabelValues(op, "error").Inc()
		metrics.SolrErrorsTotal.WithLabelValues(op, "network").Inc()
		return nil, &domain.TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.SolrRequestsTotal.WithLabelValues(op, "error").Inc()
		metrics.SolrErrorsTotal.WithLabelValues(op, "http").Inc()
		c.logger.Warn("solr request failed",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &domain.TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(snippet(data))}
	}

	metrics.SolrRequestsTotal.WithLabelValues(op, "success").Inc()
	return data, nil
}

func writeDoc(buf *bytes.Buffer, doc document.Document) {
	buf.WriteString("<doc>")
	writeField(buf, domain.IDField, doc.ID())
	for _, e := range doc.Entries() {
		if e.Name() == domain.IDField {
			continue
		}
		for _, v := range e.Values() {
			writeField(buf, e.Name(), v)
		}
	}
	buf.WriteString("</doc>")
}

func writeField(buf *bytes.Buffer, name, value string) {
	buf.WriteString(`<field name="`)
	escape(buf, name)
	buf.WriteString(`">`)
	escape(buf, value)
	buf.WriteString("</field>")
}

func escape(buf *bytes.Buffer, s string) {
	_ = xml.EscapeText(buf, []byte(s)) // bytes.Buffer writes never fail
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	if s == "" {
		return "empty response body"
	}
	return s
}
