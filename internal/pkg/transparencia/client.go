// Package transparencia talks to the ALE-AL transparency portal.
package transparencia

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sentinela/internal/logger"
	"sentinela/internal/models"
	"sentinela/internal/pkg/payslip"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://transparencia.al.al.leg.br"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// payrollTypeCode selects the "EM" (employee) payroll in the folha parameter.
	payrollTypeCode = "EM"
	noResultsMarker = "Nenhum resultado"
)

var (
	// ErrRetrieval covers transport failures, timeouts and non-200 answers.
	ErrRetrieval = errors.New("portal retrieval error")

	ErrUnexpectedStatusCode = fmt.Errorf("%w: unexpected status code", ErrRetrieval)
)

type Options struct {
	BaseURL           string
	UserAgent         string
	ListTimeout       time.Duration
	DetailTimeout     time.Duration
	RequestsPerSecond float64 // zero disables the limiter
	Logger            *slog.Logger
}

// Client is configured once and then only read, so one value can be shared
// by every fetch goroutine.
type Client struct {
	opts    Options
	baseURL *url.URL
	http    *resty.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.ListTimeout <= 0 {
		opts.ListTimeout = 20 * time.Second
	}
	if opts.DetailTimeout <= 0 {
		opts.DetailTimeout = 15 * time.Second
	}

	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid portal base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid portal base url %q: scheme and host are required", opts.BaseURL)
	}

	c := &Client{
		opts:    opts,
		baseURL: base,
		limiter: rate.NewLimiter(rate.Inf, 1),
		logger:  opts.Logger,
	}
	if c.logger == nil {
		c.logger = logger.Discard()
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	c.http = c.newResty(&http.Client{})
	return c, nil
}

// UseDefaultClient routes requests through http.DefaultClient's transport,
// which is where tests install their mock.
func (c *Client) UseDefaultClient() {
	c.http = c.newResty(&http.Client{Transport: http.DefaultClient.Transport})
}

func (c *Client) BaseURL() string {
	return strings.TrimRight(c.baseURL.String(), "/")
}

func (c *Client) newResty(hc *http.Client) *resty.Client {
	client := resty.NewWithClient(hc)
	client.SetHeader("User-Agent", c.opts.UserAgent)
	client.SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	client.SetHeader("Accept-Language", "pt-BR,pt;q=0.9")

	limiter := c.limiter
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})
	return client
}

// get performs one bounded GET and returns the body decoded to UTF-8.
func (c *Client) get(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.http.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", ErrRetrieval, rawURL, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: GET %s: %d", ErrUnexpectedStatusCode, rawURL, resp.StatusCode())
	}

	return decodeBody(resp.Body(), resp.Header().Get("Content-Type"))
}

// The portal has served both UTF-8 and ISO-8859-1 pages.
func decodeBody(body []byte, contentType string) ([]byte, error) {
	enc, name, _ := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" {
		return body, nil
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s body: %v", ErrRetrieval, name, err)
	}
	return out, nil
}

// ListingURL is the period listing: {base}/?arg=&folha={YYYYMM}|EM
func (c *Client) ListingURL(period models.Period) string {
	return c.BaseURL() + "/?arg=&folha=" + url.QueryEscape(period.Code()+"|"+payrollTypeCode)
}

// FetchDetail retrieves one employee's detail page and parses its payroll table.
func (c *Client) FetchDetail(ctx context.Context, stub models.EmployeeStub) (*payslip.Detail, error) {
	body, err := c.get(ctx, stub.DetailURL, c.opts.DetailTimeout)
	if err != nil {
		return nil, err
	}

	detail, err := payslip.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", stub.DetailURL, err)
	}
	return detail, nil
}
