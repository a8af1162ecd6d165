package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/volatria/volatria-backend/internal/apperr"
	"github.com/volatria/volatria-backend/internal/httputil"
	"github.com/volatria/volatria-backend/internal/retry"
)

const DefaultBaseURL = "https://www.alphavantage.co/query"

// ErrNoData means the provider answered but has no price for the symbol yet.
// It is not a transport failure and is not retried.
var ErrNoData = errors.New("no data yet")

// errThrottled marks a provider Note/Information body; those are retried.
var errThrottled = errors.New("provider throttled")

type AlphaVantageClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	retry      retry.Policy
}

type AlphaVantageOptions struct {
	BaseURL string
	Timeout time.Duration
	Retry   retry.Policy
}

// DefaultRetry is three attempts with 100ms * attempt backoff.
var DefaultRetry = retry.Policy{
	MaxAttempts: 3,
	Backoff:     retry.Linear(100 * time.Millisecond),
}

func NewAlphaVantageClient(apiKey string, opts AlphaVantageOptions) *AlphaVantageClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultRetry
	}
	return &AlphaVantageClient{
		apiKey:     apiKey,
		baseURL:    opts.BaseURL,
		httpClient: &http.Client{Timeout: opts.Timeout},
		retry:      opts.Retry,
	}
}

// providerStatus holds the fields Alpha Vantage uses to report problems
// inside a 200 response.
type providerStatus struct {
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

func (s providerStatus) check() error {
	switch {
	case s.ErrorMessage != "":
		return retry.Permanent(fmt.Errorf("%w: %s", apperr.ErrUpstream, s.ErrorMessage))
	case s.Note != "":
		return fmt.Errorf("%w: %s", errThrottled, s.Note)
	case s.Information != "":
		return fmt.Errorf("%w: %s", errThrottled, s.Information)
	}
	return nil
}

type globalQuoteResponse struct {
	providerStatus
	GlobalQuote map[string]string `json:"Global Quote"`
}

// LatestQuote returns the provider's current price for symbol.
func (c *AlphaVantageClient) LatestQuote(ctx context.Context, symbol string) (float64, error) {
	var price float64
	err := c.get(ctx, "GLOBAL_QUOTE", symbol, func(resp *http.Response) error {
		var data globalQuoteResponse
		if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		if err := data.check(); err != nil {
			return err
		}
		raw := data.GlobalQuote["05. price"]
		if raw == "" {
			return retry.Permanent(fmt.Errorf("%w: %s", ErrNoData, symbol))
		}
		p, err := parsePrice(raw)
		if err != nil {
			return retry.Permanent(fmt.Errorf("%w: %s: %v", apperr.ErrUpstream, symbol, err))
		}
		price = p
		return nil
	})
	if err != nil {
		return 0, c.classify(ctx, "global quote", symbol, err)
	}
	return price, nil
}

// DailyPoint is one raw entry of a daily time series.
type DailyPoint struct {
	Date  string
	Close string
}

// Parse converts the point into a UTC midnight timestamp and a positive price.
func (p DailyPoint) Parse() (time.Time, float64, error) {
	ts, err := time.Parse("2006-01-02", p.Date)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("date %q: %w", p.Date, err)
	}
	price, err := parsePrice(p.Close)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("close on %s: %w", p.Date, err)
	}
	return ts, price, nil
}

type dailySeriesResponse struct {
	providerStatus
	Series map[string]map[string]string `json:"Time Series (Daily)"`
}

// DailySeries returns the symbol's daily closes, oldest first. Points are
// returned unparsed; callers skip the ones that fail DailyPoint.Parse.
func (c *AlphaVantageClient) DailySeries(ctx context.Context, symbol string) ([]DailyPoint, error) {
	var points []DailyPoint
	err := c.get(ctx, "TIME_SERIES_DAILY", symbol, func(resp *http.Response) error {
		var data dailySeriesResponse
		if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		if err := data.check(); err != nil {
			return err
		}
		if len(data.Series) == 0 {
			return retry.Permanent(fmt.Errorf("%w: %s", ErrNoData, symbol))
		}
		points = make([]DailyPoint, 0, len(data.Series))
		for date, fields := range data.Series {
			points = append(points, DailyPoint{Date: date, Close: fields["4. close"]})
		}
		sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
		return nil
	})
	if err != nil {
		return nil, c.classify(ctx, "daily series", symbol, err)
	}
	return points, nil
}

// Ping makes one quote request for a well-known symbol. A "no data" answer
// still proves the provider is reachable.
func (c *AlphaVantageClient) Ping(ctx context.Context) error {
	_, err := c.LatestQuote(ctx, "IBM")
	if err != nil && !errors.Is(err, ErrNoData) {
		return err
	}
	return nil
}

func (c *AlphaVantageClient) get(ctx context.Context, function, symbol string, decode func(*http.Response) error) error {
	q := url.Values{}
	q.Set("function", function)
	q.Set("symbol", symbol)
	q.Set("apikey", c.apiKey)
	target := c.baseURL + "?" + q.Encode()

	return httputil.DoDecode(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	}, func(resp *http.Response) error {
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: HTTP %d", errThrottled, resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return retry.Permanent(fmt.Errorf("%w: HTTP %d", apperr.ErrUpstream, resp.StatusCode))
		}
		return decode(resp)
	})
}

// classify tags failures as upstream errors unless they are "no data" or the
// caller gave up.
func (c *AlphaVantageClient) classify(ctx context.Context, op, symbol string, err error) error {
	if ctx.Err() != nil || errors.Is(err, ErrNoData) || errors.Is(err, apperr.ErrUpstream) {
		return err
	}
	return fmt.Errorf("%w: %s %s: %v", apperr.ErrUpstream, op, symbol, err)
}

func parsePrice(raw string) (float64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", raw, err)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("price %s is not positive", d)
	}
	return d.InexactFloat64(), nil
}
