package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"StockCast/internal/domain/models"
	drepo "StockCast/internal/domain/repository"
	pkghttp "StockCast/pkg/http"
)

const chartPath = "/v8/finance/chart/"

// Client fetches historical bars from the Yahoo Finance chart API.
type Client struct {
	http     *pkghttp.Client
	baseURL  string
	interval string
}

var _ drepo.QuoteProvider = (*Client)(nil)

// Option configures Client.
type Option func(*Client)

// WithBaseURL points the client at another host (tests, proxies).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithDefaultInterval sets the bar interval used when a call passes "".
func WithDefaultInterval(interval string) Option {
	return func(c *Client) {
		if interval != "" {
			c.interval = interval
		}
	}
}

// New creates a Yahoo chart client on top of httpClient.
func New(httpClient *pkghttp.Client, opts ...Option) *Client {
	c := &Client{
		http:     httpClient,
		baseURL:  "https://query1.finance.yahoo.com",
		interval: "1d",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// History returns bars for symbol between start and end, oldest first.
func (c *Client) History(ctx context.Context, symbol string, start, end time.Time, interval string) ([]models.Quote, error) {
	if err := models.ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	if interval == "" {
		interval = c.interval
	}

	query := map[string][]string{
		"period1":  {strconv.FormatInt(start.Unix(), 10)},
		"period2":  {strconv.FormatInt(end.Unix(), 10)},
		"interval": {interval},
		"events":   {"history"},
	}

	var resp chartResponse
	err := c.http.GetJSON(ctx, c.baseURL+chartPath+url.PathEscape(symbol), query, &resp)
	if err != nil {
		var se *pkghttp.StatusError
		if errors.As(err, &se) {
			if desc := describeError(se.Body); desc != "" {
				return nil, fmt.Errorf("%w: yahoo %s: %s", models.ErrUpstream, symbol, desc)
			}
		}
		return nil, fmt.Errorf("%w: yahoo %s: %w", models.ErrUpstream, symbol, err)
	}

	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("%w: yahoo %s: %s", models.ErrUpstream, symbol, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w for %s", models.ErrNoData, symbol)
	}

	quotes := resp.Chart.Result[0].quotes()
	if len(quotes) == 0 {
		return nil, fmt.Errorf("%w for %s", models.ErrNoData, symbol)
	}
	return quotes, nil
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// quotes zips the column arrays into bars. Bars with a missing or
// non-positive open or close are dropped; adjclose falls back to close.
func (r chartResult) quotes() []models.Quote {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	q := r.Indicators.Quote[0]
	var adj []*float64
	if len(r.Indicators.AdjClose) > 0 {
		adj = r.Indicators.AdjClose[0].AdjClose
	}

	out := make([]models.Quote, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		open, ok1 := at(q.Open, i)
		closePrice, ok2 := at(q.Close, i)
		if !ok1 || !ok2 || open <= 0 || closePrice <= 0 {
			continue
		}
		high, _ := at(q.High, i)
		low, _ := at(q.Low, i)
		adjClose, ok := at(adj, i)
		if !ok || adjClose <= 0 {
			adjClose = closePrice
		}
		var vol int64
		if i < len(q.Volume) && q.Volume[i] != nil {
			vol = *q.Volume[i]
		}
		out = append(out, models.Quote{
			Time:     time.Unix(ts, 0).UTC(),
			Open:     open,
			High:     high,
			Low:      low,
			Close:    closePrice,
			AdjClose: adjClose,
			Volume:   vol,
		})
	}
	return out
}

func at(xs []*float64, i int) (float64, bool) {
	if i >= len(xs) || xs[i] == nil {
		return 0, false
	}
	return *xs[i], true
}

func describeError(body string) string {
	var resp chartResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil || resp.Chart.Error == nil {
		return ""
	}
	return resp.Chart.Error.Description
}
