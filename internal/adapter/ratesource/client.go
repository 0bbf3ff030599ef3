// Package ratesource fetches live exchange rates over HTTP.
package ratesource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrBadResponse marks a response that is not a well-formed rates payload.
var ErrBadResponse = errors.New("rate source: malformed response")

// maxBody caps how much of a response is read.
const maxBody = 1 << 20

// Config configures the rate source client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client implements usecase.RateSource against an exchangerate-style API:
// GET {BaseURL}/latest?base=USD&symbols=EUR returning {"rates": {"EUR": 0.92}}.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		http:    &http.Client{Timeout: timeout},
	}
}

type ratesResponse struct {
	Success *bool                      `json:"success"`
	Error   json.RawMessage            `json:"error"`
	Rates   map[string]decimal.Decimal `json:"rates"`
}

// FetchRates returns the rates of target quoted against base.
func (c *Client) FetchRates(ctx context.Context, base, target string) (map[string]decimal.Decimal, error) {
	if c.baseURL == "" {
		return nil, errors.New("rate source: no base URL configured")
	}

	q := url.Values{}
	q.Set("base", base)
	q.Set("symbols", target)
	if c.apiKey != "" {
		q.Set("access_key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/latest?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rate source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate source: unexpected status %d", resp.StatusCode)
	}

	var body ratesResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if body.Success != nil && !*body.Success {
		return nil, fmt.Errorf("%w: error indicator set: %s", ErrBadResponse, body.Error)
	}
	if len(body.Error) > 0 && string(body.Error) != "null" {
		return nil, fmt.Errorf("%w: %s", ErrBadResponse, body.Error)
	}
	if len(body.Rates) == 0 {
		return nil, fmt.Errorf("%w: no rates", ErrBadResponse)
	}
	return body.Rates, nil
}
