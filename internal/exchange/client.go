// Package exchange talks to the venue's REST and combined-stream
// WebSocket endpoints: exchange metadata, depth snapshots, and the live
// trade/depth-diff subscription. The snapshot loop paces its requests
// with a weight-per-minute rate limiter; the stream subscription does not
// use it.
package exchange

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a REST client for the subset of the exchange's spot API the
// capture pipeline needs: exchange metadata and full order-book
// snapshots. It carries no trading endpoints — this pipeline only reads
// market data.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a Client against baseURL (e.g. https://api.binance.com).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// ExchangeInfo is the subset of GET /api/v3/exchangeInfo this pipeline
// reads: the per-minute request-weight limit and the tradable symbol
// list.
type ExchangeInfo struct {
	WeightLimit int
	Symbols     []string
}

type exchangeInfoResponse struct {
	RateLimits []struct {
		Limit int `json:"limit"`
	} `json:"rateLimits"`
	Symbols []struct {
		Symbol string `json:"symbol"`
	} `json:"symbols"`
}

// ExchangeInfoWeight is the fixed request cost of GET /api/v3/exchangeInfo.
const ExchangeInfoWeight = 20

// DepthSnapshotWeight is the fixed request cost of
// GET /api/v3/depth?limit=5000.
const DepthSnapshotWeight = 250

// GetExchangeInfo fetches the first rate-limit window's weight budget and
// the full tradable symbol list.
func (c *Client) GetExchangeInfo() (ExchangeInfo, error) {
	body, err := c.get("/api/v3/exchangeInfo")
	if err != nil {
		return ExchangeInfo{}, err
	}

	var raw exchangeInfoResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return ExchangeInfo{}, fmt.Errorf("exchange: parse exchangeInfo: %w", err)
	}
	if len(raw.RateLimits) == 0 {
		return ExchangeInfo{}, fmt.Errorf("exchange: exchangeInfo response carries no rateLimits")
	}

	symbols := make([]string, len(raw.Symbols))
	for i, s := range raw.Symbols {
		symbols[i] = s.Symbol
	}
	return ExchangeInfo{WeightLimit: raw.RateLimits[0].Limit, Symbols: symbols}, nil
}

// GetDepthSnapshot fetches a full order-book snapshot for symbol and
// returns its raw JSON body, unparsed; decode.ParseSnapshot turns it into
// levels.
func (c *Client) GetDepthSnapshot(symbol string) (string, error) {
	path := fmt.Sprintf("/api/v3/depth?symbol=%s&limit=5000", strings.ToUpper(symbol))
	body, err := c.get(path)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) get(path string) ([]byte, error) {
	endpoint := c.baseURL + path
	resp, err := c.httpClient.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("exchange: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("exchange: GET %s: reading response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exchange: GET %s: status %d: %s", path, resp.StatusCode, string(body))
	}
	return body, nil
}
