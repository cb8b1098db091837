package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/lucidlabs/arbot/internal/domain"
)

const (
	coinbaseLiveURL    = "https://api.exchange.coinbase.com"
	coinbaseSandboxURL = "https://api-public.sandbox.exchange.coinbase.com"
)

// Coinbase places market orders and fetches tickers through the Coinbase
// Exchange REST API. Request signatures are HMAC-SHA256 over
// timestamp+method+path+body with the base64-decoded API secret as key.
type Coinbase struct {
	baseURL    string
	apiKey     string
	secret     string
	passphrase string
	client     *http.Client
	limiter    *rate.Limiter
}

// NewCoinbase creates a Coinbase adapter. When sandbox is set, requests go to
// the public sandbox.
func NewCoinbase(apiKey, secret, passphrase string, sandbox bool) *Coinbase {
	baseURL := coinbaseLiveURL
	if sandbox {
		baseURL = coinbaseSandboxURL
	}
	return &Coinbase{
		baseURL:    baseURL,
		apiKey:     apiKey,
		secret:     secret,
		passphrase: passphrase,
		client:     &http.Client{Timeout: 10 * time.Second},
		limiter:    newLimiter(),
	}
}

// Name returns the venue identifier.
func (c *Coinbase) Name() string { return "coinbase" }

// CreateMarketBuyOrder submits a market buy for amount base units.
func (c *Coinbase) CreateMarketBuyOrder(ctx context.Context, symbol string, amount float64) (domain.OrderResult, error) {
	return c.createOrder(ctx, symbol, amount, domain.OrderSideBuy)
}

// CreateMarketSellOrder submits a market sell for amount base units.
func (c *Coinbase) CreateMarketSellOrder(ctx context.Context, symbol string, amount float64) (domain.OrderResult, error) {
	return c.createOrder(ctx, symbol, amount, domain.OrderSideSell)
}

type coinbaseOrderRequest struct {
	Type      string `json:"type"`
	Side      string `json:"side"`
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
}

type coinbaseOrderResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (c *Coinbase) createOrder(ctx context.Context, symbol string, amount float64, side domain.OrderSide) (domain.OrderResult, error) {
	body, err := json.Marshal(coinbaseOrderRequest{
		Type:      "market",
		Side:      string(side),
		ProductID: dashSymbol(symbol),
		Size:      strconv.FormatFloat(amount, 'f', -1, 64),
	})
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("coinbase: marshal order: %w", err)
	}

	var resp coinbaseOrderResponse
	if err := c.do(ctx, http.MethodPost, "/orders", body, &resp); err != nil {
		return domain.OrderResult{}, fmt.Errorf("coinbase: %s order %s: %w", side, symbol, err)
	}
	if resp.ID == "" {
		return domain.OrderResult{}, fmt.Errorf("coinbase: %s order %s rejected: %s", side, symbol, resp.Message)
	}

	return domain.OrderResult{
		OrderID:  resp.ID,
		Venue:    c.Name(),
		Symbol:   symbol,
		Side:     side,
		Amount:   amount,
		FilledAt: time.Now().UTC(),
	}, nil
}

type coinbaseTicker struct {
	Price  string `json:"price"`
	Volume string `json:"volume"`
}

// FetchTicker returns the latest trade price for the product.
func (c *Coinbase) FetchTicker(ctx context.Context, symbol string) (domain.MarketSample, error) {
	var tick coinbaseTicker
	path := "/products/" + dashSymbol(symbol) + "/ticker"
	if err := c.do(ctx, http.MethodGet, path, nil, &tick); err != nil {
		return domain.MarketSample{}, fmt.Errorf("coinbase: fetch ticker %s: %w", symbol, err)
	}

	price, err := strconv.ParseFloat(tick.Price, 64)
	if err != nil {
		return domain.MarketSample{}, fmt.Errorf("coinbase: parse ticker price %q: %w", tick.Price, domain.ErrMalformedTicker)
	}
	volume, _ := strconv.ParseFloat(tick.Volume, 64)

	return domain.MarketSample{
		Symbol:     symbol,
		Venue:      c.Name(),
		Price:      price,
		Volume:     volume,
		ObservedAt: time.Now().UTC(),
	}, nil
}

// do performs a signed request against the Coinbase Exchange API and decodes
// the JSON response into out.
func (c *Coinbase) do(ctx context.Context, method, path string, body []byte, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("CB-ACCESS-KEY", c.apiKey)
	req.Header.Set("CB-ACCESS-TIMESTAMP", ts)
	req.Header.Set("CB-ACCESS-PASSPHRASE", c.passphrase)
	req.Header.Set("CB-ACCESS-SIGN", c.sign(ts, method, path, body))

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// sign computes the CB-ACCESS-SIGN header value. The API secret is
// base64-encoded; if decoding fails the raw bytes are used so the caller gets
// an obviously-wrong signature rather than a panic.
func (c *Coinbase) sign(ts, method, path string, body []byte) string {
	key, err := base64.StdEncoding.DecodeString(c.secret)
	if err != nil {
		key = []byte(c.secret)
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(ts + method + path))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
