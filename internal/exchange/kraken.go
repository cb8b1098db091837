package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/lucidlabs/arbot/internal/domain"
)

const krakenBaseURL = "https://api.kraken.com"

// Kraken places market orders and fetches tickers through the Kraken REST
// API. Private calls carry an API-Sign header: HMAC-SHA512 over
// path + SHA256(nonce + postdata) with the base64-decoded secret as key.
// Kraken has no public sandbox; the sandbox flag is accepted and ignored.
type Kraken struct {
	apiKey  string
	secret  string
	client  *http.Client
	limiter *rate.Limiter
}

// NewKraken creates a Kraken adapter.
func NewKraken(apiKey, secret string) *Kraken {
	return &Kraken{
		apiKey:  apiKey,
		secret:  secret,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: newLimiter(),
	}
}

// Name returns the venue identifier.
func (k *Kraken) Name() string { return "kraken" }

// CreateMarketBuyOrder submits a market buy for amount base units.
func (k *Kraken) CreateMarketBuyOrder(ctx context.Context, symbol string, amount float64) (domain.OrderResult, error) {
	return k.addOrder(ctx, symbol, amount, domain.OrderSideBuy)
}

// CreateMarketSellOrder submits a market sell for amount base units.
func (k *Kraken) CreateMarketSellOrder(ctx context.Context, symbol string, amount float64) (domain.OrderResult, error) {
	return k.addOrder(ctx, symbol, amount, domain.OrderSideSell)
}

type krakenAddOrderResponse struct {
	Error  []string `json:"error"`
	Result struct {
		TxID []string `json:"txid"`
	} `json:"result"`
}

func (k *Kraken) addOrder(ctx context.Context, symbol string, amount float64, side domain.OrderSide) (domain.OrderResult, error) {
	if err := k.limiter.Wait(ctx); err != nil {
		return domain.OrderResult{}, fmt.Errorf("kraken: rate limit wait: %w", err)
	}

	const path = "/0/private/AddOrder"
	nonce := strconv.FormatInt(time.Now().UnixMilli(), 10)
	form := url.Values{
		"nonce":     {nonce},
		"ordertype": {"market"},
		"type":      {string(side)},
		"pair":      {concatSymbol(symbol)},
		"volume":    {strconv.FormatFloat(amount, 'f', -1, 64)},
	}
	postdata := form.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, krakenBaseURL+path, strings.NewReader(postdata))
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("kraken: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("API-Key", k.apiKey)
	req.Header.Set("API-Sign", k.sign(path, nonce, postdata))

	var resp krakenAddOrderResponse
	if err := k.send(req, &resp); err != nil {
		return domain.OrderResult{}, fmt.Errorf("kraken: %s order %s: %w", side, symbol, err)
	}
	if len(resp.Error) > 0 {
		return domain.OrderResult{}, fmt.Errorf("kraken: %s order %s rejected: %s", side, symbol, strings.Join(resp.Error, "; "))
	}

	orderID := ""
	if len(resp.Result.TxID) > 0 {
		orderID = resp.Result.TxID[0]
	}
	return domain.OrderResult{
		OrderID:  orderID,
		Venue:    k.Name(),
		Symbol:   symbol,
		Side:     side,
		Amount:   amount,
		FilledAt: time.Now().UTC(),
	}, nil
}

type krakenTickerResponse struct {
	Error  []string `json:"error"`
	Result map[string]struct {
		C []string `json:"c"` // last trade [price, lot volume]
		V []string `json:"v"` // volume [today, 24h]
	} `json:"result"`
}

// FetchTicker returns the latest trade price for the pair.
func (k *Kraken) FetchTicker(ctx context.Context, symbol string) (domain.MarketSample, error) {
	if err := k.limiter.Wait(ctx); err != nil {
		return domain.MarketSample{}, fmt.Errorf("kraken: rate limit wait: %w", err)
	}

	u := krakenBaseURL + "/0/public/Ticker?pair=" + url.QueryEscape(concatSymbol(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.MarketSample{}, fmt.Errorf("kraken: create request: %w", err)
	}

	var resp krakenTickerResponse
	if err := k.send(req, &resp); err != nil {
		return domain.MarketSample{}, fmt.Errorf("kraken: fetch ticker %s: %w", symbol, err)
	}
	if len(resp.Error) > 0 {
		return domain.MarketSample{}, fmt.Errorf("kraken: fetch ticker %s: %s", symbol, strings.Join(resp.Error, "; "))
	}

	// Kraken keys the result by its own pair alias; take the single entry.
	for _, tick := range resp.Result {
		if len(tick.C) == 0 {
			break
		}
		price, err := strconv.ParseFloat(tick.C[0], 64)
		if err != nil {
			return domain.MarketSample{}, fmt.Errorf("kraken: parse ticker price %q: %w", tick.C[0], domain.ErrMalformedTicker)
		}
		var volume float64
		if len(tick.V) > 1 {
			volume, _ = strconv.ParseFloat(tick.V[1], 64)
		}
		return domain.MarketSample{
			Symbol:     symbol,
			Venue:      k.Name(),
			Price:      price,
			Volume:     volume,
			ObservedAt: time.Now().UTC(),
		}, nil
	}
	return domain.MarketSample{}, fmt.Errorf("kraken: fetch ticker %s: %w", symbol, domain.ErrMalformedTicker)
}

func (k *Kraken) send(req *http.Request, out any) error {
	resp, err := k.client.Do(req)
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

// sign computes the API-Sign header value for a private endpoint.
func (k *Kraken) sign(path, nonce, postdata string) string {
	key, err := base64.StdEncoding.DecodeString(k.secret)
	if err != nil {
		key = []byte(k.secret)
	}
	inner := sha256.Sum256([]byte(nonce + postdata))
	mac := hmac.New(sha512.New, key)
	mac.Write([]byte(path))
	mac.Write(inner[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
