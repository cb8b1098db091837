package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lucidlabs/arbot/internal/domain"
)

const (
	handshakeTimeout = 15 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// binanceTicker is the 24h ticker payload pushed on <symbol>@ticker streams.
type binanceTicker struct {
	EventTime int64  `json:"E"`
	LastPrice string `json:"c"`
	Volume    string `json:"v"`
}

// tickerStream holds one live Binance ticker subscription for a single
// symbol. A stream is single-use: runOnce connects, reads until the
// connection drops or ctx is cancelled, and returns.
type tickerStream struct {
	wsHost string
	symbol string
	venue  string
	onTick SampleHandler
}

// streamURL builds the combined-stream endpoint for the symbol, e.g.
// wss://stream.binance.com:9443/ws/btcusdt@ticker.
func (s *tickerStream) streamURL() string {
	sym := strings.ToLower(strings.ReplaceAll(s.symbol, "/", ""))
	return strings.TrimRight(s.wsHost, "/") + "/" + sym + "@ticker"
}

// runOnce dials the stream and pumps ticks into the handler until the
// connection fails or ctx is done. Malformed payloads are dropped, not fatal.
func (s *tickerStream) runOnce(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, s.streamURL(), nil)
	if err != nil {
		return fmt.Errorf("feed: dial %s: %w", s.streamURL(), err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Close the connection when ctx is cancelled so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				deadline := time.Now().Add(10 * time.Second)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("feed: read %s %s: %w", s.venue, s.symbol, domain.ErrWSDisconnect)
		}
		sample, err := s.parse(data)
		if err != nil {
			// Drop malformed ticks; the stream keeps running.
			continue
		}
		s.onTick(sample)
	}
}

func (s *tickerStream) parse(data []byte) (domain.MarketSample, error) {
	var tick binanceTicker
	if err := json.Unmarshal(data, &tick); err != nil {
		return domain.MarketSample{}, fmt.Errorf("feed: %w: %v", domain.ErrMalformedTicker, err)
	}
	price, err := strconv.ParseFloat(tick.LastPrice, 64)
	if err != nil || price <= 0 {
		return domain.MarketSample{}, fmt.Errorf("feed: %w: bad price %q", domain.ErrMalformedTicker, tick.LastPrice)
	}
	volume, _ := strconv.ParseFloat(tick.Volume, 64)

	observed := time.Now().UTC()
	if tick.EventTime > 0 {
		observed = time.UnixMilli(tick.EventTime).UTC()
	}
	return domain.MarketSample{
		Symbol:     s.symbol,
		Venue:      s.venue,
		Price:      price,
		Volume:     volume,
		ObservedAt: observed,
	}, nil
}
