package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 10 * time.Second
	initialBackoff   = time.Second
	maxBackoff       = 30 * time.Second
)

// BinanceAdapter subscribes to the combined ticker stream and keeps the last
// traded price per symbol. A REST snapshot primes the cache before the first
// stream message arrives.
type BinanceAdapter struct {
	wsURL   string
	restURL string
	client  *http.Client

	mu      sync.RWMutex
	symbols []string
	prices  map[string]float64
	// bumped by Reload so the run loop drops the stale connection
	generation int
}

func NewBinanceAdapter(wsURL, restURL string, symbols []string) *BinanceAdapter {
	return &BinanceAdapter{
		wsURL:   strings.TrimRight(wsURL, "/"),
		restURL: strings.TrimRight(restURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
		symbols: symbols,
		prices:  make(map[string]float64),
	}
}

func (a *BinanceAdapter) LatestPrice(symbol string) (float64, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	price, ok := a.prices[symbol]
	return price, ok && price > 0
}

// Reload replaces the subscription set. The run loop notices the generation
// bump, closes the current stream and redials with the new set.
func (a *BinanceAdapter) Reload(symbols []string) {
	a.mu.Lock()
	a.symbols = symbols
	a.generation++
	a.mu.Unlock()
}

func (a *BinanceAdapter) Run(ctx context.Context) {
	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			return
		}
		a.mu.RLock()
		symbols := a.symbols
		gen := a.generation
		a.mu.RUnlock()

		if len(symbols) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			continue
		}

		a.prime(ctx, symbols)
		if err := a.stream(ctx, symbols, gen); err != nil {
			log.Printf("[feed] stream ended: %v, retrying in %s", err, backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		// clean exit means a deliberate resubscribe
		backoff = initialBackoff
	}
}

// prime fetches the current price of each symbol over REST so positions can
// open against external instruments before the stream warms up.
func (a *BinanceAdapter) prime(ctx context.Context, symbols []string) {
	for _, symbol := range symbols {
		price, err := a.fetchPrice(ctx, symbol)
		if err != nil {
			log.Printf("[feed] snapshot %s: %v", symbol, err)
			continue
		}
		a.setPrice(symbol, price)
	}
}

func (a *BinanceAdapter) fetchPrice(ctx context.Context, symbol string) (float64, error) {
	url := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", a.restURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var body struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(body.Price, 64)
}

type tickerMessage struct {
	Stream string `json:"stream"`
	Data   struct {
		Symbol    string `json:"s"`
		LastPrice string `json:"c"`
	} `json:"data"`
}

// stream holds one websocket connection open and feeds the price cache until
// the connection drops, ctx is cancelled or Reload bumps the generation.
func (a *BinanceAdapter) stream(ctx context.Context, symbols []string, gen int) error {
	streams := make([]string, len(symbols))
	for i, symbol := range symbols {
		streams[i] = strings.ToLower(symbol) + "@ticker"
	}
	url := a.wsURL + "?streams=" + strings.Join(streams, "/")

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	log.Printf("[feed] connected, %d streams", len(streams))

	// watcher closes the connection to unblock ReadMessage
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-watchDone:
				return
			case <-ticker.C:
				a.mu.RLock()
				stale := a.generation != gen
				a.mu.RUnlock()
				if stale {
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			a.mu.RLock()
			stale := a.generation != gen
			a.mu.RUnlock()
			if stale {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		var msg tickerMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Data.Symbol == "" {
			continue
		}
		price, err := strconv.ParseFloat(msg.Data.LastPrice, 64)
		if err != nil || price <= 0 {
			continue
		}
		a.setPrice(msg.Data.Symbol, price)
	}
}

func (a *BinanceAdapter) setPrice(symbol string, price float64) {
	a.mu.Lock()
	a.prices[symbol] = price
	a.mu.Unlock()
}
