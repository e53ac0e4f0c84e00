package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr         string
	DBDSN            string
	WebSocketOrigin  string
	InternalToken    string
	TickInterval     time.Duration
	StartingCash     string
	LiquidationGrace time.Duration
	HistoryLimit     int
	FeedEnabled      bool
	FeedWSURL        string
	FeedRESTURL      string
}

func Load() (Config, error) {
	var c Config
	var missing []string
	c.HTTPAddr = os.Getenv("HTTP_ADDR")
	if c.HTTPAddr == "" {
		missing = append(missing, "HTTP_ADDR")
	}
	c.DBDSN = os.Getenv("DB_DSN")
	if c.DBDSN == "" {
		missing = append(missing, "DB_DSN")
	}
	c.WebSocketOrigin = os.Getenv("WS_ORIGIN")
	if c.WebSocketOrigin == "" {
		missing = append(missing, "WS_ORIGIN")
	}
	c.InternalToken = os.Getenv("INTERNAL_API_TOKEN")
	if c.InternalToken == "" {
		missing = append(missing, "INTERNAL_API_TOKEN")
	}
	c.TickInterval = time.Second
	if raw := os.Getenv("TICK_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return c, errors.New("invalid TICK_INTERVAL")
		}
		c.TickInterval = d
	}
	c.StartingCash = os.Getenv("STARTING_CASH")
	if c.StartingCash == "" {
		c.StartingCash = "250"
	}
	c.LiquidationGrace = 3 * time.Second
	if raw := os.Getenv("LIQUIDATION_GRACE"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			return c, errors.New("invalid LIQUIDATION_GRACE")
		}
		c.LiquidationGrace = d
	}
	c.HistoryLimit = 300
	if raw := os.Getenv("PRICE_HISTORY_LIMIT"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c, errors.New("invalid PRICE_HISTORY_LIMIT")
		}
		c.HistoryLimit = n
	}
	if raw := os.Getenv("FEED_ENABLED"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return c, errors.New("invalid FEED_ENABLED")
		}
		c.FeedEnabled = b
	}
	c.FeedWSURL = os.Getenv("FEED_WS_URL")
	if c.FeedWSURL == "" {
		c.FeedWSURL = "wss://stream.binance.com:9443/stream"
	}
	c.FeedRESTURL = os.Getenv("FEED_REST_URL")
	if c.FeedRESTURL == "" {
		c.FeedRESTURL = "https://api.binance.com"
	}
	if len(missing) > 0 {
		return c, errors.New("missing required env: " + strings.Join(missing, ","))
	}
	return c, nil
}
