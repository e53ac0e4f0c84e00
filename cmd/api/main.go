package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"lv-perps/internal/config"
	"lv-perps/internal/db"
	"lv-perps/internal/engine"
	"lv-perps/internal/feed"
	"lv-perps/internal/httpserver"
	"lv-perps/internal/instruments"
	"lv-perps/internal/marketdata"
	"lv-perps/internal/persist"
	"lv-perps/internal/players"
	"lv-perps/internal/pricesim"
	"lv-perps/internal/ticker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	startingCash, err := decimal.NewFromString(cfg.StartingCash)
	if err != nil {
		log.Fatal("invalid STARTING_CASH: ", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	instStore := instruments.NewStore(pool)
	registry := instruments.NewRegistry(instStore)
	if err := registry.Reload(ctx); err != nil {
		log.Fatal("load instruments: ", err)
	}

	pg := persist.NewPG(pool)
	queue := persist.NewQueue(pg, 1024)
	go queue.Run(ctx)

	manager := engine.NewManager(registry, queue, pg, engine.Options{
		StartingCash:     startingCash,
		LiquidationGrace: cfg.LiquidationGrace,
	})

	var adapter feed.Adapter = feed.Disabled{}
	if cfg.FeedEnabled {
		adapter = feed.NewBinanceAdapter(cfg.FeedWSURL, cfg.FeedRESTURL, registry.ExternalSymbols())
	}
	go adapter.Run(ctx)

	sim := pricesim.New(pricesim.DefaultParams(), adapter, nil)
	history := pricesim.NewHistory(cfg.HistoryLimit)
	bus := marketdata.NewBus()

	scheduler := ticker.NewScheduler(registry, sim, manager, history, bus, cfg.TickInterval)
	go scheduler.Run(ctx)

	// flush simulated prices so a restart resumes near the last quote
	go flushPrices(ctx, registry, instStore)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		PositionHandler: engine.NewHandler(manager),
		PlayerHandler:   players.NewHandler(manager, pg),
		MarketHandler:   marketdata.NewHandler(bus, history),
		InstrumentHandler: instruments.NewHandler(instStore, registry, func() {
			adapter.Reload(registry.ExternalSymbols())
		}),
		PriceWS:       marketdata.NewPriceWS(bus, cfg.WebSocketOrigin),
		InternalToken: cfg.InternalToken,
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	log.Printf("server listening on %s", cfg.HTTPAddr)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
		sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer scancel()
		_ = srv.Shutdown(sctx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

func flushPrices(ctx context.Context, registry *instruments.Registry, store *instruments.Store) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			for _, inst := range registry.Active() {
				if inst.External || inst.CurrentPrice <= 0 {
					continue
				}
				if err := store.SavePrice(ctx, inst.Symbol, inst.CurrentPrice); err != nil {
					log.Printf("[instruments] flush %s: %v", inst.Symbol, err)
					break
				}
			}
		}
	}
}
