package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	config "github.com/avvvet/marketday/configs"
	"github.com/avvvet/marketday/internal/authtoken"
	"github.com/avvvet/marketday/internal/bus"
	"github.com/avvvet/marketday/internal/clockengine"
	"github.com/avvvet/marketday/internal/httpapi"
	"github.com/avvvet/marketday/internal/minigame"
	"github.com/avvvet/marketday/internal/natsbridge"
	"github.com/avvvet/marketday/internal/script"
	"github.com/avvvet/marketday/internal/store"
	"github.com/avvvet/marketday/internal/tick"
	"github.com/avvvet/marketday/internal/trading"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const serviceName = "engine"

func init() {
	config.Logging(serviceName + "_service_" + config.CreateUniqueInstance(serviceName))
	config.LoadEnv()
}

// priceSource adapts the store/cache/clock trio into minigame.PriceSource
// so the mini-game engine can read the live price without importing
// internal/trading or internal/clockengine directly (spec §9 design
// note — kept as an interface seam on the minigame side).
type priceSource struct {
	store *store.Store
	cache *script.Cache
}

func (p *priceSource) CurrentPrice(ctx context.Context) decimal.Decimal {
	gs, err := p.store.GetGameStatus(ctx)
	if err != nil {
		return decimal.Zero
	}
	state := clockengine.Derive(gs, time.Now())
	if state.CurrentDay <= 0 {
		return gs.InitialPrice
	}
	if d := p.cache.Day(state.CurrentDay); d != nil {
		return d.Price
	}
	return gs.InitialPrice
}

func main() {
	ctx := context.Background()

	st, err := store.Connect(ctx)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer st.Close()

	balance, err := config.LoadGameBalance(envOr("BALANCE_CONFIG", "configs/balance.yaml"))
	if err != nil {
		log.Fatalf("failed to load game balance config: %v", err)
	}

	cache := script.NewCache()
	if err := cache.Reload(ctx, st); err != nil {
		log.Fatalf("failed to warm script cache: %v", err)
	}

	bridge, err := natsbridge.Connect(log.NewEntry(log.StandardLogger()))
	if err != nil {
		log.Errorf("unable to connect to NATS, events side-channel disabled: %v", err)
		bridge = nil
	} else {
		defer bridge.Close()
	}

	hub := bus.NewHub(bridge, log.NewEntry(log.StandardLogger()))
	clock := clockengine.New(st, cache, log.NewEntry(log.StandardLogger()))
	tradingEngine := trading.New(st, cache)

	mg := minigame.New(st, hub, st, &priceSource{store: st, cache: cache}, *balance, log.NewEntry(log.StandardLogger()))
	if err := mg.Rehydrate(ctx); err != nil {
		log.Fatalf("failed to rehydrate mini-game runtime: %v", err)
	}

	auth := authtoken.New()
	loop := tick.New(st, cache, hub, log.NewEntry(log.StandardLogger()))
	if err := loop.Start(); err != nil {
		log.Fatalf("failed to start tick loop: %v", err)
	}
	defer loop.Stop()

	app := httpapi.New(st, cache, clock, tradingEngine, mg, hub, auth, loop, balance, log.NewEntry(log.StandardLogger()))

	server := &http.Server{
		Addr:         config.BindAddr(envOr("PORT", "8000")),
		Handler:      app.Routes(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at %s", serviceName, server.Addr)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("%s service shutdown failed: %+v", serviceName, err)
	}
	log.Infof("%s service gracefully stopped", serviceName)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
