package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	exdb "github.com/hakimelghazi/orbital-market/db"
	"github.com/hakimelghazi/orbital-market/internal/api"
	"github.com/hakimelghazi/orbital-market/internal/config"
	"github.com/hakimelghazi/orbital-market/internal/engine"
	"github.com/hakimelghazi/orbital-market/internal/inventory"
	"github.com/hakimelghazi/orbital-market/pricefeed"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("parse log level")
	}
	zerolog.SetGlobalLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	// 1) optional trade log
	opts := []engine.Option{engine.WithLogger(log.Logger)}
	var trades api.TradeLister
	if cfg.DatabaseURL != "" {
		pool, err := exdb.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store := exdb.NewTradeStore(pool)
		opts = append(opts, engine.WithTradeStore(store))
		trades = store
	} else {
		log.Warn().Msg("DATABASE_URL not set, transactions are not persisted")
	}

	// 2) one engine per market
	ex := engine.NewExchange(cfg.CommandBuffer, opts...)
	for _, m := range cfg.Markets {
		if _, err := ex.Open(engine.Market{Name: m.Name, Location: m.ID, Position: m.Position}); err != nil {
			return err
		}
	}

	ledger := inventory.NewLedger()
	for _, tr := range cfg.Traders {
		ledger.Open(tr.ID, tr.Capacity, tr.Credits)
		for c, n := range tr.Goods {
			if _, err := ledger.Deposit(tr.ID, c, n); err != nil {
				return err
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ex.Run(gctx) })

	// 3) seed the books and settle whatever crosses
	seeds, err := cfg.SeedOrders()
	if err != nil {
		return err
	}
	for _, o := range seeds {
		res, err := ex.Place(gctx, o)
		if err != nil {
			return err
		}
		for _, tx := range res.Transactions {
			s, err := ledger.Apply(tx)
			if err != nil {
				return err
			}
			log.Info().
				Stringer("commodity", tx.Commodity).
				Int64("amount", tx.Amount).
				Int64("price", tx.Price).
				Int64("shortfall", s.Shortfall).
				Int64("overflow", s.Overflow).
				Msg("seed transaction settled")
		}
	}
	log.Info().Int("markets", len(cfg.Markets)).Int("orders", len(seeds)).Msg("markets seeded")

	// 4) quotes
	cache := pricefeed.NewPriceCache()
	g.Go(func() error {
		pricefeed.StartPriceUpdater(gctx, pricefeed.NewBookFeed(ex), cache, pricefeed.Keys(ex), cfg.QuoteInterval, log.Logger)
		return nil
	})

	// 5) read-only HTTP
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewRouter(ex, cache, trades, log.Logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		log.Info().Str("addr", cfg.ListenAddr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
