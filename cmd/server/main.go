// Command tulips-api starts the marketplace engine and its HTTP surface.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tulips/tulips-api/internal/config"
	"github.com/tulips/tulips-api/internal/fees"
	"github.com/tulips/tulips-api/internal/handlers"
	"github.com/tulips/tulips-api/internal/ledger"
	"github.com/tulips/tulips-api/internal/market"
	"github.com/tulips/tulips-api/internal/registry"
	"github.com/tulips/tulips-api/internal/services"
	"github.com/tulips/tulips-api/internal/store"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	policy := fees.New(fees.Params{
		MintFeeMinPct:  cfg.Engine.MintFeeMinPct,
		MintFeeMaxPct:  cfg.Engine.MintFeeMaxPct,
		MinRaisePct:    cfg.Engine.MinRaisePct,
		BidCeilingPct:  cfg.Engine.BidCeilingPct,
		TransferFeePct: cfg.Engine.TransferFeePct,
		PayoutAmount:   cfg.Engine.PayoutAmount,
	}, nil)

	engine := market.New(
		ledger.New(policy, cfg.Engine.Treasury),
		registry.New(),
		policy,
		nil,
	)

	// Optional snapshot durability
	var snapshots services.SnapshotStore
	if cfg.Database.Enabled {
		db, err := store.NewDatabase(cfg.Database)
		if err != nil {
			logger.Fatal("connect database", zap.Error(err))
		}
		defer db.Close()

		repo := store.NewSnapshotRepository(db)
		if err := repo.EnsureSchema(); err != nil {
			logger.Fatal("ensure schema", zap.Error(err))
		}
		state, err := repo.Load()
		if err != nil {
			logger.Fatal("load snapshot", zap.Error(err))
		}
		engine.Restore(state)
		snapshots = repo
		logger.Info("state restored",
			zap.Int("accounts", len(state.Accounts)),
			zap.Int("nfts", len(state.NFTs)),
			zap.Int("auctions", len(state.Auctions)),
		)
	}

	hub := handlers.NewHub(logger)
	go hub.Run()

	svc := services.NewMarketService(engine, snapshots, hub, logger)
	router := handlers.NewRouter(svc, hub)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.Int("port", cfg.Server.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
