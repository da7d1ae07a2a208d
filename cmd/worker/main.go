/**
 * @description
 * Worker Service Entry Point.
 * Responsible for background tasks:
 * 1. Sweeping auction lifecycle statuses (scheduled -> active -> completed).
 * 2. Keeping the active-auction cache warm between requests.
 *
 * The bidding operations check server time themselves, so the sweep is a
 * freshness concern for list endpoints, not a correctness gate.
 *
 * @dependencies
 * - backend/internal/config
 * - backend/internal/db
 * - backend/internal/services
 * - backend/internal/store
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thriftup/backend/internal/config"
	"github.com/thriftup/backend/internal/db"
	"github.com/thriftup/backend/internal/logger"
	"github.com/thriftup/backend/internal/services"
	"github.com/thriftup/backend/internal/store"
)

func main() {
	logger.Info("🔥 Starting ThriftUp Worker...")

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	// 2. Connect DBs
	pgDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		logger.Fatal("Postgres connection failed: %v", err)
	}

	redisClient, err := db.ConnectRedis(cfg)
	if err != nil {
		logger.Fatal("Redis connection failed: %v", err)
	}

	// 3. Initialize Services
	auctionService := services.NewAuctionService(store.NewGormAuctionStore(pgDB), redisClient)

	// 4. Context with Cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. Sweep Loop
	go func() {
		ticker := time.NewTicker(cfg.Worker.SweepInterval)
		defer ticker.Stop()

		// Initial pass
		runSweep(ctx, auctionService)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runSweep(ctx, auctionService)
			}
		}
	}()

	// 6. Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down worker...")
	cancel()
}

func runSweep(ctx context.Context, auctionService *services.AuctionService) {
	if err := auctionService.SweepStatuses(ctx, time.Now()); err != nil {
		logger.Error("Auction sweep failed: %v", err)
		return
	}
	if err := auctionService.RefreshActiveCache(ctx); err != nil {
		logger.Error("Active auction cache refresh failed: %v", err)
	}
}
