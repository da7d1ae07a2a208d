/**
 * @description
 * API Route definitions.
 * Sets up the router groups and assigns handlers.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/api/handlers
 * - backend/internal/api/middleware
 * - backend/internal/services
 * - backend/internal/store
 */

package api

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/thriftup/backend/internal/api/handlers"
	"github.com/thriftup/backend/internal/api/middleware"
	"github.com/thriftup/backend/internal/config"
	"github.com/thriftup/backend/internal/services"
	"github.com/thriftup/backend/internal/store"
	"gorm.io/gorm"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, db *gorm.DB, rdb *redis.Client, cfg *config.Config) {
	// 1. Initialize Middleware
	if err := middleware.InitAuthMiddleware(cfg); err != nil {
		log.Printf("Failed to init auth middleware: %v", err)
		// We don't panic here to allow app to start in dev modes without valid keys,
		// but protected routes will fail.
	}

	// 2. Initialize Stores and Services
	auctionStore := store.NewGormAuctionStore(db)
	eventStore := store.NewGormEventStore(db)
	auctionService := services.NewAuctionService(auctionStore, rdb)
	eventService := services.NewEventService(eventStore)
	bidStreamHub := services.NewBidStreamHub(rdb, services.BidUpdateChannel)

	// 3. Initialize Handlers
	userHandler := handlers.NewUserHandler(db, auctionService, eventService)
	listingHandler := handlers.NewListingHandler(db)
	auctionHandler := handlers.NewAuctionHandler(db, auctionService, bidStreamHub)
	eventHandler := handlers.NewEventHandler(db, eventService)
	communityHandler := handlers.NewCommunityHandler(db)

	// 4. Define Routes
	apiGroup := app.Group("/api")
	v1 := apiGroup.Group("/v1")

	// Public Routes
	v1.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Marketplace (Public)
	listings := v1.Group("/listings")
	listings.Get("/", listingHandler.ListListings)
	listings.Get("/:id", listingHandler.GetListing)

	// Auctions (Public reads)
	auctions := v1.Group("/auctions")
	auctions.Get("/active", auctionHandler.ListActive)
	auctions.Get("/stream", auctionHandler.StreamBidUpdates)
	auctions.Get("/:id", auctionHandler.GetAuction)
	auctions.Get("/:id/bids", auctionHandler.ListBids)

	// Events (Public reads)
	events := v1.Group("/events")
	events.Get("/", eventHandler.ListEvents)
	events.Get("/:id", eventHandler.GetEvent)
	events.Get("/:id/attendees", eventHandler.ListAttendees)

	// Community (Public reads)
	v1.Get("/posts", communityHandler.ListPosts)

	// Protected Routes
	listings.Post("/", middleware.Protected(), listingHandler.CreateListing)

	auctions.Post("/", middleware.Protected(), auctionHandler.CreateAuction)
	auctions.Post("/:id/buy-now", middleware.Protected(), auctionHandler.BuyNow)
	v1.Post("/bids", middleware.Protected(), auctionHandler.PlaceBid)

	events.Post("/", middleware.Protected(), eventHandler.CreateEvent)
	events.Post("/:id/rsvp", middleware.Protected(), eventHandler.Join)
	events.Delete("/:id/rsvp", middleware.Protected(), eventHandler.Cancel)

	v1.Post("/posts", middleware.Protected(), communityHandler.CreatePost)

	user := v1.Group("/user", middleware.Protected())
	user.Post("/sync", userHandler.SyncUser)
	user.Get("/me", userHandler.GetMe)
	user.Get("/dashboard", userHandler.Dashboard)
	user.Get("/events", eventHandler.MyEvents)
}
