/**
 * @description
 * Auction API Handlers.
 * Exposes the auction ledger (create, read, list active), the bidding
 * operations (place bid, buy now), the bid log, and the live bid-update
 * SSE stream.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 * - backend/internal/api/middleware
 */

package handlers

import (
	"bufio"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thriftup/backend/internal/models"
	"github.com/thriftup/backend/internal/services"
	"gorm.io/gorm"
)

type AuctionHandler struct {
	DB      *gorm.DB
	Service *services.AuctionService
	Hub     *services.BidStreamHub
}

func NewAuctionHandler(db *gorm.DB, service *services.AuctionService, hub *services.BidStreamHub) *AuctionHandler {
	return &AuctionHandler{
		DB:      db,
		Service: service,
		Hub:     hub,
	}
}

// CreateAuctionRequest defines the payload for creating an auction.
// Either listing_id (existing listing) or the listing fields are required.
type CreateAuctionRequest struct {
	ListingID       *uuid.UUID       `json:"listing_id"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Category        string           `json:"category"`
	Condition       string           `json:"condition"`
	ImageURLs       []string         `json:"image_urls"`
	StartingPrice   decimal.Decimal  `json:"starting_price"`
	ReservePrice    *decimal.Decimal `json:"reserve_price"`
	BuyNowPrice     *decimal.Decimal `json:"buy_now_price"`
	MinBidIncrement decimal.Decimal  `json:"min_bid_increment"`
	StartTime       time.Time        `json:"start_time"`
	EndTime         time.Time        `json:"end_time"`
}

// PlaceBidRequest defines the payload for placing a bid
type PlaceBidRequest struct {
	AuctionID uuid.UUID       `json:"auction_id"`
	BidAmount decimal.Decimal `json:"bid_amount"`
}

// AuctionResponse decorates the ledger row with derived read-only fields
type AuctionResponse struct {
	models.Auction
	MinimumNextBid decimal.Decimal  `json:"minimum_next_bid"`
	TimeRemaining  models.Countdown `json:"time_remaining"`
	ReserveMet     bool             `json:"reserve_met"`
}

func newAuctionResponse(a *models.Auction) AuctionResponse {
	return AuctionResponse{
		Auction:        *a,
		MinimumNextBid: a.MinimumNextBid(),
		TimeRemaining:  a.TimeRemaining(time.Now()),
		ReserveMet:     a.ReserveMet(),
	}
}

// ListActive returns active auctions joined with listing summaries
// GET /api/v1/auctions/active
func (h *AuctionHandler) ListActive(c *fiber.Ctx) error {
	auctions, err := h.Service.ListActive(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": auctions})
}

// GetAuction returns one auction with its listing and derived state
// GET /api/v1/auctions/:id
func (h *AuctionHandler) GetAuction(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid auction id"})
	}

	auction, err := h.Service.GetAuction(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": newAuctionResponse(auction)})
}

// ListBids returns the bid log, leading bid first
// GET /api/v1/auctions/:id/bids
func (h *AuctionHandler) ListBids(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid auction id"})
	}

	bids, err := h.Service.ListBids(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": bids})
}

// CreateAuction creates an auction (with its bundled listing when no
// listing_id is supplied)
// POST /api/v1/auctions
func (h *AuctionHandler) CreateAuction(c *fiber.Ctx) error {
	// 1. Resolve authenticated seller
	user, err := currentUser(c, h.DB)
	if err != nil {
		return respondError(c, err)
	}

	// 2. Parse Body
	var req CreateAuctionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "details": err.Error()})
	}

	// 3. Create
	auction, err := h.Service.CreateAuction(c.Context(), user.ID, services.CreateAuctionInput{
		ListingID:       req.ListingID,
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Condition:       req.Condition,
		ImageURLs:       req.ImageURLs,
		StartingPrice:   req.StartingPrice,
		ReservePrice:    req.ReservePrice,
		BuyNowPrice:     req.BuyNowPrice,
		MinBidIncrement: req.MinBidIncrement,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": auction})
}

// PlaceBid validates and records a bid against the auction ledger
// POST /api/v1/bids
func (h *AuctionHandler) PlaceBid(c *fiber.Ctx) error {
	// 1. Resolve authenticated bidder
	user, err := currentUser(c, h.DB)
	if err != nil {
		return respondError(c, err)
	}

	// 2. Parse Body
	var req PlaceBidRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "details": err.Error()})
	}
	if req.AuctionID == uuid.Nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "auction_id is required"})
	}

	// 3. Place the bid
	bid, err := h.Service.PlaceBid(c.Context(), req.AuctionID, user.ID, req.BidAmount)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": bid})
}

// BuyNow ends the auction immediately at the buy-now price
// POST /api/v1/auctions/:id/buy-now
func (h *AuctionHandler) BuyNow(c *fiber.Ctx) error {
	user, err := currentUser(c, h.DB)
	if err != nil {
		return respondError(c, err)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid auction id"})
	}

	bid, err := h.Service.BuyNow(c.Context(), id, user.ID)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": bid})
}

// StreamBidUpdates streams live bid updates over SSE
// GET /api/v1/auctions/stream
func (h *AuctionHandler) StreamBidUpdates(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	requestCtx := c.Context()
	updates, unsubscribe := h.Hub.Subscribe()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()

		requestDone := requestCtx.Done()

		for {
			select {
			case <-requestDone:
				return
			case msg, ok := <-updates:
				if !ok {
					return
				}
				fmt.Fprintf(w, "data: %s\n\n", msg)
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})

	return nil
}
