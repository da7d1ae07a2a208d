/**
 * @description
 * Service layer for auctions and bidding.
 * Owns the bidding protocol: validation against the ledger, the optimistic
 * append-and-advance write, and the buy-now short circuit. Also maintains the
 * Redis cache of active auctions and publishes bid updates for the SSE stream.
 *
 * @dependencies
 * - backend/internal/store
 * - backend/internal/models
 * - github.com/redis/go-redis/v9
 * - github.com/shopspring/decimal
 */

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/thriftup/backend/internal/logger"
	"github.com/thriftup/backend/internal/marketerrors"
	"github.com/thriftup/backend/internal/models"
	"github.com/thriftup/backend/internal/store"
)

const (
	CacheKeyActiveAuctions = "auctions:active"
	ActiveAuctionsCacheTTL = 30 * time.Second

	BidUpdateChannel = "auctions:bid_updates"

	// ActiveAuctionLimit caps the public active-auction listing
	ActiveAuctionLimit = 50

	// maxBidAttempts bounds the re-validate loop when concurrent bidders
	// collide on the same ledger state
	maxBidAttempts = 5
)

// BidUpdate is the message published on BidUpdateChannel after every
// accepted bid, consumed by the SSE stream
type BidUpdate struct {
	AuctionID uuid.UUID       `json:"auction_id"`
	BidderID  uuid.UUID       `json:"bidder_id"`
	BidAmount decimal.Decimal `json:"bid_amount"`
	Status    string          `json:"status"`
	PlacedAt  time.Time       `json:"placed_at"`
}

// CreateAuctionInput carries the auction form. ListingID attaches the
// auction to an existing listing; when nil, the listing fields below are
// used to create a bundled listing in the same transaction.
type CreateAuctionInput struct {
	ListingID       *uuid.UUID
	Title           string
	Description     string
	Category        string
	Condition       string
	ImageURLs       []string
	StartingPrice   decimal.Decimal
	ReservePrice    *decimal.Decimal
	BuyNowPrice     *decimal.Decimal
	MinBidIncrement decimal.Decimal
	StartTime       time.Time
	EndTime         time.Time
}

type AuctionService struct {
	Store store.AuctionStore
	Redis *redis.Client
}

func NewAuctionService(s store.AuctionStore, rdb *redis.Client) *AuctionService {
	return &AuctionService{
		Store: s,
		Redis: rdb,
	}
}

// CreateAuction validates the form and persists the listing + auction pair.
// Status is active when the start time has already arrived, scheduled otherwise.
func (s *AuctionService) CreateAuction(ctx context.Context, sellerID uuid.UUID, input CreateAuctionInput) (*models.Auction, error) {
	if err := validateAuctionInput(input); err != nil {
		return nil, err
	}

	increment := input.MinBidIncrement
	if increment.IsZero() {
		increment = decimal.NewFromInt(1)
	}

	now := time.Now()
	status := models.AuctionStatusScheduled
	if !input.StartTime.After(now) {
		status = models.AuctionStatusActive
	}

	auction := &models.Auction{
		SellerID:        sellerID,
		StartingPrice:   input.StartingPrice,
		ReservePrice:    input.ReservePrice,
		BuyNowPrice:     input.BuyNowPrice,
		MinBidIncrement: increment,
		StartTime:       input.StartTime,
		EndTime:         input.EndTime,
		Status:          status,
	}

	if input.ListingID != nil {
		auction.ListingID = *input.ListingID
		if err := s.Store.CreateAuctionForListing(ctx, auction); err != nil {
			return nil, err
		}
	} else {
		listing := &models.Listing{
			UserID:      sellerID,
			Title:       input.Title,
			Description: input.Description,
			Category:    input.Category,
			Condition:   input.Condition,
			Price:       input.StartingPrice,
			ImageURLs:   input.ImageURLs,
			Status:      models.ListingStatusActive,
			IsAuction:   true,
		}
		if err := s.Store.CreateAuction(ctx, listing, auction); err != nil {
			return nil, fmt.Errorf("failed to create auction: %w", err)
		}
		auction.Listing = listing
	}

	s.invalidateActiveCache(ctx)
	return auction, nil
}

func validateAuctionInput(input CreateAuctionInput) error {
	if input.ListingID == nil && input.Title == "" {
		return fmt.Errorf("%w: title is required", marketerrors.ErrInvalidInput)
	}
	if !input.StartingPrice.IsPositive() {
		return fmt.Errorf("%w: starting price must be positive", marketerrors.ErrInvalidInput)
	}
	if input.StartTime.IsZero() || input.EndTime.IsZero() {
		return fmt.Errorf("%w: start and end times are required", marketerrors.ErrInvalidInput)
	}
	if !input.EndTime.After(input.StartTime) {
		return fmt.Errorf("%w: end time must be after start time", marketerrors.ErrInvalidInput)
	}
	if input.ReservePrice != nil && !input.ReservePrice.GreaterThan(input.StartingPrice) {
		return fmt.Errorf("%w: reserve price must exceed starting price", marketerrors.ErrInvalidInput)
	}
	if input.BuyNowPrice != nil && !input.BuyNowPrice.GreaterThan(input.StartingPrice) {
		return fmt.Errorf("%w: buy now price must exceed starting price", marketerrors.ErrInvalidInput)
	}
	if input.MinBidIncrement.IsNegative() {
		return fmt.Errorf("%w: minimum bid increment cannot be negative", marketerrors.ErrInvalidInput)
	}
	return nil
}

// GetAuction returns the ledger row with its listing and seller
func (s *AuctionService) GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	return s.Store.GetAuctionDetail(ctx, id)
}

// ListActive returns active auctions, preferring Cache -> DB
func (s *AuctionService) ListActive(ctx context.Context) ([]models.Auction, error) {
	// 1. Try Redis
	if s.Redis != nil {
		val, err := s.Redis.Get(ctx, CacheKeyActiveAuctions).Result()
		if err == nil {
			var auctions []models.Auction
			if err := json.Unmarshal([]byte(val), &auctions); err == nil {
				return auctions, nil
			}
			// If unmarshal fails, fall through to DB
		}
	}

	// 2. Fallback to DB
	auctions, err := s.Store.ListActive(ctx, ActiveAuctionLimit)
	if err != nil {
		return nil, err
	}

	s.cacheActive(ctx, auctions)
	return auctions, nil
}

// ListBids returns the bid log for an auction, leading bid first
func (s *AuctionService) ListBids(ctx context.Context, auctionID uuid.UUID) ([]models.Bid, error) {
	if _, err := s.Store.GetAuction(ctx, auctionID); err != nil {
		return nil, err
	}
	return s.Store.ListBids(ctx, auctionID)
}

// ListBySeller returns a seller's auctions for the dashboard
func (s *AuctionService) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Auction, error) {
	return s.Store.ListBySeller(ctx, sellerID, limit)
}

// PlaceBid validates the bid against the current ledger state and, if it
// holds, appends the bid and advances the ledger in one conditional write.
// A conflicting concurrent bid forces a re-read and re-validation rather
// than a lost update.
func (s *AuctionService) PlaceBid(ctx context.Context, auctionID, bidderID uuid.UUID, amount decimal.Decimal) (*models.Bid, error) {
	for attempt := 1; attempt <= maxBidAttempts; attempt++ {
		auction, err := s.Store.GetAuction(ctx, auctionID)
		if err != nil {
			return nil, err
		}

		if err := validateBid(auction, bidderID, amount, time.Now()); err != nil {
			return nil, err
		}

		bid := &models.Bid{
			AuctionID: auctionID,
			BidderID:  bidderID,
			BidAmount: amount,
			CreatedAt: time.Now().UTC(),
		}
		update := store.LedgerUpdate{
			ExpectedCurrentBid: auction.CurrentBid,
			CurrentBid:         amount,
			HighestBidderID:    bidderID,
		}

		err = s.Store.RecordBid(ctx, bid, update)
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to record bid: %w", err)
		}

		s.invalidateActiveCache(ctx)
		s.publishBidUpdate(ctx, auctionID, bid, string(auction.Status))
		return bid, nil
	}

	// Every attempt lost the race; the latest ledger state decides the message
	auction, err := s.Store.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: minimum bid is %s", marketerrors.ErrBidTooLow, auction.MinimumNextBid().StringFixed(2))
}

// validateBid checks the bidding preconditions against server time
func validateBid(auction *models.Auction, bidderID uuid.UUID, amount decimal.Decimal, now time.Time) error {
	if auction.HasEnded(now) {
		return marketerrors.ErrAuctionEnded
	}
	if !auction.HasStarted(now) {
		return marketerrors.ErrAuctionNotStarted
	}
	if auction.SellerID == bidderID {
		return marketerrors.ErrSelfBid
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: bid amount must be positive", marketerrors.ErrInvalidInput)
	}
	if min := auction.MinimumNextBid(); amount.LessThan(min) {
		return fmt.Errorf("%w: minimum bid is %s", marketerrors.ErrBidTooLow, min.StringFixed(2))
	}
	return nil
}

// BuyNow ends the auction immediately at the buy-now price, recording a final
// bid and completing the ledger in one transition.
func (s *AuctionService) BuyNow(ctx context.Context, auctionID, buyerID uuid.UUID) (*models.Bid, error) {
	for attempt := 1; attempt <= maxBidAttempts; attempt++ {
		auction, err := s.Store.GetAuction(ctx, auctionID)
		if err != nil {
			return nil, err
		}

		if auction.BuyNowPrice == nil {
			return nil, marketerrors.ErrNoBuyNowPrice
		}
		if auction.HasEnded(time.Now()) {
			return nil, marketerrors.ErrAuctionEnded
		}
		if auction.SellerID == buyerID {
			return nil, marketerrors.ErrSelfBid
		}

		bid := &models.Bid{
			AuctionID: auctionID,
			BidderID:  buyerID,
			BidAmount: *auction.BuyNowPrice,
			CreatedAt: time.Now().UTC(),
		}
		update := store.LedgerUpdate{
			ExpectedCurrentBid: auction.CurrentBid,
			CurrentBid:         *auction.BuyNowPrice,
			HighestBidderID:    buyerID,
			Complete:           true,
		}

		err = s.Store.RecordBid(ctx, bid, update)
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to record buy now: %w", err)
		}

		s.invalidateActiveCache(ctx)
		s.publishBidUpdate(ctx, auctionID, bid, string(models.AuctionStatusCompleted))
		return bid, nil
	}

	return nil, marketerrors.ErrAuctionEnded
}

// SweepStatuses advances lifecycle states and refreshes the cache when
// anything moved. Called periodically by the worker.
func (s *AuctionService) SweepStatuses(ctx context.Context, now time.Time) error {
	activated, completed, err := s.Store.SweepStatuses(ctx, now)
	if err != nil {
		return err
	}
	if activated > 0 || completed > 0 {
		logger.Info("Auction sweep: %d activated, %d completed", activated, completed)
		s.invalidateActiveCache(ctx)
	}
	return nil
}

// RefreshActiveCache repopulates the active-auction cache from the database
func (s *AuctionService) RefreshActiveCache(ctx context.Context) error {
	auctions, err := s.Store.ListActive(ctx, ActiveAuctionLimit)
	if err != nil {
		return err
	}
	s.cacheActive(ctx, auctions)
	return nil
}

func (s *AuctionService) cacheActive(ctx context.Context, auctions []models.Auction) {
	if s.Redis == nil {
		return
	}
	data, err := json.Marshal(auctions)
	if err != nil {
		logger.Error("Failed to marshal auctions for cache: %v", err)
		return
	}
	if err := s.Redis.Set(ctx, CacheKeyActiveAuctions, data, ActiveAuctionsCacheTTL).Err(); err != nil {
		logger.Error("Failed to set active auctions cache: %v", err)
	}
}

func (s *AuctionService) invalidateActiveCache(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(ctx, CacheKeyActiveAuctions).Err(); err != nil {
		logger.Error("Failed to invalidate active auctions cache: %v", err)
	}
}

func (s *AuctionService) publishBidUpdate(ctx context.Context, auctionID uuid.UUID, bid *models.Bid, status string) {
	if s.Redis == nil {
		return
	}
	payload, err := json.Marshal(BidUpdate{
		AuctionID: auctionID,
		BidderID:  bid.BidderID,
		BidAmount: bid.BidAmount,
		Status:    status,
		PlacedAt:  bid.CreatedAt,
	})
	if err != nil {
		logger.Error("Failed to marshal bid update: %v", err)
		return
	}
	if err := s.Redis.Publish(ctx, BidUpdateChannel, payload).Err(); err != nil {
		logger.Error("Failed to publish bid update: %v", err)
	}
}
