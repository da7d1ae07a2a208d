/**
 * @description
 * GORM-backed AuctionStore.
 * Owns every write that touches the auctions ledger so the two-write pattern
 * (append bid, advance ledger) is always wrapped in one transaction.
 *
 * @dependencies
 * - gorm.io/gorm
 * - backend/internal/models
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/thriftup/backend/internal/marketerrors"
	"github.com/thriftup/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAuctionStore implements AuctionStore on PostgreSQL
type GormAuctionStore struct {
	db *gorm.DB
}

func NewGormAuctionStore(db *gorm.DB) *GormAuctionStore {
	return &GormAuctionStore{db: db}
}

func (s *GormAuctionStore) GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	var auction models.Auction
	if err := s.db.WithContext(ctx).First(&auction, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, marketerrors.ErrAuctionNotFound
		}
		return nil, err
	}
	return &auction, nil
}

func (s *GormAuctionStore) GetAuctionDetail(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	var auction models.Auction
	err := s.db.WithContext(ctx).
		Preload("Listing").
		Preload("Seller").
		First(&auction, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, marketerrors.ErrAuctionNotFound
		}
		return nil, err
	}
	return &auction, nil
}

func (s *GormAuctionStore) ListActive(ctx context.Context, limit int) ([]models.Auction, error) {
	var auctions []models.Auction
	err := s.db.WithContext(ctx).
		Preload("Listing").
		Where("status = ?", models.AuctionStatusActive).
		Order("end_time ASC").
		Limit(limit).
		Find(&auctions).Error
	if err != nil {
		return nil, err
	}
	return auctions, nil
}

func (s *GormAuctionStore) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Auction, error) {
	var auctions []models.Auction
	err := s.db.WithContext(ctx).
		Preload("Listing").
		Where("seller_id = ?", sellerID).
		Order("end_time DESC").
		Limit(limit).
		Find(&auctions).Error
	if err != nil {
		return nil, err
	}
	return auctions, nil
}

// CreateAuction persists the bundled listing + auction pair. The auction page
// form submits both at once, so a failed auction insert must not leave an
// orphaned listing behind.
func (s *GormAuctionStore) CreateAuction(ctx context.Context, listing *models.Listing, auction *models.Auction) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(listing).Error; err != nil {
			return err
		}
		auction.ListingID = listing.ID
		return tx.Create(auction).Error
	})
}

// CreateAuctionForListing attaches an auction to a listing the seller already
// created. The listing row is locked while it is checked and flipped to
// auction mode.
func (s *GormAuctionStore) CreateAuctionForListing(ctx context.Context, auction *models.Auction) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listing models.Listing
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&listing, "id = ?", auction.ListingID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return marketerrors.ErrListingNotFound
			}
			return err
		}
		if listing.UserID != auction.SellerID {
			return marketerrors.ErrNotListingOwner
		}

		err = tx.Model(&models.Listing{}).
			Where("id = ?", listing.ID).
			Updates(map[string]interface{}{
				"is_auction": true,
				"price":      auction.StartingPrice,
				"updated_at": time.Now(),
			}).Error
		if err != nil {
			return err
		}

		return tx.Create(auction).Error
	})
}

func (s *GormAuctionStore) ListBids(ctx context.Context, auctionID uuid.UUID) ([]models.Bid, error) {
	var bids []models.Bid
	err := s.db.WithContext(ctx).
		Preload("Bidder").
		Where("auction_id = ?", auctionID).
		Order("bid_amount DESC").
		Find(&bids).Error
	if err != nil {
		return nil, err
	}
	return bids, nil
}

// RecordBid appends the bid and advances the ledger atomically. The ledger
// update is conditional on current_bid still holding the value the caller
// validated against, so two bidders racing on the same stale read cannot both
// win: the slower write affects zero rows and surfaces ErrConflict.
func (s *GormAuctionStore) RecordBid(ctx context.Context, bid *models.Bid, update LedgerUpdate) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.Auction{}).
			Where("id = ?", bid.AuctionID).
			Where("status <> ?", models.AuctionStatusCompleted)

		if update.ExpectedCurrentBid == nil {
			q = q.Where("current_bid IS NULL")
		} else {
			q = q.Where("current_bid = ?", *update.ExpectedCurrentBid)
		}

		fields := map[string]interface{}{
			"current_bid":       update.CurrentBid,
			"highest_bidder_id": update.HighestBidderID,
			"updated_at":        time.Now(),
		}
		if update.Complete {
			fields["status"] = models.AuctionStatusCompleted
		}

		res := q.Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}

		return tx.Create(bid).Error
	})
}

// SweepStatuses advances stale lifecycle states. The in-operation time checks
// in the service remain authoritative; this keeps list endpoints honest
// between requests.
func (s *GormAuctionStore) SweepStatuses(ctx context.Context, now time.Time) (int64, int64, error) {
	activated := s.db.WithContext(ctx).
		Model(&models.Auction{}).
		Where("status = ? AND start_time <= ? AND end_time > ?", models.AuctionStatusScheduled, now, now).
		Update("status", models.AuctionStatusActive)
	if activated.Error != nil {
		return 0, 0, activated.Error
	}

	completed := s.db.WithContext(ctx).
		Model(&models.Auction{}).
		Where("status <> ? AND end_time <= ?", models.AuctionStatusCompleted, now).
		Update("status", models.AuctionStatusCompleted)
	if completed.Error != nil {
		return activated.RowsAffected, 0, completed.Error
	}

	return activated.RowsAffected, completed.RowsAffected, nil
}
