/**
 * @description
 * Auction and Bid database models.
 * Maps to the 'auctions' (ledger) and 'bids' (append-only log) tables in PostgreSQL.
 *
 * The auction row is the mutable ledger: current_bid and highest_bidder_id always
 * mirror the most recent accepted bid. Bid rows are never edited or deleted.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/google/uuid
 * - github.com/shopspring/decimal
 */

package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AuctionStatus defines the lifecycle of an auction
type AuctionStatus string

const (
	AuctionStatusScheduled AuctionStatus = "scheduled"
	AuctionStatusActive    AuctionStatus = "active"
	AuctionStatusCompleted AuctionStatus = "completed"
)

// Auction represents one sellable item under timed competitive bidding
type Auction struct {
	ID              uuid.UUID        `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	ListingID       uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex" json:"listing_id"`
	SellerID        uuid.UUID        `gorm:"type:uuid;not null;index:idx_auctions_seller" json:"seller_id"`
	StartingPrice   decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"starting_price"`
	CurrentBid      *decimal.Decimal `gorm:"type:numeric(12,2)" json:"current_bid"` // nil until the first accepted bid
	HighestBidderID *uuid.UUID       `gorm:"type:uuid" json:"highest_bidder_id"`
	ReservePrice    *decimal.Decimal `gorm:"type:numeric(12,2)" json:"reserve_price"`
	BuyNowPrice     *decimal.Decimal `gorm:"type:numeric(12,2)" json:"buy_now_price"`
	MinBidIncrement decimal.Decimal  `gorm:"type:numeric(12,2);not null;default:1.00" json:"min_bid_increment"`
	StartTime       time.Time        `json:"start_time"`
	EndTime         time.Time        `gorm:"index" json:"end_time"`
	Status          AuctionStatus    `gorm:"size:16;default:'scheduled';index" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Listing *Listing `gorm:"foreignKey:ListingID" json:"listing,omitempty"`
	Seller  *User    `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
}

// TableName overrides the table name used by Auction to `auctions`
func (Auction) TableName() string {
	return "auctions"
}

func (a *Auction) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}

// MinimumNextBid returns the smallest acceptable bid amount.
// The first bid is accepted at exactly the starting price; every later bid
// must clear the current bid by at least the increment.
func (a *Auction) MinimumNextBid() decimal.Decimal {
	if a.CurrentBid == nil {
		return a.StartingPrice
	}
	return a.CurrentBid.Add(a.MinBidIncrement)
}

// HasStarted reports whether the auction accepts bids yet at the given instant
func (a *Auction) HasStarted(now time.Time) bool {
	return !now.Before(a.StartTime)
}

// HasEnded reports whether the auction is over, either because it was
// completed (buy-now) or because its end time has passed
func (a *Auction) HasEnded(now time.Time) bool {
	return a.Status == AuctionStatusCompleted || now.After(a.EndTime)
}

// ReserveMet reports whether the leading bid clears the seller's reserve.
// Informational only: the reserve never gates bid acceptance.
func (a *Auction) ReserveMet() bool {
	if a.ReservePrice == nil {
		return true
	}
	return a.CurrentBid != nil && a.CurrentBid.GreaterThanOrEqual(*a.ReservePrice)
}

// Countdown is the remaining auction time broken into display components
type Countdown struct {
	Days    int  `json:"days"`
	Hours   int  `json:"hours"`
	Minutes int  `json:"minutes"`
	Seconds int  `json:"seconds"`
	Ended   bool `json:"ended"`
}

// String renders the countdown the way the auction page displays it
func (c Countdown) String() string {
	if c.Ended {
		return "Auction Ended"
	}
	return fmt.Sprintf("%dd %dh %dm %ds", c.Days, c.Hours, c.Minutes, c.Seconds)
}

// TimeRemaining computes the countdown to end_time. Display-only: it never
// mutates the auction status.
func (a *Auction) TimeRemaining(now time.Time) Countdown {
	distance := a.EndTime.Sub(now)
	if distance < 0 {
		return Countdown{Ended: true}
	}

	return Countdown{
		Days:    int(distance / (24 * time.Hour)),
		Hours:   int(distance % (24 * time.Hour) / time.Hour),
		Minutes: int(distance % time.Hour / time.Minute),
		Seconds: int(distance % time.Minute / time.Second),
	}
}

// Bid is an immutable record of one accepted bid
type Bid struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	AuctionID uuid.UUID       `gorm:"type:uuid;not null;index:idx_bids_auction" json:"auction_id"`
	BidderID  uuid.UUID       `gorm:"type:uuid;not null" json:"bidder_id"`
	BidAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"bid_amount"`
	CreatedAt time.Time       `json:"created_at"`

	// Relations
	Bidder *User `gorm:"foreignKey:BidderID" json:"bidder,omitempty"`
}

// TableName overrides the table name used by Bid to `bids`
func (Bid) TableName() string {
	return "bids"
}

func (b *Bid) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return
}
