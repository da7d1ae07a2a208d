/**
 * @description
 * Persistence boundary for the auction ledger, bid log, and event RSVP tables.
 * Services depend on these interfaces; production uses the GORM-backed
 * implementations in this package, tests substitute in-memory fakes.
 *
 * The interfaces exist because the ledger mutations carry real invariants:
 * every write path that touches auctions.current_bid or events.attendee_count
 * must be atomic, and RecordBid must be conditional on the ledger state the
 * caller validated against (optimistic concurrency). Plain CRUD reads for
 * listings and posts stay on *gorm.DB directly in the handlers.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/shopspring/decimal
 * - github.com/google/uuid
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thriftup/backend/internal/models"
)

// ErrConflict is returned by RecordBid when the ledger moved between the
// caller's read and the conditional write. Callers re-read and re-validate.
var ErrConflict = errors.New("concurrent ledger update")

// LedgerUpdate describes the ledger advance paired with one bid append.
// ExpectedCurrentBid is the value the caller validated against; the update
// only applies while the row still holds it (nil = no bids yet).
type LedgerUpdate struct {
	ExpectedCurrentBid *decimal.Decimal
	CurrentBid         decimal.Decimal
	HighestBidderID    uuid.UUID
	Complete           bool // buy-now: also transition status to completed
}

// AuctionStore is the persistence contract for the bidding core
type AuctionStore interface {
	// GetAuction loads the ledger row only
	GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	// GetAuctionDetail loads the ledger row joined with its listing
	GetAuctionDetail(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	// ListActive returns active auctions with listing summaries, soonest end first
	ListActive(ctx context.Context, limit int) ([]models.Auction, error)
	// ListBySeller returns the seller's auctions, most recent end first
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Auction, error)
	// CreateAuction persists the bundled listing + auction pair in one transaction
	CreateAuction(ctx context.Context, listing *models.Listing, auction *models.Auction) error
	// CreateAuctionForListing attaches an auction to an existing listing owned
	// by the seller, flipping the listing to auction mode in the same transaction
	CreateAuctionForListing(ctx context.Context, auction *models.Auction) error
	// ListBids returns the bid log for an auction, highest amount first
	ListBids(ctx context.Context, auctionID uuid.UUID) ([]models.Bid, error)
	// RecordBid appends the bid and advances the ledger in one transaction,
	// conditional on the expected ledger state. Returns ErrConflict when the
	// condition no longer holds.
	RecordBid(ctx context.Context, bid *models.Bid, update LedgerUpdate) error
	// SweepStatuses moves scheduled auctions whose start time arrived to
	// active, and active auctions past their end time to completed.
	SweepStatuses(ctx context.Context, now time.Time) (activated, completed int64, err error)
}

// EventStore is the persistence contract for event RSVP
type EventStore interface {
	GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error)
	ListUpcoming(ctx context.Context, limit int) ([]models.Event, error)
	ListByOrganizer(ctx context.Context, organizerID uuid.UUID, limit int) ([]models.Event, error)
	CreateEvent(ctx context.Context, event *models.Event) error
	ListAttendees(ctx context.Context, eventID uuid.UUID) ([]models.EventAttendee, error)
	ListUserRSVPs(ctx context.Context, userID uuid.UUID) ([]models.EventAttendee, error)
	// AddAttendee inserts the RSVP row and increments attendee_count in one
	// transaction, enforcing capacity under a row lock.
	AddAttendee(ctx context.Context, eventID, userID uuid.UUID) (*models.EventAttendee, error)
	// RemoveAttendee deletes the RSVP row and decrements attendee_count in
	// one transaction.
	RemoveAttendee(ctx context.Context, eventID, userID uuid.UUID) error
}
