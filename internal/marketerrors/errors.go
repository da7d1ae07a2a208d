/**
 * @description
 * Sentinel errors shared across the marketplace services.
 * Handlers map these to HTTP statuses with errors.Is; services wrap them
 * with fmt.Errorf("%w") to attach state-specific detail (e.g. the computed
 * minimum bid).
 */

package marketerrors

import "errors"

// Not-found errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrListingNotFound = errors.New("listing not found")
	ErrEventNotFound   = errors.New("event not found")
	ErrUserNotFound    = errors.New("user not found")
)

// Bidding errors
var (
	ErrAuctionNotStarted = errors.New("auction has not started")
	ErrAuctionEnded      = errors.New("auction has ended")
	ErrSelfBid           = errors.New("sellers cannot bid on their own auction")
	ErrBidTooLow         = errors.New("bid amount too low")
	ErrNoBuyNowPrice     = errors.New("auction has no buy now price")
)

// Event RSVP errors
var (
	ErrEventFull        = errors.New("event is at full capacity")
	ErrAlreadyAttending = errors.New("already attending this event")
	ErrNotAttending     = errors.New("not attending this event")
)

// Validation errors
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotListingOwner = errors.New("listing does not belong to this user")
)
