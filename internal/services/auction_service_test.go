package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thriftup/backend/internal/marketerrors"
	"github.com/thriftup/backend/internal/models"
	"github.com/thriftup/backend/internal/store"
)

// memoryAuctionStore is an in-memory AuctionStore with the same conditional
// write semantics as the GORM implementation. conflicts forces RecordBid to
// report that many ErrConflict responses before accepting a write.
type memoryAuctionStore struct {
	mu        sync.Mutex
	auctions  map[uuid.UUID]*models.Auction
	bids      []models.Bid
	conflicts int
}

func newMemoryAuctionStore(auctions ...*models.Auction) *memoryAuctionStore {
	s := &memoryAuctionStore{auctions: make(map[uuid.UUID]*models.Auction)}
	for _, a := range auctions {
		s.auctions[a.ID] = a
	}
	return s
}

func (s *memoryAuctionStore) GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auctions[id]
	if !ok {
		return nil, marketerrors.ErrAuctionNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *memoryAuctionStore) GetAuctionDetail(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	return s.GetAuction(ctx, id)
}

func (s *memoryAuctionStore) ListActive(ctx context.Context, limit int) ([]models.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Auction
	for _, a := range s.auctions {
		if a.Status == models.AuctionStatusActive {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndTime.Before(out[j].EndTime) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryAuctionStore) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Auction
	for _, a := range s.auctions {
		if a.SellerID == sellerID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *memoryAuctionStore) CreateAuction(ctx context.Context, listing *models.Listing, auction *models.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if listing.ID == uuid.Nil {
		listing.ID = uuid.New()
	}
	if auction.ID == uuid.Nil {
		auction.ID = uuid.New()
	}
	auction.ListingID = listing.ID
	cp := *auction
	s.auctions[auction.ID] = &cp
	return nil
}

func (s *memoryAuctionStore) CreateAuctionForListing(ctx context.Context, auction *models.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if auction.ID == uuid.Nil {
		auction.ID = uuid.New()
	}
	cp := *auction
	s.auctions[auction.ID] = &cp
	return nil
}

func (s *memoryAuctionStore) ListBids(ctx context.Context, auctionID uuid.UUID) ([]models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Bid
	for _, b := range s.bids {
		if b.AuctionID == auctionID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BidAmount.GreaterThan(out[j].BidAmount) })
	return out, nil
}

func (s *memoryAuctionStore) RecordBid(ctx context.Context, bid *models.Bid, update store.LedgerUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conflicts > 0 {
		s.conflicts--
		return store.ErrConflict
	}

	a, ok := s.auctions[bid.AuctionID]
	if !ok {
		return marketerrors.ErrAuctionNotFound
	}
	if a.Status == models.AuctionStatusCompleted {
		return store.ErrConflict
	}
	if (update.ExpectedCurrentBid == nil) != (a.CurrentBid == nil) {
		return store.ErrConflict
	}
	if update.ExpectedCurrentBid != nil && !update.ExpectedCurrentBid.Equal(*a.CurrentBid) {
		return store.ErrConflict
	}

	amount := update.CurrentBid
	bidder := update.HighestBidderID
	a.CurrentBid = &amount
	a.HighestBidderID = &bidder
	if update.Complete {
		a.Status = models.AuctionStatusCompleted
	}
	s.bids = append(s.bids, *bid)
	return nil
}

func (s *memoryAuctionStore) SweepStatuses(ctx context.Context, now time.Time) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var activated, completed int64
	for _, a := range s.auctions {
		if a.Status == models.AuctionStatusScheduled && !a.StartTime.After(now) {
			a.Status = models.AuctionStatusActive
			activated++
		}
		if a.Status == models.AuctionStatusActive && a.EndTime.Before(now) {
			a.Status = models.AuctionStatusCompleted
			completed++
		}
	}
	return activated, completed, nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// activeAuction builds a running auction with starting price 50 and increment 5
func activeAuction(sellerID uuid.UUID) *models.Auction {
	now := time.Now()
	return &models.Auction{
		ID:              uuid.New(),
		ListingID:       uuid.New(),
		SellerID:        sellerID,
		StartingPrice:   dec("50.00"),
		MinBidIncrement: dec("5.00"),
		StartTime:       now.Add(-time.Hour),
		EndTime:         now.Add(time.Hour),
		Status:          models.AuctionStatusActive,
	}
}

func TestPlaceBid_FirstBidAtStartingPrice(t *testing.T) {
	seller, bidder := uuid.New(), uuid.New()
	auction := activeAuction(seller)
	memStore := newMemoryAuctionStore(auction)
	svc := NewAuctionService(memStore, nil)

	bid, err := svc.PlaceBid(context.Background(), auction.ID, bidder, dec("50.00"))
	require.NoError(t, err)
	assert.True(t, bid.BidAmount.Equal(dec("50.00")))

	updated, _ := memStore.GetAuction(context.Background(), auction.ID)
	require.NotNil(t, updated.CurrentBid)
	assert.True(t, updated.CurrentBid.Equal(dec("50.00")))
	assert.Equal(t, bidder, *updated.HighestBidderID)
}

func TestPlaceBid_FirstBidBelowStartingPrice(t *testing.T) {
	seller, bidder := uuid.New(), uuid.New()
	auction := activeAuction(seller)
	memStore := newMemoryAuctionStore(auction)
	svc := NewAuctionService(memStore, nil)

	_, err := svc.PlaceBid(context.Background(), auction.ID, bidder, dec("49.99"))
	require.Error(t, err)
	assert.ErrorIs(t, err, marketerrors.ErrBidTooLow)
	assert.Contains(t, err.Error(), "50.00")

	// Rejected bids leave the ledger and the bid log untouched
	updated, _ := memStore.GetAuction(context.Background(), auction.ID)
	assert.Nil(t, updated.CurrentBid)
	assert.Empty(t, memStore.bids)
}

func TestPlaceBid_BelowIncrement(t *testing.T) {
	seller := uuid.New()
	auction := activeAuction(seller)
	auction.CurrentBid = decPtr("50.00")
	leader := uuid.New()
	auction.HighestBidderID = &leader
	memStore := newMemoryAuctionStore(auction)
	svc := NewAuctionService(memStore, nil)

	_, err := svc.PlaceBid(context.Background(), auction.ID, uuid.New(), dec("53.00"))
	assert.ErrorIs(t, err, marketerrors.ErrBidTooLow)
	assert.Contains(t, err.Error(), "55.00")
}

func TestPlaceBid_SellerCannotBid(t *testing.T) {
	seller := uuid.New()
	auction := activeAuction(seller)
	svc := NewAuctionService(newMemoryAuctionStore(auction), nil)

	_, err := svc.PlaceBid(context.Background(), auction.ID, seller, dec("50.00"))
	assert.ErrorIs(t, err, marketerrors.ErrSelfBid)
}

func TestPlaceBid_NotStarted(t *testing.T) {
	auction := activeAuction(uuid.New())
	auction.StartTime = time.Now().Add(time.Hour)
	auction.Status = models.AuctionStatusScheduled
	svc := NewAuctionService(newMemoryAuctionStore(auction), nil)

	_, err := svc.PlaceBid(context.Background(), auction.ID, uuid.New(), dec("50.00"))
	assert.ErrorIs(t, err, marketerrors.ErrAuctionNotStarted)
}

func TestPlaceBid_PastEndTime(t *testing.T) {
	// Status still says active, but server time is authoritative
	auction := activeAuction(uuid.New())
	auction.EndTime = time.Now().Add(-time.Minute)
	svc := NewAuctionService(newMemoryAuctionStore(auction), nil)

	_, err := svc.PlaceBid(context.Background(), auction.ID, uuid.New(), dec("50.00"))
	assert.ErrorIs(t, err, marketerrors.ErrAuctionEnded)
}

func TestPlaceBid_NonPositiveAmount(t *testing.T) {
	auction := activeAuction(uuid.New())
	svc := NewAuctionService(newMemoryAuctionStore(auction), nil)

	_, err := svc.PlaceBid(context.Background(), auction.ID, uuid.New(), dec("0"))
	assert.ErrorIs(t, err, marketerrors.ErrInvalidInput)
}

func TestPlaceBid_UnknownAuction(t *testing.T) {
	svc := NewAuctionService(newMemoryAuctionStore(), nil)

	_, err := svc.PlaceBid(context.Background(), uuid.New(), uuid.New(), dec("50.00"))
	assert.ErrorIs(t, err, marketerrors.ErrAuctionNotFound)
}

func TestPlaceBid_RetriesOnConflict(t *testing.T) {
	seller, bidder := uuid.New(), uuid.New()
	auction := activeAuction(seller)
	memStore := newMemoryAuctionStore(auction)
	memStore.conflicts = 2
	svc := NewAuctionService(memStore, nil)

	bid, err := svc.PlaceBid(context.Background(), auction.ID, bidder, dec("50.00"))
	require.NoError(t, err)
	assert.True(t, bid.BidAmount.Equal(dec("50.00")))
	assert.Len(t, memStore.bids, 1)
}

func TestPlaceBid_RetryExhaustion(t *testing.T) {
	auction := activeAuction(uuid.New())
	memStore := newMemoryAuctionStore(auction)
	memStore.conflicts = maxBidAttempts
	svc := NewAuctionService(memStore, nil)

	_, err := svc.PlaceBid(context.Background(), auction.ID, uuid.New(), dec("50.00"))
	require.Error(t, err)
	assert.ErrorIs(t, err, marketerrors.ErrBidTooLow)
	assert.Empty(t, memStore.bids)
}

// TestBiddingScenario walks a full auction: first bid at the starting price,
// an under-increment rejection, a valid raise, buy-now, and a late bid.
func TestBiddingScenario(t *testing.T) {
	ctx := context.Background()
	seller, alice, bob, carol := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	auction := activeAuction(seller)
	auction.BuyNowPrice = decPtr("200.00")
	memStore := newMemoryAuctionStore(auction)
	svc := NewAuctionService(memStore, nil)

	// First bid at exactly the starting price
	_, err := svc.PlaceBid(ctx, auction.ID, alice, dec("50.00"))
	require.NoError(t, err)

	// 53 does not clear 50 + 5
	_, err = svc.PlaceBid(ctx, auction.ID, bob, dec("53.00"))
	require.ErrorIs(t, err, marketerrors.ErrBidTooLow)
	assert.Contains(t, err.Error(), "55.00")

	// 55 does
	_, err = svc.PlaceBid(ctx, auction.ID, bob, dec("55.00"))
	require.NoError(t, err)

	// Buy-now ends the auction at 200
	bid, err := svc.BuyNow(ctx, auction.ID, carol)
	require.NoError(t, err)
	assert.True(t, bid.BidAmount.Equal(dec("200.00")))

	final, _ := memStore.GetAuction(ctx, auction.ID)
	assert.Equal(t, models.AuctionStatusCompleted, final.Status)
	assert.True(t, final.CurrentBid.Equal(dec("200.00")))
	assert.Equal(t, carol, *final.HighestBidderID)

	// No bids after completion, however high
	_, err = svc.PlaceBid(ctx, auction.ID, alice, dec("300.00"))
	assert.ErrorIs(t, err, marketerrors.ErrAuctionEnded)

	// Ledger mirrors the bid log
	bids, err := svc.ListBids(ctx, auction.ID)
	require.NoError(t, err)
	require.Len(t, bids, 3)
	assert.True(t, bids[0].BidAmount.Equal(*final.CurrentBid))
}

func TestPlaceBid_ConcurrentBiddersNoLostUpdate(t *testing.T) {
	ctx := context.Background()
	seller := uuid.New()
	auction := activeAuction(seller)
	memStore := newMemoryAuctionStore(auction)
	svc := NewAuctionService(memStore, nil)

	const bidders = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	var accepted []decimal.Decimal

	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			amount := dec("50.00").Add(decimal.NewFromInt(int64(i * 5)))
			bid, err := svc.PlaceBid(ctx, auction.ID, uuid.New(), amount)
			if err != nil {
				// Losing a race is fine; losing it silently is not
				assert.True(t, errors.Is(err, marketerrors.ErrBidTooLow))
				return
			}
			mu.Lock()
			accepted = append(accepted, bid.BidAmount)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	require.NotEmpty(t, accepted)
	assert.Len(t, memStore.bids, len(accepted))

	max := accepted[0]
	for _, a := range accepted[1:] {
		if a.GreaterThan(max) {
			max = a
		}
	}
	final, _ := memStore.GetAuction(ctx, auction.ID)
	require.NotNil(t, final.CurrentBid)
	assert.True(t, final.CurrentBid.Equal(max), "ledger should hold the highest accepted bid")
}

func TestBuyNow_NoBuyNowPrice(t *testing.T) {
	auction := activeAuction(uuid.New())
	svc := NewAuctionService(newMemoryAuctionStore(auction), nil)

	_, err := svc.BuyNow(context.Background(), auction.ID, uuid.New())
	assert.ErrorIs(t, err, marketerrors.ErrNoBuyNowPrice)
}

func TestBuyNow_SellerCannotBuy(t *testing.T) {
	seller := uuid.New()
	auction := activeAuction(seller)
	auction.BuyNowPrice = decPtr("200.00")
	svc := NewAuctionService(newMemoryAuctionStore(auction), nil)

	_, err := svc.BuyNow(context.Background(), auction.ID, seller)
	assert.ErrorIs(t, err, marketerrors.ErrSelfBid)
}

func TestBuyNow_AlreadyEnded(t *testing.T) {
	auction := activeAuction(uuid.New())
	auction.BuyNowPrice = decPtr("200.00")
	auction.Status = models.AuctionStatusCompleted
	svc := NewAuctionService(newMemoryAuctionStore(auction), nil)

	_, err := svc.BuyNow(context.Background(), auction.ID, uuid.New())
	assert.ErrorIs(t, err, marketerrors.ErrAuctionEnded)
}

func TestCreateAuction_Validation(t *testing.T) {
	now := time.Now()
	valid := CreateAuctionInput{
		Title:         "Vintage Camera",
		StartingPrice: dec("50.00"),
		StartTime:     now,
		EndTime:       now.Add(24 * time.Hour),
	}

	tests := []struct {
		name   string
		mutate func(*CreateAuctionInput)
	}{
		{"missing title", func(i *CreateAuctionInput) { i.Title = "" }},
		{"zero starting price", func(i *CreateAuctionInput) { i.StartingPrice = dec("0") }},
		{"negative starting price", func(i *CreateAuctionInput) { i.StartingPrice = dec("-5") }},
		{"end before start", func(i *CreateAuctionInput) { i.EndTime = i.StartTime.Add(-time.Hour) }},
		{"end equals start", func(i *CreateAuctionInput) { i.EndTime = i.StartTime }},
		{"missing times", func(i *CreateAuctionInput) { i.StartTime, i.EndTime = time.Time{}, time.Time{} }},
		{"reserve below starting", func(i *CreateAuctionInput) { i.ReservePrice = decPtr("40.00") }},
		{"buy now below starting", func(i *CreateAuctionInput) { i.BuyNowPrice = decPtr("40.00") }},
		{"negative increment", func(i *CreateAuctionInput) { i.MinBidIncrement = dec("-1") }},
	}

	svc := NewAuctionService(newMemoryAuctionStore(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := valid
			tt.mutate(&input)
			_, err := svc.CreateAuction(context.Background(), uuid.New(), input)
			assert.ErrorIs(t, err, marketerrors.ErrInvalidInput)
		})
	}
}

func TestCreateAuction_StatusFromStartTime(t *testing.T) {
	svc := NewAuctionService(newMemoryAuctionStore(), nil)
	now := time.Now()

	started, err := svc.CreateAuction(context.Background(), uuid.New(), CreateAuctionInput{
		Title:         "Record Player",
		StartingPrice: dec("30.00"),
		StartTime:     now.Add(-time.Minute),
		EndTime:       now.Add(24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, models.AuctionStatusActive, started.Status)
	// Increment defaults to 1 when omitted
	assert.True(t, started.MinBidIncrement.Equal(decimal.NewFromInt(1)))

	scheduled, err := svc.CreateAuction(context.Background(), uuid.New(), CreateAuctionInput{
		Title:         "Film Camera",
		StartingPrice: dec("30.00"),
		StartTime:     now.Add(time.Hour),
		EndTime:       now.Add(24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, models.AuctionStatusScheduled, scheduled.Status)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestListActive_CachesAndInvalidates(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)

	seller, bidder := uuid.New(), uuid.New()
	auction := activeAuction(seller)
	memStore := newMemoryAuctionStore(auction)
	svc := NewAuctionService(memStore, rdb)

	// First read misses the cache and populates it
	auctions, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, auctions, 1)
	assert.True(t, mr.Exists(CacheKeyActiveAuctions))

	// Cached copy is served even after the store changes underneath
	second := activeAuction(seller)
	memStore.auctions[second.ID] = second
	auctions, err = svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, auctions, 1)

	// An accepted bid drops the cache
	_, err = svc.PlaceBid(ctx, auction.ID, bidder, dec("50.00"))
	require.NoError(t, err)
	assert.False(t, mr.Exists(CacheKeyActiveAuctions))

	auctions, err = svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, auctions, 2)
}

func TestSweepStatuses(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	scheduled := activeAuction(uuid.New())
	scheduled.Status = models.AuctionStatusScheduled
	scheduled.StartTime = now.Add(-time.Minute)

	expired := activeAuction(uuid.New())
	expired.EndTime = now.Add(-time.Minute)

	memStore := newMemoryAuctionStore(scheduled, expired)
	svc := NewAuctionService(memStore, nil)

	require.NoError(t, svc.SweepStatuses(ctx, now))

	a, _ := memStore.GetAuction(ctx, scheduled.ID)
	assert.Equal(t, models.AuctionStatusActive, a.Status)
	b, _ := memStore.GetAuction(ctx, expired.ID)
	assert.Equal(t, models.AuctionStatusCompleted, b.Status)
}
