package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

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

func TestMinimumNextBid(t *testing.T) {
	tests := []struct {
		name    string
		auction Auction
		want    string
	}{
		{
			name: "no bids yet uses starting price",
			auction: Auction{
				StartingPrice:   dec("50.00"),
				MinBidIncrement: dec("5.00"),
			},
			want: "50.00",
		},
		{
			name: "existing bid adds increment",
			auction: Auction{
				StartingPrice:   dec("50.00"),
				CurrentBid:      decPtr("50.00"),
				MinBidIncrement: dec("5.00"),
			},
			want: "55.00",
		},
		{
			name: "fractional increment",
			auction: Auction{
				StartingPrice:   dec("10.00"),
				CurrentBid:      decPtr("12.50"),
				MinBidIncrement: dec("0.25"),
			},
			want: "12.75",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.auction.MinimumNextBid().StringFixed(2))
		})
	}
}

func TestHasEnded(t *testing.T) {
	now := time.Now()

	active := Auction{Status: AuctionStatusActive, EndTime: now.Add(time.Hour)}
	assert.False(t, active.HasEnded(now))

	pastEnd := Auction{Status: AuctionStatusActive, EndTime: now.Add(-time.Minute)}
	assert.True(t, pastEnd.HasEnded(now))

	// Buy-now completes the auction before end_time
	completed := Auction{Status: AuctionStatusCompleted, EndTime: now.Add(time.Hour)}
	assert.True(t, completed.HasEnded(now))
}

func TestHasStarted(t *testing.T) {
	now := time.Now()

	assert.False(t, (&Auction{StartTime: now.Add(time.Hour)}).HasStarted(now))
	assert.True(t, (&Auction{StartTime: now}).HasStarted(now))
	assert.True(t, (&Auction{StartTime: now.Add(-time.Hour)}).HasStarted(now))
}

func TestReserveMet(t *testing.T) {
	tests := []struct {
		name    string
		auction Auction
		want    bool
	}{
		{"no reserve", Auction{}, true},
		{"reserve without bids", Auction{ReservePrice: decPtr("100.00")}, false},
		{"bid below reserve", Auction{ReservePrice: decPtr("100.00"), CurrentBid: decPtr("60.00")}, false},
		{"bid at reserve", Auction{ReservePrice: decPtr("100.00"), CurrentBid: decPtr("100.00")}, true},
		{"bid above reserve", Auction{ReservePrice: decPtr("100.00"), CurrentBid: decPtr("150.00")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.auction.ReserveMet())
		})
	}
}

func TestTimeRemaining(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a := Auction{EndTime: now.Add(2*24*time.Hour + 3*time.Hour + 4*time.Minute + 5*time.Second)}
	cd := a.TimeRemaining(now)
	assert.Equal(t, Countdown{Days: 2, Hours: 3, Minutes: 4, Seconds: 5}, cd)
	assert.Equal(t, "2d 3h 4m 5s", cd.String())

	ended := Auction{EndTime: now.Add(-time.Second)}
	cd = ended.TimeRemaining(now)
	assert.True(t, cd.Ended)
	assert.Equal(t, "Auction Ended", cd.String())

	// Exactly at end_time is not yet ended
	exact := Auction{EndTime: now}
	assert.False(t, exact.TimeRemaining(now).Ended)
}
