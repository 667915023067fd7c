package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"salesroom-auction/internal/auctionerrors"
	model "salesroom-auction/internal/models"
)

// Helper to create a new open Auction
func newAuction(auctionID string, startPrice string, endsAt *time.Time) model.Auction {
	return model.Auction{
		AuctionID:  auctionID,
		Title:      fmt.Sprintf("%s title", auctionID),
		Status:     model.AuctionOpen,
		StartPrice: decimal.RequireFromString(startPrice),
		EndsAt:     endsAt,
		CreatedAt:  time.Now().UTC(),
	}
}

// Helper to create a new Bid
func newBid(bidID, auctionID, bidderName, amount string, createdAt time.Time) model.Bid {
	return model.Bid{
		BidID:      bidID,
		AuctionID:  auctionID,
		Amount:     decimal.RequireFromString(amount),
		BidderName: bidderName,
		CreatedAt:  createdAt,
	}
}

// Test AdmitBid
func TestMemoryRepo_AdmitBid(t *testing.T) {
	t.Parallel() // Allow running in parallel with other test functions

	ctx := context.Background()
	now := time.Now().UTC()
	past := now.Add(-time.Minute)

	// Table-driven test cases
	tests := []struct {
		name      string
		auction   *model.Auction
		priorBids []model.Bid
		bid       model.Bid
		wantErr   error
	}{
		{
			name:    "first_bid_at_start_price",
			auction: ptr(newAuction("a1", "100", nil)),
			bid:     newBid("b1", "a1", "Jean", "100", now),
		},
		{
			name:    "first_bid_below_start_price",
			auction: ptr(newAuction("a2", "100", nil)),
			bid:     newBid("b1", "a2", "Jean", "50", now),
			wantErr: auctionerrors.ErrBidTooLow,
		},
		{
			name:      "equal_to_current_highest",
			auction:   ptr(newAuction("a3", "100", nil)),
			priorBids: []model.Bid{newBid("b1", "a3", "Jean", "100", now.Add(-time.Second))},
			bid:       newBid("b2", "a3", "Marc", "100", now),
			wantErr:   auctionerrors.ErrBidTooLow,
		},
		{
			name:      "just_above_current_highest",
			auction:   ptr(newAuction("a4", "100", nil)),
			priorBids: []model.Bid{newBid("b1", "a4", "Jean", "100", now.Add(-time.Second))},
			bid:       newBid("b2", "a4", "Marc", "100.01", now),
		},
		{
			name:    "auction_not_found",
			bid:     newBid("b1", "missing", "Jean", "100", now),
			wantErr: auctionerrors.ErrAuctionNotFound,
		},
		{
			name:    "deadline_passed",
			auction: ptr(newAuction("a5", "100", &past)),
			bid:     newBid("b1", "a5", "Jean", "200", now),
			wantErr: auctionerrors.ErrAuctionExpired,
		},
		{
			name: "auction_not_open",
			auction: func() *model.Auction {
				a := newAuction("a6", "100", nil)
				a.Status = model.AuctionClosed
				return &a
			}(),
			bid:     newBid("b1", "a6", "Jean", "200", now),
			wantErr: auctionerrors.ErrAuctionNotOpen,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := NewMemoryRepo()
			if tc.auction != nil {
				require.NoError(t, repo.CreateAuction(ctx, *tc.auction))
			}
			for _, b := range tc.priorBids {
				_, err := repo.AdmitBid(ctx, b)
				require.NoError(t, err)
			}

			admitted, err := repo.AdmitBid(ctx, tc.bid)
			if tc.wantErr != nil {
				require.Error(t, err)
				require.True(t, errors.Is(err, tc.wantErr), "expected error: %v, got: %v", tc.wantErr, err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.bid.BidID, admitted.BidID)

			// Round-trip: the stored bid matches what was submitted
			stored, err := repo.GetBid(ctx, tc.bid.BidID)
			require.NoError(t, err)
			require.True(t, stored.Amount.Equal(tc.bid.Amount))
			require.Equal(t, tc.bid.BidderName, stored.BidderName)
		})
	}
}

// Under concurrent submission of identical amounts, exactly one bid wins
// and the ledger stays strictly increasing.
func TestMemoryRepo_AdmitBid_Concurrent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	require.NoError(t, repo.CreateAuction(ctx, newAuction("a1", "100", nil)))

	const workers = 32
	var wg sync.WaitGroup
	admitted := make([]bool, workers)

	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			bid := newBid(fmt.Sprintf("b%d", i), "a1", "racer", "100", time.Now().UTC())
			if _, err := repo.AdmitBid(ctx, bid); err == nil {
				admitted[i] = true
			}
		}()
	}
	wg.Wait()

	winners := 0
	for _, ok := range admitted {
		if ok {
			winners++
		}
	}
	require.Equal(t, 1, winners, "identical concurrent bids must admit exactly one")

	bids, err := repo.GetBidsByAuction(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, bids, 1)
}

// Admitted amounts form a strictly increasing sequence in admission order.
func TestMemoryRepo_StrictlyIncreasingLedger(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	require.NoError(t, repo.CreateAuction(ctx, newAuction("a1", "10", nil)))

	amounts := []string{"10", "11", "11.50", "20", "20.01"}
	for i, amount := range amounts {
		_, err := repo.AdmitBid(ctx, newBid(fmt.Sprintf("b%d", i), "a1", "", amount, time.Now().UTC()))
		require.NoError(t, err)
	}

	bids, err := repo.GetBidsByAuction(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, bids, len(amounts))
	for i := 1; i < len(bids); i++ {
		require.True(t, bids[i].Amount.GreaterThan(bids[i-1].Amount),
			"ledger must be strictly increasing, got %s after %s", bids[i].Amount, bids[i-1].Amount)
	}
}

// Test GetWinningBid
func TestMemoryRepo_GetWinningBid(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	require.NoError(t, repo.CreateAuction(ctx, newAuction("a1", "10", nil)))
	require.NoError(t, repo.CreateAuction(ctx, newAuction("empty", "10", nil)))

	base := time.Now().UTC()
	for i, amount := range []string{"10", "15", "25"} {
		_, err := repo.AdmitBid(ctx, newBid(fmt.Sprintf("b%d", i), "a1", "", amount, base.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)
	}

	winning, err := repo.GetWinningBid(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, "b2", winning.BidID)
	require.True(t, winning.Amount.Equal(decimal.RequireFromString("25")))

	_, err = repo.GetWinningBid(ctx, "empty")
	require.True(t, errors.Is(err, auctionerrors.ErrNoBids))
}

// Test CloseAuction
func TestMemoryRepo_CloseAuction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	require.NoError(t, repo.CreateAuction(ctx, newAuction("a1", "10", nil)))
	require.NoError(t, repo.CreateAuction(ctx, newAuction("empty", "10", nil)))

	_, err := repo.AdmitBid(ctx, newBid("b1", "a1", "Jean", "15", time.Now().UTC()))
	require.NoError(t, err)

	closed, transitioned, err := repo.CloseAuction(ctx, "a1")
	require.NoError(t, err)
	require.True(t, transitioned)
	require.Equal(t, model.AuctionPendingPayment, closed.Status)
	require.Equal(t, "b1", closed.WinnerBidID)

	// closing again is a no-op reporting the stored state, not an error
	closed, transitioned, err = repo.CloseAuction(ctx, "a1")
	require.NoError(t, err)
	require.False(t, transitioned)
	require.Equal(t, model.AuctionPendingPayment, closed.Status)

	// an auction without bids closes without a winner
	closed, transitioned, err = repo.CloseAuction(ctx, "empty")
	require.NoError(t, err)
	require.True(t, transitioned)
	require.Equal(t, model.AuctionClosed, closed.Status)
	require.Empty(t, closed.WinnerBidID)

	_, _, err = repo.CloseAuction(ctx, "missing")
	require.True(t, errors.Is(err, auctionerrors.ErrAuctionNotFound))
}

// A bid racing the close must either land in the ledger before the winner is
// selected or be rejected as not-open; the recorded winner is always the
// ledger's maximum.
func TestMemoryRepo_CloseAuction_WinnerNeverStale(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	for i := 0; i < 50; i++ {
		repo := NewMemoryRepo()
		require.NoError(t, repo.CreateAuction(ctx, newAuction("a1", "100", nil)))
		_, err := repo.AdmitBid(ctx, newBid("b1", "a1", "Jean", "100", time.Now().UTC()))
		require.NoError(t, err)

		var (
			wg       sync.WaitGroup
			admitErr error
			closeErr error
		)
		start := make(chan struct{})

		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			_, admitErr = repo.AdmitBid(ctx, newBid("b2", "a1", "Marc", "200", time.Now().UTC()))
		}()
		go func() {
			defer wg.Done()
			<-start
			_, _, closeErr = repo.CloseAuction(ctx, "a1")
		}()
		close(start)
		wg.Wait()

		require.NoError(t, closeErr)
		if admitErr != nil {
			require.True(t, errors.Is(admitErr, auctionerrors.ErrAuctionNotOpen), "unexpected admit error: %v", admitErr)
		}

		auction, err := repo.GetAuction(ctx, "a1")
		require.NoError(t, err)
		require.Equal(t, model.AuctionPendingPayment, auction.Status)

		winning, err := repo.GetWinningBid(ctx, "a1")
		require.NoError(t, err)
		require.Equal(t, winning.BidID, auction.WinnerBidID,
			"winner_bid_id must be the ledger's maximum bid")
	}
}

// Test ListExpiredOpen
func TestMemoryRepo_ListExpiredOpen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	require.NoError(t, repo.CreateAuction(ctx, newAuction("expired", "10", &past)))
	require.NoError(t, repo.CreateAuction(ctx, newAuction("running", "10", &future)))
	require.NoError(t, repo.CreateAuction(ctx, newAuction("no_deadline", "10", nil)))

	expired, err := repo.ListExpiredOpen(ctx, now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	require.Equal(t, "expired", expired[0].AuctionID)
}

// Test CreateOrFetchOrder idempotency
func TestMemoryRepo_CreateOrFetchOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()

	first := model.Order{
		OrderID:         "o1",
		AuctionID:       "a1",
		WinnerName:      "Jean",
		WinnerBidAmount: decimal.RequireFromString("250"),
		Status:          model.OrderPendingPayment,
		CreatedAt:       time.Now().UTC(),
	}

	created, err := repo.CreateOrFetchOrder(ctx, first)
	require.NoError(t, err)
	require.Equal(t, "o1", created.OrderID)

	// second insert for the same auction returns the existing order unchanged
	second := first
	second.OrderID = "o2"
	fetched, err := repo.CreateOrFetchOrder(ctx, second)
	require.NoError(t, err)
	require.Equal(t, "o1", fetched.OrderID)
}

// Test MarkOrderPaid
func TestMemoryRepo_MarkOrderPaid(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()

	_, err := repo.CreateOrFetchOrder(ctx, model.Order{
		OrderID:         "o1",
		AuctionID:       "a1",
		WinnerBidAmount: decimal.RequireFromString("99.99"),
		Status:          model.OrderPendingPayment,
		CreatedAt:       time.Now().UTC(),
	})
	require.NoError(t, err)

	order, transitioned, err := repo.MarkOrderPaid(ctx, "o1")
	require.NoError(t, err)
	require.True(t, transitioned)
	require.Equal(t, model.OrderPaid, order.Status)

	order, transitioned, err = repo.MarkOrderPaid(ctx, "o1")
	require.NoError(t, err)
	require.False(t, transitioned)
	require.Equal(t, model.OrderPaid, order.Status)

	_, _, err = repo.MarkOrderPaid(ctx, "missing")
	require.True(t, errors.Is(err, auctionerrors.ErrOrderNotFound))
}

func ptr[T any](v T) *T {
	return &v
}
