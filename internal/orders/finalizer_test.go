package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"salesroom-auction/internal/auctionerrors"
	"salesroom-auction/internal/models"
	"salesroom-auction/internal/repository"
)

// newFinalizedAuction seeds a store with one auction that closed with a
// winning bid, ready to finalize.
func newFinalizedAuction(t *testing.T, repo *repository.MemoryRepo, auctionID string) {
	t.Helper()

	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.CreateAuction(ctx, models.Auction{
		AuctionID:  auctionID,
		Status:     models.AuctionOpen,
		StartPrice: decimal.RequireFromString("100"),
		CreatedAt:  now,
	}))
	_, err := repo.AdmitBid(ctx, models.Bid{
		BidID:      auctionID + "-bid",
		AuctionID:  auctionID,
		Amount:     decimal.RequireFromString("250"),
		BidderName: "Jean",
		CreatedAt:  now,
	})
	require.NoError(t, err)

	closed, transitioned, err := repo.CloseAuction(ctx, auctionID)
	require.NoError(t, err)
	require.True(t, transitioned)
	require.Equal(t, models.AuctionPendingPayment, closed.Status)
	require.Equal(t, auctionID+"-bid", closed.WinnerBidID)
}

// Test Finalize: repeated calls return the same order.
func TestFinalizer_Finalize_Idempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	newFinalizedAuction(t, repo, "a1")
	finalizer := NewFinalizer(repo)

	first, err := finalizer.Finalize(ctx, "a1")
	require.NoError(t, err)
	require.NotEmpty(t, first.OrderID)
	require.Equal(t, "a1", first.AuctionID)
	require.Equal(t, "Jean", first.WinnerName)
	require.True(t, first.WinnerBidAmount.Equal(decimal.RequireFromString("250")))
	require.Equal(t, models.OrderPendingPayment, first.Status)

	second, err := finalizer.Finalize(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, first.OrderID, second.OrderID)
}

// Test Finalize rejections
func TestFinalizer_Finalize_Rejections(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	now := time.Now().UTC()

	require.NoError(t, repo.CreateAuction(ctx, models.Auction{
		AuctionID:  "still-open",
		Status:     models.AuctionOpen,
		StartPrice: decimal.RequireFromString("100"),
		CreatedAt:  now,
	}))
	require.NoError(t, repo.CreateAuction(ctx, models.Auction{
		AuctionID:  "no-winner",
		Status:     models.AuctionClosed,
		StartPrice: decimal.RequireFromString("100"),
		CreatedAt:  now,
	}))

	finalizer := NewFinalizer(repo)

	tests := []struct {
		name      string
		auctionID string
		wantErr   error
	}{
		{name: "empty_auction_id", auctionID: "", wantErr: auctionerrors.ErrInvalidBid},
		{name: "auction_not_found", auctionID: "missing", wantErr: auctionerrors.ErrAuctionNotFound},
		{name: "auction_still_open", auctionID: "still-open", wantErr: auctionerrors.ErrStillOpen},
		{name: "closed_without_winner", auctionID: "no-winner", wantErr: auctionerrors.ErrNoWinner},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := finalizer.Finalize(ctx, tc.auctionID)
			require.Error(t, err)
			require.True(t, errors.Is(err, tc.wantErr), "expected error: %v, got: %v", tc.wantErr, err)
		})
	}
}

// Concurrent finalize calls all converge on a single order.
func TestFinalizer_Finalize_Concurrent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	newFinalizedAuction(t, repo, "a1")
	finalizer := NewFinalizer(repo)

	const callers = 16
	orderIDs := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			order, err := finalizer.Finalize(ctx, "a1")
			errs[i] = err
			orderIDs[i] = order.OrderID
		}()
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
	}
	for i := 1; i < callers; i++ {
		require.Equal(t, orderIDs[0], orderIDs[i], "every caller must see the same order")
	}
}

// Test MarkPaid transitions once and reports repeats.
func TestFinalizer_MarkPaid(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	newFinalizedAuction(t, repo, "a1")
	finalizer := NewFinalizer(repo)

	order, err := finalizer.Finalize(ctx, "a1")
	require.NoError(t, err)

	paid, transitioned, err := finalizer.MarkPaid(ctx, order.OrderID)
	require.NoError(t, err)
	require.True(t, transitioned)
	require.Equal(t, models.OrderPaid, paid.Status)

	paid, transitioned, err = finalizer.MarkPaid(ctx, order.OrderID)
	require.NoError(t, err)
	require.False(t, transitioned)
	require.Equal(t, models.OrderPaid, paid.Status)

	_, _, err = finalizer.MarkPaid(ctx, "missing")
	require.True(t, errors.Is(err, auctionerrors.ErrOrderNotFound))

	_, _, err = finalizer.MarkPaid(ctx, "")
	require.True(t, errors.Is(err, auctionerrors.ErrInvalidBid))
}

// Test GetOrder
func TestFinalizer_GetOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	newFinalizedAuction(t, repo, "a1")
	finalizer := NewFinalizer(repo)

	order, err := finalizer.Finalize(ctx, "a1")
	require.NoError(t, err)

	got, err := finalizer.GetOrder(ctx, order.OrderID)
	require.NoError(t, err)
	require.Equal(t, order.OrderID, got.OrderID)

	_, err = finalizer.GetOrder(ctx, "missing")
	require.True(t, errors.Is(err, auctionerrors.ErrOrderNotFound))
}
