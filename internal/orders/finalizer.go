package orders

import (
	"context"
	"fmt"
	"time"

	"salesroom-auction/internal/auctionerrors"
	"salesroom-auction/internal/models"
	"salesroom-auction/internal/repository"
	"salesroom-auction/utils"
)

// Finalizer produces exactly one payable order per auction that closed with
// a winner, and records payment completion reported by the gateway webhook.
type Finalizer struct {
	store repository.Store
	now   func() time.Time
}

// NewFinalizer creates a Finalizer backed by the given store
func NewFinalizer(store repository.Store) *Finalizer {
	return &Finalizer{store: store, now: time.Now}
}

// Finalize converts the auction's winning bid into an order. Idempotent: the
// store keys orders by auction id, so concurrent calls (closer plus client
// polls) all converge on the same order row.
func (f *Finalizer) Finalize(ctx context.Context, auctionID string) (models.Order, error) {
	if auctionID == "" {
		return models.Order{}, fmt.Errorf("finalizer: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}

	auction, err := f.store.GetAuction(ctx, auctionID)
	if err != nil {
		return models.Order{}, fmt.Errorf("finalizer: failed to load auction %s: %w", auctionID, err)
	}

	switch auction.Status {
	case models.AuctionScheduled, models.AuctionOpen:
		return models.Order{}, fmt.Errorf("finalizer: %w", auctionerrors.ErrStillOpen)
	}
	if auction.WinnerBidID == "" {
		return models.Order{}, fmt.Errorf("finalizer: %w", auctionerrors.ErrNoWinner)
	}

	winning, err := f.store.GetBid(ctx, auction.WinnerBidID)
	if err != nil {
		return models.Order{}, fmt.Errorf("finalizer: failed to load winning bid for auction %s: %w", auctionID, err)
	}

	order, err := f.store.CreateOrFetchOrder(ctx, models.Order{
		OrderID:         utils.GenerateID(),
		AuctionID:       auctionID,
		WinnerName:      winning.BidderName,
		WinnerBidAmount: winning.Amount,
		Status:          models.OrderPendingPayment,
		CreatedAt:       f.now().UTC(),
	})
	if err != nil {
		return models.Order{}, fmt.Errorf("finalizer: failed to create order for auction %s: %w", auctionID, err)
	}
	return order, nil
}

// GetOrder returns a single order by id
func (f *Finalizer) GetOrder(ctx context.Context, orderID string) (models.Order, error) {
	if orderID == "" {
		return models.Order{}, fmt.Errorf("finalizer: %w - empty order ID", auctionerrors.ErrInvalidBid)
	}

	order, err := f.store.GetOrder(ctx, orderID)
	if err != nil {
		return models.Order{}, fmt.Errorf("finalizer: failed to get order %s: %w", orderID, err)
	}
	return order, nil
}

// MarkPaid records payment completion for an order. The bool reports whether
// this call performed the transition; marking an already-paid order again is
// a no-op.
func (f *Finalizer) MarkPaid(ctx context.Context, orderID string) (models.Order, bool, error) {
	if orderID == "" {
		return models.Order{}, false, fmt.Errorf("finalizer: %w - empty order ID", auctionerrors.ErrInvalidBid)
	}

	order, transitioned, err := f.store.MarkOrderPaid(ctx, orderID)
	if err != nil {
		return models.Order{}, false, fmt.Errorf("finalizer: failed to mark order %s paid: %w", orderID, err)
	}

	if transitioned {
		utils.Info("order paid", map[string]any{
			"order_id":   order.OrderID,
			"auction_id": order.AuctionID,
			"amount":     order.WinnerBidAmount.String(),
		})
	}
	return order, transitioned, nil
}
