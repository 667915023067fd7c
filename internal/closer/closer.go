package closer

import (
	"context"
	"fmt"
	"time"

	"salesroom-auction/internal/models"
	"salesroom-auction/internal/notify"
	"salesroom-auction/internal/repository"
	"salesroom-auction/utils"
)

// OrderFinalizer converts a closed auction's winning bid into an order.
type OrderFinalizer interface {
	Finalize(ctx context.Context, auctionID string) (models.Order, error)
}

// Closer transitions auctions out of the open state. Both the lazy path
// (bid acceptance observing an expired deadline) and the scheduled path
// (the sweeper) funnel through CloseIfExpired, so closing behaves the same
// no matter who triggers it.
type Closer struct {
	store     repository.Store
	finalizer OrderFinalizer
	notifier  notify.Dispatcher
	now       func() time.Time
}

// NewCloser creates a Closer. The finalizer may be nil, in which case orders
// are only created when a client calls finalize explicitly.
func NewCloser(store repository.Store, finalizer OrderFinalizer, notifier notify.Dispatcher) *Closer {
	return &Closer{
		store:     store,
		finalizer: finalizer,
		notifier:  notifier,
		now:       time.Now,
	}
}

// CloseIfExpired closes the auction when it is open and past its deadline.
// Returns whether this call performed the transition; closing an auction that
// is already closed (or not yet due) is a no-op, not an error.
func (c *Closer) CloseIfExpired(ctx context.Context, auctionID string) (bool, error) {
	auction, err := c.store.GetAuction(ctx, auctionID)
	if err != nil {
		return false, fmt.Errorf("closer: failed to load auction %s: %w", auctionID, err)
	}
	if auction.Status != models.AuctionOpen {
		return false, nil
	}
	if auction.EndsAt == nil || c.now().Before(*auction.EndsAt) {
		return false, nil
	}
	_, transitioned, err := c.close(ctx, auctionID)
	return transitioned, err
}

// CloseNow force-closes an open auction regardless of its deadline
func (c *Closer) CloseNow(ctx context.Context, auctionID string) (models.Auction, error) {
	auction, _, err := c.close(ctx, auctionID)
	if err != nil {
		return models.Auction{}, err
	}
	return auction, nil
}

// CloseAll sweeps every open auction whose deadline has passed and closes
// each. Safe to call repeatedly and concurrently; returns the number of
// auctions this call transitioned.
func (c *Closer) CloseAll(ctx context.Context) (int, error) {
	expired, err := c.store.ListExpiredOpen(ctx, c.now())
	if err != nil {
		return 0, fmt.Errorf("closer: failed to list expired auctions: %w", err)
	}

	closed := 0
	for _, auction := range expired {
		_, transitioned, err := c.close(ctx, auction.AuctionID)
		if err != nil {
			utils.Error("failed to close expired auction", map[string]any{
				"auction_id": auction.AuctionID,
				"error":      err.Error(),
			})
			continue
		}
		if transitioned {
			closed++
		}
	}
	return closed, nil
}

// close performs the terminal transition. Winner selection happens inside
// the store, atomically with the status flip and serialized against bid
// admission, so the recorded winner is always the ledger's maximum even when
// bids race the close. A concurrent close loses the race cleanly and reports
// no transition.
func (c *Closer) close(ctx context.Context, auctionID string) (models.Auction, bool, error) {
	auction, transitioned, err := c.store.CloseAuction(ctx, auctionID)
	if err != nil {
		return models.Auction{}, false, fmt.Errorf("closer: failed to close auction %s: %w", auctionID, err)
	}
	if !transitioned {
		return auction, false, nil
	}

	utils.Info("auction closed", map[string]any{
		"auction_id":    auction.AuctionID,
		"status":        string(auction.Status),
		"winner_bid_id": auction.WinnerBidID,
	})

	payload := map[string]any{"status": string(auction.Status)}
	if auction.WinnerBidID != "" {
		payload["winner_bid_id"] = auction.WinnerBidID
		if winning, err := c.store.GetBid(ctx, auction.WinnerBidID); err == nil {
			payload["winning_amount"] = winning.Amount.String()
		}

		if c.finalizer != nil {
			// Finalization is idempotent, so a failure here is recoverable via
			// the finalize endpoint; it must not undo the close.
			if _, err := c.finalizer.Finalize(ctx, auction.AuctionID); err != nil {
				utils.Error("order finalization after close failed", map[string]any{
					"auction_id": auction.AuctionID,
					"error":      err.Error(),
				})
			}
		}
	}

	c.notifier.Dispatch(notify.Event{
		Type:      notify.EventAuctionClosed,
		AuctionID: auction.AuctionID,
		Payload:   payload,
	})

	return auction, true, nil
}
