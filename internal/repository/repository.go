package repository

import (
	"context"
	"time"

	model "salesroom-auction/internal/models"
)

// AuctionStore defines persistence for auction records
type AuctionStore interface {
	CreateAuction(ctx context.Context, auction model.Auction) error
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	// ListExpiredOpen returns every auction still marked open whose deadline
	// is at or before the given instant.
	ListExpiredOpen(ctx context.Context, now time.Time) ([]model.Auction, error)
	// CloseAuction selects the winning bid and transitions the auction out of
	// the open state in one atomic step, serialized with AdmitBid for the same
	// auction, so a bid admitted while closing is in flight can never be
	// skipped during winner selection. Auctions with at least one bid go to
	// pending_payment with winner_bid_id set; auctions without bids go to
	// closed. The update is conditional on status still being open; the bool
	// reports whether this call performed the transition, and the returned
	// auction reflects the stored state either way.
	CloseAuction(ctx context.Context, auctionID string) (model.Auction, bool, error)
}

// BidLedger defines the append-only bid store for the auction system
type BidLedger interface {
	// AdmitBid atomically re-validates the auction (open, deadline not
	// passed) and the minimum-bid rule against the current ledger, then
	// persists the bid. The check and the insert are serialized per auction:
	// the Postgres store locks the auction row, the memory store holds a
	// per-auction mutex. Returns ErrAuctionNotFound, ErrAuctionNotOpen,
	// ErrAuctionExpired or a *BidTooLowError on rejection.
	AdmitBid(ctx context.Context, bid model.Bid) (model.Bid, error)
	GetBid(ctx context.Context, bidID string) (model.Bid, error)
	GetBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error)
	GetWinningBid(ctx context.Context, auctionID string) (model.Bid, error)
}

// OrderStore defines persistence for payable orders
type OrderStore interface {
	// CreateOrFetchOrder inserts the order unless one already exists for the
	// same auction, in which case the existing row is returned unchanged.
	CreateOrFetchOrder(ctx context.Context, order model.Order) (model.Order, error)
	GetOrder(ctx context.Context, orderID string) (model.Order, error)
	// MarkOrderPaid flips a pending order to paid. The bool reports whether
	// this call performed the transition (false means it was already paid).
	MarkOrderPaid(ctx context.Context, orderID string) (model.Order, bool, error)
}

// Store bundles the three storage concerns behind one implementation.
type Store interface {
	AuctionStore
	BidLedger
	OrderStore
}
