package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"salesroom-auction/internal/auctionerrors"
	model "salesroom-auction/internal/models"
)

// MemoryRepo is a concurrency-safe in-memory implementation of Store. It
// backs tests and the dev mode that runs without a database.
type MemoryRepo struct {
	mu       sync.RWMutex
	auctions map[string]model.Auction // key: auctionID
	bids     map[string][]model.Bid   // key: auctionID -> append-only ledger
	orders   map[string]model.Order   // key: orderID
	byAuct   map[string]string        // key: auctionID -> orderID (uniqueness of orders per auction)

	lockMu     sync.Mutex
	admitLocks map[string]*sync.Mutex // per-auction write serialization
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		auctions:   make(map[string]model.Auction),
		bids:       make(map[string][]model.Bid),
		orders:     make(map[string]model.Order),
		byAuct:     make(map[string]string),
		admitLocks: make(map[string]*sync.Mutex),
	}
}

// admitLock returns the mutex that serializes bid admission for one auction.
func (r *MemoryRepo) admitLock(auctionID string) *sync.Mutex {
	r.lockMu.Lock()
	defer r.lockMu.Unlock()
	l, ok := r.admitLocks[auctionID]
	if !ok {
		l = &sync.Mutex{}
		r.admitLocks[auctionID] = l
	}
	return l
}

// CreateAuction stores a new auction record
func (r *MemoryRepo) CreateAuction(_ context.Context, auction model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auctions[auction.AuctionID] = auction
	return nil
}

// GetAuction returns the auction with the given id
func (r *MemoryRepo) GetAuction(_ context.Context, auctionID string) (model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auction, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return auction, nil
}

// ListExpiredOpen returns open auctions whose deadline is at or before now
func (r *MemoryRepo) ListExpiredOpen(_ context.Context, now time.Time) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var expired []model.Auction
	for _, a := range r.auctions {
		if a.Status == model.AuctionOpen && a.EndsAt != nil && !a.EndsAt.After(now) {
			expired = append(expired, a)
		}
	}
	return expired, nil
}

// CloseAuction selects the winner and applies the terminal transition while
// holding the auction's admit lock, so no bid can slip into the ledger
// between winner selection and the status flip.
func (r *MemoryRepo) CloseAuction(_ context.Context, auctionID string) (model.Auction, bool, error) {
	lock := r.admitLock(auctionID)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	auction, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, false, fmt.Errorf("close auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if auction.Status != model.AuctionOpen {
		return auction, false, nil
	}

	auction.Status = model.AuctionClosed
	if winning, ok := r.highestBid(auctionID); ok {
		auction.Status = model.AuctionPendingPayment
		auction.WinnerBidID = winning.BidID
	}
	r.auctions[auctionID] = auction
	return auction, true, nil
}

// AdmitBid validates and appends a bid while holding the auction's admit lock,
// so the minimum-bid check and the append form one atomic step per auction.
func (r *MemoryRepo) AdmitBid(_ context.Context, bid model.Bid) (model.Bid, error) {
	lock := r.admitLock(bid.AuctionID)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	auction, ok := r.auctions[bid.AuctionID]
	if !ok {
		return model.Bid{}, fmt.Errorf("admit bid for auction %s: %w", bid.AuctionID, auctionerrors.ErrAuctionNotFound)
	}
	if auction.Expired(bid.CreatedAt) {
		return model.Bid{}, fmt.Errorf("admit bid for auction %s: %w", bid.AuctionID, auctionerrors.ErrAuctionExpired)
	}
	if auction.Status != model.AuctionOpen {
		return model.Bid{}, fmt.Errorf("admit bid for auction %s: %w", bid.AuctionID, auctionerrors.ErrAuctionNotOpen)
	}

	if highest, ok := r.highestBid(bid.AuctionID); ok {
		if bid.Amount.LessThanOrEqual(highest.Amount) {
			return model.Bid{}, fmt.Errorf("admit bid for auction %s: %w",
				bid.AuctionID, &auctionerrors.BidTooLowError{MinRequired: highest.Amount, Strict: true})
		}
	} else if bid.Amount.LessThan(auction.StartPrice) {
		return model.Bid{}, fmt.Errorf("admit bid for auction %s: %w",
			bid.AuctionID, &auctionerrors.BidTooLowError{MinRequired: auction.StartPrice})
	}

	r.bids[bid.AuctionID] = append(r.bids[bid.AuctionID], bid)
	return bid, nil
}

// highestBid returns the current winning bid. Caller must hold mu.
func (r *MemoryRepo) highestBid(auctionID string) (model.Bid, bool) {
	bids := r.bids[auctionID]
	if len(bids) == 0 {
		return model.Bid{}, false
	}
	winning := bids[0]
	for _, b := range bids[1:] {
		if b.Amount.GreaterThan(winning.Amount) ||
			(b.Amount.Equal(winning.Amount) && b.CreatedAt.Before(winning.CreatedAt)) {
			winning = b
		}
	}
	return winning, true
}

// GetBid returns a single bid by id
func (r *MemoryRepo) GetBid(_ context.Context, bidID string) (model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, bids := range r.bids {
		for _, b := range bids {
			if b.BidID == bidID {
				return b, nil
			}
		}
	}
	return model.Bid{}, fmt.Errorf("get bid %s: %w", bidID, auctionerrors.ErrBidNotFound)
}

// GetBidsByAuction returns all bids for an auction in admission order
func (r *MemoryRepo) GetBidsByAuction(_ context.Context, auctionID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return append([]model.Bid(nil), r.bids[auctionID]...), nil
}

// GetWinningBid returns the highest bid for an auction, earliest wins on ties
func (r *MemoryRepo) GetWinningBid(_ context.Context, auctionID string) (model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	winning, ok := r.highestBid(auctionID)
	if !ok {
		return model.Bid{}, fmt.Errorf("get winning bid for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	return winning, nil
}

// CreateOrFetchOrder inserts the order unless the auction already has one
func (r *MemoryRepo) CreateOrFetchOrder(_ context.Context, order model.Order) (model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existingID, ok := r.byAuct[order.AuctionID]; ok {
		return r.orders[existingID], nil
	}
	r.orders[order.OrderID] = order
	r.byAuct[order.AuctionID] = order.OrderID
	return order, nil
}

// GetOrder returns the order with the given id
func (r *MemoryRepo) GetOrder(_ context.Context, orderID string) (model.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[orderID]
	if !ok {
		return model.Order{}, fmt.Errorf("get order %s: %w", orderID, auctionerrors.ErrOrderNotFound)
	}
	return order, nil
}

// MarkOrderPaid flips a pending order to paid
func (r *MemoryRepo) MarkOrderPaid(_ context.Context, orderID string) (model.Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[orderID]
	if !ok {
		return model.Order{}, false, fmt.Errorf("mark order %s paid: %w", orderID, auctionerrors.ErrOrderNotFound)
	}
	if order.Status == model.OrderPaid {
		return order, false, nil
	}
	order.Status = model.OrderPaid
	r.orders[orderID] = order
	return order, true, nil
}
