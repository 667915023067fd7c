package bidding

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"salesroom-auction/internal/auctionerrors"
	"salesroom-auction/internal/models"
	"salesroom-auction/internal/notify"
	"salesroom-auction/internal/repository"
	"salesroom-auction/utils"
)

// maxBidderNameLen caps the free-text display name stored with a bid.
const maxBidderNameLen = 120

// ExpiryCloser closes an auction whose deadline has passed. Bid acceptance
// uses it to trigger lazy closing when it observes an expired deadline before
// the sweeper does.
type ExpiryCloser interface {
	CloseIfExpired(ctx context.Context, auctionID string) (bool, error)
}

// BiddingService defines the business logic for auction bidding
type BiddingService struct {
	store    repository.Store
	closer   ExpiryCloser
	notifier notify.Dispatcher
	now      func() time.Time
}

// NewBiddingService creates a new BiddingService instance. The closer may be
// nil, in which case expired auctions are only closed by the sweeper.
func NewBiddingService(store repository.Store, closer ExpiryCloser, notifier notify.Dispatcher) *BiddingService {
	return &BiddingService{
		store:    store,
		closer:   closer,
		notifier: notifier,
		now:      time.Now,
	}
}

// CreateAuctionParams carries the host's auction definition.
type CreateAuctionParams struct {
	SalesroomID  string
	Title        string
	StartPrice   decimal.Decimal
	ReservePrice *decimal.Decimal
	EndsAt       *time.Time
	Open         bool
}

// CreateAuction registers a new auction, scheduled or immediately open
func (s *BiddingService) CreateAuction(ctx context.Context, params CreateAuctionParams) (models.Auction, error) {
	if !params.StartPrice.IsPositive() {
		return models.Auction{}, fmt.Errorf("service: %w - start price must be positive", auctionerrors.ErrInvalidAuction)
	}
	if params.ReservePrice != nil && params.ReservePrice.LessThan(params.StartPrice) {
		return models.Auction{}, fmt.Errorf("service: %w - reserve price below start price", auctionerrors.ErrInvalidAuction)
	}

	status := models.AuctionScheduled
	if params.Open {
		status = models.AuctionOpen
	}

	auction := models.Auction{
		AuctionID:    utils.GenerateID(),
		SalesroomID:  params.SalesroomID,
		Title:        strings.TrimSpace(params.Title),
		Status:       status,
		StartPrice:   params.StartPrice,
		ReservePrice: params.ReservePrice,
		EndsAt:       params.EndsAt,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.store.CreateAuction(ctx, auction); err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to create auction: %w", err)
	}

	s.notifier.Dispatch(notify.Event{
		Type:      notify.EventAuctionCreated,
		AuctionID: auction.AuctionID,
		Payload:   map[string]any{"start_price": auction.StartPrice.String(), "status": string(auction.Status)},
	})

	return auction, nil
}

// PlaceBid validates and records a bid against an auction. Preconditions are
// checked in a fixed order so each failure mode maps to a distinct rejection:
// unknown auction, expired deadline, not open, bad amount, amount too low.
// The final minimum-bid check runs atomically with the insert inside the
// store, so concurrent bids on one auction are admitted serially.
func (s *BiddingService) PlaceBid(ctx context.Context, auctionID string, amount decimal.Decimal, bidderName string) (models.Bid, error) {
	if auctionID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - missing auction ID", auctionerrors.ErrInvalidBid)
	}

	auction, err := s.store.GetAuction(ctx, auctionID)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
	}

	now := s.now().UTC()
	if auction.Expired(now) {
		// Closing may lag behind the deadline; acceptance must not. Trigger
		// the close here so the stored status catches up.
		if s.closer != nil {
			if _, closeErr := s.closer.CloseIfExpired(ctx, auctionID); closeErr != nil {
				utils.Warn("lazy close after expired bid failed", map[string]any{
					"auction_id": auctionID,
					"error":      closeErr.Error(),
				})
			}
		}
		return models.Bid{}, fmt.Errorf("service: %w", auctionerrors.ErrAuctionExpired)
	}
	if auction.Status != models.AuctionOpen {
		return models.Bid{}, fmt.Errorf("service: %w - status is %s", auctionerrors.ErrAuctionNotOpen, auction.Status)
	}
	if !amount.IsPositive() {
		return models.Bid{}, fmt.Errorf("service: %w - amount must be positive", auctionerrors.ErrInvalidAmount)
	}

	bidderName = strings.TrimSpace(bidderName)
	if len(bidderName) > maxBidderNameLen {
		// cut on a rune boundary so the stored name stays valid UTF-8
		cut := maxBidderNameLen
		for cut > 0 && !utf8.RuneStart(bidderName[cut]) {
			cut--
		}
		bidderName = bidderName[:cut]
	}

	bid := models.Bid{
		BidID:      utils.GenerateID(),
		AuctionID:  auctionID,
		Amount:     amount,
		BidderName: bidderName,
		CreatedAt:  now,
	}

	admitted, err := s.store.AdmitBid(ctx, bid)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to admit bid for auction %s: %w", auctionID, err)
	}

	s.notifier.Dispatch(notify.Event{
		Type:      notify.EventBidPlaced,
		AuctionID: auctionID,
		Payload:   map[string]any{"bid_id": admitted.BidID, "amount": admitted.Amount.String()},
	})

	return admitted, nil
}

// GetAuction returns a single auction record
func (s *BiddingService) GetAuction(ctx context.Context, auctionID string) (models.Auction, error) {
	if auctionID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}

	auction, err := s.store.GetAuction(ctx, auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}
	return auction, nil
}

// GetBidsForAuction returns all bids for a specific auction
func (s *BiddingService) GetBidsForAuction(ctx context.Context, auctionID string) ([]models.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}

	bids, err := s.store.GetBidsByAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}
	return bids, nil
}

// GetWinningBid returns the highest bid for a specific auction
func (s *BiddingService) GetWinningBid(ctx context.Context, auctionID string) (models.Bid, error) {
	if auctionID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}

	winningBid, err := s.store.GetWinningBid(ctx, auctionID)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to get winning bid for auction %s: %w", auctionID, err)
	}
	return winningBid, nil
}
