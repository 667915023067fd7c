package auctionerrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Repository-level errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrBidNotFound     = errors.New("bid not found")
	ErrNoBids          = errors.New("no bids found for auction")
)

// business logic errors
var (
	ErrInvalidBid     = errors.New("invalid bid")
	ErrInvalidAmount  = errors.New("invalid bid amount")
	ErrBidTooLow      = errors.New("bid amount too low")
	ErrAuctionExpired = errors.New("auction deadline has passed")
	ErrAuctionNotOpen = errors.New("auction is not open for bidding")
	ErrNoWinner       = errors.New("auction closed without a winning bid")
	ErrStillOpen      = errors.New("auction is still open")
	ErrAlreadyPaid    = errors.New("order already paid")
	ErrInvalidAuction = errors.New("invalid auction definition")
)

// upstream errors
var (
	ErrGatewayFailure = errors.New("payment gateway request failed")
)

// BidTooLowError carries the minimum amount the next bid must reach so a
// rejected caller can retry correctly. It matches ErrBidTooLow under errors.Is.
type BidTooLowError struct {
	MinRequired decimal.Decimal
	// Strict is true when the next bid must exceed MinRequired rather than
	// merely match it (i.e. there is already at least one admitted bid).
	Strict bool
}

func (e *BidTooLowError) Error() string {
	if e.Strict {
		return fmt.Sprintf("bid amount too low: must be greater than %s", e.MinRequired)
	}
	return fmt.Sprintf("bid amount too low: must be at least %s", e.MinRequired)
}

func (e *BidTooLowError) Is(target error) bool {
	return target == ErrBidTooLow
}
