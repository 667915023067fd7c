package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuctionStatus is the lifecycle state of an auction. Transitions only move
// forward: scheduled -> open -> pending_payment -> closed, or open -> closed
// directly when the auction ends without a single bid.
type AuctionStatus string

const (
	AuctionScheduled      AuctionStatus = "scheduled"
	AuctionOpen           AuctionStatus = "open"
	AuctionPendingPayment AuctionStatus = "pending_payment"
	AuctionClosed         AuctionStatus = "closed"
)

// OrderStatus is the payment state of an order.
type OrderStatus string

const (
	OrderPendingPayment OrderStatus = "pending_payment"
	OrderPaid           OrderStatus = "paid"
)

// Auction represents a timed bidding process, optionally embedded in a
// salesroom presentation.
type Auction struct {
	AuctionID    string           `json:"auction_id"`
	SalesroomID  string           `json:"salesroom_id,omitempty"`
	Title        string           `json:"title"`
	Status       AuctionStatus    `json:"status"`
	StartPrice   decimal.Decimal  `json:"start_price"`
	ReservePrice *decimal.Decimal `json:"reserve_price,omitempty"`
	EndsAt       *time.Time       `json:"ends_at,omitempty"`
	WinnerBidID  string           `json:"winner_bid_id,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Expired reports whether the auction deadline has passed at the given
// instant. Auctions without a deadline never expire on their own.
func (a Auction) Expired(now time.Time) bool {
	return a.EndsAt != nil && now.After(*a.EndsAt)
}

// Bid is an immutable, timestamped monetary offer against an auction.
type Bid struct {
	BidID      string          `json:"bid_id"`
	AuctionID  string          `json:"auction_id"`
	Amount     decimal.Decimal `json:"amount"`
	BidderName string          `json:"bidder_name,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Order is the payable record created once an auction closes with a winner.
// At most one order ever exists per auction.
type Order struct {
	OrderID         string          `json:"order_id"`
	AuctionID       string          `json:"auction_id"`
	WinnerName      string          `json:"winner_name,omitempty"`
	WinnerBidAmount decimal.Decimal `json:"winner_bid_amount"`
	Status          OrderStatus     `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}
