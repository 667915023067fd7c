package helpers

import (
	"time"

	"github.com/shopspring/decimal"
)

// Request/Response DTOs. The money fields are pointers so that a missing
// field fails binding instead of silently decoding to a zero amount.
type CreateAuctionRequest struct {
	SalesroomID  string           `json:"salesroom_id"`
	Title        string           `json:"title"`
	StartPrice   *decimal.Decimal `json:"start_price" binding:"required"`
	ReservePrice *decimal.Decimal `json:"reserve_price"`
	EndsAt       *time.Time       `json:"ends_at"`
	Open         bool             `json:"open"`
}

type PlaceBidRequest struct {
	Amount     *decimal.Decimal `json:"amount" binding:"required"`
	BidderName string           `json:"bidder_name"`
}

type BidResponse struct {
	BidID      string          `json:"bid_id"`
	AuctionID  string          `json:"auction_id"`
	Amount     decimal.Decimal `json:"amount"`
	BidderName string          `json:"bidder_name,omitempty"`
	CreatedAt  string          `json:"created_at"`
}

type OrderResponse struct {
	OrderID         string          `json:"order_id"`
	AuctionID       string          `json:"auction_id"`
	WinnerName      string          `json:"winner_name,omitempty"`
	WinnerBidAmount decimal.Decimal `json:"winner_bid_amount"`
	Status          string          `json:"status"`
	CreatedAt       string          `json:"created_at"`
}

type CloseExpiredResponse struct {
	ClosedCount int `json:"closed_count"`
}

type CheckoutResponse struct {
	URL string `json:"url"`
}

type MarkPaidResponse struct {
	Status string `json:"status"` // paid | already_paid
}

// PaymentWebhookRequest is the completion event delivered by the payment
// processor. Reference carries back the order id we supplied at checkout.
type PaymentWebhookRequest struct {
	Type      string `json:"type" binding:"required"`
	Reference string `json:"reference" binding:"required"`
}
