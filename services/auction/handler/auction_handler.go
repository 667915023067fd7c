package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	bidding "salesroom-auction/internal/biddingService"
	model "salesroom-auction/internal/models"
	"salesroom-auction/internal/payment"
	"salesroom-auction/services/auction/helpers"
	"salesroom-auction/utils"
)

type AuctionServiceInterface interface {
	CreateAuction(ctx context.Context, params bidding.CreateAuctionParams) (model.Auction, error)
	PlaceBid(ctx context.Context, auctionID string, amount decimal.Decimal, bidderName string) (model.Bid, error)
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	GetBidsForAuction(ctx context.Context, auctionID string) ([]model.Bid, error)
	GetWinningBid(ctx context.Context, auctionID string) (model.Bid, error)
}

type CloserServiceInterface interface {
	CloseAll(ctx context.Context) (int, error)
	CloseNow(ctx context.Context, auctionID string) (model.Auction, error)
}

type OrderServiceInterface interface {
	Finalize(ctx context.Context, auctionID string) (model.Order, error)
	GetOrder(ctx context.Context, orderID string) (model.Order, error)
	MarkPaid(ctx context.Context, orderID string) (model.Order, bool, error)
}

type AuctionHandler struct {
	service AuctionServiceInterface
	closer  CloserServiceInterface
	orders  OrderServiceInterface
	gateway payment.Gateway
	baseURL string
}

func NewAuctionHandler(service AuctionServiceInterface, closer CloserServiceInterface, orders OrderServiceInterface, gateway payment.Gateway, baseURL string) *AuctionHandler {
	return &AuctionHandler{
		service: service,
		closer:  closer,
		orders:  orders,
		gateway: gateway,
		baseURL: baseURL,
	}
}

// CreateAuctionHandler handles POST /auctions
func (h *AuctionHandler) CreateAuctionHandler(c *gin.Context) {
	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	auction, err := h.service.CreateAuction(c.Request.Context(), bidding.CreateAuctionParams{
		SalesroomID:  req.SalesroomID,
		Title:        req.Title,
		StartPrice:   *req.StartPrice,
		ReservePrice: req.ReservePrice,
		EndsAt:       req.EndsAt,
		Open:         req.Open,
	})
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("CreateAuctionHandler: failed to create auction", map[string]any{
			"error": err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, auction, "auction created successfully")
	helpers.LogSuccess("CreateAuctionHandler", "auction created successfully", map[string]any{
		"auction_id":  auction.AuctionID,
		"status":      string(auction.Status),
		"start_price": auction.StartPrice.String(),
	})
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *AuctionHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	auction, err := h.service.GetAuction(c.Request.Context(), auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetAuctionHandler: error retrieving auction", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, auction, "auction retrieved successfully")
}

// RecordBidHandler handles POST /auctions/:auction_id/bids
func (h *AuctionHandler) RecordBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "RecordBidHandler", err)
		return
	}

	bid, err := h.service.PlaceBid(c.Request.Context(), auctionID, *req.Amount, req.BidderName)
	if err != nil {
		helpers.BidRejection(c, err)
		utils.Warn("RecordBidHandler: bid rejected", map[string]any{
			"auction_id": auctionID,
			"amount":     req.Amount.String(),
			"error":      err.Error(),
		})
		return
	}

	resp := helpers.BidResponse{
		BidID:      bid.BidID,
		AuctionID:  bid.AuctionID,
		Amount:     bid.Amount,
		BidderName: bid.BidderName,
		CreatedAt:  bid.CreatedAt.UTC().Format(time.RFC3339),
	}

	utils.JSONResponse(c, http.StatusCreated, resp, "bid recorded successfully")
	helpers.LogSuccess("RecordBidHandler", "bid recorded successfully", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": bid.AuctionID,
		"amount":     bid.Amount.String(),
	})
}

// GetBidsByAuctionHandler handles GET /auctions/:auction_id/bids
func (h *AuctionHandler) GetBidsByAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bids, err := h.service.GetBidsForAuction(c.Request.Context(), auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetBidsByAuctionHandler: error retrieving bids", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	if bids == nil {
		bids = []model.Bid{}
	}

	utils.JSONResponse(c, http.StatusOK, bids, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsByAuctionHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(bids),
	})
}

// GetWinningBidHandler handles GET /auctions/:auction_id/winning
func (h *AuctionHandler) GetWinningBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bid, err := h.service.GetWinningBid(c.Request.Context(), auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetWinningBidHandler: winning bid error", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	resp := helpers.BidResponse{
		BidID:      bid.BidID,
		AuctionID:  bid.AuctionID,
		Amount:     bid.Amount,
		BidderName: bid.BidderName,
		CreatedAt:  bid.CreatedAt.UTC().Format(time.RFC3339),
	}

	utils.JSONResponse(c, http.StatusOK, resp, "winning bid retrieved successfully")
}

// CloseExpiredHandler handles POST /auctions/close-expired
func (h *AuctionHandler) CloseExpiredHandler(c *gin.Context) {
	count, err := h.closer.CloseAll(c.Request.Context())
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("CloseExpiredHandler: sweep failed", map[string]any{"error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.CloseExpiredResponse{ClosedCount: count}, "expired auctions closed")
	helpers.LogSuccess("CloseExpiredHandler", "expired auctions closed", map[string]any{"closed_count": count})
}

// CloseAuctionHandler handles POST /auctions/:auction_id/close
func (h *AuctionHandler) CloseAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	auction, err := h.closer.CloseNow(c.Request.Context(), auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("CloseAuctionHandler: close failed", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, auction, "auction closed")
	helpers.LogSuccess("CloseAuctionHandler", "auction closed", map[string]any{
		"auction_id": auction.AuctionID,
		"status":     string(auction.Status),
	})
}

// FinalizeHandler handles POST /auctions/:auction_id/finalize
func (h *AuctionHandler) FinalizeHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	order, err := h.orders.Finalize(c.Request.Context(), auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("FinalizeHandler: finalize failed", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, orderResponse(order), "order finalized successfully")
	helpers.LogSuccess("FinalizeHandler", "order finalized successfully", map[string]any{
		"auction_id": auctionID,
		"order_id":   order.OrderID,
		"amount":     order.WinnerBidAmount.String(),
	})
}

// CheckoutHandler handles POST /orders/:order_id/checkout
func (h *AuctionHandler) CheckoutHandler(c *gin.Context) {
	orderID := c.Param("order_id")
	order, err := h.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("CheckoutHandler: order lookup failed", map[string]any{"order_id": orderID, "error": err.Error()})
		return
	}

	successURL := h.baseURL + "/payment-success?orderId=" + order.OrderID
	cancelURL := h.baseURL + "/payment-cancelled?orderId=" + order.OrderID

	url, err := h.gateway.CreateCheckoutSession(c.Request.Context(), order, successURL, cancelURL)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("CheckoutHandler: checkout session failed", map[string]any{"order_id": orderID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.CheckoutResponse{URL: url}, "checkout session created")
	helpers.LogSuccess("CheckoutHandler", "checkout session created", map[string]any{"order_id": orderID})
}

// MarkPaidHandler handles POST /orders/:order_id/mark-paid
func (h *AuctionHandler) MarkPaidHandler(c *gin.Context) {
	orderID := c.Param("order_id")
	_, transitioned, err := h.orders.MarkPaid(c.Request.Context(), orderID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("MarkPaidHandler: mark paid failed", map[string]any{"order_id": orderID, "error": err.Error()})
		return
	}

	status := "paid"
	if !transitioned {
		status = "already_paid"
	}

	utils.JSONResponse(c, http.StatusOK, helpers.MarkPaidResponse{Status: status}, "order payment recorded")
	helpers.LogSuccess("MarkPaidHandler", "order payment recorded", map[string]any{
		"order_id": orderID,
		"status":   status,
	})
}

// PaymentWebhookHandler handles POST /payments/webhook
func (h *AuctionHandler) PaymentWebhookHandler(c *gin.Context) {
	var req helpers.PaymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PaymentWebhookHandler", err)
		return
	}

	// Only completion events mutate state; everything else is acknowledged
	// so the processor stops retrying.
	if req.Type != "checkout.completed" {
		utils.JSONResponse(c, http.StatusOK, nil, "event ignored")
		return
	}

	_, transitioned, err := h.orders.MarkPaid(c.Request.Context(), req.Reference)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("PaymentWebhookHandler: failed to record payment", map[string]any{
			"reference": req.Reference,
			"error":     err.Error(),
		})
		return
	}

	status := "paid"
	if !transitioned {
		status = "already_paid"
	}

	utils.JSONResponse(c, http.StatusOK, helpers.MarkPaidResponse{Status: status}, "payment event processed")
	helpers.LogSuccess("PaymentWebhookHandler", "payment event processed", map[string]any{
		"reference": req.Reference,
		"status":    status,
	})
}

func orderResponse(order model.Order) helpers.OrderResponse {
	return helpers.OrderResponse{
		OrderID:         order.OrderID,
		AuctionID:       order.AuctionID,
		WinnerName:      order.WinnerName,
		WinnerBidAmount: order.WinnerBidAmount,
		Status:          string(order.Status),
		CreatedAt:       order.CreatedAt.UTC().Format(time.RFC3339),
	}
}
