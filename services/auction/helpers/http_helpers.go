package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"salesroom-auction/internal/auctionerrors"
	"salesroom-auction/utils"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, auctionerrors.ErrOrderNotFound):
		return http.StatusNotFound, "order not found"
	case errors.Is(err, auctionerrors.ErrBidNotFound):
		return http.StatusNotFound, "bid not found"
	case errors.Is(err, auctionerrors.ErrNoBids):
		return http.StatusNotFound, "no bids found for auction"
	case errors.Is(err, auctionerrors.ErrInvalidBid),
		errors.Is(err, auctionerrors.ErrInvalidAmount),
		errors.Is(err, auctionerrors.ErrInvalidAuction):
		return http.StatusBadRequest, "invalid request details"
	case errors.Is(err, auctionerrors.ErrAuctionExpired):
		return http.StatusGone, "auction deadline has passed"
	case errors.Is(err, auctionerrors.ErrAuctionNotOpen):
		return http.StatusConflict, "auction is not open"
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low"
	case errors.Is(err, auctionerrors.ErrNoWinner):
		return http.StatusConflict, "auction has no winner"
	case errors.Is(err, auctionerrors.ErrStillOpen):
		return http.StatusConflict, "auction is still open"
	case errors.Is(err, auctionerrors.ErrGatewayFailure):
		return http.StatusBadGateway, "payment gateway unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// BidRejection writes the error response for a rejected bid, attaching the
// minimum required amount when the rejection was bid-too-low.
func BidRejection(c *gin.Context, err error) {
	status, message := MapErrorToHTTP(err)

	var tooLow *auctionerrors.BidTooLowError
	if errors.As(err, &tooLow) {
		c.JSON(status, gin.H{
			"status":       status,
			"message":      message,
			"error":        err.Error(),
			"min_required": tooLow.MinRequired,
		})
		return
	}
	utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
