package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	handler "salesroom-auction/services/auction/handler"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(auctionHandler *handler.AuctionHandler) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging
	router.Use(cors.Default())          // the bidding UI is served from another origin

	auctions := router.Group("/auctions")
	{
		auctions.POST("", auctionHandler.CreateAuctionHandler)
		auctions.POST("/close-expired", auctionHandler.CloseExpiredHandler)
		auctions.GET("/:auction_id", auctionHandler.GetAuctionHandler)
		auctions.GET("/:auction_id/bids", auctionHandler.GetBidsByAuctionHandler)
		auctions.GET("/:auction_id/winning", auctionHandler.GetWinningBidHandler)
		auctions.POST("/:auction_id/bids", auctionHandler.RecordBidHandler)
		auctions.POST("/:auction_id/close", auctionHandler.CloseAuctionHandler)
		auctions.POST("/:auction_id/finalize", auctionHandler.FinalizeHandler)
	}

	orders := router.Group("/orders")
	{
		orders.POST("/:order_id/checkout", auctionHandler.CheckoutHandler)
		orders.POST("/:order_id/mark-paid", auctionHandler.MarkPaidHandler)
	}

	payments := router.Group("/payments")
	{
		payments.POST("/webhook", auctionHandler.PaymentWebhookHandler)
	}

	return router
}
