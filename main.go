package main

import (
	"context"

	bidding "salesroom-auction/internal/biddingService"
	"salesroom-auction/internal/closer"
	"salesroom-auction/internal/database"
	"salesroom-auction/internal/notify"
	"salesroom-auction/internal/orders"
	"salesroom-auction/internal/payment"
	"salesroom-auction/internal/repository"
	"salesroom-auction/internal/server"
	handler "salesroom-auction/services/auction/handler"
	"salesroom-auction/utils"
)

func main() {
	args := ParseArgs()

	store, cleanup := setupStore(args)
	defer cleanup()

	var notifier notify.Dispatcher = notify.NopDispatcher{}
	if args.NotifyWebhookURL != "" {
		notifier = notify.NewWebhookDispatcher(args.NotifyWebhookURL)
	}

	finalizer := orders.NewFinalizer(store)
	auctionCloser := closer.NewCloser(store, finalizer, notifier)
	biddingSvc := bidding.NewBiddingService(store, auctionCloser, notifier)
	gateway := payment.NewHTTPGateway(args.GatewayURL, args.GatewayAPIKey, args.GatewayCurrency)

	auctionHandler := handler.NewAuctionHandler(biddingSvc, auctionCloser, finalizer, gateway, args.PublicBaseURL)
	router := server.SetupRouter(auctionHandler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go closer.NewSweeper(auctionCloser, args.SweepInterval).Run(ctx)

	utils.Info("starting auction server", map[string]any{"addr": args.ServerURL})
	if err := router.Run(args.ServerURL); err != nil {
		utils.Fatal("server exited", map[string]any{"error": err.Error()})
	}
}

// setupStore returns the Postgres-backed store when a database is configured
// and falls back to the in-memory store for local development.
func setupStore(args Args) (repository.Store, func()) {
	if !args.DB.Configured() {
		utils.Warn("no database configured, using in-memory store", nil)
		return repository.NewMemoryRepo(), func() {}
	}

	db, err := database.NewPostgres(args.DB)
	if err != nil {
		utils.Fatal("failed to connect to postgres", map[string]any{"error": err.Error()})
	}
	return repository.NewPostgresRepo(db), func() { db.Close() }
}
