package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"salesroom-auction/internal/auctionerrors"
	model "salesroom-auction/internal/models"
)

// PostgresRepo implements Store on top of database/sql with the pgx driver.
//
// Bid admission runs inside a transaction that takes a row lock on the
// auction (SELECT ... FOR UPDATE), so the minimum-bid check and the insert
// are serialized per auction without blocking other auctions.
type PostgresRepo struct {
	db *sql.DB
}

// NewPostgresRepo creates a Postgres-backed repository
func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// CreateAuction inserts a new auction row
func (r *PostgresRepo) CreateAuction(ctx context.Context, auction model.Auction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auctions (id, salesroom_id, title, status, start_price, reserve_price, ends_at, created_at)
		 VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8)`,
		auction.AuctionID, auction.SalesroomID, auction.Title, auction.Status,
		auction.StartPrice, reserveValue(auction.ReservePrice), endsAtValue(auction.EndsAt), auction.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create auction %s: %w", auction.AuctionID, err)
	}
	return nil
}

// GetAuction returns the auction with the given id
func (r *PostgresRepo) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, COALESCE(salesroom_id, ''), title, status, start_price, reserve_price, ends_at, COALESCE(winner_bid_id, ''), created_at
		 FROM auctions WHERE id = $1`, auctionID)
	return scanAuction(row, auctionID)
}

// ListExpiredOpen returns open auctions whose deadline is at or before now
func (r *PostgresRepo) ListExpiredOpen(ctx context.Context, now time.Time) ([]model.Auction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, COALESCE(salesroom_id, ''), title, status, start_price, reserve_price, ends_at, COALESCE(winner_bid_id, ''), created_at
		 FROM auctions WHERE status = $1 AND ends_at IS NOT NULL AND ends_at <= $2`,
		model.AuctionOpen, now)
	if err != nil {
		return nil, fmt.Errorf("list expired auctions: %w", err)
	}
	defer rows.Close()

	var auctions []model.Auction
	for rows.Next() {
		auction, err := scanAuction(rows, "")
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, auction)
	}
	return auctions, rows.Err()
}

// CloseAuction selects the winner and applies the terminal transition in one
// transaction holding the auction row lock. AdmitBid takes the same lock, so
// the winner read here always sees the complete ledger: a bid still in flight
// either commits before the lock is granted or is rejected as not-open after.
func (r *PostgresRepo) CloseAuction(ctx context.Context, auctionID string) (model.Auction, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Auction{}, false, fmt.Errorf("close auction %s: %w", auctionID, err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT id, COALESCE(salesroom_id, ''), title, status, start_price, reserve_price, ends_at, COALESCE(winner_bid_id, ''), created_at
		 FROM auctions WHERE id = $1 FOR UPDATE`, auctionID)
	auction, err := scanAuction(row, auctionID)
	if err != nil {
		return model.Auction{}, false, fmt.Errorf("close auction %s: %w", auctionID, err)
	}
	if auction.Status != model.AuctionOpen {
		return auction, false, nil
	}

	status := model.AuctionClosed
	winnerBidID := ""
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM bids WHERE auction_id = $1 ORDER BY amount DESC, created_at ASC LIMIT 1`,
		auctionID).Scan(&winnerBidID)
	switch {
	case err == nil:
		status = model.AuctionPendingPayment
	case errors.Is(err, sql.ErrNoRows):
		// no bids ever placed; the auction closes without a winner
	default:
		return model.Auction{}, false, fmt.Errorf("close auction %s: %w", auctionID, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE auctions SET status = $2, winner_bid_id = NULLIF($3, '') WHERE id = $1`,
		auctionID, status, winnerBidID)
	if err != nil {
		return model.Auction{}, false, fmt.Errorf("close auction %s: %w", auctionID, err)
	}
	if err := tx.Commit(); err != nil {
		return model.Auction{}, false, fmt.Errorf("close auction %s: %w", auctionID, err)
	}

	auction.Status = status
	auction.WinnerBidID = winnerBidID
	return auction, true, nil
}

// AdmitBid re-validates and inserts the bid in one transaction holding the
// auction row lock.
func (r *PostgresRepo) AdmitBid(ctx context.Context, bid model.Bid) (model.Bid, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Bid{}, fmt.Errorf("admit bid for auction %s: %w", bid.AuctionID, err)
	}
	defer tx.Rollback()

	var (
		status     model.AuctionStatus
		startPrice decimal.Decimal
		endsAt     sql.NullTime
	)
	err = tx.QueryRowContext(ctx,
		`SELECT status, start_price, ends_at FROM auctions WHERE id = $1 FOR UPDATE`,
		bid.AuctionID).Scan(&status, &startPrice, &endsAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bid{}, fmt.Errorf("admit bid for auction %s: %w", bid.AuctionID, auctionerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return model.Bid{}, fmt.Errorf("admit bid for auction %s: %w", bid.AuctionID, err)
	}

	if endsAt.Valid && bid.CreatedAt.After(endsAt.Time) {
		return model.Bid{}, fmt.Errorf("admit bid for auction %s: %w", bid.AuctionID, auctionerrors.ErrAuctionExpired)
	}
	if status != model.AuctionOpen {
		return model.Bid{}, fmt.Errorf("admit bid for auction %s: %w", bid.AuctionID, auctionerrors.ErrAuctionNotOpen)
	}

	var highest decimal.NullDecimal
	err = tx.QueryRowContext(ctx,
		`SELECT amount FROM bids WHERE auction_id = $1 ORDER BY amount DESC, created_at ASC LIMIT 1`,
		bid.AuctionID).Scan(&highest)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return model.Bid{}, fmt.Errorf("admit bid for auction %s: %w", bid.AuctionID, err)
	}

	if highest.Valid {
		if bid.Amount.LessThanOrEqual(highest.Decimal) {
			return model.Bid{}, fmt.Errorf("admit bid for auction %s: %w",
				bid.AuctionID, &auctionerrors.BidTooLowError{MinRequired: highest.Decimal, Strict: true})
		}
	} else if bid.Amount.LessThan(startPrice) {
		return model.Bid{}, fmt.Errorf("admit bid for auction %s: %w",
			bid.AuctionID, &auctionerrors.BidTooLowError{MinRequired: startPrice})
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO bids (id, auction_id, amount, bidder_name, created_at) VALUES ($1, $2, $3, $4, $5)`,
		bid.BidID, bid.AuctionID, bid.Amount, bid.BidderName, bid.CreatedAt)
	if err != nil {
		return model.Bid{}, fmt.Errorf("admit bid for auction %s: %w", bid.AuctionID, err)
	}

	if err := tx.Commit(); err != nil {
		return model.Bid{}, fmt.Errorf("admit bid for auction %s: %w", bid.AuctionID, err)
	}
	return bid, nil
}

// GetBid returns a single bid by id
func (r *PostgresRepo) GetBid(ctx context.Context, bidID string) (model.Bid, error) {
	var bid model.Bid
	err := r.db.QueryRowContext(ctx,
		`SELECT id, auction_id, amount, bidder_name, created_at FROM bids WHERE id = $1`, bidID).
		Scan(&bid.BidID, &bid.AuctionID, &bid.Amount, &bid.BidderName, &bid.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bid{}, fmt.Errorf("get bid %s: %w", bidID, auctionerrors.ErrBidNotFound)
	}
	if err != nil {
		return model.Bid{}, fmt.Errorf("get bid %s: %w", bidID, err)
	}
	return bid, nil
}

// GetBidsByAuction returns all bids for an auction in admission order
func (r *PostgresRepo) GetBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error) {
	if _, err := r.GetAuction(ctx, auctionID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, auction_id, amount, bidder_name, created_at FROM bids WHERE auction_id = $1 ORDER BY created_at ASC`,
		auctionID)
	if err != nil {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
	}
	defer rows.Close()

	var bids []model.Bid
	for rows.Next() {
		var bid model.Bid
		if err := rows.Scan(&bid.BidID, &bid.AuctionID, &bid.Amount, &bid.BidderName, &bid.CreatedAt); err != nil {
			return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
		}
		bids = append(bids, bid)
	}
	return bids, rows.Err()
}

// GetWinningBid returns the highest bid for an auction, earliest wins on ties
func (r *PostgresRepo) GetWinningBid(ctx context.Context, auctionID string) (model.Bid, error) {
	var bid model.Bid
	err := r.db.QueryRowContext(ctx,
		`SELECT id, auction_id, amount, bidder_name, created_at FROM bids
		 WHERE auction_id = $1 ORDER BY amount DESC, created_at ASC LIMIT 1`, auctionID).
		Scan(&bid.BidID, &bid.AuctionID, &bid.Amount, &bid.BidderName, &bid.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bid{}, fmt.Errorf("get winning bid for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	if err != nil {
		return model.Bid{}, fmt.Errorf("get winning bid for auction %s: %w", auctionID, err)
	}
	return bid, nil
}

// CreateOrFetchOrder inserts the order unless the auction already has one.
// The unique constraint on orders.auction_id makes this safe under
// concurrent finalization: losers of the insert race fetch the winner's row.
func (r *PostgresRepo) CreateOrFetchOrder(ctx context.Context, order model.Order) (model.Order, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO orders (id, auction_id, winner_name, winner_bid_amount, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (auction_id) DO NOTHING`,
		order.OrderID, order.AuctionID, order.WinnerName, order.WinnerBidAmount, order.Status, order.CreatedAt)
	if err != nil {
		return model.Order{}, fmt.Errorf("create order for auction %s: %w", order.AuctionID, err)
	}

	var stored model.Order
	err = r.db.QueryRowContext(ctx,
		`SELECT id, auction_id, winner_name, winner_bid_amount, status, created_at FROM orders WHERE auction_id = $1`,
		order.AuctionID).
		Scan(&stored.OrderID, &stored.AuctionID, &stored.WinnerName, &stored.WinnerBidAmount, &stored.Status, &stored.CreatedAt)
	if err != nil {
		return model.Order{}, fmt.Errorf("fetch order for auction %s: %w", order.AuctionID, err)
	}
	return stored, nil
}

// GetOrder returns the order with the given id
func (r *PostgresRepo) GetOrder(ctx context.Context, orderID string) (model.Order, error) {
	var order model.Order
	err := r.db.QueryRowContext(ctx,
		`SELECT id, auction_id, winner_name, winner_bid_amount, status, created_at FROM orders WHERE id = $1`, orderID).
		Scan(&order.OrderID, &order.AuctionID, &order.WinnerName, &order.WinnerBidAmount, &order.Status, &order.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Order{}, fmt.Errorf("get order %s: %w", orderID, auctionerrors.ErrOrderNotFound)
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("get order %s: %w", orderID, err)
	}
	return order, nil
}

// MarkOrderPaid flips a pending order to paid
func (r *PostgresRepo) MarkOrderPaid(ctx context.Context, orderID string) (model.Order, bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1 AND status = $3`,
		orderID, model.OrderPaid, model.OrderPendingPayment)
	if err != nil {
		return model.Order{}, false, fmt.Errorf("mark order %s paid: %w", orderID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return model.Order{}, false, fmt.Errorf("mark order %s paid: %w", orderID, err)
	}

	order, err := r.GetOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, false, err
	}
	return order, affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuction(row rowScanner, auctionID string) (model.Auction, error) {
	var (
		auction model.Auction
		reserve decimal.NullDecimal
		endsAt  sql.NullTime
	)
	err := row.Scan(&auction.AuctionID, &auction.SalesroomID, &auction.Title, &auction.Status,
		&auction.StartPrice, &reserve, &endsAt, &auction.WinnerBidID, &auction.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return model.Auction{}, fmt.Errorf("scan auction: %w", err)
	}
	if reserve.Valid {
		auction.ReservePrice = &reserve.Decimal
	}
	if endsAt.Valid {
		t := endsAt.Time
		auction.EndsAt = &t
	}
	return auction, nil
}

func reserveValue(reserve *decimal.Decimal) decimal.NullDecimal {
	if reserve == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *reserve, Valid: true}
}

func endsAtValue(endsAt *time.Time) sql.NullTime {
	if endsAt == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *endsAt, Valid: true}
}
