package postgres

import (
	"context"
	"fmt"

	"forum-service/internal/domain/purchase"
	apperrors "forum-service/pkg/errors"
)

type PurchaseRepository struct {
	db *DB
}

func NewPurchaseRepository(db *DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

// Create records a completed checkout. The unique index on
// checkout_session_id makes replays a conflict.
func (r *PurchaseRepository) Create(ctx context.Context, input purchase.CreatePurchaseInput) (*purchase.Purchase, error) {
	query := `
		INSERT INTO purchases (user_id, checkout_session_id, product_id, price_id, amount_total, currency)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	p := &purchase.Purchase{
		UserID:            input.UserID,
		CheckoutSessionID: input.CheckoutSessionID,
		ProductID:         input.ProductID,
		PriceID:           input.PriceID,
		AmountTotal:       input.AmountTotal,
		Currency:          input.Currency,
	}

	err := r.db.Pool.QueryRow(ctx, query,
		input.UserID, input.CheckoutSessionID, input.ProductID,
		input.PriceID, input.AmountTotal, input.Currency,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict("checkout session already recorded")
		}
		return nil, fmt.Errorf("failed to create purchase: %w", err)
	}
	return p, nil
}

// ExistsBySession reports whether a checkout session has already been
// applied.
func (r *PurchaseRepository) ExistsBySession(ctx context.Context, checkoutSessionID string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM purchases WHERE checkout_session_id = $1)`,
		checkoutSessionID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check purchase: %w", err)
	}
	return exists, nil
}

func (r *PurchaseRepository) ListByUser(ctx context.Context, userID string) ([]*purchase.Purchase, error) {
	query := `
		SELECT id, user_id, checkout_session_id, product_id, price_id,
		       amount_total, COALESCE(currency, ''), created_at
		FROM purchases
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	defer rows.Close()

	var purchases []*purchase.Purchase
	for rows.Next() {
		p := &purchase.Purchase{}
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.CheckoutSessionID, &p.ProductID,
			&p.PriceID, &p.AmountTotal, &p.Currency, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating purchases: %w", err)
	}
	return purchases, nil
}
