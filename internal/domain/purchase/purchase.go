package purchase

import (
	"time"
)

// Purchase records a completed one-time checkout so the unlock is
// idempotent: replaying the same checkout session grants nothing new.
type Purchase struct {
	ID                int64
	UserID            string
	CheckoutSessionID string
	ProductID         string
	PriceID           string
	AmountTotal       int64
	Currency          string
	CreatedAt         time.Time
}

type CreatePurchaseInput struct {
	UserID            string
	CheckoutSessionID string
	ProductID         string
	PriceID           string
	AmountTotal       int64
	Currency          string
}
