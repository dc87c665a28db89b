package payment

import (
	"context"
)

// Checkout session statuses and modes as reported by the gateway.
const (
	StatusComplete = "complete"
	StatusOpen     = "open"
	StatusExpired  = "expired"

	ModeSubscription = "subscription"
	ModePayment      = "payment"
)

// CheckoutSession is the slice of the gateway's checkout object the
// unlock flow needs. The gateway itself stays opaque: nothing outside
// this package depends on its wire format.
type CheckoutSession struct {
	ID                string
	Status            string
	Mode              string
	ClientReferenceID string
	CustomerEmail     string
	SubscriptionID    string
	PriceID           string
	ProductID         string
	AmountTotal       int64
	Currency          string
}

// Gateway retrieves checkout sessions from the payment provider.
type Gateway interface {
	CheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)
}
