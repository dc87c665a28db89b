package payment

import (
	"context"

	"forum-service/internal/domain/purchase"
	apperrors "forum-service/pkg/errors"
)

// ProfileStore is the profile mutation surface the unlock flow needs.
// Both methods leave privilege_role untouched.
type ProfileStore interface {
	SetSubscription(ctx context.Context, id, role, subscriptionID, status string) error
	GrantCustomRoles(ctx context.Context, id string, grants map[string][]string) error
}

// PurchaseStore records one-time purchases for idempotency.
type PurchaseStore interface {
	ExistsBySession(ctx context.Context, checkoutSessionID string) (bool, error)
	Create(ctx context.Context, input purchase.CreatePurchaseInput) (*purchase.Purchase, error)
}

// Result tells the client what a checkout session unlocked.
type Result struct {
	Status       string              `json:"status"`
	Role         string              `json:"role,omitempty"`
	GrantedRoles map[string][]string `json:"granted_roles,omitempty"`
}

// Unlocker applies completed checkout sessions to profiles: price ids
// map to subscription roles, product ids map to custom-role grants.
// The mappings live in configuration and the results in the database;
// no role assignment ever touches source files.
type Unlocker struct {
	gateway      Gateway
	profiles     ProfileStore
	purchases    PurchaseStore
	priceToRole  map[string]string
	productRoles map[string]map[string][]string
}

func NewUnlocker(gateway Gateway, profiles ProfileStore, purchases PurchaseStore, priceToRole map[string]string, productRoles map[string]map[string][]string) *Unlocker {
	return &Unlocker{
		gateway:      gateway,
		profiles:     profiles,
		purchases:    purchases,
		priceToRole:  priceToRole,
		productRoles: productRoles,
	}
}

// Apply checks the session's status with the gateway and, when
// complete, persists what it unlocks for userID. Incomplete sessions
// report their status without side effects. Replays of an already
// recorded one-time purchase are no-ops.
func (u *Unlocker) Apply(ctx context.Context, userID, sessionID string) (*Result, error) {
	session, err := u.gateway.CheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Status != StatusComplete {
		return &Result{Status: session.Status}, nil
	}

	if session.Mode == ModeSubscription {
		return u.applySubscription(ctx, userID, session)
	}
	return u.applyOneTime(ctx, userID, session)
}

func (u *Unlocker) applySubscription(ctx context.Context, userID string, session *CheckoutSession) (*Result, error) {
	role, ok := u.priceToRole[session.PriceID]
	if !ok {
		return nil, apperrors.Validation("unknown price for subscription checkout")
	}

	if err := u.profiles.SetSubscription(ctx, userID, role, session.SubscriptionID, "active"); err != nil {
		return nil, err
	}
	return &Result{Status: session.Status, Role: role}, nil
}

func (u *Unlocker) applyOneTime(ctx context.Context, userID string, session *CheckoutSession) (*Result, error) {
	applied, err := u.purchases.ExistsBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	grants := u.productRoles[session.ProductID]

	if applied {
		return &Result{Status: session.Status, GrantedRoles: grants}, nil
	}

	if _, err := u.purchases.Create(ctx, purchase.CreatePurchaseInput{
		UserID:            userID,
		CheckoutSessionID: session.ID,
		ProductID:         session.ProductID,
		PriceID:           session.PriceID,
		AmountTotal:       session.AmountTotal,
		Currency:          session.Currency,
	}); err != nil {
		return nil, err
	}

	if len(grants) > 0 {
		if err := u.profiles.GrantCustomRoles(ctx, userID, grants); err != nil {
			return nil, err
		}
	}
	return &Result{Status: session.Status, GrantedRoles: grants}, nil
}
