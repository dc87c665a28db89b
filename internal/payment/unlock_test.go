package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forum-service/internal/domain/purchase"
)

type fakeGateway struct {
	session *CheckoutSession
	err     error
}

func (f *fakeGateway) CheckoutSession(context.Context, string) (*CheckoutSession, error) {
	return f.session, f.err
}

type fakeProfiles struct {
	subscriptionRole string
	subscriptionID   string
	grants           map[string][]string
}

func (f *fakeProfiles) SetSubscription(_ context.Context, _, role, subscriptionID, _ string) error {
	f.subscriptionRole = role
	f.subscriptionID = subscriptionID
	return nil
}

func (f *fakeProfiles) GrantCustomRoles(_ context.Context, _ string, grants map[string][]string) error {
	f.grants = grants
	return nil
}

type fakePurchases struct {
	exists  bool
	created []purchase.CreatePurchaseInput
}

func (f *fakePurchases) ExistsBySession(context.Context, string) (bool, error) {
	return f.exists, nil
}

func (f *fakePurchases) Create(_ context.Context, input purchase.CreatePurchaseInput) (*purchase.Purchase, error) {
	f.created = append(f.created, input)
	return &purchase.Purchase{ID: 1, CheckoutSessionID: input.CheckoutSessionID}, nil
}

var testPriceToRole = map[string]string{"price_premium": "premium"}

var testProductRoles = map[string]map[string][]string{
	"prod_gym": {"gym": {"member"}},
}

func TestUnlocker_SubscriptionMapsPriceToRole(t *testing.T) {
	gateway := &fakeGateway{session: &CheckoutSession{
		ID:             "cs_1",
		Status:         StatusComplete,
		Mode:           ModeSubscription,
		SubscriptionID: "sub_1",
		PriceID:        "price_premium",
	}}
	profiles := &fakeProfiles{}
	u := NewUnlocker(gateway, profiles, &fakePurchases{}, testPriceToRole, testProductRoles)

	result, err := u.Apply(context.Background(), "user-1", "cs_1")
	require.NoError(t, err)
	assert.Equal(t, "premium", result.Role)
	assert.Equal(t, "premium", profiles.subscriptionRole)
	assert.Equal(t, "sub_1", profiles.subscriptionID)
}

func TestUnlocker_IncompleteSessionHasNoSideEffects(t *testing.T) {
	gateway := &fakeGateway{session: &CheckoutSession{
		ID:     "cs_1",
		Status: StatusOpen,
		Mode:   ModeSubscription,
	}}
	profiles := &fakeProfiles{}
	purchases := &fakePurchases{}
	u := NewUnlocker(gateway, profiles, purchases, testPriceToRole, testProductRoles)

	result, err := u.Apply(context.Background(), "user-1", "cs_1")
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, result.Status)
	assert.Empty(t, profiles.subscriptionRole)
	assert.Empty(t, purchases.created)
}

func TestUnlocker_UnknownPriceRejected(t *testing.T) {
	gateway := &fakeGateway{session: &CheckoutSession{
		ID:      "cs_1",
		Status:  StatusComplete,
		Mode:    ModeSubscription,
		PriceID: "price_unknown",
	}}
	u := NewUnlocker(gateway, &fakeProfiles{}, &fakePurchases{}, testPriceToRole, testProductRoles)

	_, err := u.Apply(context.Background(), "user-1", "cs_1")
	assert.Error(t, err)
}

func TestUnlocker_OneTimePurchaseGrantsCustomRoles(t *testing.T) {
	gateway := &fakeGateway{session: &CheckoutSession{
		ID:          "cs_2",
		Status:      StatusComplete,
		Mode:        ModePayment,
		ProductID:   "prod_gym",
		PriceID:     "price_gym",
		AmountTotal: 2500,
		Currency:    "eur",
	}}
	profiles := &fakeProfiles{}
	purchases := &fakePurchases{}
	u := NewUnlocker(gateway, profiles, purchases, testPriceToRole, testProductRoles)

	result, err := u.Apply(context.Background(), "user-1", "cs_2")
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"gym": {"member"}}, result.GrantedRoles)
	assert.Equal(t, map[string][]string{"gym": {"member"}}, profiles.grants)
	require.Len(t, purchases.created, 1)
	assert.Equal(t, "cs_2", purchases.created[0].CheckoutSessionID)
}

func TestUnlocker_ReplayedSessionIsIdempotent(t *testing.T) {
	gateway := &fakeGateway{session: &CheckoutSession{
		ID:        "cs_2",
		Status:    StatusComplete,
		Mode:      ModePayment,
		ProductID: "prod_gym",
	}}
	profiles := &fakeProfiles{}
	purchases := &fakePurchases{exists: true}
	u := NewUnlocker(gateway, profiles, purchases, testPriceToRole, testProductRoles)

	result, err := u.Apply(context.Background(), "user-1", "cs_2")
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, result.Status)
	assert.Empty(t, purchases.created)
	assert.Nil(t, profiles.grants)
}
