package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"revline/models"
)

type fakeShopRepo struct {
	shop *models.Shop
	err  error
}

func (f *fakeShopRepo) Create(ctx context.Context, shop models.Shop) (string, error) {
	return "", nil
}

func (f *fakeShopRepo) GetByID(ctx context.Context, id string) (*models.Shop, error) {
	return f.shop, f.err
}

func (f *fakeShopRepo) GetByPhoneNumber(ctx context.Context, phone string) (*models.Shop, error) {
	return f.shop, f.err
}

func (f *fakeShopRepo) UpdateSettings(ctx context.Context, id string, settings models.ShopSettings) error {
	return nil
}

type fakeBilling struct {
	BillingService
	tier models.PlanTier
	err  error
}

func (f *fakeBilling) GetOrCreateSubscription(ctx context.Context, shopID string) (*models.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Subscription{ShopID: shopID, PlanTier: f.tier}, nil
}

func TestResolverShopOverrideWins(t *testing.T) {
	override := 7
	r := NewPlanLimitResolver(
		&fakeShopRepo{shop: &models.Shop{ID: "s1", Settings: models.ShopSettings{MaxConcurrentCalls: &override}}},
		&fakeBilling{tier: models.PlanProfessional},
		zap.NewNop())

	assert.Equal(t, 7, r.ConcurrentCallLimit(context.Background(), "s1"))
}

func TestResolverPlanTierDefault(t *testing.T) {
	r := NewPlanLimitResolver(
		&fakeShopRepo{shop: &models.Shop{ID: "s1"}},
		&fakeBilling{tier: models.PlanProfessional},
		zap.NewNop())

	assert.Equal(t, 10, r.ConcurrentCallLimit(context.Background(), "s1"))
}

func TestResolverEnterpriseUnlimited(t *testing.T) {
	r := NewPlanLimitResolver(
		&fakeShopRepo{shop: &models.Shop{ID: "s1"}},
		&fakeBilling{tier: models.PlanEnterprise},
		zap.NewNop())

	assert.Equal(t, models.UnlimitedCalls, r.ConcurrentCallLimit(context.Background(), "s1"))
}

func TestResolverFallsBackOnLookupFailure(t *testing.T) {
	free := models.ConcurrentCallLimits[models.PlanFree]

	r := NewPlanLimitResolver(
		&fakeShopRepo{err: errors.New("down")},
		&fakeBilling{tier: models.PlanProfessional},
		zap.NewNop())
	assert.Equal(t, free, r.ConcurrentCallLimit(context.Background(), "s1"))

	r = NewPlanLimitResolver(
		&fakeShopRepo{shop: &models.Shop{ID: "s1"}},
		&fakeBilling{err: errors.New("down")},
		zap.NewNop())
	assert.Equal(t, free, r.ConcurrentCallLimit(context.Background(), "s1"))
}

func TestResolverUnknownTier(t *testing.T) {
	r := NewPlanLimitResolver(
		&fakeShopRepo{shop: &models.Shop{ID: "s1"}},
		&fakeBilling{tier: models.PlanTier("mystery")},
		zap.NewNop())

	assert.Equal(t, models.ConcurrentCallLimits[models.PlanFree], r.ConcurrentCallLimit(context.Background(), "s1"))
}
