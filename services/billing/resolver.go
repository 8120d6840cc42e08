package billing

import (
	"context"

	"go.uber.org/zap"

	shopsRepo "revline/database/repository/shops"
	"revline/models"
	"revline/services/voice"
)

// PlanLimitResolver resolves a shop's concurrent-call ceiling: an explicit
// per-shop override wins, otherwise the plan tier's default applies. Lookup
// failures fall back to the free tier's limit so admission always gets an
// answer.
type PlanLimitResolver struct {
	shops   shopsRepo.ShopRepository
	billing BillingService
	logger  *zap.Logger
}

var _ voice.LimitResolver = (*PlanLimitResolver)(nil)

// NewPlanLimitResolver creates the resolver used by call admission.
func NewPlanLimitResolver(shops shopsRepo.ShopRepository, billing BillingService, logger *zap.Logger) *PlanLimitResolver {
	return &PlanLimitResolver{shops: shops, billing: billing, logger: logger}
}

// ConcurrentCallLimit returns the effective limit for one shop.
func (r *PlanLimitResolver) ConcurrentCallLimit(ctx context.Context, shopID string) int {
	shop, err := r.shops.GetByID(ctx, shopID)
	if err != nil {
		r.logger.Warn("shop lookup failed, using free tier concurrency limit",
			zap.String("shopId", shopID), zap.Error(err))
		return models.ConcurrentCallLimits[models.PlanFree]
	}
	if shop.Settings.MaxConcurrentCalls != nil {
		return *shop.Settings.MaxConcurrentCalls
	}

	subscription, err := r.billing.GetOrCreateSubscription(ctx, shopID)
	if err != nil {
		r.logger.Warn("subscription lookup failed, using free tier concurrency limit",
			zap.String("shopId", shopID), zap.Error(err))
		return models.ConcurrentCallLimits[models.PlanFree]
	}

	limit, ok := models.ConcurrentCallLimits[subscription.PlanTier]
	if !ok {
		r.logger.Warn("unknown plan tier, using free tier concurrency limit",
			zap.String("shopId", shopID), zap.String("tier", string(subscription.PlanTier)))
		return models.ConcurrentCallLimits[models.PlanFree]
	}
	return limit
}
