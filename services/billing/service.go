package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	subscriptionsRepo "revline/database/repository/subscriptions"
	"revline/models"
)

// usageTTL outlives one billing period so a counter never expires mid-month.
const usageTTL = 35 * 24 * time.Hour

// DefaultBillingService backs subscriptions with MongoDB and usage counters
// with Redis.
type DefaultBillingService struct {
	subs   subscriptionsRepo.SubscriptionRepository
	usage  *redis.Client
	logger *zap.Logger
}

// NewBillingService creates the billing service.
func NewBillingService(subs subscriptionsRepo.SubscriptionRepository, usage *redis.Client, logger *zap.Logger) *DefaultBillingService {
	return &DefaultBillingService{subs: subs, usage: usage, logger: logger}
}

var _ BillingService = (*DefaultBillingService)(nil)

// GetOrCreateSubscription returns the shop's subscription, creating a free
// one on first contact.
func (s *DefaultBillingService) GetOrCreateSubscription(ctx context.Context, shopID string) (*models.Subscription, error) {
	subscription, err := s.subs.GetByShopID(ctx, shopID)
	if err == nil {
		return subscription, nil
	}
	if !errors.Is(err, subscriptionsRepo.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	subscription = &models.Subscription{
		ShopID:      shopID,
		PlanTier:    models.PlanFree,
		Status:      models.SubscriptionActive,
		PeriodStart: now,
		PeriodEnd:   now.AddDate(0, 1, 0),
	}
	if err := s.subs.Create(ctx, subscription); err != nil {
		return nil, err
	}
	s.logger.Info("created free subscription", zap.String("shopId", shopID))
	return subscription, nil
}

func usageKey(shopID string, now time.Time) string {
	return fmt.Sprintf("usage:%s:%s", shopID, now.Format("2006-01"))
}

// IncrementUsage counts one answered call against the current period.
func (s *DefaultBillingService) IncrementUsage(ctx context.Context, shopID string) error {
	key := usageKey(shopID, time.Now())
	count, err := s.usage.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if count == 1 {
		s.usage.Expire(ctx, key, usageTTL)
	}
	return nil
}

// CurrentUsage returns this period's answered call count.
func (s *DefaultBillingService) CurrentUsage(ctx context.Context, shopID string) (int, error) {
	count, err := s.usage.Get(ctx, usageKey(shopID, time.Now())).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return count, err
}

// CheckQuota compares the period's usage against the plan's monthly limit.
func (s *DefaultBillingService) CheckQuota(ctx context.Context, shopID string) models.QuotaStatus {
	subscription, err := s.GetOrCreateSubscription(ctx, shopID)
	if err != nil {
		s.logger.Error("quota check failed, allowing call",
			zap.String("shopId", shopID), zap.Error(err))
		return models.QuotaStatus{Allowed: true, PlanTier: models.PlanFree}
	}

	limit := models.MonthlyCallLimits[subscription.PlanTier]
	if limit == models.UnlimitedCalls {
		return models.QuotaStatus{
			Allowed: true, Limit: limit, PlanTier: subscription.PlanTier, Unlimited: true,
		}
	}

	used, err := s.CurrentUsage(ctx, shopID)
	if err != nil {
		s.logger.Error("usage lookup failed, allowing call",
			zap.String("shopId", shopID), zap.Error(err))
		return models.QuotaStatus{Allowed: true, Limit: limit, PlanTier: subscription.PlanTier}
	}

	return models.QuotaStatus{
		Allowed:  used < limit,
		Used:     used,
		Limit:    limit,
		PlanTier: subscription.PlanTier,
	}
}
