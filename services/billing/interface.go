package billing

import (
	"context"

	"revline/models"
)

// BillingService manages subscriptions, usage quotas, and Stripe checkout.
type BillingService interface {
	GetOrCreateSubscription(ctx context.Context, shopID string) (*models.Subscription, error)

	// CheckQuota reports whether a shop may take another call this billing
	// period. Backend failures fail open: a billing outage must never take
	// the phones down.
	CheckQuota(ctx context.Context, shopID string) models.QuotaStatus
	IncrementUsage(ctx context.Context, shopID string) error
	CurrentUsage(ctx context.Context, shopID string) (int, error)

	CreateCheckoutSession(ctx context.Context, shopID string, tier models.PlanTier, successURL, cancelURL string) (string, error)
	CreatePortalSession(ctx context.Context, shopID, returnURL string) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}
