package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	portalsession "github.com/stripe/stripe-go/v76/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/customer"
	stripesub "github.com/stripe/stripe-go/v76/subscription"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"

	"revline/config"
	subscriptionsRepo "revline/database/repository/subscriptions"
	"revline/models"
)

// ErrNoPrice is returned when checkout is requested for a tier without a
// Stripe price (free and enterprise).
var ErrNoPrice = errors.New("billing: no price configured for plan tier")

func stripePriceID(tier models.PlanTier) string {
	switch tier {
	case models.PlanStarter:
		return config.AppConfig.StripeStarterPriceID
	case models.PlanProfessional:
		return config.AppConfig.StripeProPriceID
	}
	return ""
}

func tierFromPriceID(priceID string) models.PlanTier {
	switch priceID {
	case config.AppConfig.StripeStarterPriceID:
		return models.PlanStarter
	case config.AppConfig.StripeProPriceID:
		return models.PlanProfessional
	}
	return models.PlanFree
}

// CreateCheckoutSession starts a Stripe subscription checkout and returns
// its hosted URL.
func (s *DefaultBillingService) CreateCheckoutSession(ctx context.Context, shopID string, tier models.PlanTier, successURL, cancelURL string) (string, error) {
	priceID := stripePriceID(tier)
	if priceID == "" {
		return "", ErrNoPrice
	}

	subscription, err := s.GetOrCreateSubscription(ctx, shopID)
	if err != nil {
		return "", err
	}

	customerID := subscription.StripeCustomerID
	if customerID == "" {
		params := &stripe.CustomerParams{}
		params.AddMetadata("shop_id", shopID)
		cust, err := customer.New(params)
		if err != nil {
			return "", fmt.Errorf("billing: create customer: %w", err)
		}
		customerID = cust.ID
		subscription.StripeCustomerID = customerID
		if err := s.subs.Update(ctx, subscription); err != nil {
			return "", err
		}
	}

	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	}
	params.AddMetadata("shop_id", shopID)

	session, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("billing: create checkout session: %w", err)
	}
	s.logger.Info("checkout session created",
		zap.String("shopId", shopID), zap.String("tier", string(tier)))
	return session.URL, nil
}

// CreatePortalSession opens the Stripe customer portal for plan management.
func (s *DefaultBillingService) CreatePortalSession(ctx context.Context, shopID, returnURL string) (string, error) {
	subscription, err := s.GetOrCreateSubscription(ctx, shopID)
	if err != nil {
		return "", err
	}
	if subscription.StripeCustomerID == "" {
		return "", errors.New("billing: shop has no stripe customer")
	}

	session, err := portalsession.New(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(subscription.StripeCustomerID),
		ReturnURL: stripe.String(returnURL),
	})
	if err != nil {
		return "", fmt.Errorf("billing: create portal session: %w", err)
	}
	return session.URL, nil
}

// HandleWebhook verifies and applies one Stripe event.
func (s *DefaultBillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, config.AppConfig.StripeWebhookSecret)
	if err != nil {
		return fmt.Errorf("billing: invalid webhook signature: %w", err)
	}

	s.logger.Info("processing stripe webhook", zap.String("type", string(event.Type)))

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return err
		}
		return s.applyCheckoutCompleted(ctx, &session)
	case "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return err
		}
		return s.applySubscriptionUpdated(ctx, &sub)
	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return err
		}
		return s.applySubscriptionDeleted(ctx, &sub)
	case "invoice.payment_failed":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return err
		}
		return s.applyPaymentFailed(ctx, &invoice)
	}

	s.logger.Debug("unhandled stripe event", zap.String("type", string(event.Type)))
	return nil
}

func (s *DefaultBillingService) applyCheckoutCompleted(ctx context.Context, session *stripe.CheckoutSession) error {
	shopID := session.Metadata["shop_id"]
	if shopID == "" {
		s.logger.Warn("checkout completed without shop_id metadata")
		return nil
	}

	subscription, err := s.GetOrCreateSubscription(ctx, shopID)
	if err != nil {
		return err
	}
	if session.Subscription == nil {
		return nil
	}

	stripeSub, err := stripesub.Get(session.Subscription.ID, nil)
	if err != nil {
		return fmt.Errorf("billing: retrieve subscription: %w", err)
	}

	tier := models.PlanFree
	if len(stripeSub.Items.Data) > 0 {
		tier = tierFromPriceID(stripeSub.Items.Data[0].Price.ID)
	}

	subscription.StripeSubscriptionID = stripeSub.ID
	if session.Customer != nil {
		subscription.StripeCustomerID = session.Customer.ID
	}
	subscription.PlanTier = tier
	subscription.Status = models.SubscriptionActive
	subscription.PeriodStart = time.Unix(stripeSub.CurrentPeriodStart, 0)
	subscription.PeriodEnd = time.Unix(stripeSub.CurrentPeriodEnd, 0)
	if err := s.subs.Update(ctx, subscription); err != nil {
		return err
	}

	s.logger.Info("subscription activated",
		zap.String("shopId", shopID), zap.String("tier", string(tier)))
	return nil
}

func (s *DefaultBillingService) lookupByStripeRefs(ctx context.Context, sub *stripe.Subscription) (*models.Subscription, error) {
	subscription, err := s.subs.GetByStripeSubscriptionID(ctx, sub.ID)
	if err == nil {
		return subscription, nil
	}
	if !errors.Is(err, subscriptionsRepo.ErrNotFound) || sub.Customer == nil {
		return nil, err
	}
	return s.subs.GetByStripeCustomerID(ctx, sub.Customer.ID)
}

func (s *DefaultBillingService) applySubscriptionUpdated(ctx context.Context, sub *stripe.Subscription) error {
	subscription, err := s.lookupByStripeRefs(ctx, sub)
	if errors.Is(err, subscriptionsRepo.ErrNotFound) {
		s.logger.Warn("subscription updated but not found", zap.String("stripeSubId", sub.ID))
		return nil
	}
	if err != nil {
		return err
	}

	if len(sub.Items.Data) > 0 {
		subscription.PlanTier = tierFromPriceID(sub.Items.Data[0].Price.ID)
	}
	subscription.PeriodStart = time.Unix(sub.CurrentPeriodStart, 0)
	subscription.PeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0)
	switch sub.Status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		subscription.Status = models.SubscriptionActive
	case stripe.SubscriptionStatusPastDue:
		subscription.Status = models.SubscriptionPastDue
	case stripe.SubscriptionStatusCanceled:
		subscription.Status = models.SubscriptionCanceled
	}
	return s.subs.Update(ctx, subscription)
}

// applySubscriptionDeleted drops the shop back to the free tier.
func (s *DefaultBillingService) applySubscriptionDeleted(ctx context.Context, sub *stripe.Subscription) error {
	subscription, err := s.lookupByStripeRefs(ctx, sub)
	if errors.Is(err, subscriptionsRepo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	subscription.PlanTier = models.PlanFree
	subscription.Status = models.SubscriptionCanceled
	subscription.StripeSubscriptionID = ""
	if err := s.subs.Update(ctx, subscription); err != nil {
		return err
	}
	s.logger.Info("subscription canceled, reverted to free tier",
		zap.String("shopId", subscription.ShopID))
	return nil
}

func (s *DefaultBillingService) applyPaymentFailed(ctx context.Context, invoice *stripe.Invoice) error {
	if invoice.Customer == nil {
		return nil
	}
	subscription, err := s.subs.GetByStripeCustomerID(ctx, invoice.Customer.ID)
	if errors.Is(err, subscriptionsRepo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	subscription.Status = models.SubscriptionPastDue
	if err := s.subs.Update(ctx, subscription); err != nil {
		return err
	}
	s.logger.Warn("payment failed, subscription past due",
		zap.String("shopId", subscription.ShopID))
	return nil
}
