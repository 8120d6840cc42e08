package models

import "time"

// PlanTier is a subscription level determining concurrency limit and usage quota.
type PlanTier string

const (
	PlanFree         PlanTier = "free"
	PlanStarter      PlanTier = "starter"
	PlanProfessional PlanTier = "professional"
	PlanEnterprise   PlanTier = "enterprise"
)

// UnlimitedCalls marks a tier with no concurrency ceiling of its own.
// Such shops still count against the global cap.
const UnlimitedCalls = -1

// MonthlyCallLimits maps plan tiers to calls allowed per billing period.
var MonthlyCallLimits = map[PlanTier]int{
	PlanFree:         10,
	PlanStarter:      100,
	PlanProfessional: 500,
	PlanEnterprise:   UnlimitedCalls,
}

// ConcurrentCallLimits maps plan tiers to simultaneous call ceilings.
var ConcurrentCallLimits = map[PlanTier]int{
	PlanFree:         2,
	PlanStarter:      5,
	PlanProfessional: 10,
	PlanEnterprise:   UnlimitedCalls,
}

// PlanNames maps tiers to display names.
var PlanNames = map[PlanTier]string{
	PlanFree:         "Free",
	PlanStarter:      "Starter",
	PlanProfessional: "Professional",
	PlanEnterprise:   "Enterprise",
}

// PlanPrices maps tiers to monthly prices in USD (display only, billing
// happens through Stripe).
var PlanPrices = map[PlanTier]int{
	PlanFree:         0,
	PlanStarter:      49,
	PlanProfessional: 99,
	PlanEnterprise:   0,
}

// SubscriptionStatus mirrors the Stripe subscription lifecycle.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Subscription is a shop's billing subscription.
type Subscription struct {
	ID                   string             `bson:"id" json:"id"`
	ShopID               string             `bson:"shopId" json:"shopId"`
	PlanTier             PlanTier           `bson:"planTier" json:"planTier"`
	Status               SubscriptionStatus `bson:"status" json:"status"`
	StripeCustomerID     string             `bson:"stripeCustomerId,omitempty" json:"stripeCustomerId,omitempty"`
	StripeSubscriptionID string             `bson:"stripeSubscriptionId,omitempty" json:"stripeSubscriptionId,omitempty"`
	PeriodStart          time.Time          `bson:"periodStart" json:"periodStart"`
	PeriodEnd            time.Time          `bson:"periodEnd" json:"periodEnd"`
	CreatedAt            time.Time          `bson:"createdAt" json:"createdAt"`
}

// QuotaStatus reports whether a shop may take another call this period.
type QuotaStatus struct {
	Allowed   bool     `json:"allowed"`
	Used      int      `json:"used"`
	Limit     int      `json:"limit"`
	PlanTier  PlanTier `json:"planTier"`
	Unlimited bool     `json:"unlimited"`
}
