package models

import "time"

// ShopSettings holds per-shop behavior configuration.
type ShopSettings struct {
	Greeting              string `bson:"greeting,omitempty" json:"greeting,omitempty"`
	TransferNumber        string `bson:"transferNumber,omitempty" json:"transferNumber,omitempty"`
	MaxCallDurationSecs   int    `bson:"maxCallDurationSecs" json:"maxCallDurationSecs"`
	SMSCallSummaryEnabled bool   `bson:"smsCallSummaryEnabled" json:"smsCallSummaryEnabled"`
	SMSFromNumber         string `bson:"smsFromNumber,omitempty" json:"smsFromNumber,omitempty"`

	// MaxConcurrentCalls overrides the plan-tier concurrency limit when set.
	// Nil means "use the plan default".
	MaxConcurrentCalls *int `bson:"maxConcurrentCalls,omitempty" json:"maxConcurrentCalls,omitempty"`

	// QueueEnabled controls whether saturated calls wait in line or are
	// turned away immediately.
	QueueEnabled     bool `bson:"queueEnabled" json:"queueEnabled"`
	QueueTimeoutSecs int  `bson:"queueTimeoutSecs,omitempty" json:"queueTimeoutSecs,omitempty"`
	QueueMaxSize     int  `bson:"queueMaxSize,omitempty" json:"queueMaxSize,omitempty"`
}

// Shop is a tenant: one auto-repair business with its own phone line,
// plan, and receptionist configuration.
type Shop struct {
	ID          string       `bson:"id" json:"id"`
	Name        string       `bson:"name" json:"name"`
	PhoneNumber string       `bson:"phoneNumber" json:"phoneNumber"`
	Address     string       `bson:"address,omitempty" json:"address,omitempty"`
	Hours       string       `bson:"hours,omitempty" json:"hours,omitempty"`
	Services    []string     `bson:"services,omitempty" json:"services,omitempty"`
	OwnerFCMTok string       `bson:"ownerFcmToken,omitempty" json:"ownerFcmToken,omitempty"`
	Settings    ShopSettings `bson:"settings" json:"settings"`
	CreatedAt   time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time    `bson:"updatedAt" json:"updatedAt"`
}
