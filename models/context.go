package models

import "time"

// CallerContext accumulates what we know about a repeat caller, so the
// receptionist can greet them with continuity across calls.
type CallerContext struct {
	PhoneNumber  string    `json:"phoneNumber"`
	ShopID       string    `json:"shopId"`
	LastIntent   string    `json:"lastIntent,omitempty"`
	LastOutcome  string    `json:"lastOutcome,omitempty"`
	LastSummary  string    `json:"lastSummary,omitempty"`
	LastCallAt   time.Time `json:"lastCallAt,omitempty"`
	CallCount    int       `json:"callCount"`
	SMSOptedOut  bool      `json:"smsOptedOut"`
	LastSMSSentAt time.Time `json:"lastSmsSentAt,omitempty"`
}
