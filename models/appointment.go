package models

import "time"

// Appointment is a confirmed service booking made over the phone.
type Appointment struct {
	ID              string    `bson:"id" json:"id"`
	ShopID          string    `bson:"shopId" json:"shopId"`
	CustomerName    string    `bson:"customerName,omitempty" json:"customerName,omitempty"`
	CustomerPhone   string    `bson:"customerPhone,omitempty" json:"customerPhone,omitempty"`
	Date            string    `bson:"date" json:"date"`
	TimeOfDay       string    `bson:"timeOfDay" json:"timeOfDay"`
	DurationMinutes int       `bson:"durationMinutes" json:"durationMinutes"`
	Service         string    `bson:"service,omitempty" json:"service,omitempty"`
	CallSID         string    `bson:"callSid,omitempty" json:"callSid,omitempty"`
	CreatedAt       time.Time `bson:"createdAt" json:"createdAt"`
}
