package models

import "time"

// WorkOrderStatus is the repair progress of a vehicle in the shop.
type WorkOrderStatus string

const (
	WorkOrderReceived   WorkOrderStatus = "received"
	WorkOrderDiagnosing WorkOrderStatus = "diagnosing"
	WorkOrderInProgress WorkOrderStatus = "in_progress"
	WorkOrderWaiting    WorkOrderStatus = "waiting_parts"
	WorkOrderReady      WorkOrderStatus = "ready"
	WorkOrderPickedUp   WorkOrderStatus = "picked_up"
)

// Vehicle describes a customer's car on file.
type Vehicle struct {
	Make         string `bson:"make" json:"make"`
	Model        string `bson:"model" json:"model"`
	Year         int    `bson:"year" json:"year"`
	LicensePlate string `bson:"licensePlate" json:"licensePlate"`
}

// WorkOrder is one repair job tracked by a shop.
type WorkOrder struct {
	ID            string          `bson:"id" json:"id"`
	ShopID        string          `bson:"shopId" json:"shopId"`
	CustomerName  string          `bson:"customerName" json:"customerName"`
	CustomerPhone string          `bson:"customerPhone,omitempty" json:"customerPhone,omitempty"`
	Vehicle       Vehicle         `bson:"vehicle" json:"vehicle"`
	Description   string          `bson:"description,omitempty" json:"description,omitempty"`
	Status        WorkOrderStatus `bson:"status" json:"status"`
	EstimatedDone *time.Time      `bson:"estimatedDone,omitempty" json:"estimatedDone,omitempty"`
	CreatedAt     time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time       `bson:"updatedAt" json:"updatedAt"`
}
