package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus represents all possible states of an order
type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusAccepted       OrderStatus = "accepted"
	StatusPreparing      OrderStatus = "preparing"
	StatusReady          OrderStatus = "ready"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusRejected       OrderStatus = "rejected"
	StatusCancelled      OrderStatus = "cancelled"
)

// AllStatuses lists every order status in lifecycle order.
var AllStatuses = []OrderStatus{
	StatusPending,
	StatusAccepted,
	StatusPreparing,
	StatusReady,
	StatusOutForDelivery,
	StatusDelivered,
	StatusRejected,
	StatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether no regular transition leaves s.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusRejected || s == StatusCancelled
}

type DriverLocation struct {
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
}

type DeliveryLocation struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Address   string   `json:"address,omitempty"`
}

// Order is a single food line placed by a customer. Status changes only through
// Record, which keeps the last history entry equal to Status.
type Order struct {
	ID                    string           `json:"id" gorm:"primaryKey;size:36"`
	FoodID                string           `json:"foodId" gorm:"index;not null"`
	MerchantID            *string          `json:"merchantId" gorm:"index"`
	DriverID              *string          `json:"driverId" gorm:"index"`
	Status                OrderStatus      `json:"status" gorm:"index;not null;default:'pending'"`
	Quantity              int              `json:"quantity" gorm:"not null"`
	TotalAmount           decimal.Decimal  `json:"totalAmount" gorm:"type:decimal(10,2)"`
	Notes                 string           `json:"notes,omitempty"`
	CustomerNotes         string           `json:"customerNotes,omitempty"`
	MerchantNotes         string           `json:"merchantNotes,omitempty"`
	RejectionReason       string           `json:"rejectionReason,omitempty"`
	CreatedBy             string           `json:"createdBy" gorm:"index;not null"`
	AcceptedAt            *time.Time       `json:"acceptedAt,omitempty"`
	ReadyAt               *time.Time       `json:"readyAt,omitempty"`
	PickedUpAt            *time.Time       `json:"pickedUpAt,omitempty"`
	DeliveredAt           *time.Time       `json:"deliveredAt,omitempty"`
	DeliveryAddress       string           `json:"deliveryAddress,omitempty"`
	CustomerPhone         string           `json:"customerPhone,omitempty"`
	DriverLocation        DriverLocation   `json:"driverLocation" gorm:"embedded;embeddedPrefix:driver_location_"`
	DeliveryLocation      DeliveryLocation `json:"deliveryLocation" gorm:"embedded;embeddedPrefix:delivery_location_"`
	EstimatedDeliveryTime *time.Time       `json:"estimatedDeliveryTime,omitempty"`
	StatusHistory         StatusHistory    `json:"statusHistory" gorm:"not null"`
	CreatedAt             time.Time        `json:"createdAt"`
	UpdatedAt             time.Time        `json:"updatedAt"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// Record moves the order to status and appends the matching history entry.
func (o *Order) Record(status OrderStatus, updatedBy, notes string, at time.Time) {
	o.Status = status
	o.StatusHistory = o.StatusHistory.Append(StatusEntry{
		Status:    status,
		Timestamp: at,
		UpdatedBy: updatedBy,
		Notes:     notes,
	})
	o.UpdatedAt = at
}

// HasDriver reports whether a driver has claimed the order.
func (o *Order) HasDriver() bool {
	return o.DriverID != nil && *o.DriverID != ""
}

// AssignedTo reports whether userID is the order's driver.
func (o *Order) AssignedTo(userID string) bool {
	return o.HasDriver() && *o.DriverID == userID
}
