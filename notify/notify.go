// Package notify delivers user-facing notifications about cart and order
// activity. Delivery is best effort: a failed notification never fails the
// operation that produced it.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindWelcome             Kind = "welcome"
	KindCartItemAdded       Kind = "cart_item_added"
	KindCartCheckout        Kind = "cart_checkout"
	KindOrderCreated        Kind = "order_created"
	KindNewOrder            Kind = "new_order"
	KindOrderAccepted       Kind = "order_accepted"
	KindOrderRejected       Kind = "order_rejected"
	KindOrderPreparing      Kind = "order_preparing"
	KindOrderReady          Kind = "order_ready"
	KindOrderCancelled      Kind = "order_cancelled"
	KindOrderOutForDelivery Kind = "order_out_for_delivery"
	KindOrderDelivered      Kind = "order_delivered"
	KindFoodCreated         Kind = "food_created"
	KindFoodDeleted         Kind = "food_deleted"
)

// Payload carries the facts a notification template may refer to. Only the
// fields relevant to the kind are set.
type Payload struct {
	OrderID      string          `json:"orderId,omitempty"`
	FoodName     string          `json:"foodName,omitempty"`
	Restaurant   string          `json:"restaurant,omitempty"`
	Quantity     int             `json:"quantity,omitempty"`
	Price        decimal.Decimal `json:"price,omitzero"`
	TotalAmount  decimal.Decimal `json:"totalAmount,omitzero"`
	OrderCount   int             `json:"orderCount,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	DriverName   string          `json:"driverName,omitempty"`
	CustomerName string          `json:"customerName,omitempty"`
	UserName     string          `json:"userName,omitempty"`
}

// Notifier is what the core services call. Implementations must not block.
type Notifier interface {
	Notify(ctx context.Context, userID string, kind Kind, p Payload)
}

// Event is a rendered notification addressed to one user.
type Event struct {
	UserID  string    `json:"userId"`
	Kind    Kind      `json:"kind"`
	Payload Payload   `json:"payload"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// Sink is a delivery channel for events.
type Sink interface {
	Deliver(ctx context.Context, ev Event) error
}

// Nop discards every notification.
type Nop struct{}

func (Nop) Notify(context.Context, string, Kind, Payload) {}

// Fanout delivers each event to every sink and joins their errors.
type Fanout []Sink

func (f Fanout) Deliver(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range f {
		if err := s.Deliver(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Render produces the inbox text for a notification.
func Render(kind Kind, p Payload) string {
	switch kind {
	case KindWelcome:
		return fmt.Sprintf("Welcome to Food Ordering & Tracking, %s! Your account is ready. "+
			"Browse restaurants, add items to your cart and follow your deliveries live.", p.UserName)
	case KindCartItemAdded:
		return fmt.Sprintf("%s was added to your cart.\n\nPrice: $%s\nQuantity: %d",
			p.FoodName, p.Price.StringFixed(2), p.Quantity)
	case KindCartCheckout:
		return fmt.Sprintf("You placed %d order(s) from your cart.\n\nTotal Amount: $%s\nRestaurant: %s",
			p.OrderCount, p.TotalAmount.StringFixed(2), p.Restaurant)
	case KindOrderCreated:
		return fmt.Sprintf("Your order for %s from %s was placed.\n\nQuantity: %d\nTotal: $%s\n\n"+
			"We will let you know when the restaurant accepts it.",
			p.FoodName, p.Restaurant, p.Quantity, p.TotalAmount.StringFixed(2))
	case KindNewOrder:
		return fmt.Sprintf("New order for %s.\n\nCustomer: %s\nQuantity: %d\nAmount: $%s\n\n"+
			"Accept or reject it from your dashboard.",
			p.FoodName, p.CustomerName, p.Quantity, p.TotalAmount.StringFixed(2))
	case KindOrderAccepted:
		return fmt.Sprintf("%s accepted your order for %s.", p.Restaurant, p.FoodName)
	case KindOrderRejected:
		reason := p.Reason
		if reason == "" {
			reason = "Not specified"
		}
		return fmt.Sprintf("%s rejected your order for %s.\n\nReason: %s", p.Restaurant, p.FoodName, reason)
	case KindOrderPreparing:
		return fmt.Sprintf("%s is preparing your %s.\n\nEstimated preparation time: 15-30 minutes.",
			p.Restaurant, p.FoodName)
	case KindOrderReady:
		return fmt.Sprintf("Your %s is ready and waiting for a driver.", p.FoodName)
	case KindOrderCancelled:
		msg := fmt.Sprintf("Your order for %s was cancelled.", p.FoodName)
		if p.Reason != "" {
			msg += "\n\nReason: " + p.Reason
		}
		return msg
	case KindOrderOutForDelivery:
		return fmt.Sprintf("Your %s is on its way.\n\nDriver: %s\n\nYou can follow it live from your orders.",
			p.FoodName, p.DriverName)
	case KindOrderDelivered:
		return fmt.Sprintf("Your %s was delivered. Enjoy your meal!", p.FoodName)
	case KindFoodCreated:
		return fmt.Sprintf("%q was added to your menu.\n\nPrice: $%s\nRestaurant: %s",
			p.FoodName, p.Price.StringFixed(2), p.Restaurant)
	case KindFoodDeleted:
		return fmt.Sprintf("%q was removed from your menu.", p.FoodName)
	}
	return string(kind)
}
