package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"food-marketplace-api/apperr"
	"food-marketplace-api/models"
	"food-marketplace-api/notify"
	"food-marketplace-api/statemachine"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"
)

const (
	UnavailableCancel     = "cancel"
	UnavailableSubstitute = "substitute"
)

type OrderService struct {
	*base
}

type CreateOrderInput struct {
	FoodID          string
	Quantity        int
	Notes           string
	DeliveryAddress string
	CustomerPhone   string
}

type OrderFilter struct {
	Status models.OrderStatus
	From   *time.Time
	To     *time.Time
}

// newOrder builds a pending order for one food line. price is the unit price
// the customer agreed to.
func newOrder(food *models.Food, customer models.Actor, quantity int, price decimal.Decimal, now time.Time) *models.Order {
	merchantID := food.CreatedBy
	order := &models.Order{
		FoodID:      food.ID,
		MerchantID:  &merchantID,
		Quantity:    quantity,
		TotalAmount: price.Mul(decimal.NewFromInt(int64(quantity))).Round(2),
		CreatedBy:   customer.ID,
		CreatedAt:   now,
	}
	order.Record(models.StatusPending, customer.Name, "Order placed", now)
	return order
}

func loadOrder(ctx context.Context, db *gorm.DB, id string) (*models.Order, error) {
	var order models.Order
	err := db.WithContext(ctx).First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Order")
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &order, nil
}

// loadFood returns nil without error when the food has been deleted.
func loadFood(ctx context.Context, db *gorm.DB, id string) (*models.Food, error) {
	var food models.Food
	err := db.WithContext(ctx).First(&food, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get food: %w", err)
	}
	return &food, nil
}

func userName(ctx context.Context, db *gorm.DB, id string) string {
	var user models.User
	if err := db.WithContext(ctx).Select("name").First(&user, "id = ?", id).Error; err != nil {
		return ""
	}
	return user.Name
}

func orderPayload(order *models.Order, food *models.Food) notify.Payload {
	p := notify.Payload{
		OrderID:     order.ID,
		Quantity:    order.Quantity,
		TotalAmount: order.TotalAmount,
	}
	if food != nil {
		p.FoodName = food.Name
		p.Restaurant = food.Restaurant
	}
	return p
}

// Create places a single order for a food item.
func (s *OrderService) Create(ctx context.Context, actor models.Actor, in CreateOrderInput) (*models.Order, error) {
	if in.FoodID == "" {
		return nil, apperr.Validation("foodId is required")
	}
	if in.Quantity < 1 {
		return nil, apperr.Validation("quantity must be at least 1")
	}

	food, err := loadFood(ctx, s.db, in.FoodID)
	if err != nil {
		return nil, err
	}
	if food == nil {
		return nil, apperr.NotFound("Food item")
	}
	if actor.Role != models.RoleCustomer {
		return nil, apperr.Forbidden("only customers can place orders")
	}

	order := newOrder(food, actor, in.Quantity, food.Price, s.now())
	order.Notes = strings.TrimSpace(in.Notes)
	order.DeliveryAddress = strings.TrimSpace(in.DeliveryAddress)
	order.CustomerPhone = strings.TrimSpace(in.CustomerPhone)

	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	s.metrics.OrdersCreated("direct", 1)

	p := orderPayload(order, food)
	s.notifier.Notify(ctx, actor.ID, notify.KindOrderCreated, p)
	p.CustomerName = actor.Name
	s.notifier.Notify(ctx, food.CreatedBy, notify.KindNewOrder, p)

	slog.Info("Order placed", "order_id", order.ID, "food_id", food.ID, "customer_id", actor.ID)
	return order, nil
}

// transition describes one lifecycle operation run by apply.
type transition struct {
	action statemachine.Action
	// notes is the history note; defaultNotes is used when it is empty.
	notes        string
	defaultNotes string
	// check runs before authorization and may refuse the operation.
	check func(o *models.Order) error
	// mutate sets the fields the operation owns, before the status changes.
	mutate func(o *models.Order, food *models.Food, now time.Time)
	// notify is called after the order has been stored.
	notify func(ctx context.Context, o *models.Order, food *models.Food)
}

// apply loads the order under its key lock, authorizes the actor, moves the
// order along the state machine and stores it with a status compare-and-swap.
func (s *OrderService) apply(ctx context.Context, actor models.Actor, id string, t transition) (_ *models.Order, err error) {
	ctx, span := otel.Tracer("services").Start(ctx, "OrderService."+string(t.action))
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", id),
		attribute.String("actor.role", string(actor.Role)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.metrics.TransitionFailed(string(t.action), string(apperr.KindOf(err)))
		}
	}()

	unlock := s.locker.Lock(orderKey(id))
	defer unlock()

	order, err := loadOrder(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	food, err := loadFood(ctx, s.db, order.FoodID)
	if err != nil {
		return nil, err
	}

	if t.check != nil {
		if err := t.check(order); err != nil {
			return nil, err
		}
	}
	if err := statemachine.Authorize(actor, t.action, order, food); err != nil {
		return nil, err
	}
	next, err := statemachine.Next(order.Status, t.action)
	if err != nil {
		return nil, err
	}

	prev, prevHistory := order.Status, order.StatusHistory
	now := s.now()
	if t.mutate != nil {
		t.mutate(order, food, now)
	}
	notes := t.notes
	if notes == "" {
		notes = t.defaultNotes
	}
	order.Record(next, actor.Name, notes, now)

	if err := s.store(ctx, order, prev, prevHistory); err != nil {
		return nil, err
	}

	s.metrics.Transition(string(t.action), string(order.Status))
	slog.Info("Order transition applied",
		"order_id", order.ID,
		"action", t.action,
		"from", prev,
		"to", order.Status,
		"actor_id", actor.ID,
	)
	if t.notify != nil {
		t.notify(ctx, order, food)
	}
	return order, nil
}

// store writes the lifecycle columns in one UPDATE guarded by the status and
// history the order was loaded with. The history guard catches concurrent
// writes that keep the status, such as substitute offers.
func (s *OrderService) store(ctx context.Context, order *models.Order, prev models.OrderStatus, prevHistory models.StatusHistory) error {
	res := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ? AND status_history = ?", order.ID, prev, prevHistory).
		Updates(map[string]any{
			"status":           order.Status,
			"merchant_id":      order.MerchantID,
			"driver_id":        order.DriverID,
			"merchant_notes":   order.MerchantNotes,
			"rejection_reason": order.RejectionReason,
			"accepted_at":      order.AcceptedAt,
			"ready_at":         order.ReadyAt,
			"picked_up_at":     order.PickedUpAt,
			"delivered_at":     order.DeliveredAt,
			"status_history":   order.StatusHistory,
			"updated_at":       order.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("update order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		current, err := loadOrder(ctx, s.db, order.ID)
		if err != nil {
			return err
		}
		return apperr.StateConflict(string(current.Status), "order was updated by someone else")
	}
	return nil
}

func (s *OrderService) notifyCustomer(kind notify.Kind, extra func(*notify.Payload)) func(context.Context, *models.Order, *models.Food) {
	return func(ctx context.Context, o *models.Order, food *models.Food) {
		p := orderPayload(o, food)
		if extra != nil {
			extra(&p)
		}
		s.notifier.Notify(ctx, o.CreatedBy, kind, p)
	}
}

func timePtr(t time.Time) *time.Time { return &t }

// assignMerchant records the food owner as the order's merchant when no
// merchant is set yet.
func assignMerchant(o *models.Order, food *models.Food) {
	if o.MerchantID == nil && food != nil {
		merchantID := food.CreatedBy
		o.MerchantID = &merchantID
	}
}

func (s *OrderService) Accept(ctx context.Context, actor models.Actor, id, merchantNotes string) (*models.Order, error) {
	merchantNotes = strings.TrimSpace(merchantNotes)
	return s.apply(ctx, actor, id, transition{
		action:       statemachine.ActionAccept,
		notes:        merchantNotes,
		defaultNotes: "Order accepted by merchant",
		mutate: func(o *models.Order, food *models.Food, now time.Time) {
			assignMerchant(o, food)
			o.AcceptedAt = timePtr(now)
			if merchantNotes != "" {
				o.MerchantNotes = merchantNotes
			}
		},
		notify: s.notifyCustomer(notify.KindOrderAccepted, nil),
	})
}

func (s *OrderService) Reject(ctx context.Context, actor models.Actor, id, reason string) (*models.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("rejection reason is required")
	}
	return s.apply(ctx, actor, id, transition{
		action: statemachine.ActionReject,
		notes:  reason,
		mutate: func(o *models.Order, food *models.Food, _ time.Time) {
			assignMerchant(o, food)
			o.RejectionReason = reason
		},
		notify: s.notifyCustomer(notify.KindOrderRejected, func(p *notify.Payload) {
			p.Reason = reason
		}),
	})
}

func (s *OrderService) StartPreparing(ctx context.Context, actor models.Actor, id, merchantNotes string) (*models.Order, error) {
	merchantNotes = strings.TrimSpace(merchantNotes)
	return s.apply(ctx, actor, id, transition{
		action:       statemachine.ActionStartPreparing,
		notes:        merchantNotes,
		defaultNotes: "Order is being prepared",
		mutate: func(o *models.Order, _ *models.Food, _ time.Time) {
			if merchantNotes != "" {
				o.MerchantNotes = merchantNotes
			}
		},
		notify: s.notifyCustomer(notify.KindOrderPreparing, nil),
	})
}

func (s *OrderService) MarkReady(ctx context.Context, actor models.Actor, id, merchantNotes string) (*models.Order, error) {
	merchantNotes = strings.TrimSpace(merchantNotes)
	return s.apply(ctx, actor, id, transition{
		action:       statemachine.ActionMarkReady,
		notes:        merchantNotes,
		defaultNotes: "Order is ready for pickup",
		mutate: func(o *models.Order, _ *models.Food, now time.Time) {
			o.ReadyAt = timePtr(now)
			if merchantNotes != "" {
				o.MerchantNotes = merchantNotes
			}
		},
		notify: s.notifyCustomer(notify.KindOrderReady, nil),
	})
}

// HandleUnavailable either cancels the order because the item is unavailable
// or records a substitute offer without changing the status.
func (s *OrderService) HandleUnavailable(ctx context.Context, actor models.Actor, id, action, reason, substituteItem string) (*models.Order, error) {
	reason = strings.TrimSpace(reason)
	substituteItem = strings.TrimSpace(substituteItem)
	if reason == "" {
		return nil, apperr.Validation("reason is required")
	}

	switch action {
	case UnavailableCancel:
		return s.apply(ctx, actor, id, transition{
			action: statemachine.ActionCancelUnavailable,
			notes:  "Cancelled due to unavailable item: " + reason,
			mutate: func(o *models.Order, _ *models.Food, _ time.Time) {
				o.MerchantNotes = "Item unavailable: " + reason
			},
			notify: s.notifyCustomer(notify.KindOrderCancelled, func(p *notify.Payload) {
				p.Reason = "Item unavailable: " + reason
			}),
		})
	case UnavailableSubstitute:
		if substituteItem == "" {
			return nil, apperr.Validation("substituteItem is required")
		}
		return s.apply(ctx, actor, id, transition{
			action: statemachine.ActionSubstitute,
			notes:  "Substitute offered: " + substituteItem,
			mutate: func(o *models.Order, _ *models.Food, _ time.Time) {
				o.MerchantNotes = fmt.Sprintf("Original item unavailable. Substitute: %s. Reason: %s", substituteItem, reason)
			},
		})
	}
	return nil, apperr.Validation("action must be %q or %q", UnavailableCancel, UnavailableSubstitute)
}

// AcceptDelivery assigns the order to the calling driver. An order that
// already has a driver is a conflict for every caller.
func (s *OrderService) AcceptDelivery(ctx context.Context, actor models.Actor, id string) (*models.Order, error) {
	return s.apply(ctx, actor, id, transition{
		action:       statemachine.ActionAcceptDelivery,
		defaultNotes: "Order picked up by driver",
		check: func(o *models.Order) error {
			if o.HasDriver() {
				return apperr.StateConflict(string(o.Status), "order already has a driver assigned")
			}
			return nil
		},
		mutate: func(o *models.Order, _ *models.Food, now time.Time) {
			driverID := actor.ID
			o.DriverID = &driverID
			o.PickedUpAt = timePtr(now)
		},
		notify: s.notifyCustomer(notify.KindOrderOutForDelivery, func(p *notify.Payload) {
			p.DriverName = actor.Name
		}),
	})
}

func (s *OrderService) MarkDelivered(ctx context.Context, actor models.Actor, id, notes string) (*models.Order, error) {
	order, err := s.apply(ctx, actor, id, transition{
		action:       statemachine.ActionMarkDelivered,
		notes:        strings.TrimSpace(notes),
		defaultNotes: "Order delivered successfully",
		mutate: func(o *models.Order, _ *models.Food, now time.Time) {
			o.DeliveredAt = timePtr(now)
		},
		notify: s.notifyCustomer(notify.KindOrderDelivered, nil),
	})
	if err != nil {
		return nil, err
	}
	s.metrics.Delivered(order.CreatedAt, *order.DeliveredAt)
	return order, nil
}

// Override sets any valid status on behalf of an admin, outside the regular
// transition table.
func (s *OrderService) Override(ctx context.Context, actor models.Actor, id string, status models.OrderStatus, notes string) (*models.Order, error) {
	if !status.Valid() {
		return nil, apperr.Validation("invalid status %q", status)
	}

	unlock := s.locker.Lock(orderKey(id))
	defer unlock()

	order, err := loadOrder(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if err := statemachine.Authorize(actor, statemachine.ActionOverride, order, nil); err != nil {
		return nil, err
	}

	notes = strings.TrimSpace(notes)
	if notes == "" {
		notes = fmt.Sprintf("Status updated by admin to %s", status)
	}
	prev, prevHistory := order.Status, order.StatusHistory
	now := s.now()
	if status == models.StatusDelivered && order.DeliveredAt == nil {
		order.DeliveredAt = timePtr(now)
	}
	order.Record(status, "Admin", notes, now)

	if err := s.store(ctx, order, prev, prevHistory); err != nil {
		return nil, err
	}
	s.metrics.Transition(string(statemachine.ActionOverride), string(status))
	slog.Warn("Order status overridden", "order_id", id, "from", prev, "to", status, "admin_id", actor.ID)
	return order, nil
}

// Delete removes an order regardless of its status.
func (s *OrderService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden("admin role required")
	}

	unlock := s.locker.Lock(orderKey(id))
	defer unlock()

	res := s.db.WithContext(ctx).Delete(&models.Order{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Order")
	}
	slog.Warn("Order deleted", "order_id", id, "admin_id", actor.ID)
	return nil
}

// Get returns an order the actor is allowed to see.
func (s *OrderService) Get(ctx context.Context, actor models.Actor, id string) (*models.Order, error) {
	order, err := loadOrder(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	food, err := loadFood(ctx, s.db, order.FoodID)
	if err != nil {
		return nil, err
	}
	if !statemachine.CanView(actor, order, food) {
		return nil, apperr.Forbidden("not authorized to view this order")
	}
	return order, nil
}

func (s *OrderService) find(ctx context.Context, scope func(*gorm.DB) *gorm.DB, order string) ([]models.Order, error) {
	orders := []models.Order{}
	if err := scope(s.db.WithContext(ctx)).Order(order).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// ListForCustomer returns the caller's own orders, newest first.
func (s *OrderService) ListForCustomer(ctx context.Context, actor models.Actor) ([]models.Order, error) {
	return s.find(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("created_by = ?", actor.ID)
	}, "created_at desc")
}

// ListForMerchant returns orders for the merchant's foods. Admins see all.
func (s *OrderService) ListForMerchant(ctx context.Context, actor models.Actor, status models.OrderStatus) ([]models.Order, error) {
	if actor.Role != models.RoleMerchant && !actor.IsAdmin() {
		return nil, apperr.Forbidden("merchant role required")
	}
	if status != "" && !status.Valid() {
		return nil, apperr.Validation("invalid status %q", status)
	}

	return s.find(ctx, func(db *gorm.DB) *gorm.DB {
		if !actor.IsAdmin() {
			owned := s.db.Model(&models.Food{}).Select("id").Where("created_by = ?", actor.ID)
			db = db.Where("food_id IN (?)", owned)
		}
		if status != "" {
			db = db.Where("status = ?", status)
		}
		return db
	}, "created_at desc")
}

// ListAvailable returns ready orders without a driver, oldest first.
func (s *OrderService) ListAvailable(ctx context.Context, actor models.Actor) ([]models.Order, error) {
	if actor.Role != models.RoleDriver && !actor.IsAdmin() {
		return nil, apperr.Forbidden("driver role required")
	}
	return s.find(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("status = ? AND (driver_id IS NULL OR driver_id = '')", models.StatusReady)
	}, "ready_at asc")
}

// ListForDriver returns the deliveries of the calling driver.
func (s *OrderService) ListForDriver(ctx context.Context, actor models.Actor) ([]models.Order, error) {
	if actor.Role != models.RoleDriver && !actor.IsAdmin() {
		return nil, apperr.Forbidden("driver role required")
	}
	return s.find(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("driver_id = ? AND status IN ?", actor.ID,
			[]models.OrderStatus{models.StatusOutForDelivery, models.StatusDelivered})
	}, "picked_up_at desc")
}

// ListAll returns every order matching the filter, for admins.
func (s *OrderService) ListAll(ctx context.Context, actor models.Actor, f OrderFilter) ([]models.Order, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("admin role required")
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validation("invalid status %q", f.Status)
	}

	return s.find(ctx, func(db *gorm.DB) *gorm.DB {
		if f.Status != "" {
			db = db.Where("status = ?", f.Status)
		}
		if f.From != nil {
			db = db.Where("created_at >= ?", *f.From)
		}
		if f.To != nil {
			db = db.Where("created_at <= ?", *f.To)
		}
		return db
	}, "created_at desc")
}
