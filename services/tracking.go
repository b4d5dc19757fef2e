package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"food-marketplace-api/apperr"
	"food-marketplace-api/models"
	"food-marketplace-api/statemachine"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LocationPublisher receives every stored driver position.
type LocationPublisher interface {
	PublishLocation(orderID string, loc models.DriverLocation)
}

// WithLocationPublisher forwards driver positions to a live feed.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithLocationPublisher(p LocationPublisher) option {
	return func(b *base) {
		b.locations = p
	}
}

type TrackingService struct {
	*base
}

type DriverView struct {
	Name string `json:"name"`
}

// TrackingView is the read model served to anyone following an order.
type TrackingView struct {
	OrderID               string                  `json:"orderId"`
	Status                models.OrderStatus      `json:"status"`
	FoodName              string                  `json:"foodName"`
	Restaurant            string                  `json:"restaurant"`
	Quantity              int                     `json:"quantity"`
	TotalAmount           decimal.Decimal         `json:"totalAmount"`
	DeliveryAddress       string                  `json:"deliveryAddress"`
	CustomerPhone         string                  `json:"customerPhone"`
	EstimatedDeliveryTime *time.Time              `json:"estimatedDeliveryTime"`
	DriverLocation        models.DriverLocation   `json:"driverLocation"`
	DeliveryLocation      models.DeliveryLocation `json:"deliveryLocation"`
	Driver                *DriverView             `json:"driver"`
	StatusHistory         models.StatusHistory    `json:"statusHistory"`
	CreatedAt             time.Time               `json:"createdAt"`
	AcceptedAt            *time.Time              `json:"acceptedAt"`
	ReadyAt               *time.Time              `json:"readyAt"`
	PickedUpAt            *time.Time              `json:"pickedUpAt"`
	DeliveredAt           *time.Time              `json:"deliveredAt"`
}

func validateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return apperr.Validation("latitude must be between -90 and 90")
	}
	if lon < -180 || lon > 180 {
		return apperr.Validation("longitude must be between -180 and 180")
	}
	return nil
}

func (s *TrackingService) load(ctx context.Context, id string) (*models.Order, error) {
	return loadOrder(ctx, s.db, id)
}

// updateColumns writes tracking columns only, so a concurrent status change
// is never overwritten.
func (s *TrackingService) updateColumns(ctx context.Context, id string, cols map[string]any) error {
	if err := s.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(cols).Error; err != nil {
		return fmt.Errorf("update tracking: %w", err)
	}
	return nil
}

// UpdateDriverLocation stores the assigned driver's position. It does not
// depend on the order status.
func (s *TrackingService) UpdateDriverLocation(ctx context.Context, actor models.Actor, orderID string, lat, lon float64) (*models.DriverLocation, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}

	unlock := s.locker.Lock(orderKey(orderID))
	defer unlock()

	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !statemachine.CanUpdateDriverLocation(actor, order) {
		return nil, apperr.Forbidden("not authorized to update this order location")
	}

	now := s.now()
	loc := models.DriverLocation{Latitude: &lat, Longitude: &lon, LastUpdated: &now}
	err = s.updateColumns(ctx, orderID, map[string]any{
		"driver_location_latitude":     lat,
		"driver_location_longitude":    lon,
		"driver_location_last_updated": now,
	})
	if err != nil {
		return nil, err
	}

	if s.locations != nil {
		s.locations.PublishLocation(orderID, loc)
	}
	return &loc, nil
}

// SetDeliveryLocation pins the drop-off point. The address defaults to the
// order's delivery address.
func (s *TrackingService) SetDeliveryLocation(ctx context.Context, actor models.Actor, orderID string, lat, lon float64, address string) (*models.DeliveryLocation, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}

	unlock := s.locker.Lock(orderKey(orderID))
	defer unlock()

	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !statemachine.CanSetDeliveryLocation(actor, order) {
		return nil, apperr.Forbidden("not authorized to set the delivery location")
	}

	address = strings.TrimSpace(address)
	if address == "" {
		address = order.DeliveryAddress
	}
	loc := models.DeliveryLocation{Latitude: &lat, Longitude: &lon, Address: address}
	err = s.updateColumns(ctx, orderID, map[string]any{
		"delivery_location_latitude":  lat,
		"delivery_location_longitude": lon,
		"delivery_location_address":   address,
	})
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

// UpdateEstimatedTime sets the expected delivery time to minutes from now.
func (s *TrackingService) UpdateEstimatedTime(ctx context.Context, actor models.Actor, orderID string, minutes int) (time.Time, error) {
	if minutes < 0 {
		return time.Time{}, apperr.Validation("estimated minutes cannot be negative")
	}

	unlock := s.locker.Lock(orderKey(orderID))
	defer unlock()

	order, err := s.load(ctx, orderID)
	if err != nil {
		return time.Time{}, err
	}
	if !statemachine.CanUpdateEstimate(actor, order) {
		return time.Time{}, apperr.Forbidden("not authorized to update the estimated time")
	}

	eta := s.now().Add(time.Duration(minutes) * time.Minute)
	if err := s.updateColumns(ctx, orderID, map[string]any{"estimated_delivery_time": eta}); err != nil {
		return time.Time{}, err
	}
	return eta, nil
}

// Authorize checks that actor may follow the order.
func (s *TrackingService) Authorize(ctx context.Context, actor models.Actor, orderID string) error {
	_, _, err := s.visible(ctx, actor, orderID)
	return err
}

func (s *TrackingService) visible(ctx context.Context, actor models.Actor, orderID string) (*models.Order, *models.Food, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	food, err := loadFood(ctx, s.db, order.FoodID)
	if err != nil {
		return nil, nil, err
	}
	if !statemachine.CanView(actor, order, food) {
		return nil, nil, apperr.Forbidden("not authorized to view this order")
	}
	return order, food, nil
}

// GetTracking returns the tracking view of an order.
func (s *TrackingService) GetTracking(ctx context.Context, actor models.Actor, orderID string) (*TrackingView, error) {
	order, food, err := s.visible(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, s.db, order, food), nil
}

func (s *TrackingService) view(ctx context.Context, db *gorm.DB, order *models.Order, food *models.Food) *TrackingView {
	v := &TrackingView{
		OrderID:               order.ID,
		Status:                order.Status,
		Quantity:              order.Quantity,
		TotalAmount:           order.TotalAmount,
		DeliveryAddress:       order.DeliveryAddress,
		CustomerPhone:         order.CustomerPhone,
		EstimatedDeliveryTime: order.EstimatedDeliveryTime,
		DriverLocation:        order.DriverLocation,
		DeliveryLocation:      order.DeliveryLocation,
		StatusHistory:         order.StatusHistory,
		CreatedAt:             order.CreatedAt,
		AcceptedAt:            order.AcceptedAt,
		ReadyAt:               order.ReadyAt,
		PickedUpAt:            order.PickedUpAt,
		DeliveredAt:           order.DeliveredAt,
	}
	if food != nil {
		v.FoodName = food.Name
		v.Restaurant = food.Restaurant
	}
	if order.HasDriver() {
		v.Driver = &DriverView{Name: userName(ctx, db, *order.DriverID)}
	}
	return v
}
