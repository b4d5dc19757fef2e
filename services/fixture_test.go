package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"food-marketplace-api/dbtest"
	"food-marketplace-api/models"
	"food-marketplace-api/notify"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sentNotification struct {
	UserID  string
	Kind    notify.Kind
	Payload notify.Payload
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (r *recordingNotifier) Notify(_ context.Context, userID string, kind notify.Kind, p notify.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotification{UserID: userID, Kind: kind, Payload: p})
}

func (r *recordingNotifier) kinds(userID string) []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kinds []notify.Kind
	for _, n := range r.sent {
		if n.UserID == userID {
			kinds = append(kinds, n.Kind)
		}
	}
	return kinds
}

func (r *recordingNotifier) last(kind notify.Kind) (sentNotification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.sent) - 1; i >= 0; i-- {
		if r.sent[i].Kind == kind {
			return r.sent[i], true
		}
	}
	return sentNotification{}, false
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	db    *gorm.DB
	svc   *Services
	notes *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	notes := &recordingNotifier{}
	return &fixture{
		t:     t,
		ctx:   context.Background(),
		db:    db,
		svc:   New(db, WithNotifier(notes)),
		notes: notes,
	}
}

func (f *fixture) user(role models.UserRole, name, restaurant string) models.Actor {
	f.t.Helper()
	u := models.User{
		Name:           name,
		Email:          name + "@example.com",
		PasswordHash:   "x",
		Role:           role,
		RestaurantName: restaurant,
		IsActive:       true,
	}
	require.NoError(f.t, f.db.Create(&u).Error)
	return models.ActorFor(&u)
}

func (f *fixture) food(merchant models.Actor, name, price string) *models.Food {
	f.t.Helper()
	food, err := f.svc.Catalog.Create(f.ctx, merchant, FoodInput{
		Name:  name,
		Price: decimal.RequireFromString(price),
	})
	require.NoError(f.t, err)
	return food
}

// order places an order and drives it to the wanted status.
func (f *fixture) order(customer, merchant models.Actor, food *models.Food, to models.OrderStatus) *models.Order {
	f.t.Helper()
	o, err := f.svc.Orders.Create(f.ctx, customer, CreateOrderInput{FoodID: food.ID, Quantity: 1, DeliveryAddress: "1 Main St", CustomerPhone: "555"})
	require.NoError(f.t, err)

	steps := []func() (*models.Order, error){
		func() (*models.Order, error) { return f.svc.Orders.Accept(f.ctx, merchant, o.ID, "") },
		func() (*models.Order, error) { return f.svc.Orders.StartPreparing(f.ctx, merchant, o.ID, "") },
		func() (*models.Order, error) { return f.svc.Orders.MarkReady(f.ctx, merchant, o.ID, "") },
	}
	for _, step := range steps {
		if o.Status == to {
			return o
		}
		o, err = step()
		require.NoError(f.t, err)
	}
	require.Equal(f.t, to, o.Status, "fixture only drives orders up to ready")
	return o
}

func (f *fixture) reload(id string) *models.Order {
	f.t.Helper()
	var o models.Order
	require.NoError(f.t, f.db.First(&o, "id = ?", id).Error)
	return &o
}

func requireHistoryMatches(t *testing.T, o *models.Order) {
	t.Helper()
	last, ok := o.StatusHistory.Last()
	require.True(t, ok, "history must not be empty")
	require.Equal(t, o.Status, last.Status)
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
