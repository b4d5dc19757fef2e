package reports

import (
	"context"
	"testing"

	"food-marketplace-api/apperr"
	"food-marketplace-api/dbtest"
	"food-marketplace-api/models"
	"food-marketplace-api/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newUser(t *testing.T, db *gorm.DB, role models.UserRole, name, restaurant string) models.Actor {
	t.Helper()
	u := models.User{Name: name, Email: name + "@example.com", PasswordHash: "x", Role: role, RestaurantName: restaurant, IsActive: true}
	require.NoError(t, db.Create(&u).Error)
	return models.ActorFor(&u)
}

func deliver(t *testing.T, svc *services.Services, customer, merchant, driver models.Actor, foodID string, qty int) {
	t.Helper()
	ctx := context.Background()
	o, err := svc.Orders.Create(ctx, customer, services.CreateOrderInput{FoodID: foodID, Quantity: qty})
	require.NoError(t, err)
	_, err = svc.Orders.Accept(ctx, merchant, o.ID, "")
	require.NoError(t, err)
	_, err = svc.Orders.StartPreparing(ctx, merchant, o.ID, "")
	require.NoError(t, err)
	_, err = svc.Orders.MarkReady(ctx, merchant, o.ID, "")
	require.NoError(t, err)
	_, err = svc.Orders.AcceptDelivery(ctx, driver, o.ID)
	require.NoError(t, err)
	_, err = svc.Orders.MarkDelivered(ctx, driver, o.ID, "")
	require.NoError(t, err)
}

func TestMerchantStatsReportsBothRevenues(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	svc := services.New(db)
	r := New(db)

	merchant := newUser(t, db, models.RoleMerchant, "mario", "Roma")
	other := newUser(t, db, models.RoleMerchant, "kenji", "Tokyo")
	customer := newUser(t, db, models.RoleCustomer, "carla", "")
	driver := newUser(t, db, models.RoleDriver, "dave", "")
	admin := newUser(t, db, models.RoleAdmin, "root", "")

	pizza, err := svc.Catalog.Create(ctx, merchant, services.FoodInput{Name: "Pizza", Price: decimal.NewFromInt(10)})
	require.NoError(t, err)
	sushi, err := svc.Catalog.Create(ctx, other, services.FoodInput{Name: "Sushi", Price: decimal.NewFromInt(7)})
	require.NoError(t, err)

	deliver(t, svc, customer, merchant, driver, pizza.ID, 2)
	_, err = svc.Orders.Create(ctx, customer, services.CreateOrderInput{FoodID: pizza.ID, Quantity: 1})
	require.NoError(t, err)
	deliver(t, svc, customer, other, driver, sushi.ID, 1)

	newPrice := decimal.NewFromInt(12)
	_, err = svc.Catalog.Update(ctx, merchant, pizza.ID, services.FoodUpdate{Price: &newPrice})
	require.NoError(t, err)

	stats, err := r.MerchantStats(ctx, merchant)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalOrders)
	assert.Equal(t, int64(1), stats.PendingOrders)
	assert.Equal(t, int64(1), stats.CompletedOrders)
	assert.Equal(t, int64(0), stats.ByStatus[models.StatusCancelled])
	assert.Equal(t, "20.00", stats.RevenueFromOrderTotals.StringFixed(2))
	assert.Equal(t, "24.00", stats.RevenueFromFoodPrice.StringFixed(2))

	all, err := r.MerchantStats(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.TotalOrders)
	assert.Equal(t, "27.00", all.RevenueFromOrderTotals.StringFixed(2))

	_, err = r.MerchantStats(ctx, customer)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestDriverStats(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	svc := services.New(db)
	r := New(db)

	merchant := newUser(t, db, models.RoleMerchant, "mario", "Roma")
	customer := newUser(t, db, models.RoleCustomer, "carla", "")
	driver := newUser(t, db, models.RoleDriver, "dave", "")
	idle := newUser(t, db, models.RoleDriver, "dora", "")

	pizza, err := svc.Catalog.Create(ctx, merchant, services.FoodInput{Name: "Pizza", Price: decimal.NewFromInt(25)})
	require.NoError(t, err)
	deliver(t, svc, customer, merchant, driver, pizza.ID, 2)

	stats, err := r.DriverStats(ctx, driver)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalDeliveries)
	assert.Equal(t, int64(0), stats.ActiveDeliveries)
	assert.Equal(t, int64(1), stats.TodayDeliveries)
	assert.Equal(t, "5.00", stats.TotalEarnings.StringFixed(2))

	empty, err := r.DriverStats(ctx, idle)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalDeliveries)
	assert.True(t, empty.TotalEarnings.IsZero())

	_, err = r.DriverStats(ctx, customer)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}
