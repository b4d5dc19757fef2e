package services

import (
	"testing"

	"food-marketplace-api/apperr"
	"food-marketplace-api/models"
	"food-marketplace-api/notify"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFood(t *testing.T) {
	f := newFixture(t)
	merchant := f.user(models.RoleMerchant, "mario", "Roma")
	unnamed := f.user(models.RoleMerchant, "nobody", "")
	customer := f.user(models.RoleCustomer, "carla", "")

	food, err := f.svc.Catalog.Create(f.ctx, merchant, FoodInput{Name: "Pizza", Price: decimal.RequireFromString("9.999"), Category: "Italian"})
	require.NoError(t, err)
	assert.Equal(t, "Roma", food.Restaurant)
	assert.Equal(t, merchant.ID, food.CreatedBy)
	assert.Equal(t, "10.00", money(food.Price))
	assert.Contains(t, f.notes.kinds(merchant.ID), notify.KindFoodCreated)

	_, err = f.svc.Catalog.Create(f.ctx, customer, FoodInput{Name: "Pizza", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.Catalog.Create(f.ctx, unnamed, FoodInput{Name: "Pizza", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.svc.Catalog.Create(f.ctx, merchant, FoodInput{Name: "Pizza", Price: decimal.Zero})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateFoodKeepsRestaurant(t *testing.T) {
	f := newFixture(t)
	merchant := f.user(models.RoleMerchant, "mario", "Roma")
	other := f.user(models.RoleMerchant, "kenji", "Tokyo")
	admin := f.user(models.RoleAdmin, "root", "")
	food := f.food(merchant, "Pizza", "10.00")

	name := "Margherita"
	_, err := f.svc.Catalog.Update(f.ctx, other, food.ID, FoodUpdate{Name: &name})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	updated, err := f.svc.Catalog.Update(f.ctx, merchant, food.ID, FoodUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Margherita", updated.Name)
	assert.Equal(t, "Roma", updated.Restaurant)
	assert.Equal(t, merchant.ID, updated.CreatedBy)

	category := "Pizza"
	_, err = f.svc.Catalog.Update(f.ctx, admin, food.ID, FoodUpdate{Category: &category})
	require.NoError(t, err)

	empty := " "
	_, err = f.svc.Catalog.Update(f.ctx, merchant, food.ID, FoodUpdate{Name: &empty})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestListAndDeleteFoods(t *testing.T) {
	f := newFixture(t)
	roma := f.user(models.RoleMerchant, "mario", "Roma")
	tokyo := f.user(models.RoleMerchant, "kenji", "Tokyo")
	pizza := f.food(roma, "Pizza", "10.00")
	f.food(tokyo, "Sushi", "12.00")

	all, err := f.svc.Catalog.List(f.ctx, FoodFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := f.svc.Catalog.List(f.ctx, FoodFilter{Restaurant: "Tokyo"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Sushi", filtered[0].Name)

	search, err := f.svc.Catalog.List(f.ctx, FoodFilter{Search: "pizz"})
	require.NoError(t, err)
	assert.Len(t, search, 1)

	own, err := f.svc.Catalog.ListByMerchant(f.ctx, roma)
	require.NoError(t, err)
	assert.Len(t, own, 1)

	assert.ErrorIs(t, f.svc.Catalog.Delete(f.ctx, tokyo, pizza.ID), apperr.ErrForbidden)
	require.NoError(t, f.svc.Catalog.Delete(f.ctx, roma, pizza.ID))
	_, err = f.svc.Catalog.Get(f.ctx, pizza.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Contains(t, f.notes.kinds(roma.ID), notify.KindFoodDeleted)
}
