package statemachine

import (
	"errors"
	"testing"

	"food-marketplace-api/apperr"
	"food-marketplace-api/models"

	"github.com/stretchr/testify/assert"
)

func ptr(s string) *string { return &s }

var (
	owner    = models.Actor{ID: "m1", Name: "Mario", Role: models.RoleMerchant, RestaurantName: "Roma"}
	rival    = models.Actor{ID: "m2", Name: "Luigi", Role: models.RoleMerchant, RestaurantName: "Tokyo"}
	admin    = models.Actor{ID: "a1", Name: "Ada", Role: models.RoleAdmin}
	customer = models.Actor{ID: "c1", Name: "Cleo", Role: models.RoleCustomer}
	driver1  = models.Actor{ID: "d1", Name: "Dan", Role: models.RoleDriver}
	driver2  = models.Actor{ID: "d2", Name: "Dee", Role: models.RoleDriver}
	pasta    = &models.Food{ID: "f1", CreatedBy: "m1", Restaurant: "Roma"}
)

func TestAuthorizeMerchantActionsUseFoodOwner(t *testing.T) {
	order := &models.Order{FoodID: "f1", CreatedBy: "c1", Status: models.StatusPending}

	for _, action := range []Action{ActionAccept, ActionReject, ActionStartPreparing, ActionMarkReady, ActionCancelUnavailable, ActionSubstitute} {
		assert.NoError(t, Authorize(owner, action, order, pasta), action)
		assert.NoError(t, Authorize(admin, action, order, pasta), action)
		assert.True(t, errors.Is(Authorize(rival, action, order, pasta), apperr.ErrForbidden), action)
		assert.True(t, errors.Is(Authorize(customer, action, order, pasta), apperr.ErrForbidden), action)
		assert.True(t, errors.Is(Authorize(driver1, action, order, pasta), apperr.ErrForbidden), action)
	}
}

func TestAuthorizeMerchantWithoutFoodIsForbidden(t *testing.T) {
	order := &models.Order{FoodID: "gone", Status: models.StatusPending}

	assert.True(t, errors.Is(Authorize(owner, ActionAccept, order, nil), apperr.ErrForbidden))
	assert.NoError(t, Authorize(admin, ActionAccept, order, nil))
}

func TestAuthorizeDelivery(t *testing.T) {
	order := &models.Order{Status: models.StatusOutForDelivery, DriverID: ptr("d1")}

	assert.NoError(t, Authorize(driver1, ActionAcceptDelivery, &models.Order{}, nil))
	assert.True(t, errors.Is(Authorize(customer, ActionAcceptDelivery, &models.Order{}, nil), apperr.ErrForbidden))

	assert.NoError(t, Authorize(driver1, ActionMarkDelivered, order, nil))
	assert.NoError(t, Authorize(admin, ActionMarkDelivered, order, nil))
	assert.True(t, errors.Is(Authorize(driver2, ActionMarkDelivered, order, nil), apperr.ErrForbidden))
}

func TestAuthorizeOverrideIsAdminOnly(t *testing.T) {
	order := &models.Order{}
	assert.NoError(t, Authorize(admin, ActionOverride, order, nil))
	for _, a := range []models.Actor{owner, customer, driver1} {
		assert.True(t, errors.Is(Authorize(a, ActionOverride, order, pasta), apperr.ErrForbidden))
	}
}

func TestCanView(t *testing.T) {
	order := &models.Order{CreatedBy: "c1", DriverID: ptr("d1"), FoodID: "f1"}

	assert.True(t, CanView(customer, order, pasta))
	assert.True(t, CanView(driver1, order, pasta))
	assert.True(t, CanView(owner, order, pasta))
	assert.True(t, CanView(admin, order, pasta))
	assert.False(t, CanView(driver2, order, pasta))
	assert.False(t, CanView(rival, order, pasta))

	order.MerchantID = ptr("m2")
	assert.True(t, CanView(rival, order, pasta))
}

func TestTrackingPermissions(t *testing.T) {
	order := &models.Order{CreatedBy: "c1", DriverID: ptr("d1")}

	assert.True(t, CanUpdateDriverLocation(driver1, order))
	assert.False(t, CanUpdateDriverLocation(admin, order))
	assert.False(t, CanUpdateDriverLocation(driver2, order))

	assert.True(t, CanSetDeliveryLocation(customer, order))
	assert.True(t, CanSetDeliveryLocation(admin, order))
	assert.False(t, CanSetDeliveryLocation(driver1, order))

	assert.True(t, CanUpdateEstimate(driver1, order))
	assert.True(t, CanUpdateEstimate(admin, order))
	assert.False(t, CanUpdateEstimate(customer, order))
}
