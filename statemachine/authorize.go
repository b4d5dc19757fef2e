package statemachine

import (
	"food-marketplace-api/apperr"
	"food-marketplace-api/models"
)

// Authorize decides whether actor may perform action on order. Merchant
// ownership is resolved through the food's creator because merchantId may not
// be set yet. food may be nil when the menu item has been deleted.
func Authorize(actor models.Actor, action Action, order *models.Order, food *models.Food) error {
	if actor.IsAdmin() {
		return nil
	}
	switch action {
	case ActionAccept, ActionReject, ActionStartPreparing, ActionMarkReady,
		ActionCancelUnavailable, ActionSubstitute:
		if actor.Role != models.RoleMerchant {
			return apperr.Forbidden("merchant role required")
		}
		if food == nil || food.CreatedBy != actor.ID {
			return apperr.Forbidden("not authorized to manage this order")
		}
		return nil
	case ActionAcceptDelivery:
		if actor.Role != models.RoleDriver {
			return apperr.Forbidden("driver role required")
		}
		return nil
	case ActionMarkDelivered:
		if actor.Role != models.RoleDriver {
			return apperr.Forbidden("driver role required")
		}
		if !order.AssignedTo(actor.ID) {
			return apperr.Forbidden("you are not the assigned driver for this order")
		}
		return nil
	case ActionOverride:
		return apperr.Forbidden("admin role required")
	}
	return apperr.Forbidden("unknown action %q", action)
}

// OwnsFood reports whether actor created food.
func OwnsFood(actor models.Actor, food *models.Food) bool {
	return food != nil && food.CreatedBy == actor.ID
}

// CanView reports whether actor may read order: its customer, its driver, its
// merchant, or an admin.
func CanView(actor models.Actor, order *models.Order, food *models.Food) bool {
	switch {
	case actor.IsAdmin():
		return true
	case order.CreatedBy == actor.ID:
		return true
	case order.AssignedTo(actor.ID):
		return true
	case order.MerchantID != nil && *order.MerchantID == actor.ID:
		return true
	}
	return OwnsFood(actor, food)
}

// CanUpdateDriverLocation is reserved to the assigned driver.
func CanUpdateDriverLocation(actor models.Actor, order *models.Order) bool {
	return order.AssignedTo(actor.ID)
}

func CanSetDeliveryLocation(actor models.Actor, order *models.Order) bool {
	return actor.IsAdmin() || order.CreatedBy == actor.ID
}

func CanUpdateEstimate(actor models.Actor, order *models.Order) bool {
	return actor.IsAdmin() || order.AssignedTo(actor.ID)
}
