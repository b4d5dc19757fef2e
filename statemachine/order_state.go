package statemachine

import (
	"food-marketplace-api/apperr"
	"food-marketplace-api/models"
)

// Action names an order lifecycle operation.
type Action string

const (
	ActionAccept            Action = "accept"
	ActionReject            Action = "reject"
	ActionStartPreparing    Action = "start_preparing"
	ActionMarkReady         Action = "mark_ready"
	ActionCancelUnavailable Action = "cancel_unavailable"
	ActionSubstitute        Action = "substitute"
	ActionAcceptDelivery    Action = "accept_delivery"
	ActionMarkDelivered     Action = "mark_delivered"
	ActionOverride          Action = "override"
)

// Transition defines a valid state change and the action that performs it
type Transition struct {
	From   models.OrderStatus `json:"from"`
	To     models.OrderStatus `json:"to"`
	Action Action             `json:"action"`
	Actor  string             `json:"actor"`
}

// validTransitions is the authoritative state machine definition. Substitute
// and admin override are not listed: the first keeps the status, the second
// may set any status.
var validTransitions = []Transition{
	{From: models.StatusPending, To: models.StatusAccepted, Action: ActionAccept, Actor: "merchant"},
	{From: models.StatusPending, To: models.StatusRejected, Action: ActionReject, Actor: "merchant"},
	{From: models.StatusPending, To: models.StatusCancelled, Action: ActionCancelUnavailable, Actor: "merchant"},
	{From: models.StatusAccepted, To: models.StatusPreparing, Action: ActionStartPreparing, Actor: "merchant"},
	{From: models.StatusAccepted, To: models.StatusCancelled, Action: ActionCancelUnavailable, Actor: "merchant"},
	{From: models.StatusPreparing, To: models.StatusReady, Action: ActionMarkReady, Actor: "merchant"},
	{From: models.StatusPreparing, To: models.StatusCancelled, Action: ActionCancelUnavailable, Actor: "merchant"},
	{From: models.StatusReady, To: models.StatusOutForDelivery, Action: ActionAcceptDelivery, Actor: "driver"},
	{From: models.StatusOutForDelivery, To: models.StatusDelivered, Action: ActionMarkDelivered, Actor: "driver"},
}

type transitionKey struct {
	From   models.OrderStatus
	Action Action
}

var transitionMap = func() map[transitionKey]models.OrderStatus {
	m := make(map[transitionKey]models.OrderStatus, len(validTransitions))
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.Action}] = t.To
	}
	return m
}()

// Next returns the status that action leads to from the current status, or a
// StateConflict naming the current status.
func Next(from models.OrderStatus, action Action) (models.OrderStatus, error) {
	if action == ActionSubstitute {
		return from, nil
	}
	if to, ok := transitionMap[transitionKey{from, action}]; ok {
		return to, nil
	}
	return "", apperr.StateConflict(string(from), "cannot %s an order that is %s", describe(action), from)
}

// ValidTransitionsFrom returns all valid next states from a given state
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	var nexts []models.OrderStatus
	seen := map[models.OrderStatus]bool{}
	for _, t := range validTransitions {
		if t.From == status && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	return append([]Transition(nil), validTransitions...)
}

func describe(a Action) string {
	switch a {
	case ActionStartPreparing:
		return "start preparing"
	case ActionMarkReady:
		return "mark ready"
	case ActionCancelUnavailable:
		return "cancel"
	case ActionAcceptDelivery:
		return "pick up"
	case ActionMarkDelivered:
		return "deliver"
	}
	return string(a)
}
