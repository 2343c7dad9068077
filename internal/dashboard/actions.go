package dashboard

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/cafeflow-backend/pkg/enums"
)

// Action is a staff button on an order card.
type Action string

const (
	ActionConfirm        Action = "confirm"
	ActionReject         Action = "reject"
	ActionStartPreparing Action = "start_preparing"
	ActionMarkReady      Action = "mark_ready"
	ActionComplete       Action = "complete"
	ActionCancel         Action = "cancel"
)

var offered = map[enums.OrderStatus][]Action{
	enums.OrderStatusPending:   {ActionConfirm, ActionReject},
	enums.OrderStatusConfirmed: {ActionStartPreparing, ActionCancel},
	enums.OrderStatusPreparing: {ActionMarkReady, ActionCancel},
	enums.OrderStatusReady:     {ActionComplete, ActionCancel},
}

var allActions = []Action{ActionConfirm, ActionReject, ActionStartPreparing, ActionMarkReady, ActionComplete, ActionCancel}

func (a Action) String() string { return string(a) }

// RequiresReason reports whether the action cancels the order.
func (a Action) RequiresReason() bool {
	return a == ActionReject || a == ActionCancel
}

// Target is the status the action moves an order into.
func (a Action) Target() enums.OrderStatus {
	switch a {
	case ActionConfirm:
		return enums.OrderStatusConfirmed
	case ActionStartPreparing:
		return enums.OrderStatusPreparing
	case ActionMarkReady:
		return enums.OrderStatusReady
	case ActionComplete:
		return enums.OrderStatusCompleted
	case ActionReject, ActionCancel:
		return enums.OrderStatusCancelled
	}
	return ""
}

func ParseAction(value string) (Action, error) {
	v := Action(strings.ToLower(strings.TrimSpace(value)))
	for _, a := range allActions {
		if a == v {
			return a, nil
		}
	}
	return "", fmt.Errorf("invalid dashboard action %q", value)
}

// AvailableActions lists the buttons for an order in status. Terminal
// statuses offer none.
func AvailableActions(status enums.OrderStatus) []Action {
	actions := offered[status]
	out := make([]Action, len(actions))
	copy(out, actions)
	return out
}

func Offers(status enums.OrderStatus, action Action) bool {
	for _, a := range offered[status] {
		if a == action {
			return true
		}
	}
	return false
}
