package orders

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/cafeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cafeflow-backend/pkg/errors"
)

var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:   {enums.OrderStatusConfirmed, enums.OrderStatusCancelled},
	enums.OrderStatusConfirmed: {enums.OrderStatusPreparing, enums.OrderStatusCancelled},
	enums.OrderStatusPreparing: {enums.OrderStatusReady, enums.OrderStatusCancelled},
	enums.OrderStatusReady:     {enums.OrderStatusCompleted, enums.OrderStatusCancelled},
}

// CanTransition reports whether from -> to is a legal edge of the lifecycle.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses lists the legal targets from a status.
func NextStatuses(from enums.OrderStatus) []enums.OrderStatus {
	return append([]enums.OrderStatus(nil), transitions[from]...)
}

// TransitionPolicy decides whether illegal edges are rejected.
type TransitionPolicy string

const (
	PolicyStrict     TransitionPolicy = "strict"
	PolicyPermissive TransitionPolicy = "permissive"
)

func ParseTransitionPolicy(value string) (TransitionPolicy, error) {
	switch TransitionPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case PolicyStrict, "":
		return PolicyStrict, nil
	case PolicyPermissive:
		return PolicyPermissive, nil
	default:
		return "", fmt.Errorf("unknown transition policy %q", value)
	}
}

// Check validates a requested transition. Unknown targets are always
// rejected; illegal edges only under the strict policy.
func (p TransitionPolicy) Check(from, to enums.OrderStatus) error {
	if !to.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown order status %q", to)
	}
	if p == PolicyPermissive {
		return nil
	}
	if !CanTransition(from, to) {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move order from %s to %s", from, to).
			WithDetails(map[string]any{
				"from":    from,
				"to":      to,
				"allowed": NextStatuses(from),
			})
	}
	return nil
}
