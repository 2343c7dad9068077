package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/cafeflow-backend/api/middleware"
	"github.com/angelmondragon/cafeflow-backend/api/responses"
	"github.com/angelmondragon/cafeflow-backend/api/validators"
	"github.com/angelmondragon/cafeflow-backend/internal/dashboard"
	internalorders "github.com/angelmondragon/cafeflow-backend/internal/orders"
	"github.com/angelmondragon/cafeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cafeflow-backend/pkg/errors"
	"github.com/angelmondragon/cafeflow-backend/pkg/logger"
)

// Dashboard is the staff-facing view of the order lifecycle.
// *dashboard.Controller satisfies it.
type Dashboard interface {
	Perform(ctx context.Context, in dashboard.ActionInput) (*internalorders.Order, error)
	Board(ctx context.Context, actor internalorders.Actor, storeID string) (*dashboard.Board, error)
	Watch(ctx context.Context, actor internalorders.Actor, storeID string, view dashboard.View, fn func([]internalorders.Order)) (func(), error)
}

type actionsResponse struct {
	OrderID string             `json:"orderId"`
	Status  enums.OrderStatus  `json:"status"`
	Actions []dashboard.Action `json:"actions"`
}

// CreateStaffOrder places a counter order on behalf of a walk-in customer.
func CreateStaffOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req staffOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor := middleware.ActorFromContext(r.Context())
		details := req.details()
		if details.StoreID == "" {
			details.StoreID = actor.StoreID
		}
		details.SpecialInstructions = validators.SanitizeString(details.SpecialInstructions, maxNotesLength)

		id, err := svc.CreateStaffOrder(r.Context(), internalorders.CreateStaffOrderInput{
			Actor:        actor,
			CustomerID:   strings.TrimSpace(req.CustomerID),
			Guest:        req.Guest,
			OrderDetails: details,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, createdResponse{OrderID: id})
	}
}

func Board(board Dashboard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.ActorFromContext(r.Context())
		snapshot, err := board.Board(r.Context(), actor, actor.StoreID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

func Statistics(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.ActorFromContext(r.Context())
		stats, err := svc.GetOrderStatistics(r.Context(), actor, actor.StoreID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// AvailableActions lists the dashboard buttons for an order's current status.
func AvailableActions(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor := middleware.ActorFromContext(r.Context())
		order, err := svc.GetOrder(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := actor.StaffOf(order.StoreID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, actionsResponse{
			OrderID: order.ID,
			Status:  order.Status,
			Actions: dashboard.AvailableActions(order.Status),
		})
	}
}

func PerformAction(board Dashboard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		action, err := dashboard.ParseAction(chi.URLParam(r, "action"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown action"))
			return
		}
		var req actionRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		order, err := board.Perform(r.Context(), dashboard.ActionInput{
			Actor:       middleware.ActorFromContext(r.Context()),
			OrderID:     orderID,
			Action:      action,
			Reason:      req.Reason,
			OtherReason: validators.SanitizeString(req.OtherReason, maxNotesLength),
			Notes:       validators.SanitizeString(req.Notes, maxNotesLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// UpdateStatus is the raw transition endpoint. The configured transition
// policy decides which moves are accepted.
func UpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.UpdateOrderStatus(r.Context(), internalorders.UpdateStatusInput{
			Actor:         middleware.ActorFromContext(r.Context()),
			OrderID:       orderID,
			Status:        req.Status,
			Notes:         validators.SanitizeString(req.Notes, maxNotesLength),
			EstimatedTime: req.EstimatedTime,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req cancelRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.CancelOrder(r.Context(), internalorders.CancelOrderInput{
			Actor:   middleware.ActorFromContext(r.Context()),
			OrderID: orderID,
			Reason:  validators.SanitizeString(req.Reason, maxNotesLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func CancellationReasons() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{
			"reasons": dashboard.CancellationReasons(),
			"other":   dashboard.ReasonOther,
		})
	}
}
