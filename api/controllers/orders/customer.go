package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/cafeflow-backend/api/middleware"
	"github.com/angelmondragon/cafeflow-backend/api/responses"
	"github.com/angelmondragon/cafeflow-backend/api/validators"
	internalorders "github.com/angelmondragon/cafeflow-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/cafeflow-backend/pkg/errors"
	"github.com/angelmondragon/cafeflow-backend/pkg/logger"
)

// CreateOrder places an order for the signed-in customer.
func CreateOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		details := req.details()
		details.SpecialInstructions = validators.SanitizeString(details.SpecialInstructions, maxNotesLength)

		id, err := svc.CreateOrder(r.Context(), internalorders.CreateOrderInput{
			Actor:        middleware.ActorFromContext(r.Context()),
			OrderDetails: details,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, createdResponse{OrderID: id})
	}
}

// CreateGuestOrder places an anonymous order at the store in the path.
func CreateGuestOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID := strings.TrimSpace(chi.URLParam(r, "storeId"))
		if storeID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "store id is required"))
			return
		}
		var req guestOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		details := req.details()
		details.StoreID = storeID
		details.SpecialInstructions = validators.SanitizeString(details.SpecialInstructions, maxNotesLength)

		id, err := svc.CreateGuestOrder(r.Context(), internalorders.CreateGuestOrderInput{
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

func ListMine(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListMyOrders(r.Context(), middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Detail returns one order to its owner or to staff of its store.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), middleware.ActorFromContext(r.Context()), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func SubmitFeedback(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req feedbackRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.SubmitFeedback(r.Context(), internalorders.FeedbackInput{
			Actor:    middleware.ActorFromContext(r.Context()),
			OrderID:  orderID,
			Rating:   req.Rating,
			Feedback: req.Feedback,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
