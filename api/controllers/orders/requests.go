package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	internalorders "github.com/angelmondragon/cafeflow-backend/internal/orders"
	"github.com/angelmondragon/cafeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cafeflow-backend/pkg/errors"
)

const maxNotesLength = 500

type orderDetailsRequest struct {
	Items               []internalorders.LineItem       `json:"items" validate:"dive"`
	Subtotal            float64                         `json:"subtotal" validate:"gte=0"`
	DeliveryFee         float64                         `json:"deliveryFee" validate:"gte=0"`
	Total               float64                         `json:"total" validate:"gte=0"`
	PaymentMethod       enums.PaymentMethod             `json:"paymentMethod" validate:"required"`
	DeliveryOption      enums.DeliveryOption            `json:"deliveryOption" validate:"required"`
	DeliveryAddress     *internalorders.DeliveryAddress `json:"deliveryAddress"`
	StoreID             string                          `json:"storeId"`
	SpecialInstructions string                          `json:"specialInstructions" validate:"max=500"`
	PointsUsed          int                             `json:"pointsUsed" validate:"gte=0"`
	AvailablePoints     int                             `json:"availablePoints" validate:"gte=0"`
}

func (r orderDetailsRequest) details() internalorders.OrderDetails {
	return internalorders.OrderDetails{
		Items:               r.Items,
		Subtotal:            r.Subtotal,
		DeliveryFee:         r.DeliveryFee,
		Total:               r.Total,
		PaymentMethod:       r.PaymentMethod,
		DeliveryOption:      r.DeliveryOption,
		DeliveryAddress:     r.DeliveryAddress,
		StoreID:             strings.TrimSpace(r.StoreID),
		SpecialInstructions: r.SpecialInstructions,
		PointsUsed:          r.PointsUsed,
		AvailablePoints:     r.AvailablePoints,
	}
}

type createOrderRequest struct {
	orderDetailsRequest
}

type guestOrderRequest struct {
	Guest internalorders.GuestInfo `json:"guest"`
	orderDetailsRequest
}

type staffOrderRequest struct {
	CustomerID string                    `json:"customerId"`
	Guest      *internalorders.GuestInfo `json:"guest"`
	orderDetailsRequest
}

type updateStatusRequest struct {
	Status        enums.OrderStatus `json:"status" validate:"required"`
	Notes         string            `json:"notes" validate:"max=500"`
	EstimatedTime *int              `json:"estimatedTime" validate:"omitempty,gte=1"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type actionRequest struct {
	Reason      string `json:"reason"`
	OtherReason string `json:"otherReason" validate:"max=500"`
	Notes       string `json:"notes" validate:"max=500"`
}

type feedbackRequest struct {
	Rating   int    `json:"rating" validate:"gte=1,lte=5"`
	Feedback string `json:"feedback"`
}

type createdResponse struct {
	OrderID string `json:"orderId"`
}

func orderIDParam(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	return id, nil
}
