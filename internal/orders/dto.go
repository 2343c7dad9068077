package orders

import "github.com/angelmondragon/cafeflow-backend/pkg/enums"

// OrderDetails is the checkout payload shared by every create path.
type OrderDetails struct {
	Items               []LineItem
	Subtotal            float64
	DeliveryFee         float64
	Total               float64
	PaymentMethod       enums.PaymentMethod
	DeliveryOption      enums.DeliveryOption
	DeliveryAddress     *DeliveryAddress
	StoreID             string
	SpecialInstructions string
	PointsUsed          int
	// AvailablePoints is the caller-verified balance.
	AvailablePoints int
}

type CreateOrderInput struct {
	Actor Actor
	OrderDetails
}

type CreateStaffOrderInput struct {
	Actor      Actor
	CustomerID string
	Guest      *GuestInfo
	OrderDetails
}

type CreateGuestOrderInput struct {
	Guest GuestInfo
	OrderDetails
}

type UpdateStatusInput struct {
	Actor         Actor
	OrderID       string
	Status        enums.OrderStatus
	Notes         string
	EstimatedTime *int
}

type CancelOrderInput struct {
	Actor   Actor
	OrderID string
	Reason  string
}

type FeedbackInput struct {
	Actor    Actor
	OrderID  string
	Rating   int
	Feedback string
}
