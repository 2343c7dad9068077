package orders

import (
	"time"

	"github.com/angelmondragon/cafeflow-backend/pkg/enums"
)

// Order is the persisted order document.
type Order struct {
	ID                  string               `json:"id,omitempty"`
	UserID              string               `json:"userId"`
	Items               []LineItem           `json:"items"`
	Subtotal            float64              `json:"subtotal"`
	DeliveryFee         float64              `json:"deliveryFee"`
	Total               float64              `json:"total"`
	PaymentMethod       enums.PaymentMethod  `json:"paymentMethod"`
	DeliveryOption      enums.DeliveryOption `json:"deliveryOption"`
	DeliveryAddress     *DeliveryAddress     `json:"deliveryAddress,omitempty"`
	StoreID             string               `json:"storeId"`
	Status              enums.OrderStatus    `json:"status"`
	StatusHistory       []StatusEntry        `json:"statusHistory"`
	CreatedAt           time.Time            `json:"createdAt"`
	UpdatedAt           *time.Time           `json:"updatedAt,omitempty"`
	EstimatedTime       *int                 `json:"estimatedTime,omitempty"`
	AssignedTo          string               `json:"assignedTo,omitempty"`
	SpecialInstructions string               `json:"specialInstructions,omitempty"`
	PointsUsed          int                  `json:"pointsUsed,omitempty"`
	Rating              *int                 `json:"rating,omitempty"`
	Feedback            string               `json:"feedback,omitempty"`
	FeedbackAt          *time.Time           `json:"feedbackAt,omitempty"`
	CancellationReason  string               `json:"cancellationReason,omitempty"`
	IsStaffOrder        bool                 `json:"isStaffOrder,omitempty"`
	StaffMember         *StaffMember         `json:"staffMember,omitempty"`
	IsGuestOrder        bool                 `json:"isGuestOrder,omitempty"`
	GuestInfo           *GuestInfo           `json:"guestInfo,omitempty"`

	// Version is the store's optimistic-concurrency token.
	Version int64 `json:"-"`
}

// LineItem is a product snapshot taken at checkout.
type LineItem struct {
	ProductID        string   `json:"productId" validate:"required"`
	Name             string   `json:"name" validate:"required"`
	Category         string   `json:"category"`
	Price            float64  `json:"price" validate:"gte=0"`
	Quantity         int      `json:"quantity" validate:"gte=1"`
	SelectedSize     string   `json:"selectedSize,omitempty"`
	SelectedMilk     string   `json:"selectedMilk,omitempty"`
	SelectedToppings []string `json:"selectedToppings"`
}

type DeliveryAddress struct {
	RecipientName       string `json:"recipientName" validate:"required"`
	PhoneNumber         string `json:"phoneNumber" validate:"required"`
	StreetAddress       string `json:"streetAddress" validate:"required"`
	Ward                string `json:"ward"`
	District            string `json:"district"`
	City                string `json:"city"`
	SpecialInstructions string `json:"specialInstructions,omitempty"`
}

// StatusEntry is one append-only record of a status change.
type StatusEntry struct {
	Status    enums.OrderStatus `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	UpdatedBy string            `json:"updatedBy"`
	Notes     string            `json:"notes,omitempty"`
}

type StaffMember struct {
	UID        string          `json:"uid"`
	Name       string          `json:"name"`
	Role       enums.ActorRole `json:"role"`
	EmployeeID string          `json:"employeeId,omitempty"`
}

type GuestInfo struct {
	Name        string `json:"name" validate:"required"`
	PhoneNumber string `json:"phoneNumber" validate:"required"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
}

// LastStatus returns the status of the newest history entry.
func (o *Order) LastStatus() (enums.OrderStatus, bool) {
	if len(o.StatusHistory) == 0 {
		return "", false
	}
	return o.StatusHistory[len(o.StatusHistory)-1].Status, true
}
