package orders

import (
	"strings"

	"github.com/angelmondragon/cafeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cafeflow-backend/pkg/errors"
)

// Actor is the caller capability passed into every service operation.
type Actor struct {
	ID         string
	Name       string
	Role       enums.ActorRole
	StoreID    string
	EmployeeID string
}

func (a Actor) authenticated() error {
	if strings.TrimSpace(a.ID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !a.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user role missing")
	}
	return nil
}

// StaffOf requires a staff role assigned to storeID. Admins are bound to
// their store like everyone else.
func (a Actor) StaffOf(storeID string) error {
	if err := a.authenticated(); err != nil {
		return err
	}
	if !a.Role.IsStaff() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}
	if a.StoreID == "" || a.StoreID != storeID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to store")
	}
	return nil
}

func (a Actor) adminOf(storeID string) error {
	if err := a.StaffOf(storeID); err != nil {
		return err
	}
	if a.Role != enums.ActorRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}

func (a Actor) canRead(order *Order) error {
	if err := a.authenticated(); err != nil {
		return err
	}
	if order.UserID == a.ID {
		return nil
	}
	return a.StaffOf(order.StoreID)
}
