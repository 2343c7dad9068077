package auth

import (
	"github.com/angelmondragon/cafeflow-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the identity provider data carried by a JWT.
type AccessTokenPayload struct {
	UserID     string
	Role       enums.ActorRole
	StoreID    string
	Name       string
	EmployeeID string
	JTI        string
}

// AccessTokenClaims represents the typed JWT presented by clients.
type AccessTokenClaims struct {
	UserID     string          `json:"user_id"`
	Role       enums.ActorRole `json:"role"`
	StoreID    string          `json:"store_id,omitempty"`
	Name       string          `json:"name,omitempty"`
	EmployeeID string          `json:"employee_id,omitempty"`
	jwt.RegisteredClaims
}
