package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ConnectRequest is the wallet-connect payload.
type ConnectRequest struct {
	WalletAddress string `json:"walletAddress" validate:"required,min=1,max=128"`
}

// SessionClaims is the JWT payload; the subject carries the wallet address.
type SessionClaims struct {
	WalletAddress string `json:"wallet_address"`
	jwt.RegisteredClaims
}

// SessionResponse returns the issued token and, when registered, the user.
type SessionResponse struct {
	AccessToken   string    `json:"access_token"`
	ExpiresIn     int64     `json:"expires_in"`
	WalletAddress string    `json:"walletAddress"`
	Registered    bool      `json:"registered"`
	User          *User     `json:"user,omitempty"`
	IssuedAt      time.Time `json:"issued_at"`
}

// CurrentSession describes the caller resolved from the token.
type CurrentSession struct {
	WalletAddress string `json:"walletAddress"`
	Registered    bool   `json:"registered"`
	User          *User  `json:"user,omitempty"`
}

// PermissionSummary is the permission introspection view.
type PermissionSummary struct {
	WalletAddress   string       `json:"walletAddress"`
	Role            Role         `json:"role"`
	RoleDisplay     string       `json:"roleDisplay"`
	PermissionLevel string       `json:"permissionLevel"`
	Permissions     []Permission `json:"permissions"`
}
