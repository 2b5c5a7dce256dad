package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the only JWT shape this service accepts. OrganizationID scopes
// every tenant route; Email is matched against the admin allow-list.
type Claims struct {
	jwt.RegisteredClaims

	UserID         string    `json:"user_id"`
	OrganizationID string    `json:"organization_id"`
	Email          string    `json:"email,omitempty"`
	Role           string    `json:"role,omitempty"`
	TokenType      TokenType `json:"token_type"`
}

// Identity is the caller resolved from a verified access token.
type Identity struct {
	UserID         string
	OrganizationID string
	Email          string
	Role           string
}

func (c Claims) Identity() Identity {
	return Identity{UserID: c.UserID, OrganizationID: c.OrganizationID, Email: c.Email, Role: c.Role}
}
