package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token kinds carried in the typ claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// SessionMeta describes the client that started or rotated a session.
type SessionMeta struct {
	IP        string
	UserAgent string
}

// TokenPair is returned whenever a session starts or rotates.
type TokenPair struct {
	AccessToken           string    `json:"accessToken"`
	RefreshToken          string    `json:"refreshToken"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
}

// LoginResult bundles the authenticated user with a fresh token pair.
type LoginResult struct {
	User *User `json:"user"`
	TokenPair
}

// AccessClaims represents the JWT payload for access tokens.
type AccessClaims struct {
	UserID   string `json:"uid"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullname"`
	Type     string `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshClaims represents the JWT payload for refresh tokens.
type RefreshClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}
