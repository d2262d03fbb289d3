package model

import "github.com/golang-jwt/jwt/v5"

// PlayerClaims are JWT claims identifying a player
type PlayerClaims struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	jwt.RegisteredClaims
}

// TokenRequest is the request body for token issue
type TokenRequest struct {
	Name string `json:"name"`
}

// TokenResponse is returned after a token is issued
type TokenResponse struct {
	Token    string `json:"token"`
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

// Identity is the authenticated caller
type Identity struct {
	PlayerID string
	Name     string
}
