package service

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"pongarena/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("display name must be 1-32 characters")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// AuthService issues and validates player tokens. Accounts live in the
// account service; a token here only carries an id and a display name.
type AuthService struct {
	jwtSecret []byte
	ttl       time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		jwtSecret: []byte(secret),
		ttl:       ttl,
	}
}

// IssuePlayerToken mints a token for a new player identity
func (s *AuthService) IssuePlayerToken(name string) (*model.TokenResponse, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > 32 {
		return nil, ErrInvalidCredentials
	}

	playerID := "p_" + uuid.NewString()
	token, err := s.sign(playerID, name)
	if err != nil {
		return nil, err
	}
	return &model.TokenResponse{
		Token:    token,
		PlayerID: playerID,
		Name:     name,
	}, nil
}

func (s *AuthService) sign(playerID, name string) (string, error) {
	now := time.Now()
	claims := &model.PlayerClaims{
		PlayerID: playerID,
		Name:     name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   playerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidatePlayerToken validates a player JWT and returns the identity it carries
func (s *AuthService) ValidatePlayerToken(tokenString string) (*model.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.PlayerClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.PlayerClaims)
	if !ok || !token.Valid || claims.PlayerID == "" {
		return nil, ErrInvalidToken
	}

	return &model.Identity{PlayerID: claims.PlayerID, Name: claims.Name}, nil
}
