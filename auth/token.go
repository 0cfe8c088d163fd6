package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"chat-relay/domain"
)

// CustomClaims is the data stored inside a session JWT.
type CustomClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenManager signs and validates the bearer credentials that carry
// a client's identity across the REST and websocket surfaces.
type TokenManager struct {
	secret   []byte
	issuer   string
	duration time.Duration
}

func NewTokenManager(secret, issuer string, duration time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), issuer: issuer, duration: duration}
}

// Generate creates a signed HS256 JWT for an identity.
func (t *TokenManager) Generate(identity domain.Identity) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID:   identity.ID,
		Username: identity.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(t.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    t.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Validate parses a token string, checks signature and expiration, and
// returns the identity it carries.
func (t *TokenManager) Validate(tokenString string) (domain.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{},
		func(token *jwt.Token) (interface{}, error) {
			return t.secret, nil
		})
	if err != nil {
		return domain.Identity{}, err
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return domain.Identity{}, jwt.ErrSignatureInvalid
	}
	return domain.Identity{ID: claims.UserID, Username: claims.Username}, nil
}
