package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSubject is returned when a token carries neither user_id nor sub.
var ErrNoSubject = errors.New("token has no subject")

type jwtCustomClaims struct {
	UserID string `json:"user_id,omitempty"`
	ID     string `json:"id,omitempty"`
	jwt.RegisteredClaims
}

func (c *jwtCustomClaims) subject() string {
	switch {
	case c.UserID != "":
		return c.UserID
	case c.ID != "":
		return c.ID
	default:
		return c.Subject
	}
}

// GenerateToken creates a signed JWT for the provided user ID.
func GenerateToken(secret, userID string, ttl time.Duration) (string, error) {
	claims := &jwtCustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates the token signature and expiry and returns the user ID.
func ParseToken(secret, tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*jwtCustomClaims)
	if !ok || !token.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}
	if id := claims.subject(); id != "" {
		return id, nil
	}
	return "", ErrNoSubject
}

// PeekSubject reads the user ID without verifying the signature. The storefront
// remains the authority on the token; this only labels logs and sessions.
func PeekSubject(tokenString string) (string, error) {
	claims := &jwtCustomClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return "", err
	}
	if id := claims.subject(); id != "" {
		return id, nil
	}
	return "", ErrNoSubject
}
