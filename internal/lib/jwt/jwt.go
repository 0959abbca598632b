package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the "typ" claim. An access token must never be
// accepted where a refresh token is expected and vice versa.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

// NewToken creates a signed token carrying the user ID and token type. The
// jti claim keeps two tokens minted within the same second distinct, which
// rotation relies on.
func NewToken(userID, tokenType, secret string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(
		jwt.SigningMethodHS256,
		jwt.MapClaims{
			"uid": userID,
			"typ": tokenType,
			"exp": time.Now().Add(ttl).Unix(),
			"jti": uuid.NewString(),
		})
	return token.SignedString([]byte(secret))
}

// ParseToken verifies signature and expiry and returns the user ID and the
// token type. Any failure is reported as ErrInvalidToken without detail.
func ParseToken(tokenString, secret string) (userID, tokenType string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", ErrInvalidToken
	}

	userID, ok = claims["uid"].(string)
	if !ok || userID == "" {
		return "", "", ErrInvalidToken
	}
	tokenType, ok = claims["typ"].(string)
	if !ok {
		return "", "", ErrInvalidToken
	}

	return userID, tokenType, nil
}
