package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bd31600/planning/internal/utils"
)

// HMACVerifier validates locally signed HS256 tokens. Development and test
// deployments use it in place of the Google provider.
type HMACVerifier struct {
	SigningKey []byte
}

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (h *HMACVerifier) Verify(ctx context.Context, tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, utils.ErrInvalidToken
		}
		return h.SigningKey, nil
	})

	if err != nil {
		return "", fmt.Errorf("%w: %v", utils.ErrAuthentication, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("%w: %v", utils.ErrAuthentication, utils.ErrInvalidToken)
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return "", fmt.Errorf("%w: %v", utils.ErrAuthentication, utils.ErrExpiredToken)
	}

	if claims.Email == "" {
		return "", fmt.Errorf("%w: token carries no email", utils.ErrAuthentication)
	}
	return claims.Email, nil
}

// GenerateToken mints a development token for the given email.
func (h *HMACVerifier) GenerateToken(email string, ttl time.Duration) (string, error) {
	claims := Claims{
		email,
		jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.SigningKey)
}
