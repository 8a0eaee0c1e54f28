package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cbs/consultation-web/internal/core/ports"
)

// JWTVerifier resolves the role claim of an HS256 backend token locally,
// avoiding the verification round-trip when the signing secret is shared.
type JWTVerifier struct {
	secret []byte
}

var _ ports.TokenVerifier = (*JWTVerifier)(nil)

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// VerifyRole validates signature and expiry and returns the role claim.
func (v *JWTVerifier) VerifyRole(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", errors.New("missing token")
	}

	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return v.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !tkn.Valid {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	role, _ := claims["role"].(string)
	if role == "" {
		return "", errors.New("token has no role claim")
	}
	return role, nil
}
