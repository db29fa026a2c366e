// Package tokentest выпускает HS256-токены в формате identity provider.
// В рабочем коде токены только проверяются, выпускает их IdP.
package tokentest

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/EgorLis/study-share-hub/internal/domain"
)

// Sign подписывает токен на час и возвращает его вместе с jti.
func Sign(t testing.TB, secret, issuer string, id domain.Identity) (raw string, jti string) {
	t.Helper()
	now := time.Now().UTC()
	jti = uuid.NewString()

	cl := jwt.MapClaims{
		"sub":   id.UserID.String(),
		"email": id.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
		"jti":   jti,
	}
	if issuer != "" {
		cl["iss"] = issuer
	}
	if id.DisplayName != "" {
		cl["name"] = id.DisplayName
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw, jti
}
