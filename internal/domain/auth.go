package domain

import (
	"context"
	"time"
)

// Вход/сессии живут у внешнего identity provider. Сюда приходит только
// проверенный bearer-токен, из которого достаём Identity.

type Token = string

type TokenClaims struct {
	JTI       string // уникальный id токена
	Identity  Identity
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Проверка токенов IdP (HS256-секрет или JWKS)
type TokenManager interface {
	Parse(ctx context.Context, t Token) (TokenClaims, error)
}

// Блэклист/ревокация токенов (Redis)
type TokenBlacklist interface {
	Revoke(ctx context.Context, jti string, exp time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
