package token

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EgorLis/study-share-hub/internal/domain"
)

// Manager проверяет bearer-токены identity provider: HS256-секрет или JWKS.
// Токены выпускает только IdP.
type Manager struct {
	keyfunc jwt.Keyfunc
	methods []string
	issuer  string
	leeway  time.Duration
}

// Ensure: Manager implements domain.TokenManager
var _ domain.TokenManager = (*Manager)(nil)

func New(secret string, issuer string) *Manager {
	key := []byte(secret)
	return &Manager{
		keyfunc: func(*jwt.Token) (any, error) { return key, nil },
		methods: []string{jwt.SigningMethodHS256.Alg()},
		issuer:  issuer,
		leeway:  30 * time.Second,
	}
}

// NewJWKS: ключи IdP подтягиваются из JWKS и обновляются в фоне.
// Стартуем даже если IdP пока недоступен.
func NewJWKS(ctx context.Context, jwksURL, issuer string, logger *zap.Logger) (*Manager, error) {
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Client:                    &http.Client{Timeout: 10 * time.Second},
		Ctx:                       ctx,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           time.Hour,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("jwks refresh failed", zap.String("url", jwksURL), zap.Error(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("jwks storage: %w", err)
	}
	k, err := keyfunc.New(keyfunc.Options{Ctx: ctx, Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("keyfunc: %w", err)
	}
	return NewWithKeyfunc(k, issuer), nil
}

// NewWithKeyfunc: проверка через готовый keyfunc (в тестах: JWKS из JSON).
func NewWithKeyfunc(k keyfunc.Keyfunc, issuer string) *Manager {
	return &Manager{
		keyfunc: k.Keyfunc,
		methods: []string{"RS256", "RS384", "RS512", "ES256", "ES384", "PS256", "EdDSA"},
		issuer:  issuer,
		leeway:  30 * time.Second,
	}
}

// claims: то, что кладёт IdP: sub, email и имя (в корне или в user_metadata).
type claims struct {
	Email        string       `json:"email"`
	Name         string       `json:"name,omitempty"`
	SessionID    string       `json:"session_id,omitempty"`
	UserMetadata userMetadata `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

type userMetadata struct {
	FullName string `json:"full_name,omitempty"`
}

// Parse валидирует подпись/сроки и возвращает доменные клеймы.
func (m *Manager) Parse(_ context.Context, raw domain.Token) (domain.TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(m.methods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(m.leeway),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	var out claims
	tkn, err := jwt.ParseWithClaims(raw, &out, m.keyfunc, opts...)
	if err != nil {
		return domain.TokenClaims{}, fmt.Errorf("%w: %w", domain.ErrUnauth, err)
	}
	if !tkn.Valid {
		return domain.TokenClaims{}, fmt.Errorf("%w: %w", domain.ErrUnauth, jwt.ErrTokenInvalidClaims)
	}

	userID, err := uuid.Parse(out.Subject)
	if err != nil {
		return domain.TokenClaims{}, fmt.Errorf("%w: subject is not a uuid", domain.ErrUnauth)
	}
	email := domain.NormalizeEmail(out.Email)
	if email == "" {
		return domain.TokenClaims{}, fmt.Errorf("%w: email claim is missing", domain.ErrUnauth)
	}

	name := strings.TrimSpace(out.Name)
	if name == "" {
		name = strings.TrimSpace(out.UserMetadata.FullName)
	}

	return domain.TokenClaims{
		JTI:       tokenID(out, raw),
		Identity:  domain.Identity{UserID: userID, Email: email, DisplayName: name},
		IssuedAt:  timeOf(out.IssuedAt),
		ExpiresAt: timeOf(out.ExpiresAt),
	}, nil
}

// tokenID: jti, затем session_id; если нет ни того ни другого,
// хеш самого токена, чтобы его можно было отозвать.
func tokenID(c claims, raw string) string {
	if c.ID != "" {
		return c.ID
	}
	if c.SessionID != "" {
		return "sid:" + c.SessionID
	}
	sum := sha256.Sum256([]byte(raw))
	return "sha:" + hex.EncodeToString(sum[:16])
}

func timeOf(d *jwt.NumericDate) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}
