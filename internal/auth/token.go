package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/go-blog-forum/internal/config"
	"github.com/pribylovaa/go-blog-forum/internal/models"
)

type accessClaims struct {
	UserID string   `json:"uid"`
	Roles  []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Tokens выпускает и проверяет access-токены.
type Tokens struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewTokens создаёт Tokens из конфигурации.
func NewTokens(cfg config.AuthConfig) *Tokens {
	return &Tokens{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.AccessTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Issue подписывает токен пользователя и возвращает его вместе со временем истечения.
func (t *Tokens) Issue(user models.User) (string, time.Time, error) {
	const op = "auth/token/Issue"

	now := t.now()
	exp := now.Add(t.ttl)

	claims := accessClaims{
		UserID: user.ID.String(),
		Roles:  user.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    t.issuer,
			Subject:   user.ID.String(),
			Audience:  jwt.ClaimStrings{t.audience},
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, exp, nil
}

// Parse проверяет токен и возвращает личность.
// Ошибки: ErrTokenExpired, ErrInvalidToken.
func (t *Tokens) Parse(token string) (Identity, error) {
	const op = "auth/token/Parse"

	parsed, err := jwt.ParseWithClaims(token, &accessClaims{},
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(5*time.Second),
		jwt.WithIssuer(t.issuer),
		jwt.WithAudience(t.audience),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return Identity{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid {
		return Identity{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	uid, err := uuid.Parse(claims.UserID)
	if err != nil || uid == uuid.Nil {
		return Identity{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return Identity{ID: uid, Roles: claims.Roles}, nil
}

// ParseUnverified читает claims без проверки подписи.
// Нужен клиенту: он не знает секрета, но показывает роли из своего токена.
func ParseUnverified(token string) (Identity, error) {
	const op = "auth/token/ParseUnverified"

	var claims accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Identity{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return Identity{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return Identity{ID: uid, Roles: claims.Roles}, nil
}
