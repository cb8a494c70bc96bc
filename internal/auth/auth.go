// Package auth — access-токены (JWT HS256), хэширование паролей и личность вызывающего.
package auth

import (
	"context"
	"errors"
	"slices"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-blog-forum/internal/models"
)

var (
	// ErrInvalidToken — подпись, издатель, аудитория или формат токена не прошли проверку.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired — срок действия токена истёк.
	ErrTokenExpired = errors.New("token expired")
)

// Identity — аутентифицированный пользователь запроса.
// Нулевое значение — аноним.
type Identity struct {
	ID    uuid.UUID
	Roles []string
}

// UserID — идентификатор пользователя строкой; "" для анонима.
func (i Identity) UserID() string {
	if i.ID == uuid.Nil {
		return ""
	}

	return i.ID.String()
}

// Anonymous сообщает, что запрос без токена.
func (i Identity) Anonymous() bool { return i.ID == uuid.Nil }

// IsAdmin — роль администратора.
func (i Identity) IsAdmin() bool {
	return slices.Contains(i.Roles, models.RoleAdmin)
}

type ctxKey struct{}

// Into кладёт личность в контекст.
func Into(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// From достаёт личность из контекста; аноним, если её нет.
func From(ctx context.Context) Identity {
	if ctx == nil {
		return Identity{}
	}

	id, _ := ctx.Value(ctxKey{}).(Identity)
	return id
}
