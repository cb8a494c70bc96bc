package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pribylovaa/go-blog-forum/internal/auth"
	"github.com/pribylovaa/go-blog-forum/internal/models"
	"github.com/pribylovaa/go-blog-forum/internal/pkg/log"
	"github.com/pribylovaa/go-blog-forum/internal/pkg/redact"
	"github.com/pribylovaa/go-blog-forum/internal/storage"
)

// MinPasswordLength — минимальная длина пароля в символах.
const MinPasswordLength = 8

// Session — результат входа или регистрации.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    string    `json:"userId"`
	Roles     []string  `json:"roles"`
}

// validateEmail проверяет базовый формат email и приводит к нижнему регистру.
func validateEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", ErrInvalidArgument
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return "", ErrInvalidArgument
	}

	return strings.ToLower(email), nil
}

// Register создаёт учётную запись и профиль, возвращает сессию.
//
// Поведение/ошибки:
//   - ErrInvalidArgument — битый email, пустой username, пароль короче 8 символов;
//   - ErrConflict — email или username заняты.
func (s *Service) Register(ctx context.Context, email, username, password string) (*Session, error) {
	const op = "service/accounts/Register"

	lg := log.From(ctx).With("op", op)

	normEmail, err := validateEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	username = strings.TrimSpace(username)
	if username == "" || utf8.RuneCountInString(username) > maxUsernameLength {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	hash, err := auth.HashPassword(password, s.cfg.Auth.BcryptCost)
	if err != nil {
		lg.Error("hash password failed", "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	user, err := s.users.CreateUser(ctx, models.User{Username: username, Email: normEmail, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrConflict)
		}

		lg.Error("storage error on CreateUser", "email", redact.Email(normEmail), "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	if _, err := s.profiles.CreateProfile(ctx, models.Profile{UserID: user.ID, Username: username}); err != nil {
		lg.Error("storage error on CreateProfile", "user_id", user.ID.String(), "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return s.session(ctx, op, *user)
}

// Login — вход по email и паролю.
// Любая неудача проверки учётных данных — ErrUnauthenticated.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	const op = "service/accounts/Login"

	normEmail, err := validateEmail(email)
	if err != nil || password == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	user, err := s.users.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
		}

		log.From(ctx).Error("storage error on UserByEmail", "op", op, "email", redact.Email(normEmail), "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	return s.session(ctx, op, *user)
}

// ChangePassword меняет пароль вызывающего после проверки старого.
func (s *Service) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	const op = "service/accounts/ChangePassword"

	id, err := caller(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	lg := log.From(ctx).With("op", op, "user_id", id.UserID())

	if utf8.RuneCountInString(newPassword) < MinPasswordLength {
		return fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	user, err := s.users.UserByID(ctx, id.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUnauthenticated)
		}

		lg.Error("storage error on UserByID", "err", err)
		return fmt.Errorf("%s: %w", op, ErrInternal)
	}

	if !auth.CheckPassword(user.PasswordHash, oldPassword) {
		lg.Warn("old password mismatch")
		return fmt.Errorf("%s: %w", op, ErrPermissionDenied)
	}

	hash, err := auth.HashPassword(newPassword, s.cfg.Auth.BcryptCost)
	if err != nil {
		lg.Error("hash password failed", "err", err)
		return fmt.Errorf("%s: %w", op, ErrInternal)
	}

	if err := s.users.UpdatePasswordHash(ctx, id.ID, hash); err != nil {
		lg.Error("storage error on UpdatePasswordHash", "err", err)
		return fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return nil
}

// Authenticate проверяет access-токен; пустой токен — аноним.
func (s *Service) Authenticate(token string) (auth.Identity, error) {
	const op = "service/accounts/Authenticate"

	if token == "" {
		return auth.Identity{}, nil
	}

	id, err := s.tokens.Parse(token)
	if err != nil {
		return auth.Identity{}, fmt.Errorf("%s: %w: %w", op, ErrUnauthenticated, err)
	}

	return id, nil
}

func (s *Service) session(ctx context.Context, op string, user models.User) (*Session, error) {
	token, exp, err := s.tokens.Issue(user)
	if err != nil {
		log.From(ctx).Error("issue token failed", "op", op, "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	roles := user.Roles
	if roles == nil {
		roles = []string{}
	}

	return &Session{Token: token, ExpiresAt: exp, UserID: user.ID.String(), Roles: roles}, nil
}
