package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/go-blog-forum/internal/models"
	"github.com/pribylovaa/go-blog-forum/internal/storage"
)

const userColumns = `id, username, email, password_hash, roles, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Roles, &u.CreatedAt); err != nil {
		return nil, err
	}

	u.CreatedAt = u.CreatedAt.UTC()

	return &u, nil
}

// CreateUser вставляет пользователя. Email хранится в нижнем регистре.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	const op = "storage/postgres/users/CreateUser"

	id := user.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	roles := user.Roles
	if roles == nil {
		roles = []string{}
	}

	q := `INSERT INTO users (id, username, email, password_hash, roles) VALUES ($1, $2, $3, $4, $5) RETURNING ` + userColumns

	u, err := scanUser(s.db.QueryRow(ctx, q, id, user.Username, strings.ToLower(user.Email), user.PasswordHash, roles))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

// UserByEmail ищет пользователя по email без учёта регистра.
func (s *Storage) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage/postgres/users/UserByEmail"

	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email)))
	if err != nil {
		return nil, notFound(op, err)
	}

	return u, nil
}

// UserByID возвращает пользователя по id.
func (s *Storage) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage/postgres/users/UserByID"

	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(op, err)
	}

	return u, nil
}

// UpdatePasswordHash меняет хэш пароля.
func (s *Storage) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	const op = "storage/postgres/users/UpdatePasswordHash"

	tag, err := s.db.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}
