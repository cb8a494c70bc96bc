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

// profileColumns — единый порядок колонок для SELECT/RETURNING.
const profileColumns = `user_id, username, country, bio, avatar_key, avatar_url, created_at, updated_at`

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	if err := row.Scan(
		&p.UserID,
		&p.Username,
		&p.Country,
		&p.Bio,
		&p.AvatarKey,
		&p.AvatarURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()

	return &p, nil
}

// CreateProfile вставляет профиль.
// Ошибки: storage.ErrAlreadyExists при повторе user_id.
func (s *Storage) CreateProfile(ctx context.Context, profile models.Profile) (*models.Profile, error) {
	const op = "storage/postgres/profiles/CreateProfile"

	q := `INSERT INTO profiles (user_id, username, country, bio) VALUES ($1, $2, $3, $4) RETURNING ` + profileColumns

	p, err := scanProfile(s.db.QueryRow(ctx, q, profile.UserID, profile.Username, profile.Country, profile.Bio))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

// ProfileByID возвращает профиль по user_id.
func (s *Storage) ProfileByID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	const op = "storage/postgres/profiles/ProfileByID"

	p, err := scanProfile(s.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID))
	if err != nil {
		return nil, notFound(op, err)
	}

	return p, nil
}

// UpdateProfile обновляет только заданные поля и всегда сдвигает updated_at.
func (s *Storage) UpdateProfile(ctx context.Context, userID uuid.UUID, update models.ProfileUpdate) (*models.Profile, error) {
	const op = "storage/postgres/profiles/UpdateProfile"

	sets := []string{"updated_at = now()"}
	args := []any{userID}

	add := func(column string, v *string) {
		if v == nil {
			return
		}

		args = append(args, *v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	add("username", update.Username)
	add("country", update.Country)
	add("bio", update.Bio)

	q := `UPDATE profiles SET ` + strings.Join(sets, ", ") + ` WHERE user_id = $1 RETURNING ` + profileColumns

	p, err := scanProfile(s.db.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, notFound(op, err)
	}

	return p, nil
}

// UpdateAvatar фиксирует ключ и URL аватара после проверки объекта.
func (s *Storage) UpdateAvatar(ctx context.Context, userID uuid.UUID, key, url string) (*models.Profile, error) {
	const op = "storage/postgres/profiles/UpdateAvatar"

	q := `UPDATE profiles SET avatar_key = $2, avatar_url = $3, updated_at = now() WHERE user_id = $1 RETURNING ` + profileColumns

	p, err := scanProfile(s.db.QueryRow(ctx, q, userID, key, url))
	if err != nil {
		return nil, notFound(op, err)
	}

	return p, nil
}
