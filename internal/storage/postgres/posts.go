package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/go-blog-forum/internal/models"
)

const postColumns = `id, title, content, owner, image_keys, created_at`

func scanPost(row pgx.Row) (*models.Post, error) {
	var p models.Post
	if err := row.Scan(&p.ID, &p.Title, &p.Content, &p.Owner, &p.ImageKeys, &p.CreatedAt); err != nil {
		return nil, err
	}

	if p.ImageKeys == nil {
		p.ImageKeys = []string{}
	}
	p.CreatedAt = p.CreatedAt.UTC()

	return &p, nil
}

// PostByID возвращает пост по id.
func (s *Storage) PostByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	const op = "storage/postgres/posts/PostByID"

	p, err := scanPost(s.db.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(op, err)
	}

	return p, nil
}

// ListPosts возвращает страницу постов (created_at DESC, id DESC).
func (s *Storage) ListPosts(ctx context.Context, limit, skip int) ([]models.Post, error) {
	const op = "storage/postgres/posts/ListPosts"

	rows, err := s.db.Query(ctx,
		`SELECT `+postColumns+` FROM posts ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`,
		limit, skip,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		out = append(out, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// CreatePost вставляет пост с новым id.
func (s *Storage) CreatePost(ctx context.Context, post models.Post) (*models.Post, error) {
	const op = "storage/postgres/posts/CreatePost"

	keys := post.ImageKeys
	if keys == nil {
		keys = []string{}
	}

	q := `INSERT INTO posts (id, title, content, owner, image_keys) VALUES ($1, $2, $3, $4, $5) RETURNING ` + postColumns

	p, err := scanPost(s.db.QueryRow(ctx, q, uuid.New(), post.Title, post.Content, post.Owner, keys))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}
