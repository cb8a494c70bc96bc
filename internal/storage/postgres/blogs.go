package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/go-blog-forum/internal/models"
	"github.com/pribylovaa/go-blog-forum/internal/storage"
)

const blogColumns = `id, title, content, owner, created_at`

func scanBlog(row pgx.Row) (*models.Blog, error) {
	var b models.Blog
	if err := row.Scan(&b.ID, &b.Title, &b.Content, &b.Owner, &b.CreatedAt); err != nil {
		return nil, err
	}

	b.CreatedAt = b.CreatedAt.UTC()

	return &b, nil
}

// ListBlogs возвращает страницу блогов (created_at DESC, id DESC).
func (s *Storage) ListBlogs(ctx context.Context, limit, skip int) ([]models.Blog, error) {
	const op = "storage/postgres/blogs/ListBlogs"

	q := `SELECT ` + blogColumns + ` FROM blogs ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`

	rows, err := s.db.Query(ctx, q, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]models.Blog, 0, limit)
	for rows.Next() {
		b, err := scanBlog(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		out = append(out, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// CountBlogs — общее число блогов.
func (s *Storage) CountBlogs(ctx context.Context) (int64, error) {
	const op = "storage/postgres/blogs/CountBlogs"

	var n int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM blogs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

// BlogByID возвращает блог по id.
func (s *Storage) BlogByID(ctx context.Context, id uuid.UUID) (*models.Blog, error) {
	const op = "storage/postgres/blogs/BlogByID"

	b, err := scanBlog(s.db.QueryRow(ctx, `SELECT `+blogColumns+` FROM blogs WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(op, err)
	}

	return b, nil
}

// CreateBlog вставляет блог с новым id.
func (s *Storage) CreateBlog(ctx context.Context, blog models.Blog) (*models.Blog, error) {
	const op = "storage/postgres/blogs/CreateBlog"

	q := `INSERT INTO blogs (id, title, content, owner) VALUES ($1, $2, $3, $4) RETURNING ` + blogColumns

	b, err := scanBlog(s.db.QueryRow(ctx, q, uuid.New(), blog.Title, blog.Content, blog.Owner))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return b, nil
}

// DeleteBlog удаляет блог по id.
func (s *Storage) DeleteBlog(ctx context.Context, id uuid.UUID) error {
	const op = "storage/postgres/blogs/DeleteBlog"

	tag, err := s.db.Exec(ctx, `DELETE FROM blogs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}
