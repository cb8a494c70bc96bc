package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-blog-forum/internal/models"
	"github.com/pribylovaa/go-blog-forum/internal/storage"
)

// Юнит-тесты SQL-хранилища поверх pgxmock: проверяют текст запросов,
// порядок аргументов и трансляцию ошибок pgx в storage.Err*.

func newMock(t *testing.T) (*Storage, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})

	return NewWithPool(mock), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

var ts = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func TestListBlogs(t *testing.T) {
	s, mock := newMock(t)
	id1, id2, owner := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery(q(`SELECT id, title, content, owner, created_at FROM blogs ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`)).
		WithArgs(5, 10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "content", "owner", "created_at"}).
			AddRow(id1, "second", "b", owner, ts.Add(time.Hour)).
			AddRow(id2, "first", "a", owner, ts))

	got, err := s.ListBlogs(context.Background(), 5, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, id1, got[0].ID)
	require.Equal(t, "first", got[1].Title)
}

func TestListBlogs_QueryError(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(q(`FROM blogs`)).WithArgs(5, 0).WillReturnError(errors.New("conn reset"))

	_, err := s.ListBlogs(context.Background(), 5, 0)
	require.ErrorContains(t, err, "storage/postgres/blogs/ListBlogs")
}

func TestCountBlogs(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(q(`SELECT count(*) FROM blogs`)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(17)))

	n, err := s.CountBlogs(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(17), n)
}

func TestBlogByID_NotFound(t *testing.T) {
	s, mock := newMock(t)
	id := uuid.New()

	mock.ExpectQuery(q(`FROM blogs WHERE id = $1`)).WithArgs(id).WillReturnError(pgx.ErrNoRows)

	_, err := s.BlogByID(context.Background(), id)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCreateBlog(t *testing.T) {
	s, mock := newMock(t)
	id, owner := uuid.New(), uuid.New()

	mock.ExpectQuery(q(`INSERT INTO blogs (id, title, content, owner) VALUES ($1, $2, $3, $4) RETURNING id, title, content, owner, created_at`)).
		WithArgs(pgxmock.AnyArg(), "t", "c", owner).
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "content", "owner", "created_at"}).
			AddRow(id, "t", "c", owner, ts))

	b, err := s.CreateBlog(context.Background(), models.Blog{Title: "t", Content: "c", Owner: owner})
	require.NoError(t, err)
	require.Equal(t, id, b.ID)
	require.Equal(t, ts, b.CreatedAt)
}

func TestDeleteBlog(t *testing.T) {
	s, mock := newMock(t)
	id := uuid.New()

	mock.ExpectExec(q(`DELETE FROM blogs WHERE id = $1`)).WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, s.DeleteBlog(context.Background(), id))

	mock.ExpectExec(q(`DELETE FROM blogs WHERE id = $1`)).WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.ErrorIs(t, s.DeleteBlog(context.Background(), id), storage.ErrNotFound)
}

func TestPostByID(t *testing.T) {
	s, mock := newMock(t)
	id, owner := uuid.New(), uuid.New()

	mock.ExpectQuery(q(`SELECT id, title, content, owner, image_keys, created_at FROM posts WHERE id = $1`)).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "content", "owner", "image_keys", "created_at"}).
			AddRow(id, "p", "body", owner, []string{"images/a.png"}, ts))

	p, err := s.PostByID(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, []string{"images/a.png"}, p.ImageKeys)

	mock.ExpectQuery(q(`FROM posts WHERE id = $1`)).WithArgs(id).WillReturnError(pgx.ErrNoRows)
	_, err = s.PostByID(context.Background(), id)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCreateUser_UniqueViolation(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(q(`INSERT INTO users (id, username, email, password_hash, roles)`)).
		WithArgs(pgxmock.AnyArg(), "bob", "bob@example.com", "hash", []string{}).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

	_, err := s.CreateUser(context.Background(), models.User{Username: "bob", Email: "Bob@Example.com", PasswordHash: "hash"})
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestUserByEmail(t *testing.T) {
	s, mock := newMock(t)
	id := uuid.New()

	mock.ExpectQuery(q(`SELECT id, username, email, password_hash, roles, created_at FROM users WHERE email = $1`)).
		WithArgs("bob@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "email", "password_hash", "roles", "created_at"}).
			AddRow(id, "bob", "bob@example.com", "hash", []string{models.RoleAdmin}, ts))

	u, err := s.UserByEmail(context.Background(), "BOB@example.com")
	require.NoError(t, err)
	require.True(t, u.HasRole(models.RoleAdmin))
}

func TestUpdatePasswordHash_NotFound(t *testing.T) {
	s, mock := newMock(t)
	id := uuid.New()

	mock.ExpectExec(q(`UPDATE users SET password_hash = $2 WHERE id = $1`)).
		WithArgs(id, "new").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.ErrorIs(t, s.UpdatePasswordHash(context.Background(), id, "new"), storage.ErrNotFound)
}

func TestUpdateProfile_PartialSets(t *testing.T) {
	s, mock := newMock(t)
	id := uuid.New()
	country, bio := "NL", "hi"

	mock.ExpectQuery(q(`UPDATE profiles SET updated_at = now(), country = $2, bio = $3 WHERE user_id = $1 RETURNING `+profileColumns)).
		WithArgs(id, country, bio).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "username", "country", "bio", "avatar_key", "avatar_url", "created_at", "updated_at"}).
			AddRow(id, "bob", country, bio, "", "", ts, ts.Add(time.Minute)))

	p, err := s.UpdateProfile(context.Background(), id, models.ProfileUpdate{Country: &country, Bio: &bio})
	require.NoError(t, err)
	require.Equal(t, "NL", p.Country)
	require.Equal(t, ts.Add(time.Minute), p.UpdatedAt)
}

func TestUpdateAvatar_NotFound(t *testing.T) {
	s, mock := newMock(t)
	id := uuid.New()

	mock.ExpectQuery(q(`UPDATE profiles SET avatar_key = $2, avatar_url = $3`)).
		WithArgs(id, "avatars/k.png", "http://cdn/k.png").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.UpdateAvatar(context.Background(), id, "avatars/k.png", "http://cdn/k.png")
	require.ErrorIs(t, err, storage.ErrNotFound)
}
