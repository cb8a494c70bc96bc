// Package storage описывает контракты хранилищ forum-service и общие ошибки.
// Реализации: postgres (блоги, посты, пользователи, профили),
// mongo (комментарии к постам), minio (аватары и изображения).
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-blog-forum/internal/models"
)

var (
	// ErrNotFound — сущность отсутствует в хранилище.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — конфликт уникальности.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidArgument — хранилище отвергло входные данные.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Blogs — записи ленты блога.
type Blogs interface {
	// ListBlogs возвращает страницу блогов, сначала новые (created_at DESC).
	ListBlogs(ctx context.Context, limit, skip int) ([]models.Blog, error)
	// CountBlogs — общее число блогов.
	CountBlogs(ctx context.Context) (int64, error)
	// BlogByID возвращает блог; ErrNotFound, если записи нет.
	BlogByID(ctx context.Context, id uuid.UUID) (*models.Blog, error)
	// CreateBlog вставляет блог; ID и CreatedAt заполняет хранилище.
	CreateBlog(ctx context.Context, blog models.Blog) (*models.Blog, error)
	// DeleteBlog удаляет блог; ErrNotFound, если записи нет.
	DeleteBlog(ctx context.Context, id uuid.UUID) error
}

// Posts — посты форума.
type Posts interface {
	// PostByID возвращает пост; ErrNotFound, если записи нет.
	PostByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	// ListPosts возвращает страницу постов, сначала новые.
	ListPosts(ctx context.Context, limit, skip int) ([]models.Post, error)
	// CreatePost вставляет пост; ID и CreatedAt заполняет хранилище.
	CreatePost(ctx context.Context, post models.Post) (*models.Post, error)
}

// Comments — комментарии к постам.
type Comments interface {
	// CreateComment вставляет комментарий; ID и CreatedAt заполняет хранилище.
	CreateComment(ctx context.Context, comment models.PostComment) (*models.PostComment, error)
	// CommentByID возвращает комментарий; ErrNotFound, если записи нет
	// или id не является валидным ObjectID.
	CommentByID(ctx context.Context, id string) (*models.PostComment, error)
	// DeleteComment удаляет комментарий; ErrNotFound, если записи нет.
	DeleteComment(ctx context.Context, id string) error
	// SetPrivate меняет флаг приватности и возвращает обновлённый комментарий.
	SetPrivate(ctx context.Context, id string, private bool) (*models.PostComment, error)
	// ListComments возвращает страницу комментариев поста, сначала новые.
	// SearchText — регистронезависимый поиск подстроки в content.
	// Приватные чужие комментарии видны только администраторам.
	ListComments(ctx context.Context, filter models.CommentFilter) ([]models.PostComment, error)
	// CountComments — число комментариев под тем же фильтром (без Limit/Skip).
	CountComments(ctx context.Context, filter models.CommentFilter) (int64, error)
}

// Users — учётные записи.
type Users interface {
	// CreateUser вставляет пользователя; ErrAlreadyExists при занятом email/username.
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	// UserByEmail возвращает пользователя; ErrNotFound, если записи нет.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID возвращает пользователя; ErrNotFound, если записи нет.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// UpdatePasswordHash меняет хэш пароля; ErrNotFound, если записи нет.
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

// Profiles — профили пользователей.
type Profiles interface {
	// CreateProfile вставляет профиль; ErrAlreadyExists при повторе.
	CreateProfile(ctx context.Context, profile models.Profile) (*models.Profile, error)
	// ProfileByID возвращает профиль; ErrNotFound, если записи нет.
	ProfileByID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	// UpdateProfile применяет частичное обновление; пустое обновление сдвигает только updated_at.
	UpdateProfile(ctx context.Context, userID uuid.UUID, update models.ProfileUpdate) (*models.Profile, error)
	// UpdateAvatar фиксирует ключ и публичный URL аватара.
	UpdateAvatar(ctx context.Context, userID uuid.UUID, key, url string) (*models.Profile, error)
}

// Objects — объектное хранилище.
type Objects interface {
	// AvatarUploadURL выдаёт presigned PUT URL для загрузки аватара.
	// ErrInvalidArgument при недопустимом типе или размере.
	AvatarUploadURL(ctx context.Context, userID uuid.UUID, contentType string, size int64) (*models.UploadInfo, error)
	// CheckAvatarUpload подтверждает факт загрузки и возвращает публичный URL.
	// ErrNotFound, если объекта нет; ErrInvalidArgument, если ключ чужой или объект не проходит ограничения.
	CheckAvatarUpload(ctx context.Context, userID uuid.UUID, key string) (string, error)
	// ListImages возвращает изображения галереи, сначала новые.
	ListImages(ctx context.Context, limit int) ([]models.Image, error)
}
