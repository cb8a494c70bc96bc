package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// RoleAdmin — роль администратора.
const RoleAdmin = "admin"

// User — учётная запись.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
}

// HasRole сообщает, есть ли у пользователя роль.
func (u User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// Profile — профиль пользователя.
type Profile struct {
	UserID    uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Country   string    `json:"country"`
	Bio       string    `json:"bio"`
	AvatarKey string    `json:"avatarKey"`
	AvatarURL string    `json:"avatarUrl"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p Profile) DocID() string { return p.UserID.String() }

func (p Profile) Created() time.Time { return p.CreatedAt }

// ProfileUpdate — частичное обновление профиля (nil — поле не меняется).
type ProfileUpdate struct {
	Username *string `json:"username,omitempty"`
	Country  *string `json:"country,omitempty"`
	Bio      *string `json:"bio,omitempty"`
}

// Image — объект в бакете изображений.
type Image struct {
	Key         string    `json:"id"`
	URL         string    `json:"url"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (i Image) DocID() string { return i.Key }

func (i Image) Created() time.Time { return i.CreatedAt }

// UploadInfo — данные для прямой загрузки объекта по presigned URL.
type UploadInfo struct {
	UploadURL string            `json:"uploadUrl"`
	AvatarKey string            `json:"avatarKey"`
	ExpiresAt time.Time         `json:"expiresAt"`
	Headers   map[string]string `json:"headers"`
}
