package models

import (
	"time"

	"github.com/google/uuid"
)

// Blog — запись ленты блога (PostgreSQL).
type Blog struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Owner     uuid.UUID `json:"owner"`
	CreatedAt time.Time `json:"createdAt"`
}

// DocID возвращает идентификатор документа живой выборки.
func (b Blog) DocID() string { return b.ID.String() }

// Created возвращает время создания для сортировки.
func (b Blog) Created() time.Time { return b.CreatedAt }

// Post — пост форума (PostgreSQL).
// ImageKeys — ключи объектов в бакете изображений.
type Post struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Owner     uuid.UUID `json:"owner"`
	ImageKeys []string  `json:"imageKeys"`
	CreatedAt time.Time `json:"createdAt"`
}

func (p Post) DocID() string { return p.ID.String() }

func (p Post) Created() time.Time { return p.CreatedAt }
