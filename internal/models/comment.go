package models

import (
	"time"

	"github.com/google/uuid"
)

// PostComment — комментарий к посту (MongoDB).
// Важно:
//   - ID — ObjectID MongoDB в hex-представлении;
//   - PostID/Owner — UUID из PostgreSQL;
//   - Private — комментарий виден только владельцу и администраторам.
type PostComment struct {
	ID        string    `json:"id"`
	PostID    uuid.UUID `json:"postId"`
	Content   string    `json:"content"`
	Owner     uuid.UUID `json:"owner"`
	Private   bool      `json:"private"`
	CreatedAt time.Time `json:"createdAt"`
}

func (c PostComment) DocID() string { return c.ID }

func (c PostComment) Created() time.Time { return c.CreatedAt }

// CommentFilter — фильтр постраничной выдачи комментариев поста.
// Viewer/ViewerIsAdmin управляют видимостью приватных комментариев.
type CommentFilter struct {
	PostID        uuid.UUID
	SearchText    string
	Limit         int
	Skip          int
	Viewer        uuid.UUID
	ViewerIsAdmin bool
}
