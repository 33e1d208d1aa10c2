package model

import (
	"time"

	"github.com/google/uuid"
)

type Comment struct {
	ID        int64     `json:"id"`
	QueryID   int64     `json:"query_id"`
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type CommentRequest struct {
	Content string `json:"content" schema:"content" validate:"required,max=1000"`
}
