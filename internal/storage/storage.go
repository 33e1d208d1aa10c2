// Package storage defines persistence contracts for queries, comments and
// users.
package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/bwise1/querydesk/internal/model"
	"github.com/google/uuid"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New("record already exists")
)

// QueryFilter narrows a query listing. Zero fields are ignored and the
// remaining ones are AND-combined. The *Contains fields are case-insensitive
// substring matches; QueryType is a case-insensitive exact match.
type QueryFilter struct {
	AuthorID        uuid.UUID
	TitleContains   string
	ContentContains string
	// AnyContains matches title OR content.
	AnyContains string
	QueryType   string
}

type UserStore interface {
	CreateUser(ctx context.Context, user model.User) (model.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
}

// QueryStore persists queries. Listings are ordered newest first by
// date_posted, then by id.
type QueryStore interface {
	CreateQuery(ctx context.Context, query model.Query) (model.Query, error)
	GetQuery(ctx context.Context, id int64) (model.Query, error)
	// UpdateQuery writes title and content only.
	UpdateQuery(ctx context.Context, query model.Query) (model.Query, error)
	DeleteQuery(ctx context.Context, id int64) error
	// ListQueries returns at most limit queries after offset; limit <= 0
	// means no limit.
	ListQueries(ctx context.Context, filter QueryFilter, limit, offset int) ([]model.Query, error)
	CountQueries(ctx context.Context, filter QueryFilter) (int, error)
}

// CommentStore persists comments. Comments are listed newest first by id.
type CommentStore interface {
	CreateComment(ctx context.Context, comment model.Comment) (model.Comment, error)
	ListComments(ctx context.Context, queryID int64) ([]model.Comment, error)
}

type Store interface {
	UserStore
	QueryStore
	CommentStore
	Close() error
}

// EscapeLike escapes the LIKE wildcards in s using backslash as the escape
// character, so the value is matched literally.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
