package model

import (
	"time"

	"github.com/google/uuid"
)

type Query struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	QueryType      string    `json:"query_type"`
	AuthorID       uuid.UUID `json:"author_id"`
	AuthorUsername string    `json:"author_username"`
	DatePosted     time.Time `json:"date_posted"`
}

// QueryTypeLabel returns the display label of the query's category.
func (q Query) QueryTypeLabel() string {
	return QueryTypeLabel(q.QueryType)
}

type CreateQueryRequest struct {
	Title     string `json:"title" schema:"title" validate:"required,max=100"`
	Content   string `json:"content" schema:"content" validate:"required"`
	QueryType string `json:"query_type" schema:"query_type" validate:"required,querytype"`
}

// UpdateQueryRequest carries the editable fields. The category is fixed once
// the query is created.
type UpdateQueryRequest struct {
	Title   string `json:"title" schema:"title" validate:"required,max=100"`
	Content string `json:"content" schema:"content" validate:"required"`
}

type QueryDetail struct {
	Query    Query     `json:"query"`
	Comments []Comment `json:"comments"`
}

type QueryPage struct {
	Queries  []Query `json:"queries"`
	Page     int     `json:"page"`
	NumPages int     `json:"num_pages"`
	Total    int     `json:"total"`
	HasNext  bool    `json:"has_next"`
	HasPrev  bool    `json:"has_previous"`
}

type SearchRequest struct {
	Keywords  string `json:"keywords" schema:"keywords" url:"keywords,omitempty"`
	QueryType string `json:"query_type" schema:"query_type" url:"query_type,omitempty"`
}
