// Package authz holds the ownership rules for queries.
package authz

import (
	"github.com/bwise1/querydesk/internal/model"
	"github.com/google/uuid"
)

// CanModifyQuery reports whether user may update or delete query. Only the
// author may.
func CanModifyQuery(user *model.User, query model.Query) bool {
	if user == nil || user.ID == uuid.Nil {
		return false
	}
	return user.ID == query.AuthorID
}
