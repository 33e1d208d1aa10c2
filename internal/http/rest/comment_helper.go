package rest

import (
	"context"
	"strings"

	"github.com/bwise1/querydesk/internal/model"
	"github.com/bwise1/querydesk/internal/storage"
	"github.com/bwise1/querydesk/util"
	"github.com/bwise1/querydesk/util/values"
	"github.com/bwise1/querydesk/util/websockets"
	"github.com/pkg/errors"
)

func (api *API) ListCommentsHelper(ctx context.Context, queryID int64) ([]model.Comment, string, string, error) {
	if _, status, message, err := api.GetQueryHelper(ctx, queryID); err != nil {
		return nil, status, message, err
	}

	comments, err := api.Deps.Store.ListComments(ctx, queryID)
	if err != nil {
		return nil, values.Error, "Error loading comments", err
	}
	return comments, values.Success, "Comments retrieved successfully", nil
}

// AddCommentHelper validates and stores a comment by user on the query, then
// notifies the query's live watchers. Nothing is stored when validation
// fails.
func (api *API) AddCommentHelper(ctx context.Context, user *model.User, queryID int64, req model.CommentRequest) (model.Comment, string, string, error) {
	if user == nil {
		return model.Comment{}, values.NotAuthorised, "Login required", errLoginRequired
	}
	if _, status, message, err := api.GetQueryHelper(ctx, queryID); err != nil {
		return model.Comment{}, status, message, err
	}

	req.Content = strings.TrimSpace(req.Content)
	if err := util.ValidateStruct(req); err != nil {
		return model.Comment{}, values.Unprocessable, "Invalid comment", err
	}

	comment, err := api.Deps.Store.CreateComment(ctx, model.Comment{
		QueryID: queryID,
		UserID:  user.ID,
		Content: req.Content,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.Comment{}, values.NotFound, "Query not found", err
		}
		return model.Comment{}, values.Error, "Error adding comment", err
	}

	if api.Deps.Feed != nil {
		api.Deps.Feed.Broadcast(queryID, websockets.MsgTypeCommentCreated, comment)
	}
	return comment, values.Created, "Comment added successfully", nil
}
