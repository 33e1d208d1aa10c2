package rest

import (
	"context"
	"strings"

	"github.com/bwise1/querydesk/internal/authz"
	"github.com/bwise1/querydesk/internal/model"
	"github.com/bwise1/querydesk/internal/storage"
	"github.com/bwise1/querydesk/util"
	"github.com/bwise1/querydesk/util/values"
	"github.com/pkg/errors"
)

var (
	errLoginRequired = errors.New("login required")
	errNotAuthor     = errors.New("only the author may change this query")
)

func (api *API) ListQueriesHelper(ctx context.Context, rawPage string) (model.QueryPage, string, string, error) {
	return api.pageOfQueries(ctx, storage.QueryFilter{}, rawPage)
}

func (api *API) ListUserQueriesHelper(ctx context.Context, username, rawPage string) (model.QueryPage, string, string, error) {
	user, err := api.Deps.Store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.QueryPage{}, values.NotFound, "User not found", err
		}
		return model.QueryPage{}, values.Error, "Error loading user", err
	}
	return api.pageOfQueries(ctx, storage.QueryFilter{AuthorID: user.ID}, rawPage)
}

func (api *API) pageOfQueries(ctx context.Context, filter storage.QueryFilter, rawPage string) (model.QueryPage, string, string, error) {
	total, err := api.Deps.Store.CountQueries(ctx, filter)
	if err != nil {
		return model.QueryPage{}, values.Error, "Error counting queries", err
	}

	page, err := storage.NewPage(rawPage, api.Config.PageSize, total)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidPage) {
			return model.QueryPage{}, values.NotFound, "Invalid page", err
		}
		return model.QueryPage{}, values.Error, "Error paginating queries", err
	}

	queries, err := api.Deps.Store.ListQueries(ctx, filter, page.Size, page.Offset())
	if err != nil {
		return model.QueryPage{}, values.Error, "Error listing queries", err
	}

	return model.QueryPage{
		Queries:  queries,
		Page:     page.Number,
		NumPages: page.NumPages,
		Total:    page.Total,
		HasNext:  page.HasNext(),
		HasPrev:  page.HasPrevious(),
	}, values.Success, "Queries retrieved successfully", nil
}

func (api *API) GetQueryHelper(ctx context.Context, id int64) (model.Query, string, string, error) {
	query, err := api.Deps.Store.GetQuery(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.Query{}, values.NotFound, "Query not found", err
		}
		return model.Query{}, values.Error, "Error loading query", err
	}
	return query, values.Success, "Query retrieved successfully", nil
}

func (api *API) GetQueryDetailHelper(ctx context.Context, id int64) (model.QueryDetail, string, string, error) {
	query, status, message, err := api.GetQueryHelper(ctx, id)
	if err != nil {
		return model.QueryDetail{}, status, message, err
	}

	comments, err := api.Deps.Store.ListComments(ctx, id)
	if err != nil {
		return model.QueryDetail{}, values.Error, "Error loading comments", err
	}

	return model.QueryDetail{Query: query, Comments: comments}, values.Success, "Query retrieved successfully", nil
}

func (api *API) CreateQueryHelper(ctx context.Context, user *model.User, req model.CreateQueryRequest) (model.Query, string, string, error) {
	if user == nil {
		return model.Query{}, values.NotAuthorised, "Login required", errLoginRequired
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	req.QueryType = strings.TrimSpace(req.QueryType)
	if err := util.ValidateStruct(req); err != nil {
		return model.Query{}, values.Unprocessable, "Invalid query", err
	}

	query, err := api.Deps.Store.CreateQuery(ctx, model.Query{
		Title:     req.Title,
		Content:   req.Content,
		QueryType: req.QueryType,
		AuthorID:  user.ID,
	})
	if err != nil {
		return model.Query{}, values.Error, "Error creating query", err
	}
	return query, values.Created, "Query created successfully", nil
}

// EditableQueryHelper loads a query the user is about to change: 404 when it
// is missing, 403 when the user is not its author.
func (api *API) EditableQueryHelper(ctx context.Context, user *model.User, id int64) (model.Query, string, string, error) {
	if user == nil {
		return model.Query{}, values.NotAuthorised, "Login required", errLoginRequired
	}

	query, status, message, err := api.GetQueryHelper(ctx, id)
	if err != nil {
		return model.Query{}, status, message, err
	}
	if !authz.CanModifyQuery(user, query) {
		return model.Query{}, values.NotAllowed, "You are not the author of this query", errNotAuthor
	}
	return query, values.Success, "", nil
}

func (api *API) UpdateQueryHelper(ctx context.Context, user *model.User, id int64, req model.UpdateQueryRequest) (model.Query, string, string, error) {
	query, status, message, err := api.EditableQueryHelper(ctx, user, id)
	if err != nil {
		return model.Query{}, status, message, err
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	if err := util.ValidateStruct(req); err != nil {
		return query, values.Unprocessable, "Invalid query", err
	}

	query.Title = req.Title
	query.Content = req.Content
	updated, err := api.Deps.Store.UpdateQuery(ctx, query)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.Query{}, values.NotFound, "Query not found", err
		}
		return model.Query{}, values.Error, "Error updating query", err
	}
	return updated, values.Success, "Query updated successfully", nil
}

func (api *API) DeleteQueryHelper(ctx context.Context, user *model.User, id int64) (string, string, error) {
	if _, status, message, err := api.EditableQueryHelper(ctx, user, id); err != nil {
		return status, message, err
	}

	if err := api.Deps.Store.DeleteQuery(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return values.NotFound, "Query not found", err
		}
		return values.Error, "Error deleting query", err
	}
	return values.Success, "Query deleted successfully", nil
}
