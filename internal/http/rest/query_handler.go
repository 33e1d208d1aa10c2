package rest

import (
	"net/http"
	"strconv"

	"github.com/bwise1/querydesk/internal/model"
	"github.com/bwise1/querydesk/util"
	"github.com/bwise1/querydesk/util/tracing"
	"github.com/bwise1/querydesk/util/values"
	"github.com/go-chi/chi/v5"
)

func (api *API) QueryRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Method(http.MethodGet, "/", Handler(api.ListQueries))
	mux.With(api.RequireLogin).Method(http.MethodPost, "/", Handler(api.CreateQuery))
	mux.Method(http.MethodGet, "/{id}", Handler(api.GetQuery))
	mux.With(api.RequireLogin).Method(http.MethodPut, "/{id}", Handler(api.UpdateQuery))
	mux.With(api.RequireLogin).Method(http.MethodDelete, "/{id}", Handler(api.DeleteQuery))
	mux.Method(http.MethodGet, "/{id}/comments", Handler(api.ListComments))
	mux.With(api.RequireLogin).Method(http.MethodPost, "/{id}/comments", Handler(api.AddComment))
	return mux
}

func queryIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (api *API) ListQueries(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracing.FromContext(r.Context())

	page, status, message, err := api.ListQueriesHelper(r.Context(), r.URL.Query().Get("page"))
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       page,
	}
}

func (api *API) GetQuery(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracing.FromContext(r.Context())

	id, err := queryIDParam(r)
	if err != nil {
		return respondWithError(err, "Query not found", values.NotFound, &tc)
	}

	detail, status, message, err := api.GetQueryDetailHelper(r.Context(), id)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       detail,
	}
}

func (api *API) CreateQuery(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracing.FromContext(r.Context())

	var req model.CreateQueryRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}

	query, status, message, err := api.CreateQueryHelper(r.Context(), util.UserFromContext(r.Context()), req)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       query,
	}
}

func (api *API) UpdateQuery(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracing.FromContext(r.Context())

	id, err := queryIDParam(r)
	if err != nil {
		return respondWithError(err, "Query not found", values.NotFound, &tc)
	}

	var req model.UpdateQueryRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}

	query, status, message, err := api.UpdateQueryHelper(r.Context(), util.UserFromContext(r.Context()), id, req)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       query,
	}
}

func (api *API) DeleteQuery(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracing.FromContext(r.Context())

	id, err := queryIDParam(r)
	if err != nil {
		return respondWithError(err, "Query not found", values.NotFound, &tc)
	}

	status, message, err := api.DeleteQueryHelper(r.Context(), util.UserFromContext(r.Context()), id)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
	}
}

func (api *API) ListComments(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracing.FromContext(r.Context())

	id, err := queryIDParam(r)
	if err != nil {
		return respondWithError(err, "Query not found", values.NotFound, &tc)
	}

	comments, status, message, err := api.ListCommentsHelper(r.Context(), id)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       comments,
	}
}

func (api *API) AddComment(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracing.FromContext(r.Context())

	id, err := queryIDParam(r)
	if err != nil {
		return respondWithError(err, "Query not found", values.NotFound, &tc)
	}

	var req model.CommentRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}

	comment, status, message, err := api.AddCommentHelper(r.Context(), util.UserFromContext(r.Context()), id, req)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       comment,
	}
}

func (api *API) SearchQueries(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracing.FromContext(r.Context())

	var req model.SearchRequest
	if err := api.forms.Decode(&req, r.URL.Query()); err != nil {
		return respondWithError(err, "invalid search parameters", values.BadRequestBody, &tc)
	}

	queries, status, message, err := api.SearchQueriesHelper(r.Context(), req)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       queries,
	}
}

func (api *API) ListQueryTypes(_ http.ResponseWriter, _ *http.Request) *ServerResponse {
	return &ServerResponse{
		Message:    "Query types retrieved successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       model.QueryTypes,
	}
}
