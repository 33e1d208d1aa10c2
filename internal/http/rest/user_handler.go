package rest

import (
	"net/http"

	"github.com/bwise1/querydesk/internal/storage"
	"github.com/bwise1/querydesk/util"
	"github.com/bwise1/querydesk/util/tracing"
	"github.com/bwise1/querydesk/util/values"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

func (api *API) UserRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Method(http.MethodGet, "/{username}/queries", Handler(api.ListUserQueries))
	return mux
}

func (api *API) ListUserQueries(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracing.FromContext(r.Context())

	page, status, message, err := api.ListUserQueriesHelper(r.Context(), chi.URLParam(r, "username"), r.URL.Query().Get("page"))
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

// GetProfile returns the stored record of the authenticated user.
func (api *API) GetProfile(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracing.FromContext(r.Context())

	userID, err := util.GetUserIDFromContext(r.Context())
	if err != nil {
		return respondWithError(err, "not-authorized", values.NotAuthorised, &tc)
	}

	user, err := api.Deps.Store.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return respondWithError(err, "User not found", values.NotFound, &tc)
		}
		return respondWithError(err, "Error loading user", values.Error, &tc)
	}

	return &ServerResponse{
		Message:    "User profile retrieved successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       user,
	}
}
