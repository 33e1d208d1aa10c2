package rest

import (
	"fmt"
	"net/http"

	"github.com/bwise1/querydesk/internal/authz"
	"github.com/bwise1/querydesk/internal/model"
	"github.com/bwise1/querydesk/util"
	"github.com/bwise1/querydesk/util/values"
	"github.com/go-chi/chi/v5"
)

func (api *API) PageRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Get("/", api.HomePage)
	mux.Get("/about", api.AboutPage)
	mux.Get("/search", api.SearchPage)
	mux.Get("/user/{username}", api.UserQueriesPage)

	mux.Get("/query/{id}", api.QueryDetailPage)
	mux.Post("/query/{id}", api.AddCommentPage)
	mux.Get("/query/{id}/ws", api.CommentFeedSocket)

	mux.Group(func(r chi.Router) {
		r.Use(api.requireLoginPage)
		r.Get("/query/new", api.CreateQueryPage)
		r.Post("/query/new", api.CreateQueryPage)
		r.Get("/query/{id}/update", api.UpdateQueryPage)
		r.Post("/query/{id}/update", api.UpdateQueryPage)
		r.Get("/query/{id}/delete", api.DeleteQueryPage)
		r.Post("/query/{id}/delete", api.DeleteQueryPage)
	})

	mux.Get("/register", api.RegisterPage)
	mux.Post("/register", api.RegisterPage)
	mux.Get("/login", api.LoginPage)
	mux.Post("/login", api.LoginPage)
	mux.Post("/logout", api.LogoutPage)
	return mux
}

func queryURL(id int64) string {
	return fmt.Sprintf("/query/%d", id)
}

// decodeForm parses the posted form into dst.
func (api *API) decodeForm(r *http.Request, dst interface{}) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	return api.forms.Decode(dst, r.PostForm)
}

// pageError renders the failure of a helper as the matching HTML response.
func (api *API) pageError(w http.ResponseWriter, r *http.Request, status string, err error) {
	switch status {
	case values.NotFound:
		notFound(w)
	case values.NotAllowed:
		forbidden(w)
	case values.NotAuthorised:
		redirectToLogin(w, r)
	case values.BadRequestBody:
		clientError(w, http.StatusBadRequest)
	default:
		api.serverError(w, r, err)
	}
}

func pageLinks(data *HTMLData, path string, page model.QueryPage) {
	data.Page = &page
	data.Queries = page.Queries
	data.FirstURL = util.PageURL(path, util.PageParams{Page: 1})
	data.PrevURL = util.PageURL(path, util.PageParams{Page: page.Page - 1})
	data.NextURL = util.PageURL(path, util.PageParams{Page: page.Page + 1})
	data.LastURL = util.PageURL(path, util.PageParams{Page: page.NumPages})
}

func (api *API) HomePage(w http.ResponseWriter, r *http.Request) {
	page, status, _, err := api.ListQueriesHelper(r.Context(), r.URL.Query().Get("page"))
	if err != nil {
		api.pageError(w, r, status, err)
		return
	}

	data := &HTMLData{Title: "Home"}
	pageLinks(data, "/", page)
	api.render(w, r, http.StatusOK, "index.html", data)
}

func (api *API) UserQueriesPage(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	page, status, _, err := api.ListUserQueriesHelper(r.Context(), username, r.URL.Query().Get("page"))
	if err != nil {
		api.pageError(w, r, status, err)
		return
	}

	data := &HTMLData{Title: username, Username: username}
	pageLinks(data, "/user/"+username, page)
	api.render(w, r, http.StatusOK, "user_queries.html", data)
}

func (api *API) QueryDetailPage(w http.ResponseWriter, r *http.Request) {
	id, err := queryIDParam(r)
	if err != nil {
		notFound(w)
		return
	}
	api.renderDetail(w, r, id, nil, nil)
}

func (api *API) renderDetail(w http.ResponseWriter, r *http.Request, id int64, form, formErrors map[string]string) {
	detail, status, _, err := api.GetQueryDetailHelper(r.Context(), id)
	if err != nil {
		api.pageError(w, r, status, err)
		return
	}

	user := util.UserFromContext(r.Context())
	api.render(w, r, http.StatusOK, "query_detail.html", &HTMLData{
		Title:      detail.Query.Title,
		Query:      &detail.Query,
		CanModify:  authz.CanModifyQuery(user, detail.Query),
		Comments:   detail.Comments,
		FormData:   form,
		FormErrors: formErrors,
	})
}

// AddCommentPage stores a comment and redirects back to the query. An
// invalid comment re-renders the page with its errors.
func (api *API) AddCommentPage(w http.ResponseWriter, r *http.Request) {
	id, err := queryIDParam(r)
	if err != nil {
		notFound(w)
		return
	}

	user := util.UserFromContext(r.Context())
	if user == nil {
		redirectToLogin(w, r)
		return
	}

	var req model.CommentRequest
	if err := api.decodeForm(r, &req); err != nil {
		clientError(w, http.StatusBadRequest)
		return
	}

	_, status, _, err := api.AddCommentHelper(r.Context(), user, id, req)
	if err != nil {
		if status == values.Unprocessable {
			api.renderDetail(w, r, id, map[string]string{"content": req.Content}, fieldErrors(err))
			return
		}
		api.pageError(w, r, status, err)
		return
	}

	http.Redirect(w, r, queryURL(id), http.StatusFound)
}

func (api *API) CommentFeedSocket(w http.ResponseWriter, r *http.Request) {
	id, err := queryIDParam(r)
	if err != nil {
		notFound(w)
		return
	}
	if _, status, _, err := api.GetQueryHelper(r.Context(), id); err != nil {
		api.pageError(w, r, status, err)
		return
	}
	api.Deps.Feed.HandleConnections(w, r, id)
}

func (api *API) CreateQueryPage(w http.ResponseWriter, r *http.Request) {
	data := &HTMLData{
		Title:      "New Query",
		FormAction: "/query/new",
		QueryTypes: model.QueryTypes,
	}

	if r.Method != http.MethodPost {
		api.render(w, r, http.StatusOK, "query_form.html", data)
		return
	}

	var req model.CreateQueryRequest
	if err := api.decodeForm(r, &req); err != nil {
		clientError(w, http.StatusBadRequest)
		return
	}

	query, status, _, err := api.CreateQueryHelper(r.Context(), util.UserFromContext(r.Context()), req)
	if err != nil {
		if status == values.Unprocessable {
			data.FormData = map[string]string{"title": req.Title, "content": req.Content, "query_type": req.QueryType}
			data.FormErrors = fieldErrors(err)
			api.render(w, r, http.StatusOK, "query_form.html", data)
			return
		}
		api.pageError(w, r, status, err)
		return
	}

	http.Redirect(w, r, queryURL(query.ID), http.StatusFound)
}

func (api *API) UpdateQueryPage(w http.ResponseWriter, r *http.Request) {
	id, err := queryIDParam(r)
	if err != nil {
		notFound(w)
		return
	}
	user := util.UserFromContext(r.Context())

	query, status, _, err := api.EditableQueryHelper(r.Context(), user, id)
	if err != nil {
		api.pageError(w, r, status, err)
		return
	}

	data := &HTMLData{
		Title:      "Update Query",
		Query:      &query,
		FormAction: queryURL(id) + "/update",
		FormData:   map[string]string{"title": query.Title, "content": query.Content},
	}

	if r.Method != http.MethodPost {
		api.render(w, r, http.StatusOK, "query_form.html", data)
		return
	}

	var req model.UpdateQueryRequest
	if err := api.decodeForm(r, &req); err != nil {
		clientError(w, http.StatusBadRequest)
		return
	}

	if _, status, _, err := api.UpdateQueryHelper(r.Context(), user, id, req); err != nil {
		if status == values.Unprocessable {
			data.FormData = map[string]string{"title": req.Title, "content": req.Content}
			data.FormErrors = fieldErrors(err)
			api.render(w, r, http.StatusOK, "query_form.html", data)
			return
		}
		api.pageError(w, r, status, err)
		return
	}

	http.Redirect(w, r, queryURL(id), http.StatusFound)
}

// DeleteQueryPage asks for confirmation on GET and deletes on POST.
func (api *API) DeleteQueryPage(w http.ResponseWriter, r *http.Request) {
	id, err := queryIDParam(r)
	if err != nil {
		notFound(w)
		return
	}
	user := util.UserFromContext(r.Context())

	if r.Method != http.MethodPost {
		query, status, _, err := api.EditableQueryHelper(r.Context(), user, id)
		if err != nil {
			api.pageError(w, r, status, err)
			return
		}
		api.render(w, r, http.StatusOK, "query_confirm_delete.html", &HTMLData{Title: "Delete Query", Query: &query})
		return
	}

	if status, _, err := api.DeleteQueryHelper(r.Context(), user, id); err != nil {
		api.pageError(w, r, status, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

func (api *API) AboutPage(w http.ResponseWriter, r *http.Request) {
	api.render(w, r, http.StatusOK, "about.html", &HTMLData{Title: "About", QueryTypes: model.QueryTypes})
}

func (api *API) SearchPage(w http.ResponseWriter, r *http.Request) {
	var req model.SearchRequest
	if err := api.forms.Decode(&req, r.URL.Query()); err != nil {
		clientError(w, http.StatusBadRequest)
		return
	}

	queries, status, _, err := api.SearchQueriesHelper(r.Context(), req)
	if err != nil {
		api.pageError(w, r, status, err)
		return
	}

	q := r.URL.Query()
	api.render(w, r, http.StatusOK, "search.html", &HTMLData{
		Title:      "Search",
		Queries:    queries,
		QueryTypes: model.QueryTypes,
		Values:     req,
		Searched:   q.Has("keywords") || q.Has("query_type"),
	})
}

func (api *API) RegisterPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.render(w, r, http.StatusOK, "register.html", &HTMLData{Title: "Register"})
		return
	}

	var req model.RegisterRequest
	if err := api.decodeForm(r, &req); err != nil {
		clientError(w, http.StatusBadRequest)
		return
	}

	resp, status, message, err := api.RegisterUserHelper(r.Context(), req)
	if err != nil {
		if status == values.Unprocessable || status == values.Conflict {
			api.render(w, r, http.StatusOK, "register.html", &HTMLData{
				Title:      "Register",
				FormData:   map[string]string{"username": req.Username, "email": req.Email},
				FormErrors: fieldErrors(err),
				FormError:  message,
			})
			return
		}
		api.pageError(w, r, status, err)
		return
	}

	api.setSession(w, resp.Token)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (api *API) LoginPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.render(w, r, http.StatusOK, "login.html", &HTMLData{Title: "Login", Next: r.URL.Query().Get("next")})
		return
	}

	var req model.LoginRequest
	if err := api.decodeForm(r, &req); err != nil {
		clientError(w, http.StatusBadRequest)
		return
	}

	resp, status, _, err := api.LoginUserHelper(r.Context(), req)
	if err != nil {
		if status == values.Unprocessable || status == values.NotAuthorised {
			data := &HTMLData{
				Title:      "Login",
				Next:       req.Next,
				FormData:   map[string]string{"username": req.Username},
				FormErrors: fieldErrors(err),
			}
			if status == values.NotAuthorised {
				data.FormError = "Please enter a correct username and password."
			}
			api.render(w, r, http.StatusOK, "login.html", data)
			return
		}
		api.pageError(w, r, status, err)
		return
	}

	api.setSession(w, resp.Token)
	http.Redirect(w, r, util.SafeRedirect(req.Next, "/"), http.StatusFound)
}

func (api *API) LogoutPage(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   api.Config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusFound)
}

func (api *API) setSession(w http.ResponseWriter, token string) {
	maxAge := 0
	if ttl, err := api.Config.TokenTTL(); err == nil {
		maxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   api.Config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
