package rest

import (
	"bytes"
	"embed"
	"html/template"
	"log"
	"net/http"
	"runtime/debug"

	"github.com/bwise1/querydesk/internal/model"
	"github.com/bwise1/querydesk/util"
	"github.com/bwise1/querydesk/util/tracing"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageFiles = []string{
	"index.html",
	"user_queries.html",
	"query_detail.html",
	"query_form.html",
	"query_confirm_delete.html",
	"about.html",
	"search.html",
	"login.html",
	"register.html",
}

// HTMLData is everything a page template may read.
type HTMLData struct {
	Title       string
	Path        string
	CurrentUser *model.User

	Query     *model.Query
	CanModify bool
	Comments  []model.Comment
	Queries   []model.Query
	Page      *model.QueryPage
	Username  string
	PrevURL   string
	NextURL   string
	FirstURL  string
	LastURL   string

	QueryTypes []model.QueryType
	Values     model.SearchRequest
	Searched   bool

	// FormAction is the URL the page's form posts to.
	FormAction string
	FormData   map[string]string
	FormErrors map[string]string
	FormError  string
	Next       string
}

func parseTemplates() (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template, len(pageFiles))
	for _, page := range pageFiles {
		ts, err := template.New(page).Funcs(util.TemplateFuncs).ParseFS(templateFS, "templates/base.html", "templates/"+page)
		if err != nil {
			return nil, err
		}
		templates[page] = ts
	}
	return templates, nil
}

func (api *API) render(w http.ResponseWriter, r *http.Request, status int, page string, data *HTMLData) {
	if data == nil {
		data = &HTMLData{}
	}
	data.Path = r.URL.Path
	if data.CurrentUser == nil {
		data.CurrentUser = util.UserFromContext(r.Context())
	}

	ts, ok := api.templates[page]
	if !ok {
		api.serverError(w, r, errMissingTemplate(page))
		return
	}

	buf := new(bytes.Buffer)
	if err := ts.ExecuteTemplate(buf, "base", data); err != nil {
		api.serverError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type errMissingTemplate string

func (e errMissingTemplate) Error() string {
	return "template " + string(e) + " does not exist"
}

func (api *API) serverError(w http.ResponseWriter, r *http.Request, err error) {
	tc := tracing.FromContext(r.Context())
	log.Printf("[%s] %s\n%s", tc.RequestID, err.Error(), debug.Stack())
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func clientError(w http.ResponseWriter, status int) {
	http.Error(w, http.StatusText(status), status)
}

func notFound(w http.ResponseWriter) {
	clientError(w, http.StatusNotFound)
}

func forbidden(w http.ResponseWriter) {
	clientError(w, http.StatusForbidden)
}
