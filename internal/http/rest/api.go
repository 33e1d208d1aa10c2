package rest

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/bwise1/querydesk/config"
	deps "github.com/bwise1/querydesk/internal/debs"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	defaultIdleTimeout    = time.Minute
	defaultReadTimeout    = 5 * time.Second
	defaultWriteTimeout   = 10 * time.Second
	defaultShutdownPeriod = 30 * time.Second
)

type API struct {
	Server *http.Server
	Config *config.Config
	Deps   *deps.Dependencies

	// BcryptCost overrides bcrypt.DefaultCost when non-zero.
	BcryptCost int
	// GoogleUserInfoURL is where Google access tokens are exchanged for a
	// profile.
	GoogleUserInfoURL string

	templates map[string]*template.Template
	forms     *schema.Decoder
	oauth     *oauth2.Config
}

// Init prepares templates, form decoding and the Google OAuth client. It must
// run before Serve or Routes.
func (api *API) Init() error {
	templates, err := parseTemplates()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	api.templates = templates

	api.forms = schema.NewDecoder()
	api.forms.IgnoreUnknownKeys(true)

	api.oauth = &oauth2.Config{
		RedirectURL:  api.Config.GoogleRedirectURL,
		ClientID:     api.Config.GoogleClientID,
		ClientSecret: api.Config.GoogleClientSecret,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     google.Endpoint,
	}
	if api.GoogleUserInfoURL == "" {
		api.GoogleUserInfoURL = googleUserInfoURL
	}
	return nil
}

func (api *API) Serve() error {
	api.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", api.Config.Port),
		IdleTimeout:  defaultIdleTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		Handler:      otelhttp.NewHandler(api.Routes(), api.Config.ServiceName),
	}
	return api.Server.ListenAndServe()
}

// Routes returns the HTML site with the JSON API mounted under /api/v1.
func (api *API) Routes() http.Handler {
	mux := chi.NewRouter()
	mux.Use(RequestTracing)
	mux.Use(api.Authenticate)

	mux.Mount("/api/v1", api.APIRoutes())
	mux.Mount("/", api.PageRoutes())

	return mux
}

func (api *API) APIRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Mount("/auth", api.AuthRoutes())
	mux.Mount("/queries", api.QueryRoutes())
	mux.Mount("/users", api.UserRoutes())
	mux.Method(http.MethodGet, "/search", Handler(api.SearchQueries))
	mux.Method(http.MethodGet, "/query-types", Handler(api.ListQueryTypes))
	mux.With(api.RequireLogin).Method(http.MethodGet, "/me", Handler(api.GetProfile))

	return mux
}

func (api *API) Shutdown() error {
	if api.Server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownPeriod)
	defer cancel()

	return api.Server.Shutdown(ctx)
}
