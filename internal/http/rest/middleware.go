package rest

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/bwise1/querydesk/util"
	"github.com/bwise1/querydesk/util/tracing"
	"github.com/bwise1/querydesk/util/values"
	"github.com/lucsky/cuid"
)

const (
	sessionCookie        = "session"
	defaultRequestSource = "web"
)

// RequestTracing handles the request tracing context
func RequestTracing(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		requestSource := r.Header.Get(values.HeaderRequestSource)
		if requestSource == "" {
			requestSource = defaultRequestSource
		}

		requestID := r.Header.Get(values.HeaderRequestID)
		if requestID == "" {
			requestID = cuid.New()
		}
		w.Header().Set(values.HeaderRequestID, requestID)

		ctx := tracing.WithContext(r.Context(), tracing.Context{
			RequestID:     requestID,
			RequestSource: requestSource,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	}

	return http.HandlerFunc(fn)
}

// Authenticate resolves the session cookie or bearer token into the current
// user. Requests without a valid token continue anonymously.
func (api *API) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := api.verifyToken(token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := util.StringToUUID(claims.UserID)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		user, err := api.Deps.Store.GetUserByID(r.Context(), userID)
		if err != nil {
			tc := tracing.FromContext(r.Context())
			log.Printf("[%s] session user %s not loaded: %v", tc.RequestID, userID, err)
			next.ServeHTTP(w, r)
			return
		}

		ctx := util.WithUser(r.Context(), &user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireLogin rejects anonymous API requests with 401.
func (api *API) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if util.UserFromContext(r.Context()) == nil {
			writeErrorResponse(w, errors.New(values.NotAuthorised), values.NotAuthorised, "not-authorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireLoginPage sends anonymous browsers to the login page, remembering
// where they were going.
func (api *API) requireLoginPage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if util.UserFromContext(r.Context()) == nil {
			redirectToLogin(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
}

func tokenFromRequest(r *http.Request) string {
	authorization := strings.Split(r.Header.Get("Authorization"), " ")
	if len(authorization) == 2 && authorization[0] == "Bearer" {
		return authorization[1]
	}
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}
