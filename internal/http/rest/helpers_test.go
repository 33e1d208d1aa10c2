package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bwise1/querydesk/config"
	deps "github.com/bwise1/querydesk/internal/debs"
	"github.com/bwise1/querydesk/internal/model"
	"github.com/bwise1/querydesk/internal/storage/sqlite"
	"github.com/bwise1/querydesk/util/websockets"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "correct-horse-battery"

var baseTime = time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC)

func newTestAPI(t *testing.T, mutate ...func(*config.Config)) *API {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "rest.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	cfg := &config.Config{
		StoreDriver:       config.DriverSQLite,
		JwtSecret:         "test-secret",
		JwtExpires:        "1h",
		PageSize:          5,
		SearchKeywordMode: config.KeywordModeTitle,
		ServiceName:       "querydesk-test",
	}
	for _, fn := range mutate {
		fn(cfg)
	}

	feed := websockets.NewCommentFeed()
	go feed.Run()

	d := &deps.Dependencies{Store: store, Feed: feed}
	t.Cleanup(func() { _ = d.Close() })

	api := &API{Config: cfg, Deps: d, BcryptCost: bcrypt.MinCost}
	if err := api.Init(); err != nil {
		t.Fatalf("init api: %v", err)
	}
	return api
}

func seedUser(t *testing.T, api *API, username string) model.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	hashed := string(hash)
	user, err := api.Deps.Store.CreateUser(context.Background(), model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: &hashed,
		AuthProvider: model.AuthProviderPassword,
	})
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func seedQuery(t *testing.T, api *API, author model.User, title, content, queryType string, posted time.Time) model.Query {
	t.Helper()

	query, err := api.Deps.Store.CreateQuery(context.Background(), model.Query{
		Title:      title,
		Content:    content,
		QueryType:  queryType,
		AuthorID:   author.ID,
		DatePosted: posted,
	})
	if err != nil {
		t.Fatalf("create query %q: %v", title, err)
	}
	return query
}

func tokenFor(t *testing.T, api *API, user model.User) string {
	t.Helper()

	token, _, err := api.createToken(user.ID.String())
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	return token
}

type requestOption func(*http.Request)

func asUser(token string) requestOption {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	}
}

func withBearer(token string) requestOption {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func serve(t *testing.T, api *API, method, target string, body io.Reader, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, body)
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	api.Routes().ServeHTTP(rec, req)
	return rec
}

func postForm(t *testing.T, api *API, target string, form url.Values, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()

	opts = append([]requestOption{func(r *http.Request) {
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}}, opts...)
	return serve(t, api, http.MethodPost, target, strings.NewReader(form.Encode()), opts...)
}

func sendJSON(t *testing.T, api *API, method, target string, payload interface{}, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = strings.NewReader(string(raw))
	}
	opts = append([]requestOption{func(r *http.Request) {
		r.Header.Set("Content-Type", "application/json")
	}}, opts...)
	return serve(t, api, method, target, body, opts...)
}

type envelope struct {
	Message string            `json:"message"`
	Status  string            `json:"status"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope %q: %v", rec.Body.String(), err)
	}
	if data != nil {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data %q: %v", string(env.Data), err)
		}
	}
	return env
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, want, rec.Body.String())
	}
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	assertStatus(t, rec, http.StatusFound)
	if got := rec.Header().Get("Location"); got != want {
		t.Fatalf("Location = %q, want %q", got, want)
	}
}

// assertOrder fails unless every item appears in body, in the given order.
func assertOrder(t *testing.T, body string, items ...string) {
	t.Helper()
	last := -1
	for _, item := range items {
		idx := strings.Index(body, item)
		if idx < 0 {
			t.Fatalf("body does not contain %q", item)
		}
		if idx < last {
			t.Fatalf("%q appears out of order", item)
		}
		last = idx
	}
}

func commentRequest(content string) model.CommentRequest {
	return model.CommentRequest{Content: content}
}

func queryPath(id int64, suffix string) string {
	return fmt.Sprintf("/query/%d%s", id, suffix)
}
