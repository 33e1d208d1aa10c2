package rest

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/bwise1/querydesk/config"
	"github.com/bwise1/querydesk/internal/model"
	"github.com/bwise1/querydesk/util/values"
)

func TestAPIListQueries(t *testing.T) {
	api := newTestAPI(t)
	ada := seedUser(t, api, "ada")
	for i := 1; i <= 6; i++ {
		seedQuery(t, api, ada, fmt.Sprintf("Query %d", i), "body", "general", baseTime.Add(time.Duration(i)*time.Minute))
	}

	rec := serve(t, api, http.MethodGet, "/api/v1/queries", nil)
	assertStatus(t, rec, http.StatusOK)

	var page model.QueryPage
	env := decodeEnvelope(t, rec, &page)
	if env.Status != values.Success {
		t.Fatalf("status = %q, want %q", env.Status, values.Success)
	}
	if len(page.Queries) != 5 || page.Total != 6 || page.NumPages != 2 || !page.HasNext || page.HasPrev {
		t.Fatalf("page = %+v", page)
	}
	if page.Queries[0].Title != "Query 6" {
		t.Fatalf("first query = %q, want %q", page.Queries[0].Title, "Query 6")
	}

	rec = serve(t, api, http.MethodGet, "/api/v1/queries?page=9", nil)
	assertStatus(t, rec, http.StatusNotFound)
}

func TestAPIQueryLifecycle(t *testing.T) {
	api := newTestAPI(t)
	ada := seedUser(t, api, "ada")
	grace := seedUser(t, api, "grace")
	adaToken := tokenFor(t, api, ada)
	graceToken := tokenFor(t, api, grace)

	payload := model.CreateQueryRequest{Title: "API title", Content: "API content", QueryType: "billing"}

	rec := sendJSON(t, api, http.MethodPost, "/api/v1/queries", payload)
	assertStatus(t, rec, http.StatusUnauthorized)

	rec = sendJSON(t, api, http.MethodPost, "/api/v1/queries", model.CreateQueryRequest{Content: "x", QueryType: "billing"}, withBearer(adaToken))
	assertStatus(t, rec, http.StatusUnprocessableEntity)
	if env := decodeEnvelope(t, rec, nil); env.Errors["title"] == "" {
		t.Fatalf("missing title error: %+v", env)
	}

	rec = sendJSON(t, api, http.MethodPost, "/api/v1/queries", payload, withBearer(adaToken))
	assertStatus(t, rec, http.StatusCreated)
	var created model.Query
	decodeEnvelope(t, rec, &created)
	if created.AuthorID != ada.ID || created.AuthorUsername != "ada" {
		t.Fatalf("created = %+v", created)
	}
	path := fmt.Sprintf("/api/v1/queries/%d", created.ID)

	update := model.UpdateQueryRequest{Title: "Edited", Content: "Edited content"}
	rec = sendJSON(t, api, http.MethodPut, path, update, withBearer(graceToken))
	assertStatus(t, rec, http.StatusForbidden)
	rec = sendJSON(t, api, http.MethodDelete, path, nil, withBearer(graceToken))
	assertStatus(t, rec, http.StatusForbidden)

	rec = sendJSON(t, api, http.MethodPut, path, update, withBearer(adaToken))
	assertStatus(t, rec, http.StatusOK)
	var updated model.Query
	decodeEnvelope(t, rec, &updated)
	if updated.Title != "Edited" || updated.QueryType != "billing" {
		t.Fatalf("updated = %+v", updated)
	}

	rec = serve(t, api, http.MethodGet, path, nil)
	assertStatus(t, rec, http.StatusOK)
	var detail model.QueryDetail
	decodeEnvelope(t, rec, &detail)
	if detail.Query.ID != created.ID || len(detail.Comments) != 0 {
		t.Fatalf("detail = %+v", detail)
	}

	rec = sendJSON(t, api, http.MethodDelete, path, nil, withBearer(adaToken))
	assertStatus(t, rec, http.StatusOK)
	rec = serve(t, api, http.MethodGet, path, nil)
	assertStatus(t, rec, http.StatusNotFound)
}

func TestAPIComments(t *testing.T) {
	api := newTestAPI(t)
	ada := seedUser(t, api, "ada")
	grace := seedUser(t, api, "grace")
	query := seedQuery(t, api, ada, "Title", "Content", "general", baseTime)
	path := fmt.Sprintf("/api/v1/queries/%d/comments", query.ID)

	rec := sendJSON(t, api, http.MethodPost, path, model.CommentRequest{Content: "hi"})
	assertStatus(t, rec, http.StatusUnauthorized)

	rec = sendJSON(t, api, http.MethodPost, path, model.CommentRequest{Content: ""}, withBearer(tokenFor(t, api, grace)))
	assertStatus(t, rec, http.StatusUnprocessableEntity)
	if env := decodeEnvelope(t, rec, nil); env.Errors["content"] != "This field is required." {
		t.Fatalf("errors = %+v", env.Errors)
	}

	rec = sendJSON(t, api, http.MethodPost, path, model.CommentRequest{Content: "first"}, withBearer(tokenFor(t, api, grace)))
	assertStatus(t, rec, http.StatusCreated)
	rec = sendJSON(t, api, http.MethodPost, path, model.CommentRequest{Content: "second"}, withBearer(tokenFor(t, api, ada)))
	assertStatus(t, rec, http.StatusCreated)

	rec = serve(t, api, http.MethodGet, path, nil)
	assertStatus(t, rec, http.StatusOK)
	var comments []model.Comment
	decodeEnvelope(t, rec, &comments)
	if len(comments) != 2 || comments[0].Content != "second" || comments[1].Username != "grace" {
		t.Fatalf("comments = %+v", comments)
	}

	rec = serve(t, api, http.MethodGet, "/api/v1/queries/404/comments", nil)
	assertStatus(t, rec, http.StatusNotFound)
}

func TestAPIUserQueries(t *testing.T) {
	api := newTestAPI(t)
	ada := seedUser(t, api, "ada")
	grace := seedUser(t, api, "grace")
	seedQuery(t, api, ada, "Ada's", "body", "general", baseTime)
	seedQuery(t, api, grace, "Grace's", "body", "general", baseTime)

	rec := serve(t, api, http.MethodGet, "/api/v1/users/grace/queries", nil)
	assertStatus(t, rec, http.StatusOK)
	var page model.QueryPage
	decodeEnvelope(t, rec, &page)
	if len(page.Queries) != 1 || page.Queries[0].AuthorID != grace.ID {
		t.Fatalf("page = %+v", page)
	}

	rec = serve(t, api, http.MethodGet, "/api/v1/users/nobody/queries", nil)
	assertStatus(t, rec, http.StatusNotFound)
}

func TestAPISearch(t *testing.T) {
	seed := func(t *testing.T, api *API) {
		ada := seedUser(t, api, "ada")
		seedQuery(t, api, ada, "Printer jammed", "The tray is stuck", "technical", baseTime)
		seedQuery(t, api, ada, "Invoice question", "Printer charge looks wrong", "billing", baseTime.Add(time.Minute))
		seedQuery(t, api, ada, "Password reset", "Cannot log in", "account", baseTime.Add(2*time.Minute))
	}

	tests := []struct {
		name   string
		mode   string
		target string
		want   []string
	}{
		{"no parameters", config.KeywordModeTitle, "/api/v1/search", []string{"Password reset", "Invoice question", "Printer jammed"}},
		{"title mode", config.KeywordModeTitle, "/api/v1/search?keywords=printer", []string{"Printer jammed"}},
		{"empty parameters ignored", config.KeywordModeTitle, "/api/v1/search?keywords=&query_type=", []string{"Password reset", "Invoice question", "Printer jammed"}},
		{"whitespace keywords match literally", config.KeywordModeTitle, "/api/v1/search?keywords=+++", nil},
		{"leading space is kept", config.KeywordModeTitle, "/api/v1/search?keywords=+jammed", []string{"Printer jammed"}},
		{"padded query type matches nothing", config.KeywordModeTitle, "/api/v1/search?query_type=+billing", nil},
		{"query type only", config.KeywordModeTitle, "/api/v1/search?query_type=billing", []string{"Invoice question"}},
		{"keywords and type", config.KeywordModeTitle, "/api/v1/search?keywords=printer&query_type=billing", nil},
		{"content wins when it matches", config.KeywordModeContentThenTitle, "/api/v1/search?keywords=printer", []string{"Invoice question"}},
		{"title fallback", config.KeywordModeContentThenTitle, "/api/v1/search?keywords=reset", []string{"Password reset"}},
		{"any field", config.KeywordModeAny, "/api/v1/search?keywords=printer", []string{"Invoice question", "Printer jammed"}},
		{"unknown parameters ignored", config.KeywordModeAny, "/api/v1/search?keywords=cannot&page=3", []string{"Password reset"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t, func(c *config.Config) { c.SearchKeywordMode = tt.mode })
			seed(t, api)

			rec := serve(t, api, http.MethodGet, tt.target, nil)
			assertStatus(t, rec, http.StatusOK)

			var queries []model.Query
			decodeEnvelope(t, rec, &queries)
			if len(queries) != len(tt.want) {
				t.Fatalf("got %d queries, want %d: %+v", len(queries), len(tt.want), queries)
			}
			for i, title := range tt.want {
				if queries[i].Title != title {
					t.Errorf("queries[%d] = %q, want %q", i, queries[i].Title, title)
				}
			}
		})
	}
}

func TestAPIProfile(t *testing.T) {
	api := newTestAPI(t)
	ada := seedUser(t, api, "ada")

	rec := serve(t, api, http.MethodGet, "/api/v1/me", nil)
	assertStatus(t, rec, http.StatusUnauthorized)

	rec = serve(t, api, http.MethodGet, "/api/v1/me", nil, withBearer(tokenFor(t, api, ada)))
	assertStatus(t, rec, http.StatusOK)
	var user model.User
	decodeEnvelope(t, rec, &user)
	if user.ID != ada.ID || user.Username != "ada" {
		t.Fatalf("user = %+v", user)
	}

	malformed, _, err := api.createToken("not-a-uuid")
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	rec = serve(t, api, http.MethodGet, "/api/v1/me", nil, withBearer(malformed))
	assertStatus(t, rec, http.StatusUnauthorized)
}

func TestRequestTracingEchoesRequestID(t *testing.T) {
	api := newTestAPI(t)

	rec := serve(t, api, http.MethodGet, "/api/v1/query-types", nil, func(r *http.Request) {
		r.Header.Set(values.HeaderRequestID, "req-123")
	})
	assertStatus(t, rec, http.StatusOK)
	if got := rec.Header().Get(values.HeaderRequestID); got != "req-123" {
		t.Fatalf("request id = %q, want %q", got, "req-123")
	}

	var types []model.QueryType
	decodeEnvelope(t, rec, &types)
	if len(types) != len(model.QueryTypes) {
		t.Fatalf("query types = %d, want %d", len(types), len(model.QueryTypes))
	}

	rec = serve(t, api, http.MethodGet, "/about", nil)
	if rec.Header().Get(values.HeaderRequestID) == "" {
		t.Fatal("expected a generated request id")
	}
}

func TestExpiredTokenIsRejected(t *testing.T) {
	api := newTestAPI(t, func(c *config.Config) { c.JwtExpires = "1ns" })
	ada := seedUser(t, api, "ada")
	token := tokenFor(t, api, ada)
	time.Sleep(1100 * time.Millisecond)

	if _, err := api.verifyToken(token); err == nil {
		t.Fatal("expected expired token error")
	}
	rec := serve(t, api, http.MethodGet, "/api/v1/me", nil, withBearer(token))
	assertStatus(t, rec, http.StatusUnauthorized)

	ctx := context.Background()
	if _, err := api.Deps.Store.GetUserByID(ctx, ada.ID); err != nil {
		t.Fatalf("user lookup: %v", err)
	}
}
