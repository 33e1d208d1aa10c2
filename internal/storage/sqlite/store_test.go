package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/bwise1/querydesk/internal/model"
	"github.com/bwise1/querydesk/internal/storage"
	"github.com/google/uuid"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "querydesk.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func createUser(t *testing.T, store *Store, username string) model.User {
	t.Helper()

	user, err := store.CreateUser(context.Background(), model.User{
		Username:     username,
		Email:        username + "@example.com",
		AuthProvider: model.AuthProviderPassword,
	})
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func createQuery(t *testing.T, store *Store, author model.User, title, content, queryType string, posted time.Time) model.Query {
	t.Helper()

	query, err := store.CreateQuery(context.Background(), model.Query{
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

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "querydesk.db")
	first, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	_ = first.Close()

	second, err := Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	_ = second.Close()
}

func TestUserRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	hash := "hash"
	created, err := store.CreateUser(ctx, model.User{
		Username:     "ada",
		Email:        "ada@example.com",
		PasswordHash: &hash,
		AuthProvider: model.AuthProviderPassword,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatal("expected generated user id")
	}

	byName, err := store.GetUserByUsername(ctx, "ada")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if byName.ID != created.ID {
		t.Fatalf("id = %v, want %v", byName.ID, created.ID)
	}
	if byName.PasswordHash == nil || *byName.PasswordHash != "hash" {
		t.Fatalf("password hash = %v, want %q", byName.PasswordHash, "hash")
	}

	byID, err := store.GetUserByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID.Username != "ada" {
		t.Fatalf("username = %q, want %q", byID.Username, "ada")
	}

	byEmail, err := store.GetUserByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail.ID != created.ID {
		t.Fatalf("id = %v, want %v", byEmail.ID, created.ID)
	}
}

func TestCreateUserRejectsDuplicates(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	createUser(t, store, "ada")

	_, err := store.CreateUser(context.Background(), model.User{Username: "ada", Email: "other@example.com", AuthProvider: model.AuthProviderPassword})
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("duplicate username error = %v, want %v", err, storage.ErrAlreadyExists)
	}

	_, err = store.CreateUser(context.Background(), model.User{Username: "grace", Email: "ada@example.com", AuthProvider: model.AuthProviderPassword})
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("duplicate email error = %v, want %v", err, storage.ErrAlreadyExists)
	}
}

func TestGetUserNotFound(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if _, err := store.GetUserByUsername(context.Background(), "nobody"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestQueryLifecycle(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	author := createUser(t, store, "ada")
	posted := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	query := createQuery(t, store, author, "How do I reset?", "Forgot my password", "account", posted)
	if query.ID == 0 {
		t.Fatal("expected query id")
	}
	if query.AuthorUsername != "ada" {
		t.Fatalf("author username = %q, want %q", query.AuthorUsername, "ada")
	}
	if !query.DatePosted.Equal(posted) {
		t.Fatalf("date posted = %v, want %v", query.DatePosted, posted)
	}

	query.Title = "How do I reset my password?"
	query.Content = "Updated"
	query.QueryType = "billing"
	updated, err := store.UpdateQuery(ctx, query)
	if err != nil {
		t.Fatalf("update query: %v", err)
	}
	if updated.Title != "How do I reset my password?" || updated.Content != "Updated" {
		t.Fatalf("update not applied: %+v", updated)
	}
	if updated.QueryType != "account" {
		t.Fatalf("query type = %q, want unchanged %q", updated.QueryType, "account")
	}

	if err := store.DeleteQuery(ctx, query.ID); err != nil {
		t.Fatalf("delete query: %v", err)
	}
	if _, err := store.GetQuery(ctx, query.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get after delete error = %v, want %v", err, storage.ErrNotFound)
	}
	if err := store.DeleteQuery(ctx, query.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second delete error = %v, want %v", err, storage.ErrNotFound)
	}
	if _, err := store.UpdateQuery(ctx, query); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("update after delete error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestListQueriesOrderAndPaging(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	ada := createUser(t, store, "ada")
	grace := createUser(t, store, "grace")
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 7; i++ {
		author := ada
		if i%2 == 1 {
			author = grace
		}
		createQuery(t, store, author, "q"+string(rune('a'+i)), "body", "general", base.Add(time.Duration(i)*time.Hour))
	}

	firstPage, err := store.ListQueries(ctx, storage.QueryFilter{}, 5, 0)
	if err != nil {
		t.Fatalf("list queries: %v", err)
	}
	if len(firstPage) != 5 {
		t.Fatalf("len = %d, want 5", len(firstPage))
	}
	for i := 1; i < len(firstPage); i++ {
		if firstPage[i].DatePosted.After(firstPage[i-1].DatePosted) {
			t.Fatalf("listing not newest first at %d", i)
		}
	}
	if firstPage[0].Title != "qg" {
		t.Fatalf("first title = %q, want %q", firstPage[0].Title, "qg")
	}

	secondPage, err := store.ListQueries(ctx, storage.QueryFilter{}, 5, 5)
	if err != nil {
		t.Fatalf("list second page: %v", err)
	}
	if len(secondPage) != 2 {
		t.Fatalf("second page len = %d, want 2", len(secondPage))
	}

	all, err := store.ListQueries(ctx, storage.QueryFilter{}, 0, 0)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 7 {
		t.Fatalf("unbounded len = %d, want 7", len(all))
	}

	graceQueries, err := store.ListQueries(ctx, storage.QueryFilter{AuthorID: grace.ID}, 0, 0)
	if err != nil {
		t.Fatalf("list by author: %v", err)
	}
	if len(graceQueries) != 3 {
		t.Fatalf("grace queries = %d, want 3", len(graceQueries))
	}
	for _, q := range graceQueries {
		if q.AuthorID != grace.ID {
			t.Fatalf("query %d has author %v, want %v", q.ID, q.AuthorID, grace.ID)
		}
	}

	count, err := store.CountQueries(ctx, storage.QueryFilter{AuthorID: ada.ID})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 4 {
		t.Fatalf("ada count = %d, want 4", count)
	}
}

func TestQueryFilters(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	ada := createUser(t, store, "ada")
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	createQuery(t, store, ada, "FOO in title", "nothing here", "technical", base)
	createQuery(t, store, ada, "plain title", "content mentions foo", "general", base.Add(time.Hour))
	createQuery(t, store, ada, "100% sure", "literal percent", "General", base.Add(2*time.Hour))
	createQuery(t, store, ada, "Ürün iade", "ÉCOLE fermée", "other", base.Add(3*time.Hour))

	testCases := []struct {
		name   string
		filter storage.QueryFilter
		want   int
	}{
		{"title case-insensitive", storage.QueryFilter{TitleContains: "foo"}, 1},
		{"content", storage.QueryFilter{ContentContains: "FOO"}, 1},
		{"any", storage.QueryFilter{AnyContains: "foo"}, 2},
		{"query type exact case-insensitive", storage.QueryFilter{QueryType: "GENERAL"}, 2},
		{"query type is not substring", storage.QueryFilter{QueryType: "gen"}, 0},
		{"combined", storage.QueryFilter{AnyContains: "foo", QueryType: "technical"}, 1},
		{"percent is literal", storage.QueryFilter{TitleContains: "0%"}, 1},
		{"underscore is literal", storage.QueryFilter{TitleContains: "_"}, 0},
		{"non-ascii title", storage.QueryFilter{TitleContains: "ürün"}, 1},
		{"non-ascii any", storage.QueryFilter{AnyContains: "ÜRÜN"}, 1},
		{"folded content", storage.QueryFilter{ContentContains: "école FERMÉE"}, 1},
		{"query type folds", storage.QueryFilter{QueryType: "OTHER"}, 1},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := store.ListQueries(ctx, tc.filter, 0, 0)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(got) != tc.want {
				t.Fatalf("len = %d, want %d", len(got), tc.want)
			}
			count, err := store.CountQueries(ctx, tc.filter)
			if err != nil {
				t.Fatalf("count: %v", err)
			}
			if count != tc.want {
				t.Fatalf("count = %d, want %d", count, tc.want)
			}
		})
	}
}

func TestComments(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	ada := createUser(t, store, "ada")
	grace := createUser(t, store, "grace")
	query := createQuery(t, store, ada, "title", "content", "general", time.Time{})

	first, err := store.CreateComment(ctx, model.Comment{QueryID: query.ID, UserID: grace.ID, Content: "first"})
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}
	if first.Username != "grace" {
		t.Fatalf("username = %q, want %q", first.Username, "grace")
	}
	if _, err := store.CreateComment(ctx, model.Comment{QueryID: query.ID, UserID: ada.ID, Content: "second"}); err != nil {
		t.Fatalf("create second comment: %v", err)
	}

	comments, err := store.ListComments(ctx, query.ID)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("len = %d, want 2", len(comments))
	}
	if comments[0].Content != "second" || comments[1].Content != "first" {
		t.Fatalf("comments not newest first: %+v", comments)
	}

	if _, err := store.CreateComment(ctx, model.Comment{QueryID: query.ID + 100, UserID: ada.ID, Content: "orphan"}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("orphan comment error = %v, want %v", err, storage.ErrNotFound)
	}
	if _, err := store.CreateComment(ctx, model.Comment{QueryID: query.ID, UserID: uuid.New(), Content: "ghost"}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("unknown user comment error = %v, want %v", err, storage.ErrNotFound)
	}

	if err := store.DeleteQuery(ctx, query.ID); err != nil {
		t.Fatalf("delete query: %v", err)
	}
	comments, err = store.ListComments(ctx, query.ID)
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(comments) != 0 {
		t.Fatalf("comments survived query delete: %d", len(comments))
	}
}

func TestApplyMigrationsRecordsFiles(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	migrationFS := fstest.MapFS{
		"100_extra.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE extra (id INTEGER);\n-- +migrate Down\nDROP TABLE extra;\n")},
	}
	ctx := context.Background()
	if err := applyMigrations(ctx, store.sqlDB, migrationFS); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := applyMigrations(ctx, store.sqlDB, migrationFS); err != nil {
		t.Fatalf("reapply: %v", err)
	}

	var count int
	if err := store.sqlDB.QueryRow(`SELECT COUNT(1) FROM schema_migrations WHERE name = ?`, "100_extra.sql").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 1 {
		t.Fatalf("migration recorded %d times, want 1", count)
	}
}

func TestExtractUpMigration(t *testing.T) {
	t.Parallel()

	got := extractUpMigration("-- +migrate Up\nCREATE;\n-- +migrate Down\nDROP;\n")
	if got != "\nCREATE;\n" {
		t.Fatalf("extractUpMigration = %q", got)
	}
	if got := extractUpMigration("SELECT 1;"); got != "SELECT 1;" {
		t.Fatalf("extractUpMigration without markers = %q", got)
	}
}
