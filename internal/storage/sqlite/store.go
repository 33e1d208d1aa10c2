// Package sqlite provides a SQLite-backed storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bwise1/querydesk/internal/model"
	"github.com/bwise1/querydesk/internal/storage"
	"github.com/bwise1/querydesk/internal/storage/sqlite/migrations"
	"github.com/bwise1/querydesk/util"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

func init() {
	if err := msqlite.RegisterDeterministicScalarFunction("casefold", 1, casefoldSQL); err != nil {
		panic(err)
	}
}

// casefoldSQL backs the casefold() SQL function. SQLite's own LIKE and
// LOWER only fold ASCII letters.
func casefoldSQL(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return casefold(v), nil
	case []byte:
		return casefold(string(v)), nil
	default:
		return v, nil
	}
}

func casefold(s string) string {
	return cases.Fold().String(s)
}

// Store persists application state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if !util.NotBlank(path) {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite db")
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "ping sqlite db")
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) CreateUser(ctx context.Context, user model.User) (model.User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Username = strings.TrimSpace(user.Username)
	user.Email = strings.TrimSpace(user.Email)
	if user.Username == "" {
		return model.User{}, fmt.Errorf("username is required")
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, auth_provider, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID.String(), user.Username, user.Email, user.PasswordHash, user.AuthProvider, toMillis(user.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, storage.ErrAlreadyExists
		}
		return model.User{}, errors.Wrap(err, "create user")
	}
	user.CreatedAt = fromMillis(toMillis(user.CreatedAt))
	return user, nil
}

const userColumns = `id, username, email, password_hash, auth_provider, created_at`

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id.String())
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (s *Store) getUser(ctx context.Context, stmt string, arg any) (model.User, error) {
	var (
		user      model.User
		id        string
		createdAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx, stmt, arg).Scan(
		&id, &user.Username, &user.Email, &user.PasswordHash, &user.AuthProvider, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, storage.ErrNotFound
		}
		return model.User{}, errors.Wrap(err, "get user")
	}
	if user.ID, err = uuid.Parse(id); err != nil {
		return model.User{}, errors.Wrap(err, "parse user id")
	}
	user.CreatedAt = fromMillis(createdAt)
	return user, nil
}

func (s *Store) CreateQuery(ctx context.Context, query model.Query) (model.Query, error) {
	if query.DatePosted.IsZero() {
		query.DatePosted = time.Now().UTC()
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO queries (title, content, query_type, author_id, date_posted)
		 VALUES (?, ?, ?, ?, ?)`,
		query.Title, query.Content, query.QueryType, query.AuthorID.String(), toMillis(query.DatePosted),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.Query{}, storage.ErrNotFound
		}
		return model.Query{}, errors.Wrap(err, "create query")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Query{}, errors.Wrap(err, "create query")
	}
	return s.GetQuery(ctx, id)
}

const querySelect = `SELECT q.id, q.title, q.content, q.query_type, q.author_id, u.username, q.date_posted
	FROM queries q
	JOIN users u ON u.id = q.author_id`

func (s *Store) GetQuery(ctx context.Context, id int64) (model.Query, error) {
	row := s.sqlDB.QueryRowContext(ctx, querySelect+` WHERE q.id = ?`, id)
	query, err := scanQuery(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Query{}, storage.ErrNotFound
		}
		return model.Query{}, errors.Wrap(err, "get query")
	}
	return query, nil
}

func (s *Store) UpdateQuery(ctx context.Context, query model.Query) (model.Query, error) {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE queries SET title = ?, content = ? WHERE id = ?`,
		query.Title, query.Content, query.ID,
	)
	if err != nil {
		return model.Query{}, errors.Wrap(err, "update query")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.Query{}, storage.ErrNotFound
	}
	return s.GetQuery(ctx, query.ID)
}

func (s *Store) DeleteQuery(ctx context.Context, id int64) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM queries WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "delete query")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) ListQueries(ctx context.Context, filter storage.QueryFilter, limit, offset int) ([]model.Query, error) {
	where, args := filterClause(filter)
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	rows, err := s.sqlDB.QueryContext(ctx,
		querySelect+where+` ORDER BY q.date_posted DESC, q.id DESC LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list queries")
	}
	defer rows.Close()

	queries := []model.Query{}
	for rows.Next() {
		query, err := scanQuery(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan query")
		}
		queries = append(queries, query)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list queries")
	}
	return queries, nil
}

func (s *Store) CountQueries(ctx context.Context, filter storage.QueryFilter) (int, error) {
	where, args := filterClause(filter)
	var count int
	err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(1) FROM queries q`+where, args...).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "count queries")
	}
	return count, nil
}

func (s *Store) CreateComment(ctx context.Context, comment model.Comment) (model.Comment, error) {
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return model.Comment{}, errors.Wrap(err, "begin comment transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM queries WHERE id = ?`, comment.QueryID).Scan(&exists)
	if err != nil {
		return model.Comment{}, errors.Wrap(err, "check query")
	}
	if exists == 0 {
		return model.Comment{}, storage.ErrNotFound
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO comments (query_id, user_id, content, created_at) VALUES (?, ?, ?, ?)`,
		comment.QueryID, comment.UserID.String(), comment.Content, toMillis(comment.CreatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.Comment{}, storage.ErrNotFound
		}
		return model.Comment{}, errors.Wrap(err, "create comment")
	}
	if comment.ID, err = res.LastInsertId(); err != nil {
		return model.Comment{}, errors.Wrap(err, "create comment")
	}

	err = tx.QueryRowContext(ctx, `SELECT username FROM users WHERE id = ?`, comment.UserID.String()).Scan(&comment.Username)
	if err != nil {
		return model.Comment{}, errors.Wrap(err, "load comment author")
	}
	if err := tx.Commit(); err != nil {
		return model.Comment{}, errors.Wrap(err, "commit comment")
	}
	comment.CreatedAt = fromMillis(toMillis(comment.CreatedAt))
	return comment, nil
}

func (s *Store) ListComments(ctx context.Context, queryID int64) ([]model.Comment, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT c.id, c.query_id, c.user_id, u.username, c.content, c.created_at
		   FROM comments c
		   JOIN users u ON u.id = c.user_id
		  WHERE c.query_id = ?
		  ORDER BY c.id DESC`,
		queryID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list comments")
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var (
			comment   model.Comment
			userID    string
			createdAt int64
		)
		if err := rows.Scan(&comment.ID, &comment.QueryID, &userID, &comment.Username, &comment.Content, &createdAt); err != nil {
			return nil, errors.Wrap(err, "scan comment")
		}
		if comment.UserID, err = uuid.Parse(userID); err != nil {
			return nil, errors.Wrap(err, "parse comment user id")
		}
		comment.CreatedAt = fromMillis(createdAt)
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list comments")
	}
	return comments, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuery(row rowScanner) (model.Query, error) {
	var (
		query      model.Query
		authorID   string
		datePosted int64
	)
	if err := row.Scan(&query.ID, &query.Title, &query.Content, &query.QueryType, &authorID, &query.AuthorUsername, &datePosted); err != nil {
		return model.Query{}, err
	}
	id, err := uuid.Parse(authorID)
	if err != nil {
		return model.Query{}, err
	}
	query.AuthorID = id
	query.DatePosted = fromMillis(datePosted)
	return query, nil
}

// filterClause renders filter as a WHERE clause over the queries table
// aliased q. Text comparisons run on casefold() of both sides.
func filterClause(filter storage.QueryFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.AuthorID != uuid.Nil {
		conds = append(conds, `q.author_id = ?`)
		args = append(args, filter.AuthorID.String())
	}
	if filter.TitleContains != "" {
		conds = append(conds, `casefold(q.title) LIKE '%' || ? || '%' ESCAPE '\'`)
		args = append(args, storage.EscapeLike(casefold(filter.TitleContains)))
	}
	if filter.ContentContains != "" {
		conds = append(conds, `casefold(q.content) LIKE '%' || ? || '%' ESCAPE '\'`)
		args = append(args, storage.EscapeLike(casefold(filter.ContentContains)))
	}
	if filter.AnyContains != "" {
		conds = append(conds, `(casefold(q.title) LIKE '%' || ? || '%' ESCAPE '\' OR casefold(q.content) LIKE '%' || ? || '%' ESCAPE '\')`)
		escaped := storage.EscapeLike(casefold(filter.AnyContains))
		args = append(args, escaped, escaped)
	}
	if filter.QueryType != "" {
		conds = append(conds, `casefold(q.query_type) = ?`)
		args = append(args, casefold(filter.QueryType))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}

var _ storage.Store = (*Store)(nil)
