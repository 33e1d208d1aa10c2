// Package postgres provides a PostgreSQL-backed storage implementation on top
// of the pgx pool in internal/db.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwise1/querydesk/internal/db"
	"github.com/bwise1/querydesk/internal/model"
	"github.com/bwise1/querydesk/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type Store struct {
	db *db.DB
}

// Open connects to dsn and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	database, err := db.New(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, errors.Wrap(err, "migrate postgres")
	}
	return &Store{db: database}, nil
}

// New wraps an already connected database.
func New(database *db.DB) *Store {
	return &Store{db: database}
}

func (s *Store) Close() error {
	s.db.Close()
	return nil
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

	stmt := `
        INSERT INTO users (id, username, email, password_hash, auth_provider, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	_, err := s.db.Pool().Exec(ctx, stmt, user.ID, user.Username, user.Email, user.PasswordHash, user.AuthProvider, user.CreatedAt)
	if err != nil {
		if pgCode(err) == uniqueViolation {
			return model.User{}, storage.ErrAlreadyExists
		}
		return model.User{}, errors.Wrap(err, "create user")
	}
	return user, nil
}

const userColumns = `id, username, email, password_hash, auth_provider, created_at`

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (s *Store) getUser(ctx context.Context, stmt string, arg any) (model.User, error) {
	var user model.User
	err := s.db.Pool().QueryRow(ctx, stmt, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.AuthProvider,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, storage.ErrNotFound
		}
		return model.User{}, errors.Wrap(err, "get user")
	}
	return user, nil
}

func (s *Store) CreateQuery(ctx context.Context, query model.Query) (model.Query, error) {
	if query.DatePosted.IsZero() {
		query.DatePosted = time.Now().UTC()
	}
	stmt := `
        INSERT INTO queries (title, content, query_type, author_id, date_posted)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `
	var id int64
	err := s.db.Pool().QueryRow(ctx, stmt, query.Title, query.Content, query.QueryType, query.AuthorID, query.DatePosted).Scan(&id)
	if err != nil {
		if pgCode(err) == foreignKeyViolation {
			return model.Query{}, storage.ErrNotFound
		}
		return model.Query{}, errors.Wrap(err, "create query")
	}
	return s.GetQuery(ctx, id)
}

const querySelect = `SELECT q.id, q.title, q.content, q.query_type, q.author_id, u.username, q.date_posted
    FROM queries q
    JOIN users u ON u.id = q.author_id`

func (s *Store) GetQuery(ctx context.Context, id int64) (model.Query, error) {
	query, err := scanQuery(s.db.Pool().QueryRow(ctx, querySelect+` WHERE q.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Query{}, storage.ErrNotFound
		}
		return model.Query{}, errors.Wrap(err, "get query")
	}
	return query, nil
}

func (s *Store) UpdateQuery(ctx context.Context, query model.Query) (model.Query, error) {
	tag, err := s.db.Pool().Exec(ctx, `UPDATE queries SET title = $2, content = $3 WHERE id = $1`, query.ID, query.Title, query.Content)
	if err != nil {
		return model.Query{}, errors.Wrap(err, "update query")
	}
	if tag.RowsAffected() == 0 {
		return model.Query{}, storage.ErrNotFound
	}
	return s.GetQuery(ctx, query.ID)
}

func (s *Store) DeleteQuery(ctx context.Context, id int64) error {
	tag, err := s.db.Pool().Exec(ctx, `DELETE FROM queries WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete query")
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) ListQueries(ctx context.Context, filter storage.QueryFilter, limit, offset int) ([]model.Query, error) {
	where, args := filterClause(filter)
	stmt := querySelect + where + ` ORDER BY q.date_posted DESC, q.id DESC`
	if limit > 0 {
		args = append(args, limit)
		stmt += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		stmt += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.db.Pool().Query(ctx, stmt, args...)
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
	if err := s.db.Pool().QueryRow(ctx, `SELECT COUNT(1) FROM queries q`+where, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "count queries")
	}
	return count, nil
}

func (s *Store) CreateComment(ctx context.Context, comment model.Comment) (model.Comment, error) {
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}

	err := s.db.RunInTx(ctx, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM queries WHERE id = $1)`, comment.QueryID).Scan(&exists); err != nil {
			return errors.Wrap(err, "check query")
		}
		if !exists {
			return storage.ErrNotFound
		}

		stmt := `
            INSERT INTO comments (query_id, user_id, content, created_at)
            VALUES ($1, $2, $3, $4)
            RETURNING id
        `
		if err := tx.QueryRow(ctx, stmt, comment.QueryID, comment.UserID, comment.Content, comment.CreatedAt).Scan(&comment.ID); err != nil {
			if pgCode(err) == foreignKeyViolation {
				return storage.ErrNotFound
			}
			return errors.Wrap(err, "create comment")
		}

		if err := tx.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, comment.UserID).Scan(&comment.Username); err != nil {
			return errors.Wrap(err, "load comment author")
		}
		return nil
	})
	if err != nil {
		return model.Comment{}, err
	}
	return comment, nil
}

func (s *Store) ListComments(ctx context.Context, queryID int64) ([]model.Comment, error) {
	stmt := `
        SELECT c.id, c.query_id, c.user_id, u.username, c.content, c.created_at
          FROM comments c
          JOIN users u ON u.id = c.user_id
         WHERE c.query_id = $1
         ORDER BY c.id DESC
    `
	rows, err := s.db.Pool().Query(ctx, stmt, queryID)
	if err != nil {
		return nil, errors.Wrap(err, "list comments")
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var comment model.Comment
		if err := rows.Scan(&comment.ID, &comment.QueryID, &comment.UserID, &comment.Username, &comment.Content, &comment.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan comment")
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list comments")
	}
	return comments, nil
}

func scanQuery(row pgx.Row) (model.Query, error) {
	var query model.Query
	err := row.Scan(
		&query.ID,
		&query.Title,
		&query.Content,
		&query.QueryType,
		&query.AuthorID,
		&query.AuthorUsername,
		&query.DatePosted,
	)
	return query, err
}

// filterClause renders filter as a WHERE clause with numbered placeholders.
func filterClause(filter storage.QueryFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	contains := func(column, value string) string {
		return fmt.Sprintf(`%s ILIKE '%%' || %s::text || '%%' ESCAPE '\'`, column, next(storage.EscapeLike(value)))
	}

	if filter.AuthorID != uuid.Nil {
		conds = append(conds, `q.author_id = `+next(filter.AuthorID))
	}
	if filter.TitleContains != "" {
		conds = append(conds, contains("q.title", filter.TitleContains))
	}
	if filter.ContentContains != "" {
		conds = append(conds, contains("q.content", filter.ContentContains))
	}
	if filter.AnyContains != "" {
		conds = append(conds, "("+contains("q.title", filter.AnyContains)+" OR "+contains("q.content", filter.AnyContains)+")")
	}
	if filter.QueryType != "" {
		conds = append(conds, `LOWER(q.query_type) = LOWER(`+next(filter.QueryType)+`)`)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

var _ storage.Store = (*Store)(nil)
