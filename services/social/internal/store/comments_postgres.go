package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the comment tables. It is safe to run on every start.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS comments (
		id           text PRIMARY KEY,
		subject_type text NOT NULL,
		subject_id   text NOT NULL,
		parent_id    text REFERENCES comments(id) ON DELETE CASCADE,
		author_id    text NOT NULL,
		username     text NOT NULL,
		avatar_url   text NOT NULL DEFAULT '',
		body         text NOT NULL,
		status       text NOT NULL,
		edited       boolean NOT NULL DEFAULT false,
		created_at   timestamptz NOT NULL DEFAULT now(),
		updated_at   timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS comments_one_per_author
		ON comments (subject_type, subject_id, author_id) WHERE parent_id IS NULL`,
	`CREATE INDEX IF NOT EXISTS comments_subject_created
		ON comments (subject_type, subject_id, created_at DESC) WHERE parent_id IS NULL`,
	`CREATE INDEX IF NOT EXISTS comments_parent_created ON comments (parent_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS comment_likes (
		comment_id text NOT NULL REFERENCES comments(id) ON DELETE CASCADE,
		user_id    text NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (comment_id, user_id)
	)`,
}

const selectColumns = `c.id, c.subject_type, c.subject_id, COALESCE(c.parent_id, ''), c.author_id,
	c.username, c.avatar_url, c.body, c.status, c.edited, c.created_at, c.updated_at,
	COALESCE((SELECT array_agg(l.user_id ORDER BY l.created_at, l.user_id)
	          FROM comment_likes l WHERE l.comment_id = c.id), '{}'),
	(SELECT count(*) FROM comments r WHERE r.parent_id = c.id)`

// PostgresCommentStore persists comments in Postgres.
type PostgresCommentStore struct {
	pool *pgxpool.Pool
}

// NewPostgresCommentStore creates a store backed by Postgres.
func NewPostgresCommentStore(pool *pgxpool.Pool) *PostgresCommentStore {
	return &PostgresCommentStore{pool: pool}
}

func (s *PostgresCommentStore) UpsertComment(ctx context.Context, c Comment) (Comment, error) {
	const op = "store.UpsertComment"
	const q = `INSERT INTO comments AS c (id, subject_type, subject_id, author_id, username, avatar_url, body, status)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	           ON CONFLICT (subject_type, subject_id, author_id) WHERE parent_id IS NULL
	           DO UPDATE SET body = EXCLUDED.body, status = EXCLUDED.status,
	                         username = EXCLUDED.username, avatar_url = EXCLUDED.avatar_url,
	                         edited = true, updated_at = now()
	           RETURNING c.id`
	var id string
	err := s.pool.QueryRow(ctx, q, uuid.NewString(), c.SubjectType, c.SubjectID, c.AuthorID,
		c.Username, c.AvatarURL, c.Body, c.Status).Scan(&id)
	if err != nil {
		return Comment{}, fmt.Errorf("%s: %w", op, err)
	}
	return s.Get(ctx, c.Subject(), id)
}

func (s *PostgresCommentStore) CreateReply(ctx context.Context, c Comment) (Comment, error) {
	const op = "store.CreateReply"
	const q = `INSERT INTO comments (id, subject_type, subject_id, parent_id, author_id, username, avatar_url, body, status)
	           SELECT $1, p.subject_type, p.subject_id, p.id, $5, $6, $7, $8, $9
	           FROM comments p
	           WHERE p.id = $4 AND p.subject_type = $2 AND p.subject_id = $3 AND p.parent_id IS NULL
	           RETURNING id`
	var id string
	err := s.pool.QueryRow(ctx, q, uuid.NewString(), c.SubjectType, c.SubjectID, c.ParentID,
		c.AuthorID, c.Username, c.AvatarURL, c.Body, c.Status).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return Comment{}, ErrParentNotFound
	}
	if err != nil {
		return Comment{}, fmt.Errorf("%s: %w", op, err)
	}
	return s.Get(ctx, c.Subject(), id)
}

func (s *PostgresCommentStore) Get(ctx context.Context, subject Subject, id string) (Comment, error) {
	q := `SELECT ` + selectColumns + ` FROM comments c
	      WHERE c.id = $1 AND c.subject_type = $2 AND c.subject_id = $3`
	return s.one(ctx, "store.Get", q, id, subject.Type, subject.ID)
}

func (s *PostgresCommentStore) List(ctx context.Context, subject Subject, viewerID string) ([]Comment, error) {
	q := `SELECT ` + selectColumns + ` FROM comments c
	      WHERE c.subject_type = $1 AND c.subject_id = $2 AND c.parent_id IS NULL
	        AND (c.status = 'approved' OR ($3 <> '' AND c.author_id = $3))
	      ORDER BY c.created_at DESC, c.id DESC`
	return s.many(ctx, "store.List", q, subject.Type, subject.ID, viewerID)
}

func (s *PostgresCommentStore) ByAuthor(ctx context.Context, subject Subject, authorID string) (Comment, error) {
	q := `SELECT ` + selectColumns + ` FROM comments c
	      WHERE c.subject_type = $1 AND c.subject_id = $2 AND c.author_id = $3 AND c.parent_id IS NULL`
	return s.one(ctx, "store.ByAuthor", q, subject.Type, subject.ID, authorID)
}

func (s *PostgresCommentStore) Replies(ctx context.Context, subject Subject, parentID, viewerID string) ([]Comment, error) {
	const op = "store.Replies"
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM comments WHERE id = $1 AND subject_type = $2 AND subject_id = $3 AND parent_id IS NULL)`,
		parentID, subject.Type, subject.ID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return nil, ErrParentNotFound
	}
	q := `SELECT ` + selectColumns + ` FROM comments c
	      WHERE c.parent_id = $1 AND (c.status = 'approved' OR ($2 <> '' AND c.author_id = $2))
	      ORDER BY c.created_at ASC, c.id ASC`
	return s.many(ctx, op, q, parentID, viewerID)
}

func (s *PostgresCommentStore) SetLike(ctx context.Context, subject Subject, id, userID string, liked bool) error {
	const op = "store.SetLike"
	var q string
	if liked {
		q = `INSERT INTO comment_likes (comment_id, user_id)
		     SELECT c.id, $4 FROM comments c WHERE c.id = $1 AND c.subject_type = $2 AND c.subject_id = $3
		     ON CONFLICT (comment_id, user_id) DO NOTHING`
	} else {
		q = `DELETE FROM comment_likes l USING comments c
		     WHERE l.comment_id = c.id AND c.id = $1 AND c.subject_type = $2 AND c.subject_id = $3 AND l.user_id = $4`
	}
	if _, err := s.pool.Exec(ctx, q, id, subject.Type, subject.ID, userID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	// both statements are idempotent, so a zero row count does not tell a
	// missing comment apart from a repeated toggle
	if _, err := s.Get(ctx, subject, id); err != nil {
		return err
	}
	return nil
}

func (s *PostgresCommentStore) Delete(ctx context.Context, subject Subject, id string) error {
	const op = "store.Delete"
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM comments WHERE id = $1 AND subject_type = $2 AND subject_id = $3`,
		id, subject.Type, subject.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresCommentStore) one(ctx context.Context, op, q string, args ...any) (Comment, error) {
	c, err := scanComment(s.pool.QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Comment{}, ErrNotFound
	}
	if err != nil {
		return Comment{}, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func (s *PostgresCommentStore) many(ctx context.Context, op, q string, args ...any) ([]Comment, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := []Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func scanComment(row pgx.Row) (Comment, error) {
	var c Comment
	err := row.Scan(&c.ID, &c.SubjectType, &c.SubjectID, &c.ParentID, &c.AuthorID,
		&c.Username, &c.AvatarURL, &c.Body, &c.Status, &c.Edited, &c.CreatedAt, &c.UpdatedAt,
		&c.LikedBy, &c.ReplyCount)
	return c, err
}
