package comments

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumen-lms/lumen-lms/internal/shared"
)

// Repository persists comments.
type Repository interface {
	Create(ctx context.Context, c *Comment) error
	Get(ctx context.Context, id string) (Comment, error)
	ListByLesson(ctx context.Context, lessonID string) ([]Comment, error)
	Delete(ctx context.Context, id string) error
}

// PGRepository is the pgx-backed Repository.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create inserts a comment. ParentID is stored as NULL when empty.
func (r *PGRepository) Create(ctx context.Context, c *Comment) error {
	c.CreatedAt = time.Now().UTC()
	var parent any
	if c.ParentID != "" {
		parent = c.ParentID
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO comments (id, tenant_id, lesson_id, author_id, content, parent_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.TenantID, c.LessonID, c.AuthorID, c.Content, parent, c.CreatedAt)
	return err
}

// Get fetches a comment by id.
func (r *PGRepository) Get(ctx context.Context, id string) (Comment, error) {
	var c Comment
	var parent *string
	err := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, lesson_id, author_id, content, parent_id, created_at
		 FROM comments WHERE id = $1`, id).
		Scan(&c.ID, &c.TenantID, &c.LessonID, &c.AuthorID, &c.Content, &parent, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Comment{}, shared.ErrNotFound
		}
		return Comment{}, err
	}
	if parent != nil {
		c.ParentID = *parent
	}
	return c, nil
}

// ListByLesson returns a lesson's comments oldest first.
func (r *PGRepository) ListByLesson(ctx context.Context, lessonID string) ([]Comment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, lesson_id, author_id, content, parent_id, created_at
		 FROM comments WHERE lesson_id = $1 ORDER BY created_at`, lessonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Comment
	for rows.Next() {
		var c Comment
		var parent *string
		if err := rows.Scan(&c.ID, &c.TenantID, &c.LessonID, &c.AuthorID, &c.Content, &parent, &c.CreatedAt); err != nil {
			return nil, err
		}
		if parent != nil {
			c.ParentID = *parent
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// Delete removes a comment and, through the foreign key cascade, its replies.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
