package likes

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository performs the atomic conditional writes behind a toggle. The
// insert and delete are single statements backed by the unique index on
// (user_id, target_id, target_kind), never check-then-act in application
// code, so two concurrent toggles can never both insert.
type Repository interface {
	Insert(ctx context.Context, like *Like) (bool, error)
	Delete(ctx context.Context, userID, targetID string, kind TargetKind) (bool, error)
	Count(ctx context.Context, targetID string, kind TargetKind) (int, error)
	Exists(ctx context.Context, userID, targetID string, kind TargetKind) (bool, error)
}

// PGRepository is the pgx-backed Repository.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Insert creates the relation if absent. Returns true when the row was
// actually inserted, false when it already existed.
func (r *PGRepository) Insert(ctx context.Context, like *Like) (bool, error) {
	like.CreatedAt = time.Now().UTC()
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO likes (id, user_id, target_id, target_kind, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, target_id, target_kind) DO NOTHING`,
		like.ID, like.UserID, like.TargetID, string(like.TargetKind), like.CreatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes the relation if present. Returns true when a row was
// actually deleted.
func (r *PGRepository) Delete(ctx context.Context, userID, targetID string, kind TargetKind) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM likes WHERE user_id = $1 AND target_id = $2 AND target_kind = $3`,
		userID, targetID, string(kind))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Count returns the number of likes on the target.
func (r *PGRepository) Count(ctx context.Context, targetID string, kind TargetKind) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM likes WHERE target_id = $1 AND target_kind = $2`,
		targetID, string(kind)).Scan(&count)
	return count, err
}

// Exists reports whether the user currently likes the target.
func (r *PGRepository) Exists(ctx context.Context, userID, targetID string, kind TargetKind) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM likes WHERE user_id = $1 AND target_id = $2 AND target_kind = $3)`,
		userID, targetID, string(kind)).Scan(&exists)
	return exists, err
}
