package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumen-lms/lumen-lms/internal/shared"
)

// Repository persists and queries notification rows.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	Get(ctx context.Context, id string) (Notification, error)
	List(ctx context.Context, userID, tenantID string, filter ListFilter) ([]Notification, int, error)
	UnreadCount(ctx context.Context, userID, tenantID string) (int, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID, tenantID string) error
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

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Create inserts the notification, assigning timestamps.
func (r *PGRepository) Create(ctx context.Context, n *Notification) error {
	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now
	data, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("notifications: marshal data: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO notifications (id, user_id, tenant_id, kind, message, data, read, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, false, $7, $8)`,
		n.ID, n.UserID, n.TenantID, string(n.Kind), n.Message, data, n.CreatedAt, n.UpdatedAt)
	return err
}

// Get fetches a notification by id.
func (r *PGRepository) Get(ctx context.Context, id string) (Notification, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_id, tenant_id, kind, message, data, read, created_at, updated_at
		 FROM notifications WHERE id = $1`, id)
	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Notification{}, shared.ErrNotFound
		}
		return Notification{}, err
	}
	return n, nil
}

// List returns a page of notifications plus the total matching count.
func (r *PGRepository) List(ctx context.Context, userID, tenantID string, filter ListFilter) ([]Notification, int, error) {
	where := sq.And{
		sq.Eq{"user_id": userID},
		sq.Eq{"tenant_id": tenantID},
	}
	if filter.Kind != "" {
		where = append(where, sq.Eq{"kind": string(filter.Kind)})
	}
	if filter.Read != nil {
		where = append(where, sq.Eq{"read": *filter.Read})
	}

	countSQL, countArgs, err := qb.Select("COUNT(*)").From("notifications").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(filter.Page, filter.PerPage, total)
	listSQL, listArgs, err := qb.
		Select("id", "user_id", "tenant_id", "kind", "message", "data", "read", "created_at", "updated_at").
		From("notifications").
		Where(where).
		OrderBy("created_at DESC").
		Limit(uint64(page.PerPage)).
		Offset(uint64(page.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	result := make([]Notification, 0, page.PerPage)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, n)
	}
	return result, total, rows.Err()
}

// UnreadCount returns the number of unread notifications for the user.
func (r *PGRepository) UnreadCount(ctx context.Context, userID, tenantID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND tenant_id = $2 AND read = false`,
		userID, tenantID).Scan(&count)
	return count, err
}

// MarkRead flips the read flag for one notification.
func (r *PGRepository) MarkRead(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read = true, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// MarkAllRead flips the read flag for every unread notification of the user.
func (r *PGRepository) MarkAllRead(ctx context.Context, userID, tenantID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read = true, updated_at = NOW()
		 WHERE user_id = $1 AND tenant_id = $2 AND read = false`, userID, tenantID)
	return err
}

// PurgeRead removes read notifications older than the cutoff. Called by the
// retention cron job.
func (r *PGRepository) PurgeRead(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM notifications WHERE read = true AND updated_at < $1`, olderThan)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Delete removes a notification row.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanNotification(row pgx.Row) (Notification, error) {
	var n Notification
	var kind string
	var data []byte
	if err := row.Scan(&n.ID, &n.UserID, &n.TenantID, &kind, &n.Message, &data, &n.Read, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return Notification{}, err
	}
	n.Kind = Kind(kind)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return Notification{}, fmt.Errorf("notifications: unmarshal data: %w", err)
		}
	}
	return n, nil
}
