package users

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumen-lms/lumen-lms/internal/platform/httpx"
	"github.com/lumen-lms/lumen-lms/internal/shared"
)

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, tenantID, email string) (User, error)
	List(ctx context.Context, tenantID string) ([]User, error)
	UpdateRole(ctx context.Context, id string, role shared.Role) error
	Delete(ctx context.Context, id string) error
	TenantStudents(ctx context.Context, tenantID string) ([]Ref, error)
}

// Ref is the minimal identity used for notification fan-out.
type Ref struct {
	ID   string
	Name string
}

// PGRepository is the pgx-backed Repository.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, tenant_id, name, email, role, password_hash, created_at, updated_at`

// Create inserts a user. A duplicate email within the tenant maps to
// httpx.ErrDuplicate via the unique-violation code.
func (r *PGRepository) Create(ctx context.Context, u *User) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, tenant_id, name, email, role, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.TenantID, u.Name, u.Email, string(u.Role), u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return httpx.ErrDuplicate
	}
	return err
}

// Get fetches a user by id.
func (r *PGRepository) Get(ctx context.Context, id string) (User, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail fetches a user by tenant and email.
func (r *PGRepository) GetByEmail(ctx context.Context, tenantID, email string) (User, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE tenant_id = $1 AND email = $2`, tenantID, email))
}

// List returns every user of a tenant.
func (r *PGRepository) List(ctx context.Context, tenantID string) ([]User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE tenant_id = $1 ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []User
	for rows.Next() {
		var u User
		var role string
		if err := rows.Scan(&u.ID, &u.TenantID, &u.Name, &u.Email, &role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.Role = shared.Role(role)
		result = append(result, u)
	}
	return result, rows.Err()
}

// UpdateRole changes a user's role.
func (r *PGRepository) UpdateRole(ctx context.Context, id string, role shared.Role) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET role = $2, updated_at = $3 WHERE id = $1`,
		id, string(role), time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a user.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// TenantStudents returns the students of a tenant for notification fan-out.
func (r *PGRepository) TenantStudents(ctx context.Context, tenantID string) ([]Ref, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name FROM users WHERE tenant_id = $1 AND role = $2`,
		tenantID, string(shared.RoleStudent))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Ref
	for rows.Next() {
		var ref Ref
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, err
		}
		result = append(result, ref)
	}
	return result, rows.Err()
}

func (r *PGRepository) scanOne(row pgx.Row) (User, error) {
	var u User
	var role string
	err := row.Scan(&u.ID, &u.TenantID, &u.Name, &u.Email, &role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	u.Role = shared.Role(role)
	return u, nil
}
