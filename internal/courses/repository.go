package courses

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumen-lms/lumen-lms/internal/authz"
	"github.com/lumen-lms/lumen-lms/internal/shared"
)

// Repository persists courses, lessons and enrollments.
type Repository interface {
	CreateCourse(ctx context.Context, c *Course) error
	GetCourse(ctx context.Context, id string) (Course, error)
	UpdateCourse(ctx context.Context, c *Course) error
	DeleteCourse(ctx context.Context, id string) error
	ListCourses(ctx context.Context, tenantID string, publishedOnly bool) ([]Course, error)

	CreateLesson(ctx context.Context, l *Lesson) error
	GetLesson(ctx context.Context, id string) (Lesson, error)
	ListLessons(ctx context.Context, courseID string) ([]Lesson, error)

	CreateEnrollment(ctx context.Context, e *Enrollment) (bool, error)
	EnrolledStudents(ctx context.Context, courseID string) ([]StudentRef, error)
	CourseInstructor(ctx context.Context, courseID string) (StudentRef, error)
}

// PGRepository is the pgx-backed Repository.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// CreateCourse inserts a course, assigning timestamps.
func (r *PGRepository) CreateCourse(ctx context.Context, c *Course) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := r.pool.Exec(ctx,
		`INSERT INTO courses (id, tenant_id, instructor_id, title, description, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.TenantID, c.InstructorID, c.Title, c.Description, string(c.Status), c.CreatedAt, c.UpdatedAt)
	return err
}

// GetCourse fetches a course by id.
func (r *PGRepository) GetCourse(ctx context.Context, id string) (Course, error) {
	var c Course
	var status string
	err := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, instructor_id, title, description, status, created_at, updated_at
		 FROM courses WHERE id = $1`, id).
		Scan(&c.ID, &c.TenantID, &c.InstructorID, &c.Title, &c.Description, &status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Course{}, shared.ErrNotFound
		}
		return Course{}, err
	}
	c.Status = authz.Status(status)
	return c, nil
}

// UpdateCourse saves mutable course fields.
func (r *PGRepository) UpdateCourse(ctx context.Context, c *Course) error {
	c.UpdatedAt = time.Now().UTC()
	tag, err := r.pool.Exec(ctx,
		`UPDATE courses SET title = $2, description = $3, status = $4, updated_at = $5 WHERE id = $1`,
		c.ID, c.Title, c.Description, string(c.Status), c.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteCourse removes a course.
func (r *PGRepository) DeleteCourse(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListCourses returns tenant courses, optionally published only.
func (r *PGRepository) ListCourses(ctx context.Context, tenantID string, publishedOnly bool) ([]Course, error) {
	query := `SELECT id, tenant_id, instructor_id, title, description, status, created_at, updated_at
		 FROM courses WHERE tenant_id = $1 ORDER BY created_at DESC`
	args := []any{tenantID}
	if publishedOnly {
		query = `SELECT id, tenant_id, instructor_id, title, description, status, created_at, updated_at
		 FROM courses WHERE tenant_id = $1 AND status = $2 ORDER BY created_at DESC`
		args = append(args, string(authz.StatusPublished))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Course
	for rows.Next() {
		var c Course
		var status string
		if err := rows.Scan(&c.ID, &c.TenantID, &c.InstructorID, &c.Title, &c.Description, &status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Status = authz.Status(status)
		result = append(result, c)
	}
	return result, rows.Err()
}

// CreateLesson inserts a lesson.
func (r *PGRepository) CreateLesson(ctx context.Context, l *Lesson) error {
	l.CreatedAt = time.Now().UTC()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO lessons (id, course_id, tenant_id, title, content, duration_minutes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		l.ID, l.CourseID, l.TenantID, l.Title, l.Content, l.DurationMinutes, l.CreatedAt)
	return err
}

// GetLesson fetches a lesson by id.
func (r *PGRepository) GetLesson(ctx context.Context, id string) (Lesson, error) {
	var l Lesson
	err := r.pool.QueryRow(ctx,
		`SELECT id, course_id, tenant_id, title, content, duration_minutes, created_at
		 FROM lessons WHERE id = $1`, id).
		Scan(&l.ID, &l.CourseID, &l.TenantID, &l.Title, &l.Content, &l.DurationMinutes, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lesson{}, shared.ErrNotFound
		}
		return Lesson{}, err
	}
	return l, nil
}

// ListLessons returns the lessons of a course in creation order.
func (r *PGRepository) ListLessons(ctx context.Context, courseID string) ([]Lesson, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, course_id, tenant_id, title, content, duration_minutes, created_at
		 FROM lessons WHERE course_id = $1 ORDER BY created_at`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Lesson
	for rows.Next() {
		var l Lesson
		if err := rows.Scan(&l.ID, &l.CourseID, &l.TenantID, &l.Title, &l.Content, &l.DurationMinutes, &l.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

// CreateEnrollment inserts the enrollment if absent. Returns true when the
// row was actually inserted. The unique (course_id, student_id) index makes
// repeated enrollment a no-op.
func (r *PGRepository) CreateEnrollment(ctx context.Context, e *Enrollment) (bool, error) {
	e.CreatedAt = time.Now().UTC()
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO enrollments (id, course_id, student_id, tenant_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (course_id, student_id) DO NOTHING`,
		e.ID, e.CourseID, e.StudentID, e.TenantID, e.CreatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// EnrolledStudents returns the students enrolled in a course.
func (r *PGRepository) EnrolledStudents(ctx context.Context, courseID string) ([]StudentRef, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.name FROM enrollments e JOIN users u ON u.id = e.student_id
		 WHERE e.course_id = $1`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []StudentRef
	for rows.Next() {
		var ref StudentRef
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, err
		}
		result = append(result, ref)
	}
	return result, rows.Err()
}

// CourseInstructor returns the instructor owning the course.
func (r *PGRepository) CourseInstructor(ctx context.Context, courseID string) (StudentRef, error) {
	var ref StudentRef
	err := r.pool.QueryRow(ctx,
		`SELECT u.id, u.name FROM courses c JOIN users u ON u.id = c.instructor_id
		 WHERE c.id = $1`, courseID).Scan(&ref.ID, &ref.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StudentRef{}, shared.ErrNotFound
		}
		return StudentRef{}, err
	}
	return ref, nil
}
