package courses

import (
	"time"

	"github.com/lumen-lms/lumen-lms/internal/authz"
)

// Course is a tenant-scoped course owned by an instructor.
type Course struct {
	ID           string
	TenantID     string
	InstructorID string
	Title        string
	Description  string
	Status       authz.Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Resource exposes the policy-relevant fields of the course.
func (c Course) Resource() *authz.Resource {
	return &authz.Resource{
		Kind:     "course",
		TenantID: c.TenantID,
		OwnerID:  c.InstructorID,
		Status:   c.Status,
	}
}

// Lesson belongs to a course.
type Lesson struct {
	ID              string
	CourseID        string
	TenantID        string
	Title           string
	Content         string
	DurationMinutes int
	CreatedAt       time.Time
}

// Enrollment links a student to a course, unique per pair.
type Enrollment struct {
	ID        string
	CourseID  string
	StudentID string
	TenantID  string
	CreatedAt time.Time
}

// StudentRef identifies an enrolled student or an instructor.
type StudentRef struct {
	ID   string
	Name string
}
