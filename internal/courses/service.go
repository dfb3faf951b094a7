package courses

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lumen-lms/lumen-lms/internal/authz"
	"github.com/lumen-lms/lumen-lms/internal/events"
	"github.com/lumen-lms/lumen-lms/internal/platform/cache"
	"github.com/lumen-lms/lumen-lms/internal/shared"
)

const (
	cacheKindCourses = "courses"
	cacheKindLessons = "lessons"
	cacheTTL         = 5 * time.Minute
)

// Publisher schedules domain events. Satisfied by *events.Bus.
type Publisher interface {
	Publish(evt events.Event)
}

// Service orchestrates course, lesson and enrollment operations. Every
// operation consults the policy engine before touching data; mutating
// operations invalidate the cache before returning and publish their domain
// event after the write committed.
type Service struct {
	repo   Repository
	bus    Publisher
	cache  *cache.Store
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewService constructs a Service. cache and audit may be nil.
func NewService(repo Repository, bus Publisher, store *cache.Store, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, bus: bus, cache: store, audit: audit, logger: logger}
}

// CourseInput carries course creation/update fields.
type CourseInput struct {
	Title       string
	Description string
}

// CreateCourse creates a draft course owned by the acting instructor.
func (s *Service) CreateCourse(ctx context.Context, actor shared.Actor, input CourseInput) (Course, error) {
	if err := authz.Evaluate(actor, nil, authz.ActionResourceCreate).Err(); err != nil {
		return Course{}, err
	}
	course := Course{
		ID:           uuid.NewString(),
		TenantID:     actor.TenantID,
		InstructorID: actor.ID,
		Title:        input.Title,
		Description:  input.Description,
		Status:       authz.StatusDraft,
	}
	if err := s.repo.CreateCourse(ctx, &course); err != nil {
		return Course{}, err
	}
	s.cache.Invalidate(ctx, cacheKindCourses)
	s.recordAudit(ctx, actor, "course.create", "course", course.ID)
	return course, nil
}

// GetCourse loads a course and applies the read policy to the loaded fields.
func (s *Service) GetCourse(ctx context.Context, actor shared.Actor, id string) (Course, error) {
	var course Course
	key := cache.Key(cacheKindCourses, "by_id", id)
	err := s.cache.Fetch(ctx, key, cacheTTL, &course, func(ctx context.Context) (any, error) {
		return s.repo.GetCourse(ctx, id)
	})
	if err != nil {
		return Course{}, err
	}
	if err := authz.Evaluate(actor, course.Resource(), authz.ActionResourceRead).Err(); err != nil {
		return Course{}, err
	}
	return course, nil
}

// ListCourses returns the courses visible to the actor. Students only see
// published courses.
func (s *Service) ListCourses(ctx context.Context, actor shared.Actor) ([]Course, error) {
	if err := authz.Evaluate(actor, nil, authz.ActionResourceRead).Err(); err != nil {
		return nil, err
	}
	publishedOnly := actor.Role == shared.RoleStudent
	var result []Course
	key := cache.Key(cacheKindCourses, "list", actor.TenantID, publishedOnly)
	err := s.cache.Fetch(ctx, key, cacheTTL, &result, func(ctx context.Context) (any, error) {
		return s.repo.ListCourses(ctx, actor.TenantID, publishedOnly)
	})
	return result, err
}

// UpdateCourse saves course fields after an ownership-aware policy check.
func (s *Service) UpdateCourse(ctx context.Context, actor shared.Actor, id string, input CourseInput) (Course, error) {
	course, err := s.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if err := authz.Evaluate(actor, course.Resource(), authz.ActionResourceUpdate).Err(); err != nil {
		return Course{}, err
	}
	course.Title = input.Title
	course.Description = input.Description
	if err := s.repo.UpdateCourse(ctx, &course); err != nil {
		return Course{}, err
	}
	// List entries key on tenant, not course id, so drop the whole kind.
	s.cache.Invalidate(ctx, cacheKindCourses)
	s.recordAudit(ctx, actor, "course.update", "course", id)
	return course, nil
}

// DeleteCourse removes a course. Admin only.
func (s *Service) DeleteCourse(ctx context.Context, actor shared.Actor, id string) error {
	course, err := s.repo.GetCourse(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.Evaluate(actor, course.Resource(), authz.ActionResourceDelete).Err(); err != nil {
		return err
	}
	if err := s.repo.DeleteCourse(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cacheKindCourses)
	s.recordAudit(ctx, actor, "course.delete", "course", id)
	return nil
}

// PublishCourse transitions a course to published and announces it to every
// student of the tenant.
func (s *Service) PublishCourse(ctx context.Context, actor shared.Actor, id string) (Course, error) {
	course, err := s.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if err := authz.Evaluate(actor, course.Resource(), authz.ActionResourceUpdate).Err(); err != nil {
		return Course{}, err
	}
	if course.Status == authz.StatusPublished {
		return course, nil
	}
	course.Status = authz.StatusPublished
	if err := s.repo.UpdateCourse(ctx, &course); err != nil {
		return Course{}, err
	}
	s.cache.Invalidate(ctx, cacheKindCourses)
	s.publish(events.New(events.CoursePublished, actor.TenantID, actor.ID, events.CoursePublishedPayload{
		CourseID:    course.ID,
		CourseTitle: course.Title,
	}))
	s.recordAudit(ctx, actor, "course.publish", "course", id)
	return course, nil
}

// LessonInput carries lesson creation fields.
type LessonInput struct {
	Title           string
	Content         string
	DurationMinutes int
}

// CreateLesson adds a lesson to a course and notifies enrolled students via
// the published event.
func (s *Service) CreateLesson(ctx context.Context, actor shared.Actor, courseID string, input LessonInput) (Lesson, error) {
	course, err := s.repo.GetCourse(ctx, courseID)
	if err != nil {
		return Lesson{}, err
	}
	// Creating inside a course is an update of that course's content.
	if err := authz.Evaluate(actor, course.Resource(), authz.ActionResourceUpdate).Err(); err != nil {
		return Lesson{}, err
	}
	lesson := Lesson{
		ID:              uuid.NewString(),
		CourseID:        courseID,
		TenantID:        course.TenantID,
		Title:           input.Title,
		Content:         input.Content,
		DurationMinutes: input.DurationMinutes,
	}
	if err := s.repo.CreateLesson(ctx, &lesson); err != nil {
		return Lesson{}, err
	}
	s.cache.Invalidate(ctx, cacheKindLessons, courseID)
	s.publish(events.New(events.LessonCreated, course.TenantID, actor.ID, events.LessonCreatedPayload{
		CourseID:    courseID,
		LessonID:    lesson.ID,
		LessonName:  lesson.Title,
		CourseTitle: course.Title,
	}))
	s.recordAudit(ctx, actor, "lesson.create", "lesson", lesson.ID)
	return lesson, nil
}

// GetLesson loads one lesson after the course-level read check.
func (s *Service) GetLesson(ctx context.Context, actor shared.Actor, lessonID string) (Lesson, error) {
	lesson, err := s.repo.GetLesson(ctx, lessonID)
	if err != nil {
		return Lesson{}, err
	}
	course, err := s.repo.GetCourse(ctx, lesson.CourseID)
	if err != nil {
		return Lesson{}, err
	}
	if err := authz.Evaluate(actor, course.Resource(), authz.ActionResourceRead).Err(); err != nil {
		return Lesson{}, err
	}
	return lesson, nil
}

// ListLessons returns the lessons of a course the actor may read.
func (s *Service) ListLessons(ctx context.Context, actor shared.Actor, courseID string) ([]Lesson, error) {
	course, err := s.repo.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := authz.Evaluate(actor, course.Resource(), authz.ActionResourceRead).Err(); err != nil {
		return nil, err
	}
	var result []Lesson
	key := cache.Key(cacheKindLessons, "list", courseID)
	err = s.cache.Fetch(ctx, key, cacheTTL, &result, func(ctx context.Context) (any, error) {
		return s.repo.ListLessons(ctx, courseID)
	})
	return result, err
}

// Enroll enrolls the actor into a published course. Repeating the call is a
// no-op; the enrollment event fires only on the first time.
func (s *Service) Enroll(ctx context.Context, actor shared.Actor, courseID string) error {
	course, err := s.repo.GetCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if err := authz.Evaluate(actor, course.Resource(), authz.ActionResourceRead).Err(); err != nil {
		return err
	}
	if course.Status != authz.StatusPublished {
		return fmt.Errorf("%w: course not published", shared.ErrForbidden)
	}
	enrollment := Enrollment{
		ID:        uuid.NewString(),
		CourseID:  courseID,
		StudentID: actor.ID,
		TenantID:  course.TenantID,
	}
	created, err := s.repo.CreateEnrollment(ctx, &enrollment)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}
	s.publish(events.New(events.UserEnrolled, course.TenantID, actor.ID, events.UserEnrolledPayload{
		CourseID:    courseID,
		CourseTitle: course.Title,
		StudentID:   actor.ID,
		StudentName: actor.Name,
	}))
	s.recordAudit(ctx, actor, "course.enroll", "enrollment", enrollment.ID)
	return nil
}

func (s *Service) publish(evt events.Event) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(evt)
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Actor, action, entity, entityID string) {
	if s.audit == nil {
		return
	}
	log := shared.AuditLog{
		TenantID: actor.TenantID,
		ActorID:  actor.ID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
	}
	if err := s.audit.Record(ctx, log); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
