// Package events provides the in-process domain event bus. Domain services
// publish typed events; standing subscribers receive them asynchronously.
// The bus itself holds no domain knowledge and persists nothing.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies a domain event. The set is closed; subscriptions match the
// type exactly.
type Type string

// Domain event types.
const (
	LessonCreated   Type = "lesson.created"
	CoursePublished Type = "course.published"
	UserEnrolled    Type = "user.enrolled"
	UserRegistered  Type = "user.registered"
	CommentLiked    Type = "comment.liked"
	CommentReplied  Type = "comment.replied"
	LessonLiked     Type = "lesson.liked"
)

// Event is an immutable record of a domain action. It is created at publish
// time, consumed by zero or more subscribers and then discarded.
type Event struct {
	ID         string
	Type       Type
	OccurredAt time.Time
	TenantID   string
	ActorID    string
	Payload    any
}

// New builds an event with a fresh ID and timestamp.
func New(t Type, tenantID, actorID string, payload any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
		TenantID:   tenantID,
		ActorID:    actorID,
		Payload:    payload,
	}
}

// LessonCreatedPayload accompanies LessonCreated events.
type LessonCreatedPayload struct {
	CourseID    string
	LessonID    string
	LessonName  string
	CourseTitle string
}

// CoursePublishedPayload accompanies CoursePublished events.
type CoursePublishedPayload struct {
	CourseID    string
	CourseTitle string
}

// UserEnrolledPayload accompanies UserEnrolled events.
type UserEnrolledPayload struct {
	CourseID    string
	CourseTitle string
	StudentID   string
	StudentName string
}

// UserRegisteredPayload accompanies UserRegistered events.
type UserRegisteredPayload struct {
	UserID   string
	UserName string
}

// CommentLikedPayload accompanies CommentLiked events.
type CommentLikedPayload struct {
	CommentID string
	ActorID   string
	ActorName string
}

// LessonLikedPayload accompanies LessonLiked events. No subscriber currently
// turns these into notifications; lesson likes only feed counters.
type LessonLikedPayload struct {
	LessonID  string
	ActorID   string
	ActorName string
}

// CommentRepliedPayload accompanies CommentReplied events.
type CommentRepliedPayload struct {
	ParentID  string
	ReplyID   string
	LessonID  string
	ActorID   string
	ActorName string
	Content   string
}
