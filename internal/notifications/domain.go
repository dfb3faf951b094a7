package notifications

import "time"

// Kind categorises a notification by the domain event that produced it.
type Kind string

// Notification kinds.
const (
	KindLessonCreated   Kind = "lesson.created"
	KindCoursePublished Kind = "course.published"
	KindEnrollment      Kind = "user.enrolled"
	KindWelcome         Kind = "user.registered"
	KindCommentLiked    Kind = "comment.liked"
	KindCommentReplied  Kind = "comment.replied"
)

// Notification is one user-targeted message produced by the dispatcher. An
// event fanning out to N recipients creates N rows; they share nothing beyond
// the originating event id stored in Data.
type Notification struct {
	ID        string
	UserID    string
	TenantID  string
	Kind      Kind
	Message   string
	Data      map[string]string
	Read      bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListFilter narrows a notification listing.
type ListFilter struct {
	Page    int
	PerPage int
	Kind    Kind
	Read    *bool
}

// UserRef identifies a notification recipient.
type UserRef struct {
	ID   string
	Name string
}

// CommentRef carries the comment fields needed for like/reply fan-out.
type CommentRef struct {
	ID       string
	AuthorID string
	Content  string
}
