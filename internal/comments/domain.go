package comments

import "time"

// Comment is a discussion entry under a lesson. A non-empty ParentID marks it
// as a reply to another comment of the same lesson.
type Comment struct {
	ID        string
	TenantID  string
	LessonID  string
	AuthorID  string
	Content   string
	ParentID  string
	CreatedAt time.Time
}

// IsReply reports whether the comment answers another comment.
func (c Comment) IsReply() bool {
	return c.ParentID != ""
}
