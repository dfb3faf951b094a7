package likes

import "time"

// TargetKind is the entity family a like attaches to.
type TargetKind string

// Likeable target kinds.
const (
	TargetLesson  TargetKind = "lesson"
	TargetComment TargetKind = "comment"
)

// Valid reports whether the kind is likeable.
func (k TargetKind) Valid() bool {
	return k == TargetLesson || k == TargetComment
}

// Like is a toggle relation: row presence is the "liked" state. The storage
// layer enforces uniqueness on (user_id, target_id, target_kind), so the
// relation can never accumulate duplicate rows.
type Like struct {
	ID         string
	UserID     string
	TargetID   string
	TargetKind TargetKind
	CreatedAt  time.Time
}

// ToggleResult reports the state after a toggle or status call.
type ToggleResult struct {
	Active bool `json:"active"`
	Count  int  `json:"total_count"`
}
