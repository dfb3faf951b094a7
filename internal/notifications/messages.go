package notifications

import (
	"fmt"
	"time"
	"unicode/utf8"
)

const previewLimit = 50

const messageTimeLayout = "Jan 2, 2006 15:04"

// preview truncates content to previewLimit runes, appending an ellipsis when
// anything was cut.
func preview(content string) string {
	if utf8.RuneCountInString(content) <= previewLimit {
		return content
	}
	runes := []rune(content)
	return string(runes[:previewLimit]) + "…"
}

func lessonCreatedMessage(lessonName, courseTitle string) string {
	return fmt.Sprintf("New lesson %q is available in %q", preview(lessonName), preview(courseTitle))
}

func coursePublishedMessage(courseTitle string) string {
	return fmt.Sprintf("Course %q has been published", preview(courseTitle))
}

func enrollmentMessage(studentName, courseTitle string, at time.Time) string {
	return fmt.Sprintf("%s enrolled in %q on %s", studentName, preview(courseTitle), at.Local().Format(messageTimeLayout))
}

func welcomeMessage(userName string) string {
	return fmt.Sprintf("Welcome, %s! Your account is ready.", userName)
}

func commentLikedMessage(actorName, content string) string {
	return fmt.Sprintf("%s liked your comment: %q", actorName, preview(content))
}

func commentRepliedMessage(actorName, content string) string {
	return fmt.Sprintf("%s replied to your comment: %q", actorName, preview(content))
}
