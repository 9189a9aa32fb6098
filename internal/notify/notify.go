// Package notify sends student-facing email notifications.
package notify

import (
	"context"
	"fmt"

	"github.com/MatejStrlek/uni-course-management/internal/model"
)

type Message struct {
	ToName  string
	ToEmail string
	Subject string
	Body    string
}

// Mailer delivers a single message. Implementations must be safe for
// concurrent use.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// GradePosted builds the notification sent to a student when a grade is
// recorded for one of their enrollments.
func GradePosted(student model.User, course model.Course, grade model.Grade) Message {
	return Message{
		ToName:  student.FirstName + " " + student.LastName,
		ToEmail: student.Email,
		Subject: fmt.Sprintf("Grade posted for %s", course.Name),
		Body: fmt.Sprintf(
			"Dear %s,\n\nA grade of %d has been recorded for %s (%s).\n\nRegards,\nStudent Office",
			student.FirstName, grade.Value, course.Name, course.Code,
		),
	}
}
