package notify

import (
	"context"

	"github.com/MatejStrlek/uni-course-management/internal/model"
)

// GradeNotifier turns grading events into emails.
type GradeNotifier struct {
	mailer Mailer
}

func NewGradeNotifier(mailer Mailer) *GradeNotifier {
	return &GradeNotifier{mailer: mailer}
}

func (n *GradeNotifier) GradePosted(ctx context.Context, student model.User, course model.Course, grade model.Grade) error {
	return n.mailer.Send(ctx, GradePosted(student, course, grade))
}
