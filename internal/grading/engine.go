// Package grading assigns grades to enrollments and completes them.
package grading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MatejStrlek/uni-course-management/internal/model"
)

// ErrInvalidGrade is returned for grade values outside the 1..5 scale.
var ErrInvalidGrade = errors.New("grade value must be between 1 and 5")

const (
	minGrade = 1
	maxGrade = 5

	notifyTimeout = 10 * time.Second
)

type Store interface {
	EnrollmentByID(ctx context.Context, id string) (model.Enrollment, error)
	// SaveGradeCompleting upserts the enrollment's grade and moves the
	// enrollment to Completed in one transaction.
	SaveGradeCompleting(ctx context.Context, enrollmentID string, value int, at time.Time) (model.Grade, error)
	GradeByEnrollment(ctx context.Context, enrollmentID string) (model.Grade, error)
	GradesByCourse(ctx context.Context, courseID string) ([]model.Grade, error)
	GradesByStudent(ctx context.Context, studentID string) ([]model.Grade, error)
	UserByID(ctx context.Context, id string) (model.User, error)
	CourseByID(ctx context.Context, id string) (model.Course, error)
}

type Notifier interface {
	GradePosted(ctx context.Context, student model.User, course model.Course, grade model.Grade) error
}

type Metrics interface {
	RecordNotificationFailure()
}

type Engine struct {
	store    Store
	notifier Notifier
	metrics  Metrics
}

func NewEngine(store Store, notifier Notifier, metrics Metrics) *Engine {
	return &Engine{store: store, notifier: notifier, metrics: metrics}
}

// AssignGrade records the grade for the enrollment, creating or updating the
// grade record, and completes the enrollment. The student notification is
// dispatched after commit on an independent task; its failure is logged and
// never surfaced to the caller.
func (e *Engine) AssignGrade(ctx context.Context, enrollmentID string, value int) (model.Grade, error) {
	enr, err := e.store.EnrollmentByID(ctx, enrollmentID)
	if err != nil {
		return model.Grade{}, fmt.Errorf("enrollment: %w", err)
	}
	if value < minGrade || value > maxGrade {
		return model.Grade{}, ErrInvalidGrade
	}

	grade, err := e.store.SaveGradeCompleting(ctx, enr.ID, value, time.Now().UTC())
	if err != nil {
		return model.Grade{}, err
	}

	go e.notifyGradePosted(enr, grade)

	return grade, nil
}

// notifyGradePosted runs detached from the request: the grade record is
// already committed and is the source of truth, the email is best-effort.
func (e *Engine) notifyGradePosted(enr model.Enrollment, grade model.Grade) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	student, err := e.store.UserByID(ctx, enr.StudentID)
	if err != nil {
		e.notificationFailed(enr.ID, err)
		return
	}
	course, err := e.store.CourseByID(ctx, enr.CourseID)
	if err != nil {
		e.notificationFailed(enr.ID, err)
		return
	}
	if err := e.notifier.GradePosted(ctx, student, course, grade); err != nil {
		e.notificationFailed(enr.ID, err)
	}
}

func (e *Engine) notificationFailed(enrollmentID string, err error) {
	slog.Error("grade notification failed",
		slog.String("enrollment_id", enrollmentID),
		slog.String("error", err.Error()),
	)
	if e.metrics != nil {
		e.metrics.RecordNotificationFailure()
	}
}

// GradeForEnrollment looks up the enrollment's grade. An ungraded enrollment
// is a normal state, reported as found=false rather than an error.
func (e *Engine) GradeForEnrollment(ctx context.Context, enrollmentID string) (model.Grade, bool, error) {
	grade, err := e.store.GradeByEnrollment(ctx, enrollmentID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Grade{}, false, nil
	}
	if err != nil {
		return model.Grade{}, false, err
	}
	return grade, true, nil
}

func (e *Engine) GradesByCourse(ctx context.Context, courseID string) ([]model.Grade, error) {
	if _, err := e.store.CourseByID(ctx, courseID); err != nil {
		return nil, fmt.Errorf("course: %w", err)
	}
	return e.store.GradesByCourse(ctx, courseID)
}

func (e *Engine) GradesByStudent(ctx context.Context, studentID string) ([]model.Grade, error) {
	if _, err := e.store.UserByID(ctx, studentID); err != nil {
		return nil, fmt.Errorf("student: %w", err)
	}
	return e.store.GradesByStudent(ctx, studentID)
}
