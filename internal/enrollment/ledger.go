// Package enrollment maintains the set of (student, course) enrollment
// records. At most one record exists per pair; dropping and re-enrolling
// reuses the record so grade history is preserved.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MatejStrlek/uni-course-management/internal/model"
)

// PairTx is the transactional view of a single (student, course) pair. The
// existing record, if any, is row-locked for the duration of the transaction.
type PairTx interface {
	Current() (model.Enrollment, bool)
	// Insert reports false when a concurrent transaction created the pair's
	// record first.
	Insert(ctx context.Context, e model.Enrollment) (bool, error)
	SetStatus(ctx context.Context, id string, status model.EnrollmentStatus) error
}

type Store interface {
	UserByID(ctx context.Context, id string) (model.User, error)
	CourseByID(ctx context.Context, id string) (model.Course, error)
	InPairTx(ctx context.Context, studentID, courseID string, fn func(PairTx) error) error
	EnrollmentsByStudent(ctx context.Context, studentID string) ([]model.Enrollment, error)
	EnrollmentsByCourse(ctx context.Context, courseID string, status model.EnrollmentStatus) ([]model.Enrollment, error)
	GradeByEnrollment(ctx context.Context, enrollmentID string) (model.Grade, error)
}

type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Enroll records the student in the course, creating a new record or
// re-activating a dropped/completed one.
func (l *Ledger) Enroll(ctx context.Context, studentID, courseID string) (model.Enrollment, error) {
	if _, err := l.store.UserByID(ctx, studentID); err != nil {
		return model.Enrollment{}, fmt.Errorf("student: %w", err)
	}
	course, err := l.store.CourseByID(ctx, courseID)
	if err != nil {
		return model.Enrollment{}, fmt.Errorf("course: %w", err)
	}
	if !course.Active {
		return model.Enrollment{}, ErrInactiveCourse
	}

	var out model.Enrollment
	err = l.store.InPairTx(ctx, studentID, courseID, func(tx PairTx) error {
		current, exists := tx.Current()
		decision, err := Transition(current.Status, exists, EventEnroll)
		if err != nil {
			return err
		}
		switch decision.Effect {
		case EffectCreate:
			e := model.Enrollment{
				ID:         uuid.NewString(),
				StudentID:  studentID,
				CourseID:   courseID,
				EnrolledAt: time.Now().UTC(),
				Status:     decision.Next,
			}
			inserted, err := tx.Insert(ctx, e)
			if err != nil {
				return err
			}
			if !inserted {
				// Lost the insert race; the winning transaction holds the
				// pair's record in Enrolled status.
				return ErrAlreadyEnrolled
			}
			out = e
		case EffectReuse, EffectUpdate:
			if err := tx.SetStatus(ctx, current.ID, decision.Next); err != nil {
				return err
			}
			current.Status = decision.Next
			out = current
		}
		return nil
	})
	if err != nil {
		return model.Enrollment{}, err
	}
	return out, nil
}

// Drop moves the pair's Enrolled record to Dropped.
func (l *Ledger) Drop(ctx context.Context, studentID, courseID string) error {
	if _, err := l.store.UserByID(ctx, studentID); err != nil {
		return fmt.Errorf("student: %w", err)
	}
	if _, err := l.store.CourseByID(ctx, courseID); err != nil {
		return fmt.Errorf("course: %w", err)
	}

	return l.store.InPairTx(ctx, studentID, courseID, func(tx PairTx) error {
		current, exists := tx.Current()
		decision, err := Transition(current.Status, exists, EventDrop)
		if err != nil {
			return err
		}
		return tx.SetStatus(ctx, current.ID, decision.Next)
	})
}

// ActiveEnrollmentsForCourse lists Enrolled records whose student is active.
// "Active" is a business attribute of the student, so the filter is applied
// here rather than pushed into the query.
func (l *Ledger) ActiveEnrollmentsForCourse(ctx context.Context, courseID string) ([]model.Enrollment, error) {
	if _, err := l.store.CourseByID(ctx, courseID); err != nil {
		return nil, fmt.Errorf("course: %w", err)
	}
	enrollments, err := l.store.EnrollmentsByCourse(ctx, courseID, model.EnrollmentEnrolled)
	if err != nil {
		return nil, err
	}
	active := make([]model.Enrollment, 0, len(enrollments))
	for _, e := range enrollments {
		student, err := l.store.UserByID(ctx, e.StudentID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if student.Active {
			active = append(active, e)
		}
	}
	return active, nil
}

// StudentEnrollment is the read-side projection of an enrollment with its
// grade attached when one exists.
type StudentEnrollment struct {
	Enrollment model.Enrollment
	Grade      *model.Grade
}

// EnrollmentsForStudent returns the student's enrollments with grades
// attached. By default only Enrolled records are returned; includeInactive
// widens the projection to dropped and completed records. The projection
// never mutates persisted state.
func (l *Ledger) EnrollmentsForStudent(ctx context.Context, studentID string, includeInactive bool) ([]StudentEnrollment, error) {
	if _, err := l.store.UserByID(ctx, studentID); err != nil {
		return nil, fmt.Errorf("student: %w", err)
	}
	enrollments, err := l.store.EnrollmentsByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	out := make([]StudentEnrollment, 0, len(enrollments))
	for _, e := range enrollments {
		if !includeInactive && e.Status != model.EnrollmentEnrolled {
			continue
		}
		entry := StudentEnrollment{Enrollment: e}
		grade, err := l.store.GradeByEnrollment(ctx, e.ID)
		switch {
		case err == nil:
			entry.Grade = &grade
		case errors.Is(err, model.ErrNotFound):
			// ungraded is a normal state
		default:
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}
