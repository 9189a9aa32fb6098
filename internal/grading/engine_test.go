package grading

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MatejStrlek/uni-course-management/internal/model"
)

type fakeStore struct {
	enrollmentByID      func(ctx context.Context, id string) (model.Enrollment, error)
	saveGradeCompleting func(ctx context.Context, enrollmentID string, value int, at time.Time) (model.Grade, error)
	gradeByEnrollment   func(ctx context.Context, enrollmentID string) (model.Grade, error)
	gradesByCourse      func(ctx context.Context, courseID string) ([]model.Grade, error)
	gradesByStudent     func(ctx context.Context, studentID string) ([]model.Grade, error)
	userByID            func(ctx context.Context, id string) (model.User, error)
	courseByID          func(ctx context.Context, id string) (model.Course, error)
}

func (f *fakeStore) EnrollmentByID(ctx context.Context, id string) (model.Enrollment, error) {
	return f.enrollmentByID(ctx, id)
}

func (f *fakeStore) SaveGradeCompleting(ctx context.Context, enrollmentID string, value int, at time.Time) (model.Grade, error) {
	return f.saveGradeCompleting(ctx, enrollmentID, value, at)
}

func (f *fakeStore) GradeByEnrollment(ctx context.Context, enrollmentID string) (model.Grade, error) {
	return f.gradeByEnrollment(ctx, enrollmentID)
}

func (f *fakeStore) GradesByCourse(ctx context.Context, courseID string) ([]model.Grade, error) {
	return f.gradesByCourse(ctx, courseID)
}

func (f *fakeStore) GradesByStudent(ctx context.Context, studentID string) ([]model.Grade, error) {
	return f.gradesByStudent(ctx, studentID)
}

func (f *fakeStore) UserByID(ctx context.Context, id string) (model.User, error) {
	return f.userByID(ctx, id)
}

func (f *fakeStore) CourseByID(ctx context.Context, id string) (model.Course, error) {
	return f.courseByID(ctx, id)
}

type fakeNotifier struct {
	sent chan model.Grade
	err  error
}

func (f *fakeNotifier) GradePosted(_ context.Context, _ model.User, _ model.Course, grade model.Grade) error {
	f.sent <- grade
	return f.err
}

func gradeStore(saved *model.Grade) *fakeStore {
	return &fakeStore{
		enrollmentByID: func(_ context.Context, id string) (model.Enrollment, error) {
			return model.Enrollment{ID: id, StudentID: "s1", CourseID: "c1", Status: model.EnrollmentEnrolled}, nil
		},
		saveGradeCompleting: func(_ context.Context, enrollmentID string, value int, at time.Time) (model.Grade, error) {
			g := model.Grade{ID: "g1", EnrollmentID: enrollmentID, Value: value, GradedAt: at}
			if saved != nil {
				*saved = g
			}
			return g, nil
		},
		userByID: func(_ context.Context, id string) (model.User, error) {
			return model.User{ID: id, Email: "s@example.edu", Active: true}, nil
		},
		courseByID: func(_ context.Context, id string) (model.Course, error) {
			return model.Course{ID: id, Code: "CS101", Name: "Algorithms", Active: true}, nil
		},
	}
}

func TestAssignGradeNotifiesStudent(t *testing.T) {
	notifier := &fakeNotifier{sent: make(chan model.Grade, 1)}
	var saved model.Grade
	e := NewEngine(gradeStore(&saved), notifier, nil)

	grade, err := e.AssignGrade(context.Background(), "e1", 4)
	if err != nil {
		t.Fatalf("assign grade: %v", err)
	}
	if grade.Value != 4 || grade.EnrollmentID != "e1" {
		t.Fatalf("unexpected grade: %+v", grade)
	}

	select {
	case sent := <-notifier.sent:
		if sent.ID != saved.ID {
			t.Fatalf("notified about wrong grade: %+v", sent)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a notification")
	}
}

func TestAssignGradeInvalidValue(t *testing.T) {
	notifier := &fakeNotifier{sent: make(chan model.Grade, 1)}
	e := NewEngine(gradeStore(nil), notifier, nil)

	for _, value := range []int{0, -1, 6, 100} {
		if _, err := e.AssignGrade(context.Background(), "e1", value); !errors.Is(err, ErrInvalidGrade) {
			t.Fatalf("value %d: expected ErrInvalidGrade, got %v", value, err)
		}
	}
	select {
	case <-notifier.sent:
		t.Fatal("no notification expected for rejected grades")
	default:
	}
}

func TestAssignGradeUnknownEnrollment(t *testing.T) {
	store := gradeStore(nil)
	store.enrollmentByID = func(_ context.Context, _ string) (model.Enrollment, error) {
		return model.Enrollment{}, model.ErrNotFound
	}
	e := NewEngine(store, &fakeNotifier{sent: make(chan model.Grade, 1)}, nil)

	if _, err := e.AssignGrade(context.Background(), "ghost", 3); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type countingMetrics struct {
	failures chan struct{}
}

func (m *countingMetrics) RecordNotificationFailure() { m.failures <- struct{}{} }

func TestAssignGradeNotificationFailureIsSwallowed(t *testing.T) {
	notifier := &fakeNotifier{sent: make(chan model.Grade, 1), err: errors.New("smtp down")}
	metrics := &countingMetrics{failures: make(chan struct{}, 1)}
	e := NewEngine(gradeStore(nil), notifier, metrics)

	if _, err := e.AssignGrade(context.Background(), "e1", 5); err != nil {
		t.Fatalf("notification failure must not fail grading: %v", err)
	}
	select {
	case <-metrics.failures:
	case <-time.After(time.Second):
		t.Fatal("expected a recorded notification failure")
	}
}

func TestGradeForEnrollment(t *testing.T) {
	store := gradeStore(nil)
	store.gradeByEnrollment = func(_ context.Context, id string) (model.Grade, error) {
		if id == "graded" {
			return model.Grade{ID: "g1", EnrollmentID: id, Value: 2}, nil
		}
		return model.Grade{}, model.ErrNotFound
	}
	e := NewEngine(store, nil, nil)

	grade, found, err := e.GradeForEnrollment(context.Background(), "graded")
	if err != nil || !found || grade.Value != 2 {
		t.Fatalf("unexpected result: %+v %v %v", grade, found, err)
	}

	_, found, err = e.GradeForEnrollment(context.Background(), "ungraded")
	if err != nil {
		t.Fatalf("ungraded must not be an error: %v", err)
	}
	if found {
		t.Fatal("expected found=false for ungraded enrollment")
	}
}

func TestGradesByStudent(t *testing.T) {
	store := gradeStore(nil)
	store.gradesByStudent = func(_ context.Context, studentID string) ([]model.Grade, error) {
		if studentID != "s1" {
			t.Fatalf("unexpected student id %s", studentID)
		}
		return []model.Grade{{ID: "g1", Value: 3}, {ID: "g2", Value: 5}}, nil
	}
	e := NewEngine(store, nil, nil)

	grades, err := e.GradesByStudent(context.Background(), "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(grades) != 2 {
		t.Fatalf("expected 2 grades, got %d", len(grades))
	}
}

func TestGradesByStudentUnknownStudent(t *testing.T) {
	store := gradeStore(nil)
	store.userByID = func(_ context.Context, _ string) (model.User, error) {
		return model.User{}, model.ErrNotFound
	}
	e := NewEngine(store, nil, nil)

	if _, err := e.GradesByStudent(context.Background(), "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
