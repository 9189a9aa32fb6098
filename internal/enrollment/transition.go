package enrollment

import (
	"errors"

	"github.com/MatejStrlek/uni-course-management/internal/model"
)

var (
	ErrAlreadyEnrolled    = errors.New("student is already enrolled in this course")
	ErrNoActiveEnrollment = errors.New("no active enrollment found")
	ErrInactiveCourse     = errors.New("cannot enroll in inactive course")
)

type Event int

const (
	EventEnroll Event = iota
	EventDrop
)

type Effect int

const (
	// EffectCreate inserts a fresh enrollment record.
	EffectCreate Effect = iota
	// EffectReuse re-activates the existing record for the pair, preserving
	// its identity and any grade history attached to it.
	EffectReuse
	// EffectUpdate changes the status of the existing record.
	EffectUpdate
)

type Decision struct {
	Next   model.EnrollmentStatus
	Effect Effect
}

// Transition is the enrollment state machine: given the current status of the
// (student, course) pair (or its absence) and an event, it returns what the
// next status is and how to apply it. All status decisions live here; the
// ledger only executes the returned effect inside the pair's transaction.
func Transition(current model.EnrollmentStatus, exists bool, event Event) (Decision, error) {
	switch event {
	case EventEnroll:
		if !exists {
			return Decision{Next: model.EnrollmentEnrolled, Effect: EffectCreate}, nil
		}
		switch current {
		case model.EnrollmentEnrolled:
			return Decision{}, ErrAlreadyEnrolled
		case model.EnrollmentDropped, model.EnrollmentCompleted:
			return Decision{Next: model.EnrollmentEnrolled, Effect: EffectReuse}, nil
		}
	case EventDrop:
		if !exists {
			return Decision{}, ErrNoActiveEnrollment
		}
		switch current {
		case model.EnrollmentEnrolled:
			return Decision{Next: model.EnrollmentDropped, Effect: EffectUpdate}, nil
		case model.EnrollmentDropped, model.EnrollmentCompleted:
			return Decision{}, ErrNoActiveEnrollment
		}
	}
	return Decision{}, errors.New("invalid enrollment transition")
}
