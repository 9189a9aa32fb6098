package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound reports that a referenced record does not exist. Store
// implementations translate their driver-level absence errors into it.
var ErrNotFound = errors.New("not found")

type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleProfessor Role = "PROFESSOR"
	RoleStudent   Role = "STUDENT"
)

func ParseRole(value string) (Role, error) {
	switch Role(value) {
	case RoleAdmin, RoleProfessor, RoleStudent:
		return Role(value), nil
	}
	return "", fmt.Errorf("unknown role %q", value)
}

type User struct {
	ID           string
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	Email        string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Course struct {
	ID           string
	Code         string
	Name         string
	Description  string
	Credits      int
	MaxStudents  int
	Semester     string
	AcademicYear string
	Active       bool
	ProfessorID  *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type EnrollmentStatus string

const (
	EnrollmentEnrolled  EnrollmentStatus = "ENROLLED"
	EnrollmentDropped   EnrollmentStatus = "DROPPED"
	EnrollmentCompleted EnrollmentStatus = "COMPLETED"
)

type Enrollment struct {
	ID         string
	StudentID  string
	CourseID   string
	EnrolledAt time.Time
	Status     EnrollmentStatus
}

// Grade values are integers on the 1..5 scale, one grade per enrollment.
type Grade struct {
	ID           string
	EnrollmentID string
	Value        int
	GradedAt     time.Time
}

// RefreshToken holds only the sha256 hash of the opaque token value handed to
// the client. At most one live row per user exists at any time.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	Revoked   bool
}
