package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MatejStrlek/uni-course-management/internal/model"
)

type enrollmentResponse struct {
	ID         string         `json:"id"`
	StudentID  string         `json:"studentId"`
	CourseID   string         `json:"courseId"`
	EnrolledAt time.Time      `json:"enrolledAt"`
	Status     string         `json:"status"`
	Grade      *gradeResponse `json:"grade,omitempty"`
}

type gradeResponse struct {
	ID           string    `json:"id"`
	EnrollmentID string    `json:"enrollmentId"`
	Value        int       `json:"value"`
	GradedAt     time.Time `json:"gradedAt"`
}

func enrollmentPayload(e model.Enrollment) enrollmentResponse {
	return enrollmentResponse{
		ID:         e.ID,
		StudentID:  e.StudentID,
		CourseID:   e.CourseID,
		EnrolledAt: e.EnrolledAt,
		Status:     string(e.Status),
	}
}

func gradePayload(g model.Grade) gradeResponse {
	return gradeResponse{
		ID:           g.ID,
		EnrollmentID: g.EnrollmentID,
		Value:        g.Value,
		GradedAt:     g.GradedAt,
	}
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	student, err := s.currentUser(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	enrolled, err := s.ledger.Enroll(r.Context(), student.ID, chi.URLParam(r, "courseID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordEnrollment("enroll")
	}
	writeJSON(w, http.StatusCreated, enrollmentPayload(enrolled))
}

func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	student, err := s.currentUser(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := s.ledger.Drop(r.Context(), student.ID, chi.URLParam(r, "courseID")); err != nil {
		writeDomainError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordEnrollment("drop")
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "dropped"})
}

func (s *Server) handleMyEnrollments(w http.ResponseWriter, r *http.Request) {
	student, err := s.currentUser(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	includeInactive := r.URL.Query().Get("includeInactive") == "true"

	records, err := s.ledger.EnrollmentsForStudent(r.Context(), student.ID, includeInactive)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]enrollmentResponse, 0, len(records))
	for _, rec := range records {
		payload := enrollmentPayload(rec.Enrollment)
		if rec.Grade != nil {
			grade := gradePayload(*rec.Grade)
			payload.Grade = &grade
		}
		out = append(out, payload)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCourseEnrollments(w http.ResponseWriter, r *http.Request) {
	records, err := s.ledger.ActiveEnrollmentsForCourse(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]enrollmentResponse, 0, len(records))
	for _, e := range records {
		out = append(out, enrollmentPayload(e))
	}
	writeJSON(w, http.StatusOK, out)
}

// canSeeEnrollment limits grade reads to the enrollment's student plus
// professors and admins.
func canSeeEnrollment(user model.User, e model.Enrollment) bool {
	switch user.Role {
	case model.RoleAdmin, model.RoleProfessor:
		return true
	default:
		return user.ID == e.StudentID
	}
}
