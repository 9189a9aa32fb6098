package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type assignGradeRequest struct {
	Value int `json:"value"`
}

func (s *Server) handleAssignGrade(w http.ResponseWriter, r *http.Request) {
	var req assignGradeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	grade, err := s.grades.AssignGrade(r.Context(), chi.URLParam(r, "enrollmentID"), req.Value)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordGrade()
	}
	writeJSON(w, http.StatusCreated, gradePayload(grade))
}

func (s *Server) handleGetGrade(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	enrollmentID := chi.URLParam(r, "enrollmentID")
	record, err := s.store.EnrollmentByID(r.Context(), enrollmentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !canSeeEnrollment(user, record) {
		writeError(w, http.StatusForbidden, "not_your_enrollment")
		return
	}

	grade, found, err := s.grades.GradeForEnrollment(r.Context(), enrollmentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_graded")
		return
	}
	writeJSON(w, http.StatusOK, gradePayload(grade))
}

func (s *Server) handleStudentGrades(w http.ResponseWriter, r *http.Request) {
	grades, err := s.grades.GradesByStudent(r.Context(), chi.URLParam(r, "studentID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]gradeResponse, 0, len(grades))
	for _, g := range grades {
		out = append(out, gradePayload(g))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCourseGrades(w http.ResponseWriter, r *http.Request) {
	grades, err := s.grades.GradesByCourse(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]gradeResponse, 0, len(grades))
	for _, g := range grades {
		out = append(out, gradePayload(g))
	}
	writeJSON(w, http.StatusOK, out)
}
